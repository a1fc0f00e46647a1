package config

import (
	"math"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/v2"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

var (
	errFractional = errors.New("fractional number for an integer field")
	errNotBool    = errors.New("non-boolean value for a boolean field")
	errNotNumber  = errors.New("boolean value for a numeric field")
)

func decode(k *koanf.Koanf) (pkgconfig.Config, error) {
	var cfg pkgconfig.Config

	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.DecodeHookFuncType(strictScalarsHook),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}

	if err := k.UnmarshalWithConf("", &cfg, conf); err != nil {
		return pkgconfig.Config{}, invalidValue(errors.Wrap(err, "failed to decode settings"))
	}

	return cfg, nil
}

// strictScalarsHook narrows weak typing to text coercion: strings still convert to numbers
// and booleans, but numbers never become booleans, booleans never become numbers and
// fractional numbers never become integers.
func strictScalarsHook(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch from.Kind() {
		case reflect.Float32, reflect.Float64:
			f := reflect.ValueOf(data).Float()
			if f != math.Trunc(f) {
				return nil, errors.Wrapf(errFractional, "%v", data)
			}
		case reflect.Bool:
			return nil, errors.Wrapf(errNotNumber, "%v", data)
		default:
		}

	case reflect.Bool:
		switch from.Kind() {
		case reflect.Bool, reflect.String:
		default:
			return nil, errors.Wrapf(errNotBool, "%v", data)
		}

	default:
	}

	return data, nil
}
