package config

import (
	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

// Merge overlays raw persisted fields on base. Fields absent from raw, or null in it, keep
// their base value, so the result is always a complete record. Unknown fields are ignored.
func Merge(base pkgconfig.Config, raw map[string]any) (pkgconfig.Config, error) {
	k := koanf.New(delim)

	if err := k.Load(confmap.Provider(base.ToMap(), ""), nil); err != nil {
		return base, errors.Wrap(err, "failed to load defaults")
	}

	if err := k.Load(confmap.Provider(dropNulls(raw), ""), nil); err != nil {
		return base, errors.Wrap(err, "failed to load persisted settings")
	}

	return decode(k)
}

func dropNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))

	for k, v := range m {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = dropNulls(val)
		default:
			out[k] = v
		}
	}

	return out
}
