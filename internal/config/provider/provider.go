package provider

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

const delim = "."

var (
	// ErrNoConfig is returned when a source has nothing to contribute.
	ErrNoConfig = errors.New("no configuration available")

	// ErrInvalidSettings is returned when the merged settings are invalid.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Source represents a settings source (file, env, flags).
type Source interface {
	// Name returns the source name for debugging/logging.
	Name() string

	// Load returns the settings of this source as a map keyed like the klinik.toml file.
	// Keys may be dot-delimited. Returns ErrNoConfig if the source has nothing to offer.
	Load() (map[string]any, error)

	// IsAvailable checks if this source has settings available.
	IsAvailable() bool
}

// Provider loads settings from multiple sources with precedence.
// Precedence order (highest to lowest):
// 1. CLI Flags
// 2. Environment Variables (including .env)
// 3. Settings File
// 4. Defaults
type Provider struct {
	// sources is the list of sources in precedence order.
	sources []Source

	// cache stores the loaded settings.
	cache *Cache
}

// NewProvider creates a new Provider with the given sources.
// Sources should be provided in precedence order (highest priority first).
func NewProvider(sources ...Source) *Provider {
	return &Provider{
		sources: sources,
		cache:   NewCache(),
	}
}

// Load loads and merges settings from all sources.
// Caches the result for subsequent calls.
func (p *Provider) Load() (*pkgconfig.Settings, error) {
	if settings := p.cache.Get(); settings != nil {
		return settings, nil
	}

	k := koanf.New(delim)

	// lowest priority first so later loads override
	for i := len(p.sources) - 1; i >= 0; i-- {
		source := p.sources[i]

		values, err := source.Load()
		if err != nil {
			if errors.Is(err, ErrNoConfig) {
				continue
			}

			return nil, errors.Wrapf(err, "failed to load settings from %s", source.Name())
		}

		if err := k.Load(confmap.Provider(values, delim), nil); err != nil {
			return nil, errors.Wrapf(err, "failed to merge settings from %s", source.Name())
		}
	}

	settings := &pkgconfig.Settings{}
	if err := k.UnmarshalWithConf("", settings, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}

	if err := Validate(settings); err != nil {
		return nil, err
	}

	p.cache.Set(settings)

	return settings, nil
}

// Reload clears the cache and loads settings again.
func (p *Provider) Reload() (*pkgconfig.Settings, error) {
	p.cache.Clear()

	return p.Load()
}

// Sources returns the list of sources in precedence order.
func (p *Provider) Sources() []Source {
	return p.sources
}

// Backends lists the supported storage backends.
func Backends() []string {
	return []string{"file", "memory", "sqlite", "redis", "postgres"}
}

// Validate checks the runtime settings.
func Validate(settings *pkgconfig.Settings) error {
	storage := settings.GetStorage()
	if !slices.Contains(Backends(), storage.GetBackend()) {
		return errors.WithHintf(
			errors.Wrapf(ErrInvalidSettings, "unknown storage backend %q", storage.Backend),
			"supported backends: %s", strings.Join(Backends(), ", "),
		)
	}

	log := settings.GetLog()
	if _, err := logrus.ParseLevel(log.GetLevel()); err != nil {
		return errors.Wrapf(ErrInvalidSettings, "log level %q", log.Level)
	}

	if format := log.GetFormat(); format != "text" && format != "json" {
		return errors.Wrapf(ErrInvalidSettings, "log format %q", format)
	}

	return nil
}

// NewDefaultProvider creates a Provider with standard sources.
// Sources in precedence order:
// 1. Flags (highest)
// 2. Environment and the .env file of the working directory
// 3. ~/.klinik/klinik.toml, or the file named by KLINIK_CONFIG
// 4. Defaults (lowest, applied by the settings getters)
func NewDefaultProvider(flags map[string]any) *Provider {
	return NewProvider(
		NewFlagSource(flags),
		NewEnvSource(DefaultDotEnvFile),
		NewFileSource(DefaultFilePath()),
	)
}
