package provider

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

const (
	// EnvPrefix prefixes every klinik environment variable.
	EnvPrefix = "KLINIK_"

	// ConfigPathEnv names an alternative settings file.
	ConfigPathEnv = EnvPrefix + "CONFIG"

	// DefaultDotEnvFile is read from the working directory when present.
	DefaultDotEnvFile = ".env"

	// FileName is the name of the settings file in the klinik home directory.
	FileName = "klinik.toml"
)

// DefaultFilePath returns the settings file path, honoring KLINIK_CONFIG.
func DefaultFilePath() string {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return path
	}

	return filepath.Join(pkgconfig.HomeDir(), FileName)
}

// FileSource loads settings from a TOML file.
type FileSource struct {
	path string
}

// NewFileSource creates a new FileSource.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the source name.
func (s *FileSource) Name() string {
	return "settings file " + s.path
}

// Path returns the settings file path.
func (s *FileSource) Path() string {
	return s.path
}

// Load parses the settings file.
func (s *FileSource) Load() (map[string]any, error) {
	if !s.IsAvailable() {
		return nil, ErrNoConfig
	}

	k := koanf.New(delim)
	if err := k.Load(file.Provider(s.path), toml.Parser()); err != nil {
		return nil, errors.Wrap(err, "failed to parse settings file")
	}

	return k.Raw(), nil
}

// IsAvailable checks if the settings file exists.
func (s *FileSource) IsAvailable() bool {
	if s.path == "" {
		return false
	}

	_, err := os.Stat(s.path)

	return err == nil
}

// EnvSource loads settings from environment variables.
// Variables follow the pattern KLINIK_SECTION_FIELD; the first underscore after the prefix
// separates the section from the field.
// Examples:
// - KLINIK_STORAGE_BACKEND=sqlite
// - KLINIK_EXPORT_LEASE_TTL=5m
// - KLINIK_LOG_LEVEL=debug
//
// Variables from the dotenv file are used when the process environment doesn't set them.
type EnvSource struct {
	dotenv string
}

// NewEnvSource creates a new EnvSource. An empty dotenv path disables dotenv loading.
func NewEnvSource(dotenv string) *EnvSource {
	return &EnvSource{dotenv: dotenv}
}

// Name returns the source name.
func (*EnvSource) Name() string {
	return "environment variables"
}

// Load reads the KLINIK_ variables.
func (s *EnvSource) Load() (map[string]any, error) {
	environ, err := s.environ()
	if err != nil {
		return nil, err
	}

	k := koanf.New(delim)

	if err := k.Load(env.Provider(delim, env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   func() []string { return environ },
	}), nil); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	if len(k.Keys()) == 0 {
		return nil, ErrNoConfig
	}

	return k.Raw(), nil
}

// IsAvailable checks if any KLINIK_ variables are set.
func (s *EnvSource) IsAvailable() bool {
	environ, err := s.environ()
	if err != nil {
		return false
	}

	for _, kv := range environ {
		if strings.HasPrefix(kv, EnvPrefix) && kv != ConfigPathEnv && !strings.HasPrefix(kv, ConfigPathEnv+"=") {
			return true
		}
	}

	return false
}

// environ returns the dotenv entries followed by the process environment, so the process
// environment wins on duplicates.
func (s *EnvSource) environ() ([]string, error) {
	var out []string

	if s.dotenv != "" {
		values, err := godotenv.Read(s.dotenv)

		switch {
		case err == nil:
			for key, value := range values {
				out = append(out, key+"="+value)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "failed to read %s", s.dotenv)
		}
	}

	return append(out, os.Environ()...), nil
}

func envKey(key, value string) (string, any) {
	name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if name == "config" || value == "" {
		return "", nil
	}

	section, field, ok := strings.Cut(name, "_")
	if !ok {
		return "", nil
	}

	return section + delim + field, value
}

// FlagSource loads settings from CLI flags. Keys are dot-delimited settings paths such as
// "storage.backend".
type FlagSource struct {
	flags map[string]any
}

// NewFlagSource creates a new FlagSource.
func NewFlagSource(flags map[string]any) *FlagSource {
	return &FlagSource{flags: flags}
}

// Name returns the source name.
func (*FlagSource) Name() string {
	return "CLI flags"
}

// Load returns the flags.
func (s *FlagSource) Load() (map[string]any, error) {
	if len(s.flags) == 0 {
		return nil, ErrNoConfig
	}

	out := make(map[string]any, len(s.flags))
	for key, value := range s.flags {
		out[key] = value
	}

	return out, nil
}

// IsAvailable checks if any flags are set.
func (s *FlagSource) IsAvailable() bool {
	return len(s.flags) > 0
}
