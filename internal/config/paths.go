package config

import (
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

const delim = "."

var (
	knownPathsOnce sync.Once
	knownPaths     map[string]bool
)

// Paths returns every addressable path of the record, sorted. Nested groups are listed
// both as a whole ("passwordPolicy") and per member ("passwordPolicy.minLength").
func Paths() []string {
	known := pathSet()

	out := make([]string, 0, len(known))
	for p := range known {
		out = append(out, p)
	}

	slices.Sort(out)

	return out
}

// leafPaths returns the paths of every scalar field, sorted.
func leafPaths() []string {
	all := Paths()

	return slices.DeleteFunc(slices.Clone(all), func(p string) bool {
		return slices.ContainsFunc(all, func(other string) bool {
			return strings.HasPrefix(other, p+delim)
		})
	})
}

// IsKnownPath reports whether path addresses a field of the record.
func IsKnownPath(path string) bool {
	return pathSet()[path]
}

func pathSet() map[string]bool {
	knownPathsOnce.Do(func() {
		knownPaths = make(map[string]bool)
		collectPaths("", pkgconfig.DefaultConfig().ToMap(), knownPaths)
	})

	return knownPaths
}

func collectPaths(prefix string, m map[string]any, into map[string]bool) {
	for k, v := range m {
		p := k
		if prefix != "" {
			p = prefix + delim + k
		}

		into[p] = true

		if nested, ok := v.(map[string]any); ok {
			collectPaths(p, nested, into)
		}
	}
}

// Lookup returns the value at a dot-delimited path. Groups are returned as maps.
func Lookup(cfg pkgconfig.Config, path string) (any, error) {
	path = strings.TrimSpace(path)
	if !IsKnownPath(path) {
		return nil, errors.Wrapf(ErrInvalidPath, "%q", path)
	}

	k := koanf.New(delim)
	if err := k.Load(confmap.Provider(cfg.ToMap(), ""), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load current settings")
	}

	return k.Get(path), nil
}

// Set returns a copy of cfg with the value at the dot-delimited path replaced. Siblings
// are preserved. Strings are coerced to the field type where possible.
func Set(cfg pkgconfig.Config, path string, value any) (pkgconfig.Config, error) {
	return Apply(cfg, map[string]any{path: value})
}

// Apply returns a copy of cfg with every entry of patch applied. Keys may be top-level
// field names or dot-delimited paths; map values merge into nested groups.
func Apply(cfg pkgconfig.Config, patch map[string]any) (pkgconfig.Config, error) {
	if err := checkPatch("", patch); err != nil {
		return cfg, err
	}

	k := koanf.New(delim)
	if err := k.Load(confmap.Provider(cfg.ToMap(), ""), nil); err != nil {
		return cfg, errors.Wrap(err, "failed to load current settings")
	}

	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		if err := k.Set(strings.TrimSpace(key), patch[key]); err != nil {
			return cfg, errors.Wrapf(err, "failed to set %q", key)
		}
	}

	next, err := decode(k)
	if err != nil {
		return cfg, err
	}

	return next, nil
}

func checkPatch(prefix string, patch map[string]any) error {
	for key, value := range patch {
		p := strings.TrimSpace(key)
		if prefix != "" {
			p = prefix + delim + p
		}

		if !IsKnownPath(p) {
			return errors.Wrapf(ErrInvalidPath, "%q", p)
		}

		if nested, ok := value.(map[string]any); ok {
			if err := checkPatch(p, nested); err != nil {
				return err
			}
		}
	}

	return nil
}
