// Package persistence stores settings snapshots in a slot. It never returns errors to the
// caller: failures are logged as warnings and the caller keeps working from memory.
package persistence

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/smykla-labs/klinik/internal/config"
	"github.com/smykla-labs/klinik/internal/storage"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
	"github.com/smykla-labs/klinik/pkg/logger"
)

const warnInterval = time.Minute

// Persistence loads, saves and clears the settings snapshot.
type Persistence struct {
	slot      storage.Slot
	validator *config.Validator
	log       logger.Logger

	// saveWarn throttles repeated write failures such as a full disk.
	saveWarn rate.Sometimes
}

// New creates a Persistence over slot.
func New(slot storage.Slot, log logger.Logger) *Persistence {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Persistence{
		slot:      slot,
		validator: config.NewValidator(),
		log:       log.With("component", "persistence"),
		saveWarn:  rate.Sometimes{First: 1, Interval: warnInterval},
	}
}

// Load returns the persisted snapshot merged over the defaults. Fields holding invalid values
// fall back to their defaults. It reports false when the slot is empty or its content is
// unusable.
func (p *Persistence) Load(ctx context.Context) (*pkgconfig.Config, bool) {
	data, err := p.slot.Read(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.log.Warn("failed to read persisted settings, using defaults", "error", err)
		}

		return nil, false
	}

	cfg, err := Decode(data)
	if err != nil {
		p.log.Warn("persisted settings are corrupt, using defaults", "error", err)

		return nil, false
	}

	if err := p.validator.Validate(cfg); err != nil {
		repaired, reset := p.validator.Repair(cfg)
		p.log.Warn("persisted settings have invalid fields, using defaults for them",
			"fields", strings.Join(reset, ","),
			"error", err,
		)

		cfg = repaired
	}

	p.log.Debug("loaded persisted settings", "size", humanize.Bytes(uint64(len(data))))

	return &cfg, true
}

// Save writes cfg to the slot.
func (p *Persistence) Save(ctx context.Context, cfg pkgconfig.Config) {
	data, err := Encode(cfg)
	if err != nil {
		p.log.Warn("failed to encode settings", "error", err)

		return
	}

	if err := p.slot.Write(ctx, data); err != nil {
		p.saveWarn.Do(func() {
			p.log.Warn("failed to persist settings, keeping them in memory", "error", err)
		})

		return
	}

	p.log.Debug("persisted settings", "size", humanize.Bytes(uint64(len(data))))
}

// Clear removes the persisted snapshot.
func (p *Persistence) Clear(ctx context.Context) {
	if err := p.slot.Remove(ctx); err != nil {
		p.log.Warn("failed to clear persisted settings", "error", err)
	}
}

// Encode serializes a snapshot to the persisted JSON layout.
func Encode(cfg pkgconfig.Config) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal settings")
	}

	return data, nil
}

// Decode parses the persisted JSON layout and backfills missing fields from the defaults.
func Decode(data []byte) (pkgconfig.Config, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return pkgconfig.Config{}, errors.Wrap(err, "failed to parse settings")
	}

	if raw == nil {
		return pkgconfig.Config{}, errors.New("settings blob is null")
	}

	return config.Merge(pkgconfig.DefaultConfig(), raw)
}
