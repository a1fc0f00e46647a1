// Package store holds the authoritative settings snapshot.
//
// Readers always see a complete snapshot: updates build a new Config and publish it with a
// single atomic pointer swap. Each mutation is validated, published, persisted, announced to
// observers and finally handed to the effect debouncer, in that order.
package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-labs/klinik/internal/config"
	"github.com/smykla-labs/klinik/internal/debounce"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
	"github.com/smykla-labs/klinik/pkg/logger"
)

// Persistence loads and saves snapshots. Implementations swallow their own failures.
type Persistence interface {
	Load(ctx context.Context) (*pkgconfig.Config, bool)
	Save(ctx context.Context, cfg pkgconfig.Config)
	Clear(ctx context.Context)
}

// Effects applies a snapshot to the running process.
type Effects interface {
	ApplyAll(cfg pkgconfig.Config)
}

// Option configures a Store.
type Option func(*Store)

// WithEffectDelay sets the coalescing window for effect application. Zero applies effects
// synchronously after each mutation.
func WithEffectDelay(d time.Duration) Option {
	return func(s *Store) {
		s.delay = d
	}
}

// Store is the settings accessor shared by every component of the process.
type Store struct {
	persistence Persistence
	effects     Effects
	validator   *config.Validator
	log         logger.Logger
	delay       time.Duration

	current  atomic.Pointer[pkgconfig.Config]
	loadOnce sync.Once

	// mu serializes writers.
	mu sync.Mutex

	debouncer *debounce.Debouncer[pkgconfig.Config]

	obsMu     sync.RWMutex
	observers map[uint64]func(pkgconfig.Config)
	nextObs   uint64
}

// New creates a Store. The persisted snapshot is read lazily on first access.
func New(persistence Persistence, effects Effects, log logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	s := &Store{
		persistence: persistence,
		effects:     effects,
		validator:   config.NewValidator(),
		log:         log.With("component", "store"),
		observers:   make(map[uint64]func(pkgconfig.Config)),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.debouncer = debounce.New(s.delay, s.applyEffects)

	return s
}

// Get returns the current snapshot.
func (s *Store) Get() pkgconfig.Config {
	s.ensureLoaded(context.Background())

	return *s.current.Load()
}

// Load reads the persisted snapshot and applies its effects. Only the first call, or the
// first Get, does any work.
func (s *Store) Load(ctx context.Context) pkgconfig.Config {
	s.ensureLoaded(ctx)

	return *s.current.Load()
}

// Update replaces the value at a dot-delimited path, e.g. "passwordPolicy.minLength".
func (s *Store) Update(ctx context.Context, path string, value any) (pkgconfig.Config, error) {
	return s.mutate(ctx, "update", func(cur pkgconfig.Config) (pkgconfig.Config, error) {
		return config.Set(cur, path, value)
	})
}

// UpdateMany merges partial into the snapshot. Nested groups merge with their current
// members.
func (s *Store) UpdateMany(ctx context.Context, partial map[string]any) (pkgconfig.Config, error) {
	return s.mutate(ctx, "update", func(cur pkgconfig.Config) (pkgconfig.Config, error) {
		return config.Apply(cur, partial)
	})
}

// SaveCategory applies the fields submitted by a category form.
func (s *Store) SaveCategory(
	ctx context.Context,
	category pkgconfig.Category,
	fields map[string]any,
) (pkgconfig.Config, error) {
	patch, err := config.CategoryPatch(category, fields)
	if err != nil {
		s.log.Debug("rejected category save", "category", category, "error", err)

		return s.Load(ctx), err
	}

	next, err := s.UpdateMany(ctx, patch)
	if err != nil {
		s.log.Debug("rejected category save", "category", category, "error", err)

		return next, err
	}

	return next, nil
}

// Reset restores the defaults and clears the persisted snapshot.
func (s *Store) Reset(ctx context.Context) pkgconfig.Config {
	s.ensureLoaded(ctx)

	s.mu.Lock()

	next := pkgconfig.DefaultConfig()
	s.current.Store(&next)
	s.persistence.Clear(ctx)

	s.mu.Unlock()

	s.log.Info("settings reset to defaults")
	s.publish(next)

	return next
}

// Reload re-reads the persisted snapshot, e.g. after another process wrote it. An empty or
// unusable slot reloads the defaults.
func (s *Store) Reload(ctx context.Context) pkgconfig.Config {
	s.ensureLoaded(ctx)

	s.mu.Lock()

	next := pkgconfig.DefaultConfig()
	if loaded, ok := s.persistence.Load(ctx); ok {
		next = *loaded
	}

	if next == *s.current.Load() {
		s.mu.Unlock()

		return next
	}

	s.current.Store(&next)

	s.mu.Unlock()

	s.log.Debug("reloaded persisted settings")
	s.publish(next)

	return next
}

// Subscribe registers fn to receive every published snapshot. It returns a function
// removing the registration.
func (s *Store) Subscribe(fn func(pkgconfig.Config)) (unsubscribe func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()

		delete(s.observers, id)
	}
}

// Flush applies pending effects now.
func (s *Store) Flush() {
	s.debouncer.Flush()
}

// Close applies pending effects and stops effect application.
func (s *Store) Close() {
	s.debouncer.Flush()
	s.debouncer.Stop()
}

func (s *Store) ensureLoaded(ctx context.Context) {
	s.loadOnce.Do(func() {
		cfg := pkgconfig.DefaultConfig()

		if loaded, ok := s.persistence.Load(ctx); ok {
			cfg = *loaded
		}

		s.current.Store(&cfg)
		s.applyEffects(cfg)
	})
}

func (s *Store) mutate(
	ctx context.Context,
	op string,
	fn func(pkgconfig.Config) (pkgconfig.Config, error),
) (pkgconfig.Config, error) {
	s.ensureLoaded(ctx)

	s.mu.Lock()

	cur := *s.current.Load()

	next, err := fn(cur)
	if err == nil {
		err = s.validator.Validate(next)
	}

	if err != nil {
		s.mu.Unlock()
		s.log.Debug("rejected settings "+op, "error", err)

		return cur, err
	}

	s.current.Store(&next)
	s.persistence.Save(ctx, next)

	s.mu.Unlock()

	s.publish(next)

	return next, nil
}

// publish notifies observers and schedules effects for the latest snapshot.
func (s *Store) publish(cfg pkgconfig.Config) {
	s.obsMu.RLock()

	observers := make([]func(pkgconfig.Config), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}

	s.obsMu.RUnlock()

	for _, fn := range observers {
		fn(cfg)
	}

	// The latest snapshot, not cfg: a concurrent writer may have published after us.
	if !s.debouncer.Trigger(*s.current.Load()) {
		s.log.Debug("store closed, effects not applied")
	}
}

func (s *Store) applyEffects(cfg pkgconfig.Config) {
	if s.effects == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Debug("effect application failed", "error", errors.Newf("%v", r))
		}
	}()

	s.effects.ApplyAll(cfg)
}
