// Package app wires the settings runtime from the klinik runtime settings.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/smykla-labs/klinik/internal/backup"
	"github.com/smykla-labs/klinik/internal/effects"
	"github.com/smykla-labs/klinik/internal/persistence"
	"github.com/smykla-labs/klinik/internal/storage"
	"github.com/smykla-labs/klinik/internal/store"
	"github.com/smykla-labs/klinik/internal/surface"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
	"github.com/smykla-labs/klinik/pkg/logger"
)

const leaseFileName = "export.lease"

// TitleBound lists the surface elements showing the system name.
var TitleBound = []string{"header", "sidebar"}

// Options configures New.
type Options struct {
	// Recurring enables the recurring export task. Only long-running processes set it.
	Recurring bool

	// LogOutput overrides the log destination.
	LogOutput io.Writer

	// Slot overrides the slot selected by the settings.
	Slot storage.Slot
}

// App holds the wired settings runtime.
type App struct {
	Settings    *pkgconfig.Settings
	Log         *logger.LogrusLogger
	Slot        storage.Slot
	Persistence *persistence.Persistence
	Store       *store.Store
	Surface     *surface.Document
	Effects     *effects.Applier
	Exports     *backup.Manager

	// Scheduler and Lease are nil unless the process owns the recurring export.
	Scheduler *backup.Scheduler
	Lease     *backup.Lease

	logFile *os.File
}

// New wires the runtime. The settings record itself is loaded lazily by the store.
func New(ctx context.Context, settings *pkgconfig.Settings, opts Options) (*App, error) {
	if settings == nil {
		settings = &pkgconfig.Settings{}
	}

	a := &App{Settings: settings}

	if err := a.initLogger(opts.LogOutput); err != nil {
		return nil, err
	}

	slot := opts.Slot
	if slot == nil {
		var err error

		slot, err = storage.Open(ctx, settings.GetStorage())
		if err != nil {
			a.closeLog()

			return nil, err
		}
	}

	a.Slot = slot

	exports, err := backup.NewManager(settings.GetExport().GetDir(), a.Log)
	if err != nil {
		a.closeLog()

		return nil, err
	}

	a.Exports = exports
	a.Persistence = persistence.New(slot, a.Log)
	a.Surface = surface.NewDocument()

	for _, id := range TitleBound {
		a.Surface.BindTitle(id)
	}

	var scheduler effects.ExportScheduler

	if opts.Recurring && a.acquireLease() {
		a.Scheduler = backup.NewScheduler(exports, a.snapshot, a.Log)
		scheduler = a.Scheduler
	}

	a.Effects = effects.NewApplier(a.Surface, a.Log, scheduler, a.Log)
	a.Store = store.New(a.Persistence, a.Effects, a.Log,
		store.WithEffectDelay(settings.GetEffects().GetDelay()),
	)

	return a, nil
}

// Close flushes pending effects and releases every resource.
func (a *App) Close() error {
	a.Store.Close()

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	var errs error

	if a.Lease != nil {
		errs = errors.CombineErrors(errs, a.Lease.Release())
	}

	errs = errors.CombineErrors(errs, a.Slot.Close())

	a.closeLog()

	return errs
}

// WatchPath returns the file to watch for changes made by other processes, or "" when the
// backend has no such file.
func (a *App) WatchPath() string {
	if fs, ok := a.Slot.(*storage.FileSlot); ok {
		return fs.Path()
	}

	return ""
}

func (a *App) snapshot() pkgconfig.Config {
	return a.Store.Get()
}

func (a *App) acquireLease() bool {
	export := a.Settings.GetExport()

	lease := backup.NewLease(
		filepath.Join(export.GetDir(), leaseFileName),
		export.GetLeaseTTL(),
		export.IsLeaseEnabled(),
	)

	if err := lease.Acquire(); err != nil {
		a.Log.Warn("recurring export owned by another process", "error", err)

		return false
	}

	a.Lease = lease

	return true
}

func (a *App) initLogger(output io.Writer) error {
	settings := a.Settings.GetLog()

	if output == nil && settings.File != "" {
		if err := os.MkdirAll(filepath.Dir(settings.File), 0o700); err != nil {
			return errors.Wrap(err, "failed to create log directory")
		}

		f, err := os.OpenFile(settings.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return errors.Wrap(err, "failed to open log file")
		}

		a.logFile = f
		output = f
	}

	log, err := logger.New(logger.Options{
		Level:  settings.GetLevel(),
		Format: settings.GetFormat(),
		Output: output,
	})
	if err != nil {
		a.closeLog()

		return err
	}

	a.Log = log

	return nil
}

func (a *App) closeLog() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
