// Package effects applies settings values to the presentation surface, the process log and
// the recurring export task.
//
// Every operation is idempotent and never fails: a panicking capability is recovered and
// logged at debug level, and a nil capability turns the operation into a no-op.
package effects

import (
	"fmt"
	"sync"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
	"github.com/smykla-labs/klinik/pkg/logger"
)

// Surface is the presentation surface effects are applied to.
type Surface interface {
	SetTitle(title string)
	EnableMaintenance()
	DisableMaintenance()
	EnableDebugPanel()
	DisableDebugPanel()
	AppendDebugLine(line string)
}

// LogMirror copies log output into a sink until restore is called.
type LogMirror interface {
	Mirror(sink func(line string)) (restore func())
}

// ExportScheduler owns the recurring export task.
type ExportScheduler interface {
	Schedule(freq pkgconfig.BackupFrequency, enabled bool)
}

// Applier applies settings effects.
type Applier struct {
	surface   Surface
	mirror    LogMirror
	scheduler ExportScheduler
	log       logger.Logger

	mu      sync.Mutex
	restore func()
}

// NewApplier creates an Applier. Any capability may be nil.
func NewApplier(surface Surface, mirror LogMirror, scheduler ExportScheduler, log logger.Logger) *Applier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Applier{
		surface:   surface,
		mirror:    mirror,
		scheduler: scheduler,
		log:       log.With("component", "effects"),
	}
}

// ApplySystemName sets the title and every title-bound element.
func (a *Applier) ApplySystemName(name string) {
	if a.surface == nil {
		return
	}

	a.safely("system name", func() {
		a.surface.SetTitle(name)
	})
}

// ApplyMaintenanceMode shows or hides the maintenance banner and overlay.
func (a *Applier) ApplyMaintenanceMode(enabled bool) {
	if a.surface == nil {
		return
	}

	a.safely("maintenance mode", func() {
		if enabled {
			a.surface.EnableMaintenance()

			return
		}

		a.surface.DisableMaintenance()
	})
}

// ApplyDebugMode shows or hides the debug panel. While shown, log output is mirrored into it.
func (a *Applier) ApplyDebugMode(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !enabled {
		a.safely("log restore", func() {
			if a.restore != nil {
				restore := a.restore
				a.restore = nil

				restore()
			}
		})

		if a.surface != nil {
			a.safely("debug panel", a.surface.DisableDebugPanel)
		}

		return
	}

	if a.surface == nil {
		return
	}

	a.safely("debug panel", a.surface.EnableDebugPanel)

	if a.mirror == nil || a.restore != nil {
		return
	}

	a.safely("log mirror", func() {
		a.restore = a.mirror.Mirror(a.surface.AppendDebugLine)
	})
}

// Mirroring reports whether log output is currently mirrored into the debug panel.
func (a *Applier) Mirroring() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.restore != nil
}

// ScheduleRecurringExport replaces the recurring export task.
func (a *Applier) ScheduleRecurringExport(freq pkgconfig.BackupFrequency, enabled bool) {
	if a.scheduler == nil {
		return
	}

	a.safely("recurring export", func() {
		a.scheduler.Schedule(freq, enabled)
	})
}

// ApplyAll applies every effect of cfg.
func (a *Applier) ApplyAll(cfg pkgconfig.Config) {
	a.ApplySystemName(cfg.SystemName)
	a.ApplyMaintenanceMode(cfg.MaintenanceMode)
	a.ApplyDebugMode(cfg.DebugMode)
	a.ScheduleRecurringExport(cfg.BackupFrequency, cfg.BackupEnabled)

	a.log.Debug("applied settings effects",
		"maintenance", cfg.MaintenanceMode,
		"debug", cfg.DebugMode,
		"backup", cfg.BackupEnabled,
	)
}

func (a *Applier) safely(effect string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Debug("effect failed", "effect", effect, "panic", fmt.Sprint(r))
		}
	}()

	fn()
}
