package app

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/smykla-labs/klinik/internal/watch"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

// Run loads the settings, applies their effects and keeps the process in sync with the slot
// until ctx is done. The surface is rendered to out after every change.
func (a *App) Run(ctx context.Context, out io.Writer) error {
	var w *watch.Watcher

	if path := a.WatchPath(); path != "" {
		var err error

		w, err = watch.New(path, func() { a.Store.Reload(context.Background()) }, watch.DefaultDelay, a.Log)
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	unsubscribe := a.Store.Subscribe(func(pkgconfig.Config) { notify() })
	defer unsubscribe()

	a.Store.Load(ctx)
	notify()

	delay := a.Settings.GetEffects().GetDelay()

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
			}

			// let the coalescing window close before drawing
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}

			a.Store.Flush()

			if err := a.Surface.Render(out); err != nil {
				return err
			}
		}
	})

	if w != nil {
		g.Go(func() error { return w.Run(ctx) })
	}

	if a.Lease != nil && a.Lease.IsEnabled() {
		g.Go(func() error { return a.renewLease(ctx) })
	}

	a.Log.Info("klinik running", "system", a.Store.Get().SystemName)

	return g.Wait()
}

func (a *App) renewLease(ctx context.Context) error {
	ticker := time.NewTicker(a.Lease.TTL() / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.Lease.Acquire(); err != nil {
				return errors.Wrap(err, "lost export lease")
			}
		}
	}
}
