// Package watch reports changes of a single file made by other processes.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/smykla-labs/klinik/internal/debounce"
	"github.com/smykla-labs/klinik/pkg/logger"
)

const (
	// DefaultDelay coalesces the burst of events produced by an atomic rename.
	DefaultDelay = 200 * time.Millisecond

	dirPerm = 0o700
)

// ErrWatcherClosed is returned when Run is called on a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Watcher calls a function after the watched file is written, replaced or removed.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	debounce *debounce.Debouncer[struct{}]
	log      logger.Logger
}

// New watches path. The parent directory is watched so atomic replacements are seen; it is
// created if missing.
func New(path string, onChange func(), delay time.Duration, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve watched path")
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, errors.Wrap(err, "failed to create watched directory")
	}

	// events carry the resolved directory name
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
		abs = filepath.Join(dir, filepath.Base(abs))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create watcher")
	}

	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()

		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}

	return &Watcher{
		path:     abs,
		fsw:      fsw,
		debounce: debounce.New(delay, func(struct{}) { onChange() }),
		log:      log.With("component", "watch", "path", abs),
	}, nil
}

// Run delivers change notifications until ctx is done or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return ErrWatcherClosed
			}

			if !w.relevant(event) {
				continue
			}

			w.log.Debug("watched file changed", "op", event.Op.String())
			w.debounce.Trigger(struct{}{})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrWatcherClosed
			}

			w.log.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}

	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *Watcher) close() {
	w.debounce.Stop()

	if err := w.fsw.Close(); err != nil {
		w.log.Debug("failed to close watcher", "error", err)
	}
}
