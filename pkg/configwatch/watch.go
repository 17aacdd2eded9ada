package configwatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"

	"github.com/core-tools/hsu-keeper/pkg/config"
	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

const DefaultDebounce = 200 * time.Millisecond

// maxReloadAttempts bounds the retries of a reload that failed to read the file,
// e.g. while an editor replaces it without an atomic rename.
const maxReloadAttempts = 10

// Toggler applies a runtime enabled flag to a supervised unit.
type Toggler interface {
	SetEnabled(id string, enabled bool) (bool, error)
}

type Options struct {
	Debounce time.Duration
}

// Watcher follows a configuration file and pushes enabled flags to the running
// units. The unit set itself is fixed at startup.
type Watcher struct {
	path    string
	known   map[string]bool
	toggler Toggler
	options Options
	logger  logging.Logger

	sctx *stopper.Context

	mu        sync.Mutex
	debouncer *time.Timer
}

// Start watches path until ctx is done or Stop is called. The containing
// directory is watched because atomic replacement swaps the file.
func Start(ctx context.Context, path string, units []unit.Descriptor, toggler Toggler, options Options, logger logging.Logger) (*Watcher, error) {
	if options.Debounce <= 0 {
		options.Debounce = DefaultDebounce
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewValidationError("invalid configuration path", err).WithContext("filename", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewIOError("failed to create file watcher", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return nil, errors.NewIOError("failed to watch configuration directory", err).WithContext("filename", absPath)
	}

	w := &Watcher{
		path:    absPath,
		known:   make(map[string]bool, len(units)),
		toggler: toggler,
		options: options,
		logger:  logging.WithPrefix(logger, "configwatch: "),
		sctx:    stopper.WithContext(ctx),
	}
	for _, d := range units {
		w.known[d.ID] = true
	}

	w.sctx.Defer(func() {
		_ = watcher.Close()
	})

	w.sctx.Go(func(sctx *stopper.Context) error {
		sctx.Defer(func() {
			w.mu.Lock()
			if w.debouncer != nil {
				w.debouncer.Stop()
			}
			w.mu.Unlock()
		})

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				w.schedule()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil {
					w.logger.Warnf("Watcher error: %v", err)
				}
			}
		}
		return nil
	})

	w.logger.Infof("Watching %s", absPath)
	return w, nil
}

func (w *Watcher) schedule() {
	w.scheduleAttempt(1)
}

// scheduleAttempt arms the debounce timer. Read failures are retried one debounce
// period later; parse and validation failures wait for the next change.
func (w *Watcher) scheduleAttempt(attempt int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debouncer != nil {
		w.debouncer.Stop()
	}
	w.debouncer = time.AfterFunc(w.options.Debounce, func() {
		if w.sctx.IsStopping() {
			return
		}
		err := w.Reload()
		if errors.IsIOError(err) && attempt < maxReloadAttempts {
			w.scheduleAttempt(attempt + 1)
		}
	})
}

// Reload reads the file once and applies every enabled flag. A file that fails to
// load or validate is ignored and the running flags stay as they are.
func (w *Watcher) Reload() error {
	cfg, err := config.LoadConfigFromFile(w.path)
	if err == nil {
		err = config.ValidateConfig(cfg)
	}
	if err != nil {
		w.logger.Warnf("Ignoring configuration change: %v", err)
		return err
	}

	seen := make(map[string]bool, len(cfg.Units))
	for _, u := range cfg.Units {
		seen[u.ID] = true
		if !w.known[u.ID] {
			w.logger.Warnf("Unit %s was added to the configuration, restart the keeper to run it", u.ID)
			continue
		}
		changed, err := w.toggler.SetEnabled(u.ID, u.IsEnabled())
		if err != nil {
			w.logger.Errorf("Failed to apply enabled flag, unit: %s: %v", u.ID, err)
			continue
		}
		if changed {
			w.logger.Infof("Unit %s enabled: %t", u.ID, u.IsEnabled())
		}
	}
	for id := range w.known {
		if !seen[id] {
			w.logger.Warnf("Unit %s was removed from the configuration, it keeps its current state until restart", id)
		}
	}
	return nil
}

// Stop ends watching and waits for the watcher goroutine.
func (w *Watcher) Stop() error {
	w.sctx.Stop(100 * time.Millisecond)
	return w.sctx.Wait()
}
