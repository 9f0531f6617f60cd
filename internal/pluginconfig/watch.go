package pluginconfig

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher notices edits to the vehicle configuration file. The fsnotify
// goroutine only raises a flag; the host thread polls Changed and performs the
// reload itself, so no adapter state is touched off the tick.
type Watcher struct {
	watcher *fsnotify.Watcher
	name    string
	dirty   atomic.Bool
	log     zerolog.Logger
	done    chan struct{}
}

// Watch starts watching path. The parent directory is watched because editors
// commonly replace the file instead of writing to it.
func Watch(path string, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		watcher: fw,
		name:    abs,
		log:     logger.With().Str("component", "config-watch").Logger(),
		done:    make(chan struct{}),
	}
	go w.run()

	w.log.Info().Str("path", abs).Msg("Watching configuration file")
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.log.Debug().Str("op", event.Op.String()).Msg("Configuration file changed")
				w.dirty.Store(true)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// Changed reports whether the file changed since the previous call.
func (w *Watcher) Changed() bool {
	return w.dirty.Swap(false)
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
