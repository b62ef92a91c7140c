package github

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ghc-desk/ghc/internal/logging"
)

const watchDebounce = 100 * time.Millisecond

// Watcher reports changes to the .env file, for example a token written by
// another ghc process. The parent directory is watched since atomic writes
// replace the file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string)
	logger   *logging.Logger

	mu       sync.Mutex
	debounce *time.Timer
	stop     chan struct{}
	done     chan struct{}
}

// Watch starts watching path. onChange runs once per burst of events.
func Watch(path string, onChange func(path string), logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger.WithComponent("token_watch"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleNotify()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("token file watch error", "error", err)
		}
	}
}

func (w *Watcher) scheduleNotify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(watchDebounce, func() {
		w.onChange(w.path)
	})
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	err := w.watcher.Close()
	<-w.done
	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
	return err
}
