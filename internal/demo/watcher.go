package demo

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the corpus when matching files in its directory change.
type Watcher struct {
	dir      string
	pattern  string
	onChange func()
	debounce time.Duration
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher calling onChange after changes settle.
func NewWatcher(dir, pattern string, onChange func(), log zerolog.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		pattern:  pattern,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		log:      log.With().Str("component", "demo-watcher").Logger(),
		done:     make(chan struct{}),
	}
}

// Start begins watching. The directory must exist.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw
	w.log.Info().Str("dir", w.dir).Str("pattern", w.pattern).Msg("demo watcher started")
	go w.loop()
	return nil
}

// Stop closes the watcher and cancels a pending reload.
func (w *Watcher) Stop() {
	if w.watcher == nil {
		return
	}
	w.watcher.Close()
	<-w.done
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ok, _ := filepath.Match(w.pattern, filepath.Base(event.Name)); !ok {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// schedule coalesces bursts of events into one reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()
		w.onChange()
	})
}
