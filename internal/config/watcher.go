package config

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 500 * time.Millisecond

// ChangeCallback is invoked with the freshly loaded config after the file
// changes on disk.
type ChangeCallback func(*Config)

// Watcher reloads the config file when it changes. The parent directory is
// watched rather than the file itself, since editors typically replace the
// file on save.
type Watcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	callback  ChangeCallback
	cancel    chan struct{}
	closeOnce sync.Once
}

// Watch starts watching the config file at path.
func Watch(path string, callback ChangeCallback) (*Watcher, error) {
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsW.Add(filepath.Dir(path)); err != nil {
		fsW.Close()
		return nil, err
	}

	w := &Watcher{
		path:      path,
		fsWatcher: fsW,
		callback:  callback,
		cancel:    make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.cancel)
		w.fsWatcher.Close()
	})
}

// watchLoop processes fsnotify events with debouncing, so a burst of
// writes from one editor save triggers a single reload.
func (w *Watcher) watchLoop() {
	var timer *time.Timer

	for {
		select {
		case <-w.cancel:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, w.reload)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("config reload failed, keeping previous config: %v", err)
		return
	}
	if w.callback != nil {
		w.callback(cfg)
	}
}
