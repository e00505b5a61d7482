package config

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads the config file so preference changes (default
// device, ringtone, auto-open URL) apply without a restart.
type Watcher struct {
	watcher *fsnotify.Watcher
	closed  chan struct{}
}

// Watch starts watching path and calls onChange with each successfully
// loaded new config. Invalid intermediate saves are logged and skipped.
func Watch(path string, onChange func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files on save, which would
	// drop a watch on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, closed: make(chan struct{})}
	go w.loop(path, onChange)
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() {
	select {
	case <-w.closed:
		return
	default:
		close(w.closed)
	}
	w.watcher.Close()
}

func (w *Watcher) loop(path string, onChange func(Config)) {
	base := filepath.Base(path)
	for {
		select {
		case <-w.closed:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				log.Printf("CONFIG: hot reload failed: %v", err)
				continue
			}
			log.Printf("CONFIG: reloaded %s", path)
			onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("CONFIG: watcher: %v", err)
		}
	}
}
