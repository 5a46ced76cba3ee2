package config

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watcher warns when the config file changes underneath a running
// daemon. It never reloads: boiler.Configuration is immutable for the
// life of the process (spec.md §3), so the only correct response to an
// edit is an operator-visible nudge to restart.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchFile starts watching path, logging a warning on every write or
// rename event. Close stops the watch.
func WatchFile(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	go w.loop(path)
	return w, nil
}

func (w *Watcher) loop(path string) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				log.Printf("config: %s changed on disk; restart boilerd to apply it (configuration is immutable for the life of the process)", path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)
		}
	}
}

// Close stops the watch.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
