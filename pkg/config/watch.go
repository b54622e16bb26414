package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file whenever it is written
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config)
	onError  func(error)
	done     chan struct{}
}

// Watch starts watching filePath. onChange receives every successfully
// parsed config; onError (may be nil) receives parse and watch errors.
// The directory is watched rather than the file so editors that replace the
// file on save keep working.
func Watch(filePath string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(filePath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filePath, err)
	}

	w := &Watcher{
		watcher:  fw,
		path:     filepath.Clean(filePath),
		onChange: onChange,
		onError:  onError,
		done:     make(chan struct{}),
	}
	go w.loop()

	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadConfig(w.path)
			if err != nil {
				w.report(err)
				continue
			}
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

// Close stops the watcher and waits for its goroutine to exit
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
