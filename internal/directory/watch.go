package directory

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads the specialist catalogue when its YAML file
// changes on disk. Reload failures keep the previous catalogue.
type Watcher struct {
	dir     *Directory
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching the catalogue file backing dir. The returned
// Watcher must be closed when no longer needed.
func Watch(dir *Directory, path string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the parent directory: editors often replace files rather
	// than writing them in place.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{
		dir:     dir,
		path:    path,
		watcher: fsWatcher,
		done:    make(chan struct{}),
	}
	go w.loop()

	return w, nil
}

// loop processes filesystem events until Close is called.
func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[directory] watcher error: %v", err)
		}
	}
}

// reload re-reads the catalogue file and swaps it into the directory.
func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		log.Printf("[directory] warning: reload failed, keeping previous catalogue: %v", err)
		return
	}

	profiles, err := parseCatalogue(data)
	if err != nil {
		log.Printf("[directory] warning: invalid catalogue, keeping previous: %v", err)
		return
	}

	fresh, err := New(profiles)
	if err != nil {
		log.Printf("[directory] warning: invalid catalogue, keeping previous: %v", err)
		return
	}

	w.dir.replace(fresh.profiles)
	log.Printf("[directory] reloaded catalogue from %s (%d specialists)", w.path, len(profiles))
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
