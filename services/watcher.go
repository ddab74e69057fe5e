package services

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DocumentWatcher watches the document directory and triggers an index
// rebuild after any mutation of a supported file. Bursts of events (an
// upload writes many times) are coalesced with a debounce timer so one
// mutation means one rebuild.
type DocumentWatcher struct {
	watcher  *fsnotify.Watcher
	store    *DirectoryStore
	index    *IndexManager
	dir      string
	debounce time.Duration
}

// NewDocumentWatcher creates a watcher over dir. debounce defaults to 2s
// when not positive.
func NewDocumentWatcher(dir string, store *DirectoryStore, index *IndexManager, debounce time.Duration) (*DocumentWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	return &DocumentWatcher{
		watcher:  w,
		store:    store,
		index:    index,
		dir:      dir,
		debounce: debounce,
	}, nil
}

// Watch blocks until ctx is cancelled, rebuilding the index after each
// debounced burst of document changes.
func (dw *DocumentWatcher) Watch(ctx context.Context) error {
	if err := dw.watcher.Add(dw.dir); err != nil {
		return err
	}

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return nil
			}
			if !dw.relevant(event) {
				continue
			}

			log.Printf("Document change detected: %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(dw.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(dw.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if _, err := dw.index.Rebuild(ctx); err != nil {
				log.Printf("Index rebuild after document change failed: %v", err)
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Document watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (dw *DocumentWatcher) Close() error {
	return dw.watcher.Close()
}

func (dw *DocumentWatcher) relevant(event fsnotify.Event) bool {
	if !dw.store.Supports(event.Name) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
