package library

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// #region watch
// Watch reloads the library whenever a chronicle file in its directory is
// created, written, removed or renamed. Bursts of events within debounce are
// coalesced into one reload. Watch blocks until ctx is done and returns nil
// then; a failed reload is logged and the previous documents stay loaded.
// onReload, when non-nil, is called after every reload attempt.
func (l *Library) Watch(ctx context.Context, debounce time.Duration, onReload func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}
	defer w.Close()
	if err := w.Add(l.dir); err != nil {
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}
	log.Printf("[WATCH] watching %s", l.dir)

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WATCH] watcher error: %v", err)

		case <-timer.C:
			err := l.Reload()
			if err != nil {
				log.Printf("[WATCH] reload %s failed, keeping previous chronicles: %v", l.dir, err)
			} else {
				log.Printf("[WATCH] reloaded %d chronicles from %s", len(l.Observers()), l.dir)
			}
			if onReload != nil {
				onReload(err)
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !isChronicleFile(filepath.Base(ev.Name)) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// #endregion watch
