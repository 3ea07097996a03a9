// This file implements a file system watcher for the artifacts
// directory. It uses OS-level file system events to detect dropped or
// removed files and triggers the sync job.

package artifacts

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/podmill/podmill-go/internal/jobs"
)

// WatcherService watches the artifacts directory for file system
// changes and schedules an artifact sync when files are added,
// modified, or deleted.
type WatcherService struct {
	ctx           jobs.JobContext
	watcher       *fsnotify.Watcher
	pending       bool
	mu            sync.Mutex
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewWatcherService creates a new file system watcher service.
func NewWatcherService(ctx jobs.JobContext) *WatcherService {
	return &WatcherService{
		ctx:           ctx,
		debounceDelay: 2 * time.Second, // Wait 2 seconds after last change before syncing
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching the artifacts directory for changes.
func (w *WatcherService) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	artifactsPath := w.ctx.Config().Artifacts.Path
	if err := watcher.Add(artifactsPath); err != nil {
		watcher.Close()
		return err
	}
	// The inbox gets its own watch so dropped documents are noticed too.
	inbox := InboxPath(artifactsPath)
	if info, err := os.Stat(inbox); err == nil && info.IsDir() {
		if err := watcher.Add(inbox); err != nil {
			log.Printf("Could not watch inbox directory: %v", err)
		}
	}

	log.Printf("File watcher started for artifacts: %s", artifactsPath)

	// Start the event processing goroutine
	go w.processEvents()

	return nil
}

// Stop stops the file watcher service.
func (w *WatcherService) Stop() error {
	close(w.stopChan)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// processEvents processes file system events and schedules syncs.
func (w *WatcherService) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

// handleEvent processes a single file system event.
func (w *WatcherService) handleEvent(event fsnotify.Event) {
	// Ignore Chmod events (these are often triggered by opening folders,
	// reading files, etc.) to prevent false triggers.
	if event.Op == fsnotify.Chmod {
		return
	}

	hasRelevantOp := (event.Op&fsnotify.Create == fsnotify.Create) ||
		(event.Op&fsnotify.Write == fsnotify.Write) ||
		(event.Op&fsnotify.Remove == fsnotify.Remove)

	if !hasRelevantOp {
		return
	}

	if !w.isRelevantFile(event.Name) {
		return
	}

	w.mu.Lock()
	w.pending = true
	// Reset debounce timer
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerSync)
	w.mu.Unlock()
}

// isRelevantFile checks whether a changed path is an artifact or inbox
// file type worth reacting to.
func (w *WatcherService) isRelevantFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".wav", ".txt", ".md", ".pdf", ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

// triggerSync submits the artifact-sync job after the debounce window.
func (w *WatcherService) triggerSync() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	log.Println("File watcher detected artifact changes, triggering sync")

	// Submit through the manager so manual runs and watcher runs cannot
	// overlap.
	if err := w.ctx.JobManager().RunJob("artifact-sync", w.ctx); err != nil {
		log.Printf("Watcher could not start artifact sync: %v", err)
	}
}
