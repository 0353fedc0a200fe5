// file: internal/ingest/watcher.go
// version: 1.0.0
// guid: 8d9e0f1a-2b3c-4d5e-6f7a-8b9c0d1e2f3a

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gofleetadvisor/fleetdocs/internal/dockey"
	"github.com/gofleetadvisor/fleetdocs/internal/metrics"
	"github.com/gofleetadvisor/fleetdocs/internal/storage"
)

// DefaultSettle is how long a dropped file must sit unchanged before it is
// picked up. Copies into the drop folder are not atomic.
const DefaultSettle = 2 * time.Second

// Watcher backfills storage from a local drop folder: operators copy
// already-named PDFs in, the watcher uploads them. Filenames must decode;
// anything else is left in place and logged.
type Watcher struct {
	bucket  storage.Bucket
	rootDir string
	settle  time.Duration

	fsWatcher *fsnotify.Watcher
	stop      chan struct{}
	stopped   chan struct{}
	mu        sync.Mutex
	pending   map[string]*time.Timer
	running   bool
}

// NewWatcher creates a drop-folder watcher over rootDir. Pass 0 for settle
// to use DefaultSettle.
func NewWatcher(bucket storage.Bucket, rootDir string, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		bucket:  bucket,
		rootDir: rootDir,
		settle:  settle,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}
}

// Start backfills existing files, then begins watching. Safe to call once.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.Backfill(ctx); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsWatcher = fsw
	if err := fsw.Add(w.rootDir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", w.rootDir, err)
	}

	go w.eventLoop(ctx)
	log.Printf("[INFO] watching drop folder %s", w.rootDir)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	close(w.stop)
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	<-w.stopped
}

// Backfill uploads every decodable PDF already sitting in the drop folder.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := os.ReadDir(w.rootDir)
	if err != nil {
		return fmt.Errorf("read drop folder: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.handleFile(ctx, filepath.Join(w.rootDir, entry.Name()))
	}
	return nil
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.stopped)

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.scheduleFile(ctx, event.Name)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[ERROR] drop watcher: %v", err)
		}
	}
}

// scheduleFile (re)arms a settle timer for one path, so a file being
// copied in is processed once, after writes stop.
func (w *Watcher) scheduleFile(ctx context.Context, path string) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.handleFile(ctx, path)
	})
}

// handleFile uploads one dropped PDF. The filename is the contract: it
// must decode to a document key, and its inspection flag picks the bucket.
func (w *Watcher) handleFile(ctx context.Context, path string) {
	name := filepath.Base(path)
	if strings.ToLower(filepath.Ext(name)) != ".pdf" {
		return
	}

	key, err := dockey.Decode(name)
	if err != nil {
		var decodeErr *dockey.DecodeError
		if errors.As(err, &decodeErr) {
			log.Printf("[WARN] drop folder: %s does not follow the naming scheme, leaving in place", name)
			return
		}
		log.Printf("[ERROR] drop folder: decode %s: %v", name, err)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[ERROR] drop folder: read %s: %v", path, err)
		return
	}

	bucket := storage.BucketInvoice
	if key.Inspection {
		bucket = storage.BucketDOT
	}

	exists, err := w.bucket.Exists(ctx, bucket, name)
	if err != nil {
		log.Printf("[ERROR] drop folder: stat %s: %v", name, err)
		return
	}
	if exists {
		log.Printf("[DEBUG] drop folder: %s already stored, removing local copy", name)
		w.remove(path)
		return
	}

	if err := w.bucket.Upload(ctx, bucket, name, data); err != nil {
		log.Printf("[ERROR] drop folder: upload %s: %v", name, err)
		return
	}
	metrics.IncUpload(bucket)
	log.Printf("[INFO] drop folder: filed %s/%s", bucket, name)
	w.remove(path)
}

func (w *Watcher) remove(path string) {
	if err := os.Remove(path); err != nil {
		log.Printf("[WARN] drop folder: cannot remove %s: %v", path, err)
	}
}
