package ingest

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// DropWatcher watches a directory for transcript files and ingests them
// automatically. A file named "Alice.txt" is ingested for participant
// "Alice"; "Mom Chat__Mom.txt" uses "Mom Chat" as the persona name and
// "Mom" as the participant.
type DropWatcher struct {
	dir      string
	pipeline *Pipeline
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewDropWatcher creates a watcher for dir.
func NewDropWatcher(dir string, pipeline *Pipeline) *DropWatcher {
	return &DropWatcher{
		dir:      dir,
		pipeline: pipeline,
		done:     make(chan struct{}),
	}
}

// Start begins watching. Existing transcript files are drained first, then
// new ones are picked up as they appear. Call Stop to clean up.
func (dw *DropWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(dw.dir, 0o700); err != nil {
		return err
	}

	dw.drainExisting(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dw.dir); err != nil {
		_ = w.Close()
		return err
	}
	dw.watcher = w

	go dw.loop(ctx)
	log.Printf("ingest: watching %s for transcript drops", dw.dir)
	return nil
}

// Stop shuts down the watcher.
func (dw *DropWatcher) Stop() {
	if dw.watcher != nil {
		_ = dw.watcher.Close()
	}
	<-dw.done
}

func (dw *DropWatcher) loop(ctx context.Context) {
	defer close(dw.done)
	for {
		select {
		case evt, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Create != 0 && strings.HasSuffix(evt.Name, ".txt") {
				dw.processFile(ctx, evt.Name)
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ingest: watcher error: %v", err)
		}
	}
}

func (dw *DropWatcher) drainExisting(ctx context.Context) {
	entries, err := os.ReadDir(dw.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
			dw.processFile(ctx, filepath.Join(dw.dir, entry.Name()))
		}
	}
}

func (dw *DropWatcher) processFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // file already consumed or still being written
	}
	_ = os.Remove(path)

	personName, participant := splitDropName(filepath.Base(path))
	sessionID, uploadID, err := dw.pipeline.Start(ctx, string(data), personName, participant)
	if err != nil {
		log.Printf("ingest: dropped file %s rejected: %v", filepath.Base(path), err)
		return
	}
	log.Printf("ingest: dropped file %s started upload %s (session %s)", filepath.Base(path), uploadID, sessionID)
}

// splitDropName extracts (personName, participant) from a transcript file
// name. "Name__Participant.txt" splits on the double underscore; otherwise
// both default to the base name.
func splitDropName(base string) (string, string) {
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if idx := strings.Index(name, "__"); idx > 0 {
		return name[:idx], name[idx+2:]
	}
	return name, name
}
