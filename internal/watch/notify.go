package watch

import (
	"context"
	"dirmirror/internal/logger"
	"dirmirror/internal/model"
	"dirmirror/internal/pipeline"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Notify watches a tree with fsnotify. New directories are added to the
// watch as they appear and their existing contents are reported, since
// entries created before the watch was registered produce no events.
type Notify struct {
	fw       *fsnotify.Watcher
	latency  time.Duration
	eventCh  chan model.ChangeEvent
	doneCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewNotify(latency time.Duration, bufferSize int) (*Notify, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Notify{
		fw:      fw,
		latency: latency,
		eventCh: make(chan model.ChangeEvent, bufferSize),
		doneCh:  make(chan struct{}),
	}, nil
}

func (w *Notify) Start(ctx context.Context, root string) (<-chan model.Batch, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", root)
	}

	if err := w.addRecursive(root, nil); err != nil {
		return nil, err
	}

	w.wg.Add(1)
	go w.run()

	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.doneCh:
		}
	}()

	logger.Log.Info("watcher started",
		zap.String("dir", root))

	return pipeline.Batch(ctx, w.eventCh, w.latency), nil
}

func (w *Notify) Stop() {
	w.stopOnce.Do(func() {
		close(w.doneCh)
		_ = w.fw.Close()
		w.wg.Wait()
	})
}

// addRecursive watches dir and every directory below it. When emit is set,
// every entry found below dir is also reported as created.
func (w *Notify) addRecursive(dir string, emit func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != dir && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		if emit != nil && path != dir {
			emit(path)
		}

		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			logger.Log.Debug("watching directory",
				zap.String("path", path))
		}

		return nil
	})
}

func (w *Notify) run() {
	defer w.wg.Done()
	defer close(w.eventCh)

	for {
		select {
		case <-w.doneCh:
			logger.Log.Info("watcher stopping")
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}

			flags := toFlags(fsEvent.Op)
			if flags == 0 {
				continue
			}

			if !w.send(model.ChangeEvent{Path: fsEvent.Name, Flags: flags, Time: time.Now()}) {
				return
			}

			if fsEvent.Op.Has(fsnotify.Create) {
				w.watchNewDir(fsEvent.Name)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Log.Warn("watcher queue overflowed, some changes were lost; run 'dirmirror sync' to reconcile",
					zap.Error(err))
				continue
			}

			logger.Log.Error("watcher error",
				zap.Error(err))
		}
	}
}

func (w *Notify) watchNewDir(path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return
	}

	emit := func(p string) {
		w.send(model.ChangeEvent{Path: p, Flags: model.FlagCreate, Time: time.Now()})
	}

	if err := w.addRecursive(path, emit); err != nil {
		logger.Log.Warn("failed to watch new directory",
			zap.String("path", path),
			zap.Error(err))
		return
	}

	logger.Log.Debug("added new directory to watch",
		zap.String("path", path))
}

func (w *Notify) send(event model.ChangeEvent) bool {
	select {
	case w.eventCh <- event:
		return true
	case <-w.doneCh:
		return false
	}
}

func toFlags(op fsnotify.Op) model.EventFlags {
	var flags model.EventFlags
	if op.Has(fsnotify.Create) {
		flags |= model.FlagCreate
	}
	if op.Has(fsnotify.Write) {
		flags |= model.FlagWrite
	}
	if op.Has(fsnotify.Remove) {
		flags |= model.FlagRemove
	}
	if op.Has(fsnotify.Rename) {
		flags |= model.FlagRename
	}
	if op.Has(fsnotify.Chmod) {
		flags |= model.FlagChmod
	}
	return flags
}
