package watch

import (
	"context"
	"dirmirror/internal/logger"
	"dirmirror/internal/model"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type stamp struct {
	mode    fs.FileMode
	size    int64
	modTime time.Time
}

// Poller detects changes by rescanning the tree every interval and diffing
// it against the previous scan. It serves filesystems where change
// notification is unavailable (network shares, some FUSE mounts).
type Poller struct {
	interval time.Duration
	doneCh   chan struct{}
	stopOnce sync.Once
}

const defaultScanInterval = time.Second

func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultScanInterval
	}

	return &Poller{
		interval: interval,
		doneCh:   make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context, root string) (<-chan model.Batch, error) {
	prev, err := scan(root)
	if err != nil {
		return nil, err
	}

	outCh := make(chan model.Batch, 1)

	go func() {
		defer close(outCh)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.doneCh:
				return
			case <-ticker.C:
				next, err := scan(root)
				if err != nil {
					logger.Log.Warn("scan failed",
						zap.String("root", root),
						zap.Error(err))
					continue
				}

				batch := diff(prev, next, time.Now())
				prev = next
				if len(batch) == 0 {
					continue
				}

				select {
				case outCh <- batch:
				case <-ctx.Done():
					return
				case <-p.doneCh:
					return
				}
			}
		}
	}()

	logger.Log.Info("poller started",
		zap.String("dir", root),
		zap.Duration("interval", p.interval))

	return outCh, nil
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.doneCh)
	})
}

func scan(root string) (map[string]stamp, error) {
	entries := make(map[string]stamp)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Vanished or unreadable mid-walk; the next scan settles it.
			return nil
		}

		if path == root {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		entries[path] = stamp{mode: info.Mode(), size: info.Size(), modTime: info.ModTime()}
		return nil
	})

	return entries, err
}

func diff(prev, next map[string]stamp, now time.Time) model.Batch {
	var batch model.Batch

	for path, cur := range next {
		old, ok := prev[path]
		switch {
		case !ok:
			batch = append(batch, model.ChangeEvent{Path: path, Flags: model.FlagCreate, Time: now})
		case old.mode != cur.mode:
			batch = append(batch, model.ChangeEvent{Path: path, Flags: model.FlagChmod, Time: now})
		case old.size != cur.size || !old.modTime.Equal(cur.modTime):
			batch = append(batch, model.ChangeEvent{Path: path, Flags: model.FlagWrite, Time: now})
		}
	}

	for path := range prev {
		if _, ok := next[path]; !ok {
			batch = append(batch, model.ChangeEvent{Path: path, Flags: model.FlagRemove, Time: now})
		}
	}

	// Parents sort before their children.
	sort.Slice(batch, func(i, j int) bool {
		return batch[i].Path < batch[j].Path
	})

	return batch
}
