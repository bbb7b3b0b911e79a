package mirror

import (
	"context"
	"dirmirror/internal/logger"
	"dirmirror/internal/model"
	"dirmirror/internal/watch"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrSourceClosed = errors.New("watch source closed unexpectedly")

// Recorder persists decisions, e.g. into the history database.
type Recorder interface {
	Save(decision model.SyncDecision) error
}

type SessionOptions struct {
	Source       watch.Source
	Ops          Ops
	Recorder     Recorder
	PollInterval time.Duration

	// InitialSync runs FullSync once the source is watching, so changes
	// made during the walk are still observed.
	InitialSync bool
}

// Session wires a watch source, the availability monitor and the reconciler
// together for one source/destination pair.
type Session struct {
	cfg         Config
	source      watch.Source
	recorder    Recorder
	initialSync bool
	monitor     *Monitor
	reconciler  *Reconciler

	mu    sync.RWMutex
	stats model.SessionSnapshot
}

func NewSession(cfg Config, opts SessionOptions) (*Session, error) {
	if opts.Ops == nil {
		return nil, fmt.Errorf("session needs copy/delete ops")
	}

	s := &Session{
		cfg:         cfg,
		source:      opts.Source,
		recorder:    opts.Recorder,
		initialSync: opts.InitialSync,
		monitor:     NewMonitor(cfg.DestRoot, opts.PollInterval),
		stats: model.SessionSnapshot{
			Source:    cfg.SourceRoot,
			Dest:      cfg.DestRoot,
			Policy:    cfg.Policy,
			StartedAt: time.Now(),
		},
	}
	s.monitor.OnChange = s.onStateChange
	s.reconciler = NewReconciler(cfg, opts.Ops, s.monitor)

	return s, nil
}

func (s *Session) Monitor() *Monitor {
	return s.monitor
}

// Run watches until ctx is cancelled. It returns an error when the source
// cannot be started or stops on its own.
func (s *Session) Run(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("session has no watch source")
	}

	// Settle readiness before the first batch can arrive.
	s.monitor.Check()

	batches, err := s.source.Start(ctx, s.cfg.SourceRoot)
	if err != nil {
		return fmt.Errorf("failed to start watch: %w", err)
	}
	defer s.source.Stop()

	logger.Log.Info("mirroring",
		zap.String("src", s.cfg.SourceRoot),
		zap.String("dst", s.cfg.DestRoot),
		zap.String("mode", string(s.cfg.Policy)),
		zap.String("dest_state", s.monitor.State().String()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.monitor.Run(gctx)
	})

	if s.initialSync {
		g.Go(func() error {
			if _, err := s.FullSync(gctx); err != nil && gctx.Err() == nil {
				logger.Log.Warn("initial sync skipped",
					zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case batch, ok := <-batches:
				if !ok {
					if ctx.Err() != nil {
						return nil
					}
					return ErrSourceClosed
				}
				s.HandleBatch(batch)
			}
		}
	})

	return g.Wait()
}

// HandleBatch reconciles one batch and records the outcome.
func (s *Session) HandleBatch(batch model.Batch) []model.SyncDecision {
	if !s.monitor.Ready() {
		s.mu.Lock()
		s.stats.Dropped++
		s.mu.Unlock()

		logger.Log.Debug("destination not ready, batch dropped",
			zap.Int("events", len(batch)))
		return nil
	}

	decisions := s.reconciler.Reconcile(batch)
	s.record(decisions)
	return decisions
}

// FullSync walks the source tree and reconciles every entry. Under the
// mirror policy it then prunes destination entries that no longer exist in
// the source. It is an explicit, one-shot action; nothing is replayed.
func (s *Session) FullSync(ctx context.Context) ([]model.SyncDecision, error) {
	if s.monitor.Check() != model.StateReady {
		return nil, fmt.Errorf("destination %s is not available", s.cfg.DestRoot)
	}

	var batch model.Batch
	now := time.Now()

	err := filepath.WalkDir(s.cfg.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			if path != s.cfg.SourceRoot && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		if path != s.cfg.SourceRoot {
			batch = append(batch, model.ChangeEvent{Path: path, Flags: model.FlagCreate, Time: now})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source: %w", err)
	}

	if s.cfg.Policy == model.PolicyMirror {
		stale, err := s.staleDestEntries(ctx, now)
		if err != nil {
			return nil, err
		}
		batch = append(batch, stale...)
	}

	logger.Log.Info("starting full sync",
		zap.String("src", s.cfg.SourceRoot),
		zap.String("dst", s.cfg.DestRoot),
		zap.Int("entries", len(batch)))

	return s.HandleBatch(batch), nil
}

// staleDestEntries returns, as source-side events, every destination entry
// whose source counterpart is missing. Subtrees are reported once at their
// top since the delete is recursive.
func (s *Session) staleDestEntries(ctx context.Context, now time.Time) (model.Batch, error) {
	translator := s.reconciler.translator
	var stale model.Batch

	err := filepath.WalkDir(s.cfg.DestRoot, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			if path == s.cfg.DestRoot {
				return err
			}
			return nil
		}
		if path == s.cfg.DestRoot {
			return nil
		}

		src, err := translator.Reverse(path)
		if err != nil {
			return nil
		}

		if _, err := os.Lstat(src); err != nil && vanished(err) {
			stale = append(stale, model.ChangeEvent{Path: src, Flags: model.FlagRemove, Time: now})
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk destination: %w", err)
	}

	return stale, nil
}

func (s *Session) Snapshot() model.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.stats
	snap.State = s.monitor.State()
	return snap
}

func (s *Session) record(decisions []model.SyncDecision) {
	s.mu.Lock()
	s.stats.Batches++
	for _, d := range decisions {
		switch {
		case d.Err != nil:
			s.stats.Failed++
		case d.Kind == model.DecisionCopy:
			s.stats.Copied++
		case d.Kind == model.DecisionDelete:
			s.stats.Deleted++
		default:
			s.stats.Skipped++
		}
	}
	if len(decisions) > 0 {
		s.stats.LastSync = new(time.Now())
	}
	s.mu.Unlock()

	if s.recorder == nil {
		return
	}

	for _, d := range decisions {
		if err := s.recorder.Save(d); err != nil {
			logger.Log.Warn("failed to save history",
				zap.Error(err))
		}
	}
}

func (s *Session) onStateChange(t Transition) {
	s.mu.Lock()
	s.stats.LastChanged = new(t.At)
	s.mu.Unlock()
}
