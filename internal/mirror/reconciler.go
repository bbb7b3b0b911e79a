package mirror

import (
	"dirmirror/internal/logger"
	"dirmirror/internal/model"
	"dirmirror/internal/pipeline"
	"errors"
	"io/fs"
	"os"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Ops are the destination-side primitives the reconciler drives.
type Ops interface {
	Copy(src, dst string) error
	Remove(path string) error
}

type StateReader interface {
	State() model.DestinationState
}

// Reconciler turns change events into copies and deletes. Each decision is
// re-derived from the current state of the source, never from event flags,
// so duplicate or reordered events converge to the same result.
type Reconciler struct {
	cfg        Config
	filter     *pipeline.NoiseFilter
	translator *Translator
	guard      Guard
	ops        Ops
	state      StateReader

	// One batch at a time keeps per-path ordering across batches.
	mu sync.Mutex
}

func NewReconciler(cfg Config, ops Ops, state StateReader) *Reconciler {
	return &Reconciler{
		cfg:        cfg,
		filter:     pipeline.NewNoiseFilter(cfg.SourceRoot, cfg.Marker, cfg.IgnoreList),
		translator: NewTranslator(cfg.SourceRoot, cfg.DestRoot),
		guard:      NewGuard(cfg),
		ops:        ops,
		state:      state,
	}
}

// Reconcile applies a batch and returns one or more decisions per surviving
// event. A batch arriving while the destination is not ready is dropped
// whole and nil is returned.
func (r *Reconciler) Reconcile(batch model.Batch) []model.SyncDecision {
	if r.state.State() != model.StateReady {
		logger.Log.Debug("destination not ready, dropping batch",
			zap.Int("events", len(batch)))
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var decisions []model.SyncDecision
	for _, event := range batch {
		if !r.filter.Allow(event.Path) {
			logger.Log.Debug("filtered",
				zap.String("path", event.Path))
			continue
		}

		dst, err := r.translator.Translate(event.Path)
		if err != nil {
			logger.Log.Warn("malformed event, skipping",
				zap.String("path", event.Path),
				zap.Error(err))
			continue
		}

		decisions = append(decisions, r.reconcile(event.Path, dst)...)
	}

	return decisions
}

func (r *Reconciler) reconcile(src, dst string) []model.SyncDecision {
	info, err := os.Lstat(src)
	if err != nil {
		if vanished(err) {
			return []model.SyncDecision{r.absent(dst)}
		}

		d := r.decision(model.DecisionCopy, src, dst, err)
		r.report(d)
		return []model.SyncDecision{d}
	}

	copyErr := r.ops.Copy(src, dst)
	if copyErr != nil {
		if _, err := os.Lstat(src); err != nil && vanished(err) {
			return []model.SyncDecision{r.absent(dst)}
		}
	}

	d := r.decision(model.DecisionCopy, src, dst, copyErr)
	r.report(d)
	decisions := []model.SyncDecision{d}

	// Directories stay behind in move mode; their children move one by one.
	if copyErr == nil && r.cfg.Policy == model.PolicyMove && !info.IsDir() {
		decisions = append(decisions, r.delete(src))
	}

	return decisions
}

func (r *Reconciler) absent(dst string) model.SyncDecision {
	if r.cfg.Policy == model.PolicyMirror {
		return r.delete(dst)
	}

	d := r.decision(model.DecisionSkipDeleted, "", dst, nil)
	r.report(d)
	return d
}

func (r *Reconciler) delete(target string) model.SyncDecision {
	if !r.guard.SafeDeleteTarget(target) {
		d := r.decision(model.DecisionSkipSafety, "", target, nil)
		r.report(d)
		return d
	}

	d := r.decision(model.DecisionDelete, "", target, r.ops.Remove(target))
	r.report(d)
	return d
}

func (r *Reconciler) decision(kind model.DecisionKind, src, target string, err error) model.SyncDecision {
	return model.SyncDecision{Kind: kind, Src: src, Target: target, Err: err, At: time.Now()}
}

func (r *Reconciler) report(d model.SyncDecision) {
	fields := []zap.Field{zap.String("target", d.Target)}
	if d.Src != "" {
		fields = append(fields, zap.String("src", d.Src))
	}

	switch {
	case d.Kind == model.DecisionSkipSafety:
		logger.Log.Error("refusing to delete a root directory", fields...)
		return
	case d.Err != nil:
		fields = append(fields, zap.String("decision", string(d.Kind)), zap.Error(d.Err))
		logger.Log.Error("sync failed", fields...)
		return
	}

	level := zapcore.DebugLevel
	if r.cfg.Verbose {
		level = zapcore.InfoLevel
	}

	switch d.Kind {
	case model.DecisionCopy:
		logger.Log.Log(level, "[+] copied", fields...)
	case model.DecisionDelete:
		logger.Log.Log(level, "[-] deleted", fields...)
	case model.DecisionSkipDeleted:
		logger.Log.Log(level, "[skip delete] source deleted", fields...)
	}
}

// vanished reports whether a stat error means the path is simply gone,
// including the case where a parent was replaced by a file.
func vanished(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
