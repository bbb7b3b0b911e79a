package mirror

import (
	"context"
	"dirmirror/internal/logger"
	"dirmirror/internal/model"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 2 * time.Second
	destRootPerm        = 0755
)

// Observation names why the destination state changed.
type Observation string

const (
	ObservedConnected Observation = "connected"
	ObservedCreated   Observation = "created"
	ObservedLost      Observation = "lost"
)

// Transition is reported to Monitor.OnChange.
type Transition struct {
	From   model.DestinationState
	To     model.DestinationState
	Reason Observation
	Err    error
	At     time.Time
}

// Monitor polls the destination root and keeps a Ready/NotReady flag that
// reconciliation checks before touching the destination. A missing root is
// recreated; a root that can be neither found nor created marks the
// destination as lost until a later check succeeds.
type Monitor struct {
	root     string
	interval time.Duration

	// OnChange, when set, is called after every state transition from the
	// checking goroutine.
	OnChange func(Transition)

	checkMu sync.Mutex
	state   atomic.Int32
}

func NewMonitor(root string, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Monitor{
		root:     root,
		interval: interval,
	}
}

func (m *Monitor) State() model.DestinationState {
	return model.DestinationState(m.state.Load())
}

func (m *Monitor) Ready() bool {
	return m.State() == model.StateReady
}

// Run checks immediately and then once per interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Check()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check performs one availability probe and returns the resulting state.
func (m *Monitor) Check() model.DestinationState {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	prev := m.State()

	if info, err := os.Stat(m.root); err == nil && info.IsDir() {
		if prev == model.StateNotReady {
			m.transition(prev, model.StateReady, ObservedConnected, nil)
		}
		return model.StateReady
	}

	err := os.MkdirAll(m.root, destRootPerm)
	if err == nil {
		logger.Log.Info("destination created",
			zap.String("dest", m.root))
		if prev == model.StateNotReady {
			m.transition(prev, model.StateReady, ObservedCreated, nil)
		}
		return model.StateReady
	}

	if prev == model.StateReady {
		m.transition(prev, model.StateNotReady, ObservedLost, err)
	}

	return model.StateNotReady
}

func (m *Monitor) transition(from, to model.DestinationState, reason Observation, err error) {
	m.state.Store(int32(to))

	fields := []zap.Field{
		zap.String("dest", m.root),
		zap.String("state", to.String()),
		zap.String("reason", string(reason)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		logger.Log.Warn("destination unavailable", fields...)
	} else {
		logger.Log.Info("destination ready", fields...)
	}

	if m.OnChange != nil {
		m.OnChange(Transition{From: from, To: to, Reason: reason, Err: err, At: time.Now()})
	}
}
