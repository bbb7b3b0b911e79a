package mirror

import (
	"context"
	"dirmirror/internal/model"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type transitions struct {
	mu   sync.Mutex
	seen []Transition
}

func (r *transitions) record(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, t)
}

func (r *transitions) reasons() []Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Observation, 0, len(r.seen))
	for _, t := range r.seen {
		out = append(out, t.Reason)
	}
	return out
}

// breakVolume makes dest impossible to find or create by replacing its
// parent with a regular file.
func breakVolume(t *testing.T, parent string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(parent))
	require.NoError(t, os.WriteFile(parent, []byte("not a dir"), 0644))
}

func restoreVolume(t *testing.T, parent string) {
	t.Helper()
	require.NoError(t, os.Remove(parent))
	require.NoError(t, os.MkdirAll(parent, 0755))
}

func TestMonitorStartsNotReady(t *testing.T) {
	m := NewMonitor(filepath.Join(t.TempDir(), "d"), time.Second)
	require.Equal(t, model.StateNotReady, m.State())
	require.False(t, m.Ready())
}

func TestMonitorConnectsToExistingDir(t *testing.T) {
	rec := &transitions{}
	m := NewMonitor(t.TempDir(), time.Second)
	m.OnChange = rec.record

	require.Equal(t, model.StateReady, m.Check())
	require.Equal(t, model.StateReady, m.Check())
	require.Equal(t, []Observation{ObservedConnected}, rec.reasons())
}

func TestMonitorCreatesMissingRoot(t *testing.T) {
	requires := require.New(t)
	rec := &transitions{}
	dest := filepath.Join(t.TempDir(), "a", "b", "dest")
	m := NewMonitor(dest, time.Second)
	m.OnChange = rec.record

	requires.Equal(model.StateReady, m.Check())
	requires.DirExists(dest)
	requires.Equal([]Observation{ObservedCreated}, rec.reasons())
}

func TestMonitorLosesAndRecovers(t *testing.T) {
	requires := require.New(t)
	rec := &transitions{}
	parent := filepath.Join(t.TempDir(), "volume")
	dest := filepath.Join(parent, "dest")
	requires.NoError(os.MkdirAll(dest, 0755))

	m := NewMonitor(dest, time.Second)
	m.OnChange = rec.record
	requires.Equal(model.StateReady, m.Check())

	breakVolume(t, parent)
	requires.Equal(model.StateNotReady, m.Check())
	requires.Equal(model.StateNotReady, m.Check(), "stays down silently")
	requires.Equal([]Observation{ObservedConnected, ObservedLost}, rec.reasons())

	restoreVolume(t, parent)
	requires.Equal(model.StateReady, m.Check())
	requires.DirExists(dest)
	requires.Equal([]Observation{ObservedConnected, ObservedLost, ObservedCreated}, rec.reasons())
}

func TestMonitorNeverReadyWhileUncreatable(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, nil, 0644))

	rec := &transitions{}
	m := NewMonitor(filepath.Join(parent, "dest"), time.Second)
	m.OnChange = rec.record

	require.Equal(t, model.StateNotReady, m.Check())
	require.Empty(t, rec.reasons())
}

func TestMonitorRunTicks(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "volume")
	require.NoError(t, os.WriteFile(parent, nil, 0644))
	dest := filepath.Join(parent, "dest")

	m := NewMonitor(dest, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	require.False(t, m.Ready())

	restoreVolume(t, parent)
	require.Eventually(t, m.Ready, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
