package pipeline

import (
	"context"
	"dirmirror/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoiseFilterAllow(t *testing.T) {
	f := NewNoiseFilter("/s", ".DS_Store", []string{"*.swp", ".git"})

	tests := []struct {
		path string
		want bool
	}{
		{path: "/s", want: false},
		{path: "/s/", want: false},
		{path: "/s/a.txt", want: true},
		{path: "/s/.DS_Store", want: false},
		{path: "/s/dir/.DS_Store", want: false},
		{path: "/s/.DS_Store_dir/x", want: false},
		{path: "/s/notes.txt.swp", want: false},
		{path: "/s/repo/.git/HEAD", want: false},
		{path: "/s/repo/.github/workflow.yml", want: true},
		{path: "/s/sub/dir/file", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, f.Allow(tt.path))
		})
	}
}

func TestNoiseFilterMarkerOnlyInRelativePart(t *testing.T) {
	f := NewNoiseFilter("/Volumes/.DS_Store-share", ".DS_Store", nil)
	require.True(t, f.Allow("/Volumes/.DS_Store-share/a.txt"))
	require.False(t, f.Allow("/Volumes/.DS_Store-share/b/.DS_Store"))
}

func TestBatchCoalescesWithinLatency(t *testing.T) {
	requires := require.New(t)
	in := make(chan model.ChangeEvent, 16)
	out := Batch(context.Background(), in, 50*time.Millisecond)

	in <- model.ChangeEvent{Path: "/s/a", Flags: model.FlagCreate}
	in <- model.ChangeEvent{Path: "/s/b", Flags: model.FlagCreate}
	in <- model.ChangeEvent{Path: "/s/a", Flags: model.FlagWrite}

	select {
	case batch := <-out:
		requires.Len(batch, 2)
		requires.Equal("/s/a", batch[0].Path)
		requires.Equal(model.FlagCreate|model.FlagWrite, batch[0].Flags)
		requires.Equal("/s/b", batch[1].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for batch")
	}

	in <- model.ChangeEvent{Path: "/s/c", Flags: model.FlagRemove}

	select {
	case batch := <-out:
		requires.Len(batch, 1)
		requires.Equal("/s/c", batch[0].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for second batch")
	}

	close(in)
	_, ok := <-out
	requires.False(ok)
}

func TestBatchFlushesOnClose(t *testing.T) {
	in := make(chan model.ChangeEvent, 4)
	out := Batch(context.Background(), in, time.Hour)

	in <- model.ChangeEvent{Path: "/s/a"}
	close(in)

	select {
	case batch, ok := <-out:
		require.True(t, ok)
		require.Len(t, batch, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("pending events were not flushed on close")
	}
}

func TestBatchStopsOnCancelWithoutReader(t *testing.T) {
	requires := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan model.ChangeEvent)
	out := Batch(ctx, in, 10*time.Millisecond)

	// Nobody reads out: the first batch fills its buffer, the second blocks.
	in <- model.ChangeEvent{Path: "/s/a"}
	time.Sleep(50 * time.Millisecond)
	in <- model.ChangeEvent{Path: "/s/b"}
	time.Sleep(50 * time.Millisecond)

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			requires.FailNow("batching goroutine did not exit after cancel")
		}
	}
}
