package pipeline

import (
	"context"
	"dirmirror/internal/model"
	"time"
)

// Batch groups events arriving within latency of the first pending one into
// a single model.Batch. Repeated events for one path are merged into the
// first occurrence with their flags OR-ed together, so a batch holds each
// path once, in first-seen order. The output is flushed and closed when
// inCh closes. Once ctx is done pending events are discarded and the output
// is closed without waiting for a reader.
func Batch(ctx context.Context, inCh <-chan model.ChangeEvent, latency time.Duration) <-chan model.Batch {
	outCh := make(chan model.Batch, cap(inCh)/8+1)

	go func() {
		defer close(outCh)

		var (
			pending model.Batch
			index   = make(map[string]int)
			timer   *time.Timer
			timerC  <-chan time.Time
		)

		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		flush := func() bool {
			if len(pending) > 0 {
				select {
				case outCh <- pending:
				case <-ctx.Done():
					return false
				}
			}
			pending = nil
			index = make(map[string]int)
			timerC = nil
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-inCh:
				if !ok {
					flush()
					return
				}

				if i, seen := index[event.Path]; seen {
					pending[i].Flags |= event.Flags
					pending[i].Time = event.Time
					continue
				}

				index[event.Path] = len(pending)
				pending = append(pending, event)

				if timerC == nil {
					if timer == nil {
						timer = time.NewTimer(latency)
					} else {
						timer.Reset(latency)
					}
					timerC = timer.C
				}

			case <-timerC:
				if !flush() {
					return
				}
			}
		}
	}()

	return outCh
}
