// Package watch delivers batches of change events for a directory tree.
package watch

import (
	"context"
	"dirmirror/internal/model"
)

// Source reports filesystem activity under a root as batches. The channel is
// closed once the source stops, either through Stop or ctx cancellation.
type Source interface {
	Start(ctx context.Context, root string) (<-chan model.Batch, error)
	Stop()
}
