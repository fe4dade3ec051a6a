// Package inference - Inference engine interface and input preparation.
package inference

import (
	"context"

	"gorgonia.org/tensor"
)

// Engine runs a segmentation model on a prepared input tensor.
//
// Input is a [1,D,D,3] float32 tensor of raw 0..255 RGB values. Output is a
// D×D grid of per-pixel predictions, shaped [D,D], [1,D,D] or [1,D,D,1].
// Implementations are not required to be safe for concurrent use; callers
// serialize access.
type Engine interface {
	Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)
	Close() error
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)

// Infer calls f.
func (f EngineFunc) Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	return f(ctx, input)
}

// Close is a no-op.
func (f EngineFunc) Close() error { return nil }
