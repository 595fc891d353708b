package batch

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// This file adapts batches and the Batcher to gomlx. Batches stay as flat
// contiguous float32 buffers plus shape metadata; converting to gomlx
// tensors is a small, well-defined step done through nested slices so the
// conversion does not depend on any particular gomlx constructor beyond
// tensors.FromAnyValue.

// Tensors converts the batch into a data tensor and a labels tensor. The
// labels tensor always has shape (batch, 1). Batches of rank 2 (flattened)
// and rank 3 are supported.
func (b *Batch) Tensors() (data *tensors.Tensor, labels *tensors.Tensor, err error) {
	switch len(b.Shape) {
	case 2:
		rows := make([][]float32, b.Shape[0])
		for i := range rows {
			rows[i] = b.Data[i*b.Shape[1] : (i+1)*b.Shape[1]]
		}
		data = tensors.FromAnyValue(rows)
	case 3:
		out := make([][][]float32, b.Shape[0])
		stride := b.Shape[1] * b.Shape[2]
		for i := range out {
			out[i] = make([][]float32, b.Shape[1])
			for j := range out[i] {
				off := i*stride + j*b.Shape[2]
				out[i][j] = b.Data[off : off+b.Shape[2]]
			}
		}
		data = tensors.FromAnyValue(out)
	default:
		return nil, nil, fmt.Errorf("cannot convert batch of rank %d to a tensor; flatten it first", len(b.Shape))
	}

	lab := make([][]float32, len(b.Labels))
	for i, l := range b.Labels {
		lab[i] = []float32{l}
	}
	labels = tensors.FromAnyValue(lab)
	return data, labels, nil
}

// Name implements gomlx's train.Dataset interface.
func (b *Batcher) Name() string { return "Batcher" }

// Yield implements gomlx's train.Dataset interface. It returns io.EOF once
// the underlying source is exhausted.
func (b *Batcher) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	batch, err := b.Next()
	if err != nil {
		return nil, nil, nil, err
	}
	in, lab, err := batch.Tensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, []*tensors.Tensor{in}, []*tensors.Tensor{lab}, nil
}

// Restart resets the batcher for a new epoch.
func (b *Batcher) Restart() error { return b.Reset() }
