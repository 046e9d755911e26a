// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sampler implements mini-batch samplers over a graph: a GraphSAINT random-walk sampler
// used for training, and a layer-wise neighbor sampler used for evaluation.
//
// Samplers implement the Dataset interface: Yield returns one batch at a time, and io.EOF when
// the epoch is exhausted. Call Reset to restart.
//
// Samplers are deterministic for a given seed, and safe for concurrent use.
package sampler

// Dataset yields batches of type B.
type Dataset[B any] interface {
	// Name of the dataset, used for debugging and logging.
	Name() string

	// Reset restarts the dataset after it has been exhausted.
	Reset()

	// Yield returns the next batch. At the end of an epoch it returns io.EOF.
	Yield() (batch B, err error)
}
