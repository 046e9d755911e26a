// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package loader turns a client graph into the data used for training: either the graph itself
// (full-batch training), or a bundle of samplers for mini-batch training.
package loader

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/sampler"
	"github.com/pkg/errors"
)

// Mode selects how a graph is adapted for training.
type Mode string

const (
	// ModeNone keeps the graph as is, for full-batch training. The empty string is equivalent.
	ModeNone Mode = "none"

	// ModeGraphSAINTRW wraps the graph with a GraphSAINT random-walk sampler for training and a
	// neighbor sampler for evaluation.
	ModeGraphSAINTRW Mode = "graphsaint-rw"
)

// EvalBatchSize is the batch size of the evaluation neighbor sampler.
const EvalBatchSize = 4096

// UnsupportedLoaderError is returned by Adapt for an unknown loader mode.
type UnsupportedLoaderError struct {
	Mode Mode
}

// Error implements error.
func (e *UnsupportedLoaderError) Error() string {
	return fmt.Sprintf("unsupported data loader type %q, valid values are %q, %q or \"\"", string(e.Mode), ModeNone, ModeGraphSAINTRW)
}

// Params of the samplers created in sampled mode.
type Params struct {
	// BatchSize is the number of random-walk roots per training batch.
	BatchSize int

	// WalkLength of each random walk.
	WalkLength int

	// NumSteps is the number of training batches per epoch.
	NumSteps int

	// NumWorkers used to precompute evaluation batches.
	NumWorkers int

	// Seed of the samplers.
	Seed uint64
}

// ParamsFromConfig returns the sampler parameters set in cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		BatchSize:  cfg.Data.BatchSize,
		WalkLength: cfg.Data.GraphSAINT.WalkLength,
		NumSteps:   cfg.Data.GraphSAINT.NumSteps,
		NumWorkers: cfg.Data.NumWorkers,
		Seed:       cfg.Seed,
	}
}

// Adapt returns the training data for g according to mode:
//
//   - ModeNone (or ""): GraphOnly(g), with the same g pointer.
//   - ModeGraphSAINTRW: a Sampled Bundle with g as Data, a random-walk sampler as Train, and one
//     neighbor sampler (all in-neighbors, EvalBatchSize nodes per batch, not shuffled) shared by
//     Val and Test.
//
// It never modifies g. Any other mode returns an *UnsupportedLoaderError.
func Adapt(g *graphs.Graph, mode Mode, params Params) (Entry, error) {
	switch mode {
	case "", ModeNone:
		return GraphOnly(g), nil
	case ModeGraphSAINTRW:
		var bundle *Bundle
		err := exceptions.TryCatch[error](func() {
			train := sampler.NewRandomWalk(g, params.BatchSize, params.WalkLength, params.NumSteps).
				WithSeed(params.Seed)
			eval := sampler.NewNeighbor(g, []int{sampler.AllNeighbors}, EvalBatchSize).
				WithNumWorkers(params.NumWorkers).
				WithSeed(params.Seed)
			bundle = &Bundle{Data: g, Train: train, Val: eval, Test: eval}
		})
		if err != nil {
			return Entry{}, errors.WithMessagef(err, "failed to create samplers for %s", g)
		}
		return Sampled(bundle), nil
	default:
		return Entry{}, &UnsupportedLoaderError{Mode: mode}
	}
}
