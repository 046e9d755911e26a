// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package loader

import (
	"fmt"

	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/sampler"
)

// Bundle holds the data of a client in sampled mode.
type Bundle struct {
	// Data is the client graph.
	Data *graphs.Graph

	// Train yields the training mini-batches.
	Train *sampler.RandomWalk

	// Val and Test are the evaluation samplers. They are the same sampler.
	Val, Test *sampler.Neighbor
}

// Entry is the data of one client: either only a graph (full-batch mode) or a sampled Bundle.
// Create it with GraphOnly or Sampled; the zero value is an empty entry.
type Entry struct {
	graph  *graphs.Graph
	bundle *Bundle
}

// GraphOnly returns an Entry holding only the graph.
func GraphOnly(g *graphs.Graph) Entry {
	return Entry{graph: g}
}

// Sampled returns an Entry holding a Bundle.
func Sampled(bundle *Bundle) Entry {
	return Entry{graph: bundle.Data, bundle: bundle}
}

// Graph returns the underlying graph, in either mode.
func (e Entry) Graph() *graphs.Graph { return e.graph }

// IsSampled returns whether the entry holds a Bundle.
func (e Entry) IsSampled() bool { return e.bundle != nil }

// Bundle returns the Bundle of a sampled entry, or nil.
func (e Entry) Bundle() *Bundle { return e.bundle }

// IsEmpty returns whether the entry is the zero value.
func (e Entry) IsEmpty() bool { return e.graph == nil }

// Mode returns the loader mode that created the entry.
func (e Entry) Mode() Mode {
	if e.IsSampled() {
		return ModeGraphSAINTRW
	}
	return ModeNone
}

// String implements fmt.Stringer.
func (e Entry) String() string {
	return fmt.Sprintf("%s: %s", e.Mode(), e.graph)
}
