// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphs holds Graph, the in-memory container for relational / link-prediction graphs
// used when partitioning a dataset among federated clients.
//
// A Graph is a plain value: an edge index (pair of source and target node ids), optional per-edge
// relation types and train/validation/test masks, optional node features and, for subgraphs
// produced by partitioning, a mapping of each local node back to its node in the source graph.
//
// Graphs are built once (by a dataset reader, a splitter or a sampler) and treated as read-only
// afterward. Operations that derive a new graph (Clone, EdgeSubgraph, NodeSubgraph) never share
// mutable slices with the graph they are derived from.
package graphs

import (
	"fmt"
	"slices"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/gomlx/fedgraph/pkg/support/sets"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Graph is a directed multigraph with optional relation types, edge split masks and node features.
//
// Invariants (see Validate):
//   - EdgeIndex[0] (sources) and EdgeIndex[1] (targets) have the same length: the number of edges.
//   - EdgeType and each of the masks, if not nil, have one entry per edge.
//   - Every node id in EdgeIndex is in the range [0, NumNodes).
//   - IndexOrig, if not nil, has one entry per node.
//   - X, if not nil, has NumNodes rows.
type Graph struct {
	// NumNodes in the graph. Nodes are numbered from 0 to NumNodes-1.
	NumNodes int

	// X holds the node features, shaped [NumNodes, featureDim]. Optional.
	X *mat.Dense

	// EdgeIndex holds the source node ids (EdgeIndex[0]) and the target node ids (EdgeIndex[1]).
	EdgeIndex [2][]int32

	// EdgeType holds the relation type of each edge. Optional for non-relational graphs.
	EdgeType []int32

	// TrainEdgeMask, ValidEdgeMask and TestEdgeMask mark the split each edge belongs to.
	// By convention at most one of them is set for any edge.
	TrainEdgeMask, ValidEdgeMask, TestEdgeMask []bool

	// IndexOrig maps a local node id to the node id in the graph this one was extracted from:
	// IndexOrig[local] = original. Only set on partitioned subgraphs.
	IndexOrig []int32
}

// NumEdges returns the number of edges in the graph.
func (g *Graph) NumEdges() int { return len(g.EdgeIndex[0]) }

// Sources returns the source node of each edge. Don't modify the returned slice.
func (g *Graph) Sources() []int32 { return g.EdgeIndex[0] }

// Targets returns the target node of each edge. Don't modify the returned slice.
func (g *Graph) Targets() []int32 { return g.EdgeIndex[1] }

// HasMasks returns whether all three edge split masks are set.
func (g *Graph) HasMasks() bool {
	return g.TrainEdgeMask != nil && g.ValidEdgeMask != nil && g.TestEdgeMask != nil
}

// Validate checks the Graph invariants, and returns an error describing the first one violated.
func (g *Graph) Validate() error {
	if g.NumNodes < 0 {
		return errors.Errorf("graph has negative number of nodes %d", g.NumNodes)
	}
	numEdges := len(g.EdgeIndex[0])
	if len(g.EdgeIndex[1]) != numEdges {
		return errors.Errorf("edge index rows have different lengths: %d sources and %d targets",
			numEdges, len(g.EdgeIndex[1]))
	}
	for _, attr := range []struct {
		name   string
		length int
	}{
		{"edge type", lenOrEdges(g.EdgeType, numEdges)},
		{"train edge mask", lenOrEdges(g.TrainEdgeMask, numEdges)},
		{"valid edge mask", lenOrEdges(g.ValidEdgeMask, numEdges)},
		{"test edge mask", lenOrEdges(g.TestEdgeMask, numEdges)},
	} {
		if attr.length != numEdges {
			return errors.Errorf("%s has %d entries, but graph has %d edges", attr.name, attr.length, numEdges)
		}
	}
	for row := range g.EdgeIndex {
		for edgeIdx, node := range g.EdgeIndex[row] {
			if node < 0 || int(node) >= g.NumNodes {
				return errors.Errorf("edge #%d has node %d out of range [0, %d)", edgeIdx, node, g.NumNodes)
			}
		}
	}
	if g.IndexOrig != nil && len(g.IndexOrig) != g.NumNodes {
		return errors.Errorf("index_orig has %d entries, but graph has %d nodes", len(g.IndexOrig), g.NumNodes)
	}
	if g.X != nil {
		if rows, _ := g.X.Dims(); rows != g.NumNodes {
			return errors.Errorf("node features have %d rows, but graph has %d nodes", rows, g.NumNodes)
		}
	}
	return nil
}

// lenOrEdges returns the length of an optional per-edge slice, or numEdges if it is not set.
func lenOrEdges[T any](s []T, numEdges int) int {
	if s == nil {
		return numEdges
	}
	return len(s)
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	g2 := &Graph{
		NumNodes:      g.NumNodes,
		EdgeIndex:     [2][]int32{slices.Clone(g.EdgeIndex[0]), slices.Clone(g.EdgeIndex[1])},
		EdgeType:      slices.Clone(g.EdgeType),
		TrainEdgeMask: slices.Clone(g.TrainEdgeMask),
		ValidEdgeMask: slices.Clone(g.ValidEdgeMask),
		TestEdgeMask:  slices.Clone(g.TestEdgeMask),
		IndexOrig:     slices.Clone(g.IndexOrig),
	}
	if g.X != nil {
		g2.X = mat.DenseCopyOf(g.X)
	}
	return g2
}

// Equal returns whether g and g2 are structurally equal: same nodes, edges (in the same order),
// attributes and features.
//
// A nil slice and an empty slice are considered equal.
func (g *Graph) Equal(g2 *Graph) bool {
	if g == nil || g2 == nil {
		return g == g2
	}
	if g.NumNodes != g2.NumNodes ||
		!slices.Equal(g.EdgeIndex[0], g2.EdgeIndex[0]) || !slices.Equal(g.EdgeIndex[1], g2.EdgeIndex[1]) ||
		!slices.Equal(g.EdgeType, g2.EdgeType) ||
		!slices.Equal(g.TrainEdgeMask, g2.TrainEdgeMask) ||
		!slices.Equal(g.ValidEdgeMask, g2.ValidEdgeMask) ||
		!slices.Equal(g.TestEdgeMask, g2.TestEdgeMask) ||
		!slices.Equal(g.IndexOrig, g2.IndexOrig) {
		return false
	}
	if (g.X == nil) != (g2.X == nil) {
		return false
	}
	return g.X == nil || mat.Equal(g.X, g2.X)
}

// Degrees returns the number of edges per node, counting sources if `in` is false, or targets otherwise.
func (g *Graph) Degrees(in bool) []int {
	nodes := g.EdgeIndex[0]
	if in {
		nodes = g.EdgeIndex[1]
	}
	degrees := make([]int, g.NumNodes)
	for _, node := range nodes {
		degrees[node]++
	}
	return degrees
}

// CountMasks returns the number of edges marked for train, validation and test.
func (g *Graph) CountMasks() (train, valid, test int) {
	count := func(mask []bool) (n int) {
		for _, set := range mask {
			if set {
				n++
			}
		}
		return
	}
	return count(g.TrainEdgeMask), count(g.ValidEdgeMask), count(g.TestEdgeMask)
}

// String returns a one-line description of the graph.
func (g *Graph) String() string {
	if g == nil {
		return "Graph(nil)"
	}
	parts := []string{
		fmt.Sprintf("%s nodes", humanize.Comma(int64(g.NumNodes))),
		fmt.Sprintf("%s edges", humanize.Comma(int64(g.NumEdges()))),
	}
	if g.X != nil {
		_, cols := g.X.Dims()
		parts = append(parts, fmt.Sprintf("features dim %d", cols))
	}
	if g.EdgeType != nil {
		parts = append(parts, fmt.Sprintf("%d edge types", len(sets.MakeWith(g.EdgeType...))))
	}
	if g.HasMasks() {
		train, valid, test := g.CountMasks()
		parts = append(parts, fmt.Sprintf("split %s/%s/%s",
			humanize.Comma(int64(train)), humanize.Comma(int64(valid)), humanize.Comma(int64(test))))
	}
	if g.IndexOrig != nil {
		parts = append(parts, "partitioned")
	}
	return fmt.Sprintf("Graph(%s)", strings.Join(parts, ", "))
}
