// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
)

// Adjacency is a compressed (CSR) representation of the edges of a graph, indexed by node.
//
// It is built either by source node (out-edges), or by target node (in-edges) if reverse is set,
// and it keeps the id of each edge, so sampled edges can be traced back to the graph.
//
// All the information is available for reading, but don't change it.
type Adjacency struct {
	// Reverse is true if the edges are indexed by their target node.
	Reverse bool

	// Starts has one entry for each node (shifted by 1): it points to the start of the list of
	// neighbors of this node.
	//
	// So for node `i`, the list of neighbors starts at `Starts[i-1]` and ends at `Starts[i]`,
	// except if `i == 0` in which case the start is at 0.
	// It's normal to be 0 if the node has no neighbors.
	//
	// The number of nodes is given by `len(Starts)`.
	Starts []int32

	// Neighbors is the list of the other endpoint of the edges, ordered by the indexing node.
	Neighbors []int32

	// EdgeIDs is the id of the edge of each entry of Neighbors.
	EdgeIDs []int32
}

// NewAdjacency creates the adjacency of a graph with numNodes nodes and the given edge index
// (sources in edgeIndex[0], targets in edgeIndex[1]).
//
// If reverse is false, edges are indexed by source node, and Neighbors holds the targets. If reverse
// is true, edges are indexed by target node and Neighbors holds the sources.
// Edges of the same node are kept in the order of their ids.
//
// It panics if an edge endpoint is out of range.
func NewAdjacency(numNodes int, edgeIndex [2][]int32, reverse bool) *Adjacency {
	columnSrc, columnTgt := 0, 1
	if reverse {
		columnSrc, columnTgt = 1, 0
	}
	numEdges := len(edgeIndex[0])
	if len(edgeIndex[1]) != numEdges {
		exceptions.Panicf("NewAdjacency: edge index rows have different lengths (%d and %d)",
			numEdges, len(edgeIndex[1]))
	}
	sources, targets := edgeIndex[columnSrc], edgeIndex[columnTgt]

	// Sort edges according to the indexing column.
	edgeIDs := xslices.Iota(int32(0), numEdges)
	slices.SortStableFunc(edgeIDs, func(a, b int32) int {
		return int(sources[a]) - int(sources[b])
	})

	adj := &Adjacency{
		Reverse:   reverse,
		Starts:    make([]int32, numNodes),
		Neighbors: make([]int32, numEdges),
		EdgeIDs:   edgeIDs,
	}
	currentNode := int32(0)
	for row, edgeID := range edgeIDs {
		sourceIdx, targetIdx := sources[edgeID], targets[edgeID]
		if sourceIdx < 0 || int(sourceIdx) >= numNodes || targetIdx < 0 || int(targetIdx) >= numNodes {
			exceptions.Panicf("edge %d (%d->%d) is out of range, graph only has %d nodes",
				edgeID, edgeIndex[0][edgeID], edgeIndex[1][edgeID], numNodes)
		}
		adj.Neighbors[row] = targetIdx
		for currentNode < sourceIdx {
			adj.Starts[currentNode] = int32(row)
			currentNode++
		}
	}
	for ; int(currentNode) < numNodes; currentNode++ {
		adj.Starts[currentNode] = int32(numEdges)
	}
	return adj
}

// NumNodes indexed by the adjacency -- total number of nodes, even if they are not used by the edges.
func (adj *Adjacency) NumNodes() int { return len(adj.Starts) }

// NumEdges in the adjacency.
func (adj *Adjacency) NumEdges() int { return len(adj.Neighbors) }

// bounds returns the range of node in Neighbors and EdgeIDs.
func (adj *Adjacency) bounds(node int32) (start, end int32) {
	if node < 0 || int(node) >= len(adj.Starts) {
		exceptions.Panicf("invalid node index %d for adjacency (only %d nodes)", node, len(adj.Starts))
	}
	if node > 0 {
		start = adj.Starts[node-1]
	}
	end = adj.Starts[node]
	return
}

// NeighborsOf returns the neighbors of the given node, and the ids of the corresponding edges.
// Don't modify the returned slices -- make a copy if you need to modify.
func (adj *Adjacency) NeighborsOf(node int32) (neighbors, edgeIDs []int32) {
	start, end := adj.bounds(node)
	return adj.Neighbors[start:end], adj.EdgeIDs[start:end]
}

// Degree returns the number of neighbors of node.
func (adj *Adjacency) Degree(node int32) int {
	start, end := adj.bounds(node)
	return int(end - start)
}

// String implements fmt.Stringer.
func (adj *Adjacency) String() string {
	direction := "out-edges"
	if adj.Reverse {
		direction = "in-edges"
	}
	return fmt.Sprintf("Adjacency(%s nodes, %s %s)",
		humanize.Comma(int64(adj.NumNodes())), humanize.Comma(int64(adj.NumEdges())), direction)
}
