// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

import (
	"slices"

	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/mat"
)

// notMapped marks a node that is not part of a subgraph in the original-to-local mapping.
const notMapped = -1

// EdgeSubgraph returns the subgraph formed by the given edges (in the given order) and the nodes
// they touch.
//
// Nodes are renumbered compactly, in ascending order of their id in g. The returned graph
// IndexOrig maps each local node to its id in g -- or to g.IndexOrig of that node if g itself is
// a subgraph, so IndexOrig always points to the outermost graph.
//
// Edge types, masks and node features are sliced accordingly. It panics if an edge id is out of range.
func (g *Graph) EdgeSubgraph(edgeIDs []int32) *Graph {
	numEdges := g.NumEdges()
	used := make([]bool, g.NumNodes)
	for _, edgeID := range edgeIDs {
		if edgeID < 0 || int(edgeID) >= numEdges {
			exceptions.Panicf("EdgeSubgraph: edge id %d out of range, graph has %d edges", edgeID, numEdges)
		}
		used[g.EdgeIndex[0][edgeID]] = true
		used[g.EdgeIndex[1][edgeID]] = true
	}
	var nodeIDs []int32
	for node, isUsed := range used {
		if isUsed {
			nodeIDs = append(nodeIDs, int32(node))
		}
	}
	sub := g.withNodes(nodeIDs)
	toLocal := localMapping(g.NumNodes, nodeIDs)
	sub.EdgeIndex = [2][]int32{make([]int32, len(edgeIDs)), make([]int32, len(edgeIDs))}
	for ii, edgeID := range edgeIDs {
		sub.EdgeIndex[0][ii] = toLocal[g.EdgeIndex[0][edgeID]]
		sub.EdgeIndex[1][ii] = toLocal[g.EdgeIndex[1][edgeID]]
	}
	g.copyEdgeAttributes(sub, edgeIDs)
	return sub
}

// NodeSubgraph returns the subgraph induced by the given nodes: all edges of g whose both
// endpoints are in nodeIDs, in their original order. It also returns the ids (in g) of the edges kept.
//
// Local node i corresponds to nodeIDs[i]; nodeIDs must not have repeated values.
// As with EdgeSubgraph, IndexOrig of the result points to the outermost graph.
func (g *Graph) NodeSubgraph(nodeIDs []int32) (sub *Graph, edgeIDs []int32) {
	toLocal := localMapping(g.NumNodes, nodeIDs)
	for edgeID := range g.NumEdges() {
		if toLocal[g.EdgeIndex[0][edgeID]] != notMapped && toLocal[g.EdgeIndex[1][edgeID]] != notMapped {
			edgeIDs = append(edgeIDs, int32(edgeID))
		}
	}
	sub = g.withNodes(nodeIDs)
	sub.EdgeIndex = [2][]int32{make([]int32, len(edgeIDs)), make([]int32, len(edgeIDs))}
	for ii, edgeID := range edgeIDs {
		sub.EdgeIndex[0][ii] = toLocal[g.EdgeIndex[0][edgeID]]
		sub.EdgeIndex[1][ii] = toLocal[g.EdgeIndex[1][edgeID]]
	}
	g.copyEdgeAttributes(sub, edgeIDs)
	return
}

// OrigNode returns the id in the outermost graph of the local node: IndexOrig[node] if set, node otherwise.
func (g *Graph) OrigNode(node int32) int32 {
	if g.IndexOrig == nil {
		return node
	}
	return g.IndexOrig[node]
}

// withNodes creates an edgeless graph with the given nodes of g, with features and IndexOrig set.
func (g *Graph) withNodes(nodeIDs []int32) *Graph {
	sub := &Graph{
		NumNodes:  len(nodeIDs),
		IndexOrig: make([]int32, len(nodeIDs)),
	}
	for ii, node := range nodeIDs {
		sub.IndexOrig[ii] = g.OrigNode(node)
	}
	if g.X != nil && len(nodeIDs) > 0 {
		_, cols := g.X.Dims()
		sub.X = mat.NewDense(len(nodeIDs), cols, nil)
		for ii, node := range nodeIDs {
			sub.X.SetRow(ii, g.X.RawRowView(int(node)))
		}
	}
	return sub
}

// copyEdgeAttributes gathers the optional per-edge attributes of g into sub.
func (g *Graph) copyEdgeAttributes(sub *Graph, edgeIDs []int32) {
	sub.EdgeType = gather(g.EdgeType, edgeIDs)
	sub.TrainEdgeMask = gather(g.TrainEdgeMask, edgeIDs)
	sub.ValidEdgeMask = gather(g.ValidEdgeMask, edgeIDs)
	sub.TestEdgeMask = gather(g.TestEdgeMask, edgeIDs)
}

// localMapping returns a slice mapping each of the numNodes node ids to its position in nodeIDs, or notMapped.
func localMapping(numNodes int, nodeIDs []int32) []int32 {
	toLocal := slices.Repeat([]int32{notMapped}, numNodes)
	for ii, node := range nodeIDs {
		if node < 0 || int(node) >= numNodes {
			exceptions.Panicf("node id %d out of range, graph has %d nodes", node, numNodes)
		}
		if toLocal[node] != notMapped {
			exceptions.Panicf("node id %d given more than once", node)
		}
		toLocal[node] = int32(ii)
	}
	return toLocal
}

// gather returns values[indices], or nil if values is nil.
func gather[T any](values []T, indices []int32) []T {
	if values == nil {
		return nil
	}
	out := make([]T, len(indices))
	for ii, idx := range indices {
		out[ii] = values[idx]
	}
	return out
}
