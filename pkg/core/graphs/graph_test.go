// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// testGraph has 5 nodes, 6 edges and 2 relation types:
//
//	0 -a-> 1, 1 -a-> 2, 2 -b-> 3, 3 -b-> 4, 4 -a-> 0, 1 -b-> 3
func testGraph() *Graph {
	return &Graph{
		NumNodes:      5,
		X:             mat.NewDense(5, 2, []float64{0, 1, 1, 1, 2, 1, 3, 1, 4, 1}),
		EdgeIndex:     [2][]int32{{0, 1, 2, 3, 4, 1}, {1, 2, 3, 4, 0, 3}},
		EdgeType:      []int32{0, 0, 1, 1, 0, 1},
		TrainEdgeMask: []bool{true, true, true, true, false, false},
		ValidEdgeMask: []bool{false, false, false, false, true, false},
		TestEdgeMask:  []bool{false, false, false, false, false, true},
	}
}

func TestValidate(t *testing.T) {
	g := testGraph()
	require.NoError(t, g.Validate())
	assert.Equal(t, 6, g.NumEdges())

	bad := g.Clone()
	bad.EdgeType = bad.EdgeType[:5]
	assert.ErrorContains(t, bad.Validate(), "edge type")

	bad = g.Clone()
	bad.EdgeIndex[1][2] = 5
	assert.ErrorContains(t, bad.Validate(), "out of range")

	bad = g.Clone()
	bad.EdgeIndex[0] = bad.EdgeIndex[0][:4]
	assert.ErrorContains(t, bad.Validate(), "different lengths")

	bad = g.Clone()
	bad.IndexOrig = []int32{1, 2}
	assert.ErrorContains(t, bad.Validate(), "index_orig")

	bad = g.Clone()
	bad.NumNodes = 6
	assert.ErrorContains(t, bad.Validate(), "features")
}

func TestCloneAndEqual(t *testing.T) {
	g := testGraph()
	g2 := g.Clone()
	assert.True(t, g.Equal(g2))
	g2.EdgeIndex[0][0] = 3
	assert.False(t, g.Equal(g2))
	assert.Equal(t, int32(0), g.EdgeIndex[0][0], "Clone must not share edge slices")

	g2 = g.Clone()
	g2.X.Set(0, 0, 100)
	assert.False(t, g.Equal(g2))
	assert.Equal(t, 0.0, g.X.At(0, 0), "Clone must not share features")

	g2 = g.Clone()
	g2.X = nil
	assert.False(t, g.Equal(g2))

	var nilGraph *Graph
	assert.True(t, nilGraph.Equal(nil))
	assert.False(t, nilGraph.Equal(g))
}

func TestDegreesAndCounts(t *testing.T) {
	g := testGraph()
	assert.Equal(t, []int{1, 2, 1, 1, 1}, g.Degrees(false))
	assert.Equal(t, []int{1, 1, 1, 2, 1}, g.Degrees(true))
	train, valid, test := g.CountMasks()
	assert.Equal(t, []int{4, 1, 1}, []int{train, valid, test})
	assert.Equal(t, "Graph(5 nodes, 6 edges, features dim 2, 2 edge types, split 4/1/1)", g.String())
}

func TestEdgeSubgraph(t *testing.T) {
	g := testGraph()
	sub := g.EdgeSubgraph([]int32{2, 5})
	require.NoError(t, sub.Validate())
	// Edges 2->3 and 1->3: nodes {1, 2, 3}.
	assert.Equal(t, 3, sub.NumNodes)
	assert.Equal(t, []int32{1, 2, 3}, sub.IndexOrig)
	assert.Equal(t, [2][]int32{{1, 0}, {2, 2}}, sub.EdgeIndex)
	assert.Equal(t, []int32{1, 1}, sub.EdgeType)
	assert.Equal(t, []bool{true, false}, sub.TrainEdgeMask)
	assert.Equal(t, []bool{false, true}, sub.TestEdgeMask)
	assert.Equal(t, []float64{2, 1}, sub.X.RawRowView(1))

	// Every local edge maps back to the same original edge.
	for ii, edgeID := range []int32{2, 5} {
		assert.Equal(t, g.EdgeIndex[0][edgeID], sub.IndexOrig[sub.EdgeIndex[0][ii]])
		assert.Equal(t, g.EdgeIndex[1][edgeID], sub.IndexOrig[sub.EdgeIndex[1][ii]])
	}

	// Sub-subgraph: IndexOrig points to the outermost graph.
	subSub := sub.EdgeSubgraph([]int32{1})
	assert.Equal(t, []int32{1, 3}, subSub.IndexOrig)

	assert.Panics(t, func() { g.EdgeSubgraph([]int32{6}) })
}

func TestNodeSubgraph(t *testing.T) {
	g := testGraph()
	sub, edgeIDs := g.NodeSubgraph([]int32{3, 1, 2})
	require.NoError(t, sub.Validate())
	assert.Equal(t, []int32{1, 2, 5}, edgeIDs)
	assert.Equal(t, []int32{3, 1, 2}, sub.IndexOrig)
	// 1->2 => 1->2 ; 2->3 => 2->0 ; 1->3 => 1->0
	assert.Equal(t, [2][]int32{{1, 2, 1}, {2, 0, 0}}, sub.EdgeIndex)
	assert.Panics(t, func() { g.NodeSubgraph([]int32{1, 1}) })
}

func TestTransforms(t *testing.T) {
	g := testGraph()

	normalized := NormalizeFeatures().Apply(g)
	assert.Equal(t, []float64{0, 1}, normalized.X.RawRowView(0))
	assert.InDeltaSlice(t, []float64{0.8, 0.2}, normalized.X.RawRowView(4), 1e-9)
	assert.Equal(t, 4.0, g.X.At(4, 0), "transforms must not change the input graph")

	constant := Constant(1.0, false).Apply(g)
	rows, cols := constant.X.Dims()
	assert.Equal(t, []int{5, 1}, []int{rows, cols})
	assert.Equal(t, 1.0, constant.X.At(3, 0))

	concatenated := Constant(7, true).Apply(g)
	_, cols = concatenated.X.Dims()
	assert.Equal(t, 3, cols)
	assert.Equal(t, []float64{3, 1, 7}, concatenated.X.RawRowView(3))

	oneHot := OneHotDegree(1, false, false).Apply(g)
	_, cols = oneHot.X.Dims()
	assert.Equal(t, 2, cols)
	assert.Equal(t, []float64{0, 1}, oneHot.X.RawRowView(1), "degree 2 is clipped to max degree 1")
	assert.Equal(t, []float64{0, 1}, oneHot.X.RawRowView(0))

	composed := Compose(NormalizeFeatures(), nil, Constant(2, true)).Apply(g)
	assert.Equal(t, []float64{0, 1, 2}, composed.X.RawRowView(0))

	var nilTransform Transform
	assert.Same(t, g, nilTransform.Apply(g))
}

func TestSaveLoad(t *testing.T) {
	g := testGraph()
	sub := g.EdgeSubgraph([]int32{0, 1})
	filePath := path.Join(t.TempDir(), "cache", "graphs.bin")
	require.NoError(t, Save(filePath, g, sub))

	loaded, err := Load(filePath)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.True(t, g.Equal(loaded[0]))
	assert.True(t, sub.Equal(loaded[1]))

	_, err = Load(path.Join(t.TempDir(), "missing.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveLoadEmptyEdges(t *testing.T) {
	g := testGraph().EdgeSubgraph([]int32{})
	require.True(t, g.HasMasks())
	require.NotNil(t, g.EdgeType)
	filePath := path.Join(t.TempDir(), "empty.bin")
	require.NoError(t, Save(filePath, g, &Graph{NumNodes: 2}))

	loaded, err := Load(filePath)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	empty := loaded[0]
	assert.True(t, empty.HasMasks(), "masks of a graph without edges must survive Save/Load")
	assert.NotNil(t, empty.EdgeType)
	assert.NotNil(t, empty.IndexOrig)
	assert.Equal(t, 0, empty.NumEdges())
	require.NoError(t, empty.Validate())

	// Slices that were never set stay nil.
	bare := loaded[1]
	assert.Equal(t, 2, bare.NumNodes)
	assert.False(t, bare.HasMasks())
	assert.Nil(t, bare.EdgeType)
	assert.Nil(t, bare.IndexOrig)
}
