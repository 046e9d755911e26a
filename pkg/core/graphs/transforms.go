// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

import (
	"gonum.org/v1/gonum/mat"
)

// Transform derives a new graph from g, typically changing its node features.
//
// Transforms never modify g: the returned graph is a shallow copy that shares the edge
// slices with g, but has its own features matrix.
type Transform func(g *Graph) *Graph

// Compose returns a Transform that applies the given transforms in order. Nil transforms are skipped.
func Compose(transforms ...Transform) Transform {
	return func(g *Graph) *Graph {
		for _, t := range transforms {
			if t != nil {
				g = t(g)
			}
		}
		return g
	}
}

// Apply applies t to g, and returns g unchanged if t is nil.
func (t Transform) Apply(g *Graph) *Graph {
	if t == nil {
		return g
	}
	return t(g)
}

// withFeatures returns a shallow copy of g with the given features.
func withFeatures(g *Graph, x *mat.Dense) *Graph {
	g2 := *g
	g2.X = x
	return &g2
}

// NormalizeFeatures row-normalizes the node features: each row is shifted so its minimum
// (over the whole matrix) is 0, and then divided by its sum (if the sum is at least 1).
//
// Graphs without features are returned unchanged.
func NormalizeFeatures() Transform {
	return func(g *Graph) *Graph {
		if g.X == nil {
			return g
		}
		x := mat.DenseCopyOf(g.X)
		minValue := mat.Min(x)
		rows, _ := x.Dims()
		for row := range rows {
			values := x.RawRowView(row)
			var sum float64
			for ii := range values {
				values[ii] -= minValue
				sum += values[ii]
			}
			sum = max(sum, 1)
			for ii := range values {
				values[ii] /= sum
			}
		}
		return withFeatures(g, x)
	}
}

// Constant sets every node feature to a constant value, a single column.
// If concat is true and the graph already has features, the constant column is appended to them.
func Constant(value float64, concat bool) Transform {
	return func(g *Graph) *Graph {
		if g.NumNodes == 0 {
			return g
		}
		column := mat.NewDense(g.NumNodes, 1, nil)
		for row := range g.NumNodes {
			column.Set(row, 0, value)
		}
		return withFeatures(g, concatFeatures(g.X, column, concat))
	}
}

// OneHotDegree sets the node features to the one-hot encoding of the node degree, with
// maxDegree+1 columns. Degrees above maxDegree are clipped to maxDegree.
//
// It counts outgoing edges, or incoming edges if in is true.
// If concat is true and the graph already has features, the one-hot columns are appended to them.
func OneHotDegree(maxDegree int, in, concat bool) Transform {
	return func(g *Graph) *Graph {
		if g.NumNodes == 0 {
			return g
		}
		oneHot := mat.NewDense(g.NumNodes, maxDegree+1, nil)
		for node, degree := range g.Degrees(in) {
			oneHot.Set(node, min(degree, maxDegree), 1)
		}
		return withFeatures(g, concatFeatures(g.X, oneHot, concat))
	}
}

// concatFeatures returns `[x, extra]` if concat is set and x is not nil, otherwise extra.
func concatFeatures(x, extra *mat.Dense, concat bool) *mat.Dense {
	if !concat || x == nil {
		return extra
	}
	rows, xCols := x.Dims()
	_, extraCols := extra.Dims()
	result := mat.NewDense(rows, xCols+extraCols, nil)
	result.Augment(x, extra)
	return result
}
