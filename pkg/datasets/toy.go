// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import "github.com/gomlx/fedgraph/pkg/core/graphs"

// ToyName is the name of the in-memory toy knowledge graph.
const ToyName = "toy"

// ToyKG returns a small knowledge graph with 8 nodes and 10 edges of 2 relation types,
// 6 train edges, 2 valid and 2 test. It is used for tests and demos.
func ToyKG() *graphs.Graph {
	return &graphs.Graph{
		NumNodes: 8,
		EdgeIndex: [2][]int32{
			{0, 1, 2, 3, 4, 5, 6, 7, 0, 2},
			{1, 2, 3, 4, 5, 6, 7, 0, 4, 6},
		},
		EdgeType:      []int32{0, 1, 0, 1, 0, 1, 0, 1, 1, 0},
		TrainEdgeMask: []bool{true, true, true, true, true, true, false, false, false, false},
		ValidEdgeMask: []bool{false, false, false, false, false, false, true, true, false, false},
		TestEdgeMask:  []bool{false, false, false, false, false, false, false, false, true, true},
	}
}
