// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/support/sets"
	"k8s.io/klog/v2"
)

// Batch is a sampled subgraph.
type Batch struct {
	// Graph is the subgraph induced by the sampled nodes. Its IndexOrig maps to the outermost graph.
	Graph *graphs.Graph

	// NodeIDs are the sampled nodes (sorted), in the numbering of the sampled graph: local node
	// i of Graph is NodeIDs[i].
	NodeIDs []int32

	// EdgeIDs are the ids in the sampled graph of the edges of Graph.
	EdgeIDs []int32

	// NodeNorm and EdgeNorm are the GraphSAINT normalization coefficients of the nodes and edges
	// of Graph. They are only set if the sampler was configured with a sample coverage > 0.
	NodeNorm, EdgeNorm []float64
}

// RandomWalk is a GraphSAINT random-walk sampler: each batch is the subgraph induced by the nodes
// visited by random walks starting from batchSize roots chosen uniformly.
//
// It yields numSteps batches per epoch. Create it with NewRandomWalk.
type RandomWalk struct {
	name                            string
	graph                           *graphs.Graph
	adj                             *Adjacency
	batchSize, walkLength, numSteps int
	seed                            uint64
	sampleCoverage                  int

	mu                 sync.Mutex
	frozen             bool
	rng                *rand.Rand
	step, epoch        int
	nodeNorm, edgeNorm []float64
}

var _ Dataset[*Batch] = (*RandomWalk)(nil)

// NewRandomWalk creates a random-walk sampler over g: each batch starts batchSize walks of
// walkLength steps following out-edges -- a node without out-edges stays in place.
// An epoch has numSteps batches.
func NewRandomWalk(g *graphs.Graph, batchSize, walkLength, numSteps int) *RandomWalk {
	if batchSize <= 0 {
		exceptions.Panicf("NewRandomWalk: batchSize must be > 0, got %d", batchSize)
	}
	if walkLength < 0 || numSteps < 0 {
		exceptions.Panicf("NewRandomWalk: walkLength and numSteps must be >= 0, got %d and %d", walkLength, numSteps)
	}
	return &RandomWalk{
		name:       "graphsaint-rw",
		graph:      g,
		adj:        NewAdjacency(g.NumNodes, g.EdgeIndex, false),
		batchSize:  batchSize,
		walkLength: walkLength,
		numSteps:   numSteps,
	}
}

// WithSeed sets the seed of the sampler. It must be called before the first Yield.
func (rw *RandomWalk) WithSeed(seed uint64) *RandomWalk {
	rw.checkNotFrozen()
	rw.seed = seed
	return rw
}

// WithName sets the name of the sampler.
func (rw *RandomWalk) WithName(name string) *RandomWalk {
	rw.name = name
	return rw
}

// WithSampleCoverage configures the sampler to estimate the GraphSAINT normalization coefficients,
// pre-sampling batches until each node was sampled on average coverage times. The default 0 means
// no normalization coefficients.
func (rw *RandomWalk) WithSampleCoverage(coverage int) *RandomWalk {
	rw.checkNotFrozen()
	rw.sampleCoverage = coverage
	return rw
}

func (rw *RandomWalk) checkNotFrozen() {
	if rw.frozen {
		exceptions.Panicf("cannot change a RandomWalk sampler that has already started yielding results")
	}
}

// Name implements Dataset.
func (rw *RandomWalk) Name() string { return rw.name }

// Graph returns the sampled graph.
func (rw *RandomWalk) Graph() *graphs.Graph { return rw.graph }

// NumSteps returns the number of batches per epoch.
func (rw *RandomWalk) NumSteps() int { return rw.numSteps }

// String implements fmt.Stringer.
func (rw *RandomWalk) String() string {
	return fmt.Sprintf("RandomWalk(batch size %d, walk length %d, %d steps, coverage %d)",
		rw.batchSize, rw.walkLength, rw.numSteps, rw.sampleCoverage)
}

// Reset implements Dataset: it restarts the sampler for a new epoch.
// Each epoch samples different batches.
func (rw *RandomWalk) Reset() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.step > 0 {
		rw.epoch++
	}
	rw.step = 0
	rw.rng = nil
}

// Yield implements Dataset.
func (rw *RandomWalk) Yield() (batch *Batch, err error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if !rw.frozen {
		rw.frozen = true
		if rw.sampleCoverage > 0 {
			rw.computeNorms()
		}
	}
	if rw.step >= rw.numSteps || rw.graph.NumNodes == 0 {
		err = io.EOF
		return
	}
	if rw.rng == nil {
		rw.rng = newRand(rw.seed, uint64(rw.epoch)+1)
	}
	rw.step++
	nodeIDs := rw.sampleNodes(rw.rng)
	sub, edgeIDs := rw.graph.NodeSubgraph(nodeIDs)
	batch = &Batch{Graph: sub, NodeIDs: nodeIDs, EdgeIDs: edgeIDs}
	if rw.nodeNorm != nil {
		batch.NodeNorm = make([]float64, len(nodeIDs))
		for ii, node := range nodeIDs {
			batch.NodeNorm[ii] = rw.nodeNorm[node]
		}
		batch.EdgeNorm = make([]float64, len(edgeIDs))
		for ii, edgeID := range edgeIDs {
			batch.EdgeNorm[ii] = rw.edgeNorm[edgeID]
		}
	}
	return
}

// sampleNodes returns the sorted unique nodes visited by the random walks.
func (rw *RandomWalk) sampleNodes(rng *rand.Rand) []int32 {
	visited := sets.Make[int32](rw.batchSize * (rw.walkLength + 1))
	for range rw.batchSize {
		node := int32(rng.IntN(rw.graph.NumNodes))
		visited.Insert(node)
		for range rw.walkLength {
			neighbors, _ := rw.adj.NeighborsOf(node)
			if len(neighbors) > 0 {
				node = neighbors[rng.IntN(len(neighbors))]
			}
			visited.Insert(node)
		}
	}
	return sets.Sorted(visited)
}

// normDefault is used for nodes and edges never sampled while estimating the normalization.
const normDefault = 0.1

// computeNorms estimates the GraphSAINT normalization coefficients. It uses its own random stream,
// so it doesn't change the batches yielded.
func (rw *RandomWalk) computeNorms() {
	numNodes := rw.graph.NumNodes
	if numNodes == 0 {
		return
	}
	rng := newRand(rw.seed, 0)
	nodeCount := make([]float64, numNodes)
	edgeCount := make([]float64, rw.graph.NumEdges())
	var numSamples, totalSampledNodes int
	for totalSampledNodes < numNodes*rw.sampleCoverage {
		nodeIDs := rw.sampleNodes(rng)
		_, edgeIDs := rw.graph.NodeSubgraph(nodeIDs)
		for _, node := range nodeIDs {
			nodeCount[node]++
		}
		for _, edgeID := range edgeIDs {
			edgeCount[edgeID]++
		}
		totalSampledNodes += len(nodeIDs)
		numSamples++
	}

	rw.edgeNorm = make([]float64, len(edgeCount))
	targets := rw.graph.Targets()
	for edgeID, count := range edgeCount {
		norm := nodeCount[targets[edgeID]] / count
		if count == 0 || math.IsInf(norm, 0) || math.IsNaN(norm) {
			norm = normDefault
		}
		rw.edgeNorm[edgeID] = norm
	}
	rw.nodeNorm = make([]float64, numNodes)
	for node, count := range nodeCount {
		norm := float64(numSamples) / count / float64(numNodes)
		if count == 0 || math.IsInf(norm, 0) || math.IsNaN(norm) {
			norm = normDefault
		}
		rw.nodeNorm[node] = norm
	}
	klog.V(1).Infof("%s: normalization estimated with %d samples (%d nodes sampled)",
		rw.name, numSamples, totalSampledNodes)
}

// NodeNorm returns the estimated node normalization coefficients of the sampled graph, or nil if
// the sample coverage is 0. It is only available after the first Yield.
func (rw *RandomWalk) NodeNorm() []float64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return slices.Clone(rw.nodeNorm)
}
