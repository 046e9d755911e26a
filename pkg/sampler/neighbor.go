// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/fedgraph/internal/workerspool"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
)

// AllNeighbors as a fanout in Neighbor sizes takes every neighbor.
const AllNeighbors = -1

// Adj is the bipartite graph of one hop of a NeighborBatch.
type Adj struct {
	// EdgeIndex holds the sources (indices into the NodeIDs of the batch, row 0) and
	// targets (row 1) of the sampled edges.
	EdgeIndex [2][]int32

	// EdgeIDs are the ids of the sampled edges in the graph.
	EdgeIDs []int32

	// Size is the number of source and target nodes of the hop: the targets are the first
	// Size[1] NodeIDs of the batch, and the sources the first Size[0].
	Size [2]int
}

// NeighborBatch is one batch yielded by Neighbor.
type NeighborBatch struct {
	// BatchSize is the number of target nodes in the batch: the first BatchSize NodeIDs.
	BatchSize int

	// NodeIDs of all nodes required to compute the batch targets, targets first.
	NodeIDs []int32

	// Adjs has one bipartite graph per hop, the outermost hop first.
	Adjs []Adj
}

// Neighbor is a layer-wise neighbor sampler: it iterates over all the nodes of a graph in
// batches, and for each batch it samples, hop by hop, the in-neighbors required to compute
// the representation of the batch nodes.
//
// Create it with NewNeighbor.
type Neighbor struct {
	name       string
	graph      *graphs.Graph
	adj        *Adjacency
	sizes      []int
	batchSize  int
	shuffle    bool
	numWorkers int
	seed       uint64

	mu          sync.Mutex
	frozen      bool
	epoch, next int
	order       []int32
}

var _ Dataset[*NeighborBatch] = (*Neighbor)(nil)

// NewNeighbor creates a neighbor sampler over g. Each value in sizes is the fanout of one hop:
// the number of in-neighbors sampled (without replacement) per node, or AllNeighbors.
func NewNeighbor(g *graphs.Graph, sizes []int, batchSize int) *Neighbor {
	if batchSize <= 0 {
		exceptions.Panicf("NewNeighbor: batchSize must be > 0, got %d", batchSize)
	}
	for _, size := range sizes {
		if size < 0 && size != AllNeighbors {
			exceptions.Panicf("NewNeighbor: invalid fanout %d in sizes %v", size, sizes)
		}
	}
	return &Neighbor{
		name:      "neighbor",
		graph:     g,
		adj:       NewAdjacency(g.NumNodes, g.EdgeIndex, true),
		sizes:     sizes,
		batchSize: batchSize,
	}
}

func (ns *Neighbor) checkNotFrozen() {
	if ns.frozen {
		exceptions.Panicf("cannot change a Neighbor sampler that has already started yielding results")
	}
}

// WithShuffle configures the sampler to visit the nodes in a random order, different for each epoch.
func (ns *Neighbor) WithShuffle(shuffle bool) *Neighbor {
	ns.checkNotFrozen()
	ns.shuffle = shuffle
	return ns
}

// WithNumWorkers sets the number of goroutines used by Batches. 0 means no parallelism.
func (ns *Neighbor) WithNumWorkers(numWorkers int) *Neighbor {
	ns.numWorkers = numWorkers
	return ns
}

// WithSeed sets the seed used for shuffling and sampling.
func (ns *Neighbor) WithSeed(seed uint64) *Neighbor {
	ns.checkNotFrozen()
	ns.seed = seed
	return ns
}

// WithName sets the name of the sampler.
func (ns *Neighbor) WithName(name string) *Neighbor {
	ns.name = name
	return ns
}

// Name implements Dataset.
func (ns *Neighbor) Name() string { return ns.name }

// Graph returns the sampled graph.
func (ns *Neighbor) Graph() *graphs.Graph { return ns.graph }

// NumBatches returns the number of batches per epoch.
func (ns *Neighbor) NumBatches() int {
	return (ns.graph.NumNodes + ns.batchSize - 1) / ns.batchSize
}

// String implements fmt.Stringer.
func (ns *Neighbor) String() string {
	return fmt.Sprintf("Neighbor(sizes %v, batch size %d, %d batches, shuffle=%v)",
		ns.sizes, ns.batchSize, ns.NumBatches(), ns.shuffle)
}

// Reset implements Dataset.
func (ns *Neighbor) Reset() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.order != nil {
		ns.epoch++
	}
	ns.next = 0
	ns.order = nil
}

// epochOrder returns the order in which nodes are visited in the given epoch.
func (ns *Neighbor) epochOrder(epoch int) []int32 {
	order := xslices.Iota(int32(0), ns.graph.NumNodes)
	if ns.shuffle {
		rng := newRand(ns.seed, uint64(epoch))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

// Yield implements Dataset.
func (ns *Neighbor) Yield() (batch *NeighborBatch, err error) {
	ns.mu.Lock()
	ns.frozen = true
	if ns.order == nil {
		ns.order = ns.epochOrder(ns.epoch)
	}
	batchIdx := ns.next
	if batchIdx >= ns.NumBatches() {
		ns.mu.Unlock()
		err = io.EOF
		return
	}
	ns.next++
	order, epoch := ns.order, ns.epoch
	ns.mu.Unlock()

	// Sampling doesn't require the lock.
	batch = ns.sampleBatch(order, epoch, batchIdx)
	return
}

// Batches returns all the batches of the first epoch, computed in parallel with up to numWorkers
// goroutines (see WithNumWorkers). They are the same batches yielded by the first epoch of Yield.
func (ns *Neighbor) Batches() []*NeighborBatch {
	ns.mu.Lock()
	ns.frozen = true
	ns.mu.Unlock()
	order := ns.epochOrder(0)
	batches := make([]*NeighborBatch, ns.NumBatches())
	pool := workerspool.New().SetMaxParallelism(ns.numWorkers)
	pool.RunAll(len(batches), func(batchIdx int) {
		batches[batchIdx] = ns.sampleBatch(order, 0, batchIdx)
	})
	return batches
}

// sampleBatch samples the batchIdx batch of nodes of order. The random stream depends only
// on the epoch and batch index, so batches can be sampled in any order.
func (ns *Neighbor) sampleBatch(order []int32, epoch, batchIdx int) *NeighborBatch {
	start := batchIdx * ns.batchSize
	end := min(start+ns.batchSize, len(order))
	nodeIDs := slices.Clone(order[start:end])
	batch := &NeighborBatch{BatchSize: len(nodeIDs)}
	rng := newRand(ns.seed, (uint64(epoch)<<32)|uint64(batchIdx+1))

	var sampled []int32 // reused buffer of sampled positions.
	adjs := make([]Adj, len(ns.sizes))
	for hop, size := range ns.sizes {
		toLocal := make(map[int32]int32, len(nodeIDs))
		for ii, node := range nodeIDs {
			toLocal[node] = int32(ii)
		}
		numTargets := len(nodeIDs)
		var adj Adj
		for targetIdx := range numTargets {
			neighbors, edgeIDs := ns.adj.NeighborsOf(nodeIDs[targetIdx])
			take := func(pos int) {
				source := neighbors[pos]
				localSource, found := toLocal[source]
				if !found {
					localSource = int32(len(nodeIDs))
					toLocal[source] = localSource
					nodeIDs = append(nodeIDs, source)
				}
				adj.EdgeIndex[0] = append(adj.EdgeIndex[0], localSource)
				adj.EdgeIndex[1] = append(adj.EdgeIndex[1], int32(targetIdx))
				adj.EdgeIDs = append(adj.EdgeIDs, edgeIDs[pos])
			}
			if size == AllNeighbors || len(neighbors) <= size {
				for pos := range neighbors {
					take(pos)
				}
				continue
			}
			if cap(sampled) < size {
				sampled = make([]int32, size)
			}
			sampled = sampled[:size]
			randKOfN(rng, sampled, len(neighbors))
			for _, pos := range sampled {
				take(int(pos))
			}
		}
		adj.Size = [2]int{len(nodeIDs), numTargets}
		// Outermost hop first.
		adjs[len(ns.sizes)-1-hop] = adj
	}
	batch.NodeIDs = nodeIDs
	batch.Adjs = adjs
	return batch
}
