// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splitter

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/support/sets"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
	"gonum.org/v1/gonum/stat/distmv"
	"k8s.io/klog/v2"
)

// MaxAttempts is the number of times the Dirichlet allocation is redrawn trying to give every
// client at least the minimum number of edges.
var MaxAttempts = 1000

// RelType splits the edges of a graph among clients by relation (edge) type, with a non-IID
// allocation: for each relation type the proportion of its edges given to each client is drawn
// from a symmetric Dirichlet distribution with concentration alpha.
//
// Lower alpha values concentrate each relation type in fewer clients (more skew), higher values
// approach a uniform allocation.
//
// Create it with NewRelType and configure it with the With* methods.
type RelType struct {
	clientNum   int
	alpha       float64
	seed        uint64
	minSize     int
	reallocMask bool
}

// NewRelType creates a relation-type splitter for clientNum clients with skew coefficient alpha.
// By default, seed is 0 and each client must receive at least 1 edge.
func NewRelType(clientNum int, alpha float64) *RelType {
	return &RelType{
		clientNum: clientNum,
		alpha:     alpha,
		minSize:   1,
	}
}

// WithSeed sets the seed of the random number generator. Splits are deterministic for a given seed.
func (s *RelType) WithSeed(seed uint64) *RelType {
	s.seed = seed
	return s
}

// WithMinSize sets the minimum number of edges each client must receive. Default is 1.
func (s *RelType) WithMinSize(minSize int) *RelType {
	s.minSize = minSize
	return s
}

// WithReallocMask sets whether the train/valid/test masks are redrawn before splitting, keeping
// the ratios of the source graph (or 80%/10%/10% if it has no masks) over a random permutation
// of its edges.
func (s *RelType) WithReallocMask(reallocMask bool) *RelType {
	s.reallocMask = reallocMask
	return s
}

// String implements fmt.Stringer.
func (s *RelType) String() string {
	return fmt.Sprintf("RelType(clients=%d, alpha=%g, seed=%d)", s.clientNum, s.alpha, s.seed)
}

// Split implements Splitter.
func (s *RelType) Split(g *graphs.Graph) ([]*graphs.Graph, error) {
	if s.clientNum <= 0 {
		return nil, &config.ConfigurationError{Field: "federate.client_num",
			Reason: fmt.Sprintf("relation-type splitter requires a positive number of clients, got %d", s.clientNum)}
	}
	if !(s.alpha > 0) {
		return nil, &config.ConfigurationError{Field: "splitter.alpha",
			Reason: fmt.Sprintf("skew coefficient must be > 0, got %g", s.alpha)}
	}
	if g.EdgeType == nil {
		return nil, &config.ConfigurationError{Field: "data.splitter",
			Reason: "relation-type splitter requires a graph with edge types"}
	}
	numTypes := len(sets.MakeWith(g.EdgeType...))
	if s.clientNum > numTypes {
		return nil, &config.ConfigurationError{Field: "federate.client_num",
			Reason: fmt.Sprintf("%d clients requested, but the graph has only %d relation types", s.clientNum, numTypes)}
	}

	rng := rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	source := g
	if s.reallocMask {
		source = withReallocatedMasks(g, rng)
	}
	clientEdgeIDs, err := s.allocate(g.EdgeType, rng)
	if err != nil {
		return nil, err
	}
	clients := make([]*graphs.Graph, s.clientNum)
	for clientIdx, edgeIDs := range clientEdgeIDs {
		clients[clientIdx] = source.EdgeSubgraph(edgeIDs)
		klog.V(2).Infof("rel_type splitter: client %d: %s", clientIdx+1, clients[clientIdx])
	}
	return clients, nil
}

// allocate returns the edge ids (sorted) of each client.
func (s *RelType) allocate(labels []int32, rng *rand.Rand) ([][]int32, error) {
	numEdges := len(labels)
	byLabel := make(map[int32][]int32)
	for edgeID, label := range labels {
		byLabel[label] = append(byLabel[label], int32(edgeID))
	}
	sortedLabels := xslices.SortedKeys(byLabel)
	dirichlet := distmv.NewDirichlet(slices.Repeat([]float64{s.alpha}, s.clientNum), rng)
	balanceLimit := float64(numEdges) / float64(s.clientNum)

	for attempt := range MaxAttempts {
		clientEdges := make([][]int32, s.clientNum)
		for _, label := range sortedLabels {
			edgeIDs := slices.Clone(byLabel[label])
			rng.Shuffle(len(edgeIDs), func(i, j int) { edgeIDs[i], edgeIDs[j] = edgeIDs[j], edgeIDs[i] })
			proportions := dirichlet.Rand(nil)
			balance(proportions, clientEdges, balanceLimit)
			for clientIdx, part := range splitByProportions(edgeIDs, proportions) {
				clientEdges[clientIdx] = append(clientEdges[clientIdx], part...)
			}
		}
		smallest := slices.MinFunc(clientEdges, func(a, b []int32) int { return len(a) - len(b) })
		if len(smallest) >= s.minSize {
			for _, edgeIDs := range clientEdges {
				slices.Sort(edgeIDs)
			}
			klog.V(1).Infof("rel_type splitter: %d edges of %d relation types split among %d clients after %d attempt(s)",
				numEdges, len(sortedLabels), s.clientNum, attempt+1)
			return clientEdges, nil
		}
	}
	return nil, &config.ConfigurationError{Field: "federate.client_num",
		Reason: fmt.Sprintf("failed to give every one of %d clients at least %d edges after %d attempts (alpha=%g)",
			s.clientNum, s.minSize, MaxAttempts, s.alpha)}
}

// balance zeroes the proportions of the clients that already hold at least limit edges, and
// normalizes the remaining ones to sum to 1.
func balance(proportions []float64, clientEdges [][]int32, limit float64) {
	var sum float64
	for clientIdx := range proportions {
		if float64(len(clientEdges[clientIdx])) >= limit || math.IsNaN(proportions[clientIdx]) {
			proportions[clientIdx] = 0
		}
		sum += proportions[clientIdx]
	}
	if sum == 0 {
		// All draws underflowed: split uniformly among the clients below the limit.
		for clientIdx := range proportions {
			if float64(len(clientEdges[clientIdx])) < limit {
				proportions[clientIdx] = 1
				sum++
			}
		}
	}
	for clientIdx := range proportions {
		proportions[clientIdx] /= sum
	}
}

// splitByProportions cuts ids into len(proportions) consecutive parts, with the cut points at
// floor(cumsum(proportions) * len(ids)). The last part takes the remainder.
func splitByProportions(ids []int32, proportions []float64) [][]int32 {
	parts := make([][]int32, len(proportions))
	start := 0
	for ii, cum := range xslices.CumSum(proportions) {
		end := len(ids)
		if ii < len(proportions)-1 {
			end = min(max(int(cum*float64(len(ids))), start), len(ids))
		}
		parts[ii] = ids[start:end]
		start = end
	}
	return parts
}

// reallocRatios are the train/valid/test ratios used when reallocating the masks of a graph without masks.
var reallocRatios = [3]float64{0.8, 0.1, 0.1}

// withReallocatedMasks returns a shallow copy of g with new train/valid/test masks drawn over a
// random permutation of the edges, keeping the ratios of g.
func withReallocatedMasks(g *graphs.Graph, rng *rand.Rand) *graphs.Graph {
	numEdges := g.NumEdges()
	ratios := reallocRatios
	if g.HasMasks() && numEdges > 0 {
		train, valid, test := g.CountMasks()
		total := float64(train + valid + test)
		if total > 0 {
			ratios = [3]float64{float64(train) / total, float64(valid) / total, float64(test) / total}
		}
	}
	numTrain := int(math.Round(ratios[0] * float64(numEdges)))
	numValid := min(int(math.Round(ratios[1]*float64(numEdges))), numEdges-numTrain)
	g2 := *g
	g2.TrainEdgeMask = make([]bool, numEdges)
	g2.ValidEdgeMask = make([]bool, numEdges)
	g2.TestEdgeMask = make([]bool, numEdges)
	for ii, edgeID := range rng.Perm(numEdges) {
		switch {
		case ii < numTrain:
			g2.TrainEdgeMask[edgeID] = true
		case ii < numTrain+numValid:
			g2.ValidEdgeMask[edgeID] = true
		default:
			g2.TestEdgeMask[edgeID] = true
		}
	}
	return &g2
}
