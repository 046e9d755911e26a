// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package reconstruct folds the client subgraphs of a federated dataset back into one global
// graph, expressed in the original node numbering, used for centralized evaluation.
package reconstruct

import (
	"fmt"

	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/loader"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GlobalID is the client id reserved for the global view.
const GlobalID = 0

// ReconstructionError is returned when a client subgraph can't be folded into the global graph.
type ReconstructionError struct {
	// ClientID of the malformed client subgraph.
	ClientID int

	// Reason describes what is wrong.
	Reason string
}

// Error implements error.
func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("failed to reconstruct global graph from client %d: %s", e.ClientID, e.Reason)
}

// accumulator holds the concatenated edges and edge attributes of the clients.
type accumulator struct {
	sources, targets   []int32
	edgeType           []int32
	train, valid, test []bool
}

// checkLengths verifies that all accumulated slices have the same length.
func (acc *accumulator) checkLengths(clientID int) error {
	numEdges := len(acc.sources)
	lengths := []struct {
		name string
		n    int
	}{
		{"edge index targets", len(acc.targets)},
		{"edge types", len(acc.edgeType)},
		{"train mask", len(acc.train)},
		{"valid mask", len(acc.valid)},
		{"test mask", len(acc.test)},
	}
	for _, l := range lengths {
		if l.n != numEdges {
			return &ReconstructionError{ClientID: clientID,
				Reason: fmt.Sprintf("accumulated %d %s for %d edges", l.n, l.name, numEdges)}
		}
	}
	return nil
}

// Reconstruct builds the global graph: a copy of global (which provides the node count and features)
// whose edges, edge types and train/valid/test masks are replaced by the concatenation of those of
// the clients, in ascending client id order, with the edge endpoints mapped to the original node ids
// through each client IndexOrig. The entry under GlobalID in clients, if any, is ignored.
//
// Neither global nor the client graphs are modified.
//
// It returns a *ReconstructionError if a client graph misses IndexOrig, edge types or masks, if the
// lengths of its edge attributes don't match, or if it maps to a node outside of global.
func Reconstruct(global *graphs.Graph, clients map[int]loader.Entry) (*graphs.Graph, error) {
	acc := &accumulator{}
	for _, clientID := range xslices.SortedKeys(clients) {
		if clientID == GlobalID {
			continue
		}
		client := clients[clientID].Graph()
		if client == nil {
			return nil, &ReconstructionError{ClientID: clientID, Reason: "client has no graph"}
		}
		if err := acc.append(clientID, client, global.NumNodes); err != nil {
			return nil, err
		}
		if err := acc.checkLengths(clientID); err != nil {
			return nil, err
		}
		klog.V(2).Infof("reconstruct: client %d contributed %d edges", clientID, client.NumEdges())
	}

	result := global.Clone()
	result.EdgeIndex = [2][]int32{acc.sources, acc.targets}
	result.EdgeType = acc.edgeType
	result.TrainEdgeMask = acc.train
	result.ValidEdgeMask = acc.valid
	result.TestEdgeMask = acc.test
	result.IndexOrig = nil
	if result.EdgeIndex[0] == nil {
		// No clients: keep the empty slices non-nil, so the result has (empty) masks and edge types.
		result.EdgeIndex = [2][]int32{{}, {}}
		result.EdgeType, result.TrainEdgeMask, result.ValidEdgeMask, result.TestEdgeMask = []int32{}, []bool{}, []bool{}, []bool{}
	}
	klog.V(1).Infof("reconstruct: global graph %s from %d clients", result, len(clients))
	return result, nil
}

// append translates the edges of the client to original node ids, and appends them with their attributes.
func (acc *accumulator) append(clientID int, client *graphs.Graph, numGlobalNodes int) error {
	switch {
	case client.IndexOrig == nil:
		return &ReconstructionError{ClientID: clientID, Reason: "client graph has no index_orig"}
	case len(client.IndexOrig) != client.NumNodes:
		return &ReconstructionError{ClientID: clientID,
			Reason: fmt.Sprintf("index_orig has %d entries for %d nodes", len(client.IndexOrig), client.NumNodes)}
	case client.EdgeType == nil:
		return &ReconstructionError{ClientID: clientID, Reason: "client graph has no edge types"}
	case !client.HasMasks():
		return &ReconstructionError{ClientID: clientID, Reason: "client graph is missing train/valid/test edge masks"}
	}
	for row, endpoints := range client.EdgeIndex {
		for _, local := range endpoints {
			if local < 0 || int(local) >= client.NumNodes {
				return &ReconstructionError{ClientID: clientID,
					Reason: fmt.Sprintf("edge endpoint %d out of range for %d nodes", local, client.NumNodes)}
			}
			orig := client.IndexOrig[local]
			if orig < 0 || int(orig) >= numGlobalNodes {
				return &ReconstructionError{ClientID: clientID,
					Reason: fmt.Sprintf("node %d maps to %d, outside of the %d global nodes", local, orig, numGlobalNodes)}
			}
			if row == 0 {
				acc.sources = append(acc.sources, orig)
			} else {
				acc.targets = append(acc.targets, orig)
			}
		}
	}
	acc.edgeType = append(acc.edgeType, client.EdgeType...)
	acc.train = append(acc.train, client.TrainEdgeMask...)
	acc.valid = append(acc.valid, client.ValidEdgeMask...)
	acc.test = append(acc.test, client.TestEdgeMask...)
	return nil
}

// CheckMasksDisjoint returns an error for the first edge of g marked in more than one of the
// train/valid/test masks, or nil if the masks are disjoint.
func CheckMasksDisjoint(g *graphs.Graph) error {
	for edgeID := range g.NumEdges() {
		numSet := 0
		for _, mask := range [][]bool{g.TrainEdgeMask, g.ValidEdgeMask, g.TestEdgeMask} {
			if edgeID < len(mask) && mask[edgeID] {
				numSet++
			}
		}
		if numSet > 1 {
			src, tgt := g.EdgeIndex[0][edgeID], g.EdgeIndex[1][edgeID]
			return errors.Errorf("edge %d (%d->%d) is in %d of the train/valid/test masks", edgeID, src, tgt, numSet)
		}
	}
	return nil
}
