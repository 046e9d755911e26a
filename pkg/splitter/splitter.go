// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package splitter partitions a source graph into per-client subgraphs for federated learning.
//
// Each client subgraph is an edge-induced subgraph of the source, with IndexOrig mapping its
// local nodes back to the source node ids.
package splitter

import (
	"fmt"

	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
)

// Splitter partitions a graph into client subgraphs.
type Splitter interface {
	// Split returns one subgraph per client. The edges of the source are a disjoint cover of
	// the edges of the returned subgraphs.
	Split(g *graphs.Graph) ([]*graphs.Graph, error)
}

const (
	// NameRelType is the configuration name of the relation-type splitter.
	NameRelType = "rel_type"

	// DefaultAlpha is the skew coefficient used by New.
	DefaultAlpha = 0.5
)

// New returns the splitter configured by name, or nil if name is "" (no splitting).
// It returns a *config.ConfigurationError for unknown names.
func New(name string, clientNum int, seed uint64) (Splitter, error) {
	switch name {
	case "":
		return nil, nil
	case NameRelType:
		return NewRelType(clientNum, DefaultAlpha).WithSeed(seed), nil
	default:
		return nil, &config.ConfigurationError{Field: "data.splitter",
			Reason: fmt.Sprintf("unknown splitter %q, valid values are \"\" or %q", name, NameRelType)}
	}
}
