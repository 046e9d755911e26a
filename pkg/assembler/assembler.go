// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package assembler builds the per-client data of a federated link-prediction experiment.
//
// Assemble opens the configured dataset, partitions it among the clients (or takes the
// partition the dataset comes with), adapts each client graph for training, and reconstructs the
// global evaluation graph from the clients. The result maps client ids to their data: ids 1..N
// are the clients and id 0 is the global graph.
package assembler

import (
	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/datasets"
	"github.com/gomlx/fedgraph/pkg/loader"
	"github.com/gomlx/fedgraph/pkg/reconstruct"
	"github.com/gomlx/fedgraph/pkg/splitter"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ClientData maps client ids to their data. Id reconstruct.GlobalID (0) holds the global graph,
// and ids 1..N the clients.
type ClientData map[int]loader.Entry

// NumClients returns the number of clients, not counting the global entry.
func (d ClientData) NumClients() int {
	if _, found := d[reconstruct.GlobalID]; found {
		return len(d) - 1
	}
	return len(d)
}

// Global returns the global entry, if present.
func (d ClientData) Global() (entry loader.Entry, found bool) {
	entry, found = d[reconstruct.GlobalID]
	return
}

// Option of Assemble.
type Option func(a *assembler)

// WithRegistry sets the registry used to look up the dataset. The default is datasets.Default().
func WithRegistry(registry *datasets.Registry) Option {
	return func(a *assembler) {
		a.registry = registry
	}
}

type assembler struct {
	cfg          *config.Config
	registry     *datasets.Registry
	transform    graphs.Transform
	preTransform graphs.Transform
}

// Assemble the client data configured in cfg.
//
// It returns the client data and a copy of cfg with federate.client_num set to the number of
// clients actually assembled: the number of client graphs available, limited by the configured
// federate.client_num if it is > 0. cfg itself is not modified.
//
// Errors are returned as:
//   - *config.ConfigurationError for invalid configurations, transform or splitter names.
//   - *datasets.UnknownDatasetError if no family serves data.type.
//   - *loader.UnsupportedLoaderError for an unknown data.loader.
//   - *reconstruct.ReconstructionError if the clients can't be folded back into the global graph.
func Assemble(cfg *config.Config, opts ...Option) (ClientData, *config.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	a := &assembler{cfg: cfg.Clone()}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = datasets.Default()
	}
	var err error
	if a.transform, err = transformByName(cfg.Data.Transforms); err != nil {
		return nil, nil, err
	}
	if a.preTransform, err = preTransformByName(cfg.Data.PreTransforms); err != nil {
		return nil, nil, err
	}
	return a.assemble()
}

func (a *assembler) assemble() (ClientData, *config.Config, error) {
	cfg := a.cfg
	family, err := a.registry.Lookup(cfg.Data.Type)
	if err != nil {
		return nil, nil, err
	}
	src, err := family.Open(datasets.OptionsFromConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	global := a.applyTransforms(src.Global)
	var clients []*graphs.Graph
	if family.NeedsSplit {
		if global == nil {
			return nil, nil, errors.Errorf("dataset %q of family %q has no global graph to split", cfg.Data.Type, family.Name)
		}
		clients, err = a.split(global)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "failed to partition dataset %q", cfg.Data.Type)
		}
	} else {
		clients = xslices.Map(src.Clients, a.applyTransforms)
	}

	numClients := len(clients)
	if cfg.Federate.ClientNum > 0 {
		numClients = min(numClients, cfg.Federate.ClientNum)
	}
	klog.V(1).Infof("%s: %d client graphs available, using %d", cfg.Data.Type, len(clients), numClients)

	mode := loader.Mode(cfg.Data.Loader)
	params := loader.ParamsFromConfig(cfg)
	data := make(ClientData, numClients+1)
	for clientIdx, client := range clients[:numClients] {
		clientID := clientIdx + 1
		if client.NumEdges() == 0 {
			klog.Warningf("%s: client %d has no edges", cfg.Data.Type, clientID)
		}
		entry, err := loader.Adapt(client, mode, params)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "client %d", clientID)
		}
		data[clientID] = entry
		klog.V(1).Infof("%s: client %d: %s", cfg.Data.Type, clientID, entry)
	}

	if global != nil {
		reconstructed, err := reconstruct.Reconstruct(global, data)
		if err != nil {
			return nil, nil, err
		}
		entry, err := loader.Adapt(reconstructed, mode, params)
		if err != nil {
			return nil, nil, errors.WithMessage(err, "global graph")
		}
		data[reconstruct.GlobalID] = entry
		klog.V(1).Infof("%s: global: %s", cfg.Data.Type, entry)
	}
	return data, cfg.WithClientNum(numClients), nil
}

// applyTransforms applies the pre-transform and then the transform to g. A nil g is returned as is.
func (a *assembler) applyTransforms(g *graphs.Graph) *graphs.Graph {
	if g == nil {
		return nil
	}
	return graphs.Compose(a.preTransform, a.transform).Apply(g)
}

// split partitions global with the configured splitter. Without a splitter the whole graph
// is the only client.
func (a *assembler) split(global *graphs.Graph) ([]*graphs.Graph, error) {
	s, err := splitter.New(a.cfg.Data.Splitter, a.cfg.Federate.ClientNum, a.cfg.Seed)
	if err != nil {
		return nil, err
	}
	if s == nil {
		whole := global.Clone()
		whole.IndexOrig = xslices.Iota(int32(0), global.NumNodes)
		return []*graphs.Graph{whole}, nil
	}
	klog.V(1).Infof("%s: partitioning %s with %s", a.cfg.Data.Type, global, s)
	return s.Split(global.Clone())
}
