// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package datasets reads the relational datasets used for federated link prediction.
//
// Datasets are grouped in families (knowledge graphs, recommendation systems), registered in a
// Registry and looked up by dataset name. A family either returns the global graph to be
// partitioned by a splitter, or the graph already partitioned in one graph per client.
package datasets

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
)

// Options used to open a dataset.
type Options struct {
	// Root directory of the datasets. Each dataset is stored in the sub-directory with its name.
	Root string

	// Name of the dataset, lower case.
	Name string

	// Splits are the train/valid/test ratios, used by families that split the edges randomly.
	Splits []float64

	// Seed for the random splits.
	Seed uint64

	// Download the dataset if it is missing.
	Download bool
}

// OptionsFromConfig returns the Options to open the dataset configured in cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:     cfg.Data.Root,
		Name:     strings.ToLower(cfg.Data.Type),
		Splits:   slices.Clone(cfg.Data.Splits),
		Seed:     cfg.Seed,
		Download: cfg.Data.Download,
	}
}

// Source is an opened dataset.
type Source struct {
	// Global is the whole (unpartitioned) graph. It may be nil if the family has no global view.
	Global *graphs.Graph

	// Clients holds the per-client graphs of families that come already partitioned.
	Clients []*graphs.Graph
}

// Family of datasets that share the same format.
type Family struct {
	// Name of the family, e.g. "kg".
	Name string

	// Datasets are the (lower case) names of the datasets of the family.
	Datasets []string

	// NeedsSplit is true if the family returns only the Global graph, to be partitioned with a splitter.
	NeedsSplit bool

	// Open the dataset named in the options.
	Open func(opts Options) (*Source, error)
}

// UnknownDatasetError is returned when a dataset name is not served by any registered family.
type UnknownDatasetError struct {
	Name string
}

// Error implements error.
func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("no dataset named %q", e.Name)
}

// Registry of dataset families, indexed by dataset name.
type Registry struct {
	mu        sync.Mutex
	byDataset map[string]*Family
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byDataset: make(map[string]*Family)}
}

// Register a family. It returns a *config.ConfigurationError if the family is incomplete, or if one of
// its dataset names is already registered.
func (r *Registry) Register(family *Family) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if family.Open == nil || len(family.Datasets) == 0 {
		return &config.ConfigurationError{Field: "datasets",
			Reason: fmt.Sprintf("dataset family %q must define Open and at least one dataset name", family.Name)}
	}
	for _, name := range family.Datasets {
		name = strings.ToLower(name)
		if previous, found := r.byDataset[name]; found {
			return &config.ConfigurationError{Field: "datasets",
				Reason: fmt.Sprintf("dataset %q of family %q already registered by family %q", name, family.Name, previous.Name)}
		}
	}
	for _, name := range family.Datasets {
		r.byDataset[strings.ToLower(name)] = family
	}
	return nil
}

// Lookup returns the family serving the dataset name (case-insensitive), or an *UnknownDatasetError.
func (r *Registry) Lookup(name string) (*Family, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	family, found := r.byDataset[strings.ToLower(name)]
	if !found {
		return nil, &UnknownDatasetError{Name: name}
	}
	return family, nil
}

// Names returns the sorted names of all registered datasets.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return xslices.SortedKeys(r.byDataset)
}

// Default returns the registry with the knowledge-graph and recommendation-system families.
var Default = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	for _, family := range []*Family{KGFamily(), RecSysFamily()} {
		if err := r.Register(family); err != nil {
			panic(err)
		}
	}
	return r
})
