// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package assembler

import (
	"testing"

	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/datasets"
	"github.com/gomlx/fedgraph/pkg/loader"
	"github.com/gomlx/fedgraph/pkg/reconstruct"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toyConfig() *config.Config {
	cfg := config.Default()
	cfg.Data.Type = "toy"
	cfg.Data.Splitter = "rel_type"
	cfg.Federate.ClientNum = 2
	cfg.Seed = 42
	return cfg
}

func TestAssembleRelType(t *testing.T) {
	cfg := toyConfig()
	data, newCfg, err := Assemble(cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, xslices.SortedKeys(data))
	assert.Equal(t, 2, data.NumClients())
	assert.Equal(t, 2, newCfg.Federate.ClientNum)

	var clientEdges int
	for _, clientID := range []int{1, 2} {
		entry := data[clientID]
		assert.False(t, entry.IsSampled())
		client := entry.Graph()
		require.NoError(t, client.Validate())
		assert.NotNil(t, client.IndexOrig)
		clientEdges += client.NumEdges()
	}
	assert.Equal(t, 10, clientEdges)

	global, found := data.Global()
	require.True(t, found)
	g := global.Graph()
	require.NoError(t, g.Validate())
	assert.Equal(t, 10, g.NumEdges())
	assert.Equal(t, 8, g.NumNodes)
	assert.Nil(t, g.IndexOrig)
	require.NoError(t, reconstruct.CheckMasksDisjoint(g))
	train, valid, test := g.CountMasks()
	assert.Equal(t, []int{6, 2, 2}, []int{train, valid, test})

	// Same configuration, same result.
	data2, _, err := Assemble(cfg)
	require.NoError(t, err)
	for clientID, entry := range data {
		assert.True(t, entry.Graph().Equal(data2[clientID].Graph()), "client %d", clientID)
	}
}

func TestAssembleNoSplitter(t *testing.T) {
	cfg := toyConfig()
	cfg.Data.Splitter = ""
	cfg.Federate.ClientNum = 0
	data, newCfg, err := Assemble(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, newCfg.Federate.ClientNum)
	require.Len(t, data, 2)
	toy := datasets.ToyKG()
	assert.Equal(t, toy.EdgeIndex, data[1].Graph().EdgeIndex)
	assert.Equal(t, xslices.Iota(int32(0), toy.NumNodes), data[1].Graph().IndexOrig)
	assert.Equal(t, toy.EdgeIndex, data[0].Graph().EdgeIndex)
	assert.Equal(t, toy.TestEdgeMask, data[0].Graph().TestEdgeMask)
}

func TestAssembleSampled(t *testing.T) {
	cfg := toyConfig()
	cfg.Data.Loader = "graphsaint-rw"
	cfg.Data.BatchSize = 2
	data, _, err := Assemble(cfg)
	require.NoError(t, err)
	require.Len(t, data, 3)
	for clientID, entry := range data {
		require.True(t, entry.IsSampled(), "client %d", clientID)
		bundle := entry.Bundle()
		assert.Same(t, bundle.Val, bundle.Test)
		assert.Same(t, entry.Graph(), bundle.Data)
	}
	assert.Equal(t, 10, data[0].Graph().NumEdges())
}

func TestAssembleTransforms(t *testing.T) {
	cfg := toyConfig()
	cfg.Data.PreTransforms = "degree_feat"
	cfg.Data.Transforms = "normalize_feat"
	data, _, err := Assemble(cfg)
	require.NoError(t, err)
	for clientID, entry := range data {
		g := entry.Graph()
		require.NotNil(t, g.X, "client %d", clientID)
		rows, cols := g.X.Dims()
		assert.Equal(t, g.NumNodes, rows)
		assert.Equal(t, MaxDegree+1, cols)
	}

	cfg.Data.PreTransforms = "bogus_feat"
	_, _, err = Assemble(cfg)
	assert.True(t, config.IsConfigurationError(err))
	cfg.Data.PreTransforms = ""
	cfg.Data.Transforms = "bogus"
	_, _, err = Assemble(cfg)
	assert.True(t, config.IsConfigurationError(err))
}

// partitionedFamily returns a registry with a family "five" that comes partitioned in 5 clients
// of 2 edges each, taken from the toy graph.
func partitionedFamily(t *testing.T) *datasets.Registry {
	registry := datasets.NewRegistry()
	err := registry.Register(&datasets.Family{
		Name:     "partitioned",
		Datasets: []string{"five"},
		Open: func(opts datasets.Options) (*datasets.Source, error) {
			global := datasets.ToyKG()
			src := &datasets.Source{Global: global}
			for ii := range 5 {
				src.Clients = append(src.Clients, global.EdgeSubgraph([]int32{int32(2 * ii), int32(2*ii + 1)}))
			}
			return src, nil
		},
	})
	require.NoError(t, err)
	return registry
}

func TestClientCountResolution(t *testing.T) {
	registry := partitionedFamily(t)
	for _, tc := range []struct {
		configured, want int
	}{
		{0, 5},
		{3, 3},
		{5, 5},
		{7, 5},
	} {
		cfg := config.Default()
		cfg.Data.Type = "five"
		cfg.Federate.ClientNum = tc.configured
		data, newCfg, err := Assemble(cfg, WithRegistry(registry))
		require.NoError(t, err)
		assert.Equal(t, tc.want, newCfg.Federate.ClientNum, "configured %d", tc.configured)
		assert.Equal(t, tc.want, data.NumClients())
		assert.Equal(t, 2*tc.want, data[0].Graph().NumEdges(), "only the first %d clients are reconstructed", tc.want)
		assert.Equal(t, tc.configured, cfg.Federate.ClientNum, "input configuration must not change")
	}
}

func TestAssembleSplitIgnoresSourceClients(t *testing.T) {
	registry := datasets.NewRegistry()
	require.NoError(t, registry.Register(&datasets.Family{
		Name:       "split",
		Datasets:   []string{"split-with-clients"},
		NeedsSplit: true,
		Open: func(opts datasets.Options) (*datasets.Source, error) {
			// The extra client is malformed: computing its degrees would panic.
			broken := &graphs.Graph{NumNodes: 1, EdgeIndex: [2][]int32{{5}, {0}}}
			return &datasets.Source{Global: datasets.ToyKG(), Clients: []*graphs.Graph{broken}}, nil
		},
	}))
	cfg := toyConfig()
	cfg.Data.Type = "split-with-clients"
	cfg.Data.PreTransforms = "degree_feat"
	var data ClientData
	var err error
	require.NotPanics(t, func() { data, _, err = Assemble(cfg, WithRegistry(registry)) })
	require.NoError(t, err)
	assert.Equal(t, 2, data.NumClients())
	assert.Equal(t, 10, data[0].Graph().NumEdges())
}

func TestAssembleErrors(t *testing.T) {
	cfg := toyConfig()
	cfg.Data.Type = "not-a-real-dataset"
	_, _, err := Assemble(cfg)
	var unknownErr *datasets.UnknownDatasetError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "not-a-real-dataset", unknownErr.Name)

	cfg = toyConfig()
	cfg.Data.Loader = "bogus"
	_, _, err = Assemble(cfg)
	var loaderErr *loader.UnsupportedLoaderError
	require.ErrorAs(t, err, &loaderErr)
	assert.ErrorContains(t, err, "bogus")

	cfg = toyConfig()
	cfg.Federate.ClientNum = 3 // Only 2 relation types.
	_, _, err = Assemble(cfg)
	assert.True(t, config.IsConfigurationError(err))

	cfg = toyConfig()
	cfg.Data.Splitter = "louvain"
	_, _, err = Assemble(cfg)
	assert.True(t, config.IsConfigurationError(err))

	cfg = toyConfig()
	cfg.Federate.ClientNum = -1
	_, _, err = Assemble(cfg)
	assert.True(t, config.IsConfigurationError(err))
}

func TestClientData(t *testing.T) {
	data := ClientData{1: loader.GraphOnly(&graphs.Graph{})}
	assert.Equal(t, 1, data.NumClients())
	_, found := data.Global()
	assert.False(t, found)
}
