// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"os"
	"path"
	"strings"
	"testing"

	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"ciao", "epinions", "fb15k", "fb15k-237", "toy", "wn18"}, r.Names())

	family, err := r.Lookup("FB15k-237")
	require.NoError(t, err)
	assert.Equal(t, "kg", family.Name)
	assert.True(t, family.NeedsSplit)

	family, err = r.Lookup("ciao")
	require.NoError(t, err)
	assert.False(t, family.NeedsSplit)

	_, err = r.Lookup("not-a-real-dataset")
	var unknownErr *UnknownDatasetError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "not-a-real-dataset", unknownErr.Name)

	err = r.Register(&Family{Name: "again", Datasets: []string{"Toy"}, Open: openKG})
	assert.True(t, config.IsConfigurationError(err))
	err = r.Register(&Family{Name: "empty"})
	assert.True(t, config.IsConfigurationError(err))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Type = "WN18"
	cfg.Seed = 11
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "wn18", opts.Name)
	assert.Equal(t, uint64(11), opts.Seed)
	opts.Splits[0] = 0
	assert.Equal(t, 0.8, cfg.Data.Splits[0])
}

func TestToy(t *testing.T) {
	family, err := Default().Lookup(ToyName)
	require.NoError(t, err)
	src, err := family.Open(Options{Name: ToyName})
	require.NoError(t, err)
	require.NoError(t, src.Global.Validate())
	assert.Empty(t, src.Clients)
	assert.Equal(t, 8, src.Global.NumNodes)
	assert.Equal(t, 10, src.Global.NumEdges())
	train, valid, test := src.Global.CountMasks()
	assert.Equal(t, []int{6, 2, 2}, []int{train, valid, test})
}

// writeKG writes a small knowledge graph in the raw format, with numeric names that have
// leading zeros, as in WN18.
func writeKG(t *testing.T, rawDir string) {
	require.NoError(t, os.MkdirAll(rawDir, 0777))
	files := map[string]string{
		EntitiesFile:  "0\t00001\n1\t00002\n2\t00003\n3\t01\n",
		RelationsFile: "0\t_hypernym\n1\t_part_of\n",
		"train.txt":   "00001\t_hypernym\t00002\n00002\t_part_of\t00003\n00003\t_hypernym\t01\n",
		"valid.txt":   "01\t_part_of\t00001\n",
		"test.txt":    "00001\t_part_of\t00003\n",
	}
	for name, contents := range files {
		require.NoError(t, os.WriteFile(path.Join(rawDir, name), []byte(contents), 0644))
	}
}

func TestReadKG(t *testing.T) {
	rawDir := path.Join(t.TempDir(), "raw")
	writeKG(t, rawDir)
	g, err := ReadKG(rawDir)
	require.NoError(t, err)
	assert.Equal(t, 4, g.NumNodes)
	assert.Equal(t, [2][]int32{{0, 1, 2, 3, 0}, {1, 2, 3, 0, 2}}, g.EdgeIndex)
	assert.Equal(t, []int32{0, 1, 0, 1, 1}, g.EdgeType)
	assert.Equal(t, []bool{true, true, true, false, false}, g.TrainEdgeMask)
	assert.Equal(t, []bool{false, false, false, true, false}, g.ValidEdgeMask)
	assert.Equal(t, []bool{false, false, false, false, true}, g.TestEdgeMask)

	require.NoError(t, os.WriteFile(path.Join(rawDir, "test.txt"), []byte("00001\t_unknown\t00003\n"), 0644))
	_, err = ReadKG(rawDir)
	assert.ErrorContains(t, err, "unknown entity or relation")
}

func TestReadKGMissingValueNames(t *testing.T) {
	rawDir := path.Join(t.TempDir(), "raw")
	writeKG(t, rawDir)
	require.NoError(t, os.WriteFile(path.Join(rawDir, EntitiesFile), []byte("0\t00001\n1\t00002\n2\t00003\n3\tNA\n"), 0644))
	require.NoError(t, os.WriteFile(path.Join(rawDir, "train.txt"),
		[]byte("00001\t_hypernym\t00002\n00002\t_part_of\t00003\n00003\t_hypernym\tNA\n"), 0644))
	require.NoError(t, os.WriteFile(path.Join(rawDir, "valid.txt"), []byte("NA\t_part_of\t00001\n"), 0644))
	g, err := ReadKG(rawDir)
	require.NoError(t, err)
	assert.Equal(t, [2][]int32{{0, 1, 2, 3, 0}, {1, 2, 3, 0, 2}}, g.EdgeIndex)
}

func TestOpenKGCached(t *testing.T) {
	opts := Options{Root: t.TempDir(), Name: "wn18"}
	rawDir, err := RawDir(opts)
	require.NoError(t, err)
	writeKG(t, rawDir)

	src, err := openKG(opts)
	require.NoError(t, err)
	processedDir, err := ProcessedDir(opts)
	require.NoError(t, err)
	require.FileExists(t, path.Join(processedDir, "graph.bin"))

	// Once cached, raw files are no longer needed.
	require.NoError(t, os.RemoveAll(rawDir))
	src2, err := openKG(opts)
	require.NoError(t, err)
	assert.True(t, src.Global.Equal(src2.Global))

	// Missing raw files without download.
	_, err = openKG(Options{Root: t.TempDir(), Name: "fb15k"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "download is disabled"))
}

func TestBuildRecSys(t *testing.T) {
	ratings := []Rating{
		{User: 10, Item: 7, Category: 2, Value: 5},
		{User: 3, Item: 7, Category: 2, Value: 1},
		{User: 10, Item: 1, Category: 1, Value: 3},
		{User: 3, Item: 4, Category: 1, Value: 4},
		{User: 5, Item: 4, Category: 1, Value: 2},
	}
	global, clients, err := BuildRecSys(ratings, []float64{0.6, 0.2, 0.2}, 1)
	require.NoError(t, err)
	require.NoError(t, global.Validate())

	// Users 3, 5, 10 -> 0, 1, 2; items 1, 4, 7 -> 3, 4, 5.
	assert.Equal(t, 6, global.NumNodes)
	assert.Equal(t, [2][]int32{{2, 0, 2, 0, 1}, {5, 5, 3, 4, 4}}, global.EdgeIndex)
	assert.Equal(t, []int32{4, 0, 2, 3, 1}, global.EdgeType)
	train, valid, test := global.CountMasks()
	assert.Equal(t, []int{3, 1, 1}, []int{train, valid, test})

	// One client per category, in ascending order: category 1 first.
	require.Len(t, clients, 2)
	assert.Equal(t, 3, clients[0].NumEdges())
	assert.Equal(t, 2, clients[1].NumEdges())
	for _, client := range clients {
		require.NoError(t, client.Validate())
		for local, orig := range client.IndexOrig {
			assert.Less(t, int(orig), global.NumNodes, "local node %d", local)
		}
	}
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, clients[0].IndexOrig)

	// Deterministic for the same seed.
	global2, _, err := BuildRecSys(ratings, []float64{0.6, 0.2, 0.2}, 1)
	require.NoError(t, err)
	assert.True(t, global.Equal(global2))

	_, _, err = BuildRecSys([]Rating{{Value: 0}}, []float64{0.6, 0.2, 0.2}, 1)
	assert.Error(t, err)
	_, _, err = BuildRecSys(ratings, []float64{1}, 1)
	assert.Error(t, err)
}

func TestCached(t *testing.T) {
	opts := Options{Root: t.TempDir(), Name: "cached"}
	calls := 0
	build := func() ([]*graphs.Graph, error) {
		calls++
		return []*graphs.Graph{ToyKG(), ToyKG()}, nil
	}
	for range 2 {
		loaded, err := cached(opts, "clients.bin", build)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		assert.True(t, ToyKG().Equal(loaded[1]))
	}
	assert.Equal(t, 1, calls)
}

func TestOpenRecSysSplitsAndSeed(t *testing.T) {
	var ratings []Rating
	for ii := range 40 {
		ratings = append(ratings, Rating{User: int64(ii % 7), Item: int64(ii), Category: int64(ii % 3), Value: int32(ii%5 + 1)})
	}
	var numReads int
	readFn := func() ([]Rating, error) {
		numReads++
		return ratings, nil
	}
	root := t.TempDir()
	maskCounts := func(splits []float64, seed uint64) []int {
		src, err := openRecSysWith(Options{Root: root, Name: "ciao", Splits: splits, Seed: seed}, readFn)
		require.NoError(t, err)
		require.Len(t, src.Clients, 3)
		train, valid, test := src.Global.CountMasks()
		return []int{train, valid, test}
	}

	assert.Equal(t, []int{32, 4, 4}, maskCounts([]float64{0.8, 0.1, 0.1}, 1))
	assert.Equal(t, []int{8, 16, 16}, maskCounts([]float64{0.2, 0.4, 0.4}, 2))
	assert.Equal(t, 2, numReads)

	// Same settings again are served from the cache.
	assert.Equal(t, []int{32, 4, 4}, maskCounts([]float64{0.8, 0.1, 0.1}, 1))
	assert.Equal(t, 2, numReads)

	// Only the seed changes: same counts, but another cache entry with other masks.
	src1, err := openRecSysWith(Options{Root: root, Name: "ciao", Splits: []float64{0.8, 0.1, 0.1}, Seed: 1}, readFn)
	require.NoError(t, err)
	src3, err := openRecSysWith(Options{Root: root, Name: "ciao", Splits: []float64{0.8, 0.1, 0.1}, Seed: 3}, readFn)
	require.NoError(t, err)
	assert.Equal(t, 3, numReads)
	assert.NotEqual(t, src1.Global.TrainEdgeMask, src3.Global.TrainEdgeMask)

	assert.Equal(t, "clients-seed1-splits0.8_0.1_0.1.bin",
		recSysCacheName(Options{Splits: []float64{0.8, 0.1, 0.1}, Seed: 1}))
}
