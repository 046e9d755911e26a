// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

import (
	"encoding/gob"
	"os"
	"path"

	"github.com/pkg/errors"
)

// persisted wraps a Graph for gob encoding. Gob doesn't distinguish empty from nil slices, so the
// presence of the optional per-edge and per-node slices is recorded separately: a graph without
// edges still has (empty) edge types and masks after Load.
type persisted struct {
	Graph        *Graph
	HasEdgeIndex bool
	HasEdgeType  bool
	HasMasks     bool
	HasIndexOrig bool
}

func toPersisted(g *Graph) persisted {
	return persisted{
		Graph:        g,
		HasEdgeIndex: g.EdgeIndex[0] != nil,
		HasEdgeType:  g.EdgeType != nil,
		HasMasks:     g.HasMasks(),
		HasIndexOrig: g.IndexOrig != nil,
	}
}

// restore returns the graph with the empty slices that gob decoded as nil set back to empty.
func (p persisted) restore() *Graph {
	g := p.Graph
	if g == nil {
		g = &Graph{}
	}
	if p.HasEdgeIndex && g.EdgeIndex[0] == nil {
		g.EdgeIndex = [2][]int32{{}, {}}
	}
	if p.HasEdgeType && g.EdgeType == nil {
		g.EdgeType = []int32{}
	}
	if p.HasMasks {
		for _, mask := range []*[]bool{&g.TrainEdgeMask, &g.ValidEdgeMask, &g.TestEdgeMask} {
			if *mask == nil {
				*mask = []bool{}
			}
		}
	}
	if p.HasIndexOrig && g.IndexOrig == nil {
		g.IndexOrig = []int32{}
	}
	return g
}

// Save graphs to filePath (gob encoded), creating the directory if needed.
// It is used to cache processed datasets.
func Save(filePath string, graphs ...*Graph) (err error) {
	if err = os.MkdirAll(path.Dir(filePath), 0777); err != nil && !os.IsExist(err) {
		err = errors.Wrapf(err, "creating directory for %q", filePath)
		return
	}
	f, err := os.Create(filePath)
	if err != nil {
		err = errors.Wrapf(err, "creating %q to save graphs", filePath)
		return
	}
	enc := gob.NewEncoder(f)
	records := make([]persisted, len(graphs))
	for ii, g := range graphs {
		records[ii] = toPersisted(g)
	}
	err = enc.Encode(records)
	if err != nil {
		_ = f.Close()
		err = errors.WithMessagef(err, "encoding %d graphs to save to %q", len(graphs), filePath)
		return
	}
	err = f.Close()
	if err != nil {
		err = errors.Wrapf(err, "close file %q, where graphs were saved", filePath)
		return
	}
	return
}

// Load graphs previously saved with Save.
// If filePath doesn't exist, it returns an error that can be checked with [os.IsNotExist].
func Load(filePath string) (graphs []*Graph, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		err = errors.Wrapf(err, "trying to load graphs from %q", filePath)
		return
	}
	defer func() { _ = f.Close() }()
	dec := gob.NewDecoder(f)
	var records []persisted
	err = dec.Decode(&records)
	if err != nil {
		err = errors.Wrapf(err, "trying to decode graphs from %q", filePath)
		return
	}
	graphs = make([]*Graph, len(records))
	for ii, record := range records {
		graphs[ii] = record.restore()
	}
	for ii, g := range graphs {
		if err = g.Validate(); err != nil {
			graphs = nil
			err = errors.WithMessagef(err, "graph #%d loaded from %q is invalid", ii, filePath)
			return
		}
	}
	return
}
