// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"fmt"
	"os"
	"path"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/fedgraph/internal/downloader"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// KGBaseURL is where knowledge-graph archives are downloaded from.
var KGBaseURL = "https://data.dgl.ai/dataset"

// kgArchives maps the knowledge-graph dataset names to the name of their archive, which is
// also the name of the directory in the archive.
var kgArchives = map[string]string{
	"fb15k-237": "FB15k-237",
	"fb15k":     "FB15k",
	"wn18":      "wn18",
}

// Raw files of knowledge-graph datasets.
const (
	EntitiesFile  = "entities.dict"
	RelationsFile = "relations.dict"
)

// kgSplitFiles are the files of triples, in the order their edges are added to the graph.
var kgSplitFiles = [3]string{"train.txt", "valid.txt", "test.txt"}

// KGFamily returns the family of knowledge-graph datasets: "fb15k-237", "wn18", "fb15k" and "toy".
//
// Each triple (head, relation, tail) becomes an edge head->tail with the relation id as its type,
// and the file of the triple (train, valid or test) sets its masks.
// The graph has to be partitioned by a splitter.
func KGFamily() *Family {
	return &Family{
		Name:       "kg",
		Datasets:   []string{"fb15k-237", "wn18", "fb15k", ToyName},
		NeedsSplit: true,
		Open:       openKG,
	}
}

func openKG(opts Options) (*Source, error) {
	if opts.Name == ToyName {
		return &Source{Global: ToyKG()}, nil
	}
	loaded, err := cached(opts, "graph.bin", func() ([]*graphs.Graph, error) {
		rawDir, err := kgRawDir(opts)
		if err != nil {
			return nil, err
		}
		g, err := ReadKG(rawDir)
		if err != nil {
			return nil, err
		}
		return []*graphs.Graph{g}, nil
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to open dataset %q", opts.Name)
	}
	klog.V(1).Infof("%s: %s", opts.Name, loaded[0])
	return &Source{Global: loaded[0]}, nil
}

// kgRawDir returns the directory with the raw files, downloading them if needed and configured to.
func kgRawDir(opts Options) (string, error) {
	rawDir, err := RawDir(opts)
	if err != nil {
		return "", err
	}
	exists, err := fsutil.FileExists(path.Join(rawDir, EntitiesFile))
	if err != nil || exists {
		return rawDir, err
	}
	if !opts.Download {
		return "", errors.Wrapf(os.ErrNotExist, "raw files of dataset %q not found in %q, and download is disabled", opts.Name, rawDir)
	}
	archive, found := kgArchives[opts.Name]
	if !found {
		return "", errors.Errorf("don't know where to download dataset %q from", opts.Name)
	}
	baseDir := path.Dir(rawDir)
	url := fmt.Sprintf("%s/%s.zip", KGBaseURL, archive)
	zipFile := path.Join(baseDir, archive+".zip")
	unzipDir := path.Join(baseDir, archive)
	if err = downloader.DownloadAndUnzipIfMissing(url, zipFile, baseDir, unzipDir, ""); err != nil {
		return "", errors.WithMessagef(err, "failed to download dataset %q", opts.Name)
	}
	if err = os.Rename(unzipDir, rawDir); err != nil {
		return "", errors.Wrapf(err, "failed to move %q to %q", unzipDir, rawDir)
	}
	_ = os.Remove(zipFile)
	return rawDir, nil
}

// readTSV reads a tab-separated file without header into a DataFrame with the given column names,
// all read as strings. No value is taken as missing: "NA" is a valid entity name.
func readTSV(filePath string, names ...string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "failed to open %q", filePath)
	}
	defer func() { _ = f.Close() }()
	types := make(map[string]series.Type, len(names))
	for _, name := range names {
		types[name] = series.String
	}
	df := dataframe.ReadCSV(f, dataframe.WithDelimiter('\t'), dataframe.HasHeader(false),
		dataframe.Names(names...), dataframe.WithTypes(types), dataframe.NaNValues(nil))
	if df.Err != nil {
		return df, errors.Wrapf(df.Err, "failed to parse %q", filePath)
	}
	return df, nil
}

// readDict reads a "<id>\t<name>" file, and returns the map of name to id, and the number of ids.
func readDict(filePath string) (ids map[string]int32, numIDs int, err error) {
	df, err := readTSV(filePath, "id", "name")
	if err != nil {
		return
	}
	idValues, err := df.Col("id").Int()
	if err != nil {
		err = errors.Wrapf(err, "invalid ids in %q", filePath)
		return
	}
	ids = make(map[string]int32, len(idValues))
	for row, name := range df.Col("name").Records() {
		id := idValues[row]
		if id < 0 {
			err = errors.Errorf("invalid negative id %d for %q in %q", id, name, filePath)
			return
		}
		ids[name] = int32(id)
		numIDs = max(numIDs, id+1)
	}
	return
}

// ReadKG reads a knowledge graph from the raw files in rawDir: the entities and relations
// dictionaries, and the train, valid and test triples.
func ReadKG(rawDir string) (*graphs.Graph, error) {
	entities, numEntities, err := readDict(path.Join(rawDir, EntitiesFile))
	if err != nil {
		return nil, err
	}
	relations, _, err := readDict(path.Join(rawDir, RelationsFile))
	if err != nil {
		return nil, err
	}
	g := &graphs.Graph{NumNodes: numEntities}
	masks := [3]*[]bool{&g.TrainEdgeMask, &g.ValidEdgeMask, &g.TestEdgeMask}
	for splitIdx, fileName := range kgSplitFiles {
		filePath := path.Join(rawDir, fileName)
		df, err := readTSV(filePath, "head", "relation", "tail")
		if err != nil {
			return nil, err
		}
		heads, rels, tails := df.Col("head").Records(), df.Col("relation").Records(), df.Col("tail").Records()
		for row := range heads {
			head, foundHead := entities[heads[row]]
			tail, foundTail := entities[tails[row]]
			rel, foundRel := relations[rels[row]]
			if !foundHead || !foundTail || !foundRel {
				return nil, errors.Errorf("unknown entity or relation in triple #%d (%q, %q, %q) of %q",
					row, heads[row], rels[row], tails[row], filePath)
			}
			g.EdgeIndex[0] = append(g.EdgeIndex[0], head)
			g.EdgeIndex[1] = append(g.EdgeIndex[1], tail)
			g.EdgeType = append(g.EdgeType, rel)
			for maskIdx, mask := range masks {
				*mask = append(*mask, maskIdx == splitIdx)
			}
		}
	}
	if err = g.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid knowledge graph read from %q", rawDir)
	}
	return g, nil
}
