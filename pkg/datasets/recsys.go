// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/daniellowtw/matlab"
	"github.com/gomlx/fedgraph/internal/downloader"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/support/fsutil"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// RecSysBaseURL is where the recommendation-system archives are downloaded from.
var RecSysBaseURL = "https://www.cse.msu.edu/~tangjili/datasetcode"

// RatingsFile is the Matlab file with the ratings table, in the raw directory.
const RatingsFile = "rating.mat"

// ratingsVar is the Matlab variable holding the ratings: one row per rating and columns
// (user, item, category, rating, helpfulness, time).
const (
	ratingsVar        = "rating"
	ratingsNumColumns = 6
)

// Rating of an item by a user.
type Rating struct {
	User, Item, Category int64

	// Value of the rating, from 1 to 5.
	Value int32
}

// RecSysFamily returns the family of recommendation-system datasets: "epinions" and "ciao".
//
// Users and items are nodes, and each rating is an edge from the user to the item with the
// rating value minus one as its type. The graph comes partitioned with one client per item category.
func RecSysFamily() *Family {
	return &Family{
		Name:     "recsys",
		Datasets: []string{"epinions", "ciao"},
		Open:     openRecSys,
	}
}

func openRecSys(opts Options) (*Source, error) {
	return openRecSysWith(opts, func() ([]Rating, error) {
		rawDir, err := recSysRawDir(opts)
		if err != nil {
			return nil, err
		}
		return ReadRatings(path.Join(rawDir, RatingsFile))
	})
}

// openRecSysWith builds the dataset from the ratings returned by readFn, unless it is already cached
// for the same splits and seed.
func openRecSysWith(opts Options, readFn func() ([]Rating, error)) (*Source, error) {
	loaded, err := cached(opts, recSysCacheName(opts), func() ([]*graphs.Graph, error) {
		ratings, err := readFn()
		if err != nil {
			return nil, err
		}
		global, clients, err := BuildRecSys(ratings, opts.Splits, opts.Seed)
		if err != nil {
			return nil, err
		}
		return append([]*graphs.Graph{global}, clients...), nil
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to open dataset %q", opts.Name)
	}
	klog.V(1).Infof("%s: %s partitioned in %d categories", opts.Name, loaded[0], len(loaded)-1)
	return &Source{Global: loaded[0], Clients: loaded[1:]}, nil
}

// recSysCacheName is the name of the processed file: the masks depend on the splits and the seed,
// so both are part of it. E.g.: "clients-seed0-splits0.8_0.1_0.1.bin".
func recSysCacheName(opts Options) string {
	ratios := xslices.Map(opts.Splits, func(ratio float64) string {
		return strconv.FormatFloat(ratio, 'g', -1, 64)
	})
	return fmt.Sprintf("clients-seed%d-splits%s.bin", opts.Seed, strings.Join(ratios, "_"))
}

func recSysRawDir(opts Options) (string, error) {
	rawDir, err := RawDir(opts)
	if err != nil {
		return "", err
	}
	exists, err := fsutil.FileExists(path.Join(rawDir, RatingsFile))
	if err != nil || exists {
		return rawDir, err
	}
	if !opts.Download {
		return "", errors.Wrapf(os.ErrNotExist, "raw files of dataset %q not found in %q, and download is disabled", opts.Name, rawDir)
	}
	baseDir := path.Dir(rawDir)
	url := fmt.Sprintf("%s/%s.zip", RecSysBaseURL, opts.Name)
	zipFile := path.Join(baseDir, opts.Name+".zip")
	unzipDir := path.Join(baseDir, opts.Name)
	if err = downloader.DownloadAndUnzipIfMissing(url, zipFile, baseDir, unzipDir, ""); err != nil {
		return "", errors.WithMessagef(err, "failed to download dataset %q", opts.Name)
	}
	if err = os.Rename(unzipDir, rawDir); err != nil {
		return "", errors.Wrapf(err, "failed to move %q to %q", unzipDir, rawDir)
	}
	_ = os.Remove(zipFile)
	return rawDir, nil
}

// ReadRatings reads the ratings table from a Matlab file.
func ReadRatings(filePath string) ([]Rating, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open ratings file %q", filePath)
	}
	defer func() { _ = f.Close() }()

	matlabFile, err := matlab.NewFileFromReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse ratings file %q", filePath)
	}
	matRatings, found := matlabFile.GetVar(ratingsVar)
	if !found {
		return nil, errors.Errorf("failed to parse var %q in Matlab file %q", ratingsVar, filePath)
	}
	values := matRatings.Value()
	if len(values)%ratingsNumColumns != 0 {
		return nil, errors.Errorf("var %q in %q has %d values, not a multiple of its %d columns",
			ratingsVar, filePath, len(values), ratingsNumColumns)
	}

	// Matlab matrices are stored column-major.
	numRows := len(values) / ratingsNumColumns
	at := func(row, col int) (int64, error) {
		return matlabToInt(values[col*numRows+row])
	}
	ratings := make([]Rating, numRows)
	for row := range ratings {
		var cols [4]int64
		for col := range cols {
			cols[col], err = at(row, col)
			if err != nil {
				return nil, errors.WithMessagef(err, "row %d, column %d of %q", row, col, filePath)
			}
		}
		ratings[row] = Rating{User: cols[0], Item: cols[1], Category: cols[2], Value: int32(cols[3])}
	}
	return ratings, nil
}

func matlabToInt(value any) (int64, error) {
	switch v := value.(type) {
	case float64:
		return int64(math.Round(v)), nil
	case float32:
		return int64(math.Round(float64(v))), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	}
	return 0, errors.Errorf("unsupported Matlab value type %T", value)
}

// BuildRecSys builds the global user-item graph from the ratings, and its partition in one client
// per item category, in ascending order of category.
//
// User and item ids are renumbered compactly in ascending order, users first and items after them.
// Edges are randomly assigned to train, valid and test according to splits, using seed.
// Client graphs map their nodes to the global graph in IndexOrig.
func BuildRecSys(ratings []Rating, splits []float64, seed uint64) (global *graphs.Graph, clients []*graphs.Graph, err error) {
	if len(splits) != 3 {
		err = errors.Errorf("splits must have 3 ratios (train, valid, test), got %v", splits)
		return
	}
	users := make(map[int64]int32)
	items := make(map[int64]int32)
	for _, r := range ratings {
		if r.Value < 1 {
			err = errors.Errorf("invalid rating value %d of user %d for item %d", r.Value, r.User, r.Item)
			return
		}
		users[r.User] = 0
		items[r.Item] = 0
	}
	for ii, user := range xslices.SortedKeys(users) {
		users[user] = int32(ii)
	}
	for ii, item := range xslices.SortedKeys(items) {
		items[item] = int32(len(users) + ii)
	}

	numEdges := len(ratings)
	global = &graphs.Graph{
		NumNodes:  len(users) + len(items),
		EdgeIndex: [2][]int32{make([]int32, numEdges), make([]int32, numEdges)},
		EdgeType:  make([]int32, numEdges),
	}
	byCategory := make(map[int64][]int32)
	for ii, r := range ratings {
		global.EdgeIndex[0][ii] = users[r.User]
		global.EdgeIndex[1][ii] = items[r.Item]
		global.EdgeType[ii] = r.Value - 1
		byCategory[r.Category] = append(byCategory[r.Category], int32(ii))
	}
	global.TrainEdgeMask, global.ValidEdgeMask, global.TestEdgeMask = randomMasks(numEdges, splits, seed)

	categories := xslices.SortedKeys(byCategory)
	clients = make([]*graphs.Graph, 0, len(categories))
	for _, category := range categories {
		clients = append(clients, global.EdgeSubgraph(byCategory[category]))
	}
	return
}

// randomMasks assigns a random permutation of the edges to train, valid and test, in the proportions
// of splits. Test takes whatever is left after rounding.
func randomMasks(numEdges int, splits []float64, seed uint64) (train, valid, test []bool) {
	rng := rand.New(rand.NewPCG(seed, 0))
	perm := rng.Perm(numEdges)
	numTrain := int(math.Round(splits[0] * float64(numEdges)))
	numValid := min(int(math.Round(splits[1]*float64(numEdges))), numEdges-numTrain)
	train, valid, test = make([]bool, numEdges), make([]bool, numEdges), make([]bool, numEdges)
	for ii, edgeID := range perm {
		switch {
		case ii < numTrain:
			train[edgeID] = true
		case ii < numTrain+numValid:
			valid[edgeID] = true
		default:
			test[edgeID] = true
		}
	}
	return
}
