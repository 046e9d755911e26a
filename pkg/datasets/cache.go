// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"os"
	"path"

	"github.com/gomlx/fedgraph/pkg/core/graphs"
	"github.com/gomlx/fedgraph/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// datasetDir returns the directory of the dataset, with "~" expanded.
func datasetDir(opts Options) (string, error) {
	root, err := fsutil.ReplaceTildeInDir(opts.Root)
	if err != nil {
		return "", err
	}
	return path.Join(root, opts.Name), nil
}

// RawDir returns the directory with the raw files of the dataset.
func RawDir(opts Options) (string, error) {
	dir, err := datasetDir(opts)
	if err != nil {
		return "", err
	}
	return path.Join(dir, "raw"), nil
}

// ProcessedDir returns the directory where the processed graphs of the dataset are cached.
func ProcessedDir(opts Options) (string, error) {
	dir, err := datasetDir(opts)
	if err != nil {
		return "", err
	}
	return path.Join(dir, "processed"), nil
}

// cached returns the graphs saved in the processed directory under fileName, or builds them
// with buildFn and saves them there.
func cached(opts Options, fileName string, buildFn func() ([]*graphs.Graph, error)) ([]*graphs.Graph, error) {
	processedDir, err := ProcessedDir(opts)
	if err != nil {
		return nil, err
	}
	filePath := path.Join(processedDir, fileName)
	loaded, err := graphs.Load(filePath)
	if err == nil {
		klog.V(1).Infof("%s: loaded %d processed graphs from %q", opts.Name, len(loaded), filePath)
		return loaded, nil
	}
	if !os.IsNotExist(err) {
		klog.Warningf("%s: ignoring invalid cache %q: %v", opts.Name, filePath, err)
	}
	built, err := buildFn()
	if err != nil {
		return nil, err
	}
	if err = graphs.Save(filePath, built...); err != nil {
		return nil, errors.WithMessagef(err, "failed to cache processed dataset %q", opts.Name)
	}
	klog.V(1).Infof("%s: saved %d processed graphs to %q", opts.Name, len(built), filePath)
	return built, nil
}
