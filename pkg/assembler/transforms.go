// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package assembler

import (
	"fmt"

	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/gomlx/fedgraph/pkg/core/graphs"
)

// MaxDegree of the one-hot degree features of the "degree_feat" pre-transform.
const MaxDegree = 1000

// transformByName returns the transform configured in data.transforms, or nil for "".
func transformByName(name string) (graphs.Transform, error) {
	switch name {
	case "":
		return nil, nil
	case "normalize_feat":
		return graphs.NormalizeFeatures(), nil
	}
	return nil, &config.ConfigurationError{Field: "data.transforms",
		Reason: fmt.Sprintf("unknown transform %q, valid values are \"\" or \"normalize_feat\"", name)}
}

// preTransformByName returns the pre-transform configured in data.pre_transforms, or nil for "".
func preTransformByName(name string) (graphs.Transform, error) {
	switch name {
	case "":
		return nil, nil
	case "constant_feat":
		return graphs.Constant(1, false), nil
	case "degree_feat":
		return graphs.OneHotDegree(MaxDegree, false, false), nil
	}
	return nil, &config.ConfigurationError{Field: "data.pre_transforms",
		Reason: fmt.Sprintf("unknown pre-transform %q, valid values are \"\", \"constant_feat\" or \"degree_feat\"", name)}
}
