// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package config defines the configuration consumed when assembling federated graph datasets.
//
// The configuration can be loaded from a TOML file (LoadFile) and adjusted with a settings string
// in the format "data.loader=graphsaint-rw;federate.client_num=3" (ParseSettings), the same format
// used by the command line.
//
// A Config is treated as a value: functions that need to adjust it (e.g. the resolved number of
// clients) return an updated Clone instead of changing the one given.
package config

import (
	"fmt"
	"math"
	"slices"

	"github.com/pkg/errors"
)

// Config holds all parameters used to load, partition and adapt a dataset.
type Config struct {
	// Seed for all random operations: splitting, mask reallocation and sampling.
	Seed uint64 `toml:"seed"`

	Data     DataConfig     `toml:"data"`
	Federate FederateConfig `toml:"federate"`
}

// DataConfig holds the dataset parameters.
type DataConfig struct {
	// Root directory where datasets are stored (and downloaded to). A leading "~" is expanded.
	Root string `toml:"root"`

	// Type is the dataset name, e.g. "fb15k-237", "wn18", "epinions" or "toy". Case-insensitive.
	Type string `toml:"type"`

	// Loader selects full-batch ("" or "none") or sampled ("graphsaint-rw") training data.
	Loader string `toml:"loader"`

	// Splitter used to partition datasets that are not already partitioned: "" or "rel_type".
	Splitter string `toml:"splitter"`

	// Transforms applied to node features: "" or "normalize_feat".
	Transforms string `toml:"transforms"`

	// PreTransforms generating node features: "", "constant_feat" or "degree_feat".
	PreTransforms string `toml:"pre_transforms"`

	// Splits are the train/valid/test ratios used by datasets that split their edges randomly.
	Splits []float64 `toml:"splits"`

	// BatchSize is the number of random-walk roots per mini-batch in sampled mode.
	BatchSize int `toml:"batch_size"`

	// NumWorkers used to precompute evaluation batches. 0 means no parallelism.
	NumWorkers int `toml:"num_workers"`

	// Download missing dataset files.
	Download bool `toml:"download"`

	GraphSAINT GraphSAINTConfig `toml:"graphsaint"`
}

// GraphSAINTConfig holds the parameters of the random-walk sampler.
type GraphSAINTConfig struct {
	WalkLength int `toml:"walk_length"`
	NumSteps   int `toml:"num_steps"`
}

// FederateConfig holds the federation parameters.
type FederateConfig struct {
	// ClientNum is the requested number of clients. If 0, all clients made available by the
	// dataset are used.
	ClientNum int `toml:"client_num"`
}

// Default returns a new Config with the default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Root:      "data",
			Type:      "toy",
			Splits:    []float64{0.8, 0.1, 0.1},
			BatchSize: 64,
			Download:  true,
			GraphSAINT: GraphSAINTConfig{
				WalkLength: 2,
				NumSteps:   30,
			},
		},
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c2 := *c
	c2.Data.Splits = slices.Clone(c.Data.Splits)
	return &c2
}

// WithClientNum returns a copy of the configuration with Federate.ClientNum set to n.
func (c *Config) WithClientNum(n int) *Config {
	c2 := c.Clone()
	c2.Federate.ClientNum = n
	return c2
}

// Validate checks the numeric parameters.
// Names (dataset, loader, splitter, transforms) are validated where they are resolved.
func (c *Config) Validate() error {
	if c.Federate.ClientNum < 0 {
		return &ConfigurationError{Field: "federate.client_num",
			Reason: fmt.Sprintf("must be >= 0, got %d", c.Federate.ClientNum)}
	}
	if c.Data.BatchSize < 0 {
		return &ConfigurationError{Field: "data.batch_size",
			Reason: fmt.Sprintf("must be >= 0, got %d", c.Data.BatchSize)}
	}
	if c.Data.NumWorkers < 0 {
		return &ConfigurationError{Field: "data.num_workers",
			Reason: fmt.Sprintf("must be >= 0, got %d", c.Data.NumWorkers)}
	}
	if c.Data.GraphSAINT.WalkLength < 0 || c.Data.GraphSAINT.NumSteps < 0 {
		return &ConfigurationError{Field: "data.graphsaint",
			Reason: fmt.Sprintf("walk_length and num_steps must be >= 0, got %d and %d",
				c.Data.GraphSAINT.WalkLength, c.Data.GraphSAINT.NumSteps)}
	}
	if len(c.Data.Splits) != 3 {
		return &ConfigurationError{Field: "data.splits",
			Reason: fmt.Sprintf("requires 3 ratios (train, valid, test), got %v", c.Data.Splits)}
	}
	var sum float64
	for _, ratio := range c.Data.Splits {
		if ratio < 0 {
			return &ConfigurationError{Field: "data.splits", Reason: fmt.Sprintf("negative ratio in %v", c.Data.Splits)}
		}
		sum += ratio
	}
	if math.Abs(sum-1) > 1e-6 {
		return &ConfigurationError{Field: "data.splits", Reason: fmt.Sprintf("ratios %v don't add up to 1", c.Data.Splits)}
	}
	return nil
}

// ConfigurationError is returned for invalid configuration values, or invalid combinations of them.
type ConfigurationError struct {
	// Field is the configuration key, e.g. "federate.client_num".
	Field string

	// Reason describes what is wrong.
	Reason string
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Field, e.Reason)
}

// IsConfigurationError returns whether err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var configErr *ConfigurationError
	return errors.As(err, &configErr)
}
