// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gomlx/fedgraph/pkg/support/fsutil"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// LoadFile reads a TOML configuration file. Values not in the file are taken from Default.
//
// Example:
//
//	seed = 1
//
//	[data]
//	type = "fb15k-237"
//	splitter = "rel_type"
//	loader = "graphsaint-rw"
//
//	[federate]
//	client_num = 5
//
// Unknown keys return a *ConfigurationError.
func LoadFile(filePath string) (*Config, error) {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	md, err := toml.DecodeFile(filePath, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration from %q", filePath)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := xslices.Map(undecoded, func(key toml.Key) string { return key.String() })
		return nil, &ConfigurationError{Field: strings.Join(keys, ","),
			Reason: fmt.Sprintf("unknown keys in configuration file %q", filePath)}
	}
	klog.V(1).Infof("configuration loaded from %q", filePath)
	return cfg, nil
}

// Decode parses a TOML configuration from a string, see LoadFile.
func Decode(contents string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(contents, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse TOML configuration")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := xslices.Map(undecoded, func(key toml.Key) string { return key.String() })
		return nil, &ConfigurationError{Field: strings.Join(keys, ","), Reason: "unknown keys in configuration"}
	}
	return cfg, nil
}
