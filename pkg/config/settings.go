// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gomlx/fedgraph/pkg/support/fsutil"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
	"github.com/pkg/errors"
)

// fields returns pointers to the settable configuration values, indexed by their key.
// Keys are the TOML paths of the values.
func (c *Config) fields() map[string]any {
	return map[string]any{
		"seed":                        &c.Seed,
		"data.root":                   &c.Data.Root,
		"data.type":                   &c.Data.Type,
		"data.loader":                 &c.Data.Loader,
		"data.splitter":               &c.Data.Splitter,
		"data.transforms":             &c.Data.Transforms,
		"data.pre_transforms":         &c.Data.PreTransforms,
		"data.splits":                 &c.Data.Splits,
		"data.batch_size":             &c.Data.BatchSize,
		"data.num_workers":            &c.Data.NumWorkers,
		"data.download":               &c.Data.Download,
		"data.graphsaint.walk_length": &c.Data.GraphSAINT.WalkLength,
		"data.graphsaint.num_steps":   &c.Data.GraphSAINT.NumSteps,
		"federate.client_num":         &c.Federate.ClientNum,
	}
}

// Keys returns the sorted list of configuration keys that can be set with ParseSettings or MergeFromList.
func Keys() []string {
	return xslices.SortedKeys(Default().fields())
}

// ParseSettings updates cfg from settings -- typically the contents of a flag set by the user.
// The settings are a list separated by ";": e.g.: "data.type=wn18;federate.client_num=3".
//
// A setting "file:<path>" reads settings from the file, one or more per line, where empty
// lines and lines starting with "#" are ignored.
//
// Values are parsed according to the type of the key. For integer values "_" is removed, so
// one can write 1_000_000. Lists of floats are separated by ",".
//
// It returns the keys set, in order, or a *ConfigurationError if a key is unknown or a value
// can't be parsed.
func ParseSettings(cfg *Config, settings string) (keysSet []string, err error) {
	for _, setting := range strings.Split(settings, ";") {
		keysSet, err = parseSetting(cfg, setting, keysSet)
		if err != nil {
			return
		}
	}
	return
}

func parseSetting(cfg *Config, setting string, keysSet []string) (newKeysSet []string, err error) {
	newKeysSet = keysSet
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return
	}
	if strings.HasPrefix(setting, "file:") {
		filePath := strings.TrimPrefix(setting, "file:")
		filePath, err = fsutil.ReplaceTildeInDir(filePath)
		if err != nil {
			return
		}
		var contents []byte
		contents, err = os.ReadFile(filePath)
		if err != nil {
			err = errors.Wrapf(err, "failed to read settings from file %q", filePath)
			return
		}
		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			for _, lineSetting := range strings.Split(line, ";") {
				newKeysSet, err = parseSetting(cfg, lineSetting, newKeysSet)
				if err != nil {
					return
				}
			}
		}
		return
	}

	key, valueStr, found := strings.Cut(setting, "=")
	if !found {
		err = &ConfigurationError{Field: setting,
			Reason: "each setting requires the format \"<key>=<value>\""}
		return
	}
	if err = cfg.set(strings.TrimSpace(key), strings.TrimSpace(valueStr)); err != nil {
		return
	}
	newKeysSet = append(newKeysSet, strings.TrimSpace(key))
	return
}

// MergeFromList updates cfg from a list of key/value pairs: e.g. ("data.type", "wn18", "seed", "3").
func MergeFromList(cfg *Config, keyValues ...string) error {
	if len(keyValues)%2 != 0 {
		return &ConfigurationError{Field: strings.Join(keyValues, ","),
			Reason: fmt.Sprintf("MergeFromList requires key/value pairs, got %d values", len(keyValues))}
	}
	for ii := 0; ii < len(keyValues); ii += 2 {
		if err := cfg.set(keyValues[ii], keyValues[ii+1]); err != nil {
			return err
		}
	}
	return nil
}

// set parses valueStr according to the type of the value of key.
func (c *Config) set(key, valueStr string) error {
	ptr, found := c.fields()[key]
	if !found {
		return &ConfigurationError{Field: key,
			Reason: fmt.Sprintf("unknown key, known keys are %q", Keys())}
	}
	var err error
	switch v := ptr.(type) {
	case *int:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), v)
	case *uint64:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), v)
	case *bool:
		err = json.Unmarshal([]byte(valueStr), v)
	case *string:
		*v = valueStr
	case *[]float64:
		var values []float64
		if valueStr != "" {
			values = xslices.Map(strings.Split(valueStr, ","), func(str string) float64 {
				var asNum float64
				if newErr := json.Unmarshal([]byte(strings.TrimSpace(str)), &asNum); newErr != nil {
					err = newErr
				}
				return asNum
			})
		}
		if err == nil {
			*v = values
		}
	default:
		err = errors.Errorf("don't know how to parse type %T", ptr)
	}
	if err != nil {
		return &ConfigurationError{Field: key, Reason: fmt.Sprintf("failed to parse value %q: %v", valueStr, err)}
	}
	return nil
}

// SprintSettings returns a multi-line listing of all configuration values, one "key=value" per line.
func SprintSettings(cfg *Config) string {
	fields := cfg.fields()
	var sb strings.Builder
	for _, key := range xslices.SortedKeys(fields) {
		var valueStr string
		switch v := fields[key].(type) {
		case *int:
			valueStr = fmt.Sprintf("%d", *v)
		case *uint64:
			valueStr = fmt.Sprintf("%d", *v)
		case *bool:
			valueStr = fmt.Sprintf("%v", *v)
		case *string:
			valueStr = *v
		case *[]float64:
			valueStr = strings.Join(xslices.Map(*v, func(f float64) string { return fmt.Sprintf("%g", f) }), ",")
		}
		_, _ = fmt.Fprintf(&sb, "\t%s=%s\n", key, valueStr)
	}
	return sb.String()
}
