// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// fedgraph prepares the data of federated link-prediction experiments: it partitions a relational
// dataset among clients, builds their training data and reconstructs the global evaluation graph.
//
// Usage:
//
//	fedgraph assemble --config=fedgraph.toml --set="federate.client_num=3;data.loader=graphsaint-rw"
//	fedgraph datasets
//	fedgraph config --set="data.type=wn18"
package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	flagConfig   string
	flagSettings string
	flagColor    bool
)

var rootCmd = &cobra.Command{
	Use:           "fedgraph",
	Short:         "Partitions relational graphs among federated learning clients",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !flagColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
}

func init() {
	klog.InitFlags(nil)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"TOML configuration file. Values not set in the file take their defaults.")
	rootCmd.PersistentFlags().StringVar(&flagSettings, "set", "",
		"Settings applied over the configuration, separated by \";\". E.g.: \"data.type=wn18;federate.client_num=3\". "+
			"Use \"file:<path>\" to read settings from a file.")
	rootCmd.PersistentFlags().BoolVar(&flagColor, "color", true, "Colored tables. Disable it when piping the output.")
	rootCmd.AddCommand(assembleCmd, datasetsCmd, configCmd)
}

// loadConfig returns the configuration from --config (or the defaults) with --set applied.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		var err error
		cfg, err = config.LoadFile(flagConfig)
		if err != nil {
			return nil, err
		}
	}
	keysSet, err := config.ParseSettings(cfg, flagSettings)
	if err != nil {
		return nil, err
	}
	if len(keysSet) > 0 {
		klog.V(1).Infof("settings %q overwritten by --set", keysSet)
	}
	return cfg, cfg.Validate()
}

func main() {
	defer klog.Flush()
	if err := rootCmd.Execute(); err != nil {
		klog.Errorf("%+v", err)
		klog.Flush()
		os.Exit(1)
	}
}
