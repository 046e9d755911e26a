// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	lgtable "github.com/charmbracelet/lipgloss/table"
	humanize "github.com/dustin/go-humanize"
	"github.com/gomlx/fedgraph/pkg/assembler"
	"github.com/gomlx/fedgraph/pkg/config"
	"github.com/gomlx/fedgraph/pkg/datasets"
	"github.com/gomlx/fedgraph/pkg/loader"
	"github.com/gomlx/fedgraph/pkg/reconstruct"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assembles the per-client data of the configured dataset and prints a summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		klog.Infof("assembling dataset %q", cfg.Data.Type)
		data, newCfg, err := assembler.Assemble(cfg)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("Clients"))
		fmt.Println(clientsTable(data).Render())
		fmt.Println(titleStyle.Render("Summary"))
		table := newPlainTable(false)
		table.Row("dataset", newCfg.Data.Type)
		table.Row("loader", loaderName(newCfg.Data.Loader))
		table.Row("# clients", humanize.Comma(int64(newCfg.Federate.ClientNum)))
		fmt.Println(table.Render())
		if flagPlot != "" {
			if err = plotRelationTypes(data, flagPlot); err != nil {
				return err
			}
			klog.Infof("relation types per client plotted to %q", flagPlot)
		}
		return nil
	},
}

var flagPlot string

func init() {
	assembleCmd.Flags().StringVar(&flagPlot, "plot", "",
		"Saves a bar chart of the number of edges per relation type of each client to the given file (.png, .svg or .pdf).")
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Lists the available datasets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		registry := datasets.Default()
		table := newPlainTable(true)
		table.Row("Dataset", "Family", "Partitioned by")
		for _, name := range registry.Names() {
			family := must.M1(registry.Lookup(name))
			partition := "category"
			if family.NeedsSplit {
				partition = "splitter"
			}
			table.Row(name, family.Name, partition)
		}
		fmt.Println(table.Render())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the configuration after --config and --set are applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Print(config.SprintSettings(cfg))
		return nil
	},
}

// clientsTable lists one row per entry of data, the global graph first.
func clientsTable(data assembler.ClientData) *lgtable.Table {
	table := newPlainTable(true)
	table.Row("Id", "Mode", "Nodes", "Edges", "Train", "Valid", "Test")
	for _, clientID := range xslices.SortedKeys(data) {
		entry := data[clientID]
		g := entry.Graph()
		id := fmt.Sprintf("%d", clientID)
		if clientID == reconstruct.GlobalID {
			id = "global"
		}
		train, valid, test := g.CountMasks()
		table.Row(id, string(entry.Mode()),
			humanize.Comma(int64(g.NumNodes)), humanize.Comma(int64(g.NumEdges())),
			humanize.Comma(int64(train)), humanize.Comma(int64(valid)), humanize.Comma(int64(test)))
	}
	return table
}

func loaderName(mode string) string {
	if mode == "" {
		return string(loader.ModeNone)
	}
	return mode
}
