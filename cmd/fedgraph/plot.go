// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/gomlx/fedgraph/pkg/assembler"
	"github.com/gomlx/fedgraph/pkg/reconstruct"
	"github.com/gomlx/fedgraph/pkg/support/xslices"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// relationTypeCounts returns the number of edges of each relation type in each client, in
// ascending client id order. All rows have numTypes entries.
func relationTypeCounts(data assembler.ClientData) (clientIDs []int, counts []plotter.Values) {
	numTypes := 0
	for _, entry := range data {
		if edgeType := entry.Graph().EdgeType; len(edgeType) > 0 {
			numTypes = max(numTypes, int(xslices.Max(edgeType))+1)
		}
	}
	for _, clientID := range xslices.SortedKeys(data) {
		if clientID == reconstruct.GlobalID {
			continue
		}
		values := make(plotter.Values, numTypes)
		for _, edgeType := range data[clientID].Graph().EdgeType {
			values[edgeType]++
		}
		clientIDs = append(clientIDs, clientID)
		counts = append(counts, values)
	}
	return
}

// plotRelationTypes saves a bar chart with the number of edges per relation type of each client,
// which shows how skewed the partition is. The image format is given by the file extension.
func plotRelationTypes(data assembler.ClientData, filePath string) error {
	p := plot.New()
	p.Title.Text = "Edges per relation type"
	p.X.Label.Text = "relation type"
	p.Y.Label.Text = "# edges"
	p.Legend.Top = true

	clientIDs, counts := relationTypeCounts(data)
	width := vg.Points(8)
	for ii, values := range counts {
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return errors.Wrapf(err, "failed to plot client %d", clientIDs[ii])
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(ii)
		bars.Offset = width * vg.Length(ii-len(counts)/2)
		p.Add(bars)
		p.Legend.Add(fmt.Sprintf("client %d", clientIDs[ii]), bars)
	}
	if err := p.Save(12*vg.Inch, 6*vg.Inch, filePath); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", filePath)
	}
	return nil
}
