package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/traitfield/internal/experiment"
	"github.com/san-kum/traitfield/internal/export"
	"github.com/san-kum/traitfield/internal/optim"
	"github.com/san-kum/traitfield/internal/storage"
	"github.com/san-kum/traitfield/internal/viz"
)

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("run %s has no frames", meta.ID)
	}
	if err := storage.AnnotateCompatibility(meta, frames); err != nil {
		return err
	}

	idx := svgFrame
	if idx < 0 {
		idx += len(frames)
	}
	if idx < 0 || idx >= len(frames) {
		return fmt.Errorf("frame %d out of range [0, %d)", svgFrame, len(frames))
	}

	cam := viz.NewCamera()
	cam.Follow(frames[idx])
	svg := export.SnapshotSVG(frames[idx], cam, svgSize, svgSize)
	if svgNode != "" {
		svg = export.TrajectoryToSVG(frames, svgNode, cam, svgSize, svgSize, "#ff00ff")
	}

	var w io.Writer = os.Stdout
	if outPath != "" && outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err = io.WriteString(w, svg+"\n")
	return err
}

// parseGrid reads "name=v1,v2,..." specs in order.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad grid %q, want name=v1,v2", spec)
		}
		var vals []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			vals = append(vals, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	if len(tuneGrid) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	names, ranges, err := parseGrid(tuneGrid)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	g := optim.NewGridSearch(names, ranges)
	if tuneMax {
		g.Maximize()
	}
	res, err := g.Search(ctx, cfg, experiment.NewRegistry(), tuneMetric)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %d points\n", res.Evaluated)
	fmt.Println(labelStyle.Render(tuneMetric) + valueStyle.Render(fmt.Sprintf("%.4f", res.Value)))
	keys := make([]string, 0, len(res.Params))
	for k := range res.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Println(labelStyle.Render(k) + valueStyle.Render(fmt.Sprintf("%g", res.Params[k])))
	}
	return nil
}
