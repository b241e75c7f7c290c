package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/trait"
)

type ExportData struct {
	Run    *RunMetadata  `json:"run"`
	Frames []ExportFrame `json:"frames"`
}

type ExportFrame struct {
	Step    int          `json:"step"`
	Time    float64      `json:"time"`
	Central int          `json:"central"`
	Nodes   []ExportNode `json:"nodes"`
}

type ExportNode struct {
	ID       string     `json:"id"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
}

func NewExportData(meta *RunMetadata, frames []layout.Snapshot) ExportData {
	data := ExportData{Run: meta, Frames: make([]ExportFrame, len(frames))}
	for i, f := range frames {
		ef := ExportFrame{Step: f.Step, Time: f.Time, Central: f.Central, Nodes: make([]ExportNode, len(f.Nodes))}
		for j, n := range f.Nodes {
			ef.Nodes[j] = ExportNode{ID: n.ID, Position: n.Position.Array(), Velocity: n.Velocity.Array()}
		}
		data.Frames[i] = ef
	}
	return data
}

func ExportJSON(w io.Writer, meta *RunMetadata, frames []layout.Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(meta, frames))
}

// ExportRun writes a stored run as JSON or CSV to path, or to stdout when
// path is empty or "-".
func (s *Store) ExportRun(runID, format, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	switch format {
	case "csv":
		return WriteFramesCSV(w, frames)
	default:
		return ExportJSON(w, meta, frames)
	}
}

// AnnotateCompatibility fills each frame's compatibility values from the
// traits recorded in meta, since frames.csv stores kinematics only. Nodes
// not in meta keep zero; the central node gets 1.
func AnnotateCompatibility(meta *RunMetadata, frames []layout.Snapshot) error {
	r := trait.DefaultRange()
	if meta.Config != nil {
		r = meta.Config.Physics.Range
	}
	byID := make(map[string]NodeRecord, len(meta.Nodes))
	for _, n := range meta.Nodes {
		byID[n.ID] = n
	}

	for fi := range frames {
		f := &frames[fi]
		if f.Central < 0 || f.Central >= len(f.Nodes) {
			continue
		}
		central, ok := byID[f.Nodes[f.Central].ID]
		for i := range f.Nodes {
			if i == f.Central {
				f.Nodes[i].Compatibility = 1
				continue
			}
			n, known := byID[f.Nodes[i].ID]
			if !ok || !known {
				continue
			}
			c, err := trait.Compatibility(central.Preferences, n.Attributes, r)
			if err != nil {
				return fmt.Errorf("frame %d node %s: %w", f.Step, n.ID, err)
			}
			f.Nodes[i].Compatibility = c
		}
	}
	return nil
}
