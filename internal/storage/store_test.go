package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/traitfield/internal/config"
	"github.com/san-kum/traitfield/internal/experiment"
	"github.com/san-kum/traitfield/internal/geom"
	"github.com/san-kum/traitfield/internal/layout"
)

func runExperiment(t *testing.T) (*config.Config, *experiment.Result) {
	t.Helper()
	cfg := config.GetPreset("sparse")
	cfg.Steps = 5
	cfg.Seed = 42

	reg := experiment.NewRegistry()
	exp := experiment.New(cfg)
	if err := exp.Setup(reg.DefaultMetrics()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return cfg, result
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg, result := runExperiment(t)
	runID, err := st.Save(cfg, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "sparse_") || len(runID) != len("sparse_")+8 {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Steps != 5 {
		t.Errorf("expected 5 steps, got %d", meta.Steps)
	}
	if len(meta.Nodes) != cfg.Nodes {
		t.Errorf("expected %d node records, got %d", cfg.Nodes, len(meta.Nodes))
	}
	if meta.Config == nil || *meta.Config != *cfg {
		t.Errorf("config did not round-trip: %+v", meta.Config)
	}
	if meta.TraitKeys[0] != "attr1" {
		t.Errorf("expected canonical trait keys, got %v", meta.TraitKeys)
	}

	frames, err := st.LoadFrames(runID)
	if err != nil {
		t.Fatalf("load frames failed: %v", err)
	}
	if len(frames) != len(result.Frames) {
		t.Fatalf("expected %d frames, got %d", len(result.Frames), len(frames))
	}
	last := frames[len(frames)-1]
	want := result.Final()
	if last.Step != want.Step || last.Central != want.Central {
		t.Errorf("frame header mismatch: %+v vs %+v", last, want)
	}
	for i := range want.Nodes {
		if last.Nodes[i].ID != want.Nodes[i].ID || last.Nodes[i].Position != want.Nodes[i].Position {
			t.Errorf("node %d did not round-trip: %+v vs %+v", i, last.Nodes[i], want.Nodes[i])
		}
	}
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	cfg, result := runExperiment(t)
	for i := 0; i < 2; i++ {
		if _, err := st.Save(cfg, result); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	cfg, result := runExperiment(t)

	runID, err := st.Save(cfg, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "frames.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestFramesCSVRoundTrip(t *testing.T) {
	frames := []layout.Snapshot{
		{Step: 0, Time: 0, Central: 1, Nodes: []layout.NodeView{
			{ID: "a", Position: geom.Vec3{X: 1.5, Y: -2, Z: 1e-7}},
			{ID: "sun"},
		}},
		{Step: 1, Time: 1.0 / 60, Central: 1, Nodes: []layout.NodeView{
			{ID: "a", Position: geom.Vec3{X: 1.25}, Velocity: geom.Vec3{Z: 0.3}},
			{ID: "sun"},
		}},
	}

	var buf bytes.Buffer
	if err := WriteFramesCSV(&buf, frames); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "step,time,node,central,x,y,z,vx,vy,vz\n") {
		t.Errorf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	got, err := ReadFramesCSV(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if got[1].Time != 1.0/60 || got[1].Central != 1 {
		t.Errorf("frame 1 header mismatch: %+v", got[1])
	}
	if got[0].Nodes[0].Position != frames[0].Nodes[0].Position {
		t.Errorf("position mismatch: %v", got[0].Nodes[0].Position)
	}
	if got[1].Nodes[0].Velocity != frames[1].Nodes[0].Velocity {
		t.Errorf("velocity mismatch: %v", got[1].Nodes[0].Velocity)
	}
}

func TestExportJSON(t *testing.T) {
	meta := &RunMetadata{ID: "x_12345678", Name: "x"}
	frames := []layout.Snapshot{{Step: 3, Nodes: []layout.NodeView{{ID: "a", Position: geom.Vec3{X: 1, Y: 2, Z: 3}}}}}

	var buf bytes.Buffer
	if err := ExportJSON(&buf, meta, frames); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Run.ID != "x_12345678" || data.Frames[0].Step != 3 {
		t.Errorf("unexpected export: %+v", data)
	}
	if data.Frames[0].Nodes[0].Position != [3]float64{1, 2, 3} {
		t.Errorf("unexpected position: %v", data.Frames[0].Nodes[0].Position)
	}
}

func TestExportRun(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	cfg, result := runExperiment(t)
	runID, err := st.Save(cfg, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out := filepath.Join(tmpDir, "out.csv")
	if err := st.ExportRun(runID, "csv", out); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	// header plus one row per node per frame
	lines := strings.Count(string(data), "\n")
	if want := 1 + len(result.Frames)*cfg.Nodes; lines != want {
		t.Errorf("expected %d lines, got %d", want, lines)
	}

	if err := st.ExportRun("missing", "json", ""); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestAnnotateCompatibility(t *testing.T) {
	meta := &RunMetadata{
		Nodes: []NodeRecord{
			{ID: "c", Attributes: []float64{50, 50}, Preferences: []float64{100, 0}},
			{ID: "a", Attributes: []float64{100, 0}, Preferences: []float64{0, 0}},
			{ID: "b", Attributes: []float64{0, 100}, Preferences: []float64{0, 0}},
		},
	}
	frames := []layout.Snapshot{{
		Central: 0,
		Nodes: []layout.NodeView{
			{ID: "c"}, {ID: "a"}, {ID: "b"}, {ID: "late"},
		},
	}}

	if err := AnnotateCompatibility(meta, frames); err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	got := []float64{}
	for _, n := range frames[0].Nodes {
		got = append(got, n.Compatibility)
	}
	want := []float64{1, 1, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("node %d compatibility = %v, want %v", i, got[i], want[i])
		}
	}
}
