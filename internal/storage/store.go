package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/traitfield/internal/config"
	"github.com/san-kum/traitfield/internal/experiment"
	"github.com/san-kum/traitfield/internal/geom"
	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/trait"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
)

var frameHeader = []string{"step", "time", "node", "central", "x", "y", "z", "vx", "vy", "vz"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// NodeRecord is a node's identity and traits as they were at the start of
// the run.
type NodeRecord struct {
	ID          string       `json:"id"`
	Attributes  trait.Vector `json:"attributes"`
	Preferences trait.Vector `json:"preferences"`
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Steps      int                `json:"steps"`
	Dt         float64            `json:"dt"`
	ForceLaw   string             `json:"force_law"`
	Integrator string             `json:"integrator"`
	TraitKeys  []string           `json:"trait_keys"`
	Config     *config.Config     `json:"config"`
	Nodes      []NodeRecord       `json:"nodes"`
	Metrics    map[string]float64 `json:"metrics"`
	Spikes     int                `json:"spikes"`
}

// NewRunID returns "<name>_<first 8 hex digits of a random UUID>".
func NewRunID(name string) string {
	if name == "" {
		name = "run"
	}
	return fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
}

func (s *Store) Save(cfg *config.Config, result *experiment.Result) (string, error) {
	runID := NewRunID(cfg.Name)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       cfg.Name,
		Timestamp:  time.Now(),
		Seed:       cfg.Seed,
		Steps:      result.StepsTaken,
		Dt:         cfg.Physics.Dt,
		ForceLaw:   cfg.Physics.ForceLaw,
		Integrator: cfg.Physics.Integrator,
		TraitKeys:  trait.CanonicalKeys(cfg.Traits),
		Config:     cfg,
		Nodes:      make([]NodeRecord, len(result.Nodes)),
		Metrics:    result.Metrics,
		Spikes:     result.Spikes,
	}
	for i, n := range result.Nodes {
		meta.Nodes[i] = NodeRecord{ID: n.ID, Attributes: n.Attributes, Preferences: n.Preferences}
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, framesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteFramesCSV(csvFile, result.Frames); err != nil {
		return "", err
	}
	return runID, csvFile.Close()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]layout.Snapshot, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadFramesCSV(file)
}

// WriteFramesCSV writes one row per node per frame.
func WriteFramesCSV(w io.Writer, frames []layout.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(frameHeader); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, frame := range frames {
		for i, n := range frame.Nodes {
			central := "0"
			if i == frame.Central {
				central = "1"
			}
			row := []string{
				strconv.Itoa(frame.Step), f(frame.Time), n.ID, central,
				f(n.Position.X), f(n.Position.Y), f(n.Position.Z),
				f(n.Velocity.X), f(n.Velocity.Y), f(n.Velocity.Z),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadFramesCSV groups rows back into frames by step. Compatibility is not
// stored and reads as zero.
func ReadFramesCSV(r io.Reader) ([]layout.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(frameHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []layout.Snapshot{}, nil
	}

	frames := make([]layout.Snapshot, 0)
	for line, rec := range records[1:] {
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("frames line %d: %w", line+2, err)
		}
		vals := make([]float64, 7)
		for j, col := range []int{1, 4, 5, 6, 7, 8, 9} {
			vals[j], err = strconv.ParseFloat(rec[col], 64)
			if err != nil {
				return nil, fmt.Errorf("frames line %d: %w", line+2, err)
			}
		}

		if len(frames) == 0 || frames[len(frames)-1].Step != step {
			frames = append(frames, layout.Snapshot{Step: step, Time: vals[0]})
		}
		cur := &frames[len(frames)-1]
		if rec[3] == "1" {
			cur.Central = len(cur.Nodes)
		}
		cur.Nodes = append(cur.Nodes, layout.NodeView{
			ID:       rec[2],
			Position: geom.Vec3{X: vals[1], Y: vals[2], Z: vals[3]},
			Velocity: geom.Vec3{X: vals[4], Y: vals[5], Z: vals[6]},
			Mass:     1,
		})
	}
	return frames, nil
}
