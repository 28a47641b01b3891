// Package storage persists control and simulation runs: one directory
// per run holding metadata.json and a states.csv trace.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/MathBorgess/automation-engineering/internal/loop"
	"github.com/MathBorgess/automation-engineering/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one persisted run.
type RunMetadata struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"` // "sim" or "serial"
	Controller string             `json:"controller"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Setpoint   float64            `json:"setpoint"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Row is one trace sample. Height is the best height estimate (the
// true state when simulated, the reading when live), Measured the raw
// sensor value and Command the applied fan percent.
type Row struct {
	Time     float64
	Height   float64
	Measured float64
	Command  float64
	Missed   bool
}

// RowsFromSim converts simulator records into trace rows.
func RowsFromSim(recs []sim.Record) []Row {
	rows := make([]Row, len(recs))
	for i, r := range recs {
		rows[i] = Row{
			Time:     r.Time,
			Height:   r.Height,
			Measured: r.Measured,
			Command:  r.Command,
		}
	}
	return rows
}

// RowsFromLoop converts loop records into trace rows. Live runs have
// no ground-truth height, so the reading stands in for it.
func RowsFromLoop(recs []loop.Record) []Row {
	rows := make([]Row, len(recs))
	for i, r := range recs {
		rows[i] = Row{
			Time:     r.Time,
			Height:   r.Distance,
			Measured: r.Distance,
			Command:  r.Command,
			Missed:   r.Missed,
		}
	}
	return rows
}

// Save writes a run directory and returns its generated ID. The
// metadata's ID, timestamp and step count are filled in here.
// Nanosecond timestamps keep back-to-back saves from colliding.
func (s *Store) Save(meta RunMetadata, rows []Row) (string, error) {
	runID := fmt.Sprintf("%s_%s_%d", meta.Source, meta.Controller, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Steps = len(rows)

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write([]string{"time", "height", "measured", "command", "missed"}); err != nil {
		return "", err
	}
	for _, r := range rows {
		missed := "0"
		if r.Missed {
			missed = "1"
		}
		row := []string{
			strconv.FormatFloat(r.Time, 'f', 6, 64),
			strconv.FormatFloat(r.Height, 'f', 6, 64),
			strconv.FormatFloat(r.Measured, 'f', 6, 64),
			strconv.FormatFloat(r.Command, 'f', 6, 64),
			missed,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// List returns the metadata of every readable run under the base dir.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadRows reads a run's trace back.
func (s *Store) LoadRows(runID string) ([]Row, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Row{}, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		t, err1 := strconv.ParseFloat(rec[0], 64)
		h, err2 := strconv.ParseFloat(rec[1], 64)
		m, err3 := strconv.ParseFloat(rec[2], 64)
		c, err4 := strconv.ParseFloat(rec[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		rows = append(rows, Row{Time: t, Height: h, Measured: m, Command: c, Missed: rec[4] == "1"})
	}
	return rows, nil
}
