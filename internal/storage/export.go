package storage

import (
	"encoding/json"
	"io"
	"os"
)

// ExportData is the flat JSON form of a run, convenient for plotting
// tools and notebooks.
type ExportData struct {
	RunMetadata
	Times    []float64 `json:"times"`
	Heights  []float64 `json:"heights"`
	Measured []float64 `json:"measured"`
	Commands []float64 `json:"commands"`
}

func buildExport(meta RunMetadata, rows []Row) ExportData {
	data := ExportData{
		RunMetadata: meta,
		Times:       make([]float64, len(rows)),
		Heights:     make([]float64, len(rows)),
		Measured:    make([]float64, len(rows)),
		Commands:    make([]float64, len(rows)),
	}
	for i, r := range rows {
		data.Times[i] = r.Time
		data.Heights[i] = r.Height
		data.Measured[i] = r.Measured
		data.Commands[i] = r.Command
	}
	return data
}

// ExportJSON writes a stored run as one JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	rows, err := s.LoadRows(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildExport(*meta, rows))
}

// ExportJSONFile writes the run to a file path.
func (s *Store) ExportJSONFile(runID, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.ExportJSON(runID, file)
}
