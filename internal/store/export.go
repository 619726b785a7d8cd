package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ExportData is the full JSON view of one run: its metadata, every episode
// and the aggregate metrics computed over them.
type ExportData struct {
	Run      Run                `json:"run"`
	Episodes []Episode          `json:"episodes"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

// Export assembles the JSON view of runID.
func (s *Store) Export(runID string, metrics map[string]float64) (*ExportData, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	eps, err := s.Episodes(runID)
	if err != nil {
		return nil, err
	}
	return &ExportData{Run: run, Episodes: eps, Metrics: metrics}, nil
}

// ExportJSON writes the run as indented JSON to path.
func (s *Store) ExportJSON(path, runID string, metrics map[string]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()
	return s.exportTo(file, runID, metrics)
}

// ExportJSONStdout writes the run as indented JSON to standard output.
func (s *Store) ExportJSONStdout(runID string, metrics map[string]float64) error {
	return s.exportTo(os.Stdout, runID, metrics)
}

func (s *Store) exportTo(w io.Writer, runID string, metrics map[string]float64) error {
	data, err := s.Export(runID, metrics)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
