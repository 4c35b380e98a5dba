package store

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
)

type runExport struct {
	Meta  RunMetadata `json:"meta"`
	Times []float64   `json:"times"`
	Y     [][]float64 `json:"y"`
}

// ExportJSON writes metadata plus trajectory as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	times, y, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runExport{Meta: *meta, Times: times, Y: y})
}

// ExportCSV re-emits the stored trajectory as CSV.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	times, y, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"time"}
	header = append(header, meta.States...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for k := range times {
		row := []string{strconv.FormatFloat(times[k], 'g', -1, 64)}
		for i := range y {
			row = append(row, strconv.FormatFloat(y[i][k], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}
