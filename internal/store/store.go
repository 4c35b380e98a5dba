// Package store persists solver runs: one directory per run holding
// metadata.json and trajectory.csv.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/voltlab/voltsim/internal/solver"
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

type RunMetadata struct {
	ID          string             `json:"id"`
	Model       string             `json:"model"`
	Timestamp   time.Time          `json:"timestamp"`
	Method      string             `json:"method"`
	RTol        float64            `json:"rtol"`
	ATol        float64            `json:"atol"`
	Inputs      map[string]float64 `json:"inputs,omitempty"`
	States      []string           `json:"states"`
	Termination string             `json:"termination"`
	SetUpTime   float64            `json:"set_up_time_s"`
	SolveTime   float64            `json:"solve_time_s"`
	TotalTime   float64            `json:"total_time_s"`
	Steps       int                `json:"steps"`
	Rejected    int                `json:"rejected"`
	RHSEvals    int                `json:"rhs_evals"`
	JacEvals    int                `json:"jac_evals"`
}

type RunInfo struct {
	Model  string
	Method string
	RTol   float64
	ATol   float64
	Inputs map[string]float64
	States []string
}

func (s *Store) Save(info RunInfo, sol *solver.Solution) (string, error) {
	runID := fmt.Sprintf("%s_%d", info.Model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Model:       info.Model,
		Timestamp:   time.Now(),
		Method:      info.Method,
		RTol:        info.RTol,
		ATol:        info.ATol,
		Inputs:      info.Inputs,
		States:      info.States,
		Termination: sol.Termination,
		SetUpTime:   sol.SetUpTime.Seconds(),
		SolveTime:   sol.SolveTime.Seconds(),
		TotalTime:   sol.TotalTime.Seconds(),
		Steps:       sol.Stats.Steps,
		Rejected:    sol.Stats.Rejected,
		RHSEvals:    sol.Stats.RHSEvals,
		JacEvals:    sol.Stats.JacEvals,
	}

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

	csvFile, err := os.Create(filepath.Join(runDir, "trajectory.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"time"}
	for i := range sol.Y {
		name := fmt.Sprintf("y%d", i)
		if i < len(info.States) {
			name = info.States[i]
		}
		header = append(header, name)
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for k := range sol.T {
		row := []string{strconv.FormatFloat(sol.T[k], 'g', -1, 64)}
		for i := range sol.Y {
			row = append(row, strconv.FormatFloat(sol.Y[i][k], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

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
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
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

// LoadTrajectory reads back the stored grid and per-state series.
func (s *Store) LoadTrajectory(runID string) ([]float64, [][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, [][]float64{}, nil
	}

	nStates := len(records[0]) - 1
	times := make([]float64, 0, len(records)-1)
	y := make([][]float64, nStates)
	for i := range y {
		y[i] = make([]float64, 0, len(records)-1)
	}

	for _, record := range records[1:] {
		if len(record) != nStates+1 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)
		for i := 0; i < nStates; i++ {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				v = 0
			}
			y[i] = append(y[i], v)
		}
	}
	return times, y, nil
}
