package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMethod = "rk45"
	DefaultRTol   = 1e-6
	DefaultATol   = 1e-6
	DefaultTEnd   = 10.0
	DefaultPoints = 100
)

type Config struct {
	Model  string             `yaml:"model"`
	Method string             `yaml:"method"`
	RTol   float64            `yaml:"rtol"`
	ATol   float64            `yaml:"atol"`
	TEnd   float64            `yaml:"t_end"`
	Points int                `yaml:"points"`
	Inputs map[string]float64 `yaml:"inputs"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:  "decay",
		Method: DefaultMethod,
		RTol:   DefaultRTol,
		ATol:   DefaultATol,
		TEnd:   DefaultTEnd,
		Points: DefaultPoints,
		Inputs: map[string]float64{"rate": 0.1},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Points < 2 {
		return fmt.Errorf("points must be at least 2, got %d", c.Points)
	}
	if c.TEnd <= 0 {
		return fmt.Errorf("t_end must be positive, got %f", c.TEnd)
	}
	if c.RTol <= 0 || c.ATol <= 0 {
		return fmt.Errorf("tolerances must be positive, got rtol=%g atol=%g", c.RTol, c.ATol)
	}
	return nil
}

// TimeGrid builds the evenly spaced output grid [0, TEnd] with Points
// points. The final entry is set to TEnd exactly.
func (c *Config) TimeGrid() []float64 {
	grid := make([]float64, c.Points)
	dt := c.TEnd / float64(c.Points-1)
	for i := range grid {
		grid[i] = float64(i) * dt
	}
	grid[len(grid)-1] = c.TEnd
	return grid
}
