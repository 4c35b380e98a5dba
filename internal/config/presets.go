package config

var Presets = map[string]map[string]*Config{
	"decay": {
		"slow": {
			Model: "decay", Method: "rk45", RTol: 1e-6, ATol: 1e-6,
			TEnd: 50.0, Points: 200, Inputs: map[string]float64{"rate": 0.02},
		},
		"fast": {
			Model: "decay", Method: "rk45", RTol: 1e-6, ATol: 1e-6,
			TEnd: 5.0, Points: 100, Inputs: map[string]float64{"rate": 1.0},
		},
		"stiffish": {
			Model: "decay", Method: "bdf", RTol: 1e-6, ATol: 1e-8,
			TEnd: 1.0, Points: 100, Inputs: map[string]float64{"rate": 50.0},
		},
	},
	"diffusion": {
		"gentle": {
			Model: "diffusion", Method: "rk45", RTol: 1e-6, ATol: 1e-6,
			TEnd: 2.0, Points: 100, Inputs: map[string]float64{"d": 0.01},
		},
		"sharp": {
			Model: "diffusion", Method: "bdf", RTol: 1e-6, ATol: 1e-8,
			TEnd: 0.5, Points: 100, Inputs: map[string]float64{"d": 0.2},
		},
	},
	"oscillator": {
		"default": {
			Model: "oscillator", Method: "rk45", RTol: 1e-8, ATol: 1e-8,
			TEnd: 20.0, Points: 400, Inputs: map[string]float64{},
		},
	},
}

func GetPreset(model, name string) *Config {
	group, ok := Presets[model]
	if !ok {
		return nil
	}
	return group[name]
}

func ListPresets(model string) []string {
	group, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	return names
}
