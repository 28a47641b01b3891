package config

// Presets are named starting points for common experiments. Each
// preset builds on the defaults so unset fields stay sensible.
var Presets = map[string]func() *Config{
	"default": DefaultConfig,
	"quiet": func() *Config {
		cfg := DefaultConfig()
		cfg.Sim.SensorNoiseStd = 0.5
		cfg.Sim.TurbulenceStd = 0.1
		cfg.Sim.ForceNoiseStd = 10
		return cfg
	},
	"windy": func() *Config {
		cfg := DefaultConfig()
		cfg.Sim.TurbulenceStd = 1.0
		cfg.Sim.ForceNoiseStd = 150
		cfg.Fuzzy.Alpha = 0.3
		return cfg
	},
	"bench": func() *Config {
		cfg := DefaultConfig()
		cfg.Sim.SensorNoiseStd = 0
		cfg.Sim.TurbulenceStd = 0
		cfg.Sim.ForceNoiseStd = 0
		cfg.Sim.Seed = 1
		return cfg
	},
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
