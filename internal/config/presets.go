package config

func preset(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	mutate(cfg)
	return cfg
}

var presets = map[string]map[string]func(*Config){
	"straight": {
		"nominal": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "straight", Duration: 30, Speed: 8}
		},
		"offset": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "straight", Duration: 30, Speed: 8, LateralOffset: 1.0}
		},
		"fast": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "straight", Duration: 30, Speed: 16, LateralOffset: 0.5}
		},
	},
	"circle": {
		"wide": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "circle", Duration: 40, Speed: 8, Radius: 80}
		},
		"tight": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "circle", Duration: 40, Speed: 5, Radius: 20}
		},
		"dynamic": func(c *Config) {
			c.Model = "dynamic"
			c.Scenario = ScenarioConfig{Path: "circle", Duration: 40, Speed: 8, Radius: 50}
		},
	},
	"lane_change": {
		"urban": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "lane_change", Duration: 25, Speed: 8}
		},
		"highway": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "lane_change", Duration: 25, Speed: 22}
		},
		"noisy": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "lane_change", Duration: 25, Speed: 8, SteerNoise: 0.01, Seed: 7}
		},
	},
	"s_curve": {
		"gentle": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "s_curve", Duration: 40, Speed: 6, Radius: 60}
		},
		"sharp": func(c *Config) {
			c.Scenario = ScenarioConfig{Path: "s_curve", Duration: 40, Speed: 5, Radius: 25}
		},
	},
}

func GetPreset(path, name string) *Config {
	pathPresets, ok := presets[path]
	if !ok {
		return nil
	}
	mutate, ok := pathPresets[name]
	if !ok {
		return nil
	}
	return preset(mutate)
}

func ListPresets(path string) []string {
	pathPresets, ok := presets[path]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(pathPresets))
	for name := range pathPresets {
		names = append(names, name)
	}
	return names
}

func ListPaths() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
