package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Storage struct {
		// "sqlite" (default, embedded) or "postgres"
		Driver string `yaml:"driver" json:"driver"`
		// postgres DSN; ignored for sqlite
		DSN string `yaml:"dsn" json:"dsn"`
	} `yaml:"storage" json:"storage"`

	Ingest struct {
		StalenessHours   int `yaml:"staleness_hours" json:"staleness_hours"`
		CaptureMaxChars  int `yaml:"capture_max_chars" json:"capture_max_chars"`
		ImportsPerMinute int `yaml:"imports_per_minute" json:"imports_per_minute"`
	} `yaml:"ingest" json:"ingest"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
