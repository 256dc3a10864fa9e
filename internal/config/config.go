// Persisted application settings
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const appDirName = "shallow-water-workbench"

// Settings is the JSON settings file. Unknown keys in an existing file are
// ignored; missing keys keep their defaults.
type Settings struct {
	Window struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"window"`
	Paths struct {
		LastImageDir  string `json:"last_image_dir"`
		LastOutputDir string `json:"last_output_dir"`
	} `json:"paths"`
	Processing struct {
		DefaultSensor string `json:"default_sensor"`
		DefaultMethod string `json:"default_method"`
		EngineURL     string `json:"engine_url"`
	} `json:"processing"`
}

// Default returns the settings used when no file exists yet.
func Default() *Settings {
	s := &Settings{}
	s.Window.Width = 1200
	s.Window.Height = 800
	s.Processing.DefaultSensor = "sentinel2"
	s.Processing.DefaultMethod = "lut"
	s.Processing.EngineURL = "http://localhost:8421"
	return s
}

// DefaultPath returns the per-user settings file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config directory: %w", err)
	}
	return filepath.Join(base, appDirName, "settings.json"), nil
}

// Load reads settings from path, merging the file over the defaults. A
// missing file is not an error; defaults are returned.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return s, nil
}

// Save writes the settings to path, creating parent directories as needed.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
