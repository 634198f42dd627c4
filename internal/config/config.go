// Package config loads the generator's veneer.json settings file.
package config

import (
	"encoding/json"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/veneerhq/veneer"
)

// DefaultFile is the settings file looked up in the working directory.
const DefaultFile = "veneer.json"

// Config holds the generator settings.
type Config struct {
	// RootFolder is the directory scanned for endpoint declarations.
	RootFolder string `json:"rootFolder" validate:"required"`
	// OutputFile is where the route manifest is written.
	OutputFile string `json:"outputFile" validate:"required,endswith=.go"`
	// MakeCrud selects the CRUD scaffold for newly created files.
	MakeCrud bool `json:"makeCrud"`
}

var validate = validator.New()

// Default returns the settings used when no veneer.json exists.
func Default() Config {
	return Config{
		RootFolder: "./api",
		OutputFile: "./api/routes.gen.go",
	}
}

// Load reads path, falling back to Default when the file is missing.
// Unset fields take their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, veneer.NewError(veneer.CodeConfiguration, err.Error())
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, veneer.Errorf(veneer.CodeConfiguration, "parse %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings against their constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return veneer.Errorf(veneer.CodeConfiguration, "invalid settings: %v", err)
	}
	return nil
}

// Save writes the settings to path as indented JSON.
func (c Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
