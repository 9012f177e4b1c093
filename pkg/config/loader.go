package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var dotenvOnce sync.Once

// Load decodes the process environment into v using its env and envDefault
// tags. A .env file in the working directory is read once per process; it
// never overrides variables that are already set.
func Load[T any](v *T) error {
	dotenvOnce.Do(func() { _ = godotenv.Load() })
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadFile fills v with its `envDefault` values and then decodes the YAML
// file at path over them. The process environment is not consulted.
func LoadFile[T any](path string, v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	if err := env.ParseWithOptions(v, env.Options{Environment: map[string]string{}}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrReadingFile, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return errors.Join(ErrReadingFile, fmt.Errorf("%s: %w", path, err))
	}
	return nil
}
