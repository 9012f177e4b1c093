// Package config loads notification client settings.
//
// Load is a generic helper that parses `env` struct tags with
// github.com/caarlos0/env/v11 after loading an optional .env file through
// github.com/joho/godotenv. LoadFile fills `envDefault` values and then
// decodes a YAML document (gopkg.in/yaml.v3) over them, which lets the
// notifyd binary be driven from a single file.
//
// Config is the concrete settings struct:
//
//	cfg, err := config.FromEnv()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg, err = config.FromFile("notifyd.yaml")
//
// Durations accept Go duration strings ("1500ms", "20s") in both sources.
// Validate joins every problem with ErrInvalidConfig so callers can test
// with errors.Is.
package config
