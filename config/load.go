package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable that points at the config file.
const EnvConfigPath = "REALMGATE_CONFIG"

// SearchPaths are tried in order when no path is given.
var SearchPaths = []string{"realmgate.yaml", "/etc/realmgate/realmgate.yaml"}

// Load builds the configuration from defaults, the file at path (or the
// discovered file when path is empty) and the environment.
func Load(path string) (*Config, error) {
	c := Default()

	file, err := locate(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
		if err := Parse(raw, c, os.LookupEnv); err != nil {
			return nil, fmt.Errorf("config: %s: %w", file, err)
		}
	}

	if err := ApplyEnv(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// locate returns the file to load, or "" when none is configured and none
// of SearchPaths exists.
func locate(path string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			return "", fmt.Errorf("config: %w", err)
		}
		return path, nil
	}

	for _, p := range SearchPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Parse expands references in raw and decodes it onto c. Keys absent from
// raw keep their current values.
func Parse(raw []byte, c *Config, lookup func(string) (string, bool)) error {
	text, err := Expand(string(raw), lookup)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(text)))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}
