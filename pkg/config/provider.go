package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// source is a Source backed by a load function. A nil load yields no keys,
// which is how the default and env markers work: the loader itself reads
// struct defaults and the process environment at their precedence slot.
type source struct {
	kind SourceType
	load func() (map[string]any, error)
}

func (s *source) Load() (map[string]any, error) {
	if s.load == nil {
		return map[string]any{}, nil
	}
	return s.load()
}

func (s *source) Type() SourceType { return s.kind }

func (s *source) Close() error { return nil }

// NewDefaultProvider marks the built-in defaults layer.
func NewDefaultProvider() Source { return &source{kind: SourceDefault} }

// NewEnvProvider marks the environment layer.
func NewEnvProvider() Source { return &source{kind: SourceEnv} }

// NewCLIProvider exposes flag values keyed by dotted config path.
func NewCLIProvider(flags map[string]any) Source {
	return &source{kind: SourceCLI, load: func() (map[string]any, error) {
		return maps.Clone(flags), nil
	}}
}

// NewYAMLProvider reads a YAML file. A missing file yields no keys.
func NewYAMLProvider(path string) Source {
	return &source{kind: SourceYAML, load: func() (map[string]any, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read YAML file: %w", err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML file %s: %w", path, err)
		}
		return dropNulls(doc), nil
	}}
}

// dropNulls removes null leaves so an empty YAML key keeps the lower layer.
func dropNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
		case map[string]any:
			if nested := dropNulls(val); len(nested) > 0 {
				out[k] = nested
			}
		default:
			out[k] = v
		}
	}
	return out
}

// LoadEnvFile exports a dotenv file into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}
