package config

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// loader implements Service on top of koanf. Layers are applied as
// defaults < yaml < env < cli regardless of the order sources are passed in.
type loader struct {
	mu        sync.Mutex
	koanf     *koanf.Koanf
	validator *validator.Validate
	sources   map[string]SourceType
}

var sourceRank = map[SourceType]int{
	SourceDefault: 0,
	SourceYAML:    1,
	SourceEnv:     2,
	SourceCLI:     3,
}

// NewService creates a new configuration service with validation support.
func NewService() Service {
	return &loader{
		koanf:     koanf.New("."),
		validator: validator.New(),
		sources:   make(map[string]SourceType),
	}
}

func (l *loader) Load(_ context.Context, sources ...Source) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.koanf = koanf.New(".")
	l.sources = make(map[string]SourceType)

	if err := l.tracked(SourceDefault, func() error {
		return l.koanf.Load(structs.Provider(Default(), "koanf"), nil)
	}); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	ordered := make([]Source, 0, len(sources)+1)
	for _, s := range sources {
		if s != nil && s.Type() != SourceDefault && s.Type() != SourceEnv {
			ordered = append(ordered, s)
		}
	}
	ordered = append(ordered, NewEnvProvider())
	slices.SortStableFunc(ordered, func(a, b Source) int {
		return cmp.Compare(sourceRank[a.Type()], sourceRank[b.Type()])
	})
	for _, s := range ordered {
		if err := l.loadSource(s); err != nil {
			return nil, err
		}
	}
	return l.unmarshalAndValidate()
}

// tracked runs apply and attributes every added or changed key to source.
func (l *loader) tracked(source SourceType, apply func() error) error {
	before := l.koanf.All()
	if err := apply(); err != nil {
		return err
	}
	for key, after := range l.koanf.All() {
		prev, existed := before[key]
		if !existed || !reflect.DeepEqual(prev, after) {
			l.sources[key] = source
		}
	}
	return nil
}

func (l *loader) loadSource(source Source) error {
	if source.Type() == SourceEnv {
		return l.tracked(SourceEnv, l.loadEnvironment)
	}
	data, err := source.Load()
	switch {
	case err != nil:
		return fmt.Errorf("read %s source: %w", source.Type(), err)
	case len(data) == 0:
		return nil
	}
	// Set keys one by one so partial maps keep sibling values.
	return l.tracked(source.Type(), func() error {
		for key, value := range flattenMap("", data) {
			if err := l.koanf.Set(key, value); err != nil {
				return fmt.Errorf("apply %s from %s source: %w", key, source.Type(), err)
			}
		}
		return nil
	})
}

// loadEnvironment reads variables declared with env struct tags, plus any
// MPDRIVER_SECTION_FIELD variable.
func (l *loader) loadEnvironment() error {
	envToPath := EnvBindings()
	provider := env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if path, ok := envToPath[key]; ok {
				return path, value
			}
			if strings.HasPrefix(key, EnvPrefix) {
				return transformEnvKey(strings.TrimPrefix(key, EnvPrefix)), value
			}
			return "", nil
		},
	})
	if err := l.koanf.Load(provider, nil); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}

// transformEnvKey maps SECTION_FIELD_NAME to section.field_name.
func transformEnvKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == '_' })
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}

// flattenMap turns nested maps into dotted keys; non-map values are leaves.
func flattenMap(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	var walk func(string, map[string]any)
	walk = func(at string, node map[string]any) {
		for k, v := range node {
			path := k
			if at != "" {
				path = at + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(path, child)
				continue
			}
			out[path] = v
		}
	}
	walk(prefix, m)
	return out
}

var sensitiveType = reflect.TypeFor[SensitiveString]()

// sensitiveStringDecodeHook lets plain strings and bytes decode into
// SensitiveString fields.
func sensitiveStringDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != sensitiveType {
		return data, nil
	}
	if b, ok := data.([]byte); ok {
		return SensitiveString(b), nil
	}
	if str, ok := data.(string); ok {
		return SensitiveString(str), nil
	}
	return data, nil
}

func (l *loader) unmarshalAndValidate() (*Config, error) {
	cfg := new(Config)
	conf := koanf.UnmarshalConf{Tag: "koanf", DecoderConfig: &mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "koanf",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			sensitiveStringDecodeHook,
		),
	}}
	if err := l.koanf.UnmarshalWithConf("", cfg, conf); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := l.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *loader) Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("invalid configuration: nil config")
	}
	if err := l.validator.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateCustom(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetSource reports which layer supplied key; unknown keys report defaults.
func (l *loader) GetSource(key string) SourceType {
	l.mu.Lock()
	defer l.mu.Unlock()
	if source, ok := l.sources[key]; ok {
		return source
	}
	return SourceDefault
}

func validateCustom(config *Config) error {
	db := &config.Database
	if db.ConnString == "" && (db.Host == "" || db.Port == "" || db.User == "" || db.DBName == "") {
		return fmt.Errorf("database configuration incomplete: either conn_string or individual components required")
	}
	if config.Monitoring.Enabled && !strings.HasPrefix(config.Monitoring.Path, "/") {
		return fmt.Errorf("monitoring path must start with '/': got %q", config.Monitoring.Path)
	}
	return nil
}
