// Package config loads engine, loader and service settings from YAML files
// and key/value overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aretw0/zpt/internal/logging"
	"github.com/aretw0/zpt/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of an engine and its template source.
type Config struct {
	DefaultPrefix            string `yaml:"default_prefix" mapstructure:"default_prefix"`
	ErrorMode                string `yaml:"error_mode" mapstructure:"error_mode"`
	IncludeSourceAnnotations bool   `yaml:"include_source_annotations" mapstructure:"include_source_annotations"`
	OmitXMLDeclaration       bool   `yaml:"omit_xml_declaration" mapstructure:"omit_xml_declaration"`
	MaxMacroDepth            int    `yaml:"max_macro_depth" mapstructure:"max_macro_depth"`

	// Format forces "html" or "xml"; empty picks by file extension.
	Format      string   `yaml:"format" mapstructure:"format"`
	TemplateDir string   `yaml:"template_dir" mapstructure:"template_dir"`
	Extensions  []string `yaml:"extensions" mapstructure:"extensions"`

	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`

	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`

	// Keywords are exposed to templates as "options".
	Keywords map[string]any `yaml:"keywords" mapstructure:"keywords"`
}

// RedisConfig selects a Redis source store. It is used when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	opts := domain.DefaultRenderOptions()
	return Config{
		DefaultPrefix: opts.DefaultPrefix,
		ErrorMode:     string(opts.ErrorMode),
		MaxMacroDepth: opts.MaxMacroDepth,
		TemplateDir:   "templates",
		Extensions:    []string{".pt", ".html", ".xml"},
		LogLevel:      "info",
		LogFormat:     logging.FormatText,
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Apply(raw); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// FromMap decodes values over the defaults.
func FromMap(values map[string]any) (Config, error) {
	cfg := Default()
	if err := cfg.Apply(values); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Apply decodes values into c, leaving unset fields untouched.
// Strings are converted to durations, numbers and booleans where needed.
func (c *Config) Apply(values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(values); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseOverrides turns "key=value" pairs into a nested map for Apply.
// Dotted keys address nested sections ("redis.addr=localhost:6379") and
// values are parsed as YAML scalars, so "true" and "3" keep their types.
func ParseOverrides(pairs []string) (map[string]any, error) {
	out := make(map[string]any)
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q (expected key=value)", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}

		parts := strings.Split(key, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[p] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = value
	}
	return out, nil
}

// Validate reports settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.RenderOptions().Normalize(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxMacroDepth < 0 {
		errs = append(errs, fmt.Errorf("max_macro_depth must not be negative"))
	}
	switch strings.ToLower(c.Format) {
	case "", "html", "xml":
	default:
		errs = append(errs, fmt.Errorf("unknown format %q (expected html or xml)", c.Format))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, fmt.Errorf("redis.ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// RenderOptions returns the per-render options described by c.
func (c Config) RenderOptions() domain.RenderOptions {
	return domain.RenderOptions{
		IncludeSourceAnnotations: c.IncludeSourceAnnotations,
		OmitXMLDeclaration:       c.OmitXMLDeclaration,
		ErrorMode:                domain.ErrorMode(c.ErrorMode),
		MaxMacroDepth:            c.MaxMacroDepth,
		DefaultPrefix:            c.DefaultPrefix,
		Keywords:                 c.Keywords,
	}
}
