// Package config loads formpatch.yaml, validates it against an embedded
// JSON schema and turns it into rule specs and a rule environment.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"

	"github.com/goliatone/go-formpatch/pkg/content"
	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/rules"
)

// EnvPrefix prefixes environment overrides, e.g. FORMPATCH_UNIQUENESS_SCOPE.
const EnvPrefix = "FORMPATCH"

const schemaURL = "formpatch.config.json"

//go:embed config.schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Config models formpatch.yaml.
type Config struct {
	Rules           []RuleConfig `mapstructure:"rules" json:"rules"`
	UniquenessScope string       `mapstructure:"uniqueness_scope" json:"uniqueness_scope"`
	ArrayProperties struct {
		Document []string `mapstructure:"document" json:"document,omitempty"`
		Field    []string `mapstructure:"field" json:"field,omitempty"`
	} `mapstructure:"array_properties" json:"array_properties"`
	WidgetMarkers []string `mapstructure:"widget_markers" json:"widget_markers,omitempty"`
	// GateControl names the navigation control gated on widget steps.
	GateControl string `mapstructure:"gate_control" json:"gate_control,omitempty"`
	// ReferenceKeys names the dynamic-rule members that hold field ids.
	ReferenceKeys []string `mapstructure:"reference_keys" json:"reference_keys,omitempty"`
	Journal       string   `mapstructure:"journal" json:"journal,omitempty"`
}

// RuleConfig is one entry of the configured rule sequence.
type RuleConfig struct {
	Name    string         `mapstructure:"name" json:"name"`
	Options map[string]any `mapstructure:"options" json:"options,omitempty"`
}

// New returns a viper instance with formpatch defaults, search paths and
// environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("formpatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("uniqueness_scope", string(document.ScopeStep))
	v.SetDefault("journal", "")
	return v
}

// Load reads path (or formpatch.yaml from the search paths when empty),
// validates the merged settings and decodes them. A missing default file is
// not an error; a missing explicit file is.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := validateSettings(v.AllSettings()); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

func validateSettings(settings map[string]any) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}
	// The validator expects JSON-decoded values.
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("config: encode settings: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("config: encode settings: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("config: add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("config: compile schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Specs returns the configured rule sequence.
func (c *Config) Specs() []rules.Spec {
	out := make([]rules.Spec, 0, len(c.Rules))
	for _, rule := range c.Rules {
		out = append(out, rules.Spec{Name: rule.Name, Options: rule.Options})
	}
	return out
}

// Env builds the rule environment. Configured array properties replace the
// defaults for their level.
func (c *Config) Env() (rules.Env, error) {
	scope, err := document.ParseScope(c.UniquenessScope)
	if err != nil {
		return rules.Env{}, fmt.Errorf("config: %w", err)
	}
	arrays := document.DefaultArrayProperties()
	if len(c.ArrayProperties.Document) > 0 {
		arrays.Document = c.ArrayProperties.Document
	}
	if len(c.ArrayProperties.Field) > 0 {
		arrays.Field = c.ArrayProperties.Field
	}
	return rules.Env{
		Inspector:     content.NewInspector(c.WidgetMarkers...),
		Scope:         scope,
		Arrays:        arrays,
		ReferenceKeys: c.ReferenceKeys,
		GateControl:   strings.TrimSpace(c.GateControl),
	}, nil
}
