package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formpatch/internal/config"
	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/rules"
	"github.com/goliatone/go-formpatch/pkg/testsupport"
)

const sampleConfig = `uniqueness_scope: document
widget_markers:
  - voice-recorder
array_properties:
  field:
    - otpConfig.optionalFields
    - choices
rules:
  - name: type-normalization
  - name: scope-isolation
    options:
      steps: [roleplay-1]
  - name: navigation-gating
    options:
      label: Continue
gate_control: advance
reference_keys: [field, target, source]
journal: runs.db
`

func TestLoadDecodesRulesAndEnv(t *testing.T) {
	path := testsupport.WriteFile(t, t.TempDir(), "formpatch.yaml", sampleConfig)

	cfg, err := config.Load(config.New(), path)
	require.NoError(t, err)

	specs := cfg.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, rules.NameTypeNormalization, specs[0].Name)
	assert.Equal(t, "Continue", specs[2].Options["label"])
	assert.Equal(t, "runs.db", cfg.Journal)

	env, err := cfg.Env()
	require.NoError(t, err)
	assert.Equal(t, document.ScopeDocument, env.Scope)
	assert.Equal(t, []string{"otpConfig.optionalFields", "choices"}, env.Arrays.Field)
	assert.Equal(t, document.DefaultArrayProperties().Document, env.Arrays.Document)
	assert.True(t, env.Inspector.HasWidget("<voice-recorder></voice-recorder>"))
	assert.Equal(t, "advance", env.GateControl)
	assert.Equal(t, []string{"field", "target", "source"}, env.ReferenceKeys)

	built, err := rules.DefaultRegistry().BuildAll(env, specs)
	require.NoError(t, err)
	assert.Len(t, built, 3)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown scope":     "uniqueness_scope: galaxy\n",
		"unknown key":       "rulez: []\n",
		"rule without name": "rules:\n  - options: {}\n",
		"marker not string": "widget_markers: [{a: b}]\n",
		"empty reference":   "reference_keys: [\"\"]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := testsupport.WriteFile(t, t.TempDir(), "formpatch.yaml", body)
			_, err := config.Load(config.New(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config: invalid")
		})
	}
}

// The package directory holds no formpatch.yaml, so the search finds nothing.
func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Rules)

	env, err := cfg.Env()
	require.NoError(t, err)
	assert.Equal(t, document.ScopeStep, env.Scope)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(config.New(), "/does/not/exist/formpatch.yaml")
	require.Error(t, err)
}

func TestEnvironmentOverridesScope(t *testing.T) {
	t.Setenv("FORMPATCH_UNIQUENESS_SCOPE", "document")
	path := testsupport.WriteFile(t, t.TempDir(), "formpatch.yaml", "rules: []\n")

	cfg, err := config.Load(config.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "document", cfg.UniquenessScope)
}
