package chronicle

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/obschronicle/internal/resolve"
)

// #region fixture-types

// Fixture is a chronicle document together with the windows it is expected
// to resolve and what each window should produce.
type Fixture struct {
	Description string        `yaml:"description"`
	Document    Document      `yaml:"document"`
	Cases       []FixtureCase `yaml:"cases"`
}

// FixtureCase is one window over the fixture document. Exactly one of
// Expected and Error is meaningful: Error names the Classify kind the
// window must fail with.
type FixtureCase struct {
	Name     string                `yaml:"name"`
	Begin    string                `yaml:"begin"`
	Final    string                `yaml:"final"`
	Expected *FixtureConfiguration `yaml:"expected,omitempty"`
	Error    string                `yaml:"error,omitempty"`
}

// FixtureConfiguration mirrors resolve.Configuration with YAML tags.
type FixtureConfiguration struct {
	Simulated []int                `yaml:"simulated_channels"`
	Active    []int                `yaml:"active_channels"`
	Variables map[string][]float64 `yaml:"variables,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToConfiguration converts the expectation to a resolver configuration.
func (fc *FixtureConfiguration) ToConfiguration() resolve.Configuration {
	vars := make(map[string][]float64, len(fc.Variables))
	for k, v := range fc.Variables {
		vars[k] = v
	}
	return resolve.Configuration{
		Simulated: fc.Simulated,
		Active:    fc.Active,
		Variables: vars,
	}
}

// #endregion fixture-loader
