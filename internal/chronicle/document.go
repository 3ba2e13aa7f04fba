package chronicle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// #region document
// Document is one observer's chronicle as written in YAML.
type Document struct {
	Commissioned      any                    `yaml:"commissioned" validate:"required"`
	Decommissioned    any                    `yaml:"decommissioned,omitempty"`
	ObserverType      string                 `yaml:"observer_type" validate:"required"`
	ActiveChannels    any                    `yaml:"active_channels,omitempty"`
	SimulatedChannels any                    `yaml:"simulated_channels,omitempty"`
	Variables         map[string]VariableDoc `yaml:"channel_dependent_variables,omitempty" validate:"omitempty,dive"`
	Chronicles        []DatedActionDoc       `yaml:"chronicles,omitempty" validate:"dive"`
}

// VariableDoc declares a channel-dependent variable. Values follow the
// declaration order of simulated_channels.
type VariableDoc struct {
	Values            []float64 `yaml:"values"`
	ValueAcrossWindow string    `yaml:"value_across_window" validate:"required"`
}

// DatedActionDoc is a chronicle entry. Variables carries the new values for
// add_simulated_channels and the updates for adjust_channel_dependent_variables.
type DatedActionDoc struct {
	ActionDate    any                  `yaml:"action_date" validate:"required"`
	Justification string               `yaml:"justification" validate:"required"`
	Action        string               `yaml:"action" validate:"required,oneof=remove_active_channels add_active_channels remove_simulated_channels add_simulated_channels adjust_channel_dependent_variables"`
	Channels      any                  `yaml:"channels" validate:"required"`
	Variables     map[string][]float64 `yaml:"variables,omitempty"`
}

// #endregion document

// #region decode
var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads and structurally checks a YAML chronicle. Unknown keys are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := doc.Check(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// LoadFile decodes the chronicle stored at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chronicle %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("chronicle %s: %w", path, err)
	}
	return doc, nil
}

// Check runs the structural validation rules on the document fields.
func (d *Document) Check() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrMalformedDocument, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
}

// #endregion decode
