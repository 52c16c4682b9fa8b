// Package compiler loads wizard definitions from YAML documents.
//
// Parsing is split from engine compilation: this package produces a
// structurally valid domain.WizardDefinition, while predicate and rule
// compilation (and their failure modes) belong to the engine.
package compiler

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// wizardDoc mirrors the YAML document shape. It uses mapstructure tags so
// decoding tolerates extra keys and normalizes scalar types.
type wizardDoc struct {
	ID    string         `mapstructure:"id"`
	Title string         `mapstructure:"title"`
	Steps []stepDoc      `mapstructure:"steps"`
	Rules []ruleDoc      `mapstructure:"rules"`
	Extra map[string]any `mapstructure:",remain"`
}

type stepDoc struct {
	ID        string   `mapstructure:"id"`
	Title     string   `mapstructure:"title"`
	Prompt    string   `mapstructure:"prompt"`
	Optional  bool     `mapstructure:"optional"`
	Predicate string   `mapstructure:"predicate"`
	Inputs    []string `mapstructure:"inputs"`
}

type ruleDoc struct {
	Trigger string `mapstructure:"trigger"`
	Target  string `mapstructure:"target"`
	Compute string `mapstructure:"compute"`
}

// ParseFile loads a wizard definition from a YAML file.
func ParseFile(path string) (*domain.WizardDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open definition: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a YAML wizard definition from r.
func Parse(r io.Reader) (*domain.WizardDefinition, error) {
	raw := make(map[string]any)
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	var doc wizardDoc
	if err := mapstructure.Decode(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid definition structure: %w", err)
	}

	def, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return def, nil
}

func (d *wizardDoc) toDomain() (*domain.WizardDefinition, error) {
	if d.ID == "" {
		return nil, fmt.Errorf("definition is missing 'id'")
	}
	if len(d.Steps) == 0 {
		return nil, fmt.Errorf("definition %q has no steps", d.ID)
	}

	def := &domain.WizardDefinition{
		ID:    d.ID,
		Title: d.Title,
		Steps: make([]domain.StepDefinition, 0, len(d.Steps)),
		Rules: make([]domain.DefaultRule, 0, len(d.Rules)),
	}

	for i, s := range d.Steps {
		if s.ID == "" {
			return nil, fmt.Errorf("step %d is missing 'id'", i)
		}
		inputs := make([]domain.FieldPath, 0, len(s.Inputs))
		for _, in := range s.Inputs {
			inputs = append(inputs, domain.FieldPath(in))
		}
		def.Steps = append(def.Steps, domain.StepDefinition{
			ID:        s.ID,
			Title:     s.Title,
			Prompt:    s.Prompt,
			Optional:  s.Optional,
			Predicate: s.Predicate,
			Inputs:    inputs,
		})
	}

	for i, r := range d.Rules {
		if r.Trigger == "" || r.Target == "" {
			return nil, fmt.Errorf("rule %d needs both 'trigger' and 'target'", i)
		}
		def.Rules = append(def.Rules, domain.DefaultRule{
			Trigger: domain.FieldPath(r.Trigger),
			Target:  domain.FieldPath(r.Target),
			Compute: r.Compute,
		})
	}

	return def, nil
}
