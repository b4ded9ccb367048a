// Package pipeline loads declarative YAML scripts and compiles them into
// flow actions.
package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is a pipeline file. JSON is accepted too, being valid YAML.
type Script struct {
	Name    string        `yaml:"name" json:"name"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"` // bound for the whole run
	Rate    float64       `yaml:"rate,omitempty" json:"rate,omitempty"`       // steps per second, 0 for unlimited
	Steps   []Step        `yaml:"steps" json:"steps"`
}

// Step is one action in a script. Which fields apply depends on Action.
type Step struct {
	Action    string        `yaml:"action" json:"action"` // navigate, click, type, press, wait, wait_for, text, attribute, exists, extract, screenshot, url, group, parallel, each, if
	Name      string        `yaml:"name,omitempty" json:"name,omitempty"`
	Selector  Selectors     `yaml:"selector,omitempty" json:"selector,omitempty"` // alternatives tried in order
	Text      string        `yaml:"text,omitempty" json:"text,omitempty"`
	Key       string        `yaml:"key,omitempty" json:"key,omitempty"`
	URL       string        `yaml:"url,omitempty" json:"url,omitempty"`
	Path      string        `yaml:"path,omitempty" json:"path,omitempty"`
	MaxWidth  uint          `yaml:"max_width,omitempty" json:"max_width,omitempty"`
	Attribute string        `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	As        string        `yaml:"as,omitempty" json:"as,omitempty"`   // output key
	All       bool          `yaml:"all,omitempty" json:"all,omitempty"` // every match instead of the first
	Wait      time.Duration `yaml:"wait,omitempty" json:"wait,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Retry     *Retry        `yaml:"retry,omitempty" json:"retry,omitempty"`
	Fallback  []Step        `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	Steps     []Step        `yaml:"steps,omitempty" json:"steps,omitempty"`
	Else      []Step        `yaml:"else,omitempty" json:"else,omitempty"`
	Fields    []Step        `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Retry configures repeated attempts of a step.
type Retry struct {
	Attempts int           `yaml:"attempts" json:"attempts"`
	Delay    time.Duration `yaml:"delay,omitempty" json:"delay,omitempty"`
	Backoff  float64       `yaml:"backoff,omitempty" json:"backoff,omitempty"`
	MaxDelay time.Duration `yaml:"max_delay,omitempty" json:"max_delay,omitempty"` // ceiling for grown delays
}

// Selectors is a list of selector strings. A single string is accepted in
// scripts.
type Selectors []string

func (s *Selectors) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var one string
		if err := node.Decode(&one); err != nil {
			return err
		}
		*s = Selectors{one}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = many
		return nil
	}
	return fmt.Errorf("line %d: selector must be a string or a list of strings", node.Line)
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a script. Unknown keys are rejected so typos surface before
// anything runs.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("script %q has no steps", s.Name)
	}
	return &s, nil
}
