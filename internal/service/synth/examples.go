// Package synth holds the generation half of the pipeline: the worked
// example library, the SQL synthesizer, and the candidate validator.
package synth

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"genbi/internal/domain"
)

//go:embed patterns.yaml
var patternsYAML []byte

// PatternLibrary maps intent categories to worked question/SQL examples.
type PatternLibrary struct {
	byCategory map[string][]domain.WorkedExample
}

// LoadPatternLibrary parses the embedded pattern file.
func LoadPatternLibrary() (*PatternLibrary, error) {
	byCategory := map[string][]domain.WorkedExample{}
	if err := yaml.Unmarshal(patternsYAML, &byCategory); err != nil {
		return nil, fmt.Errorf("parse pattern library: %w", err)
	}
	for category := range byCategory {
		if !domain.ValidIntentCategory(category) {
			return nil, fmt.Errorf("pattern library: unknown category %q", category)
		}
	}
	return &PatternLibrary{byCategory: byCategory}, nil
}

// Examples returns the worked examples for a category, falling back to the
// OTHER bucket for categories without their own.
func (l *PatternLibrary) Examples(category string) []domain.WorkedExample {
	if ex, ok := l.byCategory[category]; ok {
		return ex
	}
	return l.byCategory[domain.IntentOther]
}
