// Package prompt holds the system prompts sent to the language model.
package prompt

import (
	_ "embed"
	"errors"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsRaw []byte

// Set holds the loaded prompts. Use the methods to render them.
type Set struct {
	AssistantTemplate string `yaml:"assistant"`
	InsightsTemplate  string `yaml:"insights"`
}

// Load parses the embedded prompt file.
func Load() (Set, error) {
	return parse(promptsRaw)
}

// MustLoad is like Load but panics on error. The file is embedded, so an error is a build defect.
func MustLoad() Set {
	set, err := Load()
	if err != nil {
		panic(err)
	}
	return set
}

func parse(raw []byte) (Set, error) {
	var set Set
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return Set{}, err
	}
	set.AssistantTemplate = strings.TrimSpace(set.AssistantTemplate)
	set.InsightsTemplate = strings.TrimSpace(set.InsightsTemplate)
	if set.AssistantTemplate == "" || set.InsightsTemplate == "" {
		return Set{}, errors.New("prompt file lacks the assistant or the insights prompt")
	}
	return set, nil
}

// Assistant renders the system prompt of the chat assistant for the given day.
func (s Set) Assistant(now time.Time) string {
	return render(s.AssistantTemplate, now)
}

// Insights renders the system prompt of the insight generator for the given day.
func (s Set) Insights(now time.Time) string {
	return render(s.InsightsTemplate, now)
}

func render(template string, now time.Time) string {
	return strings.ReplaceAll(template, "{{today}}", now.Format("Monday, 2006-01-02"))
}
