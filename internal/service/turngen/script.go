package turngen

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed script.yaml
var scriptYAML []byte

// Rule pairs a keyword predicate with a canned acknowledgment. Rules are
// evaluated in order; the first match wins.
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Ack      string   `yaml:"ack"`
}

// Matches reports whether the candidate's message mentions any of the rule's
// keywords (case-insensitive substring match).
func (r Rule) Matches(message string) bool {
	m := strings.ToLower(message)
	for _, kw := range r.Keywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}

// Script is the fixed interview script: system instruction, five-question
// sequence, ordered fallback rules, and canned texts for every degraded path.
type Script struct {
	System             string   `yaml:"system"`
	Welcome            string   `yaml:"welcome"`
	Questions          []string `yaml:"questions"`
	Rules              []Rule   `yaml:"rules"`
	DefaultAck         string   `yaml:"default_ack"`
	Closing            string   `yaml:"closing"`
	Report             string   `yaml:"report"`
	EvaluationFeedback string   `yaml:"evaluation_feedback"`
}

// LoadScript parses the embedded script. It fails only on a malformed or
// incomplete file, which is a build defect rather than a runtime condition.
func LoadScript() (Script, error) {
	var s Script
	if err := yaml.Unmarshal(scriptYAML, &s); err != nil {
		return Script{}, fmt.Errorf("op=turngen.LoadScript: %w", err)
	}
	if len(s.Questions) == 0 || s.System == "" || s.DefaultAck == "" {
		return Script{}, fmt.Errorf("op=turngen.LoadScript: script incomplete")
	}
	return s, nil
}

// Ack returns the acknowledgment for the candidate's latest message by
// evaluating the ordered rule list, default last.
func (s Script) Ack(message string) string {
	for _, r := range s.Rules {
		if r.Matches(message) {
			return strings.TrimSpace(r.Ack)
		}
	}
	return strings.TrimSpace(s.DefaultAck)
}

// NextQuestion returns the scripted question following turnsAnswered answers.
// The welcome message carries question 0, so the reply to the n-th answer
// asks question n+1; past the end of the script the closing line is returned.
func (s Script) NextQuestion(turnsAnswered int) string {
	idx := turnsAnswered + 1
	if idx < 0 || idx >= len(s.Questions) {
		return strings.TrimSpace(s.Closing)
	}
	return s.Questions[idx]
}
