package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// ConfidenceProfile scores a value the LLM returned without a confidence.
type ConfidenceProfile struct {
	Name string
	// Match applies when a pattern-checked field matches its pattern.
	Match float64
	// Mismatch applies when a pattern-checked field does not match.
	Mismatch float64
	// Present applies to any other non-empty value.
	Present float64
}

// Built-in confidence profiles.
var (
	BasicProfile  = ConfidenceProfile{Name: "basic", Match: 0.8, Mismatch: 0.5, Present: 0.7}
	StrictProfile = ConfidenceProfile{Name: "strict", Match: 0.9, Mismatch: 0.6, Present: 0.8}
)

// ProfileByName returns a built-in profile; empty selects BasicProfile.
func ProfileByName(name string) (ConfidenceProfile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BasicProfile.Name:
		return BasicProfile, nil
	case StrictProfile.Name, "legacy":
		return StrictProfile, nil
	default:
		return ConfidenceProfile{}, fmt.Errorf("unknown confidence profile %q", name)
	}
}

var fieldPatterns = map[string]*regexp.Regexp{
	"Social Security Number": regexp.MustCompile(`^\d{3}-?\d{2}-?\d{4}$`),
	"Phone number":           regexp.MustCompile(`^[\+]?[\d\s\-\(\)]{10,}$`),
	"Email address":          regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
	"Date of birth":          regexp.MustCompile(`\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}`),
}

// Score rates value for field. Empty values score 0.
func (p ConfidenceProfile) Score(field, value string) float64 {
	if strings.TrimSpace(value) == "" {
		return 0
	}
	if pattern, ok := fieldPatterns[field]; ok {
		if pattern.MatchString(value) {
			return p.Match
		}
		return p.Mismatch
	}
	return p.Present
}
