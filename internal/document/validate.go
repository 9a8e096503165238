package document

import (
	"strings"
	"unicode/utf8"
)

const (
	minWords           = 10
	maxAverageWordSize = 50
)

// Quality is an advisory assessment of a document's text.
type Quality struct {
	Reason    string  `json:"reason"`
	Score     float64 `json:"score"`
	WordCount int     `json:"word_count,omitempty"`
	CharCount int     `json:"char_count,omitempty"`
	LineCount int     `json:"line_count,omitempty"`
	Valid     bool    `json:"is_valid"`
}

// Validate scores how likely text is to be a readable document.
func Validate(text string) Quality {
	if text == "" {
		return Quality{Reason: "Document content is empty or invalid"}
	}

	words := len(strings.Fields(text))
	chars := utf8.RuneCountInString(text)
	lines := strings.Count(text, "\n") + 1

	if words < minWords {
		return Quality{Reason: "Document too short (less than 10 words)", Score: 0.1}
	}
	if float64(chars)/float64(words) > maxAverageWordSize {
		return Quality{Reason: "Document may contain corrupted or encoded content", Score: 0.3}
	}

	return Quality{
		Valid:     true,
		Reason:    "Document passed validation checks",
		Score:     min(1.0, float64(words)/100*0.5+float64(lines)/20*0.3+0.2),
		WordCount: words,
		CharCount: chars,
		LineCount: lines,
	}
}
