package extract

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

var nonValues = map[string]bool{
	"":          true,
	"n/a":       true,
	"none":      true,
	"null":      true,
	"not found": true,
}

// CleanValue collapses whitespace and strips wrapping quotes. It reports false
// for empty values and placeholders such as "N/A" or "Not found".
func CleanValue(raw string) (string, bool) {
	value := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")

	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			value = strings.TrimSpace(value[1 : len(value)-1])
		}
	}

	if nonValues[strings.ToLower(value)] {
		return "", false
	}
	return value, true
}
