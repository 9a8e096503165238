package aggregate

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var camelKeys = map[string]string{
	"First name":             "firstName",
	"Last name":              "lastName",
	"Middle name":            "middleName",
	"Date of birth":          "dateOfBirth",
	"Social Security Number": "socialSecurityNumber",
	"Phone number":           "phoneNumber",
	"Email address":          "emailAddress",
	"Home address":           "homeAddress",
	"Employment status":      "employmentStatus",
	"Annual income":          "annualIncome",
	"Employer name":          "employerName",
	"Job title":              "jobTitle",
}

// CamelKey maps a field name to its output key. Canonical fields use a fixed
// table; anything else lowercases the first word and capitalizes the rest.
func CamelKey(field string) string {
	if key, ok := camelKeys[field]; ok {
		return key
	}

	words := strings.Fields(field)
	if len(words) == 0 {
		return field
	}

	title := cases.Title(language.Und)
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(title.String(w))
	}
	return b.String()
}
