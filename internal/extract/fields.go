package extract

import "strings"

// PersonalFields is the canonical personal-data schema, in output order. The
// labels are used verbatim in prompts and as record field names.
var PersonalFields = []string{
	"First name",
	"Last name",
	"Middle name",
	"Date of birth",
	"Social Security Number",
	"Phone number",
	"Email address",
	"Home address",
	"Employment status",
	"Annual income",
	"Employer name",
	"Job title",
}

var fieldSynonyms = map[string][]string{
	"First name":             {"firstname", "first", "given name", "forename"},
	"Last name":              {"lastname", "last", "surname", "family name"},
	"Middle name":            {"middlename", "middle", "middle initial"},
	"Date of birth":          {"dob", "birth date", "birthdate", "born"},
	"Social Security Number": {"ssn", "social security", "social sec"},
	"Phone number":           {"phone", "telephone", "mobile", "cell"},
	"Email address":          {"email", "e-mail", "electronic mail"},
	"Home address":           {"address", "residence", "street address"},
	"Employment status":      {"employment", "job status", "work status"},
	"Annual income":          {"income", "salary", "yearly income", "gross income"},
	"Employer name":          {"employer", "company", "workplace"},
	"Job title":              {"title", "position", "occupation", "role"},
}

// member is one key/value pair of a decoded JSON object, in source order.
type member struct {
	Value any
	Key   string
}

// resolveField finds the member holding field, trying an exact key match, then
// a case-insensitive match, then a synonym contained in the key. Keys that name
// a different canonical field are never taken as synonyms, so "Email address"
// cannot satisfy "Home address".
func resolveField(members []member, field string) (member, bool) {
	for _, m := range members {
		if m.Key == field {
			return m, true
		}
	}

	for _, m := range members {
		if strings.EqualFold(strings.TrimSpace(m.Key), field) {
			return m, true
		}
	}

	synonyms := fieldSynonyms[field]
	for _, m := range members {
		key := strings.ToLower(strings.TrimSpace(m.Key))
		if namesOtherField(key, field) {
			continue
		}
		for _, syn := range synonyms {
			if strings.Contains(key, syn) {
				return m, true
			}
		}
	}

	return member{}, false
}

func namesOtherField(lowerKey, field string) bool {
	for _, other := range PersonalFields {
		if other != field && strings.ToLower(other) == lowerKey {
			return true
		}
	}
	return false
}
