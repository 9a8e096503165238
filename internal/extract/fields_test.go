package extract

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveField(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		wantKey string
		members []member
	}{
		{
			name:    "exact match wins over synonym",
			field:   "Date of birth",
			members: []member{{Key: "dob"}, {Key: "Date of birth"}},
			wantKey: "Date of birth",
		},
		{
			name:    "case-insensitive match wins over synonym",
			field:   "Annual income",
			members: []member{{Key: "gross income"}, {Key: "annual INCOME"}},
			wantKey: "annual INCOME",
		},
		{
			name:    "synonym contained in key",
			field:   "Social Security Number",
			members: []member{{Key: "Applicant SSN"}},
			wantKey: "Applicant SSN",
		},
		{
			name:    "first synonym match in key order",
			field:   "Phone number",
			members: []member{{Key: "mobile"}, {Key: "telephone"}},
			wantKey: "mobile",
		},
		{
			name:    "other canonical field is not a synonym",
			field:   "Home address",
			members: []member{{Key: "Email address"}},
		},
		{
			name:    "no match",
			field:   "Job title",
			members: []member{{Key: "favorite color"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveField(tt.members, tt.field)
			if tt.wantKey == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantKey, got.Key)
		})
	}
}

func TestEverySynonymTableEntryIsCanonical(t *testing.T) {
	require.Len(t, fieldSynonyms, len(PersonalFields))
	for _, field := range PersonalFields {
		assert.NotEmpty(t, fieldSynonyms[field], field)
	}
}

func TestConfidenceProfiles(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		value  string
		basic  float64
		strict float64
	}{
		{name: "ssn with dashes", field: "Social Security Number", value: "123-45-6789", basic: 0.8, strict: 0.9},
		{name: "ssn malformed", field: "Social Security Number", value: "12-345", basic: 0.5, strict: 0.6},
		{name: "phone", field: "Phone number", value: "+1 (555) 123-4567", basic: 0.8, strict: 0.9},
		{name: "email", field: "Email address", value: "a.b@example.org", basic: 0.8, strict: 0.9},
		{name: "date of birth", field: "Date of birth", value: "born 1/2/85", basic: 0.8, strict: 0.9},
		{name: "date of birth spelled out", field: "Date of birth", value: "March 3rd", basic: 0.5, strict: 0.6},
		{name: "unpatterned field", field: "Employer name", value: "Acme", basic: 0.7, strict: 0.8},
		{name: "empty", field: "Employer name", value: "  ", basic: 0, strict: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.basic, BasicProfile.Score(tt.field, tt.value), 1e-9)
			assert.InDelta(t, tt.strict, StrictProfile.Score(tt.field, tt.value), 1e-9)
		})
	}
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("")
	require.NoError(t, err)
	assert.Equal(t, BasicProfile, p)

	p, err = ProfileByName("Strict")
	require.NoError(t, err)
	assert.Equal(t, StrictProfile, p)

	_, err = ProfileByName("lenient")
	require.Error(t, err)
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		input     string
		want      string
		wantFound bool
	}{
		{input: "  John \n  Doe ", want: "John Doe", wantFound: true},
		{input: `"quoted"`, want: "quoted", wantFound: true},
		{input: "'single'", want: "single", wantFound: true},
		{input: `"`, want: `"`, wantFound: true},
		{input: "N/A"},
		{input: "none"},
		{input: "NULL"},
		{input: "Not Found"},
		{input: `"n/a"`},
		{input: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, found := CleanValue(tt.input)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONSpan(t *testing.T) {
	span, ok := jsonSpan(`prefix {"a": {"b": 1}} suffix }`, '{', '}')
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}} suffix }`, span, "span is greedy to the last closing brace")

	_, ok = jsonSpan("] before [", '[', ']')
	assert.False(t, ok)
}

func TestDecodeObjectKeepsOrder(t *testing.T) {
	members, err := decodeObject(`{"z": 1, "a": {"value": "x"}, "m": null}`)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "z", members[0].Key)
	assert.Equal(t, json.Number("1"), members[0].Value)
	assert.Equal(t, "a", members[1].Key)
	assert.Equal(t, "m", members[2].Key)
	assert.Nil(t, members[2].Value)

	_, err = decodeObject(`{"a": 1} {"b": 2}`)
	require.Error(t, err)
	_, err = decodeObject(`[1]`)
	require.Error(t, err)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(math.NaN()))
	assert.Equal(t, 0.0, clamp(-0.2))
	assert.Equal(t, 1.0, clamp(math.Inf(1)))
	assert.Equal(t, 0.4, clamp(0.4))
}

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		input  any
		want   float64
		wantOK bool
	}{
		{input: json.Number("0.75"), want: 0.75, wantOK: true},
		{input: 0.5, want: 0.5, wantOK: true},
		{input: "0.9", want: 0.9, wantOK: true},
		{input: "85%", want: 0.85, wantOK: true},
		{input: "~0.6", want: 0.6, wantOK: true},
		{input: "high", wantOK: false},
		{input: nil, wantOK: false},
		{input: true, wantOK: false},
		{input: "NaN", wantOK: false},
		{input: "nan", wantOK: false},
		{input: "+Inf", wantOK: false},
		{input: "Infinity", wantOK: false},
		{input: "inf%", wantOK: false},
		{input: math.NaN(), wantOK: false},
		{input: math.Inf(-1), wantOK: false},
	}

	for _, tt := range tests {
		got, ok := parseConfidence(tt.input)
		assert.Equal(t, tt.wantOK, ok, "%v", tt.input)
		if tt.wantOK {
			assert.InDelta(t, tt.want, got, 1e-9, "%v", tt.input)
		}
	}
}
