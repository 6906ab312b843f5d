package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"formatted with country code", "+998 90 123-45-67", "901234567"},
		{"bare country code", "998901234567", "901234567"},
		{"local part only", "901234567", "901234567"},
		{"parentheses and spaces", "(90) 123 45 67", "901234567"},
		{"short input kept as is", "12345", "12345"},
		{"empty", "", ""},
		{"no digits", "abc-def", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("+998 90 123-45-67", "998901234567"))
	assert.True(t, Matches("901234567", "+998901234567"))
	assert.False(t, Matches("+998901234567", "+998907654321"))
	assert.False(t, Matches("", "901234567"))
	assert.False(t, Matches("", ""))
}

func TestCandidates(t *testing.T) {
	got := Candidates("+998 90 123-45-67")
	assert.Equal(t, []string{
		"+998 90 123-45-67",
		"901234567",
		"+998901234567",
		"998901234567",
	}, got)

	assert.Nil(t, Candidates(""))
	assert.Nil(t, Candidates("--"))
}
