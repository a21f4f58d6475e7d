package roomcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateProducesValidCodes(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := Generate()
		assert.Len(t, code, Length)
		assert.True(t, IsValid(code), "generated code %q is not valid", code)
	}
}

func TestGenerateVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		seen[Generate()] = struct{}{}
	}
	// 36^6 possible codes; 100 draws colliding down to a handful would mean a broken source
	assert.Greater(t, len(seen), 90)
}

func TestIsValid(t *testing.T) {
	testCases := []struct {
		name string
		code string
		want bool
	}{
		{name: "uppercase letters", code: "ABCDEF", want: true},
		{name: "digits", code: "123456", want: true},
		{name: "mixed", code: "A1B2C3", want: true},
		{name: "lowercase", code: "abcdef", want: false},
		{name: "too short", code: "ABC12", want: false},
		{name: "too long", code: "ABC1234", want: false},
		{name: "empty", code: "", want: false},
		{name: "symbol", code: "ABC-12", want: false},
		{name: "space", code: "ABC 12", want: false},
		{name: "non ascii", code: "ÄBC123", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValid(tc.code))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "AB12CD", Normalize("  ab12cd "))
	assert.True(t, IsValid(Normalize("ab12cd")))
}
