package document

import (
	"testing"

	assert2 "github.com/stretchr/testify/assert"
)

func TestNormalizeNumber(t *testing.T) {
	assert := assert2.New(t)

	tests := []struct {
		literal  string
		expected string
	}{
		{"0", "0"},
		{"-0", "0"},
		{"0.000", "0"},
		{"1", "1"},
		{"1.0", "1"},
		{"100", "1e2"},
		{"1e2", "1e2"},
		{"1.50", "15e-1"},
		{"15E-1", "15e-1"},
		{"-2.5e+3", "-25e2"},
		{"0.001", "1e-3"},
		{"12345678901234567891", "12345678901234567891"},
	}

	for _, tc := range tests {
		t.Run(tc.literal, func(t *testing.T) {
			res, err := normalizeNumber(tc.literal)
			assert.NoError(err)
			assert.Equal(tc.expected, res)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		for _, lit := range []string{"", "-", "1e", "1x", "1..2", "e5"} {
			_, err := normalizeNumber(lit)
			assert.Error(err, lit)
		}
	})
}
