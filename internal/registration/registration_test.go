package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "AB12CDE", Normalize("ab12 cde"))
	assert.Equal(t, "AB12CDE", Normalize("  AB12\tCDE\n"))
	assert.Equal(t, "X1", Normalize("x 1"))
	assert.Equal(t, "", Normalize("   "))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"AB12CDE", true},
		{"ab12 cde", true},
		{"A1", true},
		{"ABC 123 D", true},
		{"X", false},
		{"", false},
		{"  ", false},
		{"ABCD12345", false}, // 9 chars after normalization
		{"AB12-CDE", false},
		{"AB12 CDE!", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.raw))
		})
	}
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "AB12 CDE", Display("AB12CDE"))
	assert.Equal(t, "B1 RTH", Display("B1RTH"))
	assert.Equal(t, "AB12", Display("AB12"))
	assert.Equal(t, "X1", Display("X1"))
}
