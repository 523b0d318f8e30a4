package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"lower", "abcdef", "abcdef", true},
		{"upper with spaces", "  ABCDEF \n", "abcdef", true},
		{"prefixed", "0xDEADbeef", "deadbeef", true},
		{"odd length", "abc", "abc", true},
		{"empty", "   ", "", false},
		{"only prefix", "0x", "", false},
		{"not hex", "xyz", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeHex(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitJoinTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, SplitTags(" a, b c ,,d,"))
	assert.Empty(t, SplitTags(""))
	assert.Equal(t, "a,b", JoinTags([]string{" a ", "", "b"}))
}
