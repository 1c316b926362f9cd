package flows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleTo(t *testing.T) {
	cases := []struct {
		visibility    string
		callerContext string
		group         string
		want          bool
	}{
		{"aider", "aider", "", true},
		{"aider", "aider", "coe", true},
		{"aider", "continue.dev", "", false},
		{"aider:coe", "aider", "coe", true},
		{"aider:coe", "aider", "", false},
		{"aider:coe", "aider", "dev-team", false},
		{"aider:coe", "continue.dev", "coe", false},
		{"aider:coe", "aider:coe", "", true},
		{"", "aider", "coe", false},
	}
	for _, tc := range cases {
		got := VisibleTo(tc.visibility, tc.callerContext, tc.group)
		assert.Equal(t, tc.want, got, "visibility=%q context=%q group=%q", tc.visibility, tc.callerContext, tc.group)
	}
}
