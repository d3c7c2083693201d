package routes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want bool
	}{
		{"reference/home-diff.png", true},
		{"home..diff.png", true},
		{"", false},
		{"/etc/passwd", false},
		{"../escaped.png", false},
		{"reference/../../escaped.png", false},
		{`..\escaped.png`, false},
		{`\\host\share\x.png`, false},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, validKey(tt.key)); diff != "" {
			t.Errorf("%q (-want +got):\n%s", tt.key, diff)
		}
	}
}
