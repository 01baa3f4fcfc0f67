package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortVersionKey(t *testing.T) {
	tests := []struct {
		stored string
		want   string
		ok     bool
	}{
		{"nginx:nginx:1.24", "nginx:nginx:1.24", true},
		{"cpe:2.3:a:nginx:nginx:1.24:*:*:*:*:*:*:*", "nginx:nginx:1.24", true},
		{"cpe:2.3:o:canonical:ubuntu_linux:*:*:*:*:*:*:*", "canonical:ubuntu_linux:*", true},
		{"cpe:/a:apache:http_server:2.4.7", "apache:http_server:2.4.7", true},
		{"justvendor", "", false},
		{"cpe:garbage", "", false},
	}
	for _, tt := range tests {
		got, ok := shortVersionKey(tt.stored)
		assert.Equal(t, tt.ok, ok, tt.stored)
		assert.Equal(t, tt.want, got, tt.stored)
	}
}
