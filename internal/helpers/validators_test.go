package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAppName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "shop", true},
		{"hyphen and underscore", "shop-api_2", true},
		{"empty", "", false},
		{"leading hyphen", "-shop", false},
		{"slash", "shop/api", false},
		{"space", "my shop", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAppName(tt.input))
		})
	}
}

func TestIsValidTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"semver", "v1.3.0", true},
		{"sha", "3f9c2ab", true},
		{"latest", "latest", true},
		{"leading dot", ".v1", false},
		{"colon", "v1:2", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTag(tt.input))
		})
	}
}

func TestValidateURLPath(t *testing.T) {
	assert.NoError(t, ValidateURLPath("/livez/"))
	assert.Error(t, ValidateURLPath(""))
	assert.Error(t, ValidateURLPath("livez/"))
	assert.Error(t, ValidateURLPath("/live z/"))
}
