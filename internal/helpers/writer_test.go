package helpers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixWriter(t *testing.T) {
	var out bytes.Buffer
	pw := NewPrefixWriter(&out, "  | ")

	_, err := pw.Write([]byte("Pulling web\nweb Pul"))
	require.NoError(t, err)
	assert.Equal(t, "  | Pulling web\n", out.String())

	_, err = pw.Write([]byte("led\npartial"))
	require.NoError(t, err)
	assert.Equal(t, "  | Pulling web\n  | web Pulled\n", out.String())

	require.NoError(t, pw.Flush())
	assert.Equal(t, "  | Pulling web\n  | web Pulled\n  | partial\n", out.String())
	require.NoError(t, pw.Flush())
}
