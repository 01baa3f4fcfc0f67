package cpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilmesh/casm/pkg/faults"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []string{
		"cpe:2.3:a:nginx:nginx:1.24:*:*:*:*:*:*:*",
		"cpe:2.3:o:linux:linux_kernel:5.15:*:*:*:*:*:*:*",
		"cpe:2.3:h:cisco:asa_5505:-:*:*:*:*:*:*:*",
		"cpe:2.3:a:apache:http_server:2.4.7:*:*:*:*:*:*:*",
	}
	for _, input := range tests {
		id, err := Parse(input)
		require.NoError(t, err, input)
		assert.Equal(t, input, id.String())
	}
}

func TestParseIncomplete(t *testing.T) {
	id, err := Parse("cpe:2.3:a:foo:bar:1.0")
	require.NoError(t, err)
	assert.Equal(t, "a", id.Part)
	assert.Equal(t, "foo", id.Vendor)
	assert.Equal(t, "bar", id.Product)
	assert.Equal(t, "1.0", id.Version)
	assert.Equal(t, "*", id.Update)
	assert.Equal(t, "*", id.Other)
	assert.Equal(t, "cpe:2.3:a:foo:bar:1.0:*:*:*:*:*:*:*", id.String())
}

func TestParseLegacy(t *testing.T) {
	id, err := Parse("cpe:/a:foo:bar:1.0")
	require.NoError(t, err)
	assert.Equal(t, "a", id.Part)
	assert.Equal(t, "foo", id.Vendor)
	assert.Equal(t, "bar", id.Product)
	assert.Equal(t, "1.0", id.Version)
	assert.Equal(t, "*", id.Update)
	assert.Equal(t, "*", id.TargetHw)
}

func TestParseLegacyMissingComponents(t *testing.T) {
	id, err := Parse("cpe:/o:linux")
	require.NoError(t, err)
	assert.Equal(t, "o", id.Part)
	assert.Equal(t, "linux", id.Vendor)
	assert.Equal(t, "*", id.Product)
	assert.Equal(t, "*", id.Version)
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{"", "nonsense", "cpe", "cpe:9.9:a:x:y:z"} {
		_, err := Parse(input)
		require.Error(t, err, input)
		assert.True(t, faults.Is(err, faults.BadInput), input)
	}
}

func TestParseVersionKey(t *testing.T) {
	id, err := ParseVersionKey("a", "nginx:nginx:1.24")
	require.NoError(t, err)
	assert.Equal(t, "a", id.Part)
	assert.Equal(t, "nginx", id.Vendor)
	assert.Equal(t, "nginx", id.Product)
	assert.Equal(t, "1.24", id.Version)

	_, err = ParseVersionKey("a", "nocolons")
	assert.Error(t, err)
}

func TestVendorProduct(t *testing.T) {
	id, err := Parse("cpe:2.3:a:apache:http_server:2.4.7")
	require.NoError(t, err)
	assert.Equal(t, "apache:http_server", id.VendorProduct())
}
