package sourceconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ValidEntries(t *testing.T) {
	body := `[
		{"owner": "acme", "repo": "widgets", "token": "$ACME_TOKEN", "matcher": "*.deb"},
		{"owner": "acme", "repo": "gadgets", "private": true}
	]`

	configs, err := Decode(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, "acme/widgets", configs[0].FullName())
	assert.Equal(t, "$ACME_TOKEN", configs[0].Token)
	assert.Equal(t, "*.deb", configs[0].Matcher)

	assert.Equal(t, "acme/gadgets", configs[1].FullName())
}

func TestDecode_MissingRequiredField(t *testing.T) {
	body := `[{"owner": "acme"}]`

	_, err := Decode(strings.NewReader(body))
	assert.Error(t, err)
}

func TestDecode_UnknownKeysTolerated(t *testing.T) {
	body := `[{"owner": "acme", "repo": "widgets", "some_future_field": 42}]`

	configs, err := Decode(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, configs, 1)
}

func TestDecode_EmptyArray(t *testing.T) {
	configs, err := Decode(strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`not json`))
	assert.Error(t, err)
}
