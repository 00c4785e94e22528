package authclient_test

import (
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractWalksNestedMaps(t *testing.T) {
	payload := map[string]any{
		"data": map[string]any{
			"user": map[string]any{
				"id":    float64(7),
				"email": "ada@example.com",
			},
		},
	}

	value, ok := authclient.Extract(payload, "data.user.email")
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", value)

	value, ok = authclient.Extract(payload, "data.user")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"id": float64(7), "email": "ada@example.com"}, value)
}

func TestExtractEmptyPathReturnsValue(t *testing.T) {
	payload := map[string]any{"token": "abc"}

	value, ok := authclient.Extract(payload, "")
	require.True(t, ok)
	assert.Equal(t, payload, value)

	_, ok = authclient.Extract(nil, "")
	assert.False(t, ok)
}

func TestExtractMissingSegmentReportsFalse(t *testing.T) {
	payload := map[string]any{
		"data": map[string]any{"token": "abc"},
	}

	_, ok := authclient.Extract(payload, "data.missing")
	assert.False(t, ok)

	// token is a leaf, it cannot be traversed further
	_, ok = authclient.Extract(payload, "data.token.deeper")
	assert.False(t, ok)

	_, ok = authclient.Extract(payload, "nope")
	assert.False(t, ok)
}

func TestExtractString(t *testing.T) {
	payload := map[string]any{
		"token": "abc",
		"count": float64(3),
	}

	value, ok := authclient.ExtractString(payload, "token")
	require.True(t, ok)
	assert.Equal(t, "abc", value)

	_, ok = authclient.ExtractString(payload, "count")
	assert.False(t, ok)

	_, ok = authclient.ExtractString(payload, "missing")
	assert.False(t, ok)
}
