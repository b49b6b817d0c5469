package api_test

import (
	"context"
	"testing"

	"github.com/aretw0/questline/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc, err := api.Load(context.Background())
	require.NoError(t, err)

	for _, path := range []string{
		"/templates",
		"/templates/{templateID}",
		"/templates/{templateID}/nodes/{nodeID}/next",
		"/sessions/{sessionID}/advance",
		"/sessions/{sessionID}/events",
	} {
		assert.NotNil(t, doc.Paths.Value(path), path)
	}
	assert.NotNil(t, doc.Paths.Value("/sessions/{sessionID}/advance").Post.RequestBody)
}

func TestSpecIsACopy(t *testing.T) {
	raw := api.Spec()
	require.NotEmpty(t, raw)
	raw[0] = 'x'
	assert.Equal(t, byte('o'), api.Spec()[0])
}
