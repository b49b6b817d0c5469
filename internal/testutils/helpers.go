// Package testutils holds fixtures shared by adapter tests.
package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// NewLoamRepo initializes an unversioned loam repository in a temp dir and
// saves docs into it. It fails the test immediately on error.
func NewLoamRepo(t *testing.T, docs ...core.Document) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, loam.WithVersioning(false))
	require.NoError(t, err, "Failed to init loam repo")

	ctx := context.Background()
	for _, doc := range docs {
		require.NoError(t, repo.Save(ctx, doc), "Failed to save %s", doc.ID)
	}
	return absPath, repo
}
