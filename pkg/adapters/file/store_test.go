package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/questline/pkg/adapters/file"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStores_Contract(t *testing.T) {
	dir := t.TempDir()
	tests.RunSessionStoreContract(t, file.NewSessionStore(dir))
	tests.RunTemplateStoreContract(t, file.NewTemplateStore(dir))
}

func TestFileSessionStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.NewSessionStore(dir)
	ctx := context.Background()

	sess := &domain.GameSession{ID: 7, TemplateID: 1, CurrentNodeID: 1}
	require.NoError(t, store.Save(ctx, sess))

	_, err := os.Stat(filepath.Join(dir, "sessions", "7.json"))
	assert.NoError(t, err, "session should be stored as <id>.json")

	entries, err := os.ReadDir(filepath.Join(dir, "sessions"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "tmp-", "temp files must not survive a save")
	}
}

func TestFileTemplateStore_NextIDSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	store := file.NewTemplateStore(dir)
	ctx := context.Background()

	// Simulate a template dropped in by hand.
	require.NoError(t, store.Save(ctx, domain.NewTemplate(41, "Imported", 1, time.Now())))

	id, err := store.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	// Counter survives a fresh store over the same directory.
	id, err = file.NewTemplateStore(dir).NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 43, id)
}

func TestFileTemplateStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "notes.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "README.md"), []byte("#"), 0644))

	ids, err := file.NewTemplateStore(dir).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
