package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/aretw0/questline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ambushYAML = `
name: Goblin Ambush
entry: 1
nodes:
  - id: 1
    description: The road narrows at a bridge.
    destinations: [2, 3]
  - id: 2
    description: Goblins attack.
    destinations: [3]
  - id: 3
    description: Camp for the night.
`

type cliEnv struct {
	flags []string
	dir   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "questline.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))
	return &cliEnv{
		dir:   dir,
		flags: []string{"--config", cfg, "--backend", "file", "--dir", filepath.Join(dir, "data"), "--log-level", "error"},
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *cliEnv) runWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, e.flags...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (e *cliEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCLI_TemplateAndSessionLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	path := env.write(t, "ambush.yaml", ambushYAML)

	out, err := env.run(t, "validate", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Goblin Ambush")
	assert.Contains(t, out, "1 templates valid")

	out, err = env.run(t, "graph", path)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "n1 --> n3")

	out, err = env.run(t, "template", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Imported "Goblin Ambush" as template 1`)

	out, err = env.run(t, "template", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Goblin Ambush")

	out, err = env.run(t, "session", "start", "1", "--name", "Friday", "--guild", "g1", "--json")
	require.NoError(t, err)
	var snap struct {
		Session  domain.GameSession `json:"session"`
		Complete bool               `json:"complete"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap), out)
	assert.Equal(t, 1, snap.Session.CurrentNodeID)
	assert.Equal(t, "g1", snap.Session.GuildID)
	sid := strconv.Itoa(snap.Session.ID)

	out, err = env.run(t, "session", "advance", sid, "2", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 2, snap.Session.CurrentNodeID)
	assert.False(t, snap.Complete)

	_, err = env.run(t, "session", "advance", sid, "1", "--json")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	out, err = env.run(t, "session", "list", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "Friday")

	out, err = env.run(t, "graph", "--session", sid)
	require.NoError(t, err)
	assert.Contains(t, out, "class n2 current")

	out, err = env.run(t, "template", "export", "1", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Goblin Ambush"`)

	out, err = env.run(t, "session", "delete", sid, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session "+sid)

	_, err = env.run(t, "session", "show", sid, "--json")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCLI_SessionPlay(t *testing.T) {
	env := newCLIEnv(t)
	path := env.write(t, "ambush.yaml", ambushYAML)

	_, err := env.run(t, "template", "import", path)
	require.NoError(t, err)
	_, err = env.run(t, "session", "start", "1", "--name", "Solo", "--guild", "", "--json")
	require.NoError(t, err)

	out, err := env.runWithInput(t, "5\n2\n3\n", "session", "play", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Cannot go to 5 from here.")
	assert.Contains(t, out, "The quest is complete.")

	out, err = env.run(t, "session", "show", "1", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"complete": true`)
}

func TestCLI_ValidateReportsInvalidTemplates(t *testing.T) {
	env := newCLIEnv(t)
	path := env.write(t, "broken.yaml", "name: Broken\nnodes:\n  - id: 1\n    description: Start.\n    destinations: [9]\n")

	out, err := env.run(t, "validate", path)
	assert.ErrorContains(t, err, "1 of 1 templates are invalid")
	assert.Contains(t, out, "destination 9 does not exist")
}

func TestCLI_ImportRejectsInvalidTemplate(t *testing.T) {
	env := newCLIEnv(t)
	path := env.write(t, "broken.yaml", "name: Broken\nnodes:\n  - id: 1\n    description: Start.\n    destinations: [9]\n")

	_, err := env.run(t, "template", "import", path)
	assert.ErrorIs(t, err, domain.ErrDanglingReference)
}

func TestCLI_InvalidID(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "session", "show", "abc", "--json")
	assert.ErrorContains(t, err, `invalid id "abc"`)
}

func TestCLI_Version(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "questline version")
}
