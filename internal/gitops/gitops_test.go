package gitops

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuthor = Author{Name: "Test Author", Email: "test@example.com"}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func TestInit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	_, err := Init(dir, testAuthor)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git directory should exist")
}

func TestOpen(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	assert.False(t, IsRepo(dir), "empty dir should not be a repo")
	assert.Nil(t, Open(dir, testAuthor))

	_, err := Init(dir, testAuthor)
	require.NoError(t, err)
	assert.True(t, IsRepo(dir), "initialized dir should be a repo")
	assert.NotNil(t, Open(dir, testAuthor))
}

func TestCommit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	r, err := Init(dir, testAuthor)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "movements.csv"), []byte("id\n"), 0o644))
	hash, err := r.Commit("post: batch 1")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	author := exec.Command("git", "log", "--format=%an <%ae>", "-1")
	author.Dir = dir
	out, err := author.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Test Author <test@example.com>")

	// Nothing changed since.
	hash, err = r.Commit("noop")
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "movements.csv"), []byte("id\n1\n"), 0o644))
	_, err = r.Commit("post: batch 2")
	require.NoError(t, err)

	subjects, err := r.Log(5)
	require.NoError(t, err)
	assert.Equal(t, []string{"post: batch 2", "post: batch 1"}, subjects)
}
