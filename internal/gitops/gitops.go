// Package gitops versions a books directory with git: every mutating command
// becomes one commit.
package gitops

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoGit is returned when the git binary is not on PATH.
var ErrNoGit = errors.New("git executable not found")

// Author identifies who commits changes to the books.
type Author struct {
	Name  string
	Email string
}

// Repo is a books directory under git.
type Repo struct {
	dir    string
	author Author
}

// Init creates a git repository at dir and returns it.
func Init(dir string, author Author) (*Repo, error) {
	r := &Repo{dir: dir, author: author}
	if _, err := r.git("init", "--quiet"); err != nil {
		return nil, err
	}
	return r, nil
}

// Open returns the repository at dir, or nil when dir is not one.
func Open(dir string, author Author) *Repo {
	if !IsRepo(dir) {
		return nil
	}
	return &Repo{dir: dir, author: author}
}

// Commit stages every change and commits it. Returns the short hash, or ""
// when there was nothing to commit.
func (r *Repo) Commit(message string) (string, error) {
	if _, err := r.git("add", "-A"); err != nil {
		return "", err
	}
	status, err := r.git("status", "--porcelain")
	if err != nil {
		return "", err
	}
	if status == "" {
		return "", nil
	}
	if _, err := r.git("commit", "--quiet", "-m", message); err != nil {
		return "", err
	}
	return r.git("rev-parse", "--short", "HEAD")
}

// Log returns the subjects of the last n commits, newest first.
func (r *Repo) Log(n int) ([]string, error) {
	out, err := r.git("log", "--format=%s", fmt.Sprintf("-%d", n))
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// git runs a git subcommand in the repository with the configured author as
// both author and committer, returning trimmed stdout.
func (r *Repo) git(args ...string) (string, error) {
	bin, err := exec.LookPath("git")
	if err != nil {
		return "", ErrNoGit
	}
	cmd := exec.Command(bin, args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+r.author.Name,
		"GIT_AUTHOR_EMAIL="+r.author.Email,
		"GIT_COMMITTER_NAME="+r.author.Name,
		"GIT_COMMITTER_EMAIL="+r.author.Email,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
