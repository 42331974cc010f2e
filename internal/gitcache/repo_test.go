package gitcache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"octpack/internal/gitcache"
	"octpack/internal/services"
)

const repoURL = "https://github.com/GeckoTH/Lord-of-the-Rings.git"

type stubExecutor struct {
	calls  [][]string
	output map[string][]string
	fail   map[string]error
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	s.calls = append(s.calls, append([]string(nil), args...))
	verb := verbOf(args)
	for _, line := range s.output[verb] {
		onOutput(line)
	}
	return s.fail[verb]
}

func verbOf(args []string) string {
	if len(args) > 2 && args[0] == "-C" {
		return args[2]
	}
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func verbs(calls [][]string) []string {
	out := make([]string, 0, len(calls))
	for _, call := range calls {
		out = append(out, verbOf(call))
	}
	return out
}

func newRepo(t *testing.T, exec *stubExecutor) *gitcache.Repo {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "git", "octgn")
	repo, err := gitcache.New(repoURL, dir, "master", gitcache.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return repo
}

func fakeCheckout(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
}

func TestSyncClonesWhenMissing(t *testing.T) {
	exec := &stubExecutor{}
	repo := newRepo(t, exec)

	if err := repo.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if got := verbs(exec.calls); len(got) != 1 || got[0] != "clone" {
		t.Fatalf("expected a single clone, got %v", got)
	}
	want := []string{"clone", "--branch", "master", "--depth", "1", "--", repoURL, repo.Dir}
	if strings.Join(exec.calls[0], " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected clone args %v", exec.calls[0])
	}
}

func TestSyncUpdatesExistingCheckout(t *testing.T) {
	exec := &stubExecutor{output: map[string][]string{"remote": {repoURL}}}
	repo := newRepo(t, exec)
	fakeCheckout(t, repo.Dir)

	if err := repo.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	got := strings.Join(verbs(exec.calls), ",")
	if got != "remote,fetch,reset" {
		t.Fatalf("unexpected git calls %s", got)
	}
	if _, err := os.Stat(filepath.Join(repo.Dir, ".git")); err != nil {
		t.Fatalf("checkout should be kept on update: %v", err)
	}
}

func TestSyncReclonesWhenFetchFails(t *testing.T) {
	exec := &stubExecutor{
		output: map[string][]string{"remote": {repoURL}},
		fail:   map[string]error{"fetch": errors.New("network down")},
	}
	repo := newRepo(t, exec)
	fakeCheckout(t, repo.Dir)
	marker := filepath.Join(repo.Dir, "stale.txt")
	if err := os.WriteFile(marker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	if err := repo.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if got := strings.Join(verbs(exec.calls), ","); got != "remote,fetch,clone" {
		t.Fatalf("unexpected git calls %s", got)
	}
	if _, err := os.Stat(marker); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected stale checkout to be removed, stat err=%v", err)
	}
}

func TestSyncReclonesWhenOriginChanged(t *testing.T) {
	exec := &stubExecutor{output: map[string][]string{"remote": {"https://example.com/other.git"}}}
	repo := newRepo(t, exec)
	fakeCheckout(t, repo.Dir)

	if err := repo.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if got := strings.Join(verbs(exec.calls), ","); got != "remote,clone" {
		t.Fatalf("unexpected git calls %s", got)
	}
}

func TestSyncCloneFailure(t *testing.T) {
	exec := &stubExecutor{fail: map[string]error{"clone": errors.New("exit status 128")}}
	repo := newRepo(t, exec)

	err := repo.Sync(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestSetsDirAndLockPath(t *testing.T) {
	repo, err := gitcache.New(repoURL, "/tmp/cache/git/octgn", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if repo.Branch != "master" {
		t.Fatalf("expected default branch, got %q", repo.Branch)
	}
	if repo.SetsDir() != filepath.Join("/tmp/cache/git/octgn", "o8g", "Sets") {
		t.Fatalf("unexpected sets dir %q", repo.SetsDir())
	}
	if repo.LockPath() != "/tmp/cache/git/octgn.lock" {
		t.Fatalf("unexpected lock path %q", repo.LockPath())
	}
}

func TestNewRejectsOptionLikeBranch(t *testing.T) {
	if _, err := gitcache.New(repoURL, t.TempDir(), "--upload-pack=evil"); err == nil {
		t.Fatal("expected error for option-like branch")
	}
}
