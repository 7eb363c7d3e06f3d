package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
)

// newTemplateRepo creates a local repository holding a template script.
// links maps extra repository paths to the symlink targets committed there.
func newTemplateRepo(t *testing.T, links map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	assert.NilError(t, err)

	assert.NilError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "templates", "lxc-busybox"), []byte("#!/bin/sh\nexit 0\n"), 0o644))

	wt, err := repo.Worktree()
	assert.NilError(t, err)
	_, err = wt.Add("templates/lxc-busybox")
	assert.NilError(t, err)
	for name, target := range links {
		assert.NilError(t, os.Symlink(target, filepath.Join(dir, filepath.FromSlash(name))))
		_, err = wt.Add(name)
		assert.NilError(t, err)
	}
	_, err = wt.Commit("add template", &git.CommitOptions{
		Author: &object.Signature{Name: "lighthouse", Email: "lighthouse@example.com", When: time.Now()},
	})
	assert.NilError(t, err)
	return dir
}

func newTestFetcher(t *testing.T) *Fetcher {
	log, _ := test.NewNullLogger()
	return &Fetcher{TempDir: t.TempDir(), Log: log}
}

func TestFetchTemplate(t *testing.T) {
	repo := newTemplateRepo(t, nil)
	f := newTestFetcher(t)

	path, cleanup, err := f.FetchTemplate(context.Background(), repo, "templates/lxc-busybox")
	assert.NilError(t, err)

	st, err := os.Stat(path)
	assert.NilError(t, err)
	assert.Assert(t, st.Mode()&0o111 != 0, "template not executable: %v", st.Mode())

	data, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Equal(t, string(data), "#!/bin/sh\nexit 0\n")

	cleanup()
	_, err = os.Stat(path)
	assert.Assert(t, os.IsNotExist(err))
}

func TestFetchTemplateErrors(t *testing.T) {
	repo := newTemplateRepo(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		repo   string
		script string
		code   domain.ErrorCode
		coded  bool
	}{
		{name: "no repo", repo: "", script: "templates/lxc-busybox", code: domain.InvalidArgument, coded: true},
		{name: "escaping path", repo: repo, script: "../etc/passwd", code: domain.InvalidArgument, coded: true},
		{name: "absolute path", repo: repo, script: "/etc/passwd", code: domain.InvalidArgument, coded: true},
		{name: "directory", repo: repo, script: "templates", code: domain.InvalidArgument, coded: true},
		{name: "missing script", repo: repo, script: "templates/lxc-alpine"},
		{name: "missing repo", repo: filepath.Join(t.TempDir(), "nope"), script: "lxc-busybox"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cleanup, err := newTestFetcher(t).FetchTemplate(ctx, tt.repo, tt.script)
			assert.Assert(t, err != nil)
			assert.Assert(t, cleanup == nil)
			if tt.coded {
				assert.Assert(t, domain.HasCode(err, tt.code), "got %v", err)
			}
		})
	}
}

func TestFetchTemplateSymlinks(t *testing.T) {
	outside := t.TempDir()
	hostFile := filepath.Join(outside, "script")
	assert.NilError(t, os.WriteFile(hostFile, []byte("#!/bin/sh\n"), 0o644))

	repo := newTemplateRepo(t, map[string]string{
		"templates/lxc-host": hostFile,
		"linked":             outside,
	})
	ctx := context.Background()

	for _, script := range []string{"templates/lxc-host", "linked/script"} {
		t.Run(script, func(t *testing.T) {
			_, cleanup, err := newTestFetcher(t).FetchTemplate(ctx, repo, script)
			assert.Assert(t, domain.HasCode(err, domain.InvalidArgument), "got %v", err)
			assert.Assert(t, cleanup == nil)

			st, err := os.Stat(hostFile)
			assert.NilError(t, err)
			assert.Equal(t, st.Mode().Perm(), os.FileMode(0o644))
		})
	}
}
