package template

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/melih/lighthouse-lxc/internal/core/ports"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Fetcher clones template repositories with go-git.
type Fetcher struct {
	// Depth limits the clone history. Zero clones everything, which local
	// repositories require.
	Depth int
	// Ref selects a branch; empty uses the remote HEAD.
	Ref string
	// TempDir is where clones are placed; empty uses os.TempDir.
	TempDir string
	Log     logrus.FieldLogger
}

var _ ports.TemplateFetcher = (*Fetcher)(nil)

// NewFetcher returns a fetcher doing shallow clones.
func NewFetcher(log logrus.FieldLogger) *Fetcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Fetcher{Depth: 1, Log: log}
}

// FetchTemplate clones repoURL and returns the absolute path of scriptPath
// inside the clone. The script is made executable since lxc-create runs it
// directly.
func (f *Fetcher) FetchTemplate(ctx context.Context, repoURL string, scriptPath string) (string, func(), error) {
	if repoURL == "" {
		return "", nil, domain.NewError(domain.InvalidArgument, "", "template repository is required")
	}
	rel := filepath.Clean(scriptPath)
	if scriptPath == "" || filepath.IsAbs(rel) || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", nil, domain.NewError(domain.InvalidArgument, "", "invalid template path %q", scriptPath)
	}

	tmpDir, err := os.MkdirTemp(f.TempDir, "lighthouse-template-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create temp dir")
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	opts := &git.CloneOptions{
		URL:          repoURL,
		Depth:        f.Depth,
		SingleBranch: f.Ref != "",
	}
	if f.Ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(f.Ref)
	}

	f.Log.WithFields(logrus.Fields{"repo": repoURL, "dir": tmpDir}).Info("Cloning template repository")
	if _, err := git.PlainCloneContext(ctx, tmpDir, false, opts); err != nil {
		cleanup()
		return "", nil, errors.Wrapf(err, "failed to clone %s", repoURL)
	}

	path := filepath.Join(tmpDir, rel)
	st, err := os.Lstat(path)
	if err != nil {
		cleanup()
		return "", nil, errors.Wrapf(err, "template %s not found in %s", scriptPath, repoURL)
	}
	if st.Mode()&os.ModeSymlink != 0 {
		cleanup()
		return "", nil, domain.NewError(domain.InvalidArgument, "", "template %s is a symbolic link", scriptPath)
	}
	if st.IsDir() {
		cleanup()
		return "", nil, domain.NewError(domain.InvalidArgument, "", "template %s is a directory", scriptPath)
	}
	// A symlinked parent directory can still lead outside the clone.
	if err := within(tmpDir, path); err != nil {
		cleanup()
		return "", nil, domain.WrapError(err, domain.InvalidArgument, "", "template %s escapes the repository", scriptPath)
	}
	if err := os.Chmod(path, st.Mode()|0o111); err != nil {
		cleanup()
		return "", nil, errors.Wrap(err, "failed to make template executable")
	}

	return path, cleanup, nil
}

// within fails unless path, once symlinks are resolved, lies under root.
func within(root, path string) error {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil {
		return err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Errorf("%s resolves outside %s", path, root)
	}
	return nil
}
