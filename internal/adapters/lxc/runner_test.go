package lxc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
)

func TestExecRunner(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := NewExecRunner("", log)
	ctx := context.Background()

	out, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "echo web; echo db"}})
	assert.NilError(t, err)
	assert.DeepEqual(t, parseList(out), []string{"web", "db"})

	out, err = r.Run(ctx, Command{Name: "cat", Stdin: strings.NewReader("root:pw\n")})
	assert.NilError(t, err)
	assert.Equal(t, string(out), "root:pw\n")

	out, err = r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "echo noise"}, DiscardOutput: true})
	assert.NilError(t, err)
	assert.Equal(t, len(out), 0)
}

func TestExecRunnerFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := NewExecRunner("", log)

	_, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	assert.Assert(t, domain.HasCode(err, domain.EngineInvocationFailed), "got %v", err)
	assert.ErrorContains(t, err, "boom")

	_, err = r.Run(context.Background(), Command{Name: "lxc-definitely-not-installed"})
	assert.Assert(t, domain.HasCode(err, domain.EngineInvocationFailed), "got %v", err)
}

func TestExecRunnerCancel(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := NewExecRunner("", log)

	t.Run("already cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		_, err := r.Run(ctx, Command{Name: "sleep", Args: []string{"10"}})
		assert.Assert(t, domain.HasCode(err, domain.EngineInvocationFailed), "got %v", err)
		assert.Assert(t, errors.Is(err, context.Canceled), "got %v", err)
		assert.Assert(t, time.Since(start) < 5*time.Second)
	})

	t.Run("killed while running", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := r.Run(ctx, Command{Name: "sleep", Args: []string{"10"}})
		assert.Assert(t, domain.HasCode(err, domain.EngineInvocationFailed), "got %v", err)
		assert.Assert(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
		assert.ErrorContains(t, err, "sleep interrupted")
		assert.Assert(t, time.Since(start) < 5*time.Second)
	})
}

func TestExecRunnerBinDir(t *testing.T) {
	r := NewExecRunner("/usr/local/lxc/bin", nil)
	assert.Equal(t, r.path("lxc-ls"), "/usr/local/lxc/bin/lxc-ls")
	assert.Equal(t, r.path("/bin/sh"), "/bin/sh")
	assert.Equal(t, NewExecRunner("", nil).path("lxc-ls"), "lxc-ls")
}
