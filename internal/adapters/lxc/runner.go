package lxc

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/sirupsen/logrus"
)

// Command is a single engine invocation. Args are passed verbatim to the
// process; nothing goes through a shell.
type Command struct {
	Name  string
	Args  []string
	Stdin io.Reader
	// DiscardOutput drops stdout instead of returning it.
	DiscardOutput bool
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes engine commands and returns their standard output.
// A non-zero exit must be reported as an EngineInvocationFailed error.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands as local processes.
type ExecRunner struct {
	// BinDir, when set, is where the lxc-* binaries are looked up.
	// Otherwise PATH is searched.
	BinDir string
	Log    logrus.FieldLogger
}

// NewExecRunner returns a runner resolving binaries in binDir or on PATH.
func NewExecRunner(binDir string, log logrus.FieldLogger) *ExecRunner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ExecRunner{BinDir: binDir, Log: log}
}

func (r *ExecRunner) path(name string) string {
	if r.BinDir == "" || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(r.BinDir, name)
}

// Run starts the command and waits for it. Cancelling ctx kills the process.
func (r *ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, r.path(c.Name), c.Args...)
	cmd.Stdin = c.Stdin
	cmd.Stderr = &stderr
	if c.DiscardOutput {
		cmd.Stdout = io.Discard
	} else {
		cmd.Stdout = &stdout
	}

	r.Log.WithField("command", c.String()).Debug("Running engine command")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, domain.WrapError(ctx.Err(), domain.EngineInvocationFailed, "", "%s interrupted", c.Name)
		}
		msg := strings.TrimSpace(stderr.String())
		if exitErr, ok := err.(*exec.ExitError); ok {
			if msg == "" {
				return nil, domain.WrapError(exitErr, domain.EngineInvocationFailed, "", "%s failed", c.Name)
			}
			return nil, domain.WrapError(exitErr, domain.EngineInvocationFailed, "", "%s failed (%s)", c.Name, msg)
		}
		return nil, domain.WrapError(err, domain.EngineInvocationFailed, "", "unable to run %s", c.Name)
	}
	return stdout.Bytes(), nil
}
