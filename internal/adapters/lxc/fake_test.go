package lxc

import (
	"context"
	"io"
	"sync"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
)

// fakeEngine records every command and answers lxc-ls from its lists.
type fakeEngine struct {
	mu sync.Mutex

	containers []string
	running    []string
	stopped    []string

	outputs map[string][]byte
	fail    map[string]error
	// createAdds makes a successful lxc-create register the container.
	createAdds bool
	// waitRelease, when set, blocks lxc-wait until it is closed.
	waitRelease chan struct{}
	// hang blocks the named binaries until their context is done.
	hang map[string]bool

	calls []Command
	stdin []string
	// deadline records whether each binary last ran under a deadline.
	deadline map[string]bool
}

func newFakeEngine(containers ...string) *fakeEngine {
	return &fakeEngine{
		containers: containers,
		outputs:    map[string][]byte{},
		fail:       map[string]error{},
		hang:       map[string]bool{},
		deadline:   map[string]bool{},
	}
}

func engineFailure(bin string) error {
	return domain.NewError(domain.EngineInvocationFailed, "", "%s failed", bin)
}

func (f *fakeEngine) Run(ctx context.Context, cmd Command) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	if cmd.Stdin != nil {
		b, _ := io.ReadAll(cmd.Stdin)
		f.stdin = append(f.stdin, string(b))
	}
	_, f.deadline[cmd.Name] = ctx.Deadline()
	err := f.fail[cmd.Name]
	release := f.waitRelease
	hang := f.hang[cmd.Name]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if hang {
		<-ctx.Done()
		return nil, domain.WrapError(ctx.Err(), domain.EngineInvocationFailed, "", "%s interrupted", cmd.Name)
	}

	switch cmd.Name {
	case lsBin:
		return f.list(cmd.Args), nil
	case waitBin:
		if release != nil {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, domain.WrapError(ctx.Err(), domain.EngineInvocationFailed, "", "lxc-wait interrupted")
			}
		}
	case createBin:
		if f.createAdds {
			f.mu.Lock()
			f.containers = append(f.containers, cmd.Args[1])
			f.mu.Unlock()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outputs[cmd.Name], nil
}

func (f *fakeEngine) list(args []string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := f.containers
	if len(args) > 0 {
		switch args[0] {
		case "--running":
			names = f.running
		case "--stopped":
			names = f.stopped
		default:
			names = nil
		}
	}
	var out []byte
	for _, n := range names {
		out = append(out, n+"\n"...)
	}
	return out
}

// invoked returns the binaries run, leaving out listing queries.
func (f *fakeEngine) invoked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for _, c := range f.calls {
		if c.Name != lsBin {
			names = append(names, c.Name)
		}
	}
	return names
}

func (f *fakeEngine) last(bin string) (Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Name == bin {
			return f.calls[i], true
		}
	}
	return Command{}, false
}
