package domain

import (
	"testing"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NewError(ContainerNotExists, "web", "the container (%s) does not exist", "web")
	assert.Error(t, err, "the container (web) does not exist")

	bare := &Error{Code: ContainerAlreadyRunning}
	assert.Error(t, bare, "Container is already running")

	cause := errors.New("exit status 2")
	wrapped := WrapError(cause, EngineInvocationFailed, "web", "lxc-stop failed")
	assert.Assert(t, errors.Is(wrapped, cause))
	assert.Equal(t, errors.Cause(wrapped), cause)
	assert.Error(t, wrapped, "lxc-stop failed: exit status 2")
}

func TestCodeOf(t *testing.T) {
	err := errors.Wrap(NewError(MalformedInfoLine, "web", "bad line"), "info")

	code, ok := CodeOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, code, MalformedInfoLine)
	assert.Assert(t, HasCode(err, MalformedInfoLine))
	assert.Assert(t, !HasCode(err, ContainerNotExists))

	_, ok = CodeOf(errors.New("plain"))
	assert.Assert(t, !ok)
	assert.Assert(t, !HasCode(nil, ContainerNotExists))
}

func TestFilterValid(t *testing.T) {
	for _, f := range []Filter{FilterActive, FilterFrozen, FilterRunning, FilterStopped, FilterNesting} {
		assert.Assert(t, f.Valid(), "%s", f)
	}
	for _, f := range []Filter{FilterNone, "RUNNING", "paused"} {
		assert.Assert(t, !f.Valid(), "%s", f)
	}
}

func TestInfoHelpers(t *testing.T) {
	info := Info{"state": "RUNNING", "ip": "10.0.3.15"}
	assert.Equal(t, info.State(), StateRunning)
	assert.Equal(t, info.IPAddress(), "10.0.3.15")
	assert.Assert(t, info.Running())
	assert.Assert(t, !Info{"state": "FROZEN"}.Running())
}
