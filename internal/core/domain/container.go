package domain

import "strings"

// State is a container status as reported by lxc-info. The set is owned by
// the engine; unknown values are passed through untouched.
type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
	StateAborting State = "ABORTING"
	StateFreezing State = "FREEZING"
	StateFrozen   State = "FROZEN"
	StateThawed   State = "THAWED"
)

// Filter narrows a container listing to one status group.
type Filter string

const (
	FilterNone    Filter = ""
	FilterActive  Filter = "active"
	FilterFrozen  Filter = "frozen"
	FilterRunning Filter = "running"
	FilterStopped Filter = "stopped"
	FilterNesting Filter = "nesting"
)

// Valid reports whether f is one of the filters lxc-ls understands.
// Anything else is treated as no filter at all.
func (f Filter) Valid() bool {
	switch f {
	case FilterActive, FilterFrozen, FilterRunning, FilterStopped, FilterNesting:
		return true
	}
	return false
}

// Info holds the parsed key/value output of lxc-info.
type Info map[string]string

// State returns the reported container state.
func (i Info) State() State {
	return State(i["state"])
}

// IPAddress returns the address reported for the container, if any. When
// lxc-info prints several IP lines the last one wins.
func (i Info) IPAddress() string {
	return i["ip"]
}

// Running is true when the container reports RUNNING.
func (i Info) Running() bool {
	return strings.EqualFold(i["state"], string(StateRunning))
}

// Container represents a container together with its last observed state.
type Container struct {
	Name      string `json:"name"`
	State     State  `json:"state"`
	IPAddress string `json:"ip_address,omitempty"`
	PID       string `json:"pid,omitempty"`
}

// StartOptions are passed to lxc-start.
type StartOptions struct {
	// ConfigFile overrides the container configuration for this start.
	ConfigFile string `json:"config_file"`
}

// CreateOptions are passed through to lxc-create.
type CreateOptions struct {
	ConfigFile      string   `json:"config_file"`
	Template        string   `json:"template"`
	BackingStore    string   `json:"backing_store"`
	TemplateOptions []string `json:"template_options"`
}
