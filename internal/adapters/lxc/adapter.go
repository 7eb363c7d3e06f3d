package lxc

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/melih/lighthouse-lxc/internal/core/ports"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLXCPath is where the engine keeps container directories.
	DefaultLXCPath = "/var/lib/lxc"
	// DefaultPasswordEnv overrides the password given to ResetPassword.
	DefaultPasswordEnv = "PASSWORD"
)

// Config holds the adapter settings.
type Config struct {
	LXCPath     string
	PasswordEnv string
	// Timeout bounds every blocking operation except Notify. Zero means
	// the caller's context is the only bound.
	Timeout time.Duration
}

// Adapter implements ports.ContainerService on top of the lxc-* tools.
type Adapter struct {
	runner Runner
	cfg    Config
	log    logrus.FieldLogger
}

var _ ports.ContainerService = (*Adapter)(nil)

// NewAdapter creates an adapter that runs engine commands through runner.
func NewAdapter(runner Runner, cfg Config, log logrus.FieldLogger) *Adapter {
	if cfg.LXCPath == "" {
		cfg.LXCPath = DefaultLXCPath
	}
	if cfg.PasswordEnv == "" {
		cfg.PasswordEnv = DefaultPasswordEnv
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{runner: runner, cfg: cfg, log: log}
}

func (a *Adapter) run(ctx context.Context, name string, cmd Command) ([]byte, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	out, err := a.runner.Run(ctx, cmd)
	return out, withName(err, name)
}

func withName(err error, name string) error {
	if e, ok := err.(*domain.Error); ok && e.Name == "" {
		e.Name = name
	}
	return err
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\x00") || name == "." || name == ".." {
		return domain.NewError(domain.InvalidName, name, "invalid container name %q", name)
	}
	return nil
}

// mustExist fails with ContainerNotExists when the engine does not know name.
func (a *Adapter) mustExist(ctx context.Context, name string) error {
	ok, err := a.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewError(domain.ContainerNotExists, name, "the container (%s) does not exist", name)
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// List returns the container names reported by lxc-ls, optionally scoped to
// a status group. Unknown filters are ignored.
func (a *Adapter) List(ctx context.Context, filter domain.Filter) ([]string, error) {
	out, err := a.run(ctx, "", listCmd(filter))
	if err != nil {
		return nil, err
	}
	return parseList(out), nil
}

// Exists checks if a given container is defined. Names the engine could
// never report are answered without running lxc-ls.
func (a *Adapter) Exists(ctx context.Context, name string) (bool, error) {
	if validateName(name) != nil {
		return false, nil
	}
	names, err := a.List(ctx, domain.FilterNone)
	if err != nil {
		return false, err
	}
	return contains(names, name), nil
}

// Start starts a container in daemon mode.
func (a *Adapter) Start(ctx context.Context, name string, opts domain.StartOptions) error {
	if err := a.mustExist(ctx, name); err != nil {
		return err
	}
	running, err := a.List(ctx, domain.FilterRunning)
	if err != nil {
		return err
	}
	if contains(running, name) {
		return domain.NewError(domain.ContainerAlreadyRunning, name, "the container %s is already started", name)
	}
	_, err = a.run(ctx, name, startCmd(name, opts))
	return err
}

// Stop stops a container. Stopping an already stopped container is left
// to the engine.
func (a *Adapter) Stop(ctx context.Context, name string) error {
	if err := a.mustExist(ctx, name); err != nil {
		return err
	}
	_, err := a.run(ctx, name, stopCmd(name))
	return err
}

// Destroy stops a container and removes it. The stop is always attempted;
// a failing stop is tolerated only when the container is already stopped.
func (a *Adapter) Destroy(ctx context.Context, name string) error {
	if err := a.mustExist(ctx, name); err != nil {
		return err
	}

	if err := a.Stop(ctx, name); err != nil {
		if !domain.HasCode(err, domain.EngineInvocationFailed) {
			return err
		}
		stopped, lerr := a.List(ctx, domain.FilterStopped)
		if lerr != nil {
			return lerr
		}
		if !contains(stopped, name) {
			return err
		}
		a.log.WithField("container", name).Debug("Container already stopped, destroying")
	}

	_, err := a.run(ctx, name, destroyCmd(name))
	return err
}

// Info returns the parsed lxc-info output for the container.
func (a *Adapter) Info(ctx context.Context, name string) (domain.Info, error) {
	if err := a.mustExist(ctx, name); err != nil {
		return nil, err
	}
	out, err := a.run(ctx, name, infoCmd(name))
	if err != nil {
		return nil, err
	}
	return parseInfo(name, splitLines(out))
}

// Freeze freezes the container.
func (a *Adapter) Freeze(ctx context.Context, name string) error {
	if err := a.mustExist(ctx, name); err != nil {
		return err
	}
	_, err := a.run(ctx, name, freezeCmd(name))
	return err
}

// Unfreeze thaws the container.
func (a *Adapter) Unfreeze(ctx context.Context, name string) error {
	if err := a.mustExist(ctx, name); err != nil {
		return err
	}
	_, err := a.run(ctx, name, unfreezeCmd(name))
	return err
}

// Notify waits in the background until the container reaches states, which
// may be or-ed or and-ed ("STOPPED|RUNNING"), then calls callback.
// The wait is bound to ctx, not to the configured operation timeout.
func (a *Adapter) Notify(ctx context.Context, name string, states string, callback func()) (ports.Notification, error) {
	if err := a.mustExist(ctx, name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(states) == "" {
		return nil, domain.NewError(domain.InvalidArgument, name, "empty state expression")
	}

	waitCtx, cancel := context.WithCancel(ctx)
	n := newNotification(cancel)
	log := a.log.WithFields(logrus.Fields{"container": name, "states": states})

	go func() {
		_, err := a.runner.Run(waitCtx, waitCmd(name, states))
		if err = withName(err, name); err != nil {
			log.WithError(err).Warn("Waiting on container states failed")
			n.finish(err)
			return
		}
		if callback != nil {
			callback()
		}
		n.finish(nil)
	}()

	log.Info("Waiting on container states")
	return n, nil
}

// Create creates a new container. The engine's exit status is not trusted
// on its own: the container must show up in the listing afterwards.
func (a *Adapter) Create(ctx context.Context, name string, opts domain.CreateOptions) error {
	ok, err := a.Exists(ctx, name)
	if err != nil {
		return err
	}
	if ok {
		return domain.NewError(domain.ContainerAlreadyExists, name, "the container %s is already created", name)
	}

	cmd := createCmd(name, opts)
	if _, err := a.run(ctx, name, cmd); err != nil {
		return err
	}

	log := a.log.WithFields(logrus.Fields{"container": name, "options": cmd.Args[2:]})

	ok, err = a.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		log.Error("Container does not seem to be created")
		return domain.NewError(domain.ContainerNotExists, name, "the container (%s) does not exist after create", name)
	}

	log.Info("Container has been created")
	return nil
}

// CheckConfig returns the lxc-checkconfig report without color codes.
func (a *Adapter) CheckConfig(ctx context.Context) ([]string, error) {
	out, err := a.run(ctx, "", checkconfigCmd())
	if err != nil {
		return nil, err
	}
	return scrubCheckConfig(out), nil
}

// ResetPassword sets the password of username inside the container rootfs.
// A non-empty value in the configured environment variable wins over
// password.
func (a *Adapter) ResetPassword(ctx context.Context, name, username, password string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if v := os.Getenv(a.cfg.PasswordEnv); v != "" {
		password = v
	}
	if username == "" || strings.ContainsAny(username, ":\n") {
		return domain.NewError(domain.InvalidArgument, name, "invalid username %q", username)
	}
	if strings.ContainsRune(password, '\n') {
		return domain.NewError(domain.InvalidArgument, name, "password must not contain a newline")
	}

	_, err := a.run(ctx, name, resetPasswordCmd(a.cfg.LXCPath, name, username, password))
	return err
}
