// Package portstest provides an in-memory ContainerService for tests of
// the components built on top of the port.
package portstest

import (
	"context"
	"sort"
	"sync"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/melih/lighthouse-lxc/internal/core/ports"
)

// Service keeps containers in memory and applies the same preconditions as
// the lxc adapter.
type Service struct {
	mu sync.Mutex

	Containers map[string]domain.Info
	// Errors forces an operation ("list", "start", ...) to fail.
	Errors map[string]error
	Calls  []string

	CheckConfigLines []string
	Passwords        map[string]string
	Created          map[string]domain.CreateOptions
	// Block, when set, keeps notifications pending until it is closed.
	Block chan struct{}
}

var _ ports.ContainerService = (*Service)(nil)

// NewService returns a service knowing the given containers.
func NewService(containers map[string]domain.Info) *Service {
	if containers == nil {
		containers = map[string]domain.Info{}
	}
	return &Service{
		Containers: containers,
		Errors:     map[string]error{},
		Passwords:  map[string]string{},
		Created:    map[string]domain.CreateOptions{},
	}
}

func (s *Service) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, op)
	return s.Errors[op]
}

func (s *Service) state(name string) (domain.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.Containers[name]
	if !ok {
		return nil, domain.NewError(domain.ContainerNotExists, name, "the container (%s) does not exist", name)
	}
	return info, nil
}

func (s *Service) setState(name string, st domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Containers[name]["state"] = string(st)
}

func (s *Service) List(ctx context.Context, filter domain.Filter) ([]string, error) {
	if err := s.enter("list"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name, info := range s.Containers {
		switch filter {
		case domain.FilterRunning:
			if info.State() != domain.StateRunning {
				continue
			}
		case domain.FilterStopped:
			if info.State() != domain.StateStopped {
				continue
			}
		case domain.FilterFrozen:
			if info.State() != domain.StateFrozen {
				continue
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	if err := s.enter("exists"); err != nil {
		return false, err
	}
	_, err := s.state(name)
	return err == nil, nil
}

func (s *Service) Start(ctx context.Context, name string, opts domain.StartOptions) error {
	if err := s.enter("start"); err != nil {
		return err
	}
	info, err := s.state(name)
	if err != nil {
		return err
	}
	if info.Running() {
		return domain.NewError(domain.ContainerAlreadyRunning, name, "the container %s is already started", name)
	}
	s.setState(name, domain.StateRunning)
	return nil
}

func (s *Service) Stop(ctx context.Context, name string) error {
	if err := s.enter("stop"); err != nil {
		return err
	}
	if _, err := s.state(name); err != nil {
		return err
	}
	s.setState(name, domain.StateStopped)
	return nil
}

func (s *Service) Destroy(ctx context.Context, name string) error {
	if err := s.enter("destroy"); err != nil {
		return err
	}
	if _, err := s.state(name); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.Containers, name)
	s.mu.Unlock()
	return nil
}

func (s *Service) Info(ctx context.Context, name string) (domain.Info, error) {
	if err := s.enter("info"); err != nil {
		return nil, err
	}
	info, err := s.state(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := domain.Info{"name": name}
	for k, v := range info {
		out[k] = v
	}
	return out, nil
}

func (s *Service) Freeze(ctx context.Context, name string) error {
	if err := s.enter("freeze"); err != nil {
		return err
	}
	if _, err := s.state(name); err != nil {
		return err
	}
	s.setState(name, domain.StateFrozen)
	return nil
}

func (s *Service) Unfreeze(ctx context.Context, name string) error {
	if err := s.enter("unfreeze"); err != nil {
		return err
	}
	if _, err := s.state(name); err != nil {
		return err
	}
	s.setState(name, domain.StateRunning)
	return nil
}

func (s *Service) Notify(ctx context.Context, name string, states string, callback func()) (ports.Notification, error) {
	if err := s.enter("notify"); err != nil {
		return nil, err
	}
	if _, err := s.state(name); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	n := &Notification{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer cancel()
		if s.Block != nil {
			select {
			case <-s.Block:
			case <-ctx.Done():
				n.err = ctx.Err()
				close(n.done)
				return
			}
		}
		if callback != nil {
			callback()
		}
		close(n.done)
	}()
	return n, nil
}

func (s *Service) Create(ctx context.Context, name string, opts domain.CreateOptions) error {
	if err := s.enter("create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Containers[name]; ok {
		return domain.NewError(domain.ContainerAlreadyExists, name, "the container %s is already created", name)
	}
	s.Containers[name] = domain.Info{"state": string(domain.StateStopped)}
	s.Created[name] = opts
	return nil
}

func (s *Service) CheckConfig(ctx context.Context) ([]string, error) {
	if err := s.enter("checkconfig"); err != nil {
		return nil, err
	}
	return s.CheckConfigLines, nil
}

func (s *Service) ResetPassword(ctx context.Context, name, username, password string) error {
	if err := s.enter("password"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Passwords[name+"/"+username] = password
	return nil
}

// Notification is returned by Service.Notify.
type Notification struct {
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

func (n *Notification) Done() <-chan struct{} { return n.done }

// Err must only be read after Done is closed.
func (n *Notification) Err() error { return n.err }

func (n *Notification) Cancel() { n.cancel() }
