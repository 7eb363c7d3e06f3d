package ports

import (
	"context"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
)

// ContainerService defines the operations the facade offers over the
// container engine. Implementations hold no state between calls; the engine
// is the only source of truth.
type ContainerService interface {
	List(ctx context.Context, filter domain.Filter) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
	Start(ctx context.Context, name string, opts domain.StartOptions) error
	Stop(ctx context.Context, name string) error
	Destroy(ctx context.Context, name string) error
	Info(ctx context.Context, name string) (domain.Info, error)
	Freeze(ctx context.Context, name string) error
	Unfreeze(ctx context.Context, name string) error
	// Notify returns immediately. The callback runs once the container
	// reaches the state expression (e.g. "STOPPED|RUNNING").
	Notify(ctx context.Context, name string, states string, callback func()) (Notification, error)
	Create(ctx context.Context, name string, opts domain.CreateOptions) error
	CheckConfig(ctx context.Context) ([]string, error)
	ResetPassword(ctx context.Context, name, username, password string) error
}

// Notification tracks a pending state wait started by Notify.
type Notification interface {
	// Done is closed once the wait finished, failed or was cancelled.
	Done() <-chan struct{}
	// Err is valid after Done is closed.
	Err() error
	Cancel()
}
