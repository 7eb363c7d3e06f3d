package lxc

import (
	"context"
	"sync"
)

// notification implements ports.Notification for a background lxc-wait.
type notification struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func newNotification(cancel context.CancelFunc) *notification {
	return &notification{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

func (n *notification) Done() <-chan struct{} { return n.done }

func (n *notification) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

func (n *notification) Cancel() { n.cancel() }

func (n *notification) finish(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
	close(n.done)
	n.cancel()
}
