// Package server runs the long-lived parts of the monitor side by side.
package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"visioniq.io/visioniq/pkg/log"
)

// Server is anything that runs until its context is cancelled.
type Server interface {
	Start(ctx context.Context) error
}

// RunnerFunc adapts a function, e.g. poller.Scheduler.Run, to Server.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Start(ctx context.Context) error { return f(ctx) }

// Manager manages the lifecycle of the HTTP front end and the poller.
type Manager struct {
	servers []Server
}

func NewManager(servers ...Server) *Manager {
	return &Manager{servers: servers}
}

// Add registers another server. It must be called before Start.
func (m *Manager) Add(s Server) {
	m.servers = append(m.servers, s)
}

// Start launches all servers in parallel and waits for termination. The
// first error cancels the others.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
