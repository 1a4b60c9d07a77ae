// Package server orchestrates host binding adapters over one shared
// filesystem core.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/attrfs/attrfs/internal/logger"
	"github.com/attrfs/attrfs/pkg/adapter"
	"github.com/attrfs/attrfs/pkg/fs"
)

// Server manages the lifecycle of the host binding adapters that project
// one shared attribute tree.
//
// Lifecycle:
//  1. Creation: New() with the filesystem core
//  2. Registration: AddAdapter() for each binding
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation triggers graceful shutdown
//
// Thread safety:
// AddAdapter may be called concurrently before Serve. Serve must only be
// called once per instance.
type Server struct {
	// fsys is the shared filesystem core injected into every adapter.
	fsys *fs.Filesystem

	// adapters contains all registered host bindings.
	adapters []adapter.Adapter

	// mu protects the adapters slice and the serving flag.
	mu     sync.RWMutex
	served bool
}

// New creates a server around the filesystem core. Panics on a nil core;
// that is a programmer error, not a runtime condition.
func New(fsys *fs.Filesystem) *Server {
	if fsys == nil {
		panic("filesystem core cannot be nil")
	}
	return &Server{
		fsys:     fsys,
		adapters: make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter registers a host binding, injecting the shared filesystem.
// Duplicate protocols are rejected. Must not be called after Serve.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
	}

	a.SetFilesystem(s.fsys)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter at %s", protocol, a.Endpoint())
	return nil
}

// Adapters returns a snapshot of currently registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]adapter.Adapter, len(s.adapters))
	copy(out, s.adapters)
	return out
}

// Filesystem returns the shared filesystem core.
func (s *Server) Filesystem() *fs.Filesystem {
	return s.fsys
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// When shutdown starts, adapters receive Stop in reverse registration
// order and Serve waits for every adapter goroutine to drain before
// returning. Returns the context error on cancellation, or the first
// adapter error wrapped with its protocol name.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		panic("Serve() has already been called on this server instance")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting attrfs server with %d adapter(s)", len(adapters))

	// Buffered so simultaneously failing adapters do not leak goroutines.
	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter at %s", protocol, a.Endpoint())

			if err := a.Serve(ctx); err != nil {
				// context.Canceled is expected during shutdown.
				if err != context.Canceled && ctx.Err() == nil {
					logger.Error("%s adapter failed: %v", protocol, err)
					errChan <- adapterError{protocol: protocol, err: err}
				} else {
					logger.Debug("%s adapter stopped gracefully", protocol)
				}
			} else {
				logger.Info("%s adapter stopped", protocol)
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters)
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - stopping all adapters",
			adapterErr.protocol, adapterErr.err)
		s.stopAllAdapters(adapters)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("attrfs server stopped")
	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters signals graceful shutdown to every adapter in reverse
// registration order. The caller still waits for the adapter goroutines;
// Stop only starts the shutdown.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter) {
	const stopTimeout = 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && err != context.Canceled {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		}
	}
}
