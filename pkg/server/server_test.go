package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrfs/attrfs/pkg/fs"
)

// stubAdapter is a minimal adapter that blocks until cancelled or told to
// fail.
type stubAdapter struct {
	protocol string
	failWith error
	injected atomic.Bool
	stopped  atomic.Bool
}

func (a *stubAdapter) Serve(ctx context.Context) error {
	if a.failWith != nil {
		return a.failWith
	}
	<-ctx.Done()
	return ctx.Err()
}

func (a *stubAdapter) SetFilesystem(f *fs.Filesystem) {
	a.injected.Store(f != nil)
}

func (a *stubAdapter) Stop(ctx context.Context) error {
	a.stopped.Store(true)
	return nil
}

func (a *stubAdapter) Protocol() string { return a.protocol }
func (a *stubAdapter) Endpoint() string { return "/mnt/" + a.protocol }

// TestAddAdapter verifies filesystem injection and duplicate protocol
// rejection.
func TestAddAdapter(t *testing.T) {
	s := New(fs.New())

	a := &stubAdapter{protocol: "FUSE"}
	require.NoError(t, s.AddAdapter(a))
	assert.True(t, a.injected.Load())

	err := s.AddAdapter(&stubAdapter{protocol: "FUSE"})
	require.Error(t, err)
	assert.Len(t, s.Adapters(), 1)
}

// TestServeGracefulShutdown verifies cancellation stops every adapter and
// Serve returns the context error.
func TestServeGracefulShutdown(t *testing.T) {
	s := New(fs.New())
	a := &stubAdapter{protocol: "FUSE"}
	require.NoError(t, s.AddAdapter(a))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.True(t, a.stopped.Load())
}

// TestServeAdapterFailure verifies a failing adapter brings the server
// down with a wrapped error.
func TestServeAdapterFailure(t *testing.T) {
	s := New(fs.New())
	boom := errors.New("mount failed")
	require.NoError(t, s.AddAdapter(&stubAdapter{protocol: "FUSE", failWith: boom}))

	err := s.Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

// TestServeWithoutAdapters verifies the registration precondition.
func TestServeWithoutAdapters(t *testing.T) {
	s := New(fs.New())
	err := s.Serve(context.Background())
	require.Error(t, err)
}
