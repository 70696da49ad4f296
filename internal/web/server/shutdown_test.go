package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"
	srv, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return srv
}

func TestNewGracefulShutdown_Defaults(t *testing.T) {
	gs := NewGracefulShutdown(newTestServer(t), &ShutdownConfig{})

	if gs.timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", gs.timeout)
	}
	if len(gs.signals) != 2 {
		t.Errorf("Expected 2 default signals, got %d", len(gs.signals))
	}
	if gs.logger == nil {
		t.Error("Expected logger to be set")
	}
}

func TestGracefulShutdown_RunUntilCanceled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	srv := newTestServer(t)
	gs := NewGracefulShutdown(srv, &ShutdownConfig{Timeout: time.Second, Logger: zap.New(core)})

	var mu sync.Mutex
	var order []string
	gs.RegisterHook(func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "cache")
		return errors.New("already closed")
	})
	gs.RegisterHook(func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "db")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- gs.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("server listening").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()

	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "cache" || order[1] != "db" {
		t.Errorf("Expected hooks in registration order, got %v", order)
	}
	if logs.FilterMessage("shutdown hook failed").Len() != 1 {
		t.Error("Expected failing hook to be logged")
	}
	if err := gs.Wait(); err != nil {
		t.Errorf("Wait returned %v", err)
	}
}

func TestGracefulShutdown_ShutdownOnce(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	go srv.Serve()

	gs := NewGracefulShutdown(srv, &ShutdownConfig{Timeout: time.Second})

	calls := 0
	gs.RegisterHook(func(ctx context.Context) error {
		calls++
		return nil
	})

	if err := gs.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := gs.Shutdown(); err != nil {
		t.Fatalf("Second shutdown failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected hooks to run once, ran %d times", calls)
	}
}

func TestGracefulShutdown_ListenFailure(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "256.0.0.1:bad"
	srv, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	gs := NewGracefulShutdown(srv, nil)
	if err := gs.Run(context.Background()); err == nil {
		t.Error("Expected listen failure")
	}
}
