package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	})
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("Expected error for nil config")
	}

	if _, err := New(&Config{Address: ":0"}); err == nil {
		t.Error("Expected error for nil handler")
	}

	config := DefaultConfig(okHandler())
	config.CertFile = "cert.pem"
	if _, err := New(config); err == nil {
		t.Error("Expected error for certificate without key")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig(okHandler())

	if config.Address != ":3000" {
		t.Errorf("Expected address :3000, got %s", config.Address)
	}
	if config.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("Expected read header timeout 10s, got %v", config.ReadHeaderTimeout)
	}
	if config.MaxHeaderBytes != 1<<20 {
		t.Errorf("Expected max header bytes 1MB, got %d", config.MaxHeaderBytes)
	}
}

func TestNew_DatabasePool(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()

	config := DefaultConfig(okHandler())
	config.Database = DefaultDatabaseConfig(db)
	if _, err := New(config); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := db.Stats().MaxOpenConnections; got != 25 {
		t.Errorf("Expected max open connections 25, got %d", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestNew_DatabasePingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	config := DefaultConfig(okHandler())
	config.Database = DefaultDatabaseConfig(db)
	if _, err := New(config); err == nil {
		t.Error("Expected ping failure to be reported")
	}

	config.Database = &DatabaseConfig{}
	if _, err := New(config); err == nil {
		t.Error("Expected error for nil database")
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"

	srv, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("Unexpected response %d %q", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Expected ErrServerClosed, got %v", err)
	}
}
