// Package server runs the HTTP listener for the data service
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server is an http.Server bound to a listener it owns
type Server struct {
	http   *http.Server
	config *Config

	mu       sync.Mutex
	listener net.Listener
}

// Config describes the listener. CertFile and KeyFile are set together or not at all.
type Config struct {
	Address string
	Handler http.Handler

	CertFile string
	KeyFile  string

	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int

	// Database, when set, is tuned and pinged by New
	Database *DatabaseConfig
}

// DatabaseConfig sizes the connection pool behind the store
type DatabaseConfig struct {
	DB              *sql.DB
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func DefaultConfig(handler http.Handler) *Config {
	return &Config{
		Address:           ":3000",
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func DefaultDatabaseConfig(db *sql.DB) *DatabaseConfig {
	return &DatabaseConfig{
		DB:              db,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

func New(config *Config) (*Server, error) {
	switch {
	case config == nil:
		return nil, errors.New("server config cannot be nil")
	case config.Handler == nil:
		return nil, errors.New("handler cannot be nil")
	case (config.CertFile == "") != (config.KeyFile == ""):
		return nil, errors.New("tls requires both a certificate and a key file")
	}

	if pool := config.Database; pool != nil {
		if err := pool.apply(); err != nil {
			return nil, fmt.Errorf("failed to configure database pool: %w", err)
		}
	}

	return &Server{
		config: config,
		http: &http.Server{
			Addr:              config.Address,
			Handler:           config.Handler,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			MaxHeaderBytes:    config.MaxHeaderBytes,
		},
	}, nil
}

// Listen binds the configured address so Addr can report the real port
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Serve blocks until Shutdown or Close. It binds first when Listen was not called.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		return s.Serve()
	}
	if s.config.CertFile != "" {
		return s.http.ServeTLS(ln, s.config.CertFile, s.config.KeyFile)
	}
	return s.http.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.http.Close()
}

// Addr is the bound address, or the configured one before Listen
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.config.Address
	}
	return s.listener.Addr().String()
}

func (c *DatabaseConfig) apply() error {
	if c.DB == nil {
		return errors.New("database connection cannot be nil")
	}

	c.DB.SetMaxOpenConns(c.MaxOpenConns)
	c.DB.SetMaxIdleConns(c.MaxIdleConns)
	c.DB.SetConnMaxLifetime(c.ConnMaxLifetime)
	c.DB.SetConnMaxIdleTime(c.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
