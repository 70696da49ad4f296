// Package middleware provides the HTTP middleware wrapped around the API dispatcher
package middleware

import (
	"net/http"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain represents a composable chain of middleware
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain. Nil entries are skipped so optional
// middleware can be passed unconditionally.
func NewChain(middlewares ...Middleware) *Chain {
	c := &Chain{}
	return c.Extend(middlewares...)
}

// Use adds a middleware to the chain
func (c *Chain) Use(m Middleware) *Chain {
	if m != nil {
		c.middlewares = append(c.middlewares, m)
	}
	return c
}

// Extend adds multiple middleware to the chain
func (c *Chain) Extend(middlewares ...Middleware) *Chain {
	for _, m := range middlewares {
		c.Use(m)
	}
	return c
}

// Len returns the number of middleware in the chain
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Then wraps handler with every middleware. The first middleware added runs first.
func (c *Chain) Then(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}
