// Package consumer is an HTTP client for one model served by a data service.
//
//	posts := consumer.New("http://localhost:3000/api", "posts")
//	var post Post
//	err := posts.Get(ctx, 7, http.Header{"X-Include": {"comments"}}, &post)
package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StatusError is returned when the service answers with a status of 400 or above
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("could not retrieve object (status %d)", e.StatusCode)
}

// Client performs requests against {baseURI}/{entity}
type Client struct {
	httpClient *http.Client
	baseURI    string
	entity     string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 20 seconds
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// New creates a client for entity under baseURI
func New(baseURI, entity string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURI:    strings.TrimRight(baseURI, "/"),
		entity:     strings.Trim(entity, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches one object by id into out. header is sent as-is and may carry X-Include.
func (c *Client) Get(ctx context.Context, id interface{}, header http.Header, out interface{}) error {
	return c.do(ctx, http.MethodGet, c.instancePath(id), header, nil, out)
}

// GetAll fetches every object into out
func (c *Client) GetAll(ctx context.Context, header http.Header, out interface{}) error {
	return c.do(ctx, http.MethodGet, c.collectionPath(), header, nil, out)
}

// Create posts obj and decodes the created object into out
func (c *Client) Create(ctx context.Context, obj, out interface{}) error {
	return c.do(ctx, http.MethodPost, c.collectionPath(), nil, obj, out)
}

// Update puts obj onto the object with id and decodes the result into out
func (c *Client) Update(ctx context.Context, id, obj, out interface{}) error {
	return c.do(ctx, http.MethodPut, c.instancePath(id), nil, obj, out)
}

func (c *Client) collectionPath() string {
	return c.baseURI + "/" + c.entity
}

func (c *Client) instancePath(id interface{}) string {
	return c.collectionPath() + "/" + url.PathEscape(fmt.Sprint(id))
}

func (c *Client) do(ctx context.Context, method, target string, header http.Header, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	for name, values := range header {
		req.Header[name] = values
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
