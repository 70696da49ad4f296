// Package autoapi exposes every model of a registry as a REST surface without
// per-model handlers.
//
// Routes, relative to the configured prefix:
//
//	GET    /                 registered model names
//	GET    /<model>          list
//	POST   /<model>          create
//	POST   /<model>/search   filtered, ordered, optionally paginated search
//	GET    /<model>/<id>     retrieve
//	PUT    /<model>/<id>     update
//	DELETE /<model>/<id>     delete
//
// Anything else is passed to the next handler.
package autoapi

import (
	"net/http"
	"strings"
)

// RouteKind identifies which handler a request maps to
type RouteKind int

const (
	// RouteNone means the request is not an API request and should be delegated
	RouteNone RouteKind = iota
	// RouteRoot is the prefix itself
	RouteRoot
	// RouteCollection is /<model>
	RouteCollection
	// RouteInstance is /<model>/<id>
	RouteInstance
	// RouteSearch is POST /<model>/search
	RouteSearch
)

// String returns the string representation of RouteKind
func (k RouteKind) String() string {
	switch k {
	case RouteRoot:
		return "root"
	case RouteCollection:
		return "collection"
	case RouteInstance:
		return "instance"
	case RouteSearch:
		return "search"
	default:
		return "none"
	}
}

// Route is the result of matching a request path against the prefix
type Route struct {
	Kind       RouteKind
	ModelName  string
	Identifier string
}

// searchVerb is the second path segment that selects search on POST
const searchVerb = "search"

// ParseRoute matches method and path against prefix. The model name is not checked
// against any registry.
func ParseRoute(prefix, method, path string) Route {
	if !strings.HasPrefix(path, prefix) {
		return Route{}
	}

	rest := path[len(prefix):]
	if rest == "" || rest == "/" {
		return Route{Kind: RouteRoot}
	}
	if rest[0] != '/' {
		return Route{}
	}

	rest = strings.TrimSuffix(rest[1:], "/")
	segments := strings.Split(rest, "/")
	for _, seg := range segments {
		if seg == "" {
			return Route{}
		}
	}

	switch len(segments) {
	case 1:
		return Route{Kind: RouteCollection, ModelName: segments[0]}
	case 2:
		if method == http.MethodPost && segments[1] == searchVerb {
			return Route{Kind: RouteSearch, ModelName: segments[0]}
		}
		return Route{Kind: RouteInstance, ModelName: segments[0], Identifier: segments[1]}
	default:
		return Route{}
	}
}

// operation names the handler for a route and method, or "" when the combination is
// not served
func (r Route) operation(method string) string {
	switch r.Kind {
	case RouteRoot:
		if method == http.MethodGet {
			return "index"
		}
	case RouteCollection:
		switch method {
		case http.MethodGet:
			return "list"
		case http.MethodPost:
			return "create"
		}
	case RouteSearch:
		return "search"
	case RouteInstance:
		switch method {
		case http.MethodGet:
			return "retrieve"
		case http.MethodPut:
			return "update"
		case http.MethodDelete:
			return "delete"
		}
	}
	return ""
}
