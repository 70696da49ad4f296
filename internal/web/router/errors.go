package router

import (
	"fmt"
	"net/http"

	"github.com/conduit-lang/dataservice/internal/web/response"
)

// ErrorHandler renders the router's own 404 and 405 responses
type ErrorHandler struct {
	// ShowDetails echoes the request method and path in error bodies
	ShowDetails bool
	routes      func() []RouteInfo
}

// NotFoundHandler returns a handler for 404 Not Found errors
func (eh *ErrorHandler) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fmt.Errorf("no route for %s %s", r.Method, r.URL.Path)
		if !eh.ShowDetails {
			response.RenderError(w, http.StatusNotFound, err)
			return
		}
		response.RenderErrorWithDetails(w, http.StatusNotFound, err, map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
		})
	}
}

// MethodNotAllowedHandler returns a handler for 405 Method Not Allowed errors,
// listing the methods registered for the path in Allow
func (eh *ErrorHandler) MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var allowed []string
		if eh.routes != nil {
			for _, route := range eh.routes() {
				if route.Pattern == r.URL.Path {
					allowed = append(allowed, route.Method)
				}
			}
		}
		response.RenderMethodNotAllowed(w, allowed)
	}
}

// SetupDefaultErrorHandlers configures the router with default error handlers
func SetupDefaultErrorHandlers(r *Router, showDetails bool) {
	eh := &ErrorHandler{ShowDetails: showDetails, routes: r.Routes}
	r.NotFound(eh.NotFoundHandler())
	r.MethodNotAllowed(eh.MethodNotAllowedHandler())
}
