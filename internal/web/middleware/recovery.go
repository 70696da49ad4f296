package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/conduit-lang/dataservice/internal/web/response"
	"go.uber.org/zap"
)

// Recovery turns a panicking handler into a 500 and logs the panic with its stack.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(panicError(rec)),
					zap.ByteString("stack", debug.Stack()),
				)

				response.RenderError(w, http.StatusInternalServerError, fmt.Errorf("an unexpected error occurred"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// panicError converts a recovered value to an error
func panicError(v interface{}) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
