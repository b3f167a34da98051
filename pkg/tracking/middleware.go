package tracking

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/ports"
)

// RequestIDHeader carries the correlation id of a tracked request.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns the correlation id assigned by Middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Middleware counts every served request as an in-flight call. A
// response status of 400 or above fails the call.
// Each request gets a correlation id, reused from RequestIDHeader if present.
func Middleware(d ports.Dispatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)

			if err := d.Dispatch(ctx, domain.BeginCall()); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				p := recover()
				end := domain.Succeeded(RequestName(r))
				if p != nil || rec.status >= http.StatusBadRequest {
					end = domain.CallError()
				}
				_ = d.Dispatch(context.WithoutCancel(ctx), end)
				if p != nil {
					panic(p)
				}
			}()
			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
