package tracking

import (
	"context"
	"net/http"
	"strings"

	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/ports"
)

// Transport is an http.RoundTripper counting every request as an
// in-flight call. Responses below 400 complete the call; transport errors
// and responses of 400 or above fail it.
type Transport struct {
	// Base performs the request; http.DefaultTransport when nil.
	Base http.RoundTripper
	// Dispatcher receives the signals.
	Dispatcher ports.Dispatcher
	// Name names the operation of a request; RequestName when nil.
	Name func(*http.Request) string
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := t.Dispatcher.Dispatch(ctx, domain.BeginCall()); err != nil {
		return nil, err
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)

	end := domain.CallError()
	if err == nil && resp.StatusCode < http.StatusBadRequest {
		end = domain.Succeeded(t.name(req))
	}
	if derr := t.Dispatcher.Dispatch(context.WithoutCancel(ctx), end); derr != nil && err == nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, derr
	}
	return resp, err
}

func (t *Transport) name(req *http.Request) string {
	if t.Name != nil {
		return t.Name(req)
	}
	return RequestName(req)
}

// RequestName derives an operation name from the method and first path
// segment, e.g. GET /media/usb0 is GET_MEDIA.
func RequestName(req *http.Request) string {
	segment := strings.Trim(req.URL.Path, "/")
	if i := strings.IndexByte(segment, '/'); i >= 0 {
		segment = segment[:i]
	}
	if segment == "" {
		return strings.ToUpper(req.Method)
	}
	segment = strings.NewReplacer("-", "_", ".", "_").Replace(segment)
	return strings.ToUpper(req.Method + "_" + segment)
}
