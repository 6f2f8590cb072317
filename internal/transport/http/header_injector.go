package http

import (
	"net/http"

	"github.com/oshokin/scdl-grabber/internal/utils"
)

// HeaderInjector is an http.RoundTripper that fills in default headers missing from a request.
type HeaderInjector struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
	// headersProvider supplies the defaults.
	headersProvider utils.HeadersProvider
}

// NewHeaderInjector wraps next so that every request carries the provider's default headers.
// Headers already set on the request win.
func NewHeaderInjector(next http.RoundTripper, headersProvider utils.HeadersProvider) http.RoundTripper {
	return &HeaderInjector{
		next:            next,
		headersProvider: headersProvider,
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *HeaderInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	defaults := t.headersProvider.GetDefaultHeaders()

	// RoundTrippers must not modify the caller's request.
	var cloned *http.Request

	for name, values := range defaults {
		if req.Header.Get(name) != "" || len(values) == 0 {
			continue
		}

		if cloned == nil {
			cloned = req.Clone(req.Context())
		}

		cloned.Header.Set(name, values[0])
	}

	if cloned == nil {
		return t.next.RoundTrip(req)
	}

	return t.next.RoundTrip(cloned)
}
