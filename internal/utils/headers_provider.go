package utils

import "net/http"

//go:generate $MOCKGEN -source=headers_provider.go -destination=mocks/headers_provider_mock.go

// HeadersProvider supplies the headers every outgoing API request should carry.
type HeadersProvider interface {
	// GetDefaultHeaders returns a fresh copy of the default headers.
	GetDefaultHeaders() http.Header
}

// StaticHeadersProvider returns the same browser-like headers for every request.
type StaticHeadersProvider struct {
	// headers is the template copied on each call.
	headers http.Header
}

// NewStaticHeadersProvider creates a provider that sends userAgent and, when origin is set,
// matching Origin and Referer headers.
func NewStaticHeadersProvider(userAgent, origin string) HeadersProvider {
	headers := make(http.Header)
	headers.Set("User-Agent", userAgent)
	headers.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	if origin != "" {
		headers.Set("Origin", origin)
		headers.Set("Referer", origin+"/")
	}

	return &StaticHeadersProvider{headers: headers}
}

// GetDefaultHeaders returns a copy of the configured headers.
func (p *StaticHeadersProvider) GetDefaultHeaders() http.Header {
	return p.headers.Clone()
}
