// Package http provides http.RoundTripper decorators used by the API client:
// debug dumps with credential redaction and default header injection.
package http
