package http

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"regexp"
	"time"

	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

// LogTransport is an http.RoundTripper that dumps requests and responses at debug level.
type LogTransport struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
	// maxLogLength is the maximum length of a logged dump.
	maxLogLength uint64
}

// Static error definitions for better error handling.
var (
	// ErrNilRequest indicates that the HTTP request is nil.
	ErrNilRequest = errors.New("request is nil")
)

var (
	// credentialPatterns match secrets that must never reach the log.
	//nolint:gochecknoglobals // Immutable pre-compiled patterns.
	credentialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(client_id=)[^&\s]+`),
		regexp.MustCompile(`(?i)(authorization:\s*oauth\s+)\S+`),
		regexp.MustCompile(`(oauth_token=)[^;&\s]+`),
	}
)

// NewLogTransport wraps next with debug dumps. A zero maxLogLength uses DefaultMaxLogLength.
func NewLogTransport(next http.RoundTripper, maxLogLength uint64) http.RoundTripper {
	if maxLogLength == 0 {
		maxLogLength = DefaultMaxLogLength
	}

	return &LogTransport{
		next:         next,
		maxLogLength: maxLogLength,
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LogTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	if !logger.IsDebugLevel() {
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()

	requestDump := t.dumpRequest(req)
	startTime := time.Now()

	resp, err := t.next.RoundTrip(req)

	duration := time.Since(startTime)

	if err != nil {
		logger.Debugf(ctx, "Request failed: %s %s | Error: %v", req.Method, Redact(req.URL.String()), err)

		return nil, err
	}

	responseDump := t.dumpResponse(resp)

	logger.Debugf(ctx, "%s %s [%d] %s\nRequest: %s\nResponse: %s",
		req.Method, req.URL.Path, resp.StatusCode, duration, requestDump, responseDump)

	return resp, nil
}

// Redact masks client IDs and OAuth tokens in value.
func Redact(value string) string {
	for _, pattern := range credentialPatterns {
		value = pattern.ReplaceAllString(value, "${1}"+redactedValue)
	}

	return value
}

func (t *LogTransport) dumpRequest(req *http.Request) string {
	dump, err := httputil.DumpRequestOut(req, req.Body != nil && req.GetBody != nil)
	if err != nil {
		return err.Error()
	}

	return t.truncate(Redact(string(dump)))
}

func (t *LogTransport) dumpResponse(resp *http.Response) string {
	dump, err := httputil.DumpResponse(resp, utils.IsTextContentType(resp.Header.Get("Content-Type")))
	if err != nil {
		return err.Error()
	}

	return t.truncate(Redact(string(dump)))
}

func (t *LogTransport) truncate(data string) string {
	if uint64(len(data)) > t.maxLogLength {
		return data[:t.maxLogLength] + "... [truncated]"
	}

	return data
}
