package http

import "time"

const (
	// DefaultTimeout is the default timeout for API requests.
	// Media transfers use their own client without a global timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent mimics a desktop browser, which the public web API expects.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36" //nolint: lll

	// DefaultMaxLogLength caps the size of a request or response dump in the debug log.
	DefaultMaxLogLength = 64 * 1024

	// redactedValue replaces credentials in debug dumps.
	redactedValue = "REDACTED"
)
