package soundcloud

import "errors"

var (
	// ErrUnexpectedHTTPStatus indicates an unexpected HTTP status code was received.
	ErrUnexpectedHTTPStatus = errors.New("unexpected HTTP status")
	// ErrUnknownResourceKind indicates that a resolved payload has a kind this client does not model.
	ErrUnknownResourceKind = errors.New("unknown resource kind")
	// ErrCredentialsExhausted indicates that both the primary and the fallback client_id were refused.
	ErrCredentialsExhausted = errors.New("client_id rejected and no alternate credential left")
	// ErrClientIDNotFound indicates that no client_id could be scraped from the web app.
	ErrClientIDNotFound = errors.New("could not find a client_id in the web app scripts")
	// ErrAuthTokenRequired indicates an endpoint that needs an OAuth token was called without one.
	ErrAuthTokenRequired = errors.New("this operation requires an auth token")
	// ErrNoSearchResults indicates that a search returned nothing.
	ErrNoSearchResults = errors.New("search returned no results")
	// ErrOriginalNotAvailable indicates that the track has no original file the caller may download.
	ErrOriginalNotAvailable = errors.New("original file is not available")
	// ErrNoDownloadsLeft indicates that the original file's download quota is used up.
	ErrNoDownloadsLeft = errors.New("the original file has no downloads left")
	// ErrMediaNotFound indicates that a media URL answered 404.
	ErrMediaNotFound = errors.New("media not found")
	// ErrRateLimited indicates HTTP 429 from the API.
	ErrRateLimited = errors.New("rate limited")
	// ErrStreamURLUnavailable indicates that a transcoding could not be turned into a stream URL.
	ErrStreamURLUnavailable = errors.New("unable to get transcoding m3u8")
)
