package soundcloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/oshokin/scdl-grabber/internal/logger"
)

// requestOptions tune a single API call.
type requestOptions struct {
	// skipCredentialRetry disables the client_id fallback on 401/403,
	// for endpoints where those codes describe entitlement rather than credentials.
	skipCredentialRetry bool
}

// fetchJSON fetches JSON from the specified API URI.
//
//nolint:revive // Has no sense, it's cause Go doesn't allow struct methods to be generic.
func fetchJSON[T any](c *ClientImpl, ctx context.Context, uri string, query url.Values) (*FetchJSONResult[T], error) {
	return fetchJSONWithOptions[T](c, ctx, c.apiURL(uri), query, requestOptions{})
}

// fetchJSONWithOptions fetches JSON from an absolute URL, adding the client_id and,
// when present, the OAuth token.
//
//nolint:revive // Has no sense, it's cause Go doesn't allow struct methods to be generic.
func fetchJSONWithOptions[T any](
	c *ClientImpl,
	ctx context.Context,
	rawURL string,
	query url.Values,
	options requestOptions,
) (*FetchJSONResult[T], error) {
	response, err := c.doAPIRequest(ctx, rawURL, query, options)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close() //nolint:errcheck // Read-only body.

	if response.StatusCode != http.StatusOK {
		return &FetchJSONResult[T]{
			StatusCode: response.StatusCode,
		}, fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	var result T
	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return &FetchJSONResult[T]{
			StatusCode: response.StatusCode,
		}, fmt.Errorf("failed to decode response: %w", err)
	}

	return &FetchJSONResult[T]{
		Data:       &result,
		StatusCode: response.StatusCode,
	}, nil
}

// doAPIRequest issues a GET against the API. A 401 or 403 swaps in an alternate client_id once;
// a successful swap becomes the client's active client_id.
func (c *ClientImpl) doAPIRequest(
	ctx context.Context,
	rawURL string,
	query url.Values,
	options requestOptions,
) (*http.Response, error) {
	machine := newCredentialMachine(c.ClientID(), c.clientIDSource)

	if machine.clientID == "" {
		if err := machine.Reject(ctx); err != nil {
			return nil, err
		}

		c.SetClientID(ctx, machine.clientID)
	}

	for {
		clientID, err := machine.ClientID()
		if err != nil {
			return nil, err
		}

		response, err := c.getWithClientID(ctx, rawURL, query, clientID)
		if err != nil {
			return nil, err
		}

		if options.skipCredentialRetry || !isCredentialRejection(response.StatusCode) {
			return response, nil
		}

		response.Body.Close() //nolint:errcheck,gosec // Discarded response.

		logger.Warnf(ctx, "API refused client_id with status %d (%s credential)",
			response.StatusCode, machine.State())

		if err = machine.Reject(ctx); err != nil {
			return nil, err
		}

		c.SetClientID(ctx, machine.clientID)
	}
}

func (c *ClientImpl) getWithClientID(
	ctx context.Context,
	rawURL string,
	query url.Values,
	clientID string,
) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	merged := request.URL.Query()
	for key, values := range query {
		merged[key] = values
	}

	merged.Set(clientIDQueryParam, clientID)
	request.URL.RawQuery = merged.Encode()

	c.authorize(request)

	return c.httpClient.Do(request)
}

func (c *ClientImpl) authorize(request *http.Request) {
	if token := c.cfg.AuthToken; token != "" {
		request.Header.Set(authorizationHeader, authorizationSchema+token)
	}
}

func (c *ClientImpl) apiURL(uri string) string {
	return strings.TrimRight(c.apiBaseURL, "/") + "/" + strings.TrimLeft(uri, "/")
}

func isCredentialRejection(statusCode int) bool {
	return statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden
}
