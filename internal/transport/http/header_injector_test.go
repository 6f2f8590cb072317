package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/scdl-grabber/internal/utils"
	mock_utils "github.com/oshokin/scdl-grabber/internal/utils/mocks"
)

// TestNewHeaderInjector tests the NewHeaderInjector function.
func TestNewHeaderInjector(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)

	injector := NewHeaderInjector(http.DefaultTransport, mock_utils.NewMockHeadersProvider(ctrl))

	assert.NotNil(t, injector)
	assert.Implements(t, (*http.RoundTripper)(nil), injector)
}

// TestHeaderInjector_RoundTrip tests header defaults and precedence of explicit headers.
func TestHeaderInjector_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		requestUserAgent  string
		expectedUserAgent string
	}{
		{
			name:              "missing user agent is filled in",
			expectedUserAgent: "TestAgent/1.0",
		},
		{
			name:              "explicit user agent wins",
			requestUserAgent:  "ExistingAgent/1.0",
			expectedUserAgent: "ExistingAgent/1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)

			defaults := make(http.Header)
			defaults.Set("User-Agent", "TestAgent/1.0")
			defaults.Set("Origin", "https://soundcloud.com")

			mockProvider := mock_utils.NewMockHeadersProvider(ctrl)
			mockProvider.EXPECT().GetDefaultHeaders().Return(defaults).Times(1)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.expectedUserAgent, r.Header.Get("User-Agent"))
				assert.Equal(t, "https://soundcloud.com", r.Header.Get("Origin"))
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			req, err := http.NewRequest(http.MethodGet, server.URL, nil) //nolint:noctx // Test code, context not needed.
			require.NoError(t, err)

			if tt.requestUserAgent != "" {
				req.Header.Set("User-Agent", tt.requestUserAgent)
			}

			resp, err := NewHeaderInjector(http.DefaultTransport, mockProvider).RoundTrip(req)
			require.NoError(t, err)

			defer resp.Body.Close() //nolint:errcheck // Test cleanup, error is not critical.

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Empty(t, req.Header.Get("Origin"), "caller request must stay untouched")
		})
	}
}

// TestHeaderInjector_RoundTrip_NilRequest tests the nil request guard.
func TestHeaderInjector_RoundTrip_NilRequest(t *testing.T) {
	t.Parallel()

	injector := NewHeaderInjector(http.DefaultTransport, utils.NewStaticHeadersProvider("Agent/1.0", ""))

	resp, err := injector.RoundTrip(nil) //nolint:bodyclose // Nothing to close on error.
	require.ErrorIs(t, err, ErrNilRequest)
	assert.Nil(t, resp)
}
