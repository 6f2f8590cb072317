package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/scdl-grabber/internal/config"
)

func TestNewService(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		AuthToken: "test_token",
	}

	service, err := NewService(cfg)

	require.NoError(t, err)
	assert.NotNil(t, service)
	assert.Equal(t, cfg, service.cfg)
	assert.Nil(t, service.browser)
	assert.Nil(t, service.page)
}

func TestValidateLoginURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		url         string
		expectError bool
	}{
		{
			name:        "sign-in page",
			url:         "https://soundcloud.com/signin",
			expectError: false,
		},
		{
			name:        "secure subdomain",
			url:         "https://secure.soundcloud.com/web-auth?client_id=x",
			expectError: false,
		},
		{
			name:        "google identity provider",
			url:         "https://accounts.google.com/o/oauth2/auth",
			expectError: false,
		},
		{
			name:        "blank page while loading",
			url:         "about:blank",
			expectError: false,
		},
		{
			name:        "lookalike domain",
			url:         "https://soundcloud.com.evil.example/signin",
			expectError: true,
		},
		{
			name:        "different domain",
			url:         "https://google.com",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateLoginURL(tt.url)

			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNavigatedAway)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSentinelErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		wants string
	}{
		{
			name:  "ErrLoginTimeout",
			err:   ErrLoginTimeout,
			wants: "login timeout exceeded",
		},
		{
			name:  "ErrBrowserClosed",
			err:   ErrBrowserClosed,
			wants: "browser was closed by user",
		},
		{
			name:  "ErrNavigatedAway",
			err:   ErrNavigatedAway,
			wants: "user navigated away from login flow",
		},
		{
			name:  "ErrAuthCookieNotFound",
			err:   ErrAuthCookieNotFound,
			wants: "oauth_token cookie not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Error(t, tt.err)
			assert.Equal(t, tt.wants, tt.err.Error())
		})
	}
}

func TestConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://soundcloud.com/signin", signInURL)
	assert.Equal(t, "oauth_token", authCookieName)
	assert.Equal(t, 10, int(maxLoginWaitTime.Minutes()))
}

func TestServiceImpl_Cleanup(t *testing.T) {
	t.Parallel()

	service := &ServiceImpl{
		browser: nil,
	}

	assert.NotPanics(t, func() {
		service.cleanup(context.Background())
	})
}

func TestServiceImpl_CleanupRemovesProfile(t *testing.T) {
	t.Parallel()

	profileDir := filepath.Join(t.TempDir(), "profile")
	require.NoError(t, os.MkdirAll(filepath.Join(profileDir, "Default"), 0o750))

	service := &ServiceImpl{tempDir: profileDir}
	service.cleanup(context.Background())

	assert.NoDirExists(t, profileDir)
}

func TestFindAuthCookie(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cookies   []*proto.NetworkCookie
		wantToken string
		wantFound bool
	}{
		{
			name: "token present",
			cookies: []*proto.NetworkCookie{
				{Name: "sc_anonymous_id", Value: "anon", Domain: ".soundcloud.com"},
				{Name: "oauth_token", Value: "2-123-abc", Domain: ".soundcloud.com"},
			},
			wantToken: "2-123-abc",
			wantFound: true,
		},
		{
			name:    "empty token is not a login",
			cookies: []*proto.NetworkCookie{{Name: "oauth_token", Value: ""}},
		},
		{
			name:    "nil entries",
			cookies: []*proto.NetworkCookie{nil},
		},
		{
			name: "no cookies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, found := findAuthCookie(tt.cookies)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}
