package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/oshokin/scdl-grabber/internal/config"
	"github.com/oshokin/scdl-grabber/internal/logger"
)

const (
	homeURL        = "https://soundcloud.com/"
	signInURL      = "https://soundcloud.com/signin"
	platformDomain = "soundcloud.com"

	// authCookieName holds the OAuth token once the sign-in completes.
	authCookieName = "oauth_token"

	maxLoginWaitTime      = 10 * time.Minute
	sessionEstablishDelay = 2 * time.Second

	// Pacing of the simulated user between cookie polls.
	humanBehaviorMinDelay  = 500 * time.Millisecond
	humanBehaviorMaxDelay  = 2 * time.Second
	mouseMovementsPerCheck = 2
	mouseMovementMinDelay  = 100 * time.Millisecond
	mouseMovementMaxDelay  = 400 * time.Millisecond

	// A scroll happens on one poll in scrollProbability, by
	// scrollMinAmount to scrollMaxAmount pixels.
	scrollProbability = 3
	scrollMinAmount   = -100
	scrollMaxAmount   = 200

	browserSlowMotionDelay = 200 * time.Millisecond
	browserCleanupDelay    = 500 * time.Millisecond
)

// allowedLoginDomains are the hosts the sign-in flow may pass through,
// including the social identity providers offered on the sign-in dialog.
//
//nolint:gochecknoglobals // Immutable lookup list.
var allowedLoginDomains = []string{
	platformDomain,
	"sndcdn.com",
	"accounts.google.com",
	"appleid.apple.com",
	"facebook.com",
}

var (
	// ErrLoginTimeout is returned when the sign-in is not finished in time.
	ErrLoginTimeout = errors.New("login timeout exceeded")
	// ErrBrowserClosed is returned when the browser window goes away.
	ErrBrowserClosed = errors.New("browser was closed by user")
	// ErrNavigatedAway is returned when the page leaves the sign-in hosts.
	ErrNavigatedAway = errors.New("user navigated away from login flow")
	// ErrAuthCookieNotFound is returned when the session carries no OAuth token.
	ErrAuthCookieNotFound = errors.New("oauth_token cookie not found")
)

// Service obtains an OAuth token through an interactive browser sign-in.
type Service interface {
	// LoginAndExtractToken blocks until the user signs in, then returns the token.
	LoginAndExtractToken(ctx context.Context) (string, error)
}

// ServiceImpl drives a stealth browser through the web sign-in.
type ServiceImpl struct {
	cfg     *config.Config
	browser *rod.Browser
	page    *rod.Page
	// tempDir stores the temporary profile directory for cleanup.
	tempDir string
}

// NewService creates a new browser authentication service.
func NewService(cfg *config.Config) (*ServiceImpl, error) {
	return &ServiceImpl{
		cfg: cfg,
	}, nil
}

// LoginAndExtractToken opens a browser, waits for user to log in, then extracts the auth token.
func (s *ServiceImpl) LoginAndExtractToken(ctx context.Context) (string, error) {
	logger.Info(ctx, "Starting browser-based authentication")

	// A partially started browser is torn down too.
	defer s.cleanup(ctx)

	if err := s.initBrowser(ctx); err != nil {
		return "", fmt.Errorf("failed to initialize browser: %w", err)
	}

	if err := s.waitForUserLogin(ctx); err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}

	token, err := s.extractToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract token: %w", err)
	}

	logger.Info(ctx, "Authentication token extracted successfully")

	return token, nil
}
