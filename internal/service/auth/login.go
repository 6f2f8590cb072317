package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/scdl-grabber/internal/logger"
)

// waitForUserLogin opens the sign-in dialog and waits until the OAuth token cookie appears.
func (s *ServiceImpl) waitForUserLogin(ctx context.Context) error {
	logger.Info(ctx, "Opening the sign-in page...")
	logger.Debugf(ctx, "Navigating to %s", signInURL)

	randomHumanDelay()

	if err := s.page.Navigate(signInURL); err != nil {
		return fmt.Errorf("failed to open %s: %w", signInURL, err)
	}

	randomHumanDelay()

	s.simulateHumanBehavior(ctx)

	logger.Info(ctx, "")
	logger.Info(ctx, "╔══════════════════════════════════════════════════════════════════╗")
	logger.Info(ctx, "║                      LOGIN INSTRUCTIONS                          ║")
	logger.Info(ctx, "╚══════════════════════════════════════════════════════════════════╝")
	logger.Info(ctx, "")
	logger.Info(ctx, "Please complete the login in the browser:")
	logger.Info(ctx, "")
	logger.Info(ctx, "1. Sign in with e-mail, Google, Apple or Facebook")
	logger.Info(ctx, "2. Solve the captcha if one is shown")
	logger.Info(ctx, "3. Wait until your stream page opens")
	logger.Info(ctx, "4. DO NOT CLOSE THE BROWSER - the token is picked up automatically")
	logger.Info(ctx, "")
	logger.Info(ctx, "Waiting for login to complete...")

	if err := s.waitForLoginComplete(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Login completed successfully!")

	// Give the session a moment to fully establish.
	time.Sleep(sessionEstablishDelay)

	return nil
}

// waitForLoginComplete polls the browser until the auth cookie is set.
func (s *ServiceImpl) waitForLoginComplete(ctx context.Context) error {
	ctx, cancel := context.WithTimeoutCause(ctx, maxLoginWaitTime,
		fmt.Errorf("%w: waited for %v", ErrLoginTimeout, maxLoginWaitTime))
	defer cancel()

	var lastURL string

	for {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}

		pageURL, err := s.currentURL(ctx)
		if err != nil {
			return err
		}

		if pageURL != lastURL {
			logger.Debugf(ctx, "URL changed: %s", pageURL)

			lastURL = pageURL
		}

		if s.pollAuthCookie(ctx) != "" {
			logger.Info(ctx, "Auth cookie detected")

			return nil
		}

		if err = validateLoginURL(pageURL); err != nil {
			return err
		}

		s.simulateHumanBehavior(ctx)
		randomHumanDelay()
	}
}

// validateLoginURL rejects pages outside the sign-in flow.
// about:blank and other host-less pages are tolerated while the browser loads.
func validateLoginURL(currentURL string) error {
	parsed, err := url.Parse(currentURL)
	if err != nil || parsed.Host == "" {
		return nil //nolint:nilerr // Transitional pages have no host.
	}

	host := strings.ToLower(parsed.Hostname())

	for _, domain := range allowedLoginDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return nil
		}
	}

	return fmt.Errorf("%w to: %s", ErrNavigatedAway, currentURL)
}
