package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/oshokin/scdl-grabber/internal/logger"
)

// newLauncher builds a visible browser launcher with a throwaway profile.
// An installed Chrome is preferred; rod downloads Chromium otherwise.
func newLauncher(ctx context.Context, profileDir string) *launcher.Launcher {
	l := launcher.New().
		Headless(false).
		UserDataDir(profileDir)

	if bin, found := launcher.LookPath(); found {
		logger.Debugf(ctx, "Using installed browser at %s", bin)

		return l.Bin(bin)
	}

	logger.Info(ctx, "No installed Chrome found, downloading Chromium")

	return l
}

// initBrowser starts the browser and opens a stealth page.
func (s *ServiceImpl) initBrowser(ctx context.Context) error {
	profileDir, err := os.MkdirTemp("", "scdl-auth-*")
	if err != nil {
		return fmt.Errorf("failed to create browser profile directory: %w", err)
	}

	s.tempDir = profileDir

	controlURL, err := newLauncher(ctx, profileDir).Context(ctx).Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.DebugKV(ctx, "Browser launched", "control_url", controlURL, "profile", profileDir)

	browser := rod.New().ControlURL(controlURL)
	if logger.IsDebugLevel() {
		browser = browser.Trace(true).SlowMotion(browserSlowMotionDelay)
	}

	if err = browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	s.browser = browser

	page, err := stealth.Page(browser)
	if err != nil {
		return fmt.Errorf("failed to open stealth page: %w", err)
	}

	s.page = page

	return nil
}

// currentURL returns the URL of the open page.
// A closed window surfaces as ErrBrowserClosed.
func (s *ServiceImpl) currentURL(ctx context.Context) (pageURL string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf(ctx, "Page info panic recovered: %v", r)

			err = ErrBrowserClosed
		}
	}()

	info, err := s.page.Info()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBrowserClosed, err)
	}

	return info.URL, nil
}

// cleanup closes the browser and removes the throwaway profile.
func (s *ServiceImpl) cleanup(ctx context.Context) {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			logger.Debugf(ctx, "Browser close error: %v", err)
		}
	}

	if s.tempDir == "" {
		return
	}

	// Chrome keeps the profile locked for a moment after exit.
	time.Sleep(browserCleanupDelay)

	if err := os.RemoveAll(s.tempDir); err != nil {
		logger.Debugf(ctx, "Could not remove browser profile %s: %v", s.tempDir, err)
	}
}
