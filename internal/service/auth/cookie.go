package auth

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
	"github.com/samber/lo"

	"github.com/oshokin/scdl-grabber/internal/logger"
)

// findAuthCookie returns the non-empty OAuth token among cookies.
func findAuthCookie(cookies []*proto.NetworkCookie) (string, bool) {
	cookie, found := lo.Find(cookies, func(item *proto.NetworkCookie) bool {
		return item != nil && item.Name == authCookieName && item.Value != ""
	})
	if !found {
		return "", false
	}

	return cookie.Value, true
}

// pollAuthCookie reads the landing page cookies and reports the token once it is set.
func (s *ServiceImpl) pollAuthCookie(ctx context.Context) (token string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf(ctx, "Cookie poll panic recovered: %v", r)

			token = ""
		}
	}()

	cookies, err := s.page.Cookies([]string{homeURL})
	if err != nil {
		return ""
	}

	token, _ = findAuthCookie(cookies)

	return token
}

// extractToken reads the OAuth token after the sign-in finished.
func (s *ServiceImpl) extractToken(ctx context.Context) (string, error) {
	cookies, err := s.page.Cookies([]string{homeURL})
	if err != nil {
		return "", fmt.Errorf("failed to read cookies: %w", err)
	}

	logger.Debugf(ctx, "Browser holds %d cookies for %s", len(cookies), homeURL)

	token, found := findAuthCookie(cookies)
	if !found {
		names := lo.Map(cookies, func(item *proto.NetworkCookie, _ int) string {
			return item.Name + "@" + item.Domain
		})
		logger.Errorf(ctx, "Cookies present instead: %v", names)

		return "", ErrAuthCookieNotFound
	}

	logger.Debugf(ctx, "Found %s cookie, %d characters", authCookieName, len(token))

	return token, nil
}
