package soundcloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"

	"github.com/samber/lo"

	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

// credentialState is the position of a request in the client_id retry sequence.
type credentialState uint8

const (
	// credentialPrimary uses the client's active client_id.
	credentialPrimary credentialState = iota
	// credentialFallback uses a freshly scraped client_id.
	credentialFallback
	// credentialExhausted means no further credential will be tried.
	credentialExhausted
)

// String returns the state name.
func (s credentialState) String() string {
	switch s {
	case credentialPrimary:
		return "primary"
	case credentialFallback:
		return "fallback"
	case credentialExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// ClientIDSource produces an alternate client_id.
type ClientIDSource func(ctx context.Context) (string, error)

// credentialMachine walks primary -> fallback -> exhausted. One request owns one machine,
// so a request is attempted at most twice.
type credentialMachine struct {
	// state is the current position.
	state credentialState
	// clientID is the credential for the current state.
	clientID string
	// fallbackSource is consulted once on the primary -> fallback transition.
	fallbackSource ClientIDSource
}

func newCredentialMachine(primary string, fallbackSource ClientIDSource) *credentialMachine {
	return &credentialMachine{
		state:          credentialPrimary,
		clientID:       primary,
		fallbackSource: fallbackSource,
	}
}

// ClientID returns the credential to use, or ErrCredentialsExhausted.
func (m *credentialMachine) ClientID() (string, error) {
	if m.state == credentialExhausted {
		return "", ErrCredentialsExhausted
	}

	return m.clientID, nil
}

// State returns the current state.
func (m *credentialMachine) State() credentialState {
	return m.state
}

// Reject records that the current credential was refused and advances the machine.
func (m *credentialMachine) Reject(ctx context.Context) error {
	switch m.state {
	case credentialPrimary:
		fallback, err := m.fallbackSource(ctx)
		if err != nil {
			m.state = credentialExhausted

			return fmt.Errorf("%w: %w", ErrCredentialsExhausted, err)
		}

		if fallback == "" || fallback == m.clientID {
			m.state = credentialExhausted

			return ErrCredentialsExhausted
		}

		m.clientID = fallback
		m.state = credentialFallback

		return nil
	case credentialFallback, credentialExhausted:
		m.state = credentialExhausted

		return ErrCredentialsExhausted
	default:
		m.state = credentialExhausted

		return ErrCredentialsExhausted
	}
}

var (
	//nolint:gochecknoglobals // Immutable pre-compiled pattern.
	scriptAssetPattern = regexp.MustCompile(`<script[^>]+src="(https?://[^"]+\.js)"`)

	//nolint:gochecknoglobals // Immutable pre-compiled pattern.
	clientIDPattern = regexp.MustCompile(`client_id\s*[:=]\s*"?(?P<clientID>[a-zA-Z0-9]{32})`)
)

// ScrapeClientID extracts a public client_id from the web application's script bundles.
// Later bundles are checked first because the app config ships at the end of the page.
func (c *ClientImpl) ScrapeClientID(ctx context.Context) (string, error) {
	logger.Info(ctx, "Obtaining a fresh client_id from the web app")

	page, err := c.fetchText(ctx, c.webBaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to load web app: %w", err)
	}

	assets := lo.Map(scriptAssetPattern.FindAllStringSubmatch(page, -1), func(match []string, _ int) string {
		return match[1]
	})

	slices.Reverse(assets)

	for _, asset := range lo.Slice(assets, 0, maxScriptAssets) {
		script, fetchErr := c.fetchText(ctx, asset)
		if fetchErr != nil {
			logger.Debugf(ctx, "Skipping script %s: %v", asset, fetchErr)

			continue
		}

		if clientID := utils.ExtractNamedGroup(clientIDPattern, "clientID", script); clientID != "" {
			logger.Debugf(ctx, "Found client_id in %s", asset)

			return clientID, nil
		}
	}

	return "", ErrClientIDNotFound
}

func (c *ClientImpl) fetchText(ctx context.Context, rawURL string) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", err
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}

	defer response.Body.Close() //nolint:errcheck // Read-only body.

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
