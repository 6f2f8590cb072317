package app

import (
	"context"
	"errors"
	"fmt"

	soundcloud_client "github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/config"
	"github.com/oshokin/scdl-grabber/internal/logger"
	soundcloud_service "github.com/oshokin/scdl-grabber/internal/service/soundcloud"
)

var (
	// ErrInvalidAuthToken indicates that the configured auth token was refused.
	ErrInvalidAuthToken = errors.New("auth token is invalid, log in again with 'scdl-grabber auth login'")
	// ErrRunPanicked indicates that the download run was aborted by a panic.
	ErrRunPanicked = errors.New("download run aborted by panic")
)

// ExecuteRootCommand is the entry point for the application.
// It initializes the client, validates credentials, sets up the service components
// and downloads the provided references. The summary is always printed.
func ExecuteRootCommand(ctx context.Context, cfg *config.Config, references []string) error {
	client, err := soundcloud_client.NewClient(cfg,
		soundcloud_client.WithClientIDChangedFunc(func(ctx context.Context, clientID string) {
			cfg.ClientID = clientID

			if saveErr := config.SaveConfig(cfg); saveErr != nil {
				logger.Warnf(ctx, "Failed to save the new client_id: %v", saveErr)
			}
		}))
	if err != nil {
		return fmt.Errorf("failed to initialize client: %w", err)
	}

	if err = ensureCredentials(ctx, cfg, client); err != nil {
		return err
	}

	templateManager, err := soundcloud_service.NewTemplateManager(cfg)
	if err != nil {
		return err
	}

	encoder := soundcloud_service.NewFFmpegEncoder(cfg)

	s := soundcloud_service.NewService(
		cfg,
		client,
		soundcloud_service.NewReferenceNormalizer(client),
		templateManager,
		soundcloud_service.NewTagProcessor(encoder),
		encoder,
	)

	return runDownloads(ctx, s, references)
}

// runDownloads downloads references and always prints the summary.
// A panic during the run is reported as an error so the process exits non-zero.
func runDownloads(ctx context.Context, s soundcloud_service.Service, references []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "Panic recovered: %v", r)

			err = fmt.Errorf("%w: %v", ErrRunPanicked, r)
		}

		s.PrintDownloadSummary(ctx)
	}()

	return s.DownloadURLs(ctx, references)
}

// ensureCredentials replaces an invalid client_id and rejects an invalid auth token.
func ensureCredentials(ctx context.Context, cfg *config.Config, client *soundcloud_client.ClientImpl) error {
	valid, err := client.IsClientIDValid(ctx)
	if err != nil {
		logger.Warnf(ctx, "Failed to check client_id: %v", err)
	}

	if !valid {
		if cfg.ClientID != "" {
			logger.Warn(ctx, "Invalid client_id specified, using a dynamically fetched client_id")
		}

		clientID, scrapeErr := client.ScrapeClientID(ctx)
		if scrapeErr != nil {
			return fmt.Errorf("failed to obtain a client_id: %w", scrapeErr)
		}

		client.SetClientID(ctx, clientID)
	}

	if cfg.AuthToken == "" {
		return nil
	}

	valid, err = client.IsAuthTokenValid(ctx)
	if err != nil {
		return fmt.Errorf("failed to check auth token: %w", err)
	}

	if !valid {
		return ErrInvalidAuthToken
	}

	return nil
}
