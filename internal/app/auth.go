package app

import (
	"context"

	"github.com/oshokin/scdl-grabber/internal/config"
	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/service/auth"
)

// ExecuteAuthLoginCommand executes the auth login command.
// It opens a browser, waits for the user to log in, extracts the token,
// and saves it to the configuration file.
func ExecuteAuthLoginCommand(ctx context.Context, cfg *config.Config) {
	logger.Info(ctx, "Starting authentication process")

	// Create browser authentication service.
	authService, err := auth.NewService(cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize authentication service: %v", err)
		return
	}

	// Perform login and extract token.
	token, err := authService.LoginAndExtractToken(ctx)
	if err != nil {
		logger.Fatalf(ctx, "Authentication failed: %v", err)
		return
	}

	// Update configuration with new token.
	cfg.AuthToken = token

	// Save configuration to file.
	if err = config.SaveConfig(cfg); err != nil {
		logger.Fatalf(ctx, "Failed to save configuration: %v", err)
		return
	}

	// Print success message.
	logger.Info(ctx, "Configuration updated successfully!")
	logger.Info(ctx, "Authentication complete! Original files and your private content are now available.")
	logger.Info(ctx, "")
	logger.Info(ctx, "Try downloading your likes:")
	logger.Info(ctx, "scdl-grabber me --likes")
	logger.Info(ctx, "")
	logger.Info(ctx, "Or a playlist:")
	logger.Info(ctx, "scdl-grabber https://soundcloud.com/user/sets/playlist")
}
