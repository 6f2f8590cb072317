package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/scdl-grabber/internal/app"
)

var (
	//nolint:gochecknoglobals // Cobra command requires a global definition.
	authCmd = &cobra.Command{
		Use:   "auth",
		Short: "Authentication management commands",
		Long: `Manage authentication for SoundCloud.

Use 'auth login' to log in via browser and automatically extract your OAuth token.`,
	}

	//nolint:gochecknoglobals // Cobra command requires a global definition.
	authLoginCmd = &cobra.Command{
		Use:   "login",
		Short: "Login to SoundCloud and extract the OAuth token",
		Long: `Opens a browser window for you to log in to SoundCloud.

The login process:
1. Browser opens at https://soundcloud.com/signin
2. Accept cookies if prompted
3. Sign in with email, Google, Apple or Facebook
4. Wait until the SoundCloud home page is shown

After successful login, the oauth_token cookie is read from the browser
and saved to the configuration file as auth_token.

The token unlocks your own likes and private playlists, for example:
scdl-grabber me --likes`,
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteAuthLoginCommand(cmd.Context(), appConfig)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	authCmd.AddCommand(authLoginCmd)
	rootCmd.AddCommand(authCmd)
}
