package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/scdl-grabber/internal/app"
	"github.com/oshokin/scdl-grabber/internal/config"
	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/version"
)

// errMissingReference is returned when neither a reference nor --search is given.
var errMissingReference = errors.New("requires at least one URL, permalink or links file, or --search")

var (
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Config

	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "scdl-grabber [flags] {urls}",
		Short: "Download tracks, playlists, or whole user collections from SoundCloud.",
		Long: `SCDL Grabber is a CLI tool for downloading audio from SoundCloud.
A reference may be a full URL, a bare permalink such as "artist/track",
the word "me" for the authenticated account, or a .txt file with one reference per line.

It supports downloading:
- Individual tracks, preferring the original upload when it is offered
- Playlists and albums, with offsets, limits and archive synchronization
- A user's likes, comments, uploads, reposts, playlists or whole stream

Files are tagged with title, artist, genre, album, track number and cover art.`,
		Version:          version.Full(),
		Args:             validateReferences,
		PersistentPreRun: initConfig,
		RunE: func(cmd *cobra.Command, references []string) error {
			if err := bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
				return fmt.Errorf("failed to parse flags: %w", err)
			}

			logger.SetLevel(appConfig.ParsedLogLevel)

			// Usage is only useful for argument mistakes, not for download failures.
			cmd.SilenceUsage = true

			return app.ExecuteRootCommand(cmd.Context(), appConfig, references)
		},
	}
)

// Execute executes the root command and exits non-zero when it fails.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	result := make(chan error, 1)

	go func() {
		result <- rootCmd.ExecuteContext(ctx)
	}()

	// An interrupt cancels ctx; the command still gets to clean up its part files.
	err := <-result

	stop()

	_ = logger.Logger().Sync()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&configFilenameFromFlag,
		"config",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			config.DefaultConfigFilename))

	registerSelectionFlags(rootCmd.Flags())
	registerOutputFlags(rootCmd.Flags())
	registerFormatFlags(rootCmd.Flags())
	registerTaggingFlags(rootCmd.Flags())
	registerAccessFlags(rootCmd.Flags())
}

func registerSelectionFlags(flags *pflag.FlagSet) {
	flags.StringP("search", "s", "", "search for a track and download the first result.")
	flags.Int64P("offset", "o", 1, "start downloading a playlist or collection from this 1-based position.")
	flags.Int64P("limit", "n", 0, "download only the n most recently created tracks of a playlist.")
	flags.BoolP("likes", "f", false, "download all tracks liked by the user.")
	flags.BoolP("commented", "C", false, "download all tracks commented by the user.")
	flags.BoolP("uploads", "t", false, "download all tracks uploaded by the user.")
	flags.BoolP("all", "a", false, "download every track and playlist reposted or uploaded by the user.")
	flags.BoolP("playlists", "p", false, "download all playlists of the user.")
	flags.BoolP("reposts", "r", false, "download all tracks and playlists reposted by the user.")
	flags.Bool("no-playlist", false, "skip playlists found while downloading a collection.")
	flags.Bool("strict-playlist", false, "abort a playlist or collection when one of its tracks fails.")
}

func registerOutputFlags(flags *pflag.FlagSet) {
	flags.String("path", "", "directory to save downloaded files (the path will be created if it doesn't exist).")
	flags.String("name-format", "", "filename template for standalone tracks, or '-' to stream to stdout.")
	flags.String("playlist-name-format", "", "filename template for playlist tracks.")
	flags.Bool("no-playlist-folder", false, "save playlist tracks into the output directory itself.")
	flags.String("download-archive", "", "record downloaded track IDs in this file and skip them next time.")
	flags.String("sync", "", "synchronize a playlist with this archive file, deleting tracks no longer listed.")
	flags.BoolP("continue", "c", false, "skip tracks whose file already exists instead of failing.")
	flags.Bool("overwrite", false, "replace tracks whose file already exists.")
	flags.Bool("force-metadata", false, "rewrite tags of tracks whose file already exists.")
	flags.Bool("remove", false, "delete audio files in the target directories that were not part of this run.")
	flags.String("min-size", "", "skip tracks smaller than this size, for example: 1MB.")
	flags.String("max-size", "", "skip tracks larger than this size, for example: 200MB.")
	flags.String("speed-limit", "", "set download speed limit, for example: 500 kbps, 1 mbps, 1.5 mbps.")
	flags.Bool("hide-progress", false, "hide the download progress bar.")
}

func registerFormatFlags(flags *pflag.FlagSet) {
	flags.Bool("onlymp3", false, "download only MP3 streams.")
	flags.Bool("opus", false, "prefer Opus streams over AAC and MP3.")
	flags.Bool("no-original", false, "never download the original uploaded file.")
	flags.Bool("only-original", false, "download only the original uploaded file, skipping tracks that lack one.")
	flags.Bool("flac", false, "convert lossless originals (WAV, AIFF) to FLAC.")
}

func registerTaggingFlags(flags *pflag.FlagSet) {
	flags.Bool("addtofile", false, "prefix filenames with the uploader name when it is missing from the title.")
	flags.Bool("addtimestamp", false, "prefix filenames with the upload timestamp.")
	flags.Bool("extract-artist", false, "take artist and title from 'Artist - Title' track names.")
	flags.Bool("original-art", false, "embed the original artwork instead of the 500x500 variant.")
	flags.Bool("original-name", false, "keep the original filename of downloaded originals.")
	flags.Bool("original-metadata", false, "leave downloaded files untagged.")
	flags.Bool("add-description", false, "save the track description next to the audio file.")
	flags.Bool("no-album-tag", false, "do not write the playlist title as the album tag.")
}

func registerAccessFlags(flags *pflag.FlagSet) {
	flags.String("auth-token", "", "OAuth token of your SoundCloud account.")
	flags.String("client-id", "", "public client_id to use instead of the saved or scraped one.")
	flags.String("ffmpeg-path", "", "path to the ffmpeg binary.")
	flags.String("log-level", "", "log level: debug, info, warn, error.")
	flags.String("log-file", "", "also write logs to this rotating file.")
}

// validateReferences requires a reference unless a search query was given.
func validateReferences(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return nil
	}

	if search, _ := cmd.Flags().GetString("search"); search != "" {
		return nil
	}

	return errMissingReference
}

func initConfig(cmd *cobra.Command, _ []string) {
	var err error

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
		appConfig.LogFile = logFile
	}

	if appConfig.LogFile != "" {
		logger.SetLogger(logger.NewWithFile(nil, appConfig.LogFile))
	}

	if level, ok := logger.ParseLogLevel(appConfig.LogLevel); ok {
		logger.SetLevel(level)
	}
}

//nolint:funlen,gocognit,cyclop // One assignment per flag.
func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	bindString(flags, "search", &cfg.Search)
	bindInt64(flags, "offset", &cfg.Offset)
	bindInt64(flags, "limit", &cfg.Limit)
	bindBool(flags, "likes", &cfg.Likes)
	bindBool(flags, "commented", &cfg.Commented)
	bindBool(flags, "uploads", &cfg.Uploads)
	bindBool(flags, "all", &cfg.All)
	bindBool(flags, "playlists", &cfg.Playlists)
	bindBool(flags, "reposts", &cfg.Reposts)
	bindBool(flags, "no-playlist", &cfg.NoPlaylist)
	bindBool(flags, "strict-playlist", &cfg.StrictPlaylist)

	bindString(flags, "path", &cfg.OutputPath)
	bindString(flags, "name-format", &cfg.NameFormat)
	bindString(flags, "playlist-name-format", &cfg.PlaylistNameFormat)
	bindBool(flags, "no-playlist-folder", &cfg.NoPlaylistFolder)
	bindString(flags, "download-archive", &cfg.DownloadArchive)
	bindString(flags, "sync", &cfg.SyncArchive)
	bindBool(flags, "continue", &cfg.Continue)
	bindBool(flags, "overwrite", &cfg.Overwrite)
	bindBool(flags, "force-metadata", &cfg.ForceMetadata)
	bindBool(flags, "remove", &cfg.RemoveUnlisted)
	bindString(flags, "min-size", &cfg.MinSize)
	bindString(flags, "max-size", &cfg.MaxSize)
	bindString(flags, "speed-limit", &cfg.DownloadSpeedLimit)
	bindBool(flags, "hide-progress", &cfg.HideProgress)

	bindBool(flags, "onlymp3", &cfg.OnlyMP3)
	bindBool(flags, "opus", &cfg.PreferOpus)
	bindBool(flags, "no-original", &cfg.NoOriginal)
	bindBool(flags, "only-original", &cfg.OnlyOriginal)
	bindBool(flags, "flac", &cfg.ConvertToFLAC)

	bindBool(flags, "addtofile", &cfg.AddToFile)
	bindBool(flags, "addtimestamp", &cfg.AddTimestamp)
	bindBool(flags, "extract-artist", &cfg.ExtractArtist)
	bindBool(flags, "original-art", &cfg.OriginalArt)
	bindBool(flags, "original-name", &cfg.OriginalName)
	bindBool(flags, "original-metadata", &cfg.OriginalMetadata)
	bindBool(flags, "add-description", &cfg.AddDescription)
	bindBool(flags, "no-album-tag", &cfg.NoAlbumTag)

	bindString(flags, "auth-token", &cfg.AuthToken)
	bindString(flags, "client-id", &cfg.ClientID)
	bindString(flags, "ffmpeg-path", &cfg.FFmpegPath)
	bindString(flags, "log-level", &cfg.LogLevel)
	bindString(flags, "log-file", &cfg.LogFile)

	return config.ValidateConfig(cfg)
}

// changed reports whether the user set the flag, so config file values survive otherwise.
func changed(flags *pflag.FlagSet, name string) bool {
	flag := flags.Lookup(name)

	return flag != nil && flag.Changed
}

func bindString(flags *pflag.FlagSet, name string, target *string) {
	if changed(flags, name) {
		*target, _ = flags.GetString(name)
	}
}

func bindBool(flags *pflag.FlagSet, name string, target *bool) {
	if changed(flags, name) {
		*target, _ = flags.GetBool(name)
	}
}

func bindInt64(flags *pflag.FlagSet, name string, target *int64) {
	if changed(flags, name) {
		*target, _ = flags.GetInt64(name)
	}
}
