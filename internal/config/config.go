package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

// Config holds all configuration settings.
// Fields tagged with "-" are run-scoped and come from command-line flags only.
type Config struct {
	// ClientID is the public API client identifier. Empty means "obtain one from the web app".
	ClientID string `mapstructure:"client_id"`
	// AuthToken is the OAuth token of the signed-in user. Optional.
	AuthToken string `mapstructure:"auth_token"`
	// OutputPath is the directory downloads are written to.
	OutputPath string `mapstructure:"output_path"`
	// NameFormat is the filename template for standalone tracks. "-" streams to stdout.
	NameFormat string `mapstructure:"name_format"`
	// PlaylistNameFormat is the filename template for tracks downloaded as part of a playlist.
	PlaylistNameFormat string `mapstructure:"playlist_name_format"`
	// DownloadArchive is the path of the archive file listing already downloaded track IDs.
	DownloadArchive string `mapstructure:"download_archive"`
	// MinSize rejects tracks smaller than this size (e.g. "500KB"). Empty or "0" disables the bound.
	MinSize string `mapstructure:"min_size"`
	// MaxSize rejects tracks larger than this size (e.g. "50MB"). Empty or "0" disables the bound.
	MaxSize string `mapstructure:"max_size"`
	// DownloadSpeedLimit caps direct download throughput (e.g. "1MB"). Empty or "0" disables it.
	DownloadSpeedLimit string `mapstructure:"download_speed_limit"`
	// FFmpegPath is the encoder binary used for stream remuxing and re-encoding.
	FFmpegPath string `mapstructure:"ffmpeg_path"`
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level"`
	// LogFile additionally writes JSON logs to a rotating file when set.
	LogFile string `mapstructure:"log_file"`
	// HideProgress disables progress bars.
	HideProgress bool `mapstructure:"hide_progress"`
	// RetryAttemptsCount is the number of attempts for media byte transfers.
	RetryAttemptsCount int64 `mapstructure:"retry_attempts_count"`
	// RateLimitRetries bounds the exponential backoff on HTTP 429 during stream URL resolution.
	RateLimitRetries uint64 `mapstructure:"rate_limit_retries"`
	// MinRetryPause is the minimum pause duration before retrying.
	MinRetryPause string `mapstructure:"min_retry_pause"`
	// MaxRetryPause is the maximum pause duration before retrying.
	MaxRetryPause string `mapstructure:"max_retry_pause"`

	// ExtractArtist splits "Artist - Title" track titles into artist and title tags.
	ExtractArtist bool `mapstructure:"extract_artist"`
	// NoAlbumTag suppresses album tags for playlist tracks.
	NoAlbumTag bool `mapstructure:"no_album_tag"`
	// OriginalArt downloads artwork in its original resolution.
	OriginalArt bool `mapstructure:"original_art"`
	// OriginalName keeps the uploader's filename for original downloads.
	OriginalName bool `mapstructure:"original_name"`
	// OriginalMetadata leaves the tags of downloaded files untouched.
	OriginalMetadata bool `mapstructure:"original_metadata"`
	// AddDescription writes the track description into a sidecar text file.
	AddDescription bool `mapstructure:"add_description"`
	// AddToFile prefixes filenames with the uploader's username.
	AddToFile bool `mapstructure:"addtofile"`
	// AddTimestamp prefixes filenames with the creation timestamp.
	AddTimestamp bool `mapstructure:"addtimestamp"`
	// OnlyMP3 restricts downloads to mp3 streams.
	OnlyMP3 bool `mapstructure:"onlymp3"`
	// PreferOpus allows opus streams.
	PreferOpus bool `mapstructure:"opus"`
	// NoOriginal never downloads the original upload.
	NoOriginal bool `mapstructure:"no_original"`
	// OnlyOriginal fails tracks that have no original upload.
	OnlyOriginal bool `mapstructure:"only_original"`
	// ConvertToFLAC re-encodes lossless wav/aiff originals to flac.
	ConvertToFLAC bool `mapstructure:"flac"`
	// NoPlaylistFolder writes playlist tracks directly into the output directory.
	NoPlaylistFolder bool `mapstructure:"no_playlist_folder"`
	// StrictPlaylist aborts a collection on the first failed track.
	StrictPlaylist bool `mapstructure:"strict_playlist"`

	// Search resolves the first search hit for this query instead of a URL.
	Search string `mapstructure:"-"`
	// Limit keeps only the N most recent tracks of a playlist. Zero disables it.
	Limit int64 `mapstructure:"-"`
	// Offset is the 1-based position of the first item to download.
	Offset int64 `mapstructure:"-"`
	// Likes, Commented, Uploads, All, Playlists and Reposts select a user collection.
	Likes     bool `mapstructure:"-"`
	Commented bool `mapstructure:"-"`
	Uploads   bool `mapstructure:"-"`
	All       bool `mapstructure:"-"`
	Playlists bool `mapstructure:"-"`
	Reposts   bool `mapstructure:"-"`
	// Continue skips already downloaded tracks instead of failing.
	Continue bool `mapstructure:"-"`
	// ForceMetadata rewrites tags of already downloaded tracks.
	ForceMetadata bool `mapstructure:"-"`
	// Overwrite replaces already downloaded tracks.
	Overwrite bool `mapstructure:"-"`
	// NoPlaylist skips playlists entirely.
	NoPlaylist bool `mapstructure:"-"`
	// SyncArchive reconciles a playlist against this archive file.
	SyncArchive string `mapstructure:"-"`
	// RemoveUnlisted deletes files in the output directory that were not part of this run.
	RemoveUnlisted bool `mapstructure:"-"`

	// ConfigFilename is the file this configuration was loaded from.
	ConfigFilename string `mapstructure:"-"`
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level `mapstructure:"-"`
	// ParsedMinSize is the parsed minimum size in bytes.
	ParsedMinSize int64 `mapstructure:"-"`
	// ParsedMaxSize is the parsed maximum size in bytes.
	ParsedMaxSize int64 `mapstructure:"-"`
	// ParsedDownloadSpeedLimit is the parsed download speed limit in bytes per second.
	ParsedDownloadSpeedLimit int64 `mapstructure:"-"`
	// ParsedMinRetryPause is the parsed minimum retry pause duration.
	ParsedMinRetryPause time.Duration `mapstructure:"-"`
	// ParsedMaxRetryPause is the parsed maximum retry pause duration.
	ParsedMaxRetryPause time.Duration `mapstructure:"-"`
}

const (
	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".scdl-grabber.yaml"

	// DefaultEnvFilename is loaded into the environment before the configuration is read.
	DefaultEnvFilename = ".env"

	// EnvPrefix prefixes environment variables that override configuration keys.
	EnvPrefix = "SCDL"

	// DefaultNameFormat is the default filename template for standalone tracks.
	DefaultNameFormat = "{{.title}}"

	// DefaultPlaylistNameFormat is the default filename template for playlist tracks.
	DefaultPlaylistNameFormat = "{{.playlistTrackNumber}}_{{.title}}"

	// DefaultFFmpegPath is looked up in PATH.
	DefaultFFmpegPath = "ffmpeg"

	defaultLogLevel           = "info"
	defaultRetryAttemptsCount = 3
	defaultRateLimitRetries   = 6
	defaultMinRetryPause      = "1s"
	defaultMaxRetryPause      = "3s"

	clientIDKey  = "client_id"
	authTokenKey = "auth_token"
)

// Static error definitions for better error handling.
var (
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInvalidOffset indicates a non-positive offset.
	ErrInvalidOffset = errors.New("offset should be a positive integer")
	// ErrInvalidLimit indicates a negative playlist limit.
	ErrInvalidLimit = errors.New("limit must not be negative")
	// ErrSizeBoundsInverted indicates that min_size is greater than max_size.
	ErrSizeBoundsInverted = errors.New("min_size must not be greater than max_size")
	// ErrConflictingDownloadTypes indicates that more than one user collection was selected.
	ErrConflictingDownloadTypes = errors.New(
		"only one of likes, commented, uploads, all, playlists, reposts may be selected")
	// ErrConflictingOriginalFlags indicates that only_original is combined with a flag that forbids originals.
	ErrConflictingOriginalFlags = errors.New("only_original cannot be combined with no_original or onlymp3")
	// ErrInvalidRetryAttempts indicates that the retry attempts count is invalid.
	ErrInvalidRetryAttempts = errors.New("retry attempts count must be a positive integer")
	// ErrInvalidMinRetryPause indicates that the min retry pause duration is invalid.
	ErrInvalidMinRetryPause = errors.New("min_retry_pause must be positive")
	// ErrInvalidMaxRetryPause indicates that the max retry pause duration is invalid.
	ErrInvalidMaxRetryPause = errors.New("max_retry_pause must be positive")
	// ErrConfigNotMapping indicates that the configuration file is not a YAML mapping.
	ErrConfigNotMapping = errors.New("top-level YAML node is not a mapping")
)

// LoadConfig loads configuration from a YAML file, the environment and an optional .env file.
// A missing file is not an error: defaults and environment variables still apply.
func LoadConfig(configFilename string) (*Config, error) {
	if configFilename == "" {
		configFilename = DefaultConfigFilename
	}

	if err := godotenv.Load(DefaultEnvFilename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DefaultEnvFilename, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configFilename)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ConfigFilename = configFilename
	cfg.Offset = 1

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(clientIDKey, "")
	v.SetDefault(authTokenKey, "")
	v.SetDefault("output_path", ".")
	v.SetDefault("name_format", DefaultNameFormat)
	v.SetDefault("playlist_name_format", DefaultPlaylistNameFormat)
	v.SetDefault("download_archive", "")
	v.SetDefault("min_size", "")
	v.SetDefault("max_size", "")
	v.SetDefault("download_speed_limit", "")
	v.SetDefault("ffmpeg_path", DefaultFFmpegPath)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("hide_progress", false)
	v.SetDefault("retry_attempts_count", defaultRetryAttemptsCount)
	v.SetDefault("rate_limit_retries", defaultRateLimitRetries)
	v.SetDefault("min_retry_pause", defaultMinRetryPause)
	v.SetDefault("max_retry_pause", defaultMaxRetryPause)

	for _, key := range []string{
		"extract_artist", "no_album_tag", "original_art", "original_name", "original_metadata",
		"add_description", "addtofile", "addtimestamp", "onlymp3", "opus", "no_original",
		"only_original", "flac", "no_playlist_folder", "strict_playlist",
	} {
		v.SetDefault(key, false)
	}
}

// ValidateConfig checks the configuration for validity and sets derived fields.
//
//nolint:funlen,gocognit,cyclop // Validation functions naturally have high complexity and length due to sequential checks.
func ValidateConfig(cfg *Config) error {
	var err error

	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)

	parsedLogLevel, isLogLevelCorrect := logger.ParseLogLevel(cfg.LogLevel)
	if !isLogLevelCorrect {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = parsedLogLevel

	if cfg.Offset < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, cfg.Offset)
	}

	if cfg.Limit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, cfg.Limit)
	}

	if countSelected(cfg.Likes, cfg.Commented, cfg.Uploads, cfg.All, cfg.Playlists, cfg.Reposts) > 1 {
		return ErrConflictingDownloadTypes
	}

	if cfg.OnlyOriginal && (cfg.NoOriginal || cfg.OnlyMP3) {
		return ErrConflictingOriginalFlags
	}

	if cfg.ParsedMinSize, err = parseOptionalSize(cfg.MinSize); err != nil {
		return fmt.Errorf("failed to parse min size: %w", err)
	}

	if cfg.ParsedMaxSize, err = parseOptionalSize(cfg.MaxSize); err != nil {
		return fmt.Errorf("failed to parse max size: %w", err)
	}

	if cfg.ParsedMaxSize > 0 && cfg.ParsedMinSize > cfg.ParsedMaxSize {
		return ErrSizeBoundsInverted
	}

	if cfg.ParsedDownloadSpeedLimit, err = parseOptionalSize(cfg.DownloadSpeedLimit); err != nil {
		return fmt.Errorf("failed to parse download speed limit: %w", err)
	}

	if cfg.RetryAttemptsCount <= 0 {
		return ErrInvalidRetryAttempts
	}

	cfg.ParsedMinRetryPause, err = time.ParseDuration(cfg.MinRetryPause)
	if err != nil {
		return fmt.Errorf("failed to parse min retry pause: %w", err)
	}

	if cfg.ParsedMinRetryPause <= 0 {
		return ErrInvalidMinRetryPause
	}

	cfg.ParsedMaxRetryPause, err = time.ParseDuration(cfg.MaxRetryPause)
	if err != nil {
		return fmt.Errorf("failed to parse max retry pause: %w", err)
	}

	if cfg.ParsedMaxRetryPause <= 0 {
		return ErrInvalidMaxRetryPause
	}

	if strings.TrimSpace(cfg.FFmpegPath) == "" {
		cfg.FFmpegPath = DefaultFFmpegPath
	}

	if cfg.OutputPath == "" {
		cfg.OutputPath = "."
	}

	return nil
}

// IsStdoutMode reports whether audio is streamed to standard output.
func (c *Config) IsStdoutMode() bool {
	return c.NameFormat == constants.StdoutSentinel
}

func parseOptionalSize(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return 0, nil
	}

	parsed, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, err
	}

	return utils.SafeUint64ToInt64(parsed), nil
}

func countSelected(flags ...bool) int {
	var count int

	for _, flag := range flags {
		if flag {
			count++
		}
	}

	return count
}

// SaveConfig writes client_id and auth_token back to the configuration file,
// preserving the key order and formatting of everything else.
func SaveConfig(cfg *Config) error {
	configFile := cfg.ConfigFilename
	if configFile == "" {
		configFile = DefaultConfigFilename
	}

	values := map[string]string{
		clientIDKey:  cfg.ClientID,
		authTokenKey: cfg.AuthToken,
	}

	originalContent, err := os.ReadFile(configFile)
	if err != nil {
		return handleMissingConfigFile(configFile, values, err)
	}

	var node yaml.Node
	if err = yaml.Unmarshal(originalContent, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err = updateValuesInNode(&node, values); err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	newContent, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err = os.WriteFile(configFile, newContent, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// handleMissingConfigFile creates a new config file if it doesn't exist.
func handleMissingConfigFile(configFile string, values map[string]string, err error) error {
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range values {
		v.Set(key, value)
	}

	if err = v.SafeWriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	return nil
}

// updateValuesInNode sets string values in the top-level YAML mapping and appends missing keys.
func updateValuesInNode(node *yaml.Node, values map[string]string) error {
	// An empty document becomes a fresh mapping.
	if len(node.Content) == 0 {
		node.Kind = yaml.DocumentNode
		node.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}

	mapNode := node.Content[0]
	if mapNode.Kind != yaml.MappingNode {
		return ErrConfigNotMapping
	}

	pending := make(map[string]string, len(values))
	for key, value := range values {
		pending[key] = value
	}

	// Key-value pairs are stored as alternating nodes.
	for i := 0; i+1 < len(mapNode.Content); i += 2 {
		keyNode, valueNode := mapNode.Content[i], mapNode.Content[i+1]

		value, ok := pending[keyNode.Value]
		if !ok {
			continue
		}

		valueNode.Kind = yaml.ScalarNode
		valueNode.Tag = "!!str"
		valueNode.Value = value

		if valueNode.Style == 0 {
			valueNode.Style = yaml.DoubleQuotedStyle
		}

		delete(pending, keyNode.Value)
	}

	for _, key := range []string{clientIDKey, authTokenKey} {
		value, ok := pending[key]
		if !ok {
			continue
		}

		mapNode.Content = append(mapNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value, Style: yaml.DoubleQuotedStyle},
		)
	}

	return nil
}
