package soundcloud

//go:generate $MOCKGEN -source=template_manager.go -destination=mocks/template_manager_mock.go

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"text/template"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/config"
	"github.com/oshokin/scdl-grabber/internal/logger"
)

// TemplateManager renders naming templates into base filenames.
type TemplateManager interface {
	// GetTrackFilename renders the track or playlist template, without extension.
	GetTrackFilename(ctx context.Context, tags map[string]string, isPlaylist bool) string
}

// TemplateManagerImpl implements the TemplateManager interface.
type TemplateManagerImpl struct {
	// trackFilenameTemplate is the template for standalone tracks.
	trackFilenameTemplate *template.Template
	// playlistFilenameTemplate is the template for playlist tracks.
	playlistFilenameTemplate *template.Template
	// defaultTrackFilenameTemplate is the fallback template for standalone tracks.
	defaultTrackFilenameTemplate *template.Template
	// defaultPlaylistFilenameTemplate is the fallback template for playlist tracks.
	defaultPlaylistFilenameTemplate *template.Template
}

// Template placeholders.
const (
	tagID                     = "id"
	tagTitle                  = "title"
	tagUsername               = "username"
	tagUserID                 = "userID"
	tagPermalink              = "permalink"
	tagTimestamp              = "timestamp"
	tagDate                   = "date"
	tagGenre                  = "genre"
	tagPlaylistTitle          = "playlistTitle"
	tagPlaylistAuthor         = "playlistAuthor"
	tagPlaylistID             = "playlistID"
	tagPlaylistTrackNumber    = "playlistTrackNumber"
	tagPlaylistTrackNumberInt = "playlistTrackNumberInt"
	tagPlaylistTrackTotal     = "playlistTrackTotal"

	metadataDateLayout = "2006-01-02 15:04:05"
)

// knownPlaceholders lists every key available to naming templates.
//
//nolint:gochecknoglobals // Immutable lookup list.
var knownPlaceholders = []string{
	tagID, tagTitle, tagUsername, tagUserID, tagPermalink, tagTimestamp, tagDate, tagGenre,
	tagPlaylistTitle, tagPlaylistAuthor, tagPlaylistID,
	tagPlaylistTrackNumber, tagPlaylistTrackNumberInt, tagPlaylistTrackTotal,
}

// NewTemplateManager parses and validates the naming templates.
// Syntax errors and unknown placeholders are configuration errors.
func NewTemplateManager(cfg *config.Config) (TemplateManager, error) {
	defaultTrackFilenameTemplate := template.Must(newNamingTemplate("defaultTrackFilenameTemplate").
		Parse(config.DefaultNameFormat))
	defaultPlaylistFilenameTemplate := template.Must(newNamingTemplate("defaultPlaylistFilenameTemplate").
		Parse(config.DefaultPlaylistNameFormat))

	trackFilenameTemplate, err := parseNamingTemplate("name_format", cfg.NameFormat, config.DefaultNameFormat)
	if err != nil {
		return nil, err
	}

	playlistFilenameTemplate, err := parseNamingTemplate("playlist_name_format",
		cfg.PlaylistNameFormat, config.DefaultPlaylistNameFormat)
	if err != nil {
		return nil, err
	}

	return &TemplateManagerImpl{
		trackFilenameTemplate:           trackFilenameTemplate,
		playlistFilenameTemplate:        playlistFilenameTemplate,
		defaultTrackFilenameTemplate:    defaultTrackFilenameTemplate,
		defaultPlaylistFilenameTemplate: defaultPlaylistFilenameTemplate,
	}, nil
}

func newNamingTemplate(name string) *template.Template {
	return template.New(name).Option("missingkey=error")
}

// parseNamingTemplate parses value and dry-runs it against every known placeholder,
// so a typo fails at startup instead of producing odd filenames.
func parseNamingTemplate(name, value, fallback string) (*template.Template, error) {
	// The stdout sentinel never reaches the renderer.
	if value == "" || value == "-" {
		value = fallback
	}

	parsed, err := newNamingTemplate(name).Parse(value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	sample := make(map[string]string, len(knownPlaceholders))
	for _, key := range knownPlaceholders {
		sample[key] = key
	}

	var buffer bytes.Buffer
	if err = parsed.Execute(&buffer, sample); err != nil {
		return nil, fmt.Errorf("%w in %s %q: %w", ErrUnknownPlaceholder, name, value, err)
	}

	return parsed, nil
}

// GetTrackFilename renders the track or playlist template, without extension.
func (s *TemplateManagerImpl) GetTrackFilename(
	ctx context.Context,
	tags map[string]string,
	isPlaylist bool,
) string {
	textBuilder, defaultTextBuilder := s.trackFilenameTemplate, s.defaultTrackFilenameTemplate
	if isPlaylist {
		textBuilder, defaultTextBuilder = s.playlistFilenameTemplate, s.defaultPlaylistFilenameTemplate
	}

	var buffer bytes.Buffer
	if err := textBuilder.Execute(&buffer, tags); err != nil {
		logger.Errorf(ctx, "Failed to execute template, using default: %v", err)

		buffer.Reset()
		_ = defaultTextBuilder.Execute(&buffer, tags) //nolint:errcheck // Default template is always valid.
	}

	return buffer.String()
}

// buildTemplateTags flattens a track and its playlist context into template values.
// Every known placeholder is present, empty when not applicable.
func buildTemplateTags(track *soundcloud.Track, playlist *PlaylistContext) map[string]string {
	tags := map[string]string{
		tagID:                     strconv.FormatInt(track.ID, 10),
		tagTitle:                  track.Title,
		tagUsername:               track.Username(),
		tagUserID:                 strconv.FormatInt(track.UserID, 10),
		tagPermalink:              track.Permalink,
		tagTimestamp:              strconv.FormatInt(track.CreatedAt.Unix(), 10),
		tagDate:                   track.CreatedAt.Format(metadataDateLayout),
		tagGenre:                  track.Genre,
		tagPlaylistTitle:          "",
		tagPlaylistAuthor:         "",
		tagPlaylistID:             "",
		tagPlaylistTrackNumber:    "",
		tagPlaylistTrackNumberInt: "",
		tagPlaylistTrackTotal:     "",
	}

	if track.UserID == 0 && track.User != nil {
		tags[tagUserID] = strconv.FormatInt(track.User.ID, 10)
	}

	if playlist != nil {
		tags[tagPlaylistTitle] = playlist.Title
		tags[tagPlaylistAuthor] = playlist.Author
		tags[tagPlaylistID] = strconv.FormatInt(playlist.ID, 10)
		tags[tagPlaylistTrackNumber] = playlist.TrackNumberPadded
		tags[tagPlaylistTrackNumberInt] = strconv.Itoa(playlist.TrackNumber)
		tags[tagPlaylistTrackTotal] = strconv.Itoa(playlist.TrackTotal)
	}

	return tags
}
