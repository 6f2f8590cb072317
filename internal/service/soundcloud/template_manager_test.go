package soundcloud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/scdl-grabber/internal/config"
)

// TestNewTemplateManager_Validation tests that broken templates are rejected at startup.
func TestNewTemplateManager_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		nameFormat     string
		playlistFormat string
		wantErr        error
		wantAnyErr     bool
	}{
		{name: "defaults", nameFormat: "", playlistFormat: ""},
		{name: "stdout sentinel", nameFormat: "-", playlistFormat: ""},
		{name: "all placeholders", nameFormat: "{{.username}} - {{.title}} [{{.id}}] {{.date}}", playlistFormat: ""},
		{name: "unknown placeholder", nameFormat: "{{.artist}}", wantErr: ErrUnknownPlaceholder},
		{name: "unknown playlist placeholder", playlistFormat: "{{.album}}", wantErr: ErrUnknownPlaceholder},
		{name: "syntax error", nameFormat: "{{.title", wantAnyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewTemplateManager(&config.Config{
				NameFormat:         tt.nameFormat,
				PlaylistNameFormat: tt.playlistFormat,
			})

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantAnyErr:
				require.Error(t, err)
			default:
				require.NoError(t, err)
			}
		})
	}
}

// TestGetTrackFilename tests rendering of track and playlist templates.
func TestGetTrackFilename(t *testing.T) {
	t.Parallel()

	manager, err := NewTemplateManager(&config.Config{
		NameFormat:         "{{.username}} - {{.title}}",
		PlaylistNameFormat: "{{.playlistTitle}}/{{.playlistTrackNumber}} of {{.playlistTrackTotal}} {{.title}}",
	})
	require.NoError(t, err)

	track := newTestTrack(1, "Song")

	assert.Equal(t, "artist - Song", manager.GetTrackFilename(t.Context(), buildTemplateTags(track, nil), false))

	playlist := PlaylistContext{ID: 9, Title: "Mix", Author: "curator", TrackTotal: 12}
	tags := buildTemplateTags(track, playlist.withPosition(3))

	assert.Equal(t, "Mix/03 of 12 Song", manager.GetTrackFilename(t.Context(), tags, true))
}

// TestGetTrackFilename_Fallback tests that a failing render falls back to the default template.
func TestGetTrackFilename_Fallback(t *testing.T) {
	t.Parallel()

	manager, err := NewTemplateManager(&config.Config{NameFormat: "{{.genre}}"})
	require.NoError(t, err)

	// The rendered map lacks the key; a real run always passes every placeholder.
	assert.Equal(t, "Song", manager.GetTrackFilename(t.Context(), map[string]string{tagTitle: "Song"}, false))
}

// TestBuildTemplateTags tests the values exposed to naming templates.
func TestBuildTemplateTags(t *testing.T) {
	t.Parallel()

	track := newTestTrack(42, "Song")
	track.UserID = 0

	tags := buildTemplateTags(track, nil)

	assert.Len(t, tags, len(knownPlaceholders))
	assert.Equal(t, "42", tags[tagID])
	assert.Equal(t, "1", tags[tagUserID], "user ID falls back to the embedded user")
	assert.Equal(t, "track-42", tags[tagPermalink])
	assert.Equal(t, "1704164645", tags[tagTimestamp])
	assert.Equal(t, "2024-01-02 03:04:05", tags[tagDate])
	assert.Empty(t, tags[tagPlaylistTrackNumber])

	playlist := PlaylistContext{ID: 7, Title: "Mix", Author: "curator", TrackTotal: 100}
	tags = buildTemplateTags(track, playlist.withPosition(5))

	assert.Equal(t, "Mix", tags[tagPlaylistTitle])
	assert.Equal(t, "curator", tags[tagPlaylistAuthor])
	assert.Equal(t, "7", tags[tagPlaylistID])
	assert.Equal(t, "005", tags[tagPlaylistTrackNumber])
	assert.Equal(t, "5", tags[tagPlaylistTrackNumberInt])
	assert.Equal(t, "100", tags[tagPlaylistTrackTotal])
}
