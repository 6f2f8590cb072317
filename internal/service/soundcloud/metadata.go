package soundcloud

import (
	"context"
	"strings"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
)

// artistSeparators split "Artist - Title" style titles. The first one present wins.
//
//nolint:gochecknoglobals // Immutable lookup list.
var artistSeparators = []string{" - ", " − ", " – ", " — ", " ― "}

// extractArtist splits title into artist and title on the first separator found.
// ok is false when no separator is present.
func extractArtist(title string) (artist, rest string, ok bool) {
	for _, separator := range artistSeparators {
		if before, after, found := strings.Cut(title, separator); found {
			return strings.TrimSpace(before), strings.TrimSpace(after), true
		}
	}

	return "", title, false
}

// buildMetadataRecord assembles the tags of track. Artwork is fetched best-effort.
func (s *ServiceImpl) buildMetadataRecord(
	ctx context.Context,
	track *soundcloud.Track,
	playlist *PlaylistContext,
) *MetadataRecord {
	record := &MetadataRecord{
		Artist:      track.Username(),
		Title:       track.Title,
		Description: track.Description,
		Genre:       track.Genre,
		Link:        track.PermalinkURL,
		Date:        track.CreatedAt.Format(metadataDateLayout),
		Artwork:     s.fetchArtwork(ctx, track),
	}

	if s.cfg.ExtractArtist {
		if artist, title, ok := extractArtist(track.Title); ok {
			record.Artist, record.Title = artist, title
		}
	}

	if playlist != nil && !s.cfg.NoAlbumTag {
		record.Album = &AlbumInfo{
			Title:       playlist.Title,
			Author:      playlist.Author,
			TrackNumber: playlist.TrackNumber,
			TrackTotal:  playlist.TrackTotal,
		}
	}

	return record
}
