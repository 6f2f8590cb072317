package soundcloud

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

// trackNumberSentinel stands in for the track number when matching files of removed tracks,
// whose old position is unknown.
const trackNumberSentinel = "SCDLTRACKNUMBERPLACEHOLDER"

// syncPlaylist reconciles the playlist against the sync archive. Local files of tracks that
// left the playlist are deleted and the archive is rewritten without them. Only tracks that
// joined the playlist are returned for download; each is appended to the archive once on disk.
func (s *ServiceImpl) syncPlaylist(
	ctx context.Context,
	archive *ArchiveStore,
	playlist *soundcloud.Playlist,
	tracks []*soundcloud.Track,
	dir string,
) ([]*soundcloud.Track, error) {
	oldIDs, err := archive.ReadIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync archive: %w", err)
	}

	newIDs := lo.Map(tracks, func(track *soundcloud.Track, _ int) int64 {
		return track.ID
	})

	added, removed := lo.Difference(lo.Uniq(newIDs), lo.Uniq(oldIDs))
	surviving := lo.Uniq(lo.Without(oldIDs, removed...))

	if len(removed) > 0 {
		s.removeSyncedTracks(ctx, playlist, removed, dir)
	} else {
		logger.Info(ctx, "No tracks to remove.")
	}

	// Duplicate lines left by other tools are dropped even when nothing was removed.
	if len(surviving) != len(oldIDs) {
		if err = archive.Rewrite(ctx, surviving); err != nil {
			return nil, fmt.Errorf("failed to rewrite sync archive: %w", err)
		}
	}

	if len(added) == 0 {
		logger.Info(ctx, "No changes found")

		return nil, nil
	}

	addedSet := lo.SliceToMap(added, func(id int64) (int64, struct{}) {
		return id, struct{}{}
	})

	return lo.Filter(tracks, func(track *soundcloud.Track, _ int) bool {
		_, ok := addedSet[track.ID]

		return ok
	}), nil
}

// removeSyncedTracks deletes the local files of tracks that left the playlist.
// A track that can no longer be fetched is skipped.
func (s *ServiceImpl) removeSyncedTracks(
	ctx context.Context,
	playlist *soundcloud.Playlist,
	removedIDs []int64,
	dir string,
) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warnf(ctx, "Failed to list %s: %v", dir, err)

		return
	}

	names := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		return entry.Name(), entry.Type().IsRegular()
	})

	var removedCount int64

	for _, trackID := range removedIDs {
		track, fetchErr := s.client.GetTrack(ctx, trackID)
		if fetchErr != nil || track == nil {
			logger.Warnf(ctx, "Could not fetch removed track %d, its files are kept: %v", trackID, fetchErr)

			continue
		}

		pattern := s.syncedFilePattern(ctx, track, playlist)

		for _, name := range names {
			if !pattern.MatchString(name) {
				continue
			}

			path := filepath.Join(dir, name)
			if removeErr := os.Remove(path); removeErr != nil {
				logger.Errorf(ctx, "Failed to remove %s: %v", path, removeErr)

				continue
			}

			removedCount++

			logger.Infof(ctx, "Removed %s", name)
		}
	}

	s.incrementTracksRemoved(removedCount)
}

// syncedFilePattern matches the audio files track may have been saved as, at any position.
func (s *ServiceImpl) syncedFilePattern(
	ctx context.Context,
	track *soundcloud.Track,
	playlist *soundcloud.Playlist,
) *regexp.Regexp {
	playlistCtx := &PlaylistContext{
		ID:         playlist.ID,
		Title:      playlist.Title,
		Author:     playlist.Author(),
		TrackTotal: len(playlist.Tracks),
	}

	tags := buildTemplateTags(track, playlistCtx)
	tags[tagPlaylistTrackNumber] = trackNumberSentinel
	tags[tagPlaylistTrackNumberInt] = trackNumberSentinel
	tags[tagPlaylistTrackTotal] = trackNumberSentinel

	baseName := s.trackBaseNameFromTags(ctx, track, tags, true)

	alternatives := lo.Map(constants.AudioExtensions, func(extension string, _ int) string {
		name := utils.SanitizeFilenameWithExtension(baseName, extension, constants.MaxFilenameBytes)

		return strings.ReplaceAll(regexp.QuoteMeta(name), trackNumberSentinel, `\d+`)
	})

	return regexp.MustCompile("^(?:" + strings.Join(alternatives, "|") + ")$")
}
