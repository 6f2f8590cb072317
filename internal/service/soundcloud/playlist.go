package soundcloud

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/samber/lo"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

const phaseDownloadingPlaylist = "downloading playlist"

// downloadPlaylist downloads the tracks of playlist, skipping the first skip entries
// of the filtered sequence. Track numbers always refer to the filtered sequence.
func (s *ServiceImpl) downloadPlaylist(
	ctx context.Context,
	run *runState,
	playlist *soundcloud.Playlist,
	skip int,
	exitOnFail bool,
) error {
	if s.cfg.NoPlaylist {
		logger.Info(ctx, "Skipping playlist...")

		return nil
	}

	errorCtx := &ErrorContext{
		Category:  DownloadCategoryPlaylist,
		ItemID:    strconv.FormatInt(playlist.ID, 10),
		ItemTitle: playlist.Title,
		ItemURL:   playlist.PermalinkURL,
		Phase:     phaseDownloadingPlaylist,
	}

	if playlist.Tracks == nil && playlist.TrackCount > 0 {
		fetched, err := s.client.GetPlaylist(ctx, playlist.ID)
		if err != nil {
			s.errorHandler.HandleError(ctx, err, errorCtx, false)

			return fmt.Errorf("failed to get playlist %d: %w", playlist.ID, err)
		}

		playlist = fetched
	}

	dir, err := s.playlistDir(playlist)
	if err != nil {
		s.errorHandler.HandleError(ctx, err, errorCtx, false)

		return err
	}

	tracks := playlist.Tracks

	if s.cfg.Limit > 0 {
		tracks = newestTracks(tracks, int(s.cfg.Limit))
		skip = 0
	}

	var syncArchive *ArchiveStore

	if s.cfg.SyncArchive != "" {
		syncArchive = NewArchiveStore(s.cfg.SyncArchive)

		tracks, err = s.syncPlaylist(ctx, syncArchive, playlist, tracks, dir)
		if err != nil {
			s.errorHandler.HandleError(ctx, err, errorCtx, false)

			return err
		}
	}

	base := PlaylistContext{
		ID:         playlist.ID,
		Title:      playlist.Title,
		Author:     playlist.Author(),
		TrackTotal: len(tracks),
	}

	for index := max(skip, 0); index < len(tracks); index++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		number := index + 1
		logger.Infof(ctx, "Track n°%d", number)

		job := &trackJob{
			dir:         dir,
			playlist:    base.withPosition(number),
			exitOnFail:  exitOnFail,
			syncArchive: syncArchive,
		}

		track, materializeErr := s.materializeTrack(ctx, playlist, tracks[index])
		if materializeErr != nil {
			s.errorHandler.HandleError(ctx, materializeErr,
				s.trackErrorContext(tracks[index], job, phaseDownloadingTrack), true)

			if exitOnFail {
				return materializeErr
			}

			continue
		}

		if err = s.downloadTrack(ctx, run, track, job); err != nil {
			return err
		}
	}

	logger.Infof(ctx, "Downloaded all tracks of playlist %s", playlist.Title)

	return nil
}

// playlistDir creates the playlist folder unless it is suppressed.
func (s *ServiceImpl) playlistDir(playlist *soundcloud.Playlist) (string, error) {
	if s.cfg.NoPlaylistFolder || s.cfg.IsStdoutMode() {
		return s.cfg.OutputPath, nil
	}

	dir := filepath.Join(s.cfg.OutputPath, utils.SanitizeFilename(playlist.Title))

	if err := os.MkdirAll(dir, constants.DefaultFolderPermissions); err != nil {
		return "", fmt.Errorf("failed to create playlist folder %s: %w", dir, err)
	}

	return dir, nil
}

// newestTracks returns the limit most recently created tracks, newest first.
// Track IDs grow with creation time and are present on stubs too.
func newestTracks(tracks []*soundcloud.Track, limit int) []*soundcloud.Track {
	sorted := slices.Clone(tracks)
	slices.SortStableFunc(sorted, func(a, b *soundcloud.Track) int {
		return cmp.Compare(b.ID, a.ID)
	})

	return lo.Slice(sorted, 0, limit)
}

// materializeTrack fetches the full track behind a playlist stub.
// Private playlists need their secret token for the batch endpoint.
func (s *ServiceImpl) materializeTrack(
	ctx context.Context,
	playlist *soundcloud.Playlist,
	track *soundcloud.Track,
) (*soundcloud.Track, error) {
	if !track.IsStub() {
		return track, nil
	}

	if playlist.SecretToken != "" {
		tracks, err := s.client.GetTracks(ctx, []int64{track.ID}, playlist.ID, playlist.SecretToken)
		if err != nil {
			return nil, err
		}

		if len(tracks) == 0 || tracks[0] == nil {
			return nil, fmt.Errorf("%w: %d", ErrTrackNotFound, track.ID)
		}

		return tracks[0], nil
	}

	fetched, err := s.client.GetTrack(ctx, track.ID)
	if err != nil {
		return nil, err
	}

	if fetched == nil {
		return nil, fmt.Errorf("%w: %d", ErrTrackNotFound, track.ID)
	}

	return fetched, nil
}
