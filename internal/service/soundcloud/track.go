package soundcloud

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

const (
	policyBlock = "BLOCK"

	phaseDownloadingTrack = "downloading track"
	phaseTaggingTrack     = "tagging track"
)

// downloadTrack runs one track job. Failures are recorded here; the returned error is
// non-nil only when the failure must stop the run.
func (s *ServiceImpl) downloadTrack(
	ctx context.Context,
	run *runState,
	track *soundcloud.Track,
	job *trackJob,
) error {
	err := s.acquireTrack(ctx, run, track, job)
	if err == nil {
		return nil
	}

	s.errorHandler.HandleError(ctx, err, s.trackErrorContext(track, job, phaseDownloadingTrack), true)

	if job.exitOnFail || isRunFatal(err) {
		return err
	}

	return nil
}

func (s *ServiceImpl) trackErrorContext(track *soundcloud.Track, job *trackJob, phase string) *ErrorContext {
	errorCtx := &ErrorContext{
		Category:  DownloadCategoryTrack,
		ItemID:    strconv.FormatInt(track.ID, 10),
		ItemTitle: track.Title,
		ItemURL:   track.PermalinkURL,
		Phase:     phase,
	}

	if job.playlist != nil {
		errorCtx.ParentCategory = DownloadCategoryPlaylist
		errorCtx.ParentID = strconv.FormatInt(job.playlist.ID, 10)
		errorCtx.ParentTitle = job.playlist.Title
	}

	return errorCtx
}

// acquireTrack fetches, archives and tags one track.
func (s *ServiceImpl) acquireTrack(
	ctx context.Context,
	run *runState,
	track *soundcloud.Track,
	job *trackJob,
) error {
	logger.Infof(ctx, "Downloading %s", track.Title)

	if !track.Streamable {
		logger.Warnf(ctx, "%q is not streamable...", track.Title)
	}

	if track.Policy == policyBlock {
		return fmt.Errorf("%w: %s", ErrGeoblocked, track.Title)
	}

	release, locked, err := s.lockTrack(ctx, job.dir, track.ID)
	if err != nil {
		return err
	}

	if !locked {
		s.errorHandler.HandleSkip(ctx, SkipReasonLocked, s.trackErrorContext(track, job, phaseDownloadingTrack))

		return nil
	}

	defer release()

	result, err := s.fetchRepresentation(ctx, track, job)
	if err != nil {
		return err
	}

	if s.cfg.RemoveUnlisted {
		run.keep(result.Path)
	}

	s.recordArchives(ctx, track, job)

	if result.Path == constants.StdoutSentinel {
		s.incrementTrackDownloaded(result.BytesWritten)

		return nil
	}

	if s.cfg.AddDescription && track.Description != "" {
		descriptionPath := s.writeDescription(ctx, track, result.Path)
		if s.cfg.RemoveUnlisted {
			run.keep(descriptionPath)
		}
	}

	if result.AlreadyExisted && !s.cfg.ForceMetadata {
		s.errorHandler.HandleSkip(ctx, SkipReasonExists, s.trackErrorContext(track, job, phaseDownloadingTrack))

		return nil
	}

	if !s.cfg.OriginalMetadata {
		if err = s.tagTrack(ctx, track, job, result.Path); err != nil {
			return err
		}
	}

	if !track.CreatedAt.IsZero() {
		if err = os.Chtimes(result.Path, track.CreatedAt, track.CreatedAt); err != nil {
			logger.Warnf(ctx, "Failed to set modification time of %s: %v", result.Path, err)
		}
	}

	if result.AlreadyExisted {
		s.incrementTrackRetagged()
	} else {
		s.incrementTrackDownloaded(result.BytesWritten)
	}

	logger.Infof(ctx, "%s Downloaded.", result.Path)

	return nil
}

// fetchRepresentation tries the original upload first when allowed and falls back to a stream.
func (s *ServiceImpl) fetchRepresentation(
	ctx context.Context,
	track *soundcloud.Track,
	job *trackJob,
) (*AcquisitionResult, error) {
	if s.formatSelector.AllowsOriginal(track, s.meID(ctx)) {
		result, err := s.downloadOriginal(ctx, track, job)

		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, soundcloud.ErrOriginalNotAvailable),
			errors.Is(err, soundcloud.ErrNoDownloadsLeft),
			errors.Is(err, soundcloud.ErrMediaNotFound):
			logger.Warnf(ctx, "Could not get original download for %s, using a stream: %v", track.Title, err)
		default:
			return nil, err
		}
	}

	if s.cfg.OnlyOriginal {
		return nil, fmt.Errorf("%w: %s", ErrOriginalRequired, track.Title)
	}

	return s.downloadHLS(ctx, track, job)
}

// tagTrack writes tags. Only a file broken by tagging fails the track; it is removed.
func (s *ServiceImpl) tagTrack(ctx context.Context, track *soundcloud.Track, job *trackJob, path string) error {
	logger.Info(ctx, "Setting tags...")

	record := s.buildMetadataRecord(ctx, track, job.playlist)

	err := s.tagProcessor.WriteTags(ctx, path, record)
	if err == nil {
		if record.Artwork != nil {
			s.incrementCoverEmbedded()
		}

		return nil
	}

	if errors.Is(err, ErrCorruptedAfterTagging) {
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.Errorf(ctx, "Failed to remove corrupted file %s: %v", path, removeErr)
		}

		return err
	}

	if errors.Is(err, ErrUnsupportedContainer) {
		logger.Warnf(ctx, "Metadata was not set on %s: %v", path, err)
	} else {
		logger.Errorf(ctx, "Failed to set tags on %s: %v", path, err)
	}

	s.recordError(s.trackErrorContext(track, job, phaseTaggingTrack), err)

	return nil
}

// recordArchives appends the track to the download archive and the sync archive.
// Archive failures never fail the track.
func (s *ServiceImpl) recordArchives(ctx context.Context, track *soundcloud.Track, job *trackJob) {
	for _, archive := range []*ArchiveStore{s.archive, job.syncArchive} {
		if archive == nil {
			continue
		}

		if err := archive.Record(ctx, track.ID); err != nil {
			logger.Errorf(ctx, "Failed to record track %d in %s: %v", track.ID, archive.Path(), err)
		}
	}
}

// writeDescription writes the description next to the audio file and returns its path.
func (s *ServiceImpl) writeDescription(ctx context.Context, track *soundcloud.Track, audioPath string) string {
	descriptionPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + constants.ExtensionTXT

	err := os.WriteFile(descriptionPath, []byte(track.Description), constants.DefaultFilePermissions)
	if err != nil {
		logger.Errorf(ctx, "Failed to write description %s: %v", descriptionPath, err)

		return ""
	}

	s.incrementDescriptionWritten()
	logger.Infof(ctx, "Created description file %s", descriptionPath)

	return descriptionPath
}

// lockTrack takes the per-track lock in dir without blocking.
// locked is false when another invocation holds it.
func (s *ServiceImpl) lockTrack(ctx context.Context, dir string, trackID int64) (func(), bool, error) {
	lockPath := filepath.Join(dir, strconv.FormatInt(trackID, 10)+constants.LockFileSuffix)
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	}

	if !locked {
		logger.Debugf(ctx, "Track %d is locked by another process", trackID)

		return nil, false, nil
	}

	release := func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			logger.Warnf(ctx, "Failed to unlock %s: %v", lockPath, unlockErr)
		}

		if removeErr := os.Remove(lockPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.Debugf(ctx, "Failed to remove lock file %s: %v", lockPath, removeErr)
		}
	}

	return release, true, nil
}

// meID returns the authenticated user's ID, zero when anonymous or unknown.
func (s *ServiceImpl) meID(ctx context.Context) int64 {
	if s.cfg.AuthToken == "" {
		return 0
	}

	s.meMutex.Lock()
	defer s.meMutex.Unlock()

	if s.me == nil {
		me, err := s.client.GetMe(ctx)
		if err != nil || me == nil {
			logger.Warnf(ctx, "Failed to get the authenticated user: %v", err)

			return 0
		}

		s.me = me
	}

	return s.me.ID
}

// trackBaseName returns the filename stem of track, without directory or extension.
func (s *ServiceImpl) trackBaseName(ctx context.Context, track *soundcloud.Track, playlist *PlaylistContext) string {
	return s.trackBaseNameFromTags(ctx, track, buildTemplateTags(track, playlist), playlist != nil)
}

func (s *ServiceImpl) trackBaseNameFromTags(
	ctx context.Context,
	track *soundcloud.Track,
	tags map[string]string,
	isPlaylist bool,
) string {
	title := track.Title

	if s.cfg.AddToFile {
		username := track.Username()
		if !strings.Contains(title, username) && !strings.Contains(title, "-") {
			title = username + " - " + title
			logger.Debugf(ctx, "Adding %q to filename", username)
		}
	}

	if s.cfg.AddTimestamp {
		title = strconv.FormatInt(track.CreatedAt.Unix(), 10) + "_" + title
	}

	if !s.cfg.AddToFile && !s.cfg.AddTimestamp {
		title = s.templateManager.GetTrackFilename(ctx, tags, isPlaylist)
	}

	return title
}

// trackPath joins dir with the sanitized filename, or returns "-" in stdout mode.
func (s *ServiceImpl) trackPath(dir, baseName, extension string) string {
	if s.cfg.IsStdoutMode() {
		return constants.StdoutSentinel
	}

	return filepath.Join(dir, utils.SanitizeFilenameWithExtension(baseName, extension, constants.MaxFilenameBytes))
}

// canConvertToFLAC reports lossless containers that can be re-encoded to flac.
func canConvertToFLAC(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))

	return strings.Contains(extension, "wav") || strings.Contains(extension, "aif")
}

// flacPath returns path with a .flac extension.
func flacPath(path string) string {
	return utils.SetFileExtension(path, constants.ExtensionFLAC, true)
}

// isAlreadyDownloaded decides whether the transfer to path can be skipped.
// It returns ErrAlreadyDownloaded when the track exists and no mode allows skipping it.
func (s *ServiceImpl) isAlreadyDownloaded(ctx context.Context, track *soundcloud.Track, path string) (bool, error) {
	if path == constants.StdoutSentinel {
		return false, nil
	}

	exists, err := utils.IsFileExist(path)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}

	convertible := s.cfg.ConvertToFLAC && canConvertToFLAC(path)

	onDisk := exists

	if convertible {
		flacExists, flacErr := utils.IsFileExist(flacPath(path))
		if flacErr != nil {
			return false, fmt.Errorf("failed to check %s: %w", flacPath(path), flacErr)
		}

		onDisk = onDisk || flacExists
	}

	already := onDisk

	if s.archive != nil {
		archived, archiveErr := s.archive.Contains(ctx, track.ID)
		if archiveErr != nil {
			logger.Warnf(ctx, "Download archive is unavailable for this track: %v", archiveErr)
		}

		already = already || archived
	}

	// A leftover lossless original still needs its conversion.
	if convertible && exists {
		return false, nil
	}

	if already && s.cfg.Overwrite {
		for _, candidate := range []string{path, flacPath(path)} {
			if !convertible && candidate != path {
				continue
			}

			if removeErr := os.Remove(candidate); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				return false, fmt.Errorf("failed to remove %s: %w", candidate, removeErr)
			}
		}

		return false, nil
	}

	if !already {
		return false, nil
	}

	// Only the archive knows the track, so there is nothing to retag.
	if s.cfg.ForceMetadata && !onDisk {
		return false, fmt.Errorf("%w: %s", ErrArchivedFileMissing, path)
	}

	if s.cfg.Continue || s.cfg.RemoveUnlisted || s.cfg.ForceMetadata {
		logger.Infof(ctx, "Track %q already downloaded", track.Title)

		return true, nil
	}

	return false, fmt.Errorf("%w: %s", ErrAlreadyDownloaded, path)
}
