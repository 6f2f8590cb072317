package soundcloud

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Common errors for the service layer.
var (
	// ErrURLNotValid indicates that a reference did not resolve to any resource.
	ErrURLNotValid = errors.New("URL is not valid")
	// ErrUnknownResourceKind indicates a resolved resource this service cannot download.
	ErrUnknownResourceKind = errors.New("unknown item type")
	// ErrMissingDownloadType indicates a user profile without a selected collection.
	ErrMissingDownloadType = errors.New(
		"please provide a download type: likes, commented, uploads, all, playlists or reposts")
	// ErrGeoblocked indicates that the track is not available in the caller's region.
	ErrGeoblocked = errors.New("track is not available in your location")
	// ErrNoTranscodings indicates a track without any transcoding.
	ErrNoTranscodings = errors.New("track has no transcodings available")
	// ErrNoMatchingTranscoding indicates that no transcoding matches the allowed presets.
	ErrNoMatchingTranscoding = errors.New("could not find valid transcoding")
	// ErrAlreadyDownloaded indicates an existing track while neither continue, remove nor force-metadata is set.
	ErrAlreadyDownloaded = errors.New("track already exists, run again with --continue to skip it")
	// ErrArchivedFileMissing indicates an archived track whose file is gone while force-metadata is set.
	ErrArchivedFileMissing = errors.New("track is in the download archive but its file is missing, nothing to retag")
	// ErrOriginalRequired indicates that only originals are allowed and the track has none.
	ErrOriginalRequired = errors.New("track does not have original file available")
	// ErrIncompleteDownload indicates that the stream ended before the advertised length.
	ErrIncompleteDownload = errors.New("incomplete download")
	// ErrMissingFilename indicates an original download without a filename in Content-Disposition.
	ErrMissingFilename = errors.New("could not get filename from content-disposition")
	// ErrUnsupportedContainer indicates a file whose container cannot carry tags.
	ErrUnsupportedContainer = errors.New("container is unsupported for tagging")
	// ErrCorruptedAfterTagging indicates that the file could not be read back after tagging.
	ErrCorruptedAfterTagging = errors.New("file is unreadable after tagging")
	// ErrUnknownCollectionItem indicates a collection item that is neither a track nor a playlist.
	ErrUnknownCollectionItem = errors.New("unknown collection item type")
	// ErrTrackNotFound indicates that a track reference could not be materialized.
	ErrTrackNotFound = errors.New("track not found")
	// ErrUnknownPlaceholder indicates a naming template that uses an unknown placeholder.
	ErrUnknownPlaceholder = errors.New("naming template uses an unknown placeholder")
	// ErrEmptyTrackPath indicates that the track file path is empty.
	ErrEmptyTrackPath = errors.New("track path cannot be empty")
)

// SizeBoundsError reports a track whose size falls outside the configured bounds.
type SizeBoundsError struct {
	// Size is the estimated or advertised size in bytes.
	Size int64
	// Min is the lower bound, zero when unset.
	Min int64
	// Max is the upper bound, zero when unset.
	Max int64
}

// Error implements the error interface.
func (e *SizeBoundsError) Error() string {
	maxLabel := "∞"
	if e.Max > 0 {
		maxLabel = humanize.Bytes(uint64(e.Max)) //nolint:gosec // Bounds are validated as non-negative.
	}

	//nolint:gosec // Sizes are never negative here.
	return fmt.Sprintf("file size %s is not within the bounds [%s, %s]",
		humanize.Bytes(uint64(e.Size)), humanize.Bytes(uint64(e.Min)), maxLabel)
}

// checkSizeBounds returns a SizeBoundsError when size is outside [minSize, maxSize].
// A zero bound is unset.
func checkSizeBounds(size, minSize, maxSize int64) error {
	upper := maxSize
	if upper <= 0 {
		upper = math.MaxInt64
	}

	if size < minSize || size > upper {
		return &SizeBoundsError{Size: size, Min: minSize, Max: maxSize}
	}

	return nil
}

// FFmpegError carries the diagnostic output of a failed encoder run.
type FFmpegError struct {
	// ExitCode is the process exit status.
	ExitCode int
	// Stderr is the collected diagnostic stream.
	Stderr string
}

// Error implements the error interface.
func (e *FFmpegError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	}

	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, e.Stderr)
}

// isRunFatal reports errors that stop the run whatever the strict setting.
func isRunFatal(err error) bool {
	return errors.Is(err, ErrAlreadyDownloaded) || errors.Is(err, context.Canceled)
}

// ErrorContext provides context information for download errors.
type ErrorContext struct {
	// Category is the type of item that failed (track, playlist, user).
	Category DownloadCategory
	// ItemID is the unique identifier of the item that failed.
	ItemID string
	// ItemTitle is the human-readable title of the item.
	ItemTitle string
	// ItemURL is the URL of the failed item.
	ItemURL string
	// Phase indicates when the error occurred (e.g., "resolving", "downloading track").
	Phase string
	// ParentCategory is the type of parent collection for tracks.
	ParentCategory DownloadCategory
	// ParentID is the ID of the parent collection.
	ParentID string
	// ParentTitle is the title of the parent collection.
	ParentTitle string
}

// recordError records an error in the statistics with proper context.
// Context cancellation errors are ignored as they are expected during graceful shutdown.
func (s *ServiceImpl) recordError(errCtx *ErrorContext, err error) {
	if errCtx == nil || err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		return
	}

	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.Errors = append(s.stats.Errors, DownloadError{
		Category:       errCtx.Category,
		ItemID:         errCtx.ItemID,
		ItemTitle:      errCtx.ItemTitle,
		ItemURL:        errCtx.ItemURL,
		ErrorMessage:   err.Error(),
		Phase:          errCtx.Phase,
		ParentCategory: errCtx.ParentCategory,
		ParentID:       errCtx.ParentID,
		ParentTitle:    errCtx.ParentTitle,
	})
}
