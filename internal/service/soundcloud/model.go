package soundcloud

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/scdl-grabber/internal/constants"
)

// DownloadCategory represents the type of content being downloaded.
type DownloadCategory uint8

const (
	// DownloadCategoryUnknown - unknown category.
	DownloadCategoryUnknown DownloadCategory = iota
	// DownloadCategoryTrack - single track.
	DownloadCategoryTrack
	// DownloadCategoryPlaylist - playlist or album.
	DownloadCategoryPlaylist
	// DownloadCategoryUser - user collection.
	DownloadCategoryUser
)

// String returns a human-readable representation of the DownloadCategory.
func (dc DownloadCategory) String() string {
	switch dc {
	case DownloadCategoryUnknown:
		return "unknown"
	case DownloadCategoryTrack:
		return "track"
	case DownloadCategoryPlaylist:
		return "playlist"
	case DownloadCategoryUser:
		return "user"
	default:
		return fmt.Sprintf("unknown: %d", dc)
	}
}

// SkipReason represents why a track was skipped.
type SkipReason uint8

const (
	// SkipReasonExists - track file already exists or is archived.
	SkipReasonExists SkipReason = iota
	// SkipReasonLocked - another invocation holds the track lock.
	SkipReasonLocked
)

// String returns a human-readable representation of the SkipReason.
func (sr SkipReason) String() string {
	switch sr {
	case SkipReasonExists:
		return "already exists"
	case SkipReasonLocked:
		return "locked by another process"
	default:
		return fmt.Sprintf("unknown reason: %d", sr)
	}
}

// Container is the audio container of a file on disk.
type Container uint8

const (
	// ContainerUnknown is any container without a tag writer.
	ContainerUnknown Container = iota
	// ContainerMP3 is an MPEG audio stream.
	ContainerMP3
	// ContainerMP4 is an MPEG-4 audio file (m4a).
	ContainerMP4
	// ContainerFLAC is a native FLAC stream.
	ContainerFLAC
	// ContainerOgg is an Ogg stream carrying Vorbis or Opus.
	ContainerOgg
	// ContainerWAV is a RIFF WAVE file.
	ContainerWAV
	// ContainerAIFF is an AIFF file.
	ContainerAIFF
)

// String returns the container name.
func (c Container) String() string {
	switch c {
	case ContainerUnknown:
		return "unknown"
	case ContainerMP3:
		return "mp3"
	case ContainerMP4:
		return "mp4"
	case ContainerFLAC:
		return "flac"
	case ContainerOgg:
		return "ogg"
	case ContainerWAV:
		return "wav"
	case ContainerAIFF:
		return "aiff"
	default:
		return fmt.Sprintf("unknown: %d", c)
	}
}

// TagFamily groups containers sharing a tag format.
type TagFamily uint8

const (
	// TagFamilyNone means the container cannot be tagged.
	TagFamilyNone TagFamily = iota
	// TagFamilyID3 covers mp3, wav and aiff.
	TagFamilyID3
	// TagFamilyVorbis covers flac and ogg.
	TagFamilyVorbis
	// TagFamilyMP4 covers m4a.
	TagFamilyMP4
)

// TagFamily returns the tag format used by the container.
func (c Container) TagFamily() TagFamily {
	switch c {
	case ContainerMP3, ContainerWAV, ContainerAIFF:
		return TagFamilyID3
	case ContainerFLAC, ContainerOgg:
		return TagFamilyVorbis
	case ContainerMP4:
		return TagFamilyMP4
	case ContainerUnknown:
		return TagFamilyNone
	default:
		return TagFamilyNone
	}
}

// containerFromExtension maps a file extension onto a Container.
func containerFromExtension(path string) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case constants.ExtensionMP3:
		return ContainerMP3
	case constants.ExtensionM4A, ".mp4":
		return ContainerMP4
	case constants.ExtensionFLAC:
		return ContainerFLAC
	case constants.ExtensionOGG, constants.ExtensionOpus:
		return ContainerOgg
	case constants.ExtensionWAV:
		return ContainerWAV
	case constants.ExtensionAIFF, constants.ExtensionAIF:
		return ContainerAIFF
	default:
		return ContainerUnknown
	}
}

// PlaylistContext carries album linkage for a track downloaded as part of a playlist.
type PlaylistContext struct {
	// ID is the playlist ID.
	ID int64
	// Title is the playlist title, used as the album title.
	Title string
	// Author is the playlist owner's username, used as the album artist.
	Author string
	// TrackNumber is the 1-based position within the filtered sequence.
	TrackNumber int
	// TrackNumberPadded is TrackNumber zero-padded to the digit count of TrackTotal.
	TrackNumberPadded string
	// TrackTotal is the length of the filtered sequence.
	TrackTotal int
}

// withPosition returns a copy of the context positioned at number.
func (pc PlaylistContext) withPosition(number int) *PlaylistContext {
	pc.TrackNumber = number
	pc.TrackNumberPadded = padTrackNumber(number, pc.TrackTotal)

	return &pc
}

// padTrackNumber zero-pads number to the digit count of total.
func padTrackNumber(number, total int) string {
	width := len(strconv.Itoa(total))

	return fmt.Sprintf("%0*d", width, number)
}

// ArtworkImage is a validated cover image.
type ArtworkImage struct {
	// Data contains the raw image bytes.
	Data []byte
	// MIMEType is the sniffed image type.
	MIMEType string
}

// AlbumInfo is the album linkage of a MetadataRecord.
type AlbumInfo struct {
	Title       string
	Author      string
	TrackNumber int
	TrackTotal  int
}

// MetadataRecord is the codec-agnostic set of tags written into a file.
type MetadataRecord struct {
	Artist      string
	Title       string
	Description string
	Genre       string
	// Link is the canonical track URL.
	Link string
	// Date is the creation time as "2006-01-02 15:04:05".
	Date    string
	Artwork *ArtworkImage
	// Album is nil outside a playlist or when album tags are suppressed.
	Album *AlbumInfo
}

// AcquisitionResult is the outcome of fetching one representation.
type AcquisitionResult struct {
	// Path is the destination, or "-" for standard output.
	Path string
	// AlreadyExisted reports that the transfer was skipped.
	AlreadyExisted bool
	// BytesWritten is the size of the transfer.
	BytesWritten int64
}

// trackJob is the unit of work for one track.
type trackJob struct {
	// dir is the directory the track is written to.
	dir string
	// playlist is set when the track belongs to a playlist.
	playlist *PlaylistContext
	// exitOnFail turns a track failure into a fatal error.
	exitOnFail bool
	// syncArchive receives the ID of the track once it is on disk. Nil outside sync mode.
	syncArchive *ArchiveStore
}

// runState is threaded through one DownloadURLs call.
type runState struct {
	// kept holds the paths of tracks produced or confirmed in this run.
	kept map[string]struct{}
	// dirs holds the directories tracks were written to.
	dirs map[string]struct{}
}

func newRunState() *runState {
	return &runState{
		kept: make(map[string]struct{}),
		dirs: make(map[string]struct{}),
	}
}

// keep records path as part of this run.
func (r *runState) keep(path string) {
	if path == "" || path == constants.StdoutSentinel {
		return
	}

	cleaned := filepath.Clean(path)
	r.kept[cleaned] = struct{}{}
	r.dirs[filepath.Dir(cleaned)] = struct{}{}
}

// isKept reports whether path was recorded.
func (r *runState) isKept(path string) bool {
	_, ok := r.kept[filepath.Clean(path)]

	return ok
}

// DownloadStatistics tracks metrics for a download session.
type DownloadStatistics struct {
	// StartTime is when the download session began.
	StartTime time.Time
	// EndTime is when the download session completed.
	EndTime time.Time
	// TotalTracksProcessed is the total number of tracks attempted.
	TotalTracksProcessed int64
	// TracksDownloaded is the number of tracks successfully downloaded.
	TracksDownloaded int64
	// TracksRetagged is the number of existing tracks whose tags were rewritten.
	TracksRetagged int64
	// TracksSkipped is the total number of tracks skipped for any reason.
	TracksSkipped int64
	// TracksSkippedExists is the number of tracks skipped because they already exist.
	TracksSkippedExists int64
	// TracksSkippedLocked is the number of tracks skipped because another process owns them.
	TracksSkippedLocked int64
	// TracksFailed is the number of tracks that failed to download.
	TracksFailed int64
	// TracksRemoved is the number of local files deleted by sync or remove-unlisted.
	TracksRemoved int64
	// DescriptionsWritten is the number of description sidecar files written.
	DescriptionsWritten int64
	// CoversEmbedded is the number of tracks tagged with artwork.
	CoversEmbedded int64
	// TotalBytesDownloaded is the total size of downloaded content in bytes.
	TotalBytesDownloaded int64
	// Errors is a list of all errors encountered during the download process.
	Errors []DownloadError
}

// DownloadError represents a single error that occurred during download.
type DownloadError struct {
	// Category is the type of item that failed.
	Category DownloadCategory
	// ItemID is the unique identifier of the item that failed.
	ItemID string
	// ItemTitle is the human-readable title of the item.
	ItemTitle string
	// ItemURL is the URL of the failed item.
	ItemURL string
	// ErrorMessage is the error message.
	ErrorMessage string
	// Phase indicates when the error occurred.
	Phase string
	// ParentCategory is the type of parent collection for tracks.
	ParentCategory DownloadCategory
	// ParentID is the ID of the parent collection.
	ParentID string
	// ParentTitle is the title of the parent collection.
	ParentTitle string
}
