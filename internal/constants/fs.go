package constants

import "os"

const (
	// DefaultFilePermissions is rw-r--r--.
	DefaultFilePermissions os.FileMode = 0o644

	// DefaultFolderPermissions is rwxr-xr-x.
	DefaultFolderPermissions os.FileMode = 0o755

	// MaxFilenameBytes is the longest filename most filesystems accept.
	MaxFilenameBytes = 255

	// PartFileSuffix marks files that are still being written.
	PartFileSuffix = ".part"

	// LockFileSuffix is appended to a track ID to build its per-track lock file name.
	LockFileSuffix = ".scdl.lock"

	// StdoutSentinel is the name format that streams audio to standard output.
	StdoutSentinel = "-"
)

// Audio and sidecar file extensions.
const (
	ExtensionMP3  = ".mp3"
	ExtensionM4A  = ".m4a"
	ExtensionOpus = ".opus"
	ExtensionOGG  = ".ogg"
	ExtensionFLAC = ".flac"
	ExtensionWAV  = ".wav"
	ExtensionAIFF = ".aiff"
	ExtensionAIF  = ".aif"
	ExtensionTXT  = ".txt"
)

// AudioExtensions lists the extensions a downloaded track can end up with.
// Sync reconciliation probes each of them when deleting removed tracks.
//
//nolint:gochecknoglobals // Immutable lookup list.
var AudioExtensions = []string{
	ExtensionMP3,
	ExtensionM4A,
	ExtensionOpus,
	ExtensionFLAC,
	ExtensionWAV,
}
