package soundcloud

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/config"
)

func singleTrackJob(dir string) *trackJob {
	return &trackJob{dir: dir, exitOnFail: true}
}

// TestDownloadTrack_AlreadyExists tests how an existing file is handled under each mode.
//
//nolint:funlen // Table-driven test with per-mode expectations.
func TestDownloadTrack_AlreadyExists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		override        func(*config.Config)
		wantErr         error
		wantEncodes     int
		wantTagged      int
		wantContent     string
		wantSkipped     int64
		wantRetagged    int64
		wantDownloadedN int64
	}{
		{
			name:        "fails without continue",
			override:    func(*config.Config) {},
			wantErr:     ErrAlreadyDownloaded,
			wantContent: "old",
		},
		{
			name:        "continue skips the track",
			override:    func(cfg *config.Config) { cfg.Continue = true },
			wantContent: "old",
			wantSkipped: 1,
		},
		{
			name:            "overwrite downloads again",
			override:        func(cfg *config.Config) { cfg.Overwrite = true },
			wantEncodes:     1,
			wantTagged:      1,
			wantContent:     testAudioContent,
			wantDownloadedN: 1,
		},
		{
			name:         "force metadata retags the existing file",
			override:     func(cfg *config.Config) { cfg.ForceMetadata = true },
			wantTagged:   1,
			wantContent:  "old",
			wantRetagged: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			setup := newTestServiceSetup(t, tt.override)
			setup.expectStreamURL()

			path := filepath.Join(setup.dir, "Track One.mp3")
			writeTestFile(t, path, "old")

			err := setup.service.downloadTrack(t.Context(), newRunState(), newTestTrack(1, "Track One"),
				singleTrackJob(setup.dir))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			content, readErr := os.ReadFile(path)
			require.NoError(t, readErr)
			assert.Equal(t, tt.wantContent, string(content))

			assert.Equal(t, tt.wantEncodes, setup.encoder.encodeCount())
			assert.Len(t, setup.tagger.calls, tt.wantTagged)

			stats := setup.service.Statistics()
			assert.Equal(t, tt.wantSkipped, stats.TracksSkippedExists)
			assert.Equal(t, tt.wantRetagged, stats.TracksRetagged)
			assert.Equal(t, tt.wantDownloadedN, stats.TracksDownloaded)
		})
	}
}

// TestDownloadTrack_ArchiveSkip tests that an archived track is skipped and a new one is recorded.
func TestDownloadTrack_ArchiveSkip(t *testing.T) {
	t.Parallel()

	archivePath := filepath.Join(t.TempDir(), "archive.txt")
	writeTestFile(t, archivePath, "1\n")

	setup := newTestServiceSetup(t, func(cfg *config.Config) {
		cfg.DownloadArchive = archivePath
		cfg.Continue = true
	})
	setup.expectStreamURL()

	run := newRunState()

	require.NoError(t, setup.service.downloadTrack(t.Context(), run, newTestTrack(1, "Archived"),
		singleTrackJob(setup.dir)))
	require.NoError(t, setup.service.downloadTrack(t.Context(), run, newTestTrack(2, "New"),
		singleTrackJob(setup.dir)))

	assert.Equal(t, []string{"New.mp3"}, listFiles(t, setup.dir))

	ids, err := NewArchiveStore(archivePath).ReadIDs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

// TestDownloadTrack_ForceMetadataArchivedFileMissing tests that an archived track without a file fails instead of being retagged.
func TestDownloadTrack_ForceMetadataArchivedFileMissing(t *testing.T) {
	t.Parallel()

	archivePath := filepath.Join(t.TempDir(), "archive.txt")
	writeTestFile(t, archivePath, "7\n")

	setup := newTestServiceSetup(t, func(cfg *config.Config) {
		cfg.DownloadArchive = archivePath
		cfg.ForceMetadata = true
	})
	setup.expectStreamURL()

	err := setup.service.downloadTrack(t.Context(), newRunState(), newTestTrack(7, "Gone"),
		singleTrackJob(setup.dir))
	require.ErrorIs(t, err, ErrArchivedFileMissing)

	assert.Empty(t, listFiles(t, setup.dir))
	assert.Empty(t, setup.tagger.calls)
	assert.Zero(t, setup.encoder.encodeCount())

	stats := setup.service.Statistics()
	assert.Equal(t, int64(1), stats.TracksFailed)
	assert.Zero(t, stats.TracksRetagged)
}

// TestDownloadTrack_Failures tests that track failures are fatal only for single tracks.
func TestDownloadTrack_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		override   func(*config.Config)
		mutate     func(*soundcloud.Track)
		exitOnFail bool
		wantErr    error
	}{
		{
			name:       "geoblocked single track",
			override:   func(*config.Config) {},
			mutate:     func(track *soundcloud.Track) { track.Policy = "BLOCK" },
			exitOnFail: true,
			wantErr:    ErrGeoblocked,
		},
		{
			name:     "geoblocked playlist track is recorded only",
			override: func(*config.Config) {},
			mutate:   func(track *soundcloud.Track) { track.Policy = "BLOCK" },
		},
		{
			name:       "only original without an account",
			override:   func(cfg *config.Config) { cfg.OnlyOriginal = true },
			mutate:     func(*soundcloud.Track) {},
			exitOnFail: true,
			wantErr:    ErrOriginalRequired,
		},
		{
			name:       "no matching transcoding",
			override:   func(cfg *config.Config) { cfg.OnlyMP3 = true },
			mutate:     func(track *soundcloud.Track) { track.Media.Transcodings[0].Preset = "opus_0_0" },
			exitOnFail: true,
			wantErr:    ErrNoMatchingTranscoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			setup := newTestServiceSetup(t, tt.override)

			track := newTestTrack(1, "Failing")
			tt.mutate(track)

			err := setup.service.downloadTrack(t.Context(), newRunState(), track,
				&trackJob{dir: setup.dir, exitOnFail: tt.exitOnFail})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			stats := setup.service.Statistics()
			assert.Equal(t, int64(1), stats.TracksFailed)
			require.Len(t, stats.Errors, 1)
			assert.Equal(t, "1", stats.Errors[0].ItemID)
			assert.Empty(t, listFiles(t, setup.dir))
		})
	}
}

// TestDownloadTrack_SizeBounds tests that a stream estimated outside the bounds is never fetched.
func TestDownloadTrack_SizeBounds(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t, func(cfg *config.Config) {
		cfg.ParsedMaxSize = 1000
	})

	err := setup.service.downloadTrack(t.Context(), newRunState(), newTestTrack(1, "Too Big"),
		singleTrackJob(setup.dir))

	var boundsErr *SizeBoundsError
	require.ErrorAs(t, err, &boundsErr)
	assert.Equal(t, int64(16000), boundsErr.Size)
	assert.Zero(t, setup.encoder.encodeCount())
	assert.Empty(t, listFiles(t, setup.dir))
}

// TestDownloadTrack_OriginalFallsBackToStream tests that an exhausted original falls back to a stream.
func TestDownloadTrack_OriginalFallsBackToStream(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t, func(cfg *config.Config) {
		cfg.AuthToken = "token"
	})
	setup.expectStreamURL()

	track := newTestTrack(1, "Fallback")
	track.Downloadable = true

	setup.client.EXPECT().GetMe(gomock.Any()).Return(&soundcloud.User{ID: 99}, nil)
	setup.client.EXPECT().GetTrackOriginalDownload(gomock.Any(), int64(1), "").
		Return("https://cf-media.sndcdn.com/original", nil)
	setup.client.EXPECT().OpenStream(gomock.Any(), "https://cf-media.sndcdn.com/original").
		Return(nil, soundcloud.ErrNoDownloadsLeft)

	require.NoError(t, setup.service.downloadTrack(t.Context(), newRunState(), track, singleTrackJob(setup.dir)))

	assert.Equal(t, []string{"Fallback.mp3"}, listFiles(t, setup.dir))
	assert.Equal(t, 1, setup.encoder.encodeCount())
}

// TestDownloadTrack_Original tests original downloads with and without flac conversion.
func TestDownloadTrack_Original(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		override     func(*config.Config)
		wantFiles    []string
		wantEncodes  int
		wantTagged   string
		wantEncodeIn bool
	}{
		{
			name:       "kept as uploaded",
			override:   func(*config.Config) {},
			wantFiles:  []string{"Original.wav"},
			wantTagged: "Original.wav",
		},
		{
			name:       "original filename",
			override:   func(cfg *config.Config) { cfg.OriginalName = true },
			wantFiles:  []string{"My Song.wav"},
			wantTagged: "My Song.wav",
		},
		{
			name:         "converted to flac",
			override:     func(cfg *config.Config) { cfg.ConvertToFLAC = true },
			wantFiles:    []string{"Original.flac"},
			wantEncodes:  1,
			wantTagged:   "Original.flac",
			wantEncodeIn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			setup := newTestServiceSetup(t, func(cfg *config.Config) {
				cfg.AuthToken = "token"
				tt.override(cfg)
			})

			track := newTestTrack(1, "Original")
			track.UserID = 42

			header := http.Header{}
			header.Set("Content-Disposition", `attachment; filename="My%20Song.wav"`)

			setup.client.EXPECT().GetMe(gomock.Any()).Return(&soundcloud.User{ID: 42}, nil)
			setup.client.EXPECT().GetTrackOriginalDownload(gomock.Any(), int64(1), "").Return("https://original", nil)
			setup.client.EXPECT().OpenStream(gomock.Any(), "https://original").Return(&soundcloud.StreamResult{
				Body:       io.NopCloser(strings.NewReader("RIFFdata")),
				TotalBytes: 8,
				Header:     header,
			}, nil)

			require.NoError(t, setup.service.downloadTrack(t.Context(), newRunState(), track,
				singleTrackJob(setup.dir)))

			assert.Equal(t, tt.wantFiles, listFiles(t, setup.dir))
			assert.Equal(t, tt.wantEncodes, setup.encoder.encodeCount())
			assert.Equal(t, []string{filepath.Join(setup.dir, tt.wantTagged)}, setup.tagger.paths())

			content, err := os.ReadFile(filepath.Join(setup.dir, tt.wantFiles[0]))
			require.NoError(t, err)
			assert.Equal(t, "RIFFdata", string(content))

			if tt.wantEncodeIn {
				require.Len(t, setup.encoder.requests, 1)
				assert.Equal(t, "flac", setup.encoder.requests[0].Format)
				assert.NotNil(t, setup.encoder.requests[0].Input)
			}
		})
	}
}

// TestDownloadTrack_TaggingFailures tests which tagging failures fail the track.
func TestDownloadTrack_TaggingFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tagErr    error
		wantErr   error
		wantFiles []string
	}{
		{
			name:      "unsupported container keeps the file",
			tagErr:    ErrUnsupportedContainer,
			wantFiles: []string{"Tagged.mp3"},
		},
		{
			name:      "corrupted file is removed",
			tagErr:    ErrCorruptedAfterTagging,
			wantErr:   ErrCorruptedAfterTagging,
		},
		{
			name:      "other tagging errors keep the file",
			tagErr:    errors.New("disk hiccup"),
			wantFiles: []string{"Tagged.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			setup := newTestServiceSetup(t)
			setup.expectStreamURL()
			setup.tagger.err = tt.tagErr

			err := setup.service.downloadTrack(t.Context(), newRunState(), newTestTrack(1, "Tagged"),
				singleTrackJob(setup.dir))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.ElementsMatch(t, tt.wantFiles, listFiles(t, setup.dir))
		})
	}
}

// TestDownloadTrack_Description tests the description sidecar file.
func TestDownloadTrack_Description(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t, func(cfg *config.Config) {
		cfg.AddDescription = true
	})
	setup.expectStreamURL()

	track := newTestTrack(1, "Described")
	track.Description = "Recorded live."

	require.NoError(t, setup.service.downloadTrack(t.Context(), newRunState(), track, singleTrackJob(setup.dir)))

	content, err := os.ReadFile(filepath.Join(setup.dir, "Described.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Recorded live.", string(content))
	assert.Equal(t, int64(1), setup.service.Statistics().DescriptionsWritten)
}

// TestLockTrack tests that a held track lock makes the track skip.
func TestLockTrack(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t)
	lockPath := filepath.Join(setup.dir, "1.scdl.lock")

	other := flock.New(lockPath)
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	require.NoError(t, setup.service.downloadTrack(t.Context(), newRunState(), newTestTrack(1, "Locked"),
		singleTrackJob(setup.dir)))
	assert.Equal(t, int64(1), setup.service.Statistics().TracksSkippedLocked)
	assert.Zero(t, setup.encoder.encodeCount())

	require.NoError(t, other.Unlock())

	release, locked, err := setup.service.lockTrack(t.Context(), setup.dir, 1)
	require.NoError(t, err)
	require.True(t, locked)

	release()

	_, err = os.Stat(lockPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestTrackBaseName tests the filename prefixes.
func TestTrackBaseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		override func(*config.Config)
		expected string
	}{
		{
			name:     "template",
			title:    "Song",
			override: func(*config.Config) {},
			expected: "Song",
		},
		{
			name:     "uploader prepended",
			title:    "Song",
			override: func(cfg *config.Config) { cfg.AddToFile = true },
			expected: "artist - Song",
		},
		{
			name:     "uploader already in title",
			title:    "Other - Song",
			override: func(cfg *config.Config) { cfg.AddToFile = true },
			expected: "Other - Song",
		},
		{
			name:     "timestamp prepended",
			title:    "Song",
			override: func(cfg *config.Config) { cfg.AddTimestamp = true },
			expected: "1704164645_Song",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			setup := newTestServiceSetup(t, tt.override)

			assert.Equal(t, tt.expected, setup.service.trackBaseName(t.Context(), newTestTrack(1, tt.title), nil))
		})
	}
}

// TestCanConvertToFLAC tests which originals are converted.
func TestCanConvertToFLAC(t *testing.T) {
	t.Parallel()

	assert.True(t, canConvertToFLAC("a.wav"))
	assert.True(t, canConvertToFLAC("a.AIFF"))
	assert.True(t, canConvertToFLAC("a.aif"))
	assert.False(t, canConvertToFLAC("a.mp3"))
	assert.Equal(t, "dir/a.flac", flacPath("dir/a.wav"))
}
