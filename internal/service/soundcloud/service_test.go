package soundcloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	mock_soundcloud "github.com/oshokin/scdl-grabber/internal/client/soundcloud/mocks"
	"github.com/oshokin/scdl-grabber/internal/config"
)

const (
	testStreamURL    = "https://cf-hls-media.sndcdn.com/playlist/test.m3u8"
	testAudioContent = "encoded audio"
)

// fakeNormalizer passes references through unchanged.
type fakeNormalizer struct{}

func (f *fakeNormalizer) NormalizeReferences(_ context.Context, references []string) ([]string, error) {
	return references, nil
}

func (f *fakeNormalizer) NormalizeReference(_ context.Context, reference string) (string, error) {
	return reference, nil
}

// taggedFile is one recorded WriteTags call.
type taggedFile struct {
	path   string
	record *MetadataRecord
}

// fakeTagProcessor records WriteTags calls.
type fakeTagProcessor struct {
	mu    sync.Mutex
	calls []taggedFile
	err   error
}

func (f *fakeTagProcessor) WriteTags(_ context.Context, path string, record *MetadataRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, taggedFile{path: path, record: record})

	return f.err
}

func (f *fakeTagProcessor) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	paths := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		paths = append(paths, call.path)
	}

	return paths
}

// fakeEncoder writes fixed content, or the piped input, to the requested output.
type fakeEncoder struct {
	mu             sync.Mutex
	requests       []*EncodeRequest
	remuxes        []*RemuxRequest
	remuxMetadata  []string
	encodeErr      error
	remuxErr       error
	encodedContent []byte
}

func (f *fakeEncoder) Encode(_ context.Context, req *EncodeRequest) (int64, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.encodeErr != nil {
		return 0, f.encodeErr
	}

	content := f.encodedContent
	if content == nil {
		content = []byte(testAudioContent)
	}

	if req.Input != nil {
		piped, err := io.ReadAll(req.Input)
		if err != nil {
			return 0, err
		}

		content = piped
	}

	if req.OutputPath == "-" {
		n, err := req.Output.Write(content)

		return int64(n), err
	}

	if err := os.WriteFile(req.OutputPath, content, 0o600); err != nil {
		return 0, err
	}

	return int64(len(content)), nil
}

func (f *fakeEncoder) Remux(_ context.Context, req *RemuxRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.remuxes = append(f.remuxes, req)

	// The metadata file lives in a temporary directory removed after Remux returns.
	metadata, err := os.ReadFile(req.MetadataPath)
	if err != nil {
		return err
	}

	f.remuxMetadata = append(f.remuxMetadata, string(metadata))

	return f.remuxErr
}

func (f *fakeEncoder) encodeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.requests)
}

// testServiceSetup encapsulates common test dependencies and configuration.
type testServiceSetup struct {
	service *ServiceImpl
	client  *mock_soundcloud.MockClient
	encoder *fakeEncoder
	tagger  *fakeTagProcessor
	config  *config.Config
	dir     string
}

// newTestServiceSetup creates a service writing into a temporary directory.
func newTestServiceSetup(t *testing.T, configOverrides ...func(*config.Config)) *testServiceSetup {
	t.Helper()

	ctrl := gomock.NewController(t)
	client := mock_soundcloud.NewMockClient(ctrl)
	dir := t.TempDir()

	cfg := &config.Config{
		OutputPath:         dir,
		NameFormat:         config.DefaultNameFormat,
		PlaylistNameFormat: config.DefaultPlaylistNameFormat,
		FFmpegPath:         config.DefaultFFmpegPath,
		Offset:             1,
		HideProgress:       true,
	}

	for _, override := range configOverrides {
		override(cfg)
	}

	templateManager, err := NewTemplateManager(cfg)
	require.NoError(t, err)

	var (
		encoder = new(fakeEncoder)
		tagger  = new(fakeTagProcessor)
	)

	service := newServiceImpl(cfg, client, new(fakeNormalizer), templateManager, tagger, encoder)

	return &testServiceSetup{
		service: service,
		client:  client,
		encoder: encoder,
		tagger:  tagger,
		config:  cfg,
		dir:     dir,
	}
}

// expectStreamURL allows any number of stream URL lookups.
func (s *testServiceSetup) expectStreamURL() {
	s.client.EXPECT().
		GetTranscodingStreamURL(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testStreamURL, nil).
		AnyTimes()
}

// listFiles returns the names of regular files in dir, sorted.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	return names
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// newTestTrack creates a full track with a single progressive-free HLS mp3 transcoding.
func newTestTrack(id int64, title string) *soundcloud.Track {
	return &soundcloud.Track{
		ID:           id,
		Kind:         "track",
		Title:        title,
		Genre:        "Electronic",
		Permalink:    fmt.Sprintf("track-%d", id),
		PermalinkURL: fmt.Sprintf("https://soundcloud.com/artist/track-%d", id),
		CreatedAt:    time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC),
		Duration:     1000,
		Streamable:   true,
		UserID:       1,
		User:         &soundcloud.User{ID: 1, Username: "artist"},
		Media: &soundcloud.Media{
			Transcodings: []*soundcloud.Transcoding{
				{
					URL:      fmt.Sprintf("https://api-v2.soundcloud.com/media/soundcloud:tracks:%d/hls", id),
					Preset:   "mp3_0_0",
					Duration: 1000,
					Format:   soundcloud.TranscodingFormat{Protocol: "hls", MimeType: "audio/mpeg"},
				},
			},
		},
	}
}

func newTestPlaylist(id int64, title string, tracks ...*soundcloud.Track) *soundcloud.Playlist {
	return &soundcloud.Playlist{
		ID:           id,
		Kind:         "playlist",
		Title:        title,
		PermalinkURL: fmt.Sprintf("https://soundcloud.com/artist/sets/playlist-%d", id),
		TrackCount:   int64(len(tracks)),
		User:         &soundcloud.User{ID: 2, Username: "curator"},
		Tracks:       tracks,
	}
}

// TestNewService tests the NewService function.
func TestNewService(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)

	cfg := &config.Config{OutputPath: t.TempDir(), DownloadArchive: "archive.txt"}

	service := NewService(
		cfg,
		mock_soundcloud.NewMockClient(ctrl),
		new(fakeNormalizer),
		nil,
		new(fakeTagProcessor),
		new(fakeEncoder),
	)

	require.NotNil(t, service)

	impl, ok := service.(*ServiceImpl)
	require.True(t, ok)
	require.NotNil(t, impl.archive)
	assert.Equal(t, "archive.txt", impl.archive.Path())
	assert.Nil(t, impl.limiter)
}

// TestServiceImpl_DownloadURLs_Track tests that a resolved track is downloaded and tagged.
func TestServiceImpl_DownloadURLs_Track(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t)
	track := newTestTrack(1, "Track One")
	reference := "https://soundcloud.com/artist/track-1"

	setup.client.EXPECT().Resolve(gomock.Any(), reference).
		Return(&soundcloud.ResolvedResource{Kind: soundcloud.ResourceKindTrack, Track: track}, nil)
	setup.expectStreamURL()

	err := setup.service.DownloadURLs(t.Context(), []string{reference})
	require.NoError(t, err)

	assert.Equal(t, []string{"Track One.mp3"}, listFiles(t, setup.dir))

	require.Len(t, setup.encoder.requests, 1)
	assert.Equal(t, testStreamURL, setup.encoder.requests[0].InputURL)
	assert.Equal(t, "mp3", setup.encoder.requests[0].Format)
	assert.True(t, setup.encoder.requests[0].CopyCodec)

	require.Len(t, setup.tagger.calls, 1)
	record := setup.tagger.calls[0].record
	assert.Equal(t, "artist", record.Artist)
	assert.Equal(t, "Track One", record.Title)
	assert.Equal(t, "2024-01-02 03:04:05", record.Date)
	assert.Nil(t, record.Album)

	stat, err := os.Stat(filepath.Join(setup.dir, "Track One.mp3"))
	require.NoError(t, err)
	assert.True(t, stat.ModTime().Equal(track.CreatedAt))

	stats := setup.service.Statistics()
	assert.Equal(t, int64(1), stats.TracksDownloaded)
	assert.Equal(t, int64(len(testAudioContent)), stats.TotalBytesDownloaded)
}

// TestServiceImpl_DownloadURLs_Unresolved tests that an unresolvable reference stops the run.
func TestServiceImpl_DownloadURLs_Unresolved(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t)

	setup.client.EXPECT().Resolve(gomock.Any(), "https://soundcloud.com/nothing").Return(nil, nil)

	err := setup.service.DownloadURLs(t.Context(), []string{"https://soundcloud.com/nothing"})
	require.ErrorIs(t, err, ErrURLNotValid)

	stats := setup.service.Statistics()
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, "resolving", stats.Errors[0].Phase)
}

// TestServiceImpl_DownloadURLs_NothingToDownload tests that an empty reference list is rejected.
func TestServiceImpl_DownloadURLs_NothingToDownload(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t)

	err := setup.service.DownloadURLs(t.Context(), nil)
	require.ErrorIs(t, err, ErrURLNotValid)
}

// TestServiceImpl_DownloadURLs_Search tests that the first search hit is downloaded.
func TestServiceImpl_DownloadURLs_Search(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t, func(cfg *config.Config) {
		cfg.Search = "some query"
	})

	track := newTestTrack(5, "Found")

	setup.client.EXPECT().SearchFirst(gomock.Any(), "some query").Return(track.PermalinkURL, nil)
	setup.client.EXPECT().Resolve(gomock.Any(), track.PermalinkURL).
		Return(&soundcloud.ResolvedResource{Kind: soundcloud.ResourceKindTrack, Track: track}, nil)
	setup.expectStreamURL()

	require.NoError(t, setup.service.DownloadURLs(t.Context(), nil))
	assert.Equal(t, []string{"Found.mp3"}, listFiles(t, setup.dir))
}

// TestServiceImpl_DownloadURLs_UserWithoutDownloadType tests that a profile needs a collection flag.
func TestServiceImpl_DownloadURLs_UserWithoutDownloadType(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t)

	setup.client.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(&soundcloud.ResolvedResource{
		Kind: soundcloud.ResourceKindUser,
		User: &soundcloud.User{ID: 3, Username: "someone"},
	}, nil)

	err := setup.service.DownloadURLs(t.Context(), []string{"https://soundcloud.com/someone"})
	require.ErrorIs(t, err, ErrMissingDownloadType)
}

// TestServiceImpl_DownloadURLs_Stdout tests that stdout mode streams audio and writes no files.
func TestServiceImpl_DownloadURLs_Stdout(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t, func(cfg *config.Config) {
		cfg.NameFormat = "-"
	})

	var output bytes.Buffer

	setup.service.stdout = &output

	track := newTestTrack(1, "Streamed")

	setup.client.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		Return(&soundcloud.ResolvedResource{Kind: soundcloud.ResourceKindTrack, Track: track}, nil)
	setup.expectStreamURL()

	require.NoError(t, setup.service.DownloadURLs(t.Context(), []string{track.PermalinkURL}))

	assert.Equal(t, testAudioContent, output.String())
	assert.Empty(t, listFiles(t, setup.dir))
	assert.Empty(t, setup.tagger.calls)
	assert.Equal(t, int64(1), setup.service.Statistics().TracksDownloaded)
}

// TestServiceImpl_DownloadURLs_Canceled tests that a canceled context stops before resolving.
func TestServiceImpl_DownloadURLs_Canceled(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := setup.service.DownloadURLs(ctx, []string{"https://soundcloud.com/artist/track"})
	require.ErrorIs(t, err, context.Canceled)
}

// TestServiceImpl_RemoveUnlisted tests that audio files outside the run are deleted with their descriptions.
func TestServiceImpl_RemoveUnlisted(t *testing.T) {
	t.Parallel()

	setup := newTestServiceSetup(t, func(cfg *config.Config) {
		cfg.RemoveUnlisted = true
	})

	writeTestFile(t, filepath.Join(setup.dir, "Stale.mp3"), "old")
	writeTestFile(t, filepath.Join(setup.dir, "Stale.txt"), "old description")
	writeTestFile(t, filepath.Join(setup.dir, "notes.txt"), "keep me")
	writeTestFile(t, filepath.Join(setup.dir, "cover.jpg"), "not audio")
	writeTestFile(t, filepath.Join(setup.dir, "Kept.m4a"), "already here")

	kept := newTestTrack(1, "Kept")
	kept.Media.Transcodings[0].Preset = "aac_160k"

	fresh := newTestTrack(2, "Fresh")

	setup.client.EXPECT().Resolve(gomock.Any(), kept.PermalinkURL).
		Return(&soundcloud.ResolvedResource{Kind: soundcloud.ResourceKindTrack, Track: kept}, nil)
	setup.client.EXPECT().Resolve(gomock.Any(), fresh.PermalinkURL).
		Return(&soundcloud.ResolvedResource{Kind: soundcloud.ResourceKindTrack, Track: fresh}, nil)
	setup.expectStreamURL()

	err := setup.service.DownloadURLs(t.Context(), []string{kept.PermalinkURL, fresh.PermalinkURL})
	require.NoError(t, err)

	assert.Equal(t, []string{"Fresh.mp3", "Kept.m4a", "cover.jpg", "notes.txt"}, listFiles(t, setup.dir))

	stats := setup.service.Statistics()
	assert.Equal(t, int64(1), stats.TracksRemoved)
	assert.Equal(t, int64(1), stats.TracksSkippedExists)
	assert.Equal(t, int64(1), stats.TracksDownloaded)
}

// TestIsAudioFile tests the extensions considered by remove-unlisted.
func TestIsAudioFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected bool
	}{
		{"a.mp3", true},
		{"a.M4A", true},
		{"a.opus", true},
		{"a.flac", true},
		{"a.wav", true},
		{"a.ogg", true},
		{"a.aiff", true},
		{"a.aif", true},
		{"a.txt", false},
		{"archive.txt.lock", false},
		{"1.scdl.lock", false},
		{"cover.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, isAudioFile(tt.name))
		})
	}
}
