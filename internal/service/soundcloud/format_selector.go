package soundcloud

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/config"
	"github.com/oshokin/scdl-grabber/internal/constants"
)

// streamPreset is one acceptable adaptive-stream preset.
type streamPreset struct {
	// Name is matched as a prefix of the transcoding preset.
	Name string
	// Extension is the output file extension.
	Extension string
	// Format is the encoder muxer.
	Format string
}

const (
	presetAAC256 = "aac_256k"
	presetAAC    = "aac"
	presetOpus   = "opus"
	presetMP3    = "mp3"

	// Estimated stream rates in kilobytes per second. Multiplied by a duration in
	// milliseconds this yields bytes.
	aacKilobytesPerSecond   = 256 / 8
	otherKilobytesPerSecond = 128 / 8
)

// StreamChoice is the transcoding picked for a track.
type StreamChoice struct {
	// Transcoding is the selected transcoding.
	Transcoding *soundcloud.Transcoding
	// Preset is the preference entry it matched.
	Preset streamPreset
}

// FormatSelector picks the representation of a track under the configured constraints.
type FormatSelector struct {
	cfg *config.Config
}

// NewFormatSelector creates a selector for cfg.
func NewFormatSelector(cfg *config.Config) *FormatSelector {
	return &FormatSelector{cfg: cfg}
}

// AllowsOriginal reports whether the original upload should be tried first.
// meID is the authenticated user's ID, zero when anonymous.
func (fs *FormatSelector) AllowsOriginal(track *soundcloud.Track, meID int64) bool {
	if fs.cfg.AuthToken == "" || fs.cfg.OnlyMP3 || fs.cfg.NoOriginal {
		return false
	}

	return track.Downloadable || (meID != 0 && track.UserID == meID)
}

// presets returns the acceptable presets, best first.
func (fs *FormatSelector) presets() []streamPreset {
	mp3 := streamPreset{Name: presetMP3, Extension: constants.ExtensionMP3, Format: presetMP3}
	if fs.cfg.OnlyMP3 {
		return []streamPreset{mp3}
	}

	presets := []streamPreset{
		{Name: presetAAC256, Extension: constants.ExtensionM4A, Format: ffmpegFormatIPod},
		{Name: presetAAC, Extension: constants.ExtensionM4A, Format: ffmpegFormatIPod},
	}

	if fs.cfg.PreferOpus {
		presets = append(presets, streamPreset{Name: presetOpus, Extension: constants.ExtensionOpus, Format: presetOpus})
	}

	return append(presets, mp3)
}

// SelectStream picks the adaptive-stream transcoding. Within one preset the last match wins.
func (fs *FormatSelector) SelectStream(track *soundcloud.Track) (*StreamChoice, error) {
	if track.Media == nil || len(track.Media.Transcodings) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTranscodings, track.PermalinkURL)
	}

	transcodings := lo.Filter(track.Media.Transcodings, func(item *soundcloud.Transcoding, _ int) bool {
		return item != nil && item.IsHLS()
	})

	for _, preset := range fs.presets() {
		matches := lo.Filter(transcodings, func(item *soundcloud.Transcoding, _ int) bool {
			return strings.HasPrefix(item.Preset, preset.Name)
		})

		if len(matches) > 0 {
			return &StreamChoice{Transcoding: matches[len(matches)-1], Preset: preset}, nil
		}
	}

	available := lo.Map(transcodings, func(item *soundcloud.Transcoding, _ int) string {
		return item.Preset
	})

	return nil, fmt.Errorf("%w, available transcodings: [%s]", ErrNoMatchingTranscoding, strings.Join(available, ", "))
}

// EstimateSize estimates the byte size of a stream from its bitrate and duration.
func (fs *FormatSelector) EstimateSize(choice *StreamChoice, trackDuration int64) int64 {
	duration := choice.Transcoding.Duration
	if duration <= 0 {
		duration = trackDuration
	}

	rate := int64(otherKilobytesPerSecond)
	if strings.Contains(choice.Transcoding.Preset, presetAAC) {
		rate = aacKilobytesPerSecond
	}

	return rate * duration
}

// CheckSize rejects sizes outside the configured bounds.
func (fs *FormatSelector) CheckSize(size int64) error {
	return checkSizeBounds(size, fs.cfg.ParsedMinSize, fs.cfg.ParsedMaxSize)
}
