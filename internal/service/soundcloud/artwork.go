package soundcloud

import (
	"context"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

const (
	artworkSizeToken     = "large"
	artworkSizeOriginal  = "original"
	artworkSizeDisplayed = "t500x500"
)

// artworkCandidates lists the artwork URLs to try, preferred first.
func (s *ServiceImpl) artworkCandidates(track *soundcloud.Track) []string {
	artworkURL := track.ArtworkURL
	if artworkURL == "" && track.User != nil {
		artworkURL = track.User.AvatarURL
	}

	if artworkURL == "" {
		return nil
	}

	sizes := []string{artworkSizeDisplayed}
	if s.cfg.OriginalArt {
		sizes = []string{artworkSizeOriginal, artworkSizeDisplayed}
	}

	candidates := make([]string, 0, len(sizes))
	for _, size := range sizes {
		candidates = append(candidates, strings.Replace(artworkURL, artworkSizeToken, size, 1))
	}

	return candidates
}

// fetchArtwork returns the first usable artwork, or nil.
// Failures and non-image responses mean "no artwork".
func (s *ServiceImpl) fetchArtwork(ctx context.Context, track *soundcloud.Track) *ArtworkImage {
	for _, candidate := range s.artworkCandidates(track) {
		artwork, err := s.client.FetchArtwork(ctx, candidate)
		if err != nil {
			logger.Debugf(ctx, "Artwork %s unavailable: %v", candidate, err)

			continue
		}

		if image := validateArtwork(artwork); image != nil {
			return image
		}

		logger.Debugf(ctx, "Artwork %s rejected (status %d, type %q)",
			candidate, artwork.StatusCode, artwork.ContentType)
	}

	return nil
}

// validateArtwork accepts a 200 response whose declared and sniffed types are PNG or JPEG.
func validateArtwork(artwork *soundcloud.Artwork) *ArtworkImage {
	if artwork == nil || artwork.StatusCode != http.StatusOK || len(artwork.Data) == 0 {
		return nil
	}

	if !utils.IsImageContentType(strings.ToLower(artwork.ContentType)) {
		return nil
	}

	sniffed := mimetype.Detect(artwork.Data)
	switch {
	case sniffed.Is(utils.ImageJPEGMimeType):
		return &ArtworkImage{Data: artwork.Data, MIMEType: utils.ImageJPEGMimeType}
	case sniffed.Is(utils.ImagePNGMimeType):
		return &ArtworkImage{Data: artwork.Data, MIMEType: utils.ImagePNGMimeType}
	default:
		return nil
	}
}
