package soundcloud

//go:generate $MOCKGEN -source=url_processor.go -destination=mocks/url_processor_mock.go

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

// ReferenceNormalizer turns user input into canonical platform URLs.
type ReferenceNormalizer interface {
	// NormalizeReferences expands reference lists and returns unique canonical URLs in input order.
	NormalizeReferences(ctx context.Context, references []string) ([]string, error)
	// NormalizeReference canonicalizes a single reference.
	NormalizeReference(ctx context.Context, reference string) (string, error)
}

// ReferenceNormalizerImpl implements the ReferenceNormalizer interface.
type ReferenceNormalizerImpl struct {
	client soundcloud.Client
}

const (
	platformHost      = "soundcloud.com"
	shortLinkHost     = "on.soundcloud.com"
	meReference       = "me"
	httpsSchemePrefix = "https://"
)

// hostPrefixes are stripped from the platform host.
//
//nolint:gochecknoglobals // Immutable lookup list.
var hostPrefixes = []string{"m.", "www."}

// NewReferenceNormalizer creates a normalizer that uses client for short links and "me".
func NewReferenceNormalizer(client soundcloud.Client) ReferenceNormalizer {
	return &ReferenceNormalizerImpl{client: client}
}

// NormalizeReferences expands .txt files into their lines, normalizes each reference and
// drops duplicates. A reference that cannot be normalized fails the whole call.
func (rn *ReferenceNormalizerImpl) NormalizeReferences(ctx context.Context, references []string) ([]string, error) {
	flattened, err := flattenReferences(references)
	if err != nil {
		return nil, err
	}

	var (
		seen   = make(map[string]struct{}, len(flattened))
		result = make([]string, 0, len(flattened))
	)

	for _, reference := range flattened {
		normalized, normalizeErr := rn.NormalizeReference(ctx, reference)
		if normalizeErr != nil {
			return nil, normalizeErr
		}

		if _, ok := seen[normalized]; ok {
			logger.Debugf(ctx, "Skipping duplicate reference %s", normalized)

			continue
		}

		seen[normalized] = struct{}{}

		result = append(result, normalized)
	}

	return result, nil
}

// NormalizeReference canonicalizes reference into scheme, host and path.
func (rn *ReferenceNormalizerImpl) NormalizeReference(ctx context.Context, reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", fmt.Errorf("%w: empty reference", ErrURLNotValid)
	}

	if reference == meReference {
		me, err := rn.client.GetMe(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %q: %w", meReference, err)
		}

		reference = me.PermalinkURL
	}

	parsed, err := parseReference(reference)
	if err != nil {
		return "", err
	}

	if parsed.Host == shortLinkHost {
		target, redirectErr := rn.client.FollowRedirects(ctx, parsed.String())
		if redirectErr != nil {
			return "", fmt.Errorf("failed to follow short link %s: %w", reference, redirectErr)
		}

		logger.Debugf(ctx, "Short link %s points to %s", reference, target)

		if parsed, err = parseReference(target); err != nil {
			return "", err
		}
	}

	return parsed.String(), nil
}

// parseReference accepts full URLs, scheme-less platform URLs and bare usernames.
func parseReference(reference string) (*url.URL, error) {
	lowered := strings.ToLower(reference)

	switch {
	case strings.HasPrefix(lowered, "http://"), strings.HasPrefix(lowered, httpsSchemePrefix):
	case isPlatformHost(strings.SplitN(lowered, "/", 2)[0]): //nolint:mnd // Host and the rest.
		reference = httpsSchemePrefix + reference
	default:
		reference = httpsSchemePrefix + platformHost + "/" + strings.TrimPrefix(reference, "/")
	}

	parsed, err := url.Parse(reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrURLNotValid, reference, err)
	}

	parsed.Host = strings.ToLower(parsed.Host)
	for _, prefix := range hostPrefixes {
		parsed.Host = strings.TrimPrefix(parsed.Host, prefix)
	}

	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrURLNotValid, reference)
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.User = nil

	return parsed, nil
}

func isPlatformHost(host string) bool {
	return host == platformHost || strings.HasSuffix(host, "."+platformHost)
}

// flattenReferences replaces text files with their unique lines.
func flattenReferences(references []string) ([]string, error) {
	var (
		processedTextFiles = make(map[string]struct{})
		result             = make([]string, 0, len(references))
	)

	for _, reference := range references {
		if !strings.HasSuffix(reference, constants.ExtensionTXT) {
			result = append(result, reference)

			continue
		}

		if _, exists := processedTextFiles[reference]; exists {
			continue
		}

		lines, err := utils.ReadUniqueLinesFromFile(reference)
		if err != nil {
			return nil, err
		}

		result = append(result, lines...)
		processedTextFiles[reference] = struct{}{}
	}

	return result, nil
}
