package soundcloud

//go:generate $MOCKGEN -source=service.go -destination=mocks/service_mock.go

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/config"
	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
)

// Service downloads tracks, playlists and user collections.
type Service interface {
	// DownloadURLs resolves every reference and downloads it.
	// The returned error is non-nil when the run hit a fatal condition.
	DownloadURLs(ctx context.Context, references []string) error
	// PrintDownloadSummary prints a formatted summary of download statistics.
	PrintDownloadSummary(ctx context.Context)
}

// ServiceImpl orchestrates resolution, acquisition and tagging. Tracks are processed
// strictly one after another.
type ServiceImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// client is the platform API client.
	client soundcloud.Client
	// normalizer canonicalizes references.
	normalizer ReferenceNormalizer
	// templateManager generates filenames.
	templateManager TemplateManager
	// tagProcessor writes metadata tags to audio files.
	tagProcessor TagProcessor
	// encoder runs the external media process.
	encoder Encoder
	// formatSelector picks representations.
	formatSelector *FormatSelector
	// archive is the download archive, nil when disabled.
	archive *ArchiveStore
	// errorHandler logs and records failures.
	errorHandler *ErrorHandler
	// limiter throttles direct downloads, nil when unlimited.
	limiter *rate.Limiter
	// stdout receives audio in stdout mode.
	stdout io.Writer
	// me caches the authenticated user.
	me *soundcloud.User
	// meMutex protects me.
	meMutex *sync.Mutex
	// stats tracks download statistics for the current session.
	stats *DownloadStatistics
	// statsMutex protects concurrent access to statistics.
	statsMutex *sync.Mutex
}

// NewService creates a download service instance with dependency-injected components.
func NewService(
	cfg *config.Config,
	client soundcloud.Client,
	normalizer ReferenceNormalizer,
	templateManager TemplateManager,
	tagProcessor TagProcessor,
	encoder Encoder,
) Service {
	return newServiceImpl(cfg, client, normalizer, templateManager, tagProcessor, encoder)
}

func newServiceImpl(
	cfg *config.Config,
	client soundcloud.Client,
	normalizer ReferenceNormalizer,
	templateManager TemplateManager,
	tagProcessor TagProcessor,
	encoder Encoder,
) *ServiceImpl {
	s := &ServiceImpl{
		cfg:             cfg,
		client:          client,
		normalizer:      normalizer,
		templateManager: templateManager,
		tagProcessor:    tagProcessor,
		encoder:         encoder,
		formatSelector:  NewFormatSelector(cfg),
		limiter:         newRateLimiter(cfg.ParsedDownloadSpeedLimit),
		stdout:          os.Stdout,
		meMutex:         new(sync.Mutex),
		stats:           new(DownloadStatistics),
		statsMutex:      new(sync.Mutex),
	}

	if cfg.DownloadArchive != "" {
		s.archive = NewArchiveStore(cfg.DownloadArchive)
	}

	s.errorHandler = NewErrorHandler(s)

	return s
}

// DownloadURLs resolves every reference and downloads it in order.
// A fatal error stops the run and is returned.
func (s *ServiceImpl) DownloadURLs(ctx context.Context, references []string) error {
	s.statsMutex.Lock()
	s.stats.StartTime = time.Now()
	s.statsMutex.Unlock()

	defer func() {
		s.statsMutex.Lock()
		s.stats.EndTime = time.Now()
		s.statsMutex.Unlock()
	}()

	if !s.cfg.IsStdoutMode() {
		if err := os.MkdirAll(s.cfg.OutputPath, constants.DefaultFolderPermissions); err != nil {
			return fmt.Errorf("failed to create output path: %w", err)
		}
	}

	if s.cfg.Search != "" {
		found, err := s.client.SearchFirst(ctx, s.cfg.Search)
		if err != nil {
			return fmt.Errorf("search for %q failed: %w", s.cfg.Search, err)
		}

		logger.Infof(ctx, "Search resolved to %s", found)

		references = append(references, found)
	}

	normalized, err := s.normalizer.NormalizeReferences(ctx, references)
	if err != nil {
		return err
	}

	if len(normalized) == 0 {
		return fmt.Errorf("%w: nothing to download", ErrURLNotValid)
	}

	run := newRunState()

	for _, reference := range normalized {
		if err = ctx.Err(); err != nil {
			return err
		}

		if err = s.downloadReference(ctx, run, reference); err != nil {
			return err
		}
	}

	if s.cfg.RemoveUnlisted {
		s.removeUnlisted(ctx, run)
	}

	return nil
}

// downloadReference resolves one canonical URL and runs the matching flow.
func (s *ServiceImpl) downloadReference(ctx context.Context, run *runState, reference string) error {
	logger.Infof(ctx, "Resolving %s", reference)

	resource, err := s.client.Resolve(ctx, reference)
	if err == nil && resource == nil {
		err = fmt.Errorf("%w: %s", ErrURLNotValid, reference)
	}

	if err != nil {
		s.errorHandler.HandleError(ctx, err, &ErrorContext{
			Category: DownloadCategoryUnknown,
			ItemURL:  reference,
			Phase:    "resolving",
		}, false)

		return err
	}

	switch resource.Kind {
	case soundcloud.ResourceKindTrack:
		logger.Info(ctx, "Found a track")

		return s.downloadTrack(ctx, run, resource.Track, &trackJob{dir: s.cfg.OutputPath, exitOnFail: true})
	case soundcloud.ResourceKindPlaylist:
		logger.Info(ctx, "Found a playlist")

		return s.downloadPlaylist(ctx, run, resource.Playlist, int(max(s.cfg.Offset-1, 0)), s.cfg.StrictPlaylist)
	case soundcloud.ResourceKindUser:
		logger.Info(ctx, "Found a user profile")

		return s.downloadUser(ctx, run, resource.User)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownResourceKind, resource.Kind)
	}
}

// removeUnlisted deletes audio files that this run did not produce or confirm,
// together with their description files. Only directories the run wrote to are scanned.
func (s *ServiceImpl) removeUnlisted(ctx context.Context, run *runState) {
	dirs := lo.Uniq(append(lo.Keys(run.dirs), filepath.Clean(s.cfg.OutputPath)))
	slices.Sort(dirs)

	var removedCount int64

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Warnf(ctx, "Failed to list %s: %v", dir, err)

			continue
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() || !isAudioFile(entry.Name()) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if run.isKept(path) {
				continue
			}

			if err = os.Remove(path); err != nil {
				logger.Errorf(ctx, "Failed to remove %s: %v", path, err)

				continue
			}

			removedCount++

			logger.Infof(ctx, "Removed %s", path)

			descriptionPath := strings.TrimSuffix(path, filepath.Ext(path)) + constants.ExtensionTXT
			if run.isKept(descriptionPath) {
				continue
			}

			if err = os.Remove(descriptionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warnf(ctx, "Failed to remove %s: %v", descriptionPath, err)
			}
		}
	}

	s.incrementTracksRemoved(removedCount)
}

func isAudioFile(name string) bool {
	extension := strings.ToLower(filepath.Ext(name))

	return slices.Contains(constants.AudioExtensions, extension) ||
		extension == constants.ExtensionOGG ||
		extension == constants.ExtensionAIFF ||
		extension == constants.ExtensionAIF
}
