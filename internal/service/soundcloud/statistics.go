package soundcloud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/oshokin/scdl-grabber/internal/logger"
)

const (
	// unknownParentKey is used as a fallback key when parent collection is unknown.
	unknownParentKey = "unknown"

	summaryBanner = "═══════════════════════════════════════════════════════════════"

	retryCommandName = "scdl-grabber"
)

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}

	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

func (s *ServiceImpl) incrementTrackDownloaded(bytes int64) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TracksDownloaded++
	s.stats.TotalTracksProcessed++
	s.stats.TotalBytesDownloaded += bytes
}

func (s *ServiceImpl) incrementTrackRetagged() {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TracksRetagged++
	s.stats.TotalTracksProcessed++
}

func (s *ServiceImpl) incrementTrackSkipped(reason SkipReason) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TracksSkipped++
	s.stats.TotalTracksProcessed++

	switch reason {
	case SkipReasonExists:
		s.stats.TracksSkippedExists++
	case SkipReasonLocked:
		s.stats.TracksSkippedLocked++
	}
}

func (s *ServiceImpl) incrementTrackFailed() {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TracksFailed++
	s.stats.TotalTracksProcessed++
}

func (s *ServiceImpl) incrementTracksRemoved(count int64) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TracksRemoved += count
}

func (s *ServiceImpl) incrementDescriptionWritten() {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.DescriptionsWritten++
}

func (s *ServiceImpl) incrementCoverEmbedded() {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.CoversEmbedded++
}

// Statistics returns a snapshot of the session statistics.
func (s *ServiceImpl) Statistics() DownloadStatistics {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	snapshot := *s.stats
	snapshot.Errors = append([]DownloadError(nil), s.stats.Errors...)

	return snapshot
}

// groupErrors separates track errors from collection errors.
func (s *ServiceImpl) groupErrors(errors []DownloadError) (trackErrors, collectionErrors []DownloadError) {
	return lo.FilterReject(errors, func(item DownloadError, _ int) bool {
		return item.Category == DownloadCategoryTrack
	})
}

// PrintDownloadSummary prints a formatted summary of download statistics.
func (s *ServiceImpl) PrintDownloadSummary(ctx context.Context) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	stats := s.stats

	if stats.TotalTracksProcessed == 0 && len(stats.Errors) == 0 {
		return
	}

	wasInterrupted := ctx.Err() != nil

	s.printSummaryHeader(ctx, wasInterrupted)
	s.printTrackStatistics(ctx, stats)
	s.printDataTransferStatistics(ctx, stats)
	s.printSidecarStatistics(ctx, stats)
	logger.Info(ctx, summaryBanner)
	s.printErrorDetails(ctx, stats)
	s.printFinalMessage(ctx, wasInterrupted, stats)
}

func (s *ServiceImpl) printSummaryHeader(ctx context.Context, wasInterrupted bool) {
	logger.Info(ctx, "")
	logger.Info(ctx, summaryBanner)

	if wasInterrupted {
		logger.Info(ctx, "           DOWNLOAD SUMMARY (Interrupted)")
	} else {
		logger.Info(ctx, "                     DOWNLOAD SUMMARY")
	}

	logger.Info(ctx, summaryBanner)
}

func (s *ServiceImpl) printTrackStatistics(ctx context.Context, stats *DownloadStatistics) {
	logger.Infof(ctx, "Tracks:           %d total processed", stats.TotalTracksProcessed)

	if stats.TracksDownloaded > 0 {
		logger.Infof(ctx, "  Downloaded:      %d", stats.TracksDownloaded)
	}

	if stats.TracksRetagged > 0 {
		logger.Infof(ctx, "  Re-tagged:       %d", stats.TracksRetagged)
	}

	if stats.TracksSkipped > 0 {
		logger.Infof(ctx, "  Skipped:         %d total", stats.TracksSkipped)

		if stats.TracksSkippedExists > 0 {
			logger.Infof(ctx, "    Already Exist: %d", stats.TracksSkippedExists)
		}

		if stats.TracksSkippedLocked > 0 {
			logger.Infof(ctx, "    Locked:        %d", stats.TracksSkippedLocked)
		}
	}

	if stats.TracksFailed > 0 {
		logger.Infof(ctx, "  Failed:          %d", stats.TracksFailed)
	}

	if stats.TracksRemoved > 0 {
		logger.Infof(ctx, "  Removed:         %d", stats.TracksRemoved)
	}

	if stats.TotalTracksProcessed > 0 {
		successCount := stats.TracksDownloaded + stats.TracksRetagged + stats.TracksSkipped
		successRate := float64(successCount) / float64(stats.TotalTracksProcessed) * 100
		logger.Infof(ctx, "  Success Rate:    %.1f%%", successRate)
	}
}

func (s *ServiceImpl) printDataTransferStatistics(ctx context.Context, stats *DownloadStatistics) {
	if stats.TotalBytesDownloaded > 0 {
		logger.Info(ctx, "")
		//nolint:gosec // TotalBytesDownloaded is always positive, no overflow risk.
		logger.Infof(ctx, "Data Downloaded:  %s", humanize.Bytes(uint64(stats.TotalBytesDownloaded)))
	}

	if stats.StartTime.IsZero() || stats.EndTime.IsZero() {
		return
	}

	duration := stats.EndTime.Sub(stats.StartTime)
	if duration <= 100*time.Millisecond {
		return
	}

	logger.Infof(ctx, "Duration:         %s", formatDuration(duration))

	if stats.TotalBytesDownloaded > 0 {
		bytesPerSecond := float64(stats.TotalBytesDownloaded) / duration.Seconds()
		logger.Infof(ctx, "Average Speed:    %s/s", humanize.Bytes(uint64(bytesPerSecond)))
	}
}

func (s *ServiceImpl) printSidecarStatistics(ctx context.Context, stats *DownloadStatistics) {
	if stats.CoversEmbedded == 0 && stats.DescriptionsWritten == 0 {
		return
	}

	logger.Info(ctx, "")

	if stats.CoversEmbedded > 0 {
		logger.Infof(ctx, "Cover Art:        %d embedded", stats.CoversEmbedded)
	}

	if stats.DescriptionsWritten > 0 {
		logger.Infof(ctx, "Descriptions:     %d written", stats.DescriptionsWritten)
	}
}

func (s *ServiceImpl) printErrorDetails(ctx context.Context, stats *DownloadStatistics) {
	if len(stats.Errors) == 0 {
		return
	}

	logger.Info(ctx, "")
	logger.Errorf(ctx, "ERRORS ENCOUNTERED: %d", len(stats.Errors))

	trackErrors, collectionErrors := s.groupErrors(stats.Errors)

	s.printCollectionErrors(ctx, collectionErrors)
	s.printTrackErrors(ctx, trackErrors)

	logger.Info(ctx, "")
	logger.Info(ctx, summaryBanner)

	s.printRetryCommand(ctx, stats.Errors)
}

func (s *ServiceImpl) printCollectionErrors(ctx context.Context, collectionErrors []DownloadError) {
	if len(collectionErrors) == 0 {
		return
	}

	logger.Info(ctx, "")
	logger.Errorf(ctx, "COLLECTION ERRORS:")

	for i := range collectionErrors {
		logger.Info(ctx, "")
		logger.Errorf(ctx, "  [%d] %s: %s", i+1, collectionErrors[i].Category, collectionErrors[i].ItemTitle)

		if collectionErrors[i].ItemURL != "" {
			logger.Errorf(ctx, "      URL: %s", collectionErrors[i].ItemURL)
		}

		if collectionErrors[i].ItemID != "" {
			logger.Errorf(ctx, "      ID: %s", collectionErrors[i].ItemID)
		}

		logger.Errorf(ctx, "      Phase: %s", collectionErrors[i].Phase)
		logger.Errorf(ctx, "      Error: %s", collectionErrors[i].ErrorMessage)
	}
}

func (s *ServiceImpl) printTrackErrors(ctx context.Context, trackErrors []DownloadError) {
	if len(trackErrors) == 0 {
		return
	}

	logger.Info(ctx, "")
	logger.Errorf(ctx, "TRACK ERRORS:")

	parentGroups := lo.GroupBy(trackErrors, func(item DownloadError) string {
		if item.ParentID == "" {
			return unknownParentKey
		}

		return item.ParentID
	})

	// Groups are printed in first-failure order.
	order := lo.Uniq(lo.Map(trackErrors, func(item DownloadError, _ int) string {
		if item.ParentID == "" {
			return unknownParentKey
		}

		return item.ParentID
	}))

	for _, key := range order {
		s.printParentGroupErrors(ctx, parentGroups[key])
	}
}

func (s *ServiceImpl) printParentGroupErrors(ctx context.Context, errs []DownloadError) {
	if len(errs) == 0 {
		return
	}

	firstErr := errs[0]

	logger.Info(ctx, "")

	if firstErr.ParentTitle != "" {
		logger.Errorf(ctx, "  From %s: %s (ID: %s)",
			firstErr.ParentCategory, firstErr.ParentTitle, firstErr.ParentID)
	} else {
		logger.Errorf(ctx, "  Standalone tracks:")
	}

	for i := range errs {
		logger.Info(ctx, "")
		logger.Errorf(ctx, "    [%d] %s", i+1, errs[i].ItemTitle)
		logger.Errorf(ctx, "        Track ID: %s", errs[i].ItemID)
		logger.Errorf(ctx, "        Phase: %s", errs[i].Phase)
		logger.Errorf(ctx, "        Error: %s", errs[i].ErrorMessage)
	}
}

// printRetryCommand prints a command that retries the failed references.
func (s *ServiceImpl) printRetryCommand(ctx context.Context, errors []DownloadError) {
	urls := lo.Uniq(lo.FilterMap(errors, func(item DownloadError, _ int) (string, bool) {
		return item.ItemURL, item.ItemURL != ""
	}))

	if len(urls) == 0 {
		return
	}

	logger.Info(ctx, "")
	logger.Info(ctx, "To retry only failed downloads, run:")
	logger.Info(ctx, "")
	logger.Infof(ctx, "  %s -c %s", retryCommandName, strings.Join(urls, " "))
}

func (s *ServiceImpl) printFinalMessage(ctx context.Context, wasInterrupted bool, stats *DownloadStatistics) {
	switch {
	case wasInterrupted:
		logger.Info(ctx, "")
		logger.Warn(ctx, "Download interrupted by user (CTRL+C).")

		if stats.TracksDownloaded > 0 {
			logger.Infof(ctx, "Successfully downloaded %d track(s) before interruption.", stats.TracksDownloaded)
		}
	case len(stats.Errors) > 0:
		logger.Info(ctx, "")
		logger.Warnf(ctx, "%d error(s) occurred during download. See detailed error log above.", len(stats.Errors))
	case stats.TracksDownloaded > 0:
		logger.Info(ctx, "")
		logger.Info(ctx, "All downloads completed successfully!")
	case stats.TracksSkipped > 0:
		logger.Info(ctx, "")
		logger.Info(ctx, "All tracks already exist in the output directory.")
	}
}
