package soundcloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
)

// overwriteFileOptions truncates an existing file. Part files are unique, so this never clobbers a track.
const overwriteFileOptions = os.O_CREATE | os.O_TRUNC | os.O_WRONLY

// partFilePath returns a unique temporary sibling of path.
func partFilePath(path string) string {
	return path + "." + uuid.NewString() + constants.PartFileSuffix
}

// removePartFile deletes a temporary file, ignoring a missing one.
func removePartFile(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf(ctx, "Failed to clean up temporary file '%s': %v", path, err)
	}
}

// newRateLimiter returns a limiter for bytesPerSecond, or nil when unlimited.
func newRateLimiter(bytesPerSecond int64) *rate.Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	burst := bytesPerSecond
	if burst > math.MaxInt32 {
		burst = math.MaxInt32
	}

	return rate.NewLimiter(rate.Limit(bytesPerSecond), int(burst))
}

// rateLimitedReader throttles reads through a token bucket.
type rateLimitedReader struct {
	ctx     context.Context //nolint:containedctx // Read has no context parameter.
	reader  io.Reader
	limiter *rate.Limiter
}

func (r *rateLimitedReader) Read(p []byte) (int, error) {
	if burst := r.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := r.reader.Read(p)
	if n > 0 {
		if waitErr := r.limiter.WaitN(r.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

// boundedReader fails as soon as more than maxBytes have been read.
type boundedReader struct {
	reader   io.Reader
	read     int64
	minBytes int64
	maxBytes int64
}

func (r *boundedReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)

	if r.maxBytes > 0 && r.read > r.maxBytes {
		return n, &SizeBoundsError{Size: r.read, Min: r.minBytes, Max: r.maxBytes}
	}

	return n, err
}

// wrapStreamReader applies size enforcement and the download speed limit to a media stream.
func (s *ServiceImpl) wrapStreamReader(ctx context.Context, body io.Reader) io.Reader {
	reader := io.Reader(&boundedReader{
		reader:   body,
		minBytes: s.cfg.ParsedMinSize,
		maxBytes: s.cfg.ParsedMaxSize,
	})

	if s.limiter != nil {
		reader = &rateLimitedReader{ctx: ctx, reader: reader, limiter: s.limiter}
	}

	return reader
}

// isProgressEnabled reports whether progress bars are drawn.
func (s *ServiceImpl) isProgressEnabled() bool {
	return !s.cfg.HideProgress && logger.Level() <= zap.InfoLevel
}

// newProgressBar draws on stderr so that stdout stays usable as an audio sink.
func newProgressBar(totalBytes int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		totalBytes,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n") //nolint:errcheck // Cosmetic newline.
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// copyStream writes a direct media stream to path through a part file and moves it into place.
// The size bounds are enforced both up front and while bytes arrive.
// A stream that ends short of its advertised length is an ErrIncompleteDownload.
func (s *ServiceImpl) copyStream(ctx context.Context, stream *soundcloud.StreamResult, path string) (int64, error) {
	defer stream.Body.Close() //nolint:errcheck // Read-only body.

	if stream.TotalBytes >= 0 {
		if err := checkSizeBounds(stream.TotalBytes, s.cfg.ParsedMinSize, s.cfg.ParsedMaxSize); err != nil {
			return 0, err
		}
	}

	if path == constants.StdoutSentinel {
		return s.copyToWriter(ctx, stream, s.stdout)
	}

	tempFilePath := partFilePath(path)

	file, err := os.OpenFile(filepath.Clean(tempFilePath), overwriteFileOptions, constants.DefaultFilePermissions)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	var downloadSucceeded bool

	defer func() {
		file.Close() //nolint:errcheck,gosec // Closed explicitly on success.

		if !downloadSucceeded {
			removePartFile(ctx, tempFilePath)
		}
	}()

	bytesWritten, err := s.copyToWriter(ctx, stream, file)
	if err != nil {
		return 0, err
	}

	if err = file.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err = os.Rename(tempFilePath, path); err != nil {
		return 0, fmt.Errorf("failed to move downloaded file into place: %w", err)
	}

	downloadSucceeded = true

	return bytesWritten, nil
}

func (s *ServiceImpl) copyToWriter(
	ctx context.Context,
	stream *soundcloud.StreamResult,
	destination io.Writer,
) (int64, error) {
	writer := destination

	if s.isProgressEnabled() {
		writer = io.MultiWriter(destination, newProgressBar(stream.TotalBytes, "Downloading"))
	}

	bytesWritten, err := io.Copy(writer, s.wrapStreamReader(ctx, stream.Body))
	if err != nil {
		var boundsErr *SizeBoundsError
		if errors.As(err, &boundsErr) {
			return 0, boundsErr
		}

		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if stream.TotalBytes >= 0 && bytesWritten != stream.TotalBytes {
		return 0, fmt.Errorf("%w: wrote %d bytes, expected %d bytes",
			ErrIncompleteDownload, bytesWritten, stream.TotalBytes)
	}

	if stream.TotalBytes < 0 {
		if err = checkSizeBounds(bytesWritten, s.cfg.ParsedMinSize, s.cfg.ParsedMaxSize); err != nil {
			return 0, err
		}
	}

	return bytesWritten, nil
}
