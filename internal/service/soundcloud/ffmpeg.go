package soundcloud

//go:generate $MOCKGEN -source=ffmpeg.go -destination=mocks/ffmpeg_mock.go

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/scdl-grabber/internal/config"
	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
)

// Encoder drives the external media process.
type Encoder interface {
	// Encode reads a URL or a piped stream and writes one output container.
	Encode(ctx context.Context, req *EncodeRequest) (int64, error)
	// Remux rewrites a file with new metadata without re-encoding audio.
	Remux(ctx context.Context, req *RemuxRequest) error
}

// EncodeRequest describes one encoder run.
type EncodeRequest struct {
	// InputURL is read by the encoder itself. Ignored when Input is set.
	InputURL string
	// Input is piped to the encoder's standard input.
	Input io.Reader
	// Format is the output muxer, e.g. "ipod", "mp3", "opus", "flac".
	Format string
	// CopyCodec keeps the input codec.
	CopyCodec bool
	// OutputPath is the destination file, or "-" to write to Output.
	OutputPath string
	// Output receives the encoded bytes when OutputPath is "-".
	Output io.Writer
}

// RemuxRequest describes a metadata-only rewrite.
type RemuxRequest struct {
	// InputPath is the file to rewrite in place.
	InputPath string
	// MetadataPath is an FFMETADATA1 file with the global tags.
	MetadataPath string
	// CoverPath is attached as a cover picture when set.
	CoverPath string
	// Format is the output muxer.
	Format string
	// ExtraArgs are muxer options placed before the output.
	ExtraArgs []string
}

// FFmpegEncoder runs the ffmpeg binary.
type FFmpegEncoder struct {
	binary string
}

// NewFFmpegEncoder creates an encoder using the configured ffmpeg binary.
func NewFFmpegEncoder(cfg *config.Config) *FFmpegEncoder {
	binary := cfg.FFmpegPath
	if binary == "" {
		binary = config.DefaultFFmpegPath
	}

	return &FFmpegEncoder{binary: binary}
}

const (
	ffmpegFormatIPod = "ipod"
	ffmpegFormatFLAC = "flac"
	ffmpegStdinArg   = "pipe:0"
	ffmpegStdoutArg  = "pipe:1"
)

// requiresSeekableOutput reports muxers that rewrite headers after the data and cannot write to a pipe.
func requiresSeekableOutput(format string) bool {
	return format == ffmpegFormatIPod || format == ffmpegFormatFLAC
}

func ffmpegLogLevel() string {
	if logger.IsDebugLevel() {
		return "debug"
	}

	return "error"
}

// buildEncodeArgs returns the ffmpeg arguments for an encode run writing to output.
func buildEncodeArgs(req *EncodeRequest, output string) []string {
	input := req.InputURL
	if req.Input != nil {
		input = ffmpegStdinArg
	}

	args := []string{"-loglevel", ffmpegLogLevel()}
	if req.Input == nil {
		args = append(args, "-nostdin")
	}

	args = append(args, "-i", input, "-f", req.Format)

	if req.CopyCodec {
		args = append(args, "-c", "copy")
	}

	return append(args, output)
}

// buildRemuxArgs returns the ffmpeg arguments for a metadata rewrite into output.
func buildRemuxArgs(req *RemuxRequest, output string) []string {
	args := []string{
		"-loglevel", ffmpegLogLevel(), "-nostdin",
		"-i", req.InputPath,
		"-i", req.MetadataPath,
	}

	if req.CoverPath != "" {
		args = append(args, "-i", req.CoverPath)
	}

	args = append(args, "-map", "0:a", "-map_metadata", "1")

	if req.CoverPath != "" {
		args = append(args, "-map", "2:v", "-disposition:v:0", "attached_pic")
	}

	args = append(args, "-c", "copy")
	args = append(args, req.ExtraArgs...)

	return append(args, "-f", req.Format, output)
}

// Encode runs one encode. File outputs go through a part file that is moved into place on success.
func (e *FFmpegEncoder) Encode(ctx context.Context, req *EncodeRequest) (int64, error) {
	if req.OutputPath != constants.StdoutSentinel {
		return e.encodeToFile(ctx, req, req.OutputPath)
	}

	if !requiresSeekableOutput(req.Format) {
		return e.run(ctx, buildEncodeArgs(req, ffmpegStdoutArg), req.Input, req.Output)
	}

	// Seekable muxers write to a temp file that is then streamed out.
	tempDir, err := os.MkdirTemp("", "scdl-grabber-")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary directory: %w", err)
	}

	defer os.RemoveAll(tempDir) //nolint:errcheck // Best-effort cleanup.

	tempPath := filepath.Join(tempDir, "output")
	if _, err = e.encodeToFile(ctx, req, tempPath); err != nil {
		return 0, err
	}

	file, err := os.Open(tempPath) //nolint:gosec // Path is built above.
	if err != nil {
		return 0, err
	}

	defer file.Close() //nolint:errcheck // Read-only handle.

	return io.Copy(req.Output, file)
}

func (e *FFmpegEncoder) encodeToFile(ctx context.Context, req *EncodeRequest, path string) (int64, error) {
	tempFilePath := partFilePath(path)

	if _, err := e.run(ctx, buildEncodeArgs(req, tempFilePath), req.Input, nil); err != nil {
		removePartFile(ctx, tempFilePath)

		return 0, err
	}

	stat, err := os.Stat(tempFilePath)
	if err != nil {
		return 0, fmt.Errorf("encoder produced no output: %w", err)
	}

	if err = os.Rename(tempFilePath, path); err != nil {
		removePartFile(ctx, tempFilePath)

		return 0, fmt.Errorf("failed to move encoded file into place: %w", err)
	}

	return stat.Size(), nil
}

// Remux rewrites InputPath through a part file and replaces it on success.
func (e *FFmpegEncoder) Remux(ctx context.Context, req *RemuxRequest) error {
	tempFilePath := partFilePath(req.InputPath)

	if _, err := e.run(ctx, buildRemuxArgs(req, tempFilePath), nil, nil); err != nil {
		removePartFile(ctx, tempFilePath)

		return err
	}

	if err := os.Rename(tempFilePath, req.InputPath); err != nil {
		removePartFile(ctx, tempFilePath)

		return fmt.Errorf("failed to replace %s: %w", req.InputPath, err)
	}

	return nil
}

// run starts ffmpeg, feeds stdin and drains stdout concurrently, and returns once the
// process has exited. A non-zero exit becomes an FFmpegError carrying stderr.
func (e *FFmpegEncoder) run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) (int64, error) {
	logger.Debugf(ctx, "Running %s %s", e.binary, strings.Join(args, " "))

	var (
		cmd    = exec.CommandContext(ctx, e.binary, args...) //nolint:gosec // Binary comes from configuration.
		stderr bytes.Buffer
	)

	cmd.Stderr = &stderr

	var (
		stdinPipe  io.WriteCloser
		stdoutPipe io.ReadCloser
		err        error
	)

	if stdin != nil {
		if stdinPipe, err = cmd.StdinPipe(); err != nil {
			return 0, fmt.Errorf("failed to open ffmpeg stdin: %w", err)
		}
	}

	if stdout != nil {
		if stdoutPipe, err = cmd.StdoutPipe(); err != nil {
			return 0, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
		}
	}

	if err = cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", e.binary, err)
	}

	var (
		group        errgroup.Group
		bytesWritten int64
	)

	if stdinPipe != nil {
		group.Go(func() error {
			defer stdinPipe.Close() //nolint:errcheck // Closing signals end of input.

			_, copyErr := io.Copy(stdinPipe, stdin)

			return copyErr
		})
	}

	if stdoutPipe != nil {
		group.Go(func() error {
			n, copyErr := io.Copy(stdout, stdoutPipe)
			bytesWritten = n

			return copyErr
		})
	}

	// Pipes must be drained before Wait closes them.
	pipeErr := group.Wait()
	waitErr := cmd.Wait()

	// A rejected input size explains whatever the truncated input made ffmpeg report.
	var boundsErr *SizeBoundsError
	if errors.As(pipeErr, &boundsErr) {
		return 0, boundsErr
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return 0, &FFmpegError{ExitCode: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}

		return 0, fmt.Errorf("ffmpeg failed: %w", waitErr)
	}

	if pipeErr != nil {
		return 0, fmt.Errorf("failed to stream through ffmpeg: %w", pipeErr)
	}

	return bytesWritten, nil
}
