package soundcloud

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/logger"
)

const (
	headerContentDisposition = "Content-Disposition"
	headerContentType        = "Content-Type"
	headerAmazonFileType     = "X-Amz-Meta-File-Type"
)

// downloadOriginal fetches the uploader's original file, optionally converting it to flac.
func (s *ServiceImpl) downloadOriginal(
	ctx context.Context,
	track *soundcloud.Track,
	job *trackJob,
) (*AcquisitionResult, error) {
	redirectURL, err := s.client.GetTrackOriginalDownload(ctx, track.ID, track.SecretToken)
	if err != nil {
		return nil, err
	}

	stream, err := s.client.OpenStream(ctx, redirectURL)
	if err != nil {
		return nil, err
	}

	ownsBody := true

	defer func() {
		if ownsBody {
			stream.Body.Close() //nolint:errcheck,gosec // Read-only body.
		}
	}()

	filename, err := originalFilename(stream.Header)
	if err != nil {
		return nil, err
	}

	extension := originalExtension(filename, stream.Header)

	baseName := strings.TrimSuffix(filename, filepath.Ext(filename))
	if !s.cfg.OriginalName {
		baseName = s.trackBaseName(ctx, track, job.playlist)
	}

	path := s.trackPath(job.dir, baseName, extension)
	convert := s.cfg.ConvertToFLAC && canConvertToFLAC(path)

	finalPath := path
	if convert {
		finalPath = flacPath(path)
	}

	already, err := s.isAlreadyDownloaded(ctx, track, path)
	if err != nil {
		return nil, err
	}

	if already {
		return &AcquisitionResult{Path: finalPath, AlreadyExisted: true}, nil
	}

	if !convert {
		ownsBody = false

		bytesWritten, copyErr := s.copyStream(ctx, stream, path)
		if copyErr != nil {
			return nil, copyErr
		}

		return &AcquisitionResult{Path: path, BytesWritten: bytesWritten}, nil
	}

	if stream.TotalBytes >= 0 {
		if err = s.formatSelector.CheckSize(stream.TotalBytes); err != nil {
			return nil, err
		}
	}

	logger.Infof(ctx, "Converting %s to flac", filepath.Base(path))

	bytesWritten, err := s.encoder.Encode(ctx, &EncodeRequest{
		Input:      s.wrapStreamReader(ctx, stream.Body),
		Format:     ffmpegFormatFLAC,
		OutputPath: finalPath,
		Output:     s.stdout,
	})
	if err != nil {
		return nil, err
	}

	return &AcquisitionResult{Path: finalPath, BytesWritten: bytesWritten}, nil
}

// originalFilename reads the uploader's filename from Content-Disposition.
func originalFilename(header http.Header) (string, error) {
	disposition := header.Get(headerContentDisposition)
	if disposition == "" {
		return "", ErrMissingFilename
	}

	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingFilename, err)
	}

	filename := params["filename"]
	if filename == "" {
		return "", ErrMissingFilename
	}

	if unescaped, unescapeErr := url.PathUnescape(filename); unescapeErr == nil {
		filename = unescaped
	}

	return filepath.Base(filename), nil
}

// originalExtension prefers the filename extension, then the content type,
// then the storage metadata header.
func originalExtension(filename string, header http.Header) string {
	if extension := filepath.Ext(filename); extension != "" {
		return extension
	}

	if mediaType, _, err := mime.ParseMediaType(header.Get(headerContentType)); err == nil {
		if detected := mimetype.Lookup(mediaType); detected != nil && detected.Extension() != "" {
			return detected.Extension()
		}
	}

	if fileType := header.Get(headerAmazonFileType); fileType != "" {
		return "." + strings.TrimPrefix(fileType, ".")
	}

	return ""
}
