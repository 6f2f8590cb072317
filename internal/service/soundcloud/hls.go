package soundcloud

import (
	"context"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
)

// downloadHLS remuxes the preferred adaptive stream into a single file.
func (s *ServiceImpl) downloadHLS(
	ctx context.Context,
	track *soundcloud.Track,
	job *trackJob,
) (*AcquisitionResult, error) {
	choice, err := s.formatSelector.SelectStream(track)
	if err != nil {
		return nil, err
	}

	path := s.trackPath(job.dir, s.trackBaseName(ctx, track, job.playlist), choice.Preset.Extension)

	already, err := s.isAlreadyDownloaded(ctx, track, path)
	if err != nil {
		return nil, err
	}

	if already {
		return &AcquisitionResult{Path: path, AlreadyExisted: true}, nil
	}

	duration := track.FullDuration
	if duration <= 0 {
		duration = track.Duration
	}

	if err = s.formatSelector.CheckSize(s.formatSelector.EstimateSize(choice, duration)); err != nil {
		return nil, err
	}

	streamURL, err := s.client.GetTranscodingStreamURL(ctx, choice.Transcoding, track.TrackAuthorization)
	if err != nil {
		return nil, err
	}

	bytesWritten, err := s.encoder.Encode(ctx, &EncodeRequest{
		InputURL:   streamURL,
		Format:     choice.Preset.Format,
		CopyCodec:  true,
		OutputPath: path,
		Output:     s.stdout,
	})
	if err != nil {
		return nil, err
	}

	return &AcquisitionResult{Path: path, BytesWritten: bytesWritten}, nil
}
