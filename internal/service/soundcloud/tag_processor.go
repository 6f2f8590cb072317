package soundcloud

//go:generate $MOCKGEN -source=tag_processor.go -destination=mocks/tag_processor_mock.go

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/oshokin/id3v2/v2"

	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

// TagProcessor writes a MetadataRecord into an audio file.
type TagProcessor interface {
	// WriteTags replaces the tags of the file at path.
	WriteTags(ctx context.Context, path string, record *MetadataRecord) error
}

// TagProcessorImpl dispatches on the container of the file.
type TagProcessorImpl struct {
	encoder Encoder
}

// tagField is one key/value written into a tag.
type tagField struct {
	key   string
	value string
}

const (
	coverDescription = "Cover"
	// linkFrameID is the ID3 "official audio file webpage" frame.
	linkFrameID = "WOAF"
	// dateFrameID follows the frame the original tool writes.
	dateFrameID        = "TDAT"
	vorbisLinkField    = "WWWAUDIOFILE"
	vorbisPictureField = "METADATA_BLOCK_PICTURE"
	ffmetadataHeader   = ";FFMETADATA1\n"
)

// NewTagProcessor creates a TagProcessor that uses encoder for containers without a native writer.
func NewTagProcessor(encoder Encoder) TagProcessor {
	return &TagProcessorImpl{encoder: encoder}
}

// WriteTags replaces the tags of the file at path and reads the file back.
// ErrUnsupportedContainer means nothing was written.
// ErrCorruptedAfterTagging means the file no longer parses.
func (tp *TagProcessorImpl) WriteTags(ctx context.Context, path string, record *MetadataRecord) error {
	if path == "" {
		return ErrEmptyTrackPath
	}

	container := detectContainer(path)

	var err error

	switch container {
	case ContainerMP3:
		err = writeID3Tags(path, record)
	case ContainerFLAC:
		err = writeFLACTags(ctx, path, record)
	case ContainerOgg:
		err = tp.remuxWithTags(ctx, path, oggFormat(path), vorbisFields(record, true), nil, nil)
	case ContainerMP4:
		err = tp.remuxWithTags(ctx, path, ffmpegFormatIPod, genericFields(record), record.Artwork, nil)
	case ContainerWAV:
		err = tp.remuxWithTags(ctx, path, "wav", genericFields(record), nil, nil)
	case ContainerAIFF:
		err = tp.remuxWithTags(ctx, path, "aiff", genericFields(record), record.Artwork,
			[]string{"-write_id3v2", "1"})
	case ContainerUnknown:
		return fmt.Errorf("%w: %s", ErrUnsupportedContainer, filepath.Base(path))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedContainer, container)
	}

	if err != nil {
		return fmt.Errorf("failed to write %s tags: %w", container, err)
	}

	logger.Debugf(ctx, "Wrote %s tags to %s", container.TagFamilyName(), path)

	return verifyTaggedFile(path, container)
}

// TagFamilyName returns a label for logs.
func (c Container) TagFamilyName() string {
	switch c.TagFamily() {
	case TagFamilyID3:
		return "ID3"
	case TagFamilyVorbis:
		return "Vorbis comment"
	case TagFamilyMP4:
		return "MP4 atom"
	case TagFamilyNone:
		return "no"
	default:
		return "no"
	}
}

// detectContainer sniffs the file header and falls back to the extension.
func detectContainer(path string) Container {
	detected, err := mimetype.DetectFile(path)
	if err == nil {
		switch {
		case detected.Is("audio/mpeg"):
			return ContainerMP3
		case detected.Is("audio/flac"):
			return ContainerFLAC
		case detected.Is("audio/ogg"), detected.Is("audio/opus"), detected.Is("application/ogg"):
			return ContainerOgg
		case detected.Is("audio/x-m4a"), detected.Is("audio/mp4"), detected.Is("video/mp4"):
			return ContainerMP4
		case detected.Is("audio/wav"):
			return ContainerWAV
		case detected.Is("audio/aiff"):
			return ContainerAIFF
		}
	}

	return containerFromExtension(path)
}

func oggFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), constants.ExtensionOpus) {
		return "opus"
	}

	return "ogg"
}

func trackPosition(album *AlbumInfo) string {
	return strconv.Itoa(album.TrackNumber) + "/" + strconv.Itoa(album.TrackTotal)
}

// vorbisFields maps a record onto Vorbis comment keys.
func vorbisFields(record *MetadataRecord, withPicture bool) []tagField {
	fields := []tagField{
		{"ARTIST", record.Artist},
		{"TITLE", record.Title},
		{"GENRE", record.Genre},
		{vorbisLinkField, record.Link},
		{"DATE", record.Date},
		{"DESCRIPTION", record.Description},
	}

	if album := record.Album; album != nil {
		fields = append(fields,
			tagField{"ALBUM", album.Title},
			tagField{"ALBUMARTIST", album.Author},
			tagField{"TRACKNUMBER", strconv.Itoa(album.TrackNumber)},
			tagField{"TRACKTOTAL", strconv.Itoa(album.TrackTotal)},
		)
	}

	if withPicture && record.Artwork != nil {
		if block, err := flacPictureBlock(record.Artwork); err == nil {
			fields = append(fields, tagField{vorbisPictureField, base64.StdEncoding.EncodeToString(block.Data)})
		}
	}

	return fields
}

// genericFields maps a record onto ffmpeg's generic metadata keys, which each muxer
// translates into its own atoms or chunks.
func genericFields(record *MetadataRecord) []tagField {
	fields := []tagField{
		{"artist", record.Artist},
		{"title", record.Title},
		{"genre", record.Genre},
		{"date", record.Date},
		{"comment", record.Description},
	}

	if album := record.Album; album != nil {
		fields = append(fields,
			tagField{"album", album.Title},
			tagField{"album_artist", album.Author},
			tagField{"track", trackPosition(album)},
		)
	}

	return fields
}

func writeID3Tags(path string, record *MetadataRecord) error {
	// Parsing is disabled so the existing tag is dropped on save.
	//nolint:exhaustruct // ParseFrames intentionally omitted when Parse=false.
	id3Tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return err
	}

	defer id3Tag.Close()

	id3Tag.DeleteAllFrames()
	id3Tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	id3Tag.SetTitle(record.Title)
	id3Tag.SetArtist(record.Artist)

	if record.Genre != "" {
		id3Tag.SetGenre(record.Genre)
	}

	if record.Description != "" {
		id3Tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    id3v2.EnglishISO6392Code,
			Description: "",
			Text:        record.Description,
		})
	}

	if record.Link != "" {
		id3Tag.AddFrame(linkFrameID, id3v2.UnknownFrame{Body: []byte(record.Link)})
	}

	if record.Date != "" {
		id3Tag.AddTextFrame(dateFrameID, id3Tag.DefaultEncoding(), record.Date)
	}

	if album := record.Album; album != nil {
		id3Tag.SetAlbum(album.Title)
		id3Tag.AddTextFrame(id3Tag.CommonID("Band/Orchestra/Accompaniment"), id3Tag.DefaultEncoding(), album.Author)
		id3Tag.AddTextFrame(id3Tag.CommonID("Track number/Position in set"), id3Tag.DefaultEncoding(),
			trackPosition(album))
	}

	if record.Artwork != nil {
		id3Tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    record.Artwork.MIMEType,
			PictureType: id3v2.PTFrontCover,
			Description: coverDescription,
			Picture:     record.Artwork.Data,
		})
	}

	return id3Tag.Save()
}

func flacPictureBlock(artwork *ArtworkImage) (*flac.MetaDataBlock, error) {
	picture, err := flacpicture.NewFromImageData(
		flacpicture.PictureTypeFrontCover, coverDescription, artwork.Data, artwork.MIMEType)
	if err != nil {
		return nil, err
	}

	block := picture.Marshal()

	return &block, nil
}

// parseFLAC parses the FLAC file at path.
// go-flac indexes the first frame without a length check, so a stream
// without audio frames panics inside the parser.
func parseFLAC(path string) (file *flac.File, err error) {
	defer func() {
		if r := recover(); r != nil {
			file, err = nil, fmt.Errorf("%w: no audio frames after metadata: %v", ErrCorruptedAfterTagging, r)
		}
	}()

	file, err = flac.ParseFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedAfterTagging, err)
	}

	return file, nil
}

func writeFLACTags(ctx context.Context, path string, record *MetadataRecord) error {
	file, err := parseFLAC(path)
	if err != nil {
		return err
	}

	// Existing comments and pictures are replaced.
	meta := make([]*flac.MetaDataBlock, 0, len(file.Meta)+2)
	for _, block := range file.Meta {
		if block.Type == flac.VorbisComment || block.Type == flac.Picture {
			continue
		}

		meta = append(meta, block)
	}

	comment := flacvorbis.New()

	for _, field := range vorbisFields(record, false) {
		if field.value == "" {
			continue
		}

		if err = comment.Add(field.key, field.value); err != nil {
			return err
		}
	}

	commentBlock := comment.Marshal()
	meta = append(meta, &commentBlock)

	if record.Artwork != nil {
		pictureBlock, pictureErr := flacPictureBlock(record.Artwork)
		if pictureErr != nil {
			logger.Errorf(ctx, "Failed to embed image to FLAC: %v", pictureErr)
		} else {
			meta = append(meta, pictureBlock)
		}
	}

	file.Meta = meta

	return file.Save(path)
}

// escapeFFMetadata escapes the characters FFMETADATA1 treats as syntax.
//
//nolint:gochecknoglobals // Immutable replacer.
var escapeFFMetadata = strings.NewReplacer(`\`, `\\`, "=", `\=`, ";", `\;`, "#", `\#`, "\n", "\\\n").Replace

// buildFFMetadata renders fields as an FFMETADATA1 document, skipping empty values.
func buildFFMetadata(fields []tagField) string {
	var builder strings.Builder

	builder.WriteString(ffmetadataHeader)

	for _, field := range fields {
		if field.value == "" {
			continue
		}

		builder.WriteString(escapeFFMetadata(field.key))
		builder.WriteByte('=')
		builder.WriteString(escapeFFMetadata(field.value))
		builder.WriteByte('\n')
	}

	return builder.String()
}

// remuxWithTags rewrites path with fields as its only global metadata.
func (tp *TagProcessorImpl) remuxWithTags(
	ctx context.Context,
	path, format string,
	fields []tagField,
	cover *ArtworkImage,
	extraArgs []string,
) error {
	tempDir, err := os.MkdirTemp("", "scdl-grabber-tags-")
	if err != nil {
		return err
	}

	defer os.RemoveAll(tempDir) //nolint:errcheck // Best-effort cleanup.

	metadataPath := filepath.Join(tempDir, "metadata.txt")

	err = os.WriteFile(metadataPath, []byte(buildFFMetadata(fields)), constants.DefaultFilePermissions)
	if err != nil {
		return err
	}

	request := &RemuxRequest{
		InputPath:    path,
		MetadataPath: metadataPath,
		Format:       format,
		ExtraArgs:    extraArgs,
	}

	if cover != nil {
		coverExtension := ".jpg"
		if cover.MIMEType == utils.ImagePNGMimeType {
			coverExtension = ".png"
		}

		request.CoverPath = filepath.Join(tempDir, "cover"+coverExtension)

		if err = os.WriteFile(request.CoverPath, cover.Data, constants.DefaultFilePermissions); err != nil {
			return err
		}
	}

	return tp.encoder.Remux(ctx, request)
}

// verifyTaggedFile checks that a tagged file still parses as its container.
func verifyTaggedFile(path string, container Container) error {
	switch container {
	case ContainerMP3, ContainerFLAC, ContainerOgg, ContainerMP4:
		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptedAfterTagging, err)
		}

		defer file.Close() //nolint:errcheck // Read-only handle.

		if _, err = tag.ReadFrom(file); err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptedAfterTagging, err)
		}

		return nil
	case ContainerWAV, ContainerAIFF:
		if detected := detectContainer(path); detected != container {
			return fmt.Errorf("%w: detected %s instead of %s", ErrCorruptedAfterTagging, detected, container)
		}

		return nil
	case ContainerUnknown:
		return fmt.Errorf("%w: %s", ErrUnsupportedContainer, filepath.Base(path))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedContainer, container)
	}
}
