package utils

import (
	"bufio"
	"errors"
	"math"
	"math/rand/v2"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// ImageJPEGMimeType is the MIME type for JPEG images.
	ImageJPEGMimeType = "image/jpeg"

	// ImagePNGMimeType is the MIME type for PNG images.
	ImagePNGMimeType = "image/png"

	// filenameReplacement replaces characters that are not allowed in filenames.
	filenameReplacement = "_"
)

var (
	// invalidCharsPattern includes ASCII control characters and the characters Windows forbids in names.
	//nolint:gochecknoglobals // Immutable pre-compiled pattern.
	invalidCharsPattern = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

	//nolint:gochecknoglobals // Immutable pre-compiled patterns.
	textContentTypePatterns = []*regexp.Regexp{
		regexp.MustCompile("^text/.+"),
		regexp.MustCompile("^application/json$"),
		regexp.MustCompile(`^application/(x-)?mpegurl$`),
		regexp.MustCompile(`^application/vnd\.apple\.mpegurl$`),
	}

	// windowsReservedNames are case-insensitive device names Windows refuses as file names.
	//nolint:gochecknoglobals // Immutable lookup table.
	windowsReservedNames = map[string]struct{}{
		"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
		"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
		"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	}
)

// SafeUint64ToInt64 converts a uint64 value to an int64, clamping at math.MaxInt64.
func SafeUint64ToInt64(val uint64) int64 {
	if val > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(val)
}

// SanitizeFilename makes name usable as a file or folder name on Windows and Unix-like systems.
// The result is never hidden: a leading dot becomes an underscore.
func SanitizeFilename(name string) string {
	if name == "" {
		return ""
	}

	result := invalidCharsPattern.ReplaceAllString(name, filenameReplacement)

	if strings.HasPrefix(result, ".") {
		result = filenameReplacement + result
	}

	baseName := result
	if dotIndex := strings.LastIndex(result, "."); dotIndex > 0 {
		baseName = result[:dotIndex]
	}

	if _, ok := windowsReservedNames[strings.ToUpper(baseName)]; ok {
		result = filenameReplacement + result
	}

	result = strings.TrimSpace(result)
	if strings.HasSuffix(result, ".") {
		result += filenameReplacement
	}

	if result == "" {
		result = filenameReplacement
	}

	return result
}

// SanitizeFilenameWithExtension sanitizes base, truncates it so that base plus extension
// fit into maxBytes, and appends extension.
func SanitizeFilenameWithExtension(base, extension string, maxBytes int) string {
	sanitized := SanitizeFilename(base)

	limit := maxBytes - len(extension)
	if limit <= 0 {
		limit = 1
	}

	return TruncateUTF8(sanitized, limit) + extension
}

// TruncateUTF8 cuts value to at most maxBytes bytes without splitting a multibyte rune.
func TruncateUTF8(value string, maxBytes int) string {
	if len(value) <= maxBytes {
		return value
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}

	return value[:cut]
}

// RandomPause sleeps for a random duration between minPause and maxPause.
func RandomPause(minPause, maxPause time.Duration) {
	if minPause > maxPause {
		minPause, maxPause = maxPause, minPause
	}

	if maxPause == minPause {
		time.Sleep(minPause)

		return
	}

	//nolint:gosec // Jitter does not need a cryptographic source.
	time.Sleep(minPause + time.Duration(rand.Int64N(int64(maxPause-minPause))))
}

// SetFileExtension ensures the file has the given extension.
// When isExtensionReplaced is true any existing extension is dropped first.
func SetFileExtension(filename, extension string, isExtensionReplaced bool) string {
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}

	currentExt := filepath.Ext(filename)
	if strings.EqualFold(currentExt, extension) {
		return filename
	}

	if isExtensionReplaced {
		filename = strings.TrimSuffix(filename, currentExt)
	}

	return filename + extension
}

// IsFileExist reports whether a regular file exists at path.
func IsFileExist(path string) (bool, error) {
	stat, err := os.Stat(path)
	if err == nil {
		return !stat.IsDir(), nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, err
}

// ReadUniqueLinesFromFile returns the unique non-empty trimmed lines of a text file in file order.
func ReadUniqueLinesFromFile(path string) ([]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer file.Close() //nolint:errcheck // Read-only handle.

	var (
		uniqueLines = make(map[string]struct{})
		lines       []string
		scanner     = bufio.NewScanner(file)
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if _, exists := uniqueLines[line]; !exists {
			uniqueLines[line] = struct{}{}

			lines = append(lines, line)
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// ExtractNamedGroup returns the value of a named capturing group, or an empty string.
func ExtractNamedGroup(re *regexp.Regexp, groupName, input string) string {
	match := re.FindStringSubmatch(input)
	if match == nil {
		return ""
	}

	index := re.SubexpIndex(groupName)
	if index < 0 {
		return ""
	}

	return match[index]
}

// IsTextContentType reports whether contentType is a text-like payload worth dumping to the debug log.
func IsTextContentType(contentType string) bool {
	parsedType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	for _, pattern := range textContentTypePatterns {
		if !pattern.MatchString(parsedType) {
			continue
		}

		charset := strings.ToLower(params["charset"])

		return charset == "" || charset == "utf-8" || charset == "us-ascii"
	}

	return false
}

// IsImageContentType reports whether contentType is a PNG or JPEG image.
func IsImageContentType(contentType string) bool {
	parsedType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	switch parsedType {
	case ImageJPEGMimeType, ImagePNGMimeType, "image/jpg":
		return true
	default:
		return false
	}
}
