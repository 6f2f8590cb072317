//nolint:nolintlint,revive // utils is a common and acceptable package name for utility functions.
package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/scdl-grabber/internal/constants"
)

// TestSafeUint64ToInt64 tests the SafeUint64ToInt64 function.
func TestSafeUint64ToInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    uint64
		expected int64
	}{
		{name: "normal value", input: 100, expected: 100},
		{name: "zero value", input: 0, expected: 0},
		{name: "max int64 value", input: 9223372036854775807, expected: 9223372036854775807},
		{name: "value exceeding max int64", input: 9223372036854775808, expected: 9223372036854775807},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, SafeUint64ToInt64(tt.input))
		})
	}
}

// TestSanitizeFilename tests the SanitizeFilename function.
func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "valid filename", input: "Night Drive", expected: "Night Drive"},
		{name: "invalid characters", input: "AC/DC: Live?", expected: "AC_DC_ Live_"},
		{name: "leading dot is not hidden", input: ".hidden", expected: "_.hidden"},
		{name: "trailing dot gets suffix", input: "Intro.", expected: "Intro._"},
		{name: "windows reserved name", input: "CON", expected: "_CON"},
		{name: "reserved name with extension", input: "nul.txt", expected: "_nul.txt"},
		{name: "unicode is preserved", input: "Кино – Группа крови", expected: "Кино – Группа крови"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

// TestSanitizeFilenameWithExtension tests truncation to the filesystem limit.
func TestSanitizeFilenameWithExtension(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("я", 200)

	result := SanitizeFilenameWithExtension(long, ".mp3", constants.MaxFilenameBytes)

	assert.LessOrEqual(t, len(result), constants.MaxFilenameBytes)
	assert.True(t, strings.HasSuffix(result, ".mp3"))
	assert.True(t, strings.HasPrefix(result, "яяя"))
	assert.Equal(t, "track.m4a", SanitizeFilenameWithExtension("track", ".m4a", constants.MaxFilenameBytes))
}

// TestTruncateUTF8 tests that truncation never splits a rune.
func TestTruncateUTF8(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		maxBytes int
		expected string
	}{
		{name: "shorter than limit", input: "abc", maxBytes: 10, expected: "abc"},
		{name: "ascii cut", input: "abcdef", maxBytes: 3, expected: "abc"},
		{name: "multibyte boundary", input: "ééé", maxBytes: 3, expected: "é"},
		{name: "zero limit", input: "abc", maxBytes: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, TruncateUTF8(tt.input, tt.maxBytes))
		})
	}
}

// TestRandomPause tests the RandomPause function.
func TestRandomPause(t *testing.T) {
	t.Parallel()

	start := time.Now()

	RandomPause(10*time.Millisecond, 20*time.Millisecond)

	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	// Swapped and equal bounds must not panic.
	RandomPause(2*time.Millisecond, time.Millisecond)
	RandomPause(time.Millisecond, time.Millisecond)
}

// TestSetFileExtension tests the SetFileExtension function.
func TestSetFileExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		filename  string
		extension string
		replace   bool
		expected  string
	}{
		{name: "append extension", filename: "track", extension: ".mp3", replace: true, expected: "track.mp3"},
		{name: "extension without dot", filename: "track", extension: "flac", replace: true, expected: "track.flac"},
		{name: "same extension", filename: "track.mp3", extension: ".mp3", replace: true, expected: "track.mp3"},
		{name: "case-insensitive match", filename: "track.MP3", extension: ".mp3", replace: true, expected: "track.MP3"},
		{name: "replace extension", filename: "track.wav", extension: ".flac", replace: true, expected: "track.flac"},
		{name: "keep extension", filename: "track.part", extension: ".mp3", replace: false, expected: "track.part.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, SetFileExtension(tt.filename, tt.extension, tt.replace))
		})
	}
}

// TestIsFileExist tests the IsFileExist function.
func TestIsFileExist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	filePath := filepath.Join(dir, "exists.mp3")

	require.NoError(t, os.WriteFile(filePath, []byte("id3"), constants.DefaultFilePermissions))

	exists, err := IsFileExist(filePath)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = IsFileExist(filepath.Join(dir, "missing.mp3"))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = IsFileExist(dir)
	require.NoError(t, err)
	assert.False(t, exists, "directories are not files")
}

// TestReadUniqueLinesFromFile tests the ReadUniqueLinesFromFile function.
func TestReadUniqueLinesFromFile(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "archive.txt")
	content := "123\n\n456\n 123 \n789\n"

	require.NoError(t, os.WriteFile(filePath, []byte(content), constants.DefaultFilePermissions))

	lines, err := ReadUniqueLinesFromFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"123", "456", "789"}, lines)

	_, err = ReadUniqueLinesFromFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

// TestExtractNamedGroup tests the ExtractNamedGroup function.
func TestExtractNamedGroup(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(`client_id\s*:\s*"(?P<clientID>[a-zA-Z0-9]{32})"`)

	tests := []struct {
		name     string
		group    string
		input    string
		expected string
	}{
		{
			name:     "match",
			group:    "clientID",
			input:    `({client_id:"abcdefghijklmnopqrstuvwxyz012345",env:"production"})`,
			expected: "abcdefghijklmnopqrstuvwxyz012345",
		},
		{name: "no match", group: "clientID", input: "nothing here", expected: ""},
		{
			name:     "unknown group",
			group:    "other",
			input:    `client_id:"abcdefghijklmnopqrstuvwxyz012345"`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, ExtractNamedGroup(re, tt.group, tt.input))
		})
	}
}

// TestIsTextContentType tests the IsTextContentType function.
func TestIsTextContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		expected    bool
	}{
		{name: "json", contentType: "application/json; charset=utf-8", expected: true},
		{name: "plain text", contentType: "text/plain", expected: true},
		{name: "hls playlist", contentType: "application/vnd.apple.mpegurl", expected: true},
		{name: "audio", contentType: "audio/mpeg", expected: false},
		{name: "unsupported charset", contentType: "text/html; charset=windows-1251", expected: false},
		{name: "malformed", contentType: ";;", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, IsTextContentType(tt.contentType))
		})
	}
}

// TestIsImageContentType tests the IsImageContentType function.
func TestIsImageContentType(t *testing.T) {
	t.Parallel()

	assert.True(t, IsImageContentType("image/jpeg"))
	assert.True(t, IsImageContentType("image/png"))
	assert.True(t, IsImageContentType("image/jpg"))
	assert.False(t, IsImageContentType("image/webp"))
	assert.False(t, IsImageContentType("text/html; charset=utf-8"))
	assert.False(t, IsImageContentType(""))
}
