package soundcloud

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestArchiveStore_RecordAndContains tests appends, de-duplication and lookups.
func TestArchiveStore_RecordAndContains(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "archive.txt")
	archive := NewArchiveStore(path)

	contains, err := archive.Contains(t.Context(), 1)
	require.NoError(t, err)
	assert.False(t, contains)

	require.NoError(t, archive.Record(t.Context(), 1))
	require.NoError(t, archive.Record(t.Context(), 2))
	require.NoError(t, archive.Record(t.Context(), 1))

	contains, err = archive.Contains(t.Context(), 2)
	require.NoError(t, err)
	assert.True(t, contains)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", string(content))
}

// TestArchiveStore_ReadIDs tests parsing, including blank and invalid lines.
func TestArchiveStore_ReadIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  *string
		expected []int64
	}{
		{
			name:     "missing file",
			expected: []int64{},
		},
		{
			name:     "empty file",
			content:  lo.ToPtr(""),
			expected: []int64{},
		},
		{
			name:     "mixed lines",
			content:  lo.ToPtr("3\n\n  5 \nnot-an-id\n4\n"),
			expected: []int64{3, 5, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "archive.txt")
			if tt.content != nil {
				writeTestFile(t, path, *tt.content)
			}

			ids, err := NewArchiveStore(path).ReadIDs(t.Context())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids)
		})
	}
}
// TestArchiveStore_Rewrite tests that a rewrite replaces the content once per ID and leaves no temporary files.
// TestArchiveStore_Rewrite tests that a rewrite replaces the content and leaves no temporary files.
func TestArchiveStore_Rewrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "archive.txt")
	writeTestFile(t, path, "1\n2\n3\n")

	archive := NewArchiveStore(path)
	require.NoError(t, archive.Rewrite(t.Context(), []int64{3, 1, 3}))

	ids, err := archive.ReadIDs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)

	assert.Equal(t, []string{"archive.txt", "archive.txt.lock"}, listFiles(t, dir))
}

// TestArchiveStore_ConcurrentRecord tests that concurrent appends never interleave.
func TestArchiveStore_ConcurrentRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "archive.txt")

	var wg sync.WaitGroup

	for id := int64(1); id <= 20; id++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// Separate stores behave like separate invocations.
			assert.NoError(t, NewArchiveStore(path).Record(t.Context(), id))
		}()
	}

	wg.Wait()

	ids, err := NewArchiveStore(path).ReadIDs(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, ids)
}
