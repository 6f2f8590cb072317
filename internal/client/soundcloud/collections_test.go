package soundcloud

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeCollectionItem tests the mapping of raw collection entries onto item kinds.
func TestDecodeCollectionItem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		expectedKind CollectionItemKind
		expectedType string
		expectedID   int64
	}{
		{
			name:         "liked track",
			raw:          `{"kind":"like","track":{"id":1,"kind":"track","title":"Liked"}}`,
			expectedKind: CollectionItemTrack,
			expectedType: "like",
			expectedID:   1,
		},
		{
			name:         "liked playlist",
			raw:          `{"kind":"like","playlist":{"id":2,"kind":"playlist"}}`,
			expectedKind: CollectionItemPlaylist,
			expectedType: "like",
			expectedID:   2,
		},
		{
			name:         "track repost",
			raw:          `{"type":"track-repost","track":{"id":3}}`,
			expectedKind: CollectionItemTrack,
			expectedType: "track-repost",
			expectedID:   3,
		},
		{
			name:         "playlist repost",
			raw:          `{"type":"playlist-repost","playlist":{"id":4}}`,
			expectedKind: CollectionItemPlaylist,
			expectedType: "playlist-repost",
			expectedID:   4,
		},
		{
			name:         "comment",
			raw:          `{"kind":"comment","body":"nice","track":{"id":5}}`,
			expectedKind: CollectionItemTrack,
			expectedType: "comment",
			expectedID:   5,
		},
		{
			name:         "bare upload",
			raw:          `{"kind":"track","id":6,"title":"Upload"}`,
			expectedKind: CollectionItemTrack,
			expectedType: "track",
			expectedID:   6,
		},
		{
			name:         "bare playlist",
			raw:          `{"kind":"playlist","id":7}`,
			expectedKind: CollectionItemPlaylist,
			expectedType: "playlist",
			expectedID:   7,
		},
		{
			name:         "unknown",
			raw:          `{"kind":"station","id":8}`,
			expectedKind: CollectionItemUnknown,
			expectedType: "station",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			item, err := decodeCollectionItem([]byte(tt.raw))
			require.NoError(t, err)

			assert.Equal(t, tt.expectedKind, item.Kind)
			assert.Equal(t, tt.expectedType, item.Type)

			switch item.Kind {
			case CollectionItemTrack:
				require.NotNil(t, item.Track)
				assert.Equal(t, tt.expectedID, item.Track.ID)
			case CollectionItemPlaylist:
				require.NotNil(t, item.Playlist)
				assert.Equal(t, tt.expectedID, item.Playlist.ID)
			case CollectionItemUnknown:
				assert.Nil(t, item.Track)
				assert.Nil(t, item.Playlist)
			}
		})
	}
}

// TestCollectionURI tests the endpoint of every collection kind.
func TestCollectionURI(t *testing.T) {
	t.Parallel()

	expected := map[CollectionKind]string{
		CollectionLikes:     "users/9/likes",
		CollectionComments:  "users/9/comments",
		CollectionUploads:   "users/9/tracks",
		CollectionStream:    "stream/users/9",
		CollectionPlaylists: "users/9/playlists",
		CollectionReposts:   "stream/users/9/reposts",
	}

	for kind, uri := range expected {
		actual, err := collectionURI(9, kind)
		require.NoError(t, err)
		assert.Equal(t, uri, actual, kind.String())
	}

	_, err := collectionURI(9, CollectionKind(0))
	require.ErrorIs(t, err, ErrUnknownResourceKind)
}

// TestGetUserCollection tests that pagination follows next_href until it is empty.
func TestGetUserCollection(t *testing.T) {
	t.Parallel()

	var serverURL string

	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cursor") {
		case "":
			assert.Equal(t, "/users/1/likes", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("limit"))
			assert.Equal(t, "1", r.URL.Query().Get("linked_partitioning"))

			io.WriteString(w, `{"collection":[`+ //nolint:errcheck,gosec // Test handler.
				`{"kind":"like","track":{"id":1}},{"kind":"like","playlist":{"id":2}}],`+
				`"next_href":"`+serverURL+`/users/1/likes?cursor=next&limit=2"}`)
		case "next":
			io.WriteString(w, `{"collection":[{"kind":"like","track":{"id":3}}],"next_href":null}`) //nolint:errcheck,gosec,lll // Test handler.
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	serverURL = server.URL

	var ids []int64

	for item, err := range client.GetUserCollection(t.Context(), 1, CollectionLikes, 2) {
		require.NoError(t, err)

		switch item.Kind {
		case CollectionItemTrack:
			ids = append(ids, item.Track.ID)
		case CollectionItemPlaylist:
			ids = append(ids, item.Playlist.ID)
		case CollectionItemUnknown:
		}
	}

	assert.Equal(t, []int64{1, 2, 3}, ids)
}

// TestGetUserCollection_StopsEarly tests that breaking out of the loop stops paging.
func TestGetUserCollection_StopsEarly(t *testing.T) {
	t.Parallel()

	var requests int

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++

		io.WriteString(w, `{"collection":[{"kind":"track","id":1},{"kind":"track","id":2}],`+ //nolint:errcheck,gosec // Test handler.
			`"next_href":"http://`+r.Host+`/users/1/tracks?cursor=more"}`)
	}))

	for item, err := range client.GetUserCollection(t.Context(), 1, CollectionUploads, 0) {
		require.NoError(t, err)
		assert.Equal(t, int64(1), item.Track.ID)

		break
	}

	assert.Equal(t, 1, requests)
}

// TestGetUserCollection_Error tests that a failed page is yielded as an error.
func TestGetUserCollection_Error(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	var errs []error

	for _, err := range client.GetUserCollection(t.Context(), 1, CollectionComments, 10) {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrUnexpectedHTTPStatus)
	assert.True(t, strings.Contains(errs[0].Error(), "comment"))
}
