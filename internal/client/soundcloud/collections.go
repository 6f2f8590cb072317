package soundcloud

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/oshokin/scdl-grabber/internal/logger"
)

// GetUserCollection lazily walks every page of a user collection, following next_href.
// Iteration stops at the first error, which is yielded once.
func (c *ClientImpl) GetUserCollection(
	ctx context.Context,
	userID int64,
	kind CollectionKind,
	pageSize int,
) iter.Seq2[*CollectionItem, error] {
	return func(yield func(*CollectionItem, error) bool) {
		uri, err := collectionURI(userID, kind)
		if err != nil {
			yield(nil, err)

			return
		}

		if pageSize <= 0 {
			pageSize = DefaultPageSize
		}

		query := url.Values{}
		query.Set("limit", strconv.Itoa(pageSize))
		query.Set(linkedPartitioningArg, "1")

		nextURL := c.apiURL(uri)

		for nextURL != "" {
			page, err := fetchJSONWithOptions[collectionPage](c, ctx, nextURL, query, requestOptions{})
			if err != nil {
				yield(nil, fmt.Errorf("failed to get %s collection page: %w", kind, err))

				return
			}

			for _, raw := range page.Data.Collection {
				item, decodeErr := decodeCollectionItem(raw)
				if decodeErr != nil {
					yield(nil, decodeErr)

					return
				}

				if !yield(item, nil) {
					return
				}
			}

			// next_href already carries the cursor and the paging arguments.
			nextURL, query = page.Data.NextHref, nil

			if nextURL != "" {
				logger.Debugf(ctx, "Fetching next %s page", kind)
			}
		}
	}
}

func collectionURI(userID int64, kind CollectionKind) (string, error) {
	id := strconv.FormatInt(userID, 10)

	switch kind {
	case CollectionLikes:
		return apiUsersURI + "/" + id + "/" + apiUserLikesURI, nil
	case CollectionComments:
		return apiUsersURI + "/" + id + "/" + apiUserCommentsURI, nil
	case CollectionUploads:
		return apiUsersURI + "/" + id + "/" + apiUserTracksURI, nil
	case CollectionStream:
		return apiStreamURI + "/" + apiUsersURI + "/" + id, nil
	case CollectionPlaylists:
		return apiUsersURI + "/" + id + "/" + apiUserPlaylistsURI, nil
	case CollectionReposts:
		return apiStreamURI + "/" + apiUsersURI + "/" + id + "/" + apiStreamRepostsURI, nil
	default:
		return "", fmt.Errorf("%w: collection %d", ErrUnknownResourceKind, kind)
	}
}

// decodeCollectionItem handles both wrapped items (likes, comments, stream entries)
// and bare tracks or playlists (uploads, playlists).
func decodeCollectionItem(raw []byte) (*CollectionItem, error) {
	itemType := gjson.GetBytes(raw, "type").String()
	if itemType == "" {
		itemType = gjson.GetBytes(raw, "kind").String()
	}

	item := &CollectionItem{Type: itemType}

	var (
		payload []byte
		err     error
	)

	switch trackField, playlistField := gjson.GetBytes(raw, "track"), gjson.GetBytes(raw, "playlist"); {
	case trackField.IsObject():
		item.Kind = CollectionItemTrack
		payload = []byte(trackField.Raw)
	case playlistField.IsObject():
		item.Kind = CollectionItemPlaylist
		payload = []byte(playlistField.Raw)
	default:
		switch kind, _ := normalizeKind(gjson.GetBytes(raw, "kind").String()); kind {
		case ResourceKindTrack:
			item.Kind = CollectionItemTrack
			payload = raw
		case ResourceKindPlaylist:
			item.Kind = CollectionItemPlaylist
			payload = raw
		case ResourceKindUser:
			return item, nil
		default:
			return item, nil
		}
	}

	switch item.Kind {
	case CollectionItemTrack:
		item.Track = new(Track)
		err = json.Unmarshal(payload, item.Track)
	case CollectionItemPlaylist:
		item.Playlist = new(Playlist)
		err = json.Unmarshal(payload, item.Playlist)
	case CollectionItemUnknown:
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %q collection item: %w", itemType, err)
	}

	return item, nil
}
