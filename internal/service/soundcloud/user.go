package soundcloud

import (
	"context"
	"fmt"
	"strconv"

	"github.com/oshokin/scdl-grabber/internal/client/soundcloud"
	"github.com/oshokin/scdl-grabber/internal/logger"
)

const (
	phaseDownloadingUser = "downloading user collection"
	unknownTotal         = "?"
)

// userCollection describes the collection selected for a user profile.
type userCollection struct {
	kind  soundcloud.CollectionKind
	label string
	// total is advisory and only used in progress logs.
	total string
}

// selectUserCollection maps the download type flags onto a collection.
// ok is false when no type was selected.
func (s *ServiceImpl) selectUserCollection(user *soundcloud.User) (userCollection, bool) {
	switch {
	case s.cfg.Likes:
		return userCollection{soundcloud.CollectionLikes, "likes", strconv.FormatInt(user.LikesCount, 10)}, true
	case s.cfg.Commented:
		return userCollection{
			soundcloud.CollectionComments, "commented tracks", strconv.FormatInt(user.CommentsCount, 10),
		}, true
	case s.cfg.Uploads:
		return userCollection{soundcloud.CollectionUploads, "uploads", strconv.FormatInt(user.TrackCount, 10)}, true
	case s.cfg.All:
		total := unknownTotal
		if user.RepostsCount != nil {
			total = strconv.FormatInt(user.TrackCount+*user.RepostsCount, 10)
		}

		return userCollection{soundcloud.CollectionStream, "tracks and reposts", total}, true
	case s.cfg.Playlists:
		return userCollection{
			soundcloud.CollectionPlaylists, "playlists", strconv.FormatInt(user.PlaylistCount, 10),
		}, true
	case s.cfg.Reposts:
		total := unknownTotal
		if user.RepostsCount != nil {
			total = strconv.FormatInt(*user.RepostsCount, 10)
		}

		return userCollection{soundcloud.CollectionReposts, "reposts", total}, true
	default:
		return userCollection{}, false
	}
}

// downloadUser walks the selected collection of user. The offset counts items of the
// whole collection, across pages.
func (s *ServiceImpl) downloadUser(ctx context.Context, run *runState, user *soundcloud.User) error {
	collection, ok := s.selectUserCollection(user)
	if !ok {
		return ErrMissingDownloadType
	}

	logger.Infof(ctx, "Retrieving all %s of user %s...", collection.label, user.Username)

	var (
		skip  = max(s.cfg.Offset-1, 0)
		index int64
	)

	for item, err := range s.client.GetUserCollection(ctx, user.ID, collection.kind, soundcloud.DefaultPageSize) {
		if err != nil {
			s.errorHandler.HandleError(ctx, err, &ErrorContext{
				Category:  DownloadCategoryUser,
				ItemID:    strconv.FormatInt(user.ID, 10),
				ItemTitle: user.Username,
				ItemURL:   user.PermalinkURL,
				Phase:     phaseDownloadingUser,
			}, false)

			return err
		}

		index++
		if index <= skip {
			continue
		}

		if err = ctx.Err(); err != nil {
			return err
		}

		logger.Infof(ctx, "%s n°%d of %s", collection.kind, index, collection.total)

		if err = s.downloadCollectionItem(ctx, run, collection.kind, item); err != nil {
			return err
		}
	}

	logger.Infof(ctx, "Downloaded all %s of user %s!", collection.label, user.Username)

	return nil
}

// downloadCollectionItem dispatches one collection item to the track or playlist flow.
func (s *ServiceImpl) downloadCollectionItem(
	ctx context.Context,
	run *runState,
	kind soundcloud.CollectionKind,
	item *soundcloud.CollectionItem,
) error {
	strict := s.cfg.StrictPlaylist

	switch item.Kind {
	case soundcloud.CollectionItemTrack:
		track := item.Track

		// Comments only carry a reference to the track.
		if kind == soundcloud.CollectionComments || track.IsStub() {
			fetched, err := s.client.GetTrack(ctx, track.ID)
			if err == nil && fetched == nil {
				err = fmt.Errorf("%w: %d", ErrTrackNotFound, track.ID)
			}

			if err != nil {
				return s.handleCollectionItemError(ctx, err, track.ID, track.Title, strict)
			}

			track = fetched
		}

		return s.downloadTrack(ctx, run, track, &trackJob{dir: s.cfg.OutputPath, exitOnFail: strict})
	case soundcloud.CollectionItemPlaylist:
		playlist := item.Playlist

		// Liked playlists come without their track list.
		if kind == soundcloud.CollectionLikes {
			fetched, err := s.client.GetPlaylist(ctx, playlist.ID)
			if err != nil {
				return s.handleCollectionItemError(ctx, err, playlist.ID, playlist.Title, strict)
			}

			playlist = fetched
		}

		err := s.downloadPlaylist(ctx, run, playlist, 0, strict)
		if err != nil && (strict || isRunFatal(err)) {
			return err
		}

		return nil
	case soundcloud.CollectionItemUnknown:
		return s.handleCollectionItemError(ctx,
			fmt.Errorf("%w: %q", ErrUnknownCollectionItem, item.Type), 0, item.Type, strict)
	default:
		return s.handleCollectionItemError(ctx,
			fmt.Errorf("%w: %q", ErrUnknownCollectionItem, item.Type), 0, item.Type, strict)
	}
}

func (s *ServiceImpl) handleCollectionItemError(
	ctx context.Context,
	err error,
	itemID int64,
	title string,
	strict bool,
) error {
	s.errorHandler.HandleError(ctx, err, &ErrorContext{
		Category:  DownloadCategoryTrack,
		ItemID:    strconv.FormatInt(itemID, 10),
		ItemTitle: title,
		Phase:     phaseDownloadingUser,
	}, true)

	if strict {
		return err
	}

	return nil
}
