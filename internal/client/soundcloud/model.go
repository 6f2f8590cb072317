package soundcloud

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ResourceKind discriminates the variants of ResolvedResource.
type ResourceKind uint8

const (
	// ResourceKindTrack is a single track.
	ResourceKindTrack ResourceKind = iota + 1
	// ResourceKindPlaylist is a playlist or album.
	ResourceKindPlaylist
	// ResourceKindUser is a user profile.
	ResourceKindUser
)

// String returns the API name of the kind.
func (k ResourceKind) String() string {
	switch k {
	case ResourceKindTrack:
		return "track"
	case ResourceKindPlaylist:
		return "playlist"
	case ResourceKindUser:
		return "user"
	default:
		return "unknown"
	}
}

// ResolvedResource is the result of resolving a URL. Exactly one of Track, Playlist, User is set,
// matching Kind.
type ResolvedResource struct {
	// Kind selects the populated variant.
	Kind ResourceKind
	// Track is set for ResourceKindTrack.
	Track *Track
	// Playlist is set for ResourceKindPlaylist.
	Playlist *Playlist
	// User is set for ResourceKindUser.
	User *User
}

// User is a user profile.
type User struct {
	ID                 int64  `json:"id"`
	Kind               string `json:"kind"`
	Username           string `json:"username"`
	FullName           string `json:"full_name"`
	Permalink          string `json:"permalink"`
	PermalinkURL       string `json:"permalink_url"`
	AvatarURL          string `json:"avatar_url"`
	TrackCount         int64  `json:"track_count"`
	PlaylistCount      int64  `json:"playlist_count"`
	LikesCount         int64  `json:"likes_count"`
	PlaylistLikesCount int64  `json:"playlist_likes_count"`
	CommentsCount      int64  `json:"comments_count"`
	// RepostsCount is null for most profiles.
	RepostsCount *int64 `json:"reposts_count"`
}

// TranscodingFormat describes the delivery of a transcoding.
type TranscodingFormat struct {
	// Protocol is "hls" or "progressive".
	Protocol string `json:"protocol"`
	// MimeType is the MIME type of the delivered media.
	MimeType string `json:"mime_type"`
}

// Transcoding is one streamable representation of a track.
type Transcoding struct {
	// URL is resolved into the actual stream URL with an authenticated request.
	URL string `json:"url"`
	// Preset identifies codec and bitrate, e.g. "aac_256k", "mp3_1_0", "opus_0_0".
	Preset   string            `json:"preset"`
	Duration int64             `json:"duration"`
	Snipped  bool              `json:"snipped"`
	Quality  string            `json:"quality"`
	Format   TranscodingFormat `json:"format"`
}

// IsHLS reports whether the transcoding is delivered over HLS.
func (t *Transcoding) IsHLS() bool {
	return t.Format.Protocol == "hls"
}

// Media holds the transcodings of a track.
type Media struct {
	Transcodings []*Transcoding `json:"transcodings"`
}

// Track is a playable audio resource. Stub tracks inside playlists only carry ID and Kind.
type Track struct {
	ID                 int64     `json:"id"`
	Kind               string    `json:"kind"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Genre              string    `json:"genre"`
	Permalink          string    `json:"permalink"`
	PermalinkURL       string    `json:"permalink_url"`
	ArtworkURL         string    `json:"artwork_url"`
	CreatedAt          time.Time `json:"created_at"`
	Duration           int64     `json:"duration"`
	FullDuration       int64     `json:"full_duration"`
	Streamable         bool      `json:"streamable"`
	Downloadable       bool      `json:"downloadable"`
	HasDownloadsLeft   bool      `json:"has_downloads_left"`
	Policy             string    `json:"policy"`
	UserID             int64     `json:"user_id"`
	User               *User     `json:"user"`
	Media              *Media    `json:"media"`
	TrackAuthorization string    `json:"track_authorization"`
	SecretToken        string    `json:"secret_token"`
}

// IsStub reports whether the track is a bare reference that must be fetched before use.
func (t *Track) IsStub() bool {
	return t.Title == "" && t.User == nil && t.Media == nil
}

// Username returns the uploader's username, or an empty string when unknown.
func (t *Track) Username() string {
	if t.User == nil {
		return ""
	}

	return t.User.Username
}

// Playlist is an ordered collection of tracks.
type Playlist struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Genre        string    `json:"genre"`
	PermalinkURL string    `json:"permalink_url"`
	ArtworkURL   string    `json:"artwork_url"`
	CreatedAt    time.Time `json:"created_at"`
	TrackCount   int64     `json:"track_count"`
	SetType      string    `json:"set_type"`
	IsAlbum      bool      `json:"is_album"`
	SecretToken  string    `json:"secret_token"`
	User         *User     `json:"user"`
	// Tracks mixes full tracks and stubs, in playlist order.
	Tracks []*Track `json:"tracks"`
}

// Author returns the playlist owner's username.
func (p *Playlist) Author() string {
	if p.User == nil {
		return ""
	}

	return p.User.Username
}

// CollectionKind selects a paginated user collection.
type CollectionKind uint8

const (
	// CollectionLikes is the user's liked tracks and playlists.
	CollectionLikes CollectionKind = iota + 1
	// CollectionComments is the user's comments, each pointing at a track.
	CollectionComments
	// CollectionUploads is the user's own tracks.
	CollectionUploads
	// CollectionStream is the user's tracks and reposts.
	CollectionStream
	// CollectionPlaylists is the user's playlists.
	CollectionPlaylists
	// CollectionReposts is the user's reposts.
	CollectionReposts
)

// String returns a human label used in progress logs.
func (k CollectionKind) String() string {
	switch k {
	case CollectionLikes:
		return "like"
	case CollectionComments:
		return "comment"
	case CollectionUploads:
		return "track"
	case CollectionStream, CollectionReposts:
		return "item"
	case CollectionPlaylists:
		return "playlist"
	default:
		return "unknown"
	}
}

// CollectionItemKind discriminates the variants of CollectionItem.
type CollectionItemKind uint8

const (
	// CollectionItemUnknown is an item whose type this client does not model.
	CollectionItemUnknown CollectionItemKind = iota
	// CollectionItemTrack carries a Track.
	CollectionItemTrack
	// CollectionItemPlaylist carries a Playlist.
	CollectionItemPlaylist
)

// CollectionItem is one element of a user collection.
type CollectionItem struct {
	// Kind selects the populated variant.
	Kind CollectionItemKind
	// Type is the raw item type, e.g. "track-repost" or "like".
	Type string
	// Track is set for CollectionItemTrack. It may be a stub.
	Track *Track
	// Playlist is set for CollectionItemPlaylist. Its track list may be missing.
	Playlist *Playlist
}

// collectionPage is one page of a linked-partitioning collection.
type collectionPage struct {
	Collection []json.RawMessage `json:"collection"`
	NextHref   string            `json:"next_href"`
}

// originalDownloadResponse is the payload of the original-download endpoint.
type originalDownloadResponse struct {
	RedirectURI string `json:"redirectUri"`
}

// streamURLResponse is the payload of a transcoding URL.
type streamURLResponse struct {
	URL string `json:"url"`
}

// FetchJSONResult wraps a decoded response with its status code.
type FetchJSONResult[T any] struct {
	// Data is the decoded body, nil on error.
	Data *T
	// StatusCode is the HTTP status of the response.
	StatusCode int
}

// StreamResult is an open media byte stream.
type StreamResult struct {
	// Body is the response body. The caller must close it.
	Body io.ReadCloser
	// TotalBytes is the advertised content length, -1 when unknown.
	TotalBytes int64
	// Header holds the response headers.
	Header http.Header
}

// Artwork is the raw result of an artwork request.
type Artwork struct {
	// Data is the response body.
	Data []byte
	// ContentType is the Content-Type header.
	ContentType string
	// StatusCode is the HTTP status of the response.
	StatusCode int
}

// normalizeKind maps API kind aliases onto ResourceKind.
func normalizeKind(kind string) (ResourceKind, bool) {
	switch strings.ToLower(kind) {
	case "track":
		return ResourceKindTrack, true
	case "playlist":
		return ResourceKindPlaylist, true
	case "user":
		return ResourceKindUser, true
	default:
		return 0, false
	}
}
