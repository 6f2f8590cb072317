package soundcloud

//go:generate $MOCKGEN -source=client.go -destination=mocks/client_mock.go

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/oshokin/scdl-grabber/internal/config"
	"github.com/oshokin/scdl-grabber/internal/logger"
	http_transport "github.com/oshokin/scdl-grabber/internal/transport/http"
	"github.com/oshokin/scdl-grabber/internal/utils"
)

// Client defines the interface for interacting with the SoundCloud web API.
type Client interface {
	// Resolve resolves a platform URL. It returns nil without error when nothing is found.
	Resolve(ctx context.Context, rawURL string) (*ResolvedResource, error)
	// GetTrack fetches a full track.
	GetTrack(ctx context.Context, trackID int64) (*Track, error)
	// GetTracks fetches full tracks, optionally in the context of a private playlist.
	GetTracks(ctx context.Context, trackIDs []int64, playlistID int64, secretToken string) ([]*Track, error)
	// GetPlaylist fetches a playlist with its track list.
	GetPlaylist(ctx context.Context, playlistID int64) (*Playlist, error)
	// GetUserCollection lazily paginates a user collection.
	GetUserCollection(
		ctx context.Context,
		userID int64,
		kind CollectionKind,
		pageSize int,
	) iter.Seq2[*CollectionItem, error]
	// GetMe fetches the authenticated user.
	GetMe(ctx context.Context) (*User, error)
	// SearchFirst returns the permalink URL of the first search hit.
	SearchFirst(ctx context.Context, query string) (string, error)
	// GetTrackOriginalDownload returns the redirect URL of the track's original file.
	GetTrackOriginalDownload(ctx context.Context, trackID int64, secretToken string) (string, error)
	// GetTranscodingStreamURL turns a transcoding into a playable stream URL.
	GetTranscodingStreamURL(ctx context.Context, transcoding *Transcoding, trackAuthorization string) (string, error)
	// OpenStream opens a media byte stream.
	OpenStream(ctx context.Context, mediaURL string) (*StreamResult, error)
	// FetchArtwork downloads artwork without following redirects.
	FetchArtwork(ctx context.Context, artworkURL string) (*Artwork, error)
	// FollowRedirects returns the final URL of a short link.
	FollowRedirects(ctx context.Context, rawURL string) (string, error)
	// GetDefaultHeaders returns the headers sent with every request.
	GetDefaultHeaders() http.Header
	// IsClientIDValid checks the active client_id.
	IsClientIDValid(ctx context.Context) (bool, error)
	// IsAuthTokenValid checks the configured OAuth token.
	IsAuthTokenValid(ctx context.Context) (bool, error)
	// ScrapeClientID obtains a fresh client_id from the web app.
	ScrapeClientID(ctx context.Context) (string, error)
	// ClientID returns the active client_id.
	ClientID() string
}

// ClientIDChangedFunc is notified when the client switches to a new client_id.
type ClientIDChangedFunc func(ctx context.Context, clientID string)

// Option customizes a ClientImpl.
type Option func(*ClientImpl)

// WithAPIBaseURL overrides DefaultAPIBaseURL.
func WithAPIBaseURL(baseURL string) Option {
	return func(c *ClientImpl) {
		c.apiBaseURL = baseURL
	}
}

// WithWebBaseURL overrides DefaultWebBaseURL.
func WithWebBaseURL(baseURL string) Option {
	return func(c *ClientImpl) {
		c.webBaseURL = baseURL
	}
}

// WithClientIDChangedFunc registers a callback for client_id swaps.
func WithClientIDChangedFunc(callback ClientIDChangedFunc) Option {
	return func(c *ClientImpl) {
		c.onClientIDChanged = callback
	}
}

// ClientImpl implements the Client interface.
type ClientImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// apiBaseURL is the root of the v2 API.
	apiBaseURL string
	// webBaseURL is the root of the web application.
	webBaseURL string
	// headersProvider supplies default request headers.
	headersProvider utils.HeadersProvider
	// httpClient performs API requests.
	httpClient *http.Client
	// mediaHTTPClient performs media transfers, which have no global timeout.
	mediaHTTPClient *http.Client
	// artworkHTTPClient fetches artwork without following redirects.
	artworkHTTPClient *http.Client
	// clientIDMutex guards clientID.
	clientIDMutex sync.RWMutex
	// clientID is the active client_id.
	clientID string
	// clientIDSource produces alternate client_ids for the credential machine.
	clientIDSource ClientIDSource
	// onClientIDChanged is called after a client_id swap.
	onClientIDChanged ClientIDChangedFunc
	// tracksCache caches full tracks by ID.
	tracksCache *lru.Cache[int64, *Track]
	// playlistsCache caches playlists by ID.
	playlistsCache *lru.Cache[int64, *Playlist]
	// meMutex guards me.
	meMutex sync.Mutex
	// me caches the authenticated user.
	me *User
}

// NewClient creates and returns a new instance of ClientImpl.
func NewClient(cfg *config.Config, options ...Option) (*ClientImpl, error) {
	cookies, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &ClientImpl{
		cfg:        cfg,
		apiBaseURL: DefaultAPIBaseURL,
		webBaseURL: DefaultWebBaseURL,
		clientID:   cfg.ClientID,
	}

	for _, option := range options {
		option(client)
	}

	client.headersProvider = utils.NewStaticHeadersProvider(http_transport.DefaultUserAgent, client.webBaseURL)
	client.clientIDSource = client.ScrapeClientID

	transport := http_transport.NewHeaderInjector(
		http_transport.NewLogTransport(http.DefaultTransport, 0),
		client.headersProvider)

	client.httpClient = &http.Client{
		Transport: transport,
		Jar:       cookies,
		Timeout:   http_transport.DefaultTimeout,
	}

	client.mediaHTTPClient = &http.Client{
		Transport: transport,
	}

	client.artworkHTTPClient = &http.Client{
		Transport: transport,
		Timeout:   artworkTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	client.tracksCache, err = lru.New[int64, *Track](tracksCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracks cache: %w", err)
	}

	client.playlistsCache, err = lru.New[int64, *Playlist](playlistsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlists cache: %w", err)
	}

	return client, nil
}

// ClientID returns the active client_id.
func (c *ClientImpl) ClientID() string {
	c.clientIDMutex.RLock()
	defer c.clientIDMutex.RUnlock()

	return c.clientID
}

// SetClientID switches the active client_id and notifies the registered callback on change.
func (c *ClientImpl) SetClientID(ctx context.Context, clientID string) {
	c.clientIDMutex.Lock()
	changed := c.clientID != clientID
	c.clientID = clientID
	c.clientIDMutex.Unlock()

	if changed && c.onClientIDChanged != nil {
		c.onClientIDChanged(ctx, clientID)
	}
}

// GetDefaultHeaders returns the headers sent with every request.
func (c *ClientImpl) GetDefaultHeaders() http.Header {
	return c.headersProvider.GetDefaultHeaders()
}

// Resolve resolves a platform URL into a track, playlist or user.
func (c *ClientImpl) Resolve(ctx context.Context, rawURL string) (*ResolvedResource, error) {
	query := url.Values{}
	query.Set("url", rawURL)

	response, err := c.doAPIRequest(ctx, c.apiURL(apiResolveURI), query, requestOptions{})
	if err != nil {
		return nil, err
	}

	defer response.Body.Close() //nolint:errcheck // Read-only body.

	if response.StatusCode == http.StatusNotFound {
		return nil, nil //nolint:nilnil // Not found is not an error for resolve.
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	return c.decodeResolved(body)
}

func (c *ClientImpl) decodeResolved(body []byte) (*ResolvedResource, error) {
	rawKind := gjson.GetBytes(body, "kind").String()

	kind, ok := normalizeKind(rawKind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResourceKind, rawKind)
	}

	resource := &ResolvedResource{Kind: kind}

	var err error

	switch kind {
	case ResourceKindTrack:
		resource.Track = new(Track)
		err = json.Unmarshal(body, resource.Track)
	case ResourceKindPlaylist:
		resource.Playlist = new(Playlist)
		err = json.Unmarshal(body, resource.Playlist)
	case ResourceKindUser:
		resource.User = new(User)
		err = json.Unmarshal(body, resource.User)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}

	return resource, nil
}

// GetTrack fetches a full track. Results are cached.
func (c *ClientImpl) GetTrack(ctx context.Context, trackID int64) (*Track, error) {
	if cached, ok := c.tracksCache.Get(trackID); ok {
		logger.Debugf(ctx, "Track cache hit for ID: %d", trackID)

		return cached, nil
	}

	result, err := fetchJSON[Track](c, ctx, apiTracksURI+"/"+strconv.FormatInt(trackID, 10), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get track %d: %w", trackID, err)
	}

	c.tracksCache.Add(trackID, result.Data)

	return result.Data, nil
}

// GetTracks fetches full tracks. A private playlist needs its ID and secret token.
func (c *ClientImpl) GetTracks(
	ctx context.Context,
	trackIDs []int64,
	playlistID int64,
	secretToken string,
) ([]*Track, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(lo.Map(trackIDs, func(id int64, _ int) string {
		return strconv.FormatInt(id, 10)
	}), ","))

	if playlistID != 0 {
		query.Set("playlistId", strconv.FormatInt(playlistID, 10))
	}

	if secretToken != "" {
		query.Set("playlistSecretToken", secretToken)
	}

	result, err := fetchJSON[[]*Track](c, ctx, apiTracksURI, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get tracks: %w", err)
	}

	// Deleted or unavailable tracks come back as null entries.
	tracks := lo.Compact(*result.Data)
	for _, track := range tracks {
		c.tracksCache.Add(track.ID, track)
	}

	return tracks, nil
}

// GetPlaylist fetches a playlist. Results are cached.
func (c *ClientImpl) GetPlaylist(ctx context.Context, playlistID int64) (*Playlist, error) {
	if cached, ok := c.playlistsCache.Get(playlistID); ok {
		logger.Debugf(ctx, "Playlist cache hit for ID: %d", playlistID)

		return cached, nil
	}

	result, err := fetchJSON[Playlist](c, ctx, apiPlaylistsURI+"/"+strconv.FormatInt(playlistID, 10), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %d: %w", playlistID, err)
	}

	c.playlistsCache.Add(playlistID, result.Data)

	return result.Data, nil
}

// GetMe fetches the authenticated user. The result is cached.
func (c *ClientImpl) GetMe(ctx context.Context) (*User, error) {
	if c.cfg.AuthToken == "" {
		return nil, ErrAuthTokenRequired
	}

	c.meMutex.Lock()
	defer c.meMutex.Unlock()

	if c.me != nil {
		return c.me, nil
	}

	result, err := fetchJSON[User](c, ctx, apiMeURI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}

	c.me = result.Data

	return c.me, nil
}

// SearchFirst returns the permalink URL of the first search hit of any kind.
func (c *ClientImpl) SearchFirst(ctx context.Context, query string) (string, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", "1")

	result, err := fetchJSON[collectionPage](c, ctx, apiSearchURI, values)
	if err != nil {
		return "", fmt.Errorf("failed to search: %w", err)
	}

	for _, raw := range result.Data.Collection {
		if permalink := gjson.GetBytes(raw, "permalink_url").String(); permalink != "" {
			return permalink, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrNoSearchResults, query)
}

// GetTrackOriginalDownload returns the redirect URL of the track's original file.
// 401, 403 and 404 mean the caller may not download the original.
func (c *ClientImpl) GetTrackOriginalDownload(ctx context.Context, trackID int64, secretToken string) (string, error) {
	query := url.Values{}
	if secretToken != "" {
		query.Set("secret_token", secretToken)
	}

	uri := c.apiURL(apiTracksURI + "/" + strconv.FormatInt(trackID, 10) + "/" + apiTrackDownloadURI)

	result, err := fetchJSONWithOptions[originalDownloadResponse](c, ctx, uri, query, requestOptions{
		skipCredentialRetry: true,
	})
	if err != nil {
		if result != nil {
			switch result.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
				return "", fmt.Errorf("%w: status %d", ErrOriginalNotAvailable, result.StatusCode)
			}
		}

		return "", err
	}

	if result.Data.RedirectURI == "" {
		return "", ErrOriginalNotAvailable
	}

	return result.Data.RedirectURI, nil
}

// GetTranscodingStreamURL turns a transcoding into a playable stream URL.
// HTTP 429 is retried with bounded exponential backoff; other failures are final.
func (c *ClientImpl) GetTranscodingStreamURL(
	ctx context.Context,
	transcoding *Transcoding,
	trackAuthorization string,
) (string, error) {
	query := url.Values{}
	if trackAuthorization != "" {
		query.Set("track_authorization", trackAuthorization)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(c.rateLimitInitialInterval()),
				backoff.WithMultiplier(2), //nolint:mnd // Doubles each attempt.
				backoff.WithRandomizationFactor(0),
				backoff.WithMaxElapsedTime(0),
			),
			c.cfg.RateLimitRetries,
		),
		ctx,
	)

	operation := func() (string, error) {
		response, err := c.getWithClientID(ctx, transcoding.URL, query, c.ClientID())
		if err != nil {
			return "", backoff.Permanent(err)
		}

		defer response.Body.Close() //nolint:errcheck // Read-only body.

		switch response.StatusCode {
		case http.StatusOK:
		case http.StatusTooManyRequests:
			logger.Warnf(ctx, "Rate limited while resolving %s stream, backing off", transcoding.Preset)

			return "", ErrRateLimited
		default:
			return "", backoff.Permanent(fmt.Errorf("%w (%d)", ErrStreamURLUnavailable, response.StatusCode))
		}

		var payload streamURLResponse
		if err = json.NewDecoder(response.Body).Decode(&payload); err != nil {
			return "", backoff.Permanent(fmt.Errorf("failed to decode stream URL: %w", err))
		}

		if payload.URL == "" {
			return "", backoff.Permanent(ErrStreamURLUnavailable)
		}

		return payload.URL, nil
	}

	streamURL, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			return "", fmt.Errorf("%w: rate limit persisted after %d retries", ErrStreamURLUnavailable,
				c.cfg.RateLimitRetries)
		}

		return "", err
	}

	return streamURL, nil
}

func (c *ClientImpl) rateLimitInitialInterval() time.Duration {
	if c.cfg.ParsedMinRetryPause > 0 {
		return c.cfg.ParsedMinRetryPause
	}

	return time.Second
}

// OpenStream opens a media byte stream. 401 and 404 are reported as ErrNoDownloadsLeft and ErrMediaNotFound.
func (c *ClientImpl) OpenStream(ctx context.Context, mediaURL string) (*StreamResult, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	c.authorize(request)

	response, err := c.mediaHTTPClient.Do(request)
	if err != nil {
		return nil, err
	}

	switch response.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return &StreamResult{
			Body:       response.Body,
			TotalBytes: response.ContentLength,
			Header:     response.Header,
		}, nil
	case http.StatusUnauthorized:
		response.Body.Close() //nolint:errcheck,gosec // Discarded response.

		return nil, ErrNoDownloadsLeft
	case http.StatusNotFound:
		response.Body.Close() //nolint:errcheck,gosec // Discarded response.

		return nil, ErrMediaNotFound
	default:
		response.Body.Close() //nolint:errcheck,gosec // Discarded response.

		return nil, fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}
}

// FetchArtwork downloads artwork. The caller decides whether the status and content type are usable.
func (c *ClientImpl) FetchArtwork(ctx context.Context, artworkURL string) (*Artwork, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := c.artworkHTTPClient.Do(request)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close() //nolint:errcheck // Read-only body.

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	return &Artwork{
		Data:        data,
		ContentType: response.Header.Get("Content-Type"),
		StatusCode:  response.StatusCode,
	}, nil
}

// FollowRedirects returns the URL a short link finally lands on.
func (c *ClientImpl) FollowRedirects(ctx context.Context, rawURL string) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", err
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}

	defer response.Body.Close() //nolint:errcheck // Read-only body.

	return response.Request.URL.String(), nil
}

// IsClientIDValid checks the active client_id without the fallback machinery.
func (c *ClientImpl) IsClientIDValid(ctx context.Context) (bool, error) {
	clientID := c.ClientID()
	if clientID == "" {
		return false, nil
	}

	query := url.Values{}
	query.Set("q", "a")
	query.Set("limit", "1")

	response, err := c.getWithClientID(ctx, c.apiURL(apiSearchTracksURI), query, clientID)
	if err != nil {
		return false, err
	}

	defer response.Body.Close() //nolint:errcheck // Read-only body.

	return response.StatusCode == http.StatusOK, nil
}

// IsAuthTokenValid checks the configured OAuth token.
func (c *ClientImpl) IsAuthTokenValid(ctx context.Context) (bool, error) {
	if c.cfg.AuthToken == "" {
		return false, ErrAuthTokenRequired
	}

	response, err := c.doAPIRequest(ctx, c.apiURL(apiMeURI), nil, requestOptions{skipCredentialRetry: true})
	if err != nil {
		return false, err
	}

	defer response.Body.Close() //nolint:errcheck // Read-only body.

	return response.StatusCode == http.StatusOK, nil
}
