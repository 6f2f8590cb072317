package soundcloud

import "time"

const (
	// DefaultAPIBaseURL is the root of the v2 web API.
	DefaultAPIBaseURL = "https://api-v2.soundcloud.com"
	// DefaultWebBaseURL is the root of the web application.
	DefaultWebBaseURL = "https://soundcloud.com"
)

const (
	apiResolveURI         = "resolve"
	apiTracksURI          = "tracks"
	apiPlaylistsURI       = "playlists"
	apiUsersURI           = "users"
	apiStreamURI          = "stream"
	apiMeURI              = "me"
	apiSearchURI          = "search"
	apiSearchTracksURI    = "search/tracks"
	apiTrackDownloadURI   = "download"
	apiUserLikesURI       = "likes"
	apiUserCommentsURI    = "comments"
	apiUserTracksURI      = "tracks"
	apiUserPlaylistsURI   = "playlists"
	apiStreamRepostsURI   = "reposts"
	clientIDQueryParam    = "client_id"
	authorizationHeader   = "Authorization"
	authorizationSchema   = "OAuth "
	linkedPartitioningArg = "linked_partitioning"
)

const (
	// DefaultPageSize is the number of items requested per collection page.
	DefaultPageSize = 1000

	// artworkTimeout bounds artwork downloads, which are best-effort.
	artworkTimeout = 5 * time.Second

	// maxScriptAssets caps how many web app scripts are scanned for a client_id.
	maxScriptAssets = 10

	tracksCacheSize    = 10000
	playlistsCacheSize = 500
)
