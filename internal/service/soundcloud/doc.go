// Package soundcloud resolves references into tracks, playlists and user collections
// and turns them into tagged audio files on disk.
// Work is strictly sequential: one track is downloaded, tagged and archived before the next starts.
package soundcloud
