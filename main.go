// Command scdl-grabber downloads tracks, playlists and user collections from SoundCloud.
package main

import "github.com/oshokin/scdl-grabber/cmd"

func main() {
	cmd.Execute()
}
