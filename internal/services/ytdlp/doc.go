// Package ytdlp downloads source media with the yt-dlp command line tool.
//
// Each download resolves the item id first (--get-id), then writes to a
// unique <id>.<token>.<ext> file in the media directory so concurrent
// downloads of the same item never share a path. Partial files are removed
// when a download fails.
package ytdlp
