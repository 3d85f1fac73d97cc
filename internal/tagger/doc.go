// Package tagger normalizes acquired audio files so playlists read as albums
// in any player: album = playlist display name, track number = playlist
// position, album artist = a fixed sentinel. Normalization is idempotent; a
// file already carrying the desired tags is left untouched.
package tagger
