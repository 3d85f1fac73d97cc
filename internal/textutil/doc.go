// Package textutil provides text processing utilities for filename
// sanitization.
//
// Playlist display names become library folder names and album tags, so they
// are normalized to NFC and stripped of filesystem-unsafe characters before
// any path is derived from them.
package textutil
