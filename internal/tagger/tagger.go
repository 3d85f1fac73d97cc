package tagger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"

	"playsync/internal/logging"
)

// ErrNormalization marks a tagging failure. The audio payload is intact, so
// the entry stays acquired and tagging is retried on the next run.
var ErrNormalization = errors.New("metadata normalization failed")

// Request describes the desired tag state for one file.
type Request struct {
	Path string
	// Album is the playlist display name.
	Album string
	// Track is the entry's 1-based playlist position.
	Track int
	// Title is written only when the file carries no title of its own; the
	// source-embedded title is treated as authoritative.
	Title string
}

// Normalizer writes playlist-as-album metadata into ID3v2 containers.
type Normalizer struct {
	albumArtist string
	writeLyrics bool
	log         *slog.Logger
}

// New wires a Normalizer. albumArtist is the sentinel grouping value written
// to every file; writeLyrics embeds a lyrics sidecar when present.
func New(albumArtist string, writeLyrics bool, log *slog.Logger) *Normalizer {
	if log == nil {
		log = logging.NewNop()
	}
	return &Normalizer{albumArtist: albumArtist, writeLyrics: writeLyrics, log: log}
}

// Normalize brings the file's tags to the requested state. A file already in
// that state is not rewritten.
func (n *Normalizer) Normalize(req Request) error {
	if !strings.EqualFold(filepath.Ext(req.Path), ".mp3") {
		return fmt.Errorf("%w: unsupported container %q", ErrNormalization, filepath.Ext(req.Path))
	}

	tag, err := id3v2.Open(req.Path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrNormalization, req.Path, err)
	}
	defer func() { _ = tag.Close() }()
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	dirty := false

	if tag.Album() != req.Album {
		tag.SetAlbum(req.Album)
		dirty = true
	}

	albumArtistID := tag.CommonID("Band/Orchestra/Accompaniment")
	if tag.GetTextFrame(albumArtistID).Text != n.albumArtist {
		tag.AddFrame(albumArtistID, id3v2.TextFrame{Encoding: id3v2.EncodingUTF8, Text: n.albumArtist})
		dirty = true
	}

	trackID := tag.CommonID("Track number/Position in set")
	track := strconv.Itoa(req.Track)
	if tag.GetTextFrame(trackID).Text != track {
		tag.AddFrame(trackID, id3v2.TextFrame{Encoding: id3v2.EncodingUTF8, Text: track})
		dirty = true
	}

	if tag.Title() == "" && req.Title != "" {
		tag.SetTitle(req.Title)
		dirty = true
	}

	if n.writeLyrics {
		if added := n.embedLyrics(tag, req.Path); added {
			dirty = true
		}
	}

	if !dirty {
		return nil
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrNormalization, req.Path, err)
	}
	if err := n.verify(req); err != nil {
		return err
	}

	n.log.Info("metadata normalized",
		logging.String(logging.FieldPath, req.Path),
		logging.String("album", req.Album),
		logging.Int("track", req.Track))
	return nil
}

// embedLyrics attaches a lyrics sidecar once. Files that already carry a
// lyrics frame are left alone.
func (n *Normalizer) embedLyrics(tag *id3v2.Tag, path string) bool {
	lyricsID := tag.CommonID("Unsynchronised lyrics/text transcription")
	if len(tag.GetFrames(lyricsID)) > 0 {
		return false
	}
	lyrics := readLyricsSidecar(path)
	if lyrics == "" {
		return false
	}
	tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
		Encoding: id3v2.EncodingUTF8,
		Language: "eng",
		Lyrics:   lyrics,
	})
	return true
}

// readLyricsSidecar finds a .lrc file next to the audio file, either as a
// bare sidecar or with a language infix the retrieval tool inserts.
func readLyricsSidecar(audioPath string) string {
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	candidates := []string{base + ".lrc"}
	if matches, err := filepath.Glob(base + ".*.lrc"); err == nil {
		candidates = append(candidates, matches...)
	}
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil || len(data) == 0 {
			continue
		}
		return string(data)
	}
	return ""
}

// verify reopens the file and checks the tags actually landed.
func (n *Normalizer) verify(req Request) error {
	tag, err := id3v2.Open(req.Path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: verify %s: %v", ErrNormalization, req.Path, err)
	}
	defer func() { _ = tag.Close() }()

	if tag.Album() != req.Album {
		return fmt.Errorf("%w: verify %s: album not persisted", ErrNormalization, req.Path)
	}
	trackID := tag.CommonID("Track number/Position in set")
	if tag.GetTextFrame(trackID).Text != strconv.Itoa(req.Track) {
		return fmt.Errorf("%w: verify %s: track number not persisted", ErrNormalization, req.Path)
	}
	return nil
}
