package video

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ppiankov/claimlens/internal/model"
)

// ErrInvalidReference is returned when no video id can be found in a reference
var ErrInvalidReference = errors.New("invalid YouTube URL")

var (
	idInURL = regexp.MustCompile(`(?:v=|/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)
	bareID  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ResolveID extracts the 11-character video id from a watch, short, embed or youtu.be URL,
// or accepts a bare id
func ResolveID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if bareID.MatchString(ref) {
		return ref, nil
	}
	if m := idInURL.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	return "", ErrInvalidReference
}

// WatchURL returns the canonical watch page for id
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ThumbnailURL returns the high-quality default thumbnail for id
func ThumbnailURL(id string) string {
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}

// Placeholder is the metadata used when nothing could be fetched
func Placeholder(id string) model.Video {
	return model.Video{
		ID:        id,
		Title:     defaultTitle,
		Channel:   defaultChannel,
		Thumbnail: ThumbnailURL(id),
	}
}
