package youtube

import (
	"fmt"
	"regexp"
	"strings"

	"tubequiz/internal/domain"
)

var (
	urlIDPattern  = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube\.com/(?:[^/\s]+/\S+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	bareIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// Resolve extracts the canonical video id from any accepted reference form:
// full watch URLs, youtu.be short links, embed/v paths, or a bare 11-character id.
func Resolve(raw string) (domain.VideoRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.VideoRef{}, fmt.Errorf("%w: empty input", domain.ErrInvalidVideoReference)
	}
	if bareIDPattern.MatchString(raw) {
		return domain.VideoRef{ID: raw}, nil
	}
	if m := urlIDPattern.FindStringSubmatch(raw); m != nil {
		return domain.VideoRef{ID: m[1]}, nil
	}
	return domain.VideoRef{}, fmt.Errorf("%w: %q", domain.ErrInvalidVideoReference, raw)
}
