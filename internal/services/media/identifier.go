// Package media resolves video links through the converter and searches the music catalog.
package media

import (
	"fmt"
	"regexp"
	"strings"

	"norelock.dev/mediagrab/backend/internal/models"
)

// videoIDPattern matches the watch, embed, v and short link forms and captures the identifier.
var videoIDPattern = regexp.MustCompile(`(?:https?://)?(?:(?:www\.)?youtube(?:-nocookie)?\.com/(?:watch\?.*(?:|&)v=|embed/|v/)|youtu\.be/)([-_0-9A-Za-z]{11})`)

// bareIDPattern matches an identifier given on its own.
var bareIDPattern = regexp.MustCompile(`^[-_0-9A-Za-z]{11}$`)

// ExtractVideoID returns the 11-character video identifier contained in input.
// Input may be any supported URL form or a bare identifier.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)

	if bareIDPattern.MatchString(input) {
		return input, nil
	}

	if m := videoIDPattern.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}

	return "", &models.ResolutionError{
		Kind: models.ErrInvalidInput,
		Err:  fmt.Errorf("unrecognized video link %q", input),
	}
}

// WatchURL returns the canonical watch page URL for a video identifier.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ShortURL returns the short link form used in search results.
func ShortURL(id string) string {
	return "https://youtu.be/" + id
}
