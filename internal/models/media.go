// Package models contains the data structures used throughout the application.
package models

// MediaResolution is the result of resolving a video URL through the converter.
// Either every field is populated or the resolution fails.
type MediaResolution struct {
	// ID is the 11-character video identifier.
	ID string `json:"id"`

	// Title is the video title as reported by the converter.
	Title string `json:"title"`

	// Thumb is the thumbnail image URL.
	Thumb string `json:"thumb"`

	// Quality is the video quality label, e.g. "480p".
	Quality string `json:"quality"`

	// Size is the converter's size estimate for the video file.
	Size string `json:"size"`

	// Link is the hosted video file URL.
	Link string `json:"link"`

	// SizeMP3 is the converter's size estimate for the audio file.
	SizeMP3 string `json:"size_mp3"`

	// MP3 is the hosted audio file URL.
	MP3 string `json:"mp3"`
}

// SearchHit is one catalog match returned by the search facade.
type SearchHit struct {
	// Title is "<track title> - <artists>".
	Title string `json:"title"`

	// Artist is the space-joined artist names.
	Artist string `json:"artist"`

	// ID is the video identifier of the track.
	ID string `json:"id"`

	// URL is the short link to the track.
	URL string `json:"url"`

	// Album is the album name, empty when the catalog has none.
	Album string `json:"album"`

	// Duration is the track length.
	Duration HitDuration `json:"duration"`

	// Image is the high resolution thumbnail URL.
	Image string `json:"image"`
}

// HitDuration is a track length in seconds together with its display label.
type HitDuration struct {
	Seconds int    `json:"seconds"`
	Label   string `json:"label"`
}

// ResolveRequest is the query accepted by the resolve endpoint.
type ResolveRequest struct {
	// URL is the video URL or bare identifier.
	URL string `json:"url" validate:"required,max=2048"`

	// Quality optionally overrides the video quality (e.g. 360, 480, 720).
	Quality int `json:"quality,omitempty" validate:"omitempty,min=144,max=2160"`

	// AudioQuality optionally overrides the audio bitrate in kbps.
	AudioQuality int `json:"audio_quality,omitempty" validate:"omitempty,min=64,max=320"`
}

// SearchRequest is the query accepted by the search endpoint.
type SearchRequest struct {
	// Query is the search text.
	Query string `json:"q" validate:"required,max=200"`

	// Limit caps the number of results.
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=50"`
}

// SearchResponse wraps search hits for the HTTP layer.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
	Total   int         `json:"total"`
}
