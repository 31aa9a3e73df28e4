package media

import (
	"strconv"
	"strings"

	"norelock.dev/mediagrab/backend/internal/models"
)

// AnalyzeResult holds the values scraped from the analyze fragment.
type AnalyzeResult struct {
	Token   string
	Title   string
	Thumb   string
	Size    string
	SizeMP3 string
}

// ParseAnalyze scrapes the analyze fragment. The session token is checked
// first so a changed page layout is reported as a missing token.
func ParseAnalyze(html string) (*AnalyzeResult, error) {
	stage := StageAnalyze.String()

	values := ScrapeAll(html, TokenField, ThumbField, TitleField, VideoSizeField, AudioSizeField)
	for _, f := range []Field{TokenField, ThumbField, TitleField, VideoSizeField, AudioSizeField} {
		if strings.TrimSpace(values[f.Name]) == "" {
			return nil, models.MissingField(stage, f.Name)
		}
	}

	return &AnalyzeResult{
		Token:   values[TokenField.Name],
		Title:   values[TitleField.Name],
		Thumb:   values[ThumbField.Name],
		Size:    values[VideoSizeField.Name],
		SizeMP3: values[AudioSizeField.Name],
	}, nil
}

// ParseLink scrapes the download anchor from a convert fragment.
func ParseLink(stage Stage, html string) (string, error) {
	link, ok := Scrape(html, LinkField)
	if !ok || strings.TrimSpace(link) == "" {
		return "", models.MissingField(stage.String(), LinkField.Name)
	}
	return link, nil
}

// QualityLabel formats a video quality as shown to clients, e.g. "480p".
func QualityLabel(quality int) string {
	return strconv.Itoa(quality) + "p"
}

// Assemble folds the three stage results into one resolution.
// Text fields are trimmed and links are passed through as received.
// No record is returned unless every field is present.
func Assemble(id string, videoQuality int, analyzed *AnalyzeResult, videoLink, audioLink string) (*models.MediaResolution, error) {
	if analyzed == nil {
		return nil, models.MissingField(StageAnalyze.String(), TokenField.Name)
	}

	res := &models.MediaResolution{
		ID:      id,
		Title:   strings.TrimSpace(analyzed.Title),
		Thumb:   analyzed.Thumb,
		Quality: QualityLabel(videoQuality),
		Size:    strings.TrimSpace(analyzed.Size),
		Link:    videoLink,
		SizeMP3: strings.TrimSpace(analyzed.SizeMP3),
		MP3:     audioLink,
	}

	required := []struct {
		stage Stage
		name  string
		value string
	}{
		{StageAnalyze, "id", res.ID},
		{StageAnalyze, ThumbField.Name, res.Thumb},
		{StageAnalyze, TitleField.Name, res.Title},
		{StageAnalyze, VideoSizeField.Name, res.Size},
		{StageAnalyze, AudioSizeField.Name, res.SizeMP3},
		{StageConvertVideo, "link", res.Link},
		{StageConvertAudio, "mp3", res.MP3},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, models.MissingField(r.stage.String(), r.name)
		}
	}

	return res, nil
}
