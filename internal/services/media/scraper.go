package media

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field describes one value located in a converter fragment.
// Exactly one of Selector or Pattern is set.
type Field struct {
	// Name is used in error messages.
	Name string
	// Selector is a CSS selector; the first match is used.
	Selector string
	// Attr is read from the matched node. Empty means its trimmed text.
	Attr string
	// Pattern is run over the raw fragment; capture group 1 is returned.
	Pattern *regexp.Regexp
}

// Fields read from the converter fragments.
var (
	ThumbField = Field{Name: "thumb", Selector: "div.thumbnail.cover > a > img", Attr: "src"}
	TitleField = Field{Name: "title", Selector: "div.thumbnail.cover > div > b"}
	// VideoSizeField is the size cell of the third mp4 row, which the converter lists as 480p.
	VideoSizeField = Field{Name: "size", Selector: "#mp4 > table > tbody > tr:nth-child(3) > td:nth-child(2)"}
	AudioSizeField = Field{Name: "size_mp3", Selector: "#audio > table > tbody > tr:nth-child(1) > td:nth-child(2)"}
	TokenField     = Field{Name: "token", Pattern: regexp.MustCompile(`var k__id = "(.*?)"`)}
	LinkField      = Field{Name: "link", Selector: "div > a", Attr: "href"}
)

// Scrape extracts f from html. It reports false when the node, attribute
// or pattern is absent. Malformed markup never causes an error.
func Scrape(html string, f Field) (string, bool) {
	if f.Pattern != nil {
		m := f.Pattern.FindStringSubmatch(html)
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	return scrapeDocument(doc, f)
}

// ScrapeAll extracts every field from one parsed fragment.
// Missing fields are left out of the returned map.
func ScrapeAll(html string, fields ...Field) map[string]string {
	values := make(map[string]string, len(fields))

	var doc *goquery.Document
	for _, f := range fields {
		if f.Pattern != nil {
			if v, ok := Scrape(html, f); ok {
				values[f.Name] = v
			}
			continue
		}

		if doc == nil {
			var err error
			doc, err = goquery.NewDocumentFromReader(strings.NewReader(html))
			if err != nil {
				return values
			}
		}
		if v, ok := scrapeDocument(doc, f); ok {
			values[f.Name] = v
		}
	}
	return values
}

func scrapeDocument(doc *goquery.Document, f Field) (string, bool) {
	sel := doc.Find(f.Selector).First()
	if sel.Length() == 0 {
		return "", false
	}

	if f.Attr == "" {
		return strings.TrimSpace(sel.Text()), true
	}
	return sel.Attr(f.Attr)
}
