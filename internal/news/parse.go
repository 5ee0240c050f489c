// Package news scrapes the latest legislature stories from the newsroom's tag page.
package news

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
)

// DefaultLimit is the number of headlines returned when none is configured.
const DefaultLimit = 5

const titleLinkSelector = "h3.entry-title a, h2.entry-title a"

// ParseHeadlines extracts up to limit stories from the article elements of html.
// Articles without a title or link still count toward the limit.
func ParseHeadlines(html []byte, limit int) ([]civic.Headline, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "news: parse html")
	}

	headlines := make([]civic.Headline, 0, limit)
	doc.Find("article").EachWithBreak(func(i int, article *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		link := article.Find(titleLinkSelector)
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}
		id, ok := article.Attr("data-post-id")
		if !ok || id == "" {
			id = fmt.Sprintf("story-%d", i)
		}
		classes, _ := article.Attr("class")
		headlines = append(headlines, civic.Headline{
			ID:      id,
			Title:   title,
			URL:     href,
			Classes: classes,
		})
		return true
	})
	return headlines, nil
}
