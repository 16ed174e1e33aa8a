package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	minBlockLength = 50
	minTextLength  = 200
)

var whitespace = regexp.MustCompile(`\s+`)

// HTML fetches the page directly and keeps the text of its main content
// blocks. It needs no credentials and serves as a fallback.
type HTML struct {
	client *resty.Client
}

func NewHTML(timeout time.Duration, userAgent string) *HTML {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = "newsdigest/1.0"
	}
	return &HTML{
		client: resty.New().
			SetTimeout(timeout).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "text/html,application/xhtml+xml"),
	}
}

func (h *HTML) Extract(ctx context.Context, url string) (string, error) {
	resp, err := h.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: status %d from %s", ErrUpstream, resp.StatusCode(), url)
	}

	text, err := mainText(resp.Body())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoContent, err)
	}
	if len(text) < minTextLength {
		return "", ErrNoContent
	}
	return text, nil
}

// mainText returns the paragraphs inside article or main, or every paragraph
// of the page when neither exists.
func mainText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, nav, header, footer, aside, form, noscript").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	if title := cleanText(doc.Find("h1").First().Text()); title != "" {
		b.WriteString("# ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	root.Find("p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if len(text) < minBlockLength {
			return
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	})

	return strings.TrimSpace(b.String()), nil
}

// cleanText normalizes whitespace. goquery has already decoded entities.
func cleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
