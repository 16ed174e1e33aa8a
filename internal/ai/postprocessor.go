package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bilgisen/newsdigest/internal/models"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	htmlTags     = regexp.MustCompile(`(?i)<\s*/?\s*(script|iframe|object|embed|link|meta|style)[^>]*>`)
)

// PostProcessor validates and cleans model output before it becomes a capsule.
type PostProcessor struct {
	maxHeadlineLength int
	maxTakeawayLength int
}

func NewPostProcessor() *PostProcessor {
	return &PostProcessor{
		maxHeadlineLength: 160,
		maxTakeawayLength: 500,
	}
}

// ProcessCapsule checks required fields and the sentiment enum, then
// normalizes text in place.
func (p *PostProcessor) ProcessCapsule(c *models.ArticleCapsule) error {
	c.Headline = p.cleanText(c.Headline)
	c.KeyTakeaway = p.cleanText(c.KeyTakeaway)
	c.Synopsis = p.cleanSynopsis(c.Synopsis)
	c.Sentiment = models.Sentiment(strings.TrimSpace(string(c.Sentiment)))

	switch {
	case c.Headline == "":
		return fmt.Errorf("missing required field: headline")
	case c.KeyTakeaway == "":
		return fmt.Errorf("missing required field: key_takeaway")
	case c.Synopsis == "":
		return fmt.Errorf("missing required field: synopsis")
	case !c.Sentiment.Valid():
		return fmt.Errorf("invalid sentiment %q", c.Sentiment)
	}

	c.Headline = truncateWithEllipsis(c.Headline, p.maxHeadlineLength)
	c.KeyTakeaway = truncateWithEllipsis(c.KeyTakeaway, p.maxTakeawayLength)
	return nil
}

// cleanText removes markup and control characters and collapses whitespace
func (p *PostProcessor) cleanText(s string) string {
	s = htmlTags.ReplaceAllString(s, "")
	s = controlChars.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// cleanSynopsis keeps paragraph breaks but strips markup and stray whitespace
func (p *PostProcessor) cleanSynopsis(s string) string {
	s = htmlTags.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = controlChars.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	s = strings.Join(lines, "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}

func truncateWithEllipsis(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max-3])) + "..."
}
