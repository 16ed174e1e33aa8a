package models

import (
	"fmt"
	"slices"
	"time"
)

// Sentiment classifies the tone of a summarized article.
type Sentiment string

const (
	SentimentPositive      Sentiment = "Positive"
	SentimentNeutral       Sentiment = "Neutral"
	SentimentNegative      Sentiment = "Negative"
	SentimentControversial Sentiment = "Controversial"
)

// Sentiments lists every accepted value, in schema order.
var Sentiments = []Sentiment{
	SentimentPositive,
	SentimentNeutral,
	SentimentNegative,
	SentimentControversial,
}

// Valid reports whether s is one of Sentiments.
func (s Sentiment) Valid() bool {
	return slices.Contains(Sentiments, s)
}

// CandidateArticle is a search hit waiting to be extracted and summarized.
type CandidateArticle struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ArticleCapsule is the structured summary of one article.
type ArticleCapsule struct {
	Headline      string    `json:"subheading"`
	KeyTakeaway   string    `json:"key_takeaway"`
	Synopsis      string    `json:"synopsis"`
	Sentiment     Sentiment `json:"sentiment"`
	SourceURL     string    `json:"source_url"`
	OriginalTitle string    `json:"original_title"`
}

// Digest is one subscriber's assembled news summary. Once persisted it is
// never modified.
type Digest struct {
	ID                  string           `json:"id"`
	SubscriberID        string           `json:"userId"`
	Topic               string           `json:"topic"`
	OverallKeyTakeaways []string         `json:"overall_key_takeaways"`
	ArticleSections     []ArticleCapsule `json:"article_sections"`
	CreatedAt           time.Time        `json:"createdAt"`
}

// NewDigest assembles a digest whose takeaways mirror the capsules 1:1.
func NewDigest(subscriberID, topic string, capsules []ArticleCapsule) *Digest {
	sections := make([]ArticleCapsule, len(capsules))
	copy(sections, capsules)

	takeaways := make([]string, len(sections))
	for i, c := range sections {
		takeaways[i] = c.KeyTakeaway
	}

	return &Digest{
		SubscriberID:        subscriberID,
		Topic:               topic,
		OverallKeyTakeaways: takeaways,
		ArticleSections:     sections,
	}
}

// Validate checks that a digest is complete and aligned before it is stored.
func (d *Digest) Validate() error {
	if d.SubscriberID == "" {
		return fmt.Errorf("digest has no subscriber")
	}
	if len(d.ArticleSections) == 0 {
		return fmt.Errorf("digest has no article sections")
	}
	if len(d.OverallKeyTakeaways) != len(d.ArticleSections) {
		return fmt.Errorf("digest has %d takeaways for %d sections",
			len(d.OverallKeyTakeaways), len(d.ArticleSections))
	}
	for i, section := range d.ArticleSections {
		if d.OverallKeyTakeaways[i] != section.KeyTakeaway {
			return fmt.Errorf("takeaway %d does not match its section", i)
		}
	}
	return nil
}
