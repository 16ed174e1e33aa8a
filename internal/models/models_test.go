package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTopic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  AI  ", "AI"},
		{"climate   change\tpolicy", "climate change policy"},
		{"one two three four five six seven", "one two three four five"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeTopic(tt.in), "input %q", tt.in)
	}
}

func TestPreferenceWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultPreference(), Preference{}.WithDefaults())

	p := Preference{Topic: " space exploration ", Tone: "Casual", Format: " "}.WithDefaults()
	assert.Equal(t, "space exploration", p.Topic)
	assert.Equal(t, "Casual", p.Tone)
	assert.Equal(t, DefaultFormat, p.Format)
}

func TestSentimentValid(t *testing.T) {
	for _, s := range Sentiments {
		assert.True(t, s.Valid())
	}
	assert.False(t, Sentiment("Mixed").Valid())
	assert.False(t, Sentiment("positive").Valid())
}

func TestNewDigestAlignsTakeaways(t *testing.T) {
	capsules := []ArticleCapsule{
		{Headline: "A", KeyTakeaway: "ta", Sentiment: SentimentNeutral},
		{Headline: "B", KeyTakeaway: "tb", Sentiment: SentimentPositive},
	}
	d := NewDigest("sub-1", "Technology", capsules)

	require.NoError(t, d.Validate())
	assert.Equal(t, []string{"ta", "tb"}, d.OverallKeyTakeaways)

	capsules[0].KeyTakeaway = "changed"
	assert.Equal(t, "ta", d.ArticleSections[0].KeyTakeaway, "digest must own its sections")
}

func TestDigestValidate(t *testing.T) {
	assert.Error(t, NewDigest("sub-1", "x", nil).Validate())
	assert.Error(t, NewDigest("", "x", []ArticleCapsule{{KeyTakeaway: "t"}}).Validate())

	d := NewDigest("sub-1", "x", []ArticleCapsule{{KeyTakeaway: "t"}})
	d.OverallKeyTakeaways = append(d.OverallKeyTakeaways, "extra")
	assert.Error(t, d.Validate())

	d = NewDigest("sub-1", "x", []ArticleCapsule{{KeyTakeaway: "t"}})
	d.OverallKeyTakeaways[0] = "other"
	assert.Error(t, d.Validate())
}

func TestDigestJSONShape(t *testing.T) {
	d := NewDigest("sub-1", "AI", []ArticleCapsule{{
		Headline:      "Headline",
		KeyTakeaway:   "Takeaway",
		Synopsis:      "Synopsis",
		Sentiment:     SentimentNegative,
		SourceURL:     "https://example.com/a",
		OriginalTitle: "Original",
	}})

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "sub-1", raw["userId"])
	assert.Contains(t, raw, "overall_key_takeaways")

	sections := raw["article_sections"].([]any)
	section := sections[0].(map[string]any)
	assert.Equal(t, "Headline", section["subheading"])
	assert.Equal(t, "https://example.com/a", section["source_url"])
	assert.Equal(t, "Negative", section["sentiment"])
}
