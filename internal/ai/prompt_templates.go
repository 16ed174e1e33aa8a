package ai

import (
	"fmt"
	"strings"

	"github.com/bilgisen/newsdigest/internal/models"
	"google.golang.org/genai"
)

// PromptTemplates contains the prompt templates used for summarization
var PromptTemplates = struct {
	ArticleSummary string
}{
	ArticleSummary: `You are an expert news editor. Summarize the following article text.

USER PREFERENCES:
- Tone: %s
- Format Instructions: %s

ARTICLE TEXT:
%s`,
}

// BuildSummaryPrompt fills the article summary template. Blank preferences
// fall back to the subscriber defaults.
func BuildSummaryPrompt(text, tone, format string) string {
	tone = escapeForPrompt(tone)
	if tone == "" {
		tone = models.DefaultTone
	}
	format = escapeForPrompt(format)
	if format == "" {
		format = models.DefaultFormat
	}

	return fmt.Sprintf(PromptTemplates.ArticleSummary, tone, format, text)
}

// escapeForPrompt flattens a single-line preference value
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}

// ResponseTemplate defines the expected JSON structure of the model's response
type ResponseTemplate struct {
	Headline    string `json:"headline"`
	KeyTakeaway string `json:"key_takeaway"`
	Synopsis    string `json:"synopsis"`
	Sentiment   string `json:"sentiment"`
}

// capsuleSchema constrains the model output to ResponseTemplate. It is kept
// generic so it never conflicts with user tone or format settings.
var capsuleSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"headline": {
			Type:        genai.TypeString,
			Description: "A short, catchy headline for the article.",
		},
		"key_takeaway": {
			Type:        genai.TypeString,
			Description: "The single most important fact or insight (1 sentence).",
		},
		"synopsis": {
			Type:        genai.TypeString,
			Description: "The main body/summary of the article.",
		},
		"sentiment": {
			Type:        genai.TypeString,
			Description: "The sentiment classification.",
			Enum:        sentimentEnum(),
		},
	},
	Required: []string{"headline", "key_takeaway", "synopsis", "sentiment"},
}

func sentimentEnum() []string {
	out := make([]string, len(models.Sentiments))
	for i, s := range models.Sentiments {
		out[i] = string(s)
	}
	return out
}
