package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/newsdigest/internal/config"
	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

var (
	ErrEmptyInput        = errors.New("empty article text")
	ErrEmptyResponse     = errors.New("empty response from model")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrUpstream          = errors.New("summarization service unavailable")
)

const (
	// DefaultModel is used when no model name is configured.
	DefaultModel = "gemini-2.0-flash-lite"
	// MaxInputChars bounds the article text sent to the model.
	MaxInputChars = 10000
	// Temperature keeps output schema-conformant and stable across runs.
	Temperature float32 = 0.2
)

// contentGenerator is the subset of genai.Models the summarizer calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Summarizer condenses article text into a capsule with Gemini structured
// output.
type Summarizer struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	post    *PostProcessor
	log     zerolog.Logger
}

// NewSummarizer creates the Gemini client. A missing API key is a
// configuration error.
func NewSummarizer(ctx context.Context, apiKey, model string, timeout time.Duration) (*Summarizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: gemini API key is empty", config.ErrConfiguration)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", config.ErrConfiguration, err)
	}

	return newSummarizer(client.Models, model, timeout), nil
}

func newSummarizer(gen contentGenerator, model string, timeout time.Duration) *Summarizer {
	if model == "" {
		model = DefaultModel
	}
	return &Summarizer{
		models:  gen,
		model:   model,
		timeout: timeout,
		post:    NewPostProcessor(),
		log:     logger.Component("summarizer"),
	}
}

// Summarize returns a capsule holding headline, key takeaway, synopsis and
// sentiment. Source URL and title are left for the caller.
func (s *Summarizer) Summarize(ctx context.Context, text, tone, format string) (*models.ArticleCapsule, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := BuildSummaryPrompt(truncate(text, MaxInputChars), tone, format)

	resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(Temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   capsuleSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	raw, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	capsule, err := parseCapsule(raw)
	if err != nil {
		return nil, err
	}

	if err := s.post.ProcessCapsule(capsule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	s.log.Debug().
		Int("input_chars", len(text)).
		Str("sentiment", string(capsule.Sentiment)).
		Msg("Article summarized")

	return capsule, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: blocked by safety filters", ErrEmptyResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func parseCapsule(raw string) (*models.ArticleCapsule, error) {
	// Models occasionally wrap JSON in a markdown fence even in JSON mode.
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")
		raw = strings.TrimSpace(raw)
	}

	var result ResponseTemplate
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &models.ArticleCapsule{
		Headline:    result.Headline,
		KeyTakeaway: result.KeyTakeaway,
		Synopsis:    result.Synopsis,
		Sentiment:   models.Sentiment(result.Sentiment),
	}, nil
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
