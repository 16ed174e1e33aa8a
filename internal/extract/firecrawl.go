package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/newsdigest/internal/config"
	"github.com/go-resty/resty/v2"
)

// DefaultFirecrawlURL is the hosted Firecrawl API.
const DefaultFirecrawlURL = "https://api.firecrawl.dev"

// Firecrawl extracts main-content markdown through the Firecrawl scrape API.
type Firecrawl struct {
	client *resty.Client
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// NewFirecrawl returns a client for baseURL. A missing API key is a
// configuration error.
func NewFirecrawl(baseURL, apiKey string, timeout time.Duration) (*Firecrawl, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: firecrawl API key is empty", config.ErrConfiguration)
	}
	if baseURL == "" {
		baseURL = DefaultFirecrawlURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Firecrawl{
		client: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(timeout).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json"),
	}, nil
}

func (f *Firecrawl) Extract(ctx context.Context, url string) (string, error) {
	var body scrapeResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(scrapeRequest{
			URL:             url,
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		}).
		SetResult(&body).
		SetError(&body).
		Post("/v1/scrape")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode(), body.Error)
	}

	if !body.Success {
		return "", fmt.Errorf("%w: scrape unsuccessful: %s", ErrNoContent, body.Error)
	}

	markdown := strings.TrimSpace(body.Data.Markdown)
	if markdown == "" {
		return "", ErrNoContent
	}
	return markdown, nil
}
