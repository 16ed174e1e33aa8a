package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/newsdigest/internal/config"
	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrUpstream wraps every failure of the article-search service.
var ErrUpstream = errors.New("article search unavailable")

const (
	// DefaultBaseURL is the NewsAPI host.
	DefaultBaseURL = "https://newsapi.org"
	// PageSize caps the number of candidates per topic.
	PageSize = 5
	// DefaultRetryCount and DefaultRetryWait apply when Options leaves them
	// zero. A negative RetryCount disables retries.
	DefaultRetryCount = 3
	DefaultRetryWait  = 2 * time.Second

	everythingPath   = "/v2/everything"
	removedPlacehold = "[Removed]"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
}

// Client queries NewsAPI's everything endpoint for recent popular articles.
type Client struct {
	client *resty.Client
	now    func() time.Time
	log    zerolog.Logger
}

type everythingResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"articles"`
}

// NewClient returns a configured client. A missing API key is a configuration
// error.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: news API key is empty", config.ErrConfiguration)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	switch {
	case opts.RetryCount == 0:
		opts.RetryCount = DefaultRetryCount
	case opts.RetryCount < 0:
		opts.RetryCount = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = DefaultRetryWait
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("X-Api-Key", opts.APIKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(10 * opts.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500)
		})

	return &Client{
		client: client,
		now:    time.Now,
		log:    logger.Component("news"),
	}, nil
}

// FetchCandidates returns up to PageSize English articles on topic published
// within the last day, most popular first. Upstream failures yield an empty
// slice and an error wrapping ErrUpstream.
func (c *Client) FetchCandidates(ctx context.Context, topic string) ([]models.CandidateArticle, error) {
	topic = models.SanitizeTopic(topic)
	if topic == "" {
		return nil, nil
	}

	since := c.now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	var body everythingResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        topic,
			"from":     since,
			"language": "en",
			"sortBy":   "popularity",
			"pageSize": strconv.Itoa(PageSize),
		}).
		SetResult(&body).
		SetError(&body).
		Get(everythingPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.IsError() || body.Status != "ok" {
		msg := body.Message
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("%w: status %d: %s %s", ErrUpstream, resp.StatusCode(), body.Code, msg)
	}

	seen := make(map[string]bool, len(body.Articles))
	candidates := make([]models.CandidateArticle, 0, len(body.Articles))
	for _, a := range body.Articles {
		url := strings.TrimSpace(a.URL)
		title := strings.TrimSpace(a.Title)
		if url == "" || title == removedPlacehold || seen[url] {
			continue
		}
		seen[url] = true
		candidates = append(candidates, models.CandidateArticle{URL: url, Title: title})
		if len(candidates) == PageSize {
			break
		}
	}

	c.log.Debug().
		Str("topic", topic).
		Str("since", since).
		Int("total_results", body.TotalResults).
		Int("candidates", len(candidates)).
		Msg("Fetched candidate articles")

	return candidates, nil
}
