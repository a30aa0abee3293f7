package noaa

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

// DefaultFeedURL is the national active-alerts Atom feed.
const DefaultFeedURL = "https://api.weather.gov/alerts/active.atom"

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 512

// Client fetches the active-alerts Atom feed.
type Client struct {
	httpClient *http.Client
	url        string
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates an Atom feed client. The feed host rejects requests
// without a User-Agent, so an empty one falls back to a fixed identifier.
func NewClient(url string, timeout time.Duration, userAgent string, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultFeedURL
	}
	if userAgent == "" {
		userAgent = "storm-alert-delays"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		url:       url,
		userAgent: userAgent,
		logger:    logger,
	}
}

// FetchEntries returns every entry of the feed in document order.
func (c *Client) FetchEntries(ctx context.Context) ([]domain.RawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/atom+xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alert feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("alert feed error: status %d: %s", resp.StatusCode, body)
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	c.logger.Debug("alert feed fetched", "entries", len(f.Entries), "duration", time.Since(start))
	return f.Entries, nil
}

// Atom document shape. Only entry title, summary, and updated are read;
// element names match regardless of namespace.

type feed struct {
	XMLName xml.Name          `xml:"feed"`
	Entries []domain.RawEntry `xml:"entry"`
}
