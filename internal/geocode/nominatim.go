package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ClientOptions configures a Nominatim client.
type ClientOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RatePerSec caps outgoing requests. The public instance allows 1/s.
	RatePerSec float64
}

// Client queries a Nominatim-compatible search endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client, filling unset options with defaults.
func NewClient(opt ClientOptions) *Client {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	if opt.UserAgent == "" {
		opt.UserAgent = "minedash/1.0"
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 5 * time.Second
	}
	limit := rate.Inf
	if opt.RatePerSec > 0 {
		limit = rate.Limit(opt.RatePerSec)
	}
	return &Client{
		baseURL:    strings.TrimRight(opt.BaseURL, "/"),
		userAgent:  opt.UserAgent,
		httpClient: &http.Client{Timeout: opt.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Lookup resolves name to its first search result. It makes one request and
// does not retry.
func (c *Client) Lookup(ctx context.Context, name string) (Point, error) {
	if strings.TrimSpace(name) == "" {
		return Point{}, ErrNoMatch
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Point{}, fmt.Errorf("rate limit wait: %w", err)
	}
	q := url.Values{}
	q.Set("q", name)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Point{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Point{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(results) == 0 {
		return Point{}, ErrNoMatch
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse lat %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse lon %q: %w", results[0].Lon, err)
	}
	return Point{Entity: name, Lat: lat, Lon: lon}, nil
}
