// Package sponsorblock talks to the third-party segment-annotation
// service and turns its answers into durable fingerprints that reveal
// upstream drift between runs.
package sponsorblock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://sponsor.ajay.app"

	defaultRequestTimeout = 10 * time.Second
)

// Categories is the fixed category list requested for every item.
var Categories = []string{
	"sponsor", "selfpromo", "interaction", "intro",
	"outro", "preview", "music_offtopic", "filler",
}

// ErrServiceUnavailable marks a transient service failure. Callers
// fail open: the previously stored fingerprint is retained and the
// error never triggers a re-fetch.
var ErrServiceUnavailable = fmt.Errorf("annotation service unavailable")

// Segment is one annotated span of an item, projected to the fields
// that participate in the fingerprint.
type Segment struct {
	// Segment holds the start and end offsets in seconds.
	Segment [2]float64 `json:"segment"`
	Category string    `json:"category"`
}

// Annotator fetches the segment list for one identifier. An empty
// slice with a nil error means the service knows no segments.
type Annotator interface {
	Segments(ctx context.Context, id string) ([]Segment, error)
}

// Client queries the skipSegments API. All requests pass through a
// shared rate limiter so the aggregate request rate stays bounded
// regardless of how many workers call concurrently.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client whose requests are spaced at least delay
// apart across all callers.
func NewClient(baseURL string, delay time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Segments fetches the annotation list for id. A 404 or an empty body
// means no segments and is not an error; any transport failure or
// unexpected status is reported as ErrServiceUnavailable.
func (c *Client) Segments(ctx context.Context, id string) ([]Segment, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(id), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	var segments []Segment
	if err := json.Unmarshal(body, &segments); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return segments, nil
}

func (c *Client) endpoint(id string) string {
	categories, _ := json.Marshal(Categories)
	q := url.Values{}
	q.Set("videoID", id)
	q.Set("categories", string(categories))
	return c.baseURL + "/api/skipSegments?" + q.Encode()
}
