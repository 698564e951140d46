// Package feed fetches the remote read-only task snapshot.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// defaultURL is the public mock feed used when TODO_FEED_URL is unset.
const defaultURL = "https://68d5e8bfe29051d1c0afee26.mockapi.io/api/todo"

// Record is one candidate task from the remote feed. Only the fields
// the merge needs are decoded; anything else in the payload is ignored.
type Record struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Client retrieves the remote snapshot.
type Client interface {
	Fetch(ctx context.Context) ([]Record, error)
}

type httpClient struct {
	url    string
	client *http.Client
}

// NewHTTPClient builds a feed client for the given URL. An empty url
// falls back to TODO_FEED_URL, then to the built-in default. The
// transport timeout is the only timeout; the sync engine itself does
// not enforce one.
func NewHTTPClient(url string) Client {
	if url == "" {
		url = os.Getenv("TODO_FEED_URL")
	}
	if url == "" {
		url = defaultURL
	}
	return &httpClient{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *httpClient) Fetch(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding feed payload: %w", err)
	}
	return records, nil
}
