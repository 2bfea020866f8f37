// Package content reads drop marketing records from the headless content store.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/observability"
)

// Defaults for the content store connection.
const (
	DefaultDataset    = "production"
	DefaultProjectID  = "mnrnuiw2"
	DefaultAPIVersion = "2021-03-25"
	DefaultTimeout    = 10 * time.Second
)

// ErrNotFound is returned when no collection matches the slug.
var ErrNotFound = errors.New("collection not found")

// collectionQuery projects a single collection by slug.
const collectionQuery = `*[_type == "collection" && slug.current == $id][0]{
  _id,
  title,
  address,
  description,
  nftCollectionName,
  mainImage {
    asset,
  },
  previewImage {
    asset,
  },
  slug {
    current,
  },
  creator -> {
    _id,
    name,
    address,
    slug {
      current
    },
  },
}`

// Config identifies a content store dataset.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	// UseCDN routes queries through the cached API edge.
	UseCDN bool
}

// DefaultConfig returns the storefront's default dataset settings.
func DefaultConfig() Config {
	return Config{
		ProjectID:  DefaultProjectID,
		Dataset:    DefaultDataset,
		APIVersion: DefaultAPIVersion,
	}
}

// Client queries the content store HTTP API.
type Client struct {
	config  Config
	baseURL string
	client  *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithBaseURL overrides the API host derived from the project id.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// NewClient creates a content store client. Empty config fields take defaults.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	if cfg.ProjectID == "" {
		cfg.ProjectID = DefaultProjectID
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}

	host := "api.sanity.io"
	if cfg.UseCDN {
		host = "apicdn.sanity.io"
	}

	c := &Client{
		config:  cfg,
		baseURL: fmt.Sprintf("https://%s.%s", cfg.ProjectID, host),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the client's dataset settings.
func (c *Client) Config() Config {
	return c.config
}

// FetchCollection loads the collection whose slug is slug.
// Returns ErrNotFound when the query result is null.
func (c *Client) FetchCollection(ctx context.Context, slug string) (*domain.Collection, error) {
	start := time.Now()

	var collection *domain.Collection
	err := c.query(ctx, collectionQuery, map[string]interface{}{"id": slug}, &collection)
	if err == nil && collection == nil {
		err = ErrNotFound
	}

	reason := ""
	switch {
	case errors.Is(err, ErrNotFound):
		reason = "not_found"
	case err != nil:
		reason = "transport"
	}
	observability.RecordContentFetch(c.config.Dataset, time.Since(start).Seconds(), reason)

	if err != nil {
		return nil, err
	}
	return collection, nil
}

// queryResponse is the query API envelope.
type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

// apiError is the query API error body.
type apiError struct {
	Error struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"error"`
}

// query runs a GROQ query with JSON-encoded parameters and decodes the result into out.
func (c *Client) query(ctx context.Context, groq string, params map[string]interface{}, out interface{}) error {
	values := url.Values{}
	values.Set("query", groq)
	for name, v := range params {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
	}

	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s",
		c.baseURL, c.config.APIVersion, url.PathEscape(c.config.Dataset), values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("content query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("content query: status %d: %s", resp.StatusCode, apiErr.Error.Description)
		}
		return fmt.Errorf("content query: unexpected status %d", resp.StatusCode)
	}

	var envelope queryResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}
