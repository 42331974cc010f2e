package hallofbeorn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"octpack/internal/catalog"
	"octpack/internal/logging"
	"octpack/internal/services"
)

// DefaultBaseURL is the public Hall of Beorn site.
const DefaultBaseURL = "http://hallofbeorn.com"

const maxErrorBody = 2048

// Cache stores raw response bodies keyed by request URL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
}

// Catalog is the remote catalog surface used by the pipeline.
type Catalog interface {
	Cards(ctx context.Context, setName string) ([]catalog.RemoteCard, error)
	Sets(ctx context.Context) ([]catalog.RemoteSet, error)
}

// Client talks to the Hall of Beorn export endpoints.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	cache      Cache
	logger     *slog.Logger
}

var _ Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCache enables response caching.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Hall of Beorn client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("hall of beorn base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse hall of beorn base url: %w", err)
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "octpack",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "hallofbeorn")
	return client, nil
}

// BaseURL returns the configured endpoint root.
func (c *Client) BaseURL() string { return c.baseURL }

// Only the fields octpack reads are decoded; the rest stays in Attributes.
type side struct {
	ImagePath string `json:"ImagePath"`
}

type cardPayload struct {
	Title   string `json:"Title"`
	Front   side   `json:"Front"`
	Back    *side  `json:"Back"`
	CardSet string `json:"CardSet"`
}

type setPayload struct {
	Name    string `json:"Name"`
	SetType string `json:"SetType"`
}

// DecodeError reports a response item missing a field octpack needs.
type DecodeError struct {
	Endpoint string
	Index    int
	Field    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("hall of beorn %s: item %d missing %s", e.Endpoint, e.Index, e.Field)
}

// CardsURL returns the search URL for a set. Spaces are encoded as %20.
func (c *Client) CardsURL(setName string) string {
	return c.baseURL + "/Export/Search?CardSet=" + strings.ReplaceAll(url.QueryEscape(setName), "+", "%20")
}

// SetsURL returns the set listing URL.
func (c *Client) SetsURL() string {
	return c.baseURL + "/Export/CardSets"
}

// Cards fetches every card of the named set. Each card keeps its raw JSON in
// Attributes.
func (c *Client) Cards(ctx context.Context, setName string) ([]catalog.RemoteCard, error) {
	setName = strings.TrimSpace(setName)
	if setName == "" {
		return nil, errors.New("set name must not be empty")
	}
	var cards []catalog.RemoteCard
	err := c.load(ctx, c.CardsURL(setName), func(body []byte) error {
		decoded, err := decodeCards(setName, body)
		cards = decoded
		return err
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// Sets lists the remote sets in published order.
func (c *Client) Sets(ctx context.Context) ([]catalog.RemoteSet, error) {
	var sets []catalog.RemoteSet
	err := c.load(ctx, c.SetsURL(), func(body []byte) error {
		decoded, err := decodeSets(body)
		sets = decoded
		return err
	})
	if err != nil {
		return nil, err
	}
	return sets, nil
}

func decodeCards(setName string, body []byte) ([]catalog.RemoteCard, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, services.Wrap(services.ErrValidation, "hallofbeorn", "decode cards", setName, err)
	}
	cards := make([]catalog.RemoteCard, 0, len(raw))
	for i, item := range raw {
		var payload cardPayload
		if err := json.Unmarshal(item, &payload); err != nil {
			return nil, services.Wrap(services.ErrValidation, "hallofbeorn", "decode card", fmt.Sprintf("item %d", i), err)
		}
		if payload.Title == "" {
			return nil, &DecodeError{Endpoint: "search", Index: i, Field: "Title"}
		}
		if payload.Front.ImagePath == "" {
			return nil, &DecodeError{Endpoint: "search", Index: i, Field: "Front.ImagePath"}
		}
		card := catalog.RemoteCard{
			Title:      payload.Title,
			FrontImage: payload.Front.ImagePath,
			SetName:    payload.CardSet,
			Attributes: item,
		}
		if payload.Back != nil {
			card.BackImage = payload.Back.ImagePath
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func decodeSets(body []byte) ([]catalog.RemoteSet, error) {
	var payload []setPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "hallofbeorn", "decode sets", "", err)
	}
	sets := make([]catalog.RemoteSet, 0, len(payload))
	for i, item := range payload {
		if item.Name == "" {
			return nil, &DecodeError{Endpoint: "sets", Index: i, Field: "Name"}
		}
		sets = append(sets, catalog.RemoteSet{Name: item.Name, Category: item.SetType})
	}
	return sets, nil
}

// load serves endpoint from the cache when the cached body decodes, and
// otherwise from the network. Only bodies that decode are written back.
func (c *Client) load(ctx context.Context, endpoint string, decode func([]byte) error) error {
	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, endpoint)
		switch {
		case err != nil:
			logging.WarnWithContext(c.logger, "catalog cache read failed", "catalog_cache_read_failed",
				logging.String("url", endpoint),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run octpack cache clear if this persists"),
				logging.String(logging.FieldImpact, "response fetched from the network instead"))
		case ok:
			decodeErr := decode(body)
			if decodeErr == nil {
				c.logger.Debug("catalog cache hit", logging.String("url", endpoint))
				return nil
			}
			logging.WarnWithContext(c.logger, "cached catalog document is invalid", "catalog_cache_invalid",
				logging.String("url", endpoint),
				logging.Error(decodeErr),
				logging.String(logging.FieldErrorHint, "the entry is replaced once the network copy decodes"),
				logging.String(logging.FieldImpact, "response fetched from the network instead"))
		}
	}

	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := decode(body); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, endpoint, body); err != nil {
			logging.WarnWithContext(c.logger, "catalog cache write failed", "catalog_cache_write_failed",
				logging.String("url", endpoint),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the catalog cache path"),
				logging.String(logging.FieldImpact, "next run fetches this document again"))
		}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "hallofbeorn", "request",
			fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		marker := services.ErrExternalTool
		switch {
		case resp.StatusCode == http.StatusNotFound:
			marker = services.ErrNotFound
		case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "hallofbeorn", "request",
			fmt.Sprintf("%s returned %d (latency=%v): %s", endpoint, resp.StatusCode, latency, strings.TrimSpace(string(snippet))), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "hallofbeorn", "read body", endpoint, err)
	}
	body = bytes.TrimSpace(body)
	c.logger.Debug("fetched catalog document",
		logging.String("url", endpoint),
		logging.Int("bytes", len(body)),
		logging.Duration("latency", latency))

	return body, nil
}
