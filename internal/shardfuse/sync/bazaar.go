package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

const (
	// DefaultBazaarURL is the public API base.
	DefaultBazaarURL = "https://api.hypixel.net/v2"

	bazaarEndpoint  = "/skyblock/bazaar"
	shardPrefix     = "SHARD_"
	defaultInterval = time.Second
	defaultTimeout  = 30 * time.Second
	initialBackoff  = time.Second
	maxBackoff      = 16 * time.Second
)

// BazaarOptions configure a BazaarClient. Zero values select defaults.
type BazaarOptions struct {
	BaseURL         string
	APIKey          string
	RequestInterval time.Duration
	Timeout         time.Duration
	MaxRetries      int
	InitialBackoff  time.Duration
	HTTPClient      *http.Client
	Now             func() time.Time
}

// BazaarClient fetches shard prices with rate limiting and retries.
type BazaarClient struct {
	opts        BazaarOptions
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewBazaarClient creates a client.
func NewBazaarClient(opts BazaarOptions) *BazaarClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBazaarURL
	}
	if opts.RequestInterval <= 0 {
		opts.RequestInterval = defaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = initialBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &BazaarClient{
		opts:        opts,
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Every(opts.RequestInterval), 1),
	}
}

// FetchPrices downloads the bazaar and returns a price document of the
// buy prices of every SHARD_ product, stamped with the fetch time, together
// with its JSON encoding.
func (c *BazaarClient) FetchPrices(ctx context.Context) (shardfuse.PriceDocument, []byte, error) {
	body, err := c.doRequest(ctx, strings.TrimRight(c.opts.BaseURL, "/")+bazaarEndpoint)
	if err != nil {
		return shardfuse.PriceDocument{}, nil, fmt.Errorf("fetching bazaar: %w", err)
	}

	doc, err := parseBazaar(body, c.opts.Now())
	if err != nil {
		return shardfuse.PriceDocument{}, nil, err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return shardfuse.PriceDocument{}, nil, fmt.Errorf("encoding price document: %w", err)
	}
	return doc, data, nil
}

func parseBazaar(body []byte, fetchedAt time.Time) (shardfuse.PriceDocument, error) {
	if !gjson.ValidBytes(body) {
		return shardfuse.PriceDocument{}, errors.New("parsing bazaar response: invalid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.Get("success").Bool() {
		return shardfuse.PriceDocument{}, fmt.Errorf("bazaar request unsuccessful: %s", root.Get("cause").String())
	}

	products := root.Get("products")
	if !products.IsObject() {
		return shardfuse.PriceDocument{}, errors.New("parsing bazaar response: products must be an object")
	}

	doc := shardfuse.PriceDocument{
		Timestamp: fetchedAt.UnixMilli(),
		Prices:    make(map[string]float64),
	}
	products.ForEach(func(k, v gjson.Result) bool {
		if !strings.HasPrefix(k.String(), shardPrefix) {
			return true
		}
		// Products with no buy orders have no usable price.
		if price := v.Get("quick_status.buyPrice").Float(); price > 0 {
			doc.Prices[k.String()] = price
		}
		return true
	})
	return doc, nil
}

// doRequest performs a GET with rate limiting and retry logic. Network
// errors, 429 and 5xx responses are retried with exponential backoff.
func (c *BazaarClient) doRequest(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	backoff := c.opts.InitialBackoff

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff = min(backoff*2, maxBackoff)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.opts.APIKey != "" {
			req.Header.Set("API-Key", c.opts.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = errors.New("rate limited (HTTP 429)")
			if wait, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
				backoff = wait
			}
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
		default:
			return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(body, 200))
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.opts.MaxRetries+1, lastErr)
}

func retryAfter(header string) (time.Duration, bool) {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
