// Package fetch retrieves page markup over a shared, size-bounded
// connection pool and classifies transport failures into a small taxonomy.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"enricher/internal/logger"
)

const (
	requestTimeout  = 30 * time.Second
	maxRedirects    = 5
	maxConnsPerHost = 10
	maxIdlePerHost  = 5

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Page is one fetched document.
type Page struct {
	Body       string
	StatusCode int
	Bytes      int
	FetchedAt  time.Time
}

// Client is safe for concurrent use by all running tasks; they share one
// keep-alive pool with per-host socket ceilings.
type Client struct {
	http *http.Client
	log  *logger.Logger
}

func New() *Client {
	transport := &http.Transport{
		MaxConnsPerHost:     maxConnsPerHost,
		MaxIdleConnsPerHost: maxIdlePerHost,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		log: logger.New("Fetcher"),
	}
}

// Fetch returns the page body as text, or a *Error. Any status >= 400 is a
// failure. gzip responses are decoded transparently by the transport.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Classify(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		ferr := Classify(err)
		c.log.LogDebugf("fetch %s failed (%s): %v", url, ferr.Kind, err)
		return nil, ferr
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.log.LogDebugf("fetch %s: HTTP %d", url, resp.StatusCode)
		return nil, httpStatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Classify(err)
	}

	c.log.LogDebugf("fetch %s: %d bytes in %v", url, len(body), time.Since(start))
	return &Page{
		Body:       string(body),
		StatusCode: resp.StatusCode,
		Bytes:      len(body),
		FetchedAt:  time.Now().UTC(),
	}, nil
}
