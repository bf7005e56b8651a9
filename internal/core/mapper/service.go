// Package mapper discovers same-domain links for a site so a caller can
// turn one domain into the URL batch for an extraction job.
package mapper

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly"

	"enricher/internal/logger"
	rds "enricher/internal/platform/redis"
)

// Discovery results change slowly; cache briefly so repeated discover
// calls while composing a job do not re-crawl the site.
const cacheTTLSeconds = 600

type Service struct {
	log   *logger.Logger
	redis *rds.Service
}

func NewService(redis *rds.Service) *Service {
	return &Service{log: logger.New("Mapper"), redis: redis}
}

type Request struct {
	URL               string
	Depth             int
	LinkLimit         int
	IncludeSubdomains bool
	Patterns          []string
}

type Result struct {
	Links []string `json:"links"`
}

// MapURL crawls the site's link graph up to the requested depth and
// returns discovered same-domain links in discovery order.
func (s *Service) MapURL(ctx context.Context, req Request) (*Result, error) {
	cacheKey := s.cacheKey(req)
	if s.redis != nil {
		var cached Result
		if err := s.redis.CacheGet(ctx, cacheKey, &cached); err == nil {
			s.log.LogDebugf("discover cache hit for %s", req.URL)
			return &cached, nil
		}
	}

	start := ensureScheme(req.URL)
	domain := hostOf(start)
	depth := req.Depth
	if depth < 1 {
		depth = 1
	}

	seen := make(map[string]struct{})
	var links []string
	var mu sync.Mutex

	c := colly.NewCollector(colly.MaxDepth(depth), colly.Async(true))
	c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 10, RandomDelay: 500 * time.Millisecond})

	c.OnRequest(func(r *colly.Request) {
		mu.Lock()
		reached := req.LinkLimit > 0 && len(links) >= req.LinkLimit
		mu.Unlock()
		if reached || ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := normalize(e.Request.AbsoluteURL(e.Attr("href")))
		if link == "" {
			return
		}
		if !domainsMatch(hostOf(link), domain, req.IncludeSubdomains) {
			return
		}
		if !matchesPattern(link, req.Patterns) {
			return
		}
		mu.Lock()
		_, exists := seen[link]
		reached := req.LinkLimit > 0 && len(links) >= req.LinkLimit
		if !exists && !reached {
			seen[link] = struct{}{}
			links = append(links, link)
		}
		mu.Unlock()
		if !exists && !reached && e.Request.Depth < depth {
			_ = e.Request.Visit(link)
		}
	})

	if err := c.Visit(start); err != nil {
		return nil, fmt.Errorf("visit %s: %w", start, err)
	}
	c.Wait()

	mu.Lock()
	res := &Result{Links: links}
	mu.Unlock()

	if s.redis != nil {
		if err := s.redis.CacheSet(ctx, cacheKey, res, cacheTTLSeconds); err != nil {
			s.log.LogWarnf("discover cache write for %s: %v", req.URL, err)
		}
	}
	s.log.LogInfof("discovered %d links for %s", len(res.Links), req.URL)
	return res, nil
}

func (s *Service) cacheKey(req Request) string {
	return fmt.Sprintf("discover:%s:%d:%d:%v:%s",
		req.URL, req.Depth, req.LinkLimit, req.IncludeSubdomains, strings.Join(req.Patterns, ","))
}

func ensureScheme(u string) string {
	if !strings.HasPrefix(u, "http") {
		return "https://" + u
	}
	return u
}

func hostOf(u string) string {
	p, _ := url.Parse(u)
	if p != nil {
		return p.Hostname()
	}
	return ""
}

func normalize(u string) string {
	p, _ := url.Parse(u)
	if p == nil {
		return u
	}
	p.Fragment = ""
	if p.Path == "/" {
		p.Path = ""
	}
	return p.String()
}

func domainsMatch(a, b string, includeSub bool) bool {
	a = strings.TrimPrefix(a, "www.")
	b = strings.TrimPrefix(b, "www.")
	if a == b {
		return true
	}
	return includeSub && (strings.HasSuffix(a, "."+b) || strings.HasSuffix(b, "."+a))
}

// matchesPattern accepts a URL when its path matches any glob or prefix
// pattern; an empty pattern list accepts everything.
func matchesPattern(u string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if strings.HasSuffix(pattern, "*") {
			prefix := strings.TrimSuffix(pattern, "*")
			if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}
	return false
}
