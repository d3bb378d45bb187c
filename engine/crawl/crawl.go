// Package crawl fetches university faculty directories and lab pages,
// producing the raw material for the ingestion pipeline.
package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vihdutta/CollegeLabMatch/pkg/fn"
)

const defaultUserAgent = "CollegeLabMatch-crawler/1.0"

// facultyLinkPattern matches hrefs that look like faculty or lab profile
// pages on university sites.
var facultyLinkPattern = regexp.MustCompile(`(?i)/(faculty|people|profile|lab|research|~\w+)`)

var (
	anchorPattern = regexp.MustCompile(`(?is)<a[^>]+href="([^"#]+)"[^>]*>(.*?)</a>`)
	titlePattern  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// Page is one fetched document.
type Page struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	HTML      string    `json:"html"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FacultyEntry is a candidate lab page discovered in a directory.
type FacultyEntry struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	PageURL string `json:"page_url"`
}

// FacultyPage pairs a discovered entry with its fetched page and the
// flattened text used for enrichment.
type FacultyPage struct {
	Entry FacultyEntry `json:"entry"`
	Page  Page         `json:"page"`
	Text  string       `json:"text"`
}

// CrawlOpts configures a crawl run.
type CrawlOpts struct {
	DirectoryURLs []string
	MaxPerSource  int
}

// Crawler fetches pages with politeness controls.
type Crawler struct {
	limiter    *rate.Limiter
	httpClient *http.Client
	userAgent  string
	retry      fn.RetryOpts
	seen       sync.Map // dedup by absolute URL
}

// NewCrawler creates a crawler. Requests are rate limited to one every
// interval with small bursts, matching polite-crawl expectations of
// university sites.
func NewCrawler(interval time.Duration) *Crawler {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Crawler{
		limiter:    rate.NewLimiter(rate.Every(interval), 3),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  defaultUserAgent,
		retry:      fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Second, MaxWait: 10 * time.Second, Jitter: true},
	}
}

// Fetch retrieves one page, honoring the rate limit and retrying transient
// failures.
func (c *Crawler) Fetch(ctx context.Context, pageURL string) fn.Result[Page] {
	return fn.Retry(ctx, c.retry, func(ctx context.Context) fn.Result[Page] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[Page](err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return fn.Err[Page](err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fn.Err[Page](err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fn.Errf[Page]("fetch %s: status %d", pageURL, resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
		if err != nil {
			return fn.Err[Page](err)
		}

		html := string(body)
		title := ""
		if m := titlePattern.FindStringSubmatch(html); len(m) == 2 {
			title = Flatten(m[1])
		}
		return fn.Ok(Page{
			URL:       pageURL,
			Title:     title,
			HTML:      html,
			FetchedAt: time.Now(),
		})
	})
}

// DiscoverFaculty fetches a directory page and extracts faculty profile
// links with their anchor text as the candidate name.
func (c *Crawler) DiscoverFaculty(ctx context.Context, directoryURL string) fn.Result[[]FacultyEntry] {
	page, err := c.Fetch(ctx, directoryURL).Unwrap()
	if err != nil {
		return fn.Err[[]FacultyEntry](fmt.Errorf("directory %s: %w", directoryURL, err))
	}
	base, err := url.Parse(directoryURL)
	if err != nil {
		return fn.Err[[]FacultyEntry](err)
	}

	var entries []FacultyEntry
	for _, m := range anchorPattern.FindAllStringSubmatch(page.HTML, -1) {
		href, text := m[1], Flatten(m[2])
		if !facultyLinkPattern.MatchString(href) || text == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref).String()
		if _, loaded := c.seen.LoadOrStore(abs, true); loaded {
			continue
		}
		entries = append(entries, FacultyEntry{Name: text, PageURL: abs})
	}
	return fn.Ok(entries)
}

// Crawl walks the configured directories and streams fetched faculty pages.
// A failing directory is logged by the caller and does not stop the others.
func (c *Crawler) Crawl(ctx context.Context, opts CrawlOpts) <-chan fn.Result[FacultyPage] {
	ch := make(chan fn.Result[FacultyPage], 16)

	go func() {
		defer close(ch)
		maxPer := opts.MaxPerSource
		if maxPer <= 0 {
			maxPer = 50
		}
		for _, dir := range opts.DirectoryURLs {
			if ctx.Err() != nil {
				return
			}
			entries, err := c.DiscoverFaculty(ctx, dir).Unwrap()
			if err != nil {
				ch <- fn.Err[FacultyPage](err)
				continue
			}
			count := 0
			for _, entry := range entries {
				if ctx.Err() != nil {
					return
				}
				if count >= maxPer {
					break
				}
				page, err := c.Fetch(ctx, entry.PageURL).Unwrap()
				if err != nil {
					ch <- fn.Err[FacultyPage](fmt.Errorf("page %s: %w", entry.PageURL, err))
					continue
				}
				text := Flatten(page.HTML)
				if entry.Email == "" {
					if m := emailPattern.FindString(text); m != "" {
						entry.Email = m
					}
				}
				ch <- fn.Ok(FacultyPage{Entry: entry, Page: page, Text: text})
				count++
			}
		}
	}()

	return ch
}
