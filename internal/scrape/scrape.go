// Package scrape extracts knowledge entry candidates from medical
// reference pages.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "vita-scraper/1.0"

	// Reference pages end with boilerplate sections (related articles,
	// references, feedback forms) that would pollute the entry content.
	trailingSections = 4
)

// Sentinel errors for scrape operations.
var (
	// ErrInvalidURL indicates the URL is malformed or not HTTP(S).
	ErrInvalidURL = errors.New("invalid url")

	// ErrFetchFailed indicates the page could not be retrieved.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrEmptyPage indicates the page had no extractable content.
	ErrEmptyPage = errors.New("empty page")
)

// Page is the extracted content of a reference page, shaped to feed
// knowledge entry creation.
type Page struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	SourceURL string `json:"sourceUrl"`
}

// Scraper fetches reference pages and extracts their main content.
//
// Scraper is safe for concurrent use by multiple goroutines.
type Scraper struct {
	client *http.Client
	logger *slog.Logger
}

// New creates a Scraper. A nil client gets a default with a request
// timeout.
func New(client *http.Client, logger *slog.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{client: client, logger: logger}
}

// Scrape fetches the page and extracts its title and main content.
// Sidebar content and the page's trailing boilerplate sections are
// removed before extraction.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not supported", ErrInvalidURL, parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("closing response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	page := extract(doc, pageURL)
	if page.Content == "" {
		return nil, fmt.Errorf("%w: no main content at %s", ErrEmptyPage, pageURL)
	}

	s.logger.Debug("scraped page",
		"url", pageURL,
		"title", page.Title,
		"content_length", len(page.Content))
	return page, nil
}

// extract pulls the title and main text out of a parsed page.
func extract(doc *goquery.Document, pageURL string) *Page {
	doc.Find(".main .side").Remove()

	sections := doc.Find(".main section")
	if sections.Length() > trailingSections {
		sections.Slice(sections.Length()-trailingSections, sections.Length()).Remove()
	}

	return &Page{
		Title:     strings.TrimSpace(doc.Find(".page-title").Text()),
		Content:   strings.TrimSpace(doc.Find(".main").Text()),
		SourceURL: pageURL,
	}
}
