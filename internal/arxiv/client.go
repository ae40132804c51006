// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv is a paginated client for the arXiv Atom API. It builds
// request URLs, fetches and parses pages into Records, and walks result
// sets under a politeness delay and a total cap.
package arxiv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/pdiddy/slr-engine/internal/httputil"
	"github.com/pdiddy/slr-engine/pkg/types"
)

// Endpoint is the public arXiv query API.
const Endpoint = "https://export.arxiv.org/api/query"

// arxivAPIBase is the endpoint used by Client. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = Endpoint

const (
	defaultPageSize = 100
	tracerName      = "github.com/pdiddy/slr-engine/internal/arxiv"
)

// SortBy orders arXiv results.
type SortBy string

const (
	SortNone            SortBy = ""
	SortRelevance       SortBy = "relevance"
	SortLastUpdatedDate SortBy = "lastUpdatedDate"
	SortSubmittedDate   SortBy = "submittedDate"
)

// ParseSortBy validates a sort key. Empty means the backend default.
func ParseSortBy(s string) (SortBy, error) {
	switch sb := SortBy(strings.TrimSpace(s)); sb {
	case SortNone, SortRelevance, SortLastUpdatedDate, SortSubmittedDate:
		return sb, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want relevance, lastUpdatedDate, or submittedDate)", s)
	}
}

// BuildURL returns the request URL for one page. The query is URL-encoded;
// maxResults is passed through unclamped.
func BuildURL(query string, start, maxResults int, sortBy SortBy) string {
	return buildURL(Endpoint, query, start, maxResults, sortBy)
}

func buildURL(base, query string, start, maxResults int, sortBy SortBy) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("?search_query=")
	b.WriteString(url.QueryEscape(query))
	b.WriteString("&start=")
	b.WriteString(strconv.Itoa(start))
	b.WriteString("&max_results=")
	b.WriteString(strconv.Itoa(maxResults))
	if sortBy != SortNone {
		b.WriteString("&sortBy=")
		b.WriteString(url.QueryEscape(string(sortBy)))
	}
	return b.String()
}

// Client fetches pages from the arXiv API. The zero value is not usable;
// construct with NewClient.
type Client struct {
	HTTP       *http.Client
	UserAgent  string
	Parser     FeedParser
	MaxRetries int
	Log        *zap.Logger

	// BaseURL overrides the endpoint. Empty means the package default.
	BaseURL string
}

// NewClient builds a client from the shared HTTP and arXiv settings.
func NewClient(hc types.HTTPConfig, ac types.ArxivConfig, log *zap.Logger) (*Client, error) {
	parser, err := NewParser(ac.Parser)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		UserAgent:  hc.UserAgent,
		Parser:     parser,
		MaxRetries: ac.MaxRetries,
		Log:        log,
	}, nil
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return arxivAPIBase
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// PageURL returns the URL FetchPage would request.
func (c *Client) PageURL(query string, start, maxResults int, sortBy SortBy) string {
	return buildURL(c.base(), query, start, maxResults, sortBy)
}

// FetchPage performs one GET and parses the response. Transient statuses
// are retried; any other non-2xx status is an error.
func (c *Client) FetchPage(ctx context.Context, query string, start, maxResults int, sortBy SortBy) (Page, error) {
	if strings.TrimSpace(query) == "" {
		return Page{}, fmt.Errorf("empty arXiv query")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "arxiv.FetchPage")
	defer span.End()
	span.SetAttributes(attribute.Int("arxiv.start", start), attribute.Int("arxiv.max_results", maxResults))

	reqURL := c.PageURL(query, start, maxResults, sortBy)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries, httputil.WithLogger(c.logger()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Page{}, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return Page{}, err
	}

	parser := c.Parser
	if parser == nil {
		parser = GofeedParser{}
	}
	page, err := parser.Parse(resp.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Page{}, err
	}
	span.SetAttributes(attribute.Int("arxiv.rows", len(page.Records)), attribute.Int("arxiv.total", page.TotalResults))
	c.logger().Debug("fetched arXiv page",
		zap.Int("start", start),
		zap.Int("rows", len(page.Records)),
		zap.Int("total", page.TotalResults),
	)
	return page, nil
}

// FetchOptions controls FetchAll.
type FetchOptions struct {
	// Start is the offset of the first request (resume point).
	Start int

	// PageSize is the number of rows requested per call (default 100).
	PageSize int

	// TotalCap bounds the number of rows collected. Zero means no cap.
	TotalCap int

	// Delay is the pause between consecutive calls.
	Delay time.Duration

	SortBy SortBy

	// OnPage, when set, is called after every successful page with the
	// page's start offset, its row count, and the cumulative count.
	OnPage func(start, rows, collected int)
}

// PageError reports a failed page during FetchAll. Start is the offset to
// resume from.
type PageError struct {
	Start int
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("fetching page at start=%d: %v", e.Start, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// FetchAll pages through the result set. The offset advances by the rows
// actually returned. The loop stops when the cap is reached, when the
// reported total is reached, or when a page comes back empty or short. On
// error the rows collected so far are returned with a *PageError.
func (c *Client) FetchAll(ctx context.Context, query string, opts FetchOptions) ([]types.Record, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	start := opts.Start
	if start < 0 {
		start = 0
	}

	var out []types.Record
	for {
		want := pageSize
		if opts.TotalCap > 0 {
			if remaining := opts.TotalCap - len(out); remaining < want {
				want = remaining
			}
		}
		if want <= 0 {
			return out, nil
		}

		page, err := c.FetchPage(ctx, query, start, want, opts.SortBy)
		if err != nil {
			return out, &PageError{Start: start, Err: err}
		}
		n := len(page.Records)
		if n > want {
			page.Records, n = page.Records[:want], want
		}
		out = append(out, page.Records...)
		start += n
		if opts.OnPage != nil {
			opts.OnPage(start-n, n, len(out))
		}

		switch {
		case n == 0, n < want:
			return out, nil
		case opts.TotalCap > 0 && len(out) >= opts.TotalCap:
			return out, nil
		case page.TotalReported && start >= page.TotalResults:
			return out, nil
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return out, &PageError{Start: start, Err: ctx.Err()}
			case <-time.After(opts.Delay):
			}
		}
	}
}

// IsPageError reports whether err carries a resume offset.
func IsPageError(err error) (*PageError, bool) {
	var pe *PageError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
