package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/matsen/citegraph/internal/cache"
	"github.com/matsen/citegraph/internal/logging"
	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/metrics"
	"github.com/matsen/citegraph/internal/reference"
)

const (
	// BaseURL is the Crossref REST API base URL.
	BaseURL = "https://api.crossref.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit stays well inside the polite pool allowance.
	RateLimit = 10.0

	// maxBodyBytes caps response bodies; reference-heavy works run to a few MB.
	maxBodyBytes = 16 << 20
)

// Client is a rate-limited HTTP client for Crossref. It also routes arXiv
// identifiers to an ArXiv client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	arxiv      *ArXiv
	cache      cache.Cache
	metrics    *metrics.Metrics
	logger     logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithMailto sets the contact address sent with every request, which
// places the client in Crossref's polite pool.
func WithMailto(addr string) ClientOption {
	return func(c *Client) {
		c.mailto = addr
	}
}

// WithRateLimit overrides the request rate.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithArXiv sets the client used for arXiv identifiers.
func WithArXiv(a *ArXiv) ClientOption {
	return func(c *Client) {
		c.arxiv = a
	}
}

// WithCache caches decoded works.
func WithCache(cc cache.Cache) ClientOption {
	return func(c *Client) {
		c.cache = cc
	}
}

// WithMetrics records requests and cache accesses.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new Crossref client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		logger:     logging.Nop(),
	}

	// Check for contact address in environment
	if addr := os.Getenv("CROSSREF_MAILTO"); addr != "" {
		c.mailto = addr
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.arxiv == nil {
		c.arxiv = NewArXiv(WithArXivHTTPClient(c.httpClient))
	}

	return c
}

// Name identifies the client as a reference source.
func (c *Client) Name() string { return SourceName }

// Work fetches a work by DOI.
func (c *Client) Work(ctx context.Context, doi string) (*Work, error) {
	doi = strings.ToLower(strings.TrimSpace(doi))
	if doi == "" {
		return nil, fmt.Errorf("%w: empty DOI", ErrNotFound)
	}

	key := "crossref:works:" + doi
	if c.cache != nil {
		var w Work
		err := cache.GetJSON(ctx, c.cache, key, &w)
		c.metrics.RecordCacheAccess(err == nil)
		if err == nil {
			return &w, nil
		}
		if !cache.IsMiss(err) {
			c.logger.Debug("lookup cache read failed", logging.String("key", key), logging.Err(err))
		}
	}

	w, err := c.fetchWork(ctx, doi)
	c.metrics.RecordLookup(SourceName, outcome(err))
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := cache.SetJSON(ctx, c.cache, key, w); err != nil {
			c.logger.Debug("lookup cache write failed", logging.String("key", key), logging.Err(err))
		}
	}
	return w, nil
}

func (c *Client) fetchWork(ctx context.Context, doi string) (*Work, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + "/works/" + url.PathEscape(doi)
	if c.mailto != "" {
		u += "?mailto=" + url.QueryEscape(c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent(c.mailto))

	c.logger.Debug("crossref request", logging.String("doi", doi))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, "crossref", doi); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}

	var wr WorkResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("%w: parsing work: %v", ErrInvalidResponse, err)
	}
	if wr.Status != "ok" {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidResponse, wr.Status)
	}
	if wr.Message.DOI == "" {
		return nil, ErrNotFound
	}
	return &wr.Message, nil
}

// Metadata returns document metadata for a DOI or arXiv identifier.
func (c *Client) Metadata(ctx context.Context, id metadata.Identifier) (*metadata.Bibliographic, error) {
	switch id.Type {
	case metadata.IdentifierDOI:
		w, err := c.Work(ctx, id.Value)
		if err != nil {
			return nil, err
		}
		md := MapWork(*w)
		return &md, nil
	case metadata.IdentifierArXiv:
		md, err := c.arxiv.Metadata(ctx, id)
		c.metrics.RecordLookup(ArXivSourceName, outcome(err))
		return md, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, id.Type)
	}
}

// References returns the deposited reference list for a DOI, in order.
// arXiv preprints have no deposited list; they return ErrNotFound so the
// caller falls back to parsing.
func (c *Client) References(ctx context.Context, id metadata.Identifier) ([]reference.Reference, error) {
	if id.Type != metadata.IdentifierDOI {
		return nil, fmt.Errorf("%w: no reference list for %s identifiers", ErrNotFound, id.Type)
	}
	w, err := c.Work(ctx, id.Value)
	if err != nil {
		return nil, err
	}
	return MapReferences(*w), nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response, service, id string) error {
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return &APIError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
			ID:         id,
		}
	}
	return nil
}

func userAgent(mailto string) string {
	if mailto == "" {
		return "citegraph/1.0"
	}
	return "citegraph/1.0 (mailto:" + mailto + ")"
}
