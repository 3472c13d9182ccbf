package crossref

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/reference"
)

const (
	// ArXivBaseURL is the arXiv query API endpoint.
	ArXivBaseURL = "https://export.arxiv.org/api/query"

	// ArXivInterval is the minimum spacing arXiv asks clients to keep.
	ArXivInterval = 3 * time.Second

	// ArXivSourceName identifies arXiv output in records.
	ArXivSourceName = "arxiv"
)

// ArXiv is a rate-limited client for the arXiv Atom API.
type ArXiv struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// ArXivOption configures an ArXiv client.
type ArXivOption func(*ArXiv)

// WithArXivHTTPClient sets a custom HTTP client.
func WithArXivHTTPClient(hc *http.Client) ArXivOption {
	return func(a *ArXiv) { a.httpClient = hc }
}

// WithArXivBaseURL sets a custom endpoint (for testing).
func WithArXivBaseURL(u string) ArXivOption {
	return func(a *ArXiv) { a.baseURL = u }
}

// WithArXivInterval overrides the request spacing.
func WithArXivInterval(d time.Duration) ArXivOption {
	return func(a *ArXiv) { a.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// NewArXiv creates an arXiv client.
func NewArXiv(opts ...ArXivOption) *ArXiv {
	a := &ArXiv{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(ArXivInterval), 1),
		baseURL:    ArXivBaseURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string       `xml:"id"`
	Title      string       `xml:"title"`
	Summary    string       `xml:"summary"`
	Published  string       `xml:"published"`
	Authors    []atomAuthor `xml:"author"`
	JournalRef string       `xml:"http://arxiv.org/schemas/atom journal_ref"`
	DOI        string       `xml:"http://arxiv.org/schemas/atom doi"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// Metadata fetches metadata for an arXiv identifier.
func (a *ArXiv) Metadata(ctx context.Context, id metadata.Identifier) (*metadata.Bibliographic, error) {
	entry, err := a.entry(ctx, id.Value)
	if err != nil {
		return nil, err
	}

	md := &metadata.Bibliographic{
		Title:    collapse(entry.Title),
		Abstract: collapse(entry.Summary),
		Venue:    collapse(entry.JournalRef),
		Source:   ArXivSourceName,
	}
	if len(entry.Published) >= 4 {
		md.Year = parseYear(entry.Published[:4])
	}
	for _, au := range entry.Authors {
		if name := collapse(au.Name); name != "" {
			md.Authors = append(md.Authors, reference.ParseAuthor(name))
		}
	}
	return md, nil
}

func (a *ArXiv) entry(ctx context.Context, id string) (*atomEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty arXiv id", ErrNotFound)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := a.baseURL + "?id_list=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, "arxiv", id); err != nil {
		return nil, err
	}

	var feed atomFeed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: parsing feed: %v", ErrInvalidResponse, err)
	}
	// Unknown ids come back as a single entry pointing at the error docs.
	if len(feed.Entries) == 0 || strings.Contains(feed.Entries[0].ID, "/api/errors") || feed.Entries[0].Title == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &feed.Entries[0], nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
