package crossref

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/citegraph/internal/cache"
	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/metrics"
)

const workJSON = `{
  "status": "ok",
  "message": {
    "DOI": "10.1234/abc",
    "title": ["Attention Is Not Enough"],
    "author": [
      {"given": "Jia", "family": "Liu"},
      {"given": "Ana", "family": "Smith"},
      {"name": "Consortium X"}
    ],
    "abstract": "<jats:p>We study\n  things.</jats:p>",
    "container-title": ["Journal of Tests"],
    "issued": {"date-parts": [[2022, 3, 1]]},
    "reference": [
      {"key": "r1", "DOI": "10.1/one", "article-title": "First", "author": "Zeng", "year": "2023", "journal-title": "J1"},
      {"key": "r2", "volume-title": "A Book", "author": "Jones", "year": "2021a"},
      {"key": "r3", "unstructured": "Brown, T. Language models. NeurIPS 2020."}
    ]
  }
}`

const atomXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2106.15928v2</id>
    <published>2021-06-30T09:00:00Z</published>
    <title>A Preprint
      Title</title>
    <summary>  Some abstract.
    </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <arxiv:journal_ref>Proc. Tests 2022</arxiv:journal_ref>
  </entry>
</feed>`

const atomErrorXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format_for_9999.99999</id>
    <title>Error</title>
  </entry>
</feed>`

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/works/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/works/10.1234/abc":
			assert.Equal(t, "me@example.org", r.URL.Query().Get("mailto"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(workJSON))
		case "/works/10.1234/missing":
			http.NotFound(w, r)
		case "/works/10.1234/busy":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/works/10.1234/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/works/10.1234/garbage":
			_, _ = w.Write([]byte("{not json"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/arxiv", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("id_list") == "2106.15928" {
			_, _ = w.Write([]byte(atomXML))
			return
		}
		_, _ = w.Write([]byte(atomErrorXML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, opts ...ClientOption) *Client {
	arxiv := NewArXiv(WithArXivBaseURL(srv.URL+"/arxiv"), WithArXivInterval(time.Millisecond))
	base := []ClientOption{
		WithBaseURL(srv.URL),
		WithMailto("me@example.org"),
		WithRateLimit(1000),
		WithArXiv(arxiv),
	}
	return NewClient(append(base, opts...)...)
}

func doi(v string) metadata.Identifier {
	return metadata.Identifier{Value: v, Type: metadata.IdentifierDOI}
}

func TestClient_Metadata(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(newTestServer(t, &hits))

	md, err := c.Metadata(context.Background(), doi("10.1234/ABC"))
	require.NoError(t, err)

	assert.Equal(t, "Attention Is Not Enough", md.Title)
	assert.Equal(t, "We study things.", md.Abstract)
	assert.Equal(t, 2022, md.Year)
	assert.Equal(t, "Journal of Tests", md.Venue)
	assert.Equal(t, SourceName, md.Source)
	require.Len(t, md.Authors, 3)
	assert.Equal(t, "Liu", md.Authors[0].Last)
	assert.Equal(t, "Jia", md.Authors[0].First)
	assert.Equal(t, "Consortium X", md.Authors[2].Last)
}

func TestClient_References(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(newTestServer(t, &hits))

	refs, err := c.References(context.Background(), doi("10.1234/abc"))
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, "First", refs[0].Title)
	assert.Equal(t, "10.1/one", refs[0].DOI)
	assert.Equal(t, "Zeng", refs[0].Authors[0].Last)
	assert.Equal(t, 2023, refs[0].Year)
	assert.Equal(t, "J1", refs[0].Venue)

	assert.Equal(t, "A Book", refs[1].Title)
	assert.Equal(t, 2021, refs[1].Year)

	assert.Empty(t, refs[2].Title)
	assert.Equal(t, 2020, refs[2].Year)
	assert.Contains(t, refs[2].RawText, "Language models")

	for _, r := range refs {
		assert.Empty(t, r.Key, "keys are assigned downstream")
		assert.Equal(t, SourceName, r.Source)
	}
}

func TestClient_Errors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(newTestServer(t, &hits))
	ctx := context.Background()

	_, err := c.Metadata(ctx, doi("10.1234/missing"))
	assert.True(t, IsNotFound(err))

	_, err = c.Metadata(ctx, doi("10.1234/busy"))
	assert.True(t, IsRateLimited(err))

	_, err = c.Metadata(ctx, doi("10.1234/broken"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.False(t, IsNotFound(err))

	_, err = c.Metadata(ctx, doi("10.1234/garbage"))
	assert.ErrorIs(t, err, ErrInvalidResponse)

	_, err = c.Metadata(ctx, metadata.Identifier{Value: "123", Type: "pmid"})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = c.References(ctx, metadata.Identifier{Value: "2106.15928", Type: metadata.IdentifierArXiv})
	assert.True(t, IsNotFound(err))
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(WithBaseURL(url), WithRateLimit(1000))
	_, err := c.Work(context.Background(), "10.1234/abc")
	assert.ErrorIs(t, err, ErrNetworkError)
}

func TestClient_Cache(t *testing.T) {
	var hits atomic.Int32
	m := metrics.New()
	c := newTestClient(newTestServer(t, &hits), WithCache(cache.NewMemory(0)), WithMetrics(m))
	ctx := context.Background()

	_, err := c.Metadata(ctx, doi("10.1234/abc"))
	require.NoError(t, err)
	_, err = c.References(ctx, doi("10.1234/abc"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load(), "second lookup is served from cache")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupRequests.WithLabelValues(SourceName, "ok")))
}

func TestClient_ContextCancelled(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(newTestServer(t, &hits))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Work(ctx, "10.1234/abc")
	assert.Error(t, err)
	assert.Equal(t, int32(0), hits.Load())
}

func TestArXiv_Metadata(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(newTestServer(t, &hits))

	md, err := c.Metadata(context.Background(), metadata.Identifier{Value: "2106.15928", Type: metadata.IdentifierArXiv})
	require.NoError(t, err)

	assert.Equal(t, "A Preprint Title", md.Title)
	assert.Equal(t, "Some abstract.", md.Abstract)
	assert.Equal(t, 2021, md.Year)
	assert.Equal(t, "Proc. Tests 2022", md.Venue)
	assert.Equal(t, ArXivSourceName, md.Source)
	require.Len(t, md.Authors, 2)
	assert.Equal(t, "Turing", md.Authors[1].Last)
}

func TestArXiv_UnknownID(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(newTestServer(t, &hits))

	_, err := c.Metadata(context.Background(), metadata.Identifier{Value: "9999.99999", Type: metadata.IdentifierArXiv})
	assert.True(t, IsNotFound(err))
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2022", 2022},
		{"2022a", 2022},
		{"In: Proc. 1999, pp. 1-10", 1999},
		{"n.d.", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseYear(tt.in), tt.in)
	}
}
