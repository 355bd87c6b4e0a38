package fulltext

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<html><head><title>Story</title><style>p{color:red}</style></head>
<body>
<nav><a href="/">Home</a><a href="/world">World</a></nav>
<article>
<h1>Big story</h1>
<p>The first paragraph of the article explains what happened in enough detail to be considered real content by the extractor.</p>
<p>The second paragraph keeps going with more detail, quotes from people involved, and background that readers need to follow the story.</p>
<p>Officials said on Tuesday that the review would take several weeks, and that interim findings would be shared with the public as soon as they were confirmed by independent experts.</p>
<p>Residents interviewed for this story described the changes in their neighbourhood, the long queues at local offices, and the uncertainty about what the decision means for them.</p>
<p>A third paragraph closes the article with what comes next and when the next update is expected to be published.</p>
</article>
<script>trackVisitor()</script>
</body></html>`

type stubCleaner struct {
	text string
	err  error
}

func (s stubCleaner) Clean(context.Context, *url.URL, []byte) (string, error) {
	return s.text, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func htmlServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetFullText_Readability(t *testing.T) {
	srv := htmlServer(t, http.StatusOK, articleHTML)
	e := New(NewReadabilityCleaner(), 2*time.Second, testLogger())

	text := e.GetFullText(context.Background(), srv.URL+"/story")

	assert.Contains(t, text, "The first paragraph of the article")
	assert.NotContains(t, text, "trackVisitor")
	assert.NotContains(t, text, "<script")
}

func TestGetFullText_Strip(t *testing.T) {
	srv := htmlServer(t, http.StatusOK, `<div><p>Hello <b>world</b></p><script>x()</script></div>`)
	e := New(NewStripCleaner(), 2*time.Second, testLogger())

	assert.Equal(t, "Hello world", e.GetFullText(context.Background(), srv.URL))
}

func TestGetFullText_FailuresYieldEmpty(t *testing.T) {
	notFound := htmlServer(t, http.StatusNotFound, "gone")
	ok := htmlServer(t, http.StatusOK, articleHTML)

	tests := []struct {
		name    string
		url     string
		cleaner Cleaner
	}{
		{name: "network error", url: "http://127.0.0.1:1/story", cleaner: NewStripCleaner()},
		{name: "bad status", url: notFound.URL, cleaner: NewStripCleaner()},
		{name: "invalid url", url: "::not a url", cleaner: NewStripCleaner()},
		{name: "cleaner error", url: ok.URL, cleaner: stubCleaner{err: errors.New("boom")}},
		{name: "no provider", url: ok.URL, cleaner: NewAICleaner("http://unused", "", "m", time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.cleaner, time.Second, testLogger())
			assert.Equal(t, "", e.GetFullText(context.Background(), tt.url))
		})
	}
}

func TestGetFullText_OversizedPageYieldsEmpty(t *testing.T) {
	srv := htmlServer(t, http.StatusOK, articleHTML)
	e := New(NewStripCleaner(), 2*time.Second, testLogger())
	e.client.SetResponseBodyLimit(16)

	assert.Equal(t, "", e.GetFullText(context.Background(), srv.URL))
}

func TestAICleaner_Clean(t *testing.T) {
	var gotPrompt, gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotPath = r.URL.Path
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Contents[0].Parts[0].Text

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Main body."}]}}]}`))
	}))
	defer srv.Close()

	c := NewAICleaner(srv.URL+"/", "k1", "gemini-test", 2*time.Second)
	text, err := c.Clean(context.Background(), nil, []byte("<p>page</p>"))
	require.NoError(t, err)

	assert.Equal(t, "Main body.", text)
	assert.Equal(t, "k1", gotKey)
	assert.Equal(t, "/gemini-test:generateContent", gotPath)
	assert.True(t, strings.HasPrefix(gotPrompt, "Extract the full text of the news article"))
	assert.True(t, strings.HasSuffix(gotPrompt, "<p>page</p>"))
}

func TestAICleaner_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Too Many Requests"}}`))
	}))
	defer srv.Close()

	c := NewAICleaner(srv.URL, "k1", "m", 2*time.Second)
	_, err := c.Clean(context.Background(), nil, []byte("x"))
	assert.ErrorContains(t, err, "Too Many Requests")
}
