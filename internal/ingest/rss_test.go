package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/koopa0/newsrag/internal/log"
)

func articleHTML(title string) string {
	para := strings.Repeat("<p>The council voted to expand the transit network across the region, citing years of rising congestion and strong public support for the measure.</p>", 5)
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>%s</title></head>
<body><article><h1>%s</h1>%s</article></body></html>`, title, title, para)
}

func feedXML(base string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
<title>Test Feed</title>
<item>
  <title>Transit Vote Passes</title>
  <link>%s/articles/1</link>
  <guid>urn:test:1</guid>
  <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
  <dc:creator>Jo Reporter</dc:creator>
</item>
<item>
  <title>Broken Item</title>
  <link>%s/articles/missing</link>
  <guid>urn:test:2</guid>
</item>
</channel>
</rss>`, base, base)
}

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedXML(srv.URL)))
	})
	mux.HandleFunc("/articles/1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(articleHTML("Transit Vote Passes")))
	})
	mux.HandleFunc("/articles/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedSource_Fetch(t *testing.T) {
	srv := newFeedServer(t)
	source := NewFeedSource(FeedConfig{Feeds: []string{srv.URL + "/feed.xml"}}, log.NewNop())

	articles, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// The unreachable article is skipped, not fatal.
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}

	a := articles[0]
	if a.ID != "urn:test:1" {
		t.Errorf("ID = %q, want GUID", a.ID)
	}
	if a.Title != "Transit Vote Passes" {
		t.Errorf("Title = %q", a.Title)
	}
	if a.Author != "Jo Reporter" {
		t.Errorf("Author = %q, want dc:creator fallback", a.Author)
	}
	if !strings.Contains(a.Text, "transit network") {
		t.Errorf("extracted text missing article body: %q", a.Text)
	}
	want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.FixedZone("", -7*3600))
	if !a.Published.Equal(want) {
		t.Errorf("Published = %v, want %v", a.Published, want)
	}
}

func TestFeedSource_SkipsDeadFeed(t *testing.T) {
	srv := newFeedServer(t)
	source := NewFeedSource(FeedConfig{Feeds: []string{
		srv.URL + "/nonexistent.xml",
		srv.URL + "/feed.xml",
	}}, log.NewNop())

	articles, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("expected the healthy feed to still yield 1 article, got %d", len(articles))
	}
}

func TestFeedSource_MaxArticles(t *testing.T) {
	srv := newFeedServer(t)
	source := NewFeedSource(FeedConfig{
		Feeds:       []string{srv.URL + "/feed.xml", srv.URL + "/feed.xml"},
		MaxArticles: 1,
	}, log.NewNop())

	articles, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("expected the cap to hold at 1 article, got %d", len(articles))
	}
}

func TestParsePubDate(t *testing.T) {
	cases := []string{
		"Mon, 02 Jan 2006 15:04:05 -0700",
		"Mon, 02 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z",
	}
	for _, value := range cases {
		if _, err := parsePubDate(value); err != nil {
			t.Errorf("parsePubDate(%q): %v", value, err)
		}
	}
	if _, err := parsePubDate("not a date"); err == nil {
		t.Error("expected error for garbage input")
	}
	if _, err := parsePubDate(""); err == nil {
		t.Error("expected error for empty input")
	}
}
