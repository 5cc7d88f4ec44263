package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// DefaultFeeds are the news feeds ingested when none are configured.
var DefaultFeeds = []string{
	"http://feeds.bbci.co.uk/news/world/rss.xml",
	"http://feeds.bbci.co.uk/news/business/rss.xml",
	"http://feeds.bbci.co.uk/news/technology/rss.xml",
}

// DefaultMaxArticles caps one ingestion run.
const DefaultMaxArticles = 50

const fetchTimeout = 10 * time.Second

// FeedSource fetches articles from RSS feeds and extracts readable article
// text from the linked pages.
type FeedSource struct {
	feeds       []string
	maxArticles int
	client      *http.Client
	logger      *slog.Logger
}

// FeedConfig configures a FeedSource.
type FeedConfig struct {
	// Feeds defaults to DefaultFeeds.
	Feeds []string

	// MaxArticles defaults to DefaultMaxArticles.
	MaxArticles int
}

// NewFeedSource creates an RSS-backed article source.
func NewFeedSource(cfg FeedConfig, logger *slog.Logger) *FeedSource {
	feeds := cfg.Feeds
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}
	maxArticles := cfg.MaxArticles
	if maxArticles <= 0 {
		maxArticles = DefaultMaxArticles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedSource{
		feeds:       feeds,
		maxArticles: maxArticles,
		client:      &http.Client{Timeout: fetchTimeout},
		logger:      logger,
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
	Author  string `xml:"author"`
	Creator string `xml:"creator"` // dc:creator
}

// Fetch walks the configured feeds, scrapes each linked article and
// extracts its readable text. Feed or article failures are logged and
// skipped; Fetch fails only when the context is canceled.
func (s *FeedSource) Fetch(ctx context.Context) ([]Article, error) {
	var articles []Article
	for _, feedURL := range s.feeds {
		items, err := s.fetchFeed(ctx, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("skipping feed", "feed", feedURL, "error", err)
			continue
		}

		for _, item := range items {
			if len(articles) >= s.maxArticles {
				return articles, nil
			}
			article, err := s.scrape(ctx, item)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger.Warn("skipping article", "url", item.Link, "error", err)
				continue
			}
			articles = append(articles, article)
		}
	}
	return articles, nil
}

func (s *FeedSource) fetchFeed(ctx context.Context, feedURL string) ([]rssItem, error) {
	body, err := s.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return feed.Channel.Items, nil
}

func (s *FeedSource) scrape(ctx context.Context, item rssItem) (Article, error) {
	if item.Link == "" {
		return Article{}, fmt.Errorf("item %q has no link", item.Title)
	}

	pageURL, err := url.Parse(item.Link)
	if err != nil {
		return Article{}, fmt.Errorf("parsing link: %w", err)
	}

	body, err := s.get(ctx, item.Link)
	if err != nil {
		return Article{}, err
	}

	parsed, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("extracting article text: %w", err)
	}
	text := strings.TrimSpace(parsed.TextContent)
	if text == "" {
		return Article{}, fmt.Errorf("no readable content")
	}

	id := item.GUID
	if id == "" {
		id = item.Link
	}
	author := item.Author
	if author == "" {
		author = item.Creator
	}

	published := time.Now().UTC()
	if t, err := parsePubDate(item.PubDate); err == nil {
		published = t
	}

	return Article{
		ID:        id,
		Title:     item.Title,
		URL:       item.Link,
		Author:    author,
		Published: published,
		Text:      text,
	}, nil
}

func (s *FeedSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "newsrag/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func parsePubDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty pubDate")
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized pubDate %q", value)
}
