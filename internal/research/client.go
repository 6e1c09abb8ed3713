// Package research fetches findings for a single topic from a web search backend.
package research

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"research-job-service/internal/entity"
)

// Client is the per-topic research capability.
type Client interface {
	Fetch(ctx context.Context, topic string) (entity.Finding, error)
}

type QueryKind string

const (
	QueryNews QueryKind = "news"
	QueryWeb  QueryKind = "web"
)

type Query struct {
	Text  string
	Kind  QueryKind
	Limit int
}

// Hit is one raw search result as returned by a provider.
type Hit struct {
	Title   string
	URL     string
	Snippet string
	Source  string
	Date    string
}

// Searcher is implemented by each search provider.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
}

const DefaultTimeout = 45 * time.Second

type Options struct {
	Timeout     time.Duration
	MaxArticles int
	MaxPapers   int
}

// SearchClient researches a topic with two queries: recent news and academic work.
// It keeps no state between calls.
type SearchClient struct {
	searcher    Searcher
	timeout     time.Duration
	maxArticles int
	maxPapers   int
}

var _ Client = (*SearchClient)(nil)

func NewSearchClient(s Searcher, opts Options) *SearchClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = 5
	}
	if opts.MaxPapers <= 0 {
		opts.MaxPapers = 3
	}
	return &SearchClient{
		searcher:    s,
		timeout:     opts.Timeout,
		maxArticles: opts.MaxArticles,
		maxPapers:   opts.MaxPapers,
	}
}

func (c *SearchClient) Fetch(ctx context.Context, topic string) (entity.Finding, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return entity.Finding{}, ErrEmptyTopic
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	news, newsErr := c.searcher.Search(ctx, Query{Text: newsQuery(topic), Kind: QueryNews, Limit: c.maxArticles})
	papers, papersErr := c.searcher.Search(ctx, Query{Text: researchQuery(topic), Kind: QueryWeb, Limit: c.maxPapers})

	if newsErr != nil && papersErr != nil {
		if parent.Err() != nil {
			// the job was stopped, not this call
			return entity.Finding{}, Unreachable(topic, fmt.Errorf("research stopped: %w", context.Cause(parent)))
		}
		if ctx.Err() != nil {
			return entity.Finding{}, Unreachable(topic, fmt.Errorf("timed out after %s: %w", c.timeout, ctx.Err()))
		}
		return entity.Finding{}, Unreachable(topic, errors.Join(newsErr, papersErr))
	}

	f := entity.Finding{
		Topic:                topic,
		NewsArticles:         toSources(news, c.maxArticles),
		ResearchDevelopments: toSources(papers, c.maxPapers),
	}
	if len(f.NewsArticles)+len(f.ResearchDevelopments) == 0 {
		return entity.Finding{}, NoResults(topic)
	}
	f.Description = describe(f)
	return f, nil
}

func newsQuery(topic string) string {
	return topic + " latest news developments"
}

func researchQuery(topic string) string {
	return topic + " research paper study findings site:arxiv.org OR site:nature.com OR site:science.org"
}

func toSources(hits []Hit, limit int) []entity.Source {
	out := make([]entity.Source, 0, min(len(hits), limit))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		title := plainText(h.Title)
		if title == "" {
			continue
		}
		src := strings.TrimSpace(h.Source)
		if src == "" {
			src = hostOf(h.URL)
		}
		date := strings.TrimSpace(h.Date)
		if date == "" {
			date = "Recent"
		}
		out = append(out, entity.Source{
			Title:       title,
			Description: plainText(h.Snippet),
			Source:      src,
			URL:         strings.TrimSpace(h.URL),
			Date:        date,
		})
	}
	return out
}

// describe joins the leading snippets into a short description.
func describe(f entity.Finding) string {
	var parts []string
	for _, s := range append(append([]entity.Source(nil), f.NewsArticles...), f.ResearchDevelopments...) {
		if s.Description == "" {
			continue
		}
		parts = append(parts, s.Description)
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d news articles and %d research items found for %s.",
			len(f.NewsArticles), len(f.ResearchDevelopments), f.Topic)
	}
	return strings.Join(parts, " ")
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "Unknown"
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// Disabled is used when no search provider is configured; every topic is unreachable.
type Disabled struct{}

func (Disabled) Fetch(_ context.Context, topic string) (entity.Finding, error) {
	return entity.Finding{}, Unreachable(topic, errors.New("no search provider configured"))
}
