package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http %d", e.Provider, e.Code)
}

// SerperSearcher queries the Serper Google Search API (https://serper.dev).
type SerperSearcher struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ Searcher = (*SerperSearcher)(nil)

func NewSerperSearcher(apiKey, baseURL string, client *http.Client) (*SerperSearcher, error) {
	if apiKey == "" {
		return nil, errors.New("serper api key empty")
	}
	if baseURL == "" {
		baseURL = "https://google.serper.dev"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SerperSearcher{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}, nil
}

type serperItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	Source  string `json:"source"`
}

func (s *SerperSearcher) Search(ctx context.Context, q Query) ([]Hit, error) {
	path := "/search"
	if q.Kind == QueryNews {
		path = "/news"
	}

	reqBody := struct {
		Q   string `json:"q"`
		Num int    `json:"num,omitempty"`
	}{Q: q.Text, Num: q.Limit}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Provider: "serper", Code: resp.StatusCode}
	}

	var payload struct {
		Organic []serperItem `json:"organic"`
		News    []serperItem `json:"news"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("serper decode: %w", err)
	}

	items := payload.Organic
	if q.Kind == QueryNews {
		items = payload.News
	}
	out := make([]Hit, 0, len(items))
	for _, it := range items {
		out = append(out, Hit{
			Title:   it.Title,
			URL:     it.Link,
			Snippet: it.Snippet,
			Source:  it.Source,
			Date:    it.Date,
		})
	}
	return out, nil
}
