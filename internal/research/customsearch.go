package research

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// CustomSearchSearcher uses the Google Programmable Search (Custom Search JSON) API.
type CustomSearchSearcher struct {
	svc *customsearch.Service
	cx  string
}

var _ Searcher = (*CustomSearchSearcher)(nil)

func NewCustomSearchSearcher(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*CustomSearchSearcher, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &CustomSearchSearcher{svc: svc, cx: cx}, nil
}

func (s *CustomSearchSearcher) Search(ctx context.Context, q Query) ([]Hit, error) {
	// the API caps num at 10
	num := int64(q.Limit)
	if num <= 0 || num > 10 {
		num = 10
	}

	call := s.svc.Cse.List().Cx(s.cx).Q(q.Text).Num(num).Context(ctx)
	if q.Kind == QueryNews {
		call = call.Sort("date")
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("customsearch: %w", err)
	}

	out := make([]Hit, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, Hit{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
			Source:  item.DisplayLink,
		})
	}
	return out, nil
}
