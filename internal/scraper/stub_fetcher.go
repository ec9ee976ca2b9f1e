package scraper

import (
	"context"
	"fmt"
)

// StubFetcher serves canned bodies and errors keyed by URL.
type StubFetcher struct {
	Bodies   map[string]string
	Errors   map[string]error
	Requests []string
}

func (s *StubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	s.Requests = append(s.Requests, url)
	if err, ok := s.Errors[url]; ok {
		return "", err
	}
	body, ok := s.Bodies[url]
	if !ok {
		return "", fmt.Errorf("%w: 404 Not Found", ErrUnexpectedStatus)
	}
	return body, nil
}
