package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize    = 100
	defaultConcurrency = 4
)

// Fetcher pages through a Jira search and returns every matching issue record verbatim.
type Fetcher struct {
	client      Client
	pageSize    int
	concurrency int
}

// NewFetcher creates a Fetcher. Non-positive sizes fall back to defaults.
func NewFetcher(client Client, pageSize, concurrency int) *Fetcher {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Fetcher{client: client, pageSize: pageSize, concurrency: concurrency}
}

// Fetch runs query and returns all issues in server order.
// The first page reveals the total; the remaining pages are requested concurrently.
func (f *Fetcher) Fetch(ctx context.Context, query string) ([]json.RawMessage, error) {
	first, err := f.client.SearchIssues(ctx, query, 0, f.pageSize)
	if err != nil {
		return nil, fmt.Errorf("search failed at offset 0: %w", err)
	}

	// The server may cap maxResults below what we asked for
	pageSize := len(first.Issues)
	if pageSize == 0 || pageSize >= first.Total {
		log.Info().Int("total", len(first.Issues)).Msg("Fetched issues in a single page")
		return first.Issues, nil
	}

	pageCount := (first.Total + pageSize - 1) / pageSize
	pages := make([][]json.RawMessage, pageCount)
	pages[0] = first.Issues

	log.Info().Int("total", first.Total).Int("pages", pageCount).Int("concurrency", f.concurrency).Msg("Fetching remaining pages")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i := 1; i < pageCount; i++ {
		offset := i * pageSize
		g.Go(func() error {
			resp, err := f.client.SearchIssues(gctx, query, offset, pageSize)
			if err != nil {
				return fmt.Errorf("search failed at offset %d: %w", offset, err)
			}
			pages[i] = resp.Issues
			log.Debug().Int("offset", offset).Int("count", len(resp.Issues)).Msg("Fetched page")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issues := make([]json.RawMessage, 0, first.Total)
	for _, p := range pages {
		issues = append(issues, p...)
	}
	log.Info().Int("total", len(issues)).Msg("Fetch complete")
	return issues, nil
}

// FileFetcher serves issues from a local JSON file instead of Jira.
// The file holds either a bare array of issues or a search response object.
type FileFetcher struct {
	Path string
}

// Fetch ignores query and returns the records stored in the file.
func (f FileFetcher) Fetch(ctx context.Context, query string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read issue file: %w", err)
	}

	log.Info().Str("path", f.Path).Str("jql", query).Msg("Serving issues from file, query is not evaluated")

	var issues []json.RawMessage
	if err := json.Unmarshal(data, &issues); err == nil {
		return issues, nil
	}

	var resp SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode issue file: %w", err)
	}
	return resp.Issues, nil
}
