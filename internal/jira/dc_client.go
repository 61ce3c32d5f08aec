package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// searchFields are the issue fields the analysis reads. Everything else is left out of the payload.
const searchFields = "project,summary,issuetype,status,resolution,resolutiondate,created,updated," +
	"timeoriginalestimate,timespent,worklog,comment,issuelinks"

type dcClient struct {
	cfg        Config
	httpClient *http.Client

	throttleMutex sync.Mutex
	lastRequest   time.Time

	// Session Cache
	cache      map[string]*cacheEntry
	cacheMutex sync.RWMutex
}

type cacheEntry struct {
	Value      any
	Expiration time.Time
}

func NewDataCenterClient(cfg Config) Client {
	return &dcClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		cache: make(map[string]*cacheEntry),
	}
}

func (c *dcClient) getFromCache(key string) (any, bool) {
	c.cacheMutex.RLock()
	entry, ok := c.cache[key]
	c.cacheMutex.RUnlock()
	if !ok {
		log.Debug().Str("key", key).Msg("Cache miss")
		return nil, false
	}

	if time.Now().After(entry.Expiration) {
		c.cacheMutex.Lock()
		delete(c.cache, key)
		c.cacheMutex.Unlock()
		return nil, false
	}
	log.Debug().Str("key", key).Msg("Cache hit")
	return entry.Value, true
}

func (c *dcClient) addToCache(key string, value any, ttl time.Duration) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	c.cache[key] = &cacheEntry{
		Value:      value,
		Expiration: time.Now().Add(ttl),
	}
	log.Debug().Str("key", key).Dur("ttl", ttl).Msg("Added to cache")
}

// throttle spaces out requests by RequestDelay. Concurrent callers queue behind the mutex.
func (c *dcClient) throttle(ctx context.Context) error {
	c.throttleMutex.Lock()
	defer c.throttleMutex.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < c.cfg.RequestDelay {
		wait := c.cfg.RequestDelay - elapsed
		log.Debug().Dur("wait", wait).Msg("Throttling Jira request")
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func (c *dcClient) authenticateRequest(req *http.Request) {
	// 1. Prioritize Personal Access Token (PAT)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.Token))
		return
	}

	// 2. Fallback to session cookies
	cookies := []struct {
		name  string
		value string
	}{
		{"atlassian.xsrf.token", c.cfg.XsrfToken},
		{"JSESSIONID", c.cfg.SessionID},
		{"seraph.rememberme.cookie", c.cfg.RememberMe},
		{"GCILB", c.cfg.GCILB},
		{"GCLB", c.cfg.GCLB},
	}

	var cookiePairs []string
	for _, cookie := range cookies {
		if cookie.value != "" {
			// Built by hand: net/http's RFC 6265 validation drops GCLB values containing double quotes.
			cookiePairs = append(cookiePairs, fmt.Sprintf("%s=%s", cookie.name, cookie.value))
		}
	}

	if len(cookiePairs) > 0 {
		req.Header.Set("Cookie", strings.Join(cookiePairs, "; "))
	}
}

func (c *dcClient) get(ctx context.Context, rawURL string, subject string, out any) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.authenticateRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return fmt.Errorf("Jira rejected the %s request (400). Please check the query syntax.", subject)
		case http.StatusNotFound:
			return fmt.Errorf("%s not found", subject)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("Jira authentication failed (401/403). Please check your token or session cookies.")
		case http.StatusTooManyRequests:
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				return fmt.Errorf("Jira rate limit exceeded (429). Retry after %s seconds.", retryAfter)
			}
			return fmt.Errorf("Jira rate limit exceeded (429).")
		default:
			return fmt.Errorf("Jira API returned status %d for %s. Please check Jira availability.", resp.StatusCode, subject)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", subject, err)
	}
	return nil
}

func (c *dcClient) SearchIssues(ctx context.Context, jql string, startAt int, maxResults int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("startAt", fmt.Sprintf("%d", startAt))
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))
	params.Set("fields", searchFields)
	params.Set("expand", "changelog")

	searchURL := fmt.Sprintf("%s/rest/api/2/search?%s", strings.TrimRight(c.cfg.BaseURL, "/"), params.Encode())
	log.Debug().Str("jql", jql).Int("startAt", startAt).Int("maxResults", maxResults).Msg("Requesting issues from Jira")

	var result SearchResponse
	if err := c.get(ctx, searchURL, "search", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *dcClient) GetFilter(ctx context.Context, id string) (map[string]any, error) {
	cacheKey := "filter:" + id
	if val, ok := c.getFromCache(cacheKey); ok {
		return val.(map[string]any), nil
	}

	filterURL := fmt.Sprintf("%s/rest/api/2/filter/%s", strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(id))

	var filter map[string]any
	if err := c.get(ctx, filterURL, "filter "+id, &filter); err != nil {
		return nil, err
	}

	c.addToCache(cacheKey, filter, 5*time.Minute)
	return filter, nil
}
