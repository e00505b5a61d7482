// Package api is the REST client for the collaborator PBX API. Servers in
// the field speak one of two endpoint conventions; the client probes the
// new one first and falls back to the legacy layout on 404/401, keeping
// the choice for the rest of the session.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pbxkit/softphone/internal/store"
)

// Convention names the endpoint path layout a server speaks.
type Convention string

const (
	ConventionNew    Convention = "new"
	ConventionLegacy Convention = "legacy"
)

const (
	newPrefix    = "/api/v1/"
	legacyPrefix = "/webrest/"

	// cache namespace/key for the persisted convention choice.
	cacheNS  = "api"
	cacheKey = "convention"
	// A convention choice outlives short sessions but re-probes daily.
	cacheTTL = 24 * time.Hour
)

// RemoteError is a non-success response from the collaborator API.
// Callers catch it, log, and skip the operation; it is never fatal.
type RemoteError struct {
	Status int
	URL    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("api: %s returned status %d", e.URL, e.Status)
}

// Client talks to the PBX REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	token string
	cache *store.Store

	mu         sync.Mutex
	convention Convention
}

// NewClient creates an API client. cache may be nil; when set, the probed
// endpoint convention is persisted there across restarts.
func NewClient(baseURL, token string, cache *store.Store) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
		token:      token,
		cache:      cache,
		convention: ConventionNew,
	}
	if cache != nil {
		var saved Convention
		if ok, err := cache.Get(cacheNS, cacheKey, &saved); err == nil && ok {
			c.convention = saved
		}
	}
	return c
}

// Convention returns the endpoint convention currently in use.
func (c *Client) Convention() Convention {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.convention
}

func (c *Client) urlFor(conv Convention, path string) string {
	prefix := newPrefix
	if conv == ConventionLegacy {
		prefix = legacyPrefix
	}
	return c.BaseURL + prefix + strings.TrimLeft(path, "/")
}

// getJSON performs a GET, drains the body, and decodes JSON into v.
// A 404 or 401 while on the new convention flips the client to legacy and
// retries once; any other non-2xx becomes a RemoteError.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	c.mu.Lock()
	conv := c.convention
	c.mu.Unlock()

	status, err := c.doGet(ctx, c.urlFor(conv, path), v)
	if err == nil {
		return nil
	}
	if conv == ConventionNew && (status == http.StatusNotFound || status == http.StatusUnauthorized) {
		log.Printf("API: %s not served on new layout (status %d), switching to legacy", path, status)
		c.setConvention(ConventionLegacy)
		_, err = c.doGet(ctx, c.urlFor(ConventionLegacy, path), v)
	}
	return err
}

func (c *Client) doGet(ctx context.Context, url string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return resp.StatusCode, &RemoteError{Status: resp.StatusCode, URL: url}
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) setConvention(conv Convention) {
	c.mu.Lock()
	c.convention = conv
	c.mu.Unlock()
	if c.cache != nil {
		if err := c.cache.Put(cacheNS, cacheKey, conv, cacheTTL); err != nil {
			log.Printf("API: persist convention: %v", err)
		}
	}
}
