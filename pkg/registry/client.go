// Package registry talks to an npm-compatible package registry.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sambabib/depcheck/pkg/logger"
)

const (
	DefaultURL          = "https://registry.npmjs.org"
	DefaultTimeout      = 30 * time.Second
	DefaultCacheTTL     = 5 * time.Minute
	DefaultCacheSize    = 1024
	DefaultMaxIdleConns = 10

	// abbreviated packument, much smaller than the full document
	acceptHeader = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8"
	maxBodyBytes = 64 << 20
)

var (
	ErrNotFound         = errors.New("package not found")
	ErrUnexpectedStatus = errors.New("unexpected registry status")
)

// Gateway is what the analyzers need from a registry.
type Gateway interface {
	// LatestVersion returns the "latest" dist-tag. A package that does not
	// exist fails with ErrNotFound.
	LatestVersion(ctx context.Context, name string) (string, error)
	// Versions returns every published version in ascending order.
	Versions(ctx context.Context, name string) ([]string, error)
}

// packument is the subset of the registry document we read.
type packument struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]json.RawMessage `json:"versions"`
}

// Client is an npm registry client. Its HTTP connection pool and response
// cache live as long as the client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      *expirable.LRU[string, *packument]
}

var _ Gateway = (*Client)(nil)

type clientOptions struct {
	baseURL      string
	token        string
	timeout      time.Duration
	cacheEnabled bool
	cacheTTL     time.Duration
	cacheSize    int
	maxIdleConns int
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*clientOptions)

// WithBaseURL points the client at another registry (or a test server).
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		if u != "" {
			o.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(o *clientOptions) { o.token = token }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithCache configures the response cache. A zero ttl or size keeps the default.
func WithCache(enabled bool, ttl time.Duration, size int) Option {
	return func(o *clientOptions) {
		o.cacheEnabled = enabled
		if ttl > 0 {
			o.cacheTTL = ttl
		}
		if size > 0 {
			o.cacheSize = size
		}
	}
}

// WithMaxIdleConns sizes the idle connection pool, normally to the lookup
// concurrency.
func WithMaxIdleConns(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.maxIdleConns = n
		}
	}
}

// WithHTTPClient replaces the transport entirely.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// NewClient builds a registry client.
func NewClient(opts ...Option) *Client {
	o := clientOptions{
		baseURL:      DefaultURL,
		timeout:      DefaultTimeout,
		cacheEnabled: true,
		cacheTTL:     DefaultCacheTTL,
		cacheSize:    DefaultCacheSize,
		maxIdleConns: DefaultMaxIdleConns,
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		transport := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        o.maxIdleConns,
			MaxIdleConnsPerHost: o.maxIdleConns,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
		}
		httpClient = &http.Client{Timeout: o.timeout, Transport: transport}
	}

	c := &Client{
		baseURL:    o.baseURL,
		token:      o.token,
		httpClient: httpClient,
	}
	if o.cacheEnabled {
		c.cache = expirable.NewLRU[string, *packument](o.cacheSize, nil, o.cacheTTL)
	}
	return c
}

// BaseURL returns the registry URL the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// PackageInfo is everything the analyzers read about one package, taken
// from a single registry document.
type PackageInfo struct {
	Name     string
	Latest   string
	Versions []string // ascending
	// Deprecations maps a published version to its deprecation notice.
	Deprecations map[string]string
}

// Deprecation returns the notice of version, or "".
func (p PackageInfo) Deprecation(version string) string {
	return p.Deprecations[version]
}

// Lookup fetches name once and returns its latest dist-tag, sorted versions
// and deprecation notices.
func (c *Client) Lookup(ctx context.Context, name string) (PackageInfo, error) {
	doc, err := c.fetch(ctx, name)
	if err != nil {
		return PackageInfo{}, err
	}
	latest, err := doc.latest(name)
	if err != nil {
		return PackageInfo{}, err
	}

	info := PackageInfo{
		Name:     name,
		Latest:   latest,
		Versions: doc.sortedVersions(name),
	}
	for v := range doc.Versions {
		note, err := doc.deprecation(name, v)
		if err != nil {
			logger.Debugf("[registry] %v", err)
			continue
		}
		if note != "" {
			if info.Deprecations == nil {
				info.Deprecations = map[string]string{}
			}
			info.Deprecations[v] = note
		}
	}
	return info, nil
}

// LatestVersion returns the "latest" dist-tag of name.
func (c *Client) LatestVersion(ctx context.Context, name string) (string, error) {
	doc, err := c.fetch(ctx, name)
	if err != nil {
		return "", err
	}
	return doc.latest(name)
}

// Versions returns the published versions of name in ascending semver
// order. Versions that do not parse are dropped.
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	doc, err := c.fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return doc.sortedVersions(name), nil
}

// Deprecated returns the deprecation notice of name@version, or "" when
// that version is not deprecated or not published.
func (c *Client) Deprecated(ctx context.Context, name, version string) (string, error) {
	doc, err := c.fetch(ctx, name)
	if err != nil {
		return "", err
	}
	return doc.deprecation(name, version)
}

func (doc *packument) latest(name string) (string, error) {
	latest := doc.DistTags["latest"]
	if latest == "" {
		return "", fmt.Errorf("%s: no latest dist-tag", name)
	}
	return latest, nil
}

func (doc *packument) sortedVersions(name string) []string {
	parsed := make([]*semver.Version, 0, len(doc.Versions))
	for raw := range doc.Versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			logger.Debugf("[registry] %s: ignoring unparseable version %q", name, raw)
			continue
		}
		parsed = append(parsed, v)
	}
	sort.Sort(semver.Collection(parsed))

	out := make([]string, 0, len(parsed))
	for _, v := range parsed {
		out = append(out, v.Original())
	}
	return out
}

func (doc *packument) deprecation(name, version string) (string, error) {
	raw, ok := doc.Versions[version]
	if !ok {
		return "", nil
	}
	var manifest struct {
		Deprecated any `json:"deprecated"`
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return "", fmt.Errorf("failed to decode %s@%s: %w", name, version, err)
	}
	// npm uses a message string; some registries send a bare true
	switch d := manifest.Deprecated.(type) {
	case string:
		return d, nil
	case bool:
		if d {
			return "deprecated", nil
		}
	}
	return "", nil
}

// Purge drops every cached document.
func (c *Client) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

func (c *Client) fetch(ctx context.Context, name string) (*packument, error) {
	if name == "" {
		return nil, errors.New("empty package name")
	}
	if c.cache != nil {
		if doc, ok := c.cache.Get(name); ok {
			logger.Debugf("[registry] Cache hit for %s", name)
			return doc, nil
		}
	}

	endpoint := c.baseURL + "/" + url.PathEscape(name)
	logger.Debugf("[registry] Fetching %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, name, resp.StatusCode)
	}

	var doc packument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode registry response for %s: %w", name, err)
	}

	if c.cache != nil {
		c.cache.Add(name, &doc)
	}
	return &doc, nil
}
