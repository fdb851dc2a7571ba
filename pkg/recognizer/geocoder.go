package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/logger"
)

var ErrNoResult = errors.New("geocoder returned no result")

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (common.Coordinate, error)
}

// HTTPGeocoder queries a Nominatim-compatible search endpoint:
// GET <url>?q=<address>&format=json[&key=<apiKey>].
type HTTPGeocoder struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGeocoder(baseURL, apiKey string, client *http.Client) *HTTPGeocoder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPGeocoder{baseURL: baseURL, apiKey: apiKey, client: client}
}

type geocodeHit struct {
	Lat       any `json:"lat"`
	Lon       any `json:"lon"`
	Lng       any `json:"lng"`
	Latitude  any `json:"latitude"`
	Longitude any `json:"longitude"`
}

func (h geocodeHit) coordinate() (common.Coordinate, bool) {
	lat, ok := firstFloat(h.Lat, h.Latitude)
	if !ok {
		return common.Coordinate{}, false
	}
	lng, ok := firstFloat(h.Lon, h.Lng, h.Longitude)
	if !ok {
		return common.Coordinate{}, false
	}
	c := common.Coordinate{Latitude: lat, Longitude: lng}
	return c, c.Valid()
}

func firstFloat(values ...any) (float64, bool) {
	for _, v := range values {
		if f, ok := common.ToFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

func (g *HTTPGeocoder) Geocode(ctx context.Context, address string) (common.Coordinate, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return common.Coordinate{}, fmt.Errorf("invalid geocoder url: %w", err)
	}
	q := u.Query()
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return common.Coordinate{}, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return common.Coordinate{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return common.Coordinate{}, fmt.Errorf("geocoder responded with status %d", res.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return common.Coordinate{}, fmt.Errorf("failed to decode geocoder response: %w", err)
	}

	var hits []geocodeHit
	if err := json.Unmarshal(raw, &hits); err != nil {
		var single geocodeHit
		if err := json.Unmarshal(raw, &single); err != nil {
			return common.Coordinate{}, fmt.Errorf("unexpected geocoder response: %w", err)
		}
		hits = []geocodeHit{single}
	}
	for _, hit := range hits {
		if c, ok := hit.coordinate(); ok {
			return c, nil
		}
	}
	return common.Coordinate{}, ErrNoResult
}

// CacheOptions configure a CachedGeocoder. Zero values select the defaults.
type CacheOptions struct {
	MaxSize        int
	TTL            time.Duration
	RateLimitDelay time.Duration
	RequestTimeout time.Duration
}

const (
	DefaultCacheSize      = 1000
	DefaultCacheTTL       = 24 * time.Hour
	DefaultRateLimitDelay = 100 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

// CachedGeocoder wraps a Geocoder with an expiring LRU cache keyed by the
// normalized address, a request rate limit, deduplication of concurrent
// lookups and a per-request timeout. It is safe for concurrent use.
type CachedGeocoder struct {
	next    Geocoder
	cache   *expirable.LRU[string, common.Coordinate]
	limiter *rate.Limiter
	group   singleflight.Group
	timeout time.Duration
}

func NewCachedGeocoder(next Geocoder, opts CacheOptions) *CachedGeocoder {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultCacheSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.RateLimitDelay <= 0 {
		opts.RateLimitDelay = DefaultRateLimitDelay
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return &CachedGeocoder{
		next:    next,
		cache:   expirable.NewLRU[string, common.Coordinate](opts.MaxSize, nil, opts.TTL),
		limiter: rate.NewLimiter(rate.Every(opts.RateLimitDelay), 1),
		timeout: opts.RequestTimeout,
	}
}

func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (common.Coordinate, error) {
	key := cacheKey(address)
	if key == "" {
		return common.Coordinate{}, ErrNoResult
	}
	if c, ok := g.cache.Get(key); ok {
		return c, nil
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		if c, ok := g.cache.Get(key); ok {
			return c, nil
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		c, err := g.next.Geocode(reqCtx, address)
		if err != nil {
			logger.Debug("[Geocoder] Lookup failed", "address", address, "err", err)
			return nil, err
		}
		g.cache.Add(key, c)
		return c, nil
	})
	if err != nil {
		return common.Coordinate{}, err
	}
	return v.(common.Coordinate), nil
}

// Len reports the number of cached addresses.
func (g *CachedGeocoder) Len() int {
	return g.cache.Len()
}

func cacheKey(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}
