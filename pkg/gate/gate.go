// Package gate short-circuits storefront requests with a static maintenance
// page while the store is flagged as under maintenance on the relay server.
// The flag is read through a short-lived cache and the check fails open: an
// unreachable relay must never take the storefront down.
package gate

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	_ "embed"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

//go:embed maintenance.html
var maintenancePage []byte

const (
	defaultTTL        = 30 * time.Second
	defaultRetryAfter = 300 * time.Second
	checkTimeout      = 2 * time.Second

	flagOn  = "on"
	flagOff = "off"
)

type Config struct {
	// BaseURL of the relay server, e.g. "https://relay.example.com".
	BaseURL string
	// Slug identifies the store on the relay server.
	Slug string
	// Secret is the shared bearer secret issued at client registration.
	Secret string
	// TTL is the cache freshness window. Zero means 30 seconds.
	TTL time.Duration
	// RetryAfter is the hint sent with 503 responses. Zero means 5 minutes.
	RetryAfter time.Duration
	// InsecureSkipVerify disables certificate validation. Development only.
	InsecureSkipVerify bool
}

type Gate struct {
	cfg    Config
	cache  Cache
	client *http.Client
}

func New(cfg Config, cache Cache) *Gate {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = defaultRetryAfter
	}
	if cache == nil {
		cache = NewMemoryCache()
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: checkTimeout,
		}).DialContext,
		TLSHandshakeTimeout: checkTimeout,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Gate{
		cfg:   cfg,
		cache: cache,
		client: &http.Client{
			Transport: transport,
			Timeout:   checkTimeout,
		},
	}
}

// Down reports whether the store is currently in maintenance mode. A cached
// flag within its freshness window is used as-is; otherwise the relay is
// asked once and the answer cached. Every failure mode resolves to false.
func (g *Gate) Down(ctx context.Context) bool {
	if value, ok := g.cache.Get(); ok {
		return value == flagOn
	}

	value := g.refresh(ctx)
	g.cache.Set(value, g.cfg.TTL)
	return value == flagOn
}

func (g *Gate) refresh(ctx context.Context) string {
	if g.cfg.BaseURL == "" || g.cfg.Slug == "" {
		return flagOff
	}

	url := fmt.Sprintf("%s/maintenance/%s", g.cfg.BaseURL, g.cfg.Slug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return flagOff
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.Secret)

	resp, err := g.client.Do(req)
	if err != nil {
		log.WithError(err).Debug("Maintenance check failed, assuming off")
		return flagOff
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Debug("Maintenance check rejected, assuming off")
		return flagOff
	}

	var body struct {
		Maintenance string `json:"maintenance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.WithError(err).Debug("Malformed maintenance response, assuming off")
		return flagOff
	}

	if body.Maintenance == flagOn {
		return flagOn
	}
	return flagOff
}

// Middleware returns an echo middleware serving the maintenance page with a
// 503 whenever the store is down. Paths starting with any of the given
// prefixes bypass the gate; with no arguments "/api" is skipped so the
// notification path keeps working during maintenance.
func (g *Gate) Middleware(skipPrefixes ...string) echo.MiddlewareFunc {
	if len(skipPrefixes) == 0 {
		skipPrefixes = []string{"/api"}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range skipPrefixes {
				// Segment-aware: "/api" skips "/api" and "/api/orders"
				// but not "/apifoo".
				if path == prefix || strings.HasPrefix(path, prefix+"/") {
					return next(c)
				}
			}

			if g.Down(c.Request().Context()) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(g.cfg.RetryAfter.Seconds())))
				return c.HTMLBlob(http.StatusServiceUnavailable, maintenancePage)
			}

			return next(c)
		}
	}
}
