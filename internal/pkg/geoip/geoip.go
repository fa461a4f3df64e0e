package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/internal/pkg/cache"
	"github.com/focusgate/focusgate-server/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "http://ip-api.com/json"
	cacheKeyPrefix    = "geoip:"
	cacheTTL          = 24 * time.Hour
)

// Location is the subset of the ip-api response the service uses. It only
// decorates sign-in emails and feedback rows; lookups are always best-effort.
type Location struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
	Query      string `json:"query"`
}

// Describe renders the location as "City, Region, Country", skipping empty
// parts. Empty when nothing was resolved.
func (l *Location) Describe() string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.RegionName, l.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Client resolves IP addresses to coarse locations via an ip-api compatible
// endpoint, caching results in redis so repeated sign-ins from one address
// cost a single upstream call per day.
type Client struct {
	APIBaseURL string
	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		APIBaseURL: strings.TrimSpace(env.GetEnv("GEOIP_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: env.GetEnvDuration("GEOIP_TIMEOUT", 5*time.Second),
		},
	}
}

// Lookup resolves one IP. Private, loopback, and unparsable addresses return
// (nil, nil) since the upstream cannot say anything useful about them.
func (c *Client) Lookup(ctx context.Context, ip string) (*Location, error) {
	ip = strings.TrimSpace(ip)
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return nil, nil
	}

	if loc := c.fromCache(ip); loc != nil {
		return loc, nil
	}

	loc, err := c.fetch(ctx, ip)
	if err != nil {
		return nil, err
	}
	c.toCache(ip, loc)
	return loc, nil
}

func (c *Client) fetch(ctx context.Context, ip string) (*Location, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=status,message,country,regionName,city,query",
		strings.TrimRight(c.APIBaseURL, "/"), url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("geoip lookup failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var loc Location
	if err := json.Unmarshal(body, &loc); err != nil {
		return nil, err
	}
	if loc.Status != "success" {
		return nil, fmt.Errorf("geoip lookup failed: %s", loc.Message)
	}
	return &loc, nil
}

func (c *Client) fromCache(ip string) *Location {
	raw, err := cache.Get(cacheKeyPrefix + ip)
	if err != nil || raw == "" {
		return nil
	}
	var loc Location
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		return nil
	}
	return &loc
}

func (c *Client) toCache(ip string, loc *Location) {
	encoded, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := cache.Set(cacheKeyPrefix+ip, string(encoded), cacheTTL); err != nil {
		log.WithError(err).Debug("geoip cache write failed")
	}
}

// CountryFor is the convenience wrapper the controllers use: it swallows
// lookup failures and returns a description or empty string.
func (c *Client) CountryFor(ctx context.Context, ip string) string {
	loc, err := c.Lookup(ctx, ip)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			log.WithField("ip", ip).Debug("geoip lookup timed out")
		} else {
			log.WithError(err).WithField("ip", ip).Debug("geoip lookup failed")
		}
		return ""
	}
	return loc.Describe()
}
