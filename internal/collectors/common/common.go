package common

import (
	"context"
	"net"
	"strings"
	"time"

	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/httpclient"
	"argus/internal/platform/logx"
)

// Resolver is the DNS surface collectors use. *net.Resolver satisfies it;
// tests plug a fake.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// DefaultResolver returns the Go resolver (no cgo).
func DefaultResolver() Resolver {
	return &net.Resolver{PreferGo: true}
}

// CustomString reads cfg.Custom[key] as a string.
func CustomString(cfg ports.CollectorConfig, key, def string) string {
	if v, ok := cfg.Custom[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// CustomStrings reads cfg.Custom[key] as a list of strings. YAML decodes
// lists as []any.
func CustomStrings(cfg ports.CollectorConfig, key string, def []string) []string {
	switch v := cfg.Custom[key].(type) {
	case []string:
		if len(v) > 0 {
			return v
		}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	case string:
		if v != "" {
			return strings.Split(v, ",")
		}
	}
	return def
}

// NewHTTPClient builds the shared HTTP client for a collector from its
// config. The collector decorator retries, so the client retries once.
func NewHTTPClient(cfg ports.CollectorConfig, logger logx.Logger) *httpclient.Client {
	hc := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	if ua := CustomString(cfg, "user_agent", ""); ua != "" {
		hc.UserAgent = ua
	}
	if cfg.RateLimit > 0 {
		hc.RateLimit = float64(cfg.RateLimit)
		hc.RateLimitBurst = cfg.RateLimit
	}
	return httpclient.New(hc, logger)
}

// Now is the collection timestamp.
func Now() time.Time {
	return time.Now().UTC()
}

// IsNoData reports DNS answers that simply have no records (NXDOMAIN or
// empty), which collectors treat as absence rather than failure.
func IsNoData(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}
