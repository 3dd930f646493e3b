// Package social implements the "social" collector: it probes a fixed list
// of platforms for a profile under the target username.
package social

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"argus/internal/collectors/common"
	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/httpclient"
	"argus/internal/platform/logx"
	"argus/internal/platform/registry"
	"argus/internal/platform/validator"
)

const (
	collectorName  = "social"
	defaultProbes  = 4
	usernameMarker = "{username}"
)

// Auto-registro del collector al importar el package
func init() {
	registry.Global().MustRegister(
		collectorName,
		func(cfg ports.CollectorConfig, logger logx.Logger) (ports.Collector, error) {
			return New(cfg, logger)
		},
		ports.CollectorMetadata{
			Name:        collectorName,
			Description: "Username presence across public profile platforms",
			Version:     "1.0.0",
			TargetTypes: []domain.TargetType{domain.TargetUsername},
			EntityTypes: []domain.EntityType{domain.EntityUsername, domain.EntitySocialProfile},
			Network:     true,
			RateLimit:   4,
			Priority:    5,
		},
	)
}

// Platform es un sitio con perfiles públicos en una URL predecible.
type Platform struct {
	Name     string
	Template string
}

// URL renders the profile URL for a username.
func (p Platform) URL(username string) string {
	return strings.ReplaceAll(p.Template, usernameMarker, username)
}

// DefaultPlatforms lista los sitios consultados por defecto.
var DefaultPlatforms = []Platform{
	{Name: "github", Template: "https://github.com/{username}"},
	{Name: "gitlab", Template: "https://gitlab.com/{username}"},
	{Name: "reddit", Template: "https://www.reddit.com/user/{username}"},
	{Name: "keybase", Template: "https://keybase.io/{username}"},
	{Name: "medium", Template: "https://medium.com/@{username}"},
	{Name: "devto", Template: "https://dev.to/{username}"},
	{Name: "hackernews", Template: "https://news.ycombinator.com/user?id={username}"},
	{Name: "docker", Template: "https://hub.docker.com/u/{username}"},
}

// Collector prueba la existencia de perfiles por plataforma.
type Collector struct {
	client    *httpclient.Client
	platforms []Platform
	probes    int
	logger    logx.Logger
}

// New crea el collector. Custom["platforms"] acepta entradas "name=template"
// con {username} como marcador.
func New(cfg ports.CollectorConfig, logger logx.Logger) (*Collector, error) {
	if logger == nil {
		logger = logx.NewSilent()
	}

	platforms := DefaultPlatforms
	if entries := common.CustomStrings(cfg, "platforms", nil); len(entries) > 0 {
		parsed, err := ParsePlatforms(entries)
		if err != nil {
			return nil, err
		}
		platforms = parsed
	}

	probes := defaultProbes
	if n, ok := cfg.Custom["concurrency"].(int); ok && n > 0 {
		probes = n
	}

	return &Collector{
		client:    common.NewHTTPClient(cfg, logger),
		platforms: platforms,
		probes:    probes,
		logger:    logger.With("collector", collectorName),
	}, nil
}

// ParsePlatforms parsea entradas "name=template".
func ParsePlatforms(entries []string) ([]Platform, error) {
	out := make([]Platform, 0, len(entries))
	for _, e := range entries {
		name, tmpl, ok := strings.Cut(strings.TrimSpace(e), "=")
		name = strings.ToLower(strings.TrimSpace(name))
		tmpl = strings.TrimSpace(tmpl)
		if !ok || name == "" || !strings.Contains(tmpl, usernameMarker) || !validator.IsURL(tmpl) {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "platform entry %q: want name=url with %s", e, usernameMarker)
		}
		out = append(out, Platform{Name: name, Template: tmpl})
	}
	return out, nil
}

// Name implements ports.Collector
func (c *Collector) Name() string {
	return collectorName
}

// Close implements ports.Collector
func (c *Collector) Close() error {
	return nil
}

type hit struct {
	platform Platform
	url      string
	status   int
}

// Execute implements ports.Collector
func (c *Collector) Execute(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
	username := strings.TrimPrefix(strings.TrimSpace(target.Value), "@")
	if !validator.IsUsername(username) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "not a username: %q", target.Value)
	}

	var (
		mu    sync.Mutex
		found []hit
		fails []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.probes)
	for _, p := range c.platforms {
		g.Go(func() error {
			profileURL := p.URL(username)
			exists, status, err := c.probe(gctx, profileURL)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				fails = append(fails, fmt.Sprintf("%s: %v", p.Name, err))
			case exists:
				found = append(found, hit{platform: p, url: profileURL, status: status})
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &domain.CollectorOutput{}
	sort.Strings(fails)
	for _, f := range fails {
		out.AddError("%s", f)
	}

	user := domain.NewRawRecord(domain.EntityUsername, username, collectorName, domain.ConfidenceVerified)
	user.Metadata["platforms_checked"] = len(c.platforms)
	user.Metadata["platforms_found"] = len(found)
	out.AddRecord(user)

	sort.Slice(found, func(i, j int) bool { return found[i].platform.Name < found[j].platform.Name })
	for _, h := range found {
		value := h.platform.Name + ":" + strings.ToLower(username)
		profile := domain.NewRawRecord(domain.EntitySocialProfile, value, collectorName, domain.ConfidenceMedium)
		profile.Metadata["platform"] = h.platform.Name
		profile.Metadata["handle"] = username
		profile.Metadata["url"] = h.url
		profile.Metadata["status_code"] = h.status
		out.AddRecord(profile)
		out.Relate(collectorName, domain.EntityUsername, username, domain.RelSameAs, domain.EntitySocialProfile, value, domain.ConfidenceMedium)
	}

	c.logger.Info("username probed",
		"username", username,
		"checked", len(c.platforms),
		"found", len(found),
		"errors", len(fails),
	)
	return out, nil
}

// probe reports whether a profile exists. HEAD first; sites that reject it
// get a GET. 404/410 mean absent, other non-2xx are errors.
func (c *Collector) probe(ctx context.Context, profileURL string) (bool, int, error) {
	resp, err := c.client.Head(ctx, profileURL)
	if err != nil {
		return false, 0, err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusForbidden {
		resp, err = c.client.Get(ctx, profileURL, nil)
		if err != nil {
			return false, 0, err
		}
		resp.Body.Close()
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, resp.StatusCode, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, resp.StatusCode, nil
	default:
		return false, resp.StatusCode, httpclient.CheckStatus(resp)
	}
}
