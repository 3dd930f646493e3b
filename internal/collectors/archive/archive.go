// Package archive implements the "archive" collector: it lists historical
// URLs captured by the Wayback Machine for a domain, keeps the most
// interesting ones and derives hostnames and technologies from them.
package archive

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"argus/internal/collectors/common"
	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/httpclient"
	"argus/internal/platform/logx"
	"argus/internal/platform/registry"
	"argus/internal/platform/urlfilter"
	"argus/internal/platform/validator"
)

const (
	collectorName  = "archive"
	defaultCDXURL  = "https://web.archive.org/cdx/search/cdx"
	defaultMaxURLs = 100
	// Filas pedidas al CDX antes de filtrar.
	defaultFetchLimit = 5000
	cdxTimeLayout     = "20060102150405"
)

// techPatterns ruta -> tecnología
var techPatterns = []struct{ fragment, tech string }{
	{"/wp-admin/", "WordPress"},
	{"/wp-content/", "WordPress"},
	{"/wp-includes/", "WordPress"},
	{"/phpmyadmin/", "phpMyAdmin"},
	{"/cpanel/", "cPanel"},
	{"/plesk/", "Plesk"},
	{"/webmail/", "Webmail"},
	{"/joomla/", "Joomla"},
	{"/drupal/", "Drupal"},
	{"/magento/", "Magento"},
	{"/moodle/", "Moodle"},
	{"/typo3/", "TYPO3"},
	{"/owa/", "Outlook Web Access"},
	{"/jenkins/", "Jenkins"},
}

func init() {
	registry.Global().MustRegister(
		collectorName,
		func(cfg ports.CollectorConfig, logger logx.Logger) (ports.Collector, error) {
			return New(cfg, logger), nil
		},
		ports.CollectorMetadata{
			Name:        collectorName,
			Description: "Historical URLs from the Wayback Machine, ranked by interest",
			Version:     "1.0.0",
			TargetTypes: []domain.TargetType{domain.TargetDomain},
			EntityTypes: []domain.EntityType{
				domain.EntityURL, domain.EntitySubdomain, domain.EntityTechnology,
			},
			Network:   true,
			RateLimit: 1,
			Priority:  4,
		},
	)
}

// capture es una URL archivada con su primera fecha de captura.
type capture struct {
	url       string
	firstSeen string
}

// Collector consulta el índice CDX del Wayback Machine.
type Collector struct {
	client     *httpclient.Client
	cdxURL     string
	maxURLs    int
	fetchLimit int
	logger     logx.Logger
}

// New crea el collector. Custom["cdx_url"], Custom["max_urls"] y
// Custom["fetch_limit"] ajustan endpoint y volumen.
func New(cfg ports.CollectorConfig, logger logx.Logger) *Collector {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &Collector{
		client:     common.NewHTTPClient(cfg, logger),
		cdxURL:     common.CustomString(cfg, "cdx_url", defaultCDXURL),
		maxURLs:    customInt(cfg, "max_urls", defaultMaxURLs),
		fetchLimit: customInt(cfg, "fetch_limit", defaultFetchLimit),
		logger:     logger.With("collector", collectorName),
	}
}

// Name implements ports.Collector
func (c *Collector) Name() string { return collectorName }

// Close implements ports.Collector
func (c *Collector) Close() error { return nil }

// Execute implements ports.Collector
func (c *Collector) Execute(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
	host := target.Host()
	if !validator.IsDomain(host) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "not a domain: %q", target.Value)
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		root = host
	}

	out := &domain.CollectorOutput{}
	captures, err := c.query(ctx, root)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("wayback query failed", "domain", root, "error", err.Error())
		out.AddError("wayback: %v", err)
		return out, nil
	}

	c.fromCaptures(out, root, captures)
	c.logger.Info("archive search completed",
		"domain", root,
		"captures", len(captures),
		"records", len(out.Records),
	)
	return out, nil
}

func (c *Collector) query(ctx context.Context, root string) ([]capture, error) {
	q := url.Values{}
	q.Set("url", "*."+root+"/*")
	q.Set("output", "json")
	q.Set("fl", "timestamp,original")
	q.Set("collapse", "urlkey")
	if c.fetchLimit > 0 {
		q.Set("limit", strconv.Itoa(c.fetchLimit))
	}

	resp, err := c.client.Get(ctx, c.cdxURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if err := httpclient.CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	body, err := c.client.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	return parseCDX(body)
}

// parseCDX decodifica la salida JSON del CDX: una matriz cuya primera
// fila es la cabecera.
func parseCDX(body []byte) ([]capture, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(err, "decode cdx response")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	tsIdx, urlIdx := 0, 1
	for i, col := range rows[0] {
		switch col {
		case "timestamp":
			tsIdx = i
		case "original":
			urlIdx = i
		}
	}

	out := make([]capture, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= tsIdx || len(row) <= urlIdx {
			continue
		}
		out = append(out, capture{url: row[urlIdx], firstSeen: cdxTime(row[tsIdx])})
	}
	return out, nil
}

func cdxTime(ts string) string {
	t, err := time.Parse(cdxTimeLayout, ts)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (c *Collector) fromCaptures(out *domain.CollectorOutput, root string, captures []capture) {
	firstSeen := make(map[string]string, len(captures))
	raw := make([]string, 0, len(captures))
	hosts := make(map[string]bool)
	techs := make(map[string]bool)
	var techOrder []string

	for _, cp := range captures {
		u, err := url.Parse(strings.TrimSpace(cp.url))
		if err != nil || !inScope(u, root) {
			continue
		}
		if u.Scheme == "" {
			u.Scheme = "http"
		}
		norm, err := urlfilter.Normalize(u.String())
		if err != nil {
			continue
		}
		if prev, ok := firstSeen[norm]; !ok || (cp.firstSeen != "" && (prev == "" || cp.firstSeen < prev)) {
			firstSeen[norm] = cp.firstSeen
		}
		raw = append(raw, norm)

		h := strings.ToLower(u.Hostname())
		if h != root {
			hosts[h] = true
		}
		p := strings.ToLower(u.Path)
		for _, tp := range techPatterns {
			if strings.Contains(p, tp.fragment) && !techs[tp.tech] {
				techs[tp.tech] = true
				techOrder = append(techOrder, tp.tech)
			}
		}
	}

	for _, s := range urlfilter.Filter(raw, urlfilter.Options{Limit: c.maxURLs}) {
		rec := domain.NewRawRecord(domain.EntityURL, s.URL, collectorName, domain.ConfidenceMedium)
		rec.Metadata["archived"] = true
		rec.Metadata["interest_score"] = s.Score
		if len(s.Reasons) > 0 {
			rec.Metadata["interest"] = s.Reasons
		}
		if ts := firstSeen[s.URL]; ts != "" {
			rec.Metadata["first_archived"] = ts
		}
		out.AddRecord(rec)

		u, _ := url.Parse(s.URL)
		hostType := domain.EntitySubdomain
		if u.Hostname() == root {
			hostType = domain.EntityDomain
		}
		out.Relate(collectorName, domain.EntityURL, s.URL, domain.RelBelongsTo, hostType, u.Hostname(), domain.ConfidenceMedium)
	}

	for _, h := range sortedHosts(hosts) {
		if !validator.IsDomain(h) {
			continue
		}
		sub := domain.NewRawRecord(domain.EntitySubdomain, h, collectorName, domain.ConfidenceMedium)
		sub.Metadata["archived"] = true
		out.AddRecord(sub)
		out.Relate(collectorName, domain.EntitySubdomain, h, domain.RelBelongsTo, domain.EntityDomain, root, domain.ConfidenceMedium)
	}

	for _, tech := range techOrder {
		rec := domain.NewRawRecord(domain.EntityTechnology, tech, collectorName, domain.ConfidenceLow)
		rec.Metadata["evidence"] = "archived_path"
		out.AddRecord(rec)
		out.Relate(collectorName, domain.EntityDomain, root, domain.RelUses, domain.EntityTechnology, tech, domain.ConfidenceLow)
	}
}

// inScope acepta el dominio raíz y sus subdominios.
func inScope(u *url.URL, root string) bool {
	host := strings.ToLower(u.Hostname())
	return host == root || strings.HasSuffix(host, "."+root)
}

func sortedHosts(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for h := range m {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

func customInt(cfg ports.CollectorConfig, key string, def int) int {
	switch v := cfg.Custom[key].(type) {
	case int:
		if v >= 0 {
			return v
		}
	case float64:
		if v >= 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
