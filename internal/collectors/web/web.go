// Package web implements the "web" collector: it fetches the target page
// and extracts links, contacts and technology hints from the HTML.
package web

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

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
	collectorName   = "web"
	defaultMaxLinks = 100
)

// Auto-registro del collector al importar el package
func init() {
	registry.Global().MustRegister(
		collectorName,
		func(cfg ports.CollectorConfig, logger logx.Logger) (ports.Collector, error) {
			return New(cfg, logger), nil
		},
		ports.CollectorMetadata{
			Name:        collectorName,
			Description: "Fetches the target page and extracts links, emails, phones and technology hints",
			Version:     "1.0.0",
			TargetTypes: []domain.TargetType{domain.TargetDomain, domain.TargetURL},
			EntityTypes: []domain.EntityType{
				domain.EntityURL, domain.EntityDomain, domain.EntityEmail,
				domain.EntityPhone, domain.EntityTechnology, domain.EntitySocialProfile,
			},
			Network:   true,
			RateLimit: 2,
			Priority:  6,
		},
	)
}

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// socialHosts mapea hosts conocidos a plataformas.
var socialHosts = map[string]string{
	"twitter.com":     "twitter",
	"x.com":           "twitter",
	"github.com":      "github",
	"linkedin.com":    "linkedin",
	"facebook.com":    "facebook",
	"instagram.com":   "instagram",
	"youtube.com":     "youtube",
	"reddit.com":      "reddit",
	"gitlab.com":      "gitlab",
	"mastodon.social": "mastodon",
}

// Collector descarga y analiza una página.
type Collector struct {
	client   *httpclient.Client
	maxLinks int
	logger   logx.Logger
}

// New crea el collector. Custom["max_links"] limita los enlaces emitidos.
func New(cfg ports.CollectorConfig, logger logx.Logger) *Collector {
	if logger == nil {
		logger = logx.NewSilent()
	}
	maxLinks := defaultMaxLinks
	if v, err := strconv.Atoi(common.CustomString(cfg, "max_links", "")); err == nil && v > 0 {
		maxLinks = v
	}
	return &Collector{
		client:   common.NewHTTPClient(cfg, logger),
		maxLinks: maxLinks,
		logger:   logger.With("collector", collectorName),
	}
}

// Name implements ports.Collector
func (c *Collector) Name() string {
	return collectorName
}

// Close implements ports.Collector
func (c *Collector) Close() error {
	return nil
}

// Execute implements ports.Collector
func (c *Collector) Execute(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
	pageURL, err := startURL(target)
	if err != nil {
		return nil, err
	}

	c.logger.Info("fetching page", "url", pageURL)
	out := &domain.CollectorOutput{}

	resp, err := c.client.Get(ctx, pageURL, map[string]string{"Accept": "text/html,application/xhtml+xml"})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		out.AddError("fetch %s: %v", pageURL, err)
		return out, nil
	}
	if err := httpclient.CheckStatus(resp); err != nil {
		resp.Body.Close()
		out.AddError("fetch %s: %v", pageURL, err)
		return out, nil
	}

	final := resp.Request.URL
	body, err := c.client.ReadBody(resp)
	if err != nil {
		out.AddError("read %s: %v", pageURL, err)
		return out, nil
	}

	page := parsePage(string(body), final)

	pageRec := domain.NewRawRecord(domain.EntityURL, final.String(), collectorName, domain.ConfidenceVerified)
	pageRec.Metadata["status_code"] = resp.StatusCode
	if page.title != "" {
		pageRec.Metadata["title"] = page.title
	}
	if page.description != "" {
		pageRec.Metadata["description"] = page.description
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		pageRec.Metadata["content_type"] = ct
	}
	out.AddRecord(pageRec)
	pageValue := pageRec.Value

	for _, tech := range technologies(resp.Header, page.generator) {
		out.AddRecord(domain.NewRawRecord(domain.EntityTechnology, tech, collectorName, domain.ConfidenceMedium))
		out.Relate(collectorName, domain.EntityURL, pageValue, domain.RelUses, domain.EntityTechnology, tech, domain.ConfidenceMedium)
	}

	c.emitLinks(out, pageValue, final, page.links)

	for _, email := range page.emails {
		out.AddRecord(domain.NewRawRecord(domain.EntityEmail, email, collectorName, domain.ConfidenceMedium))
		out.Relate(collectorName, domain.EntityURL, pageValue, domain.RelMentions, domain.EntityEmail, email, domain.ConfidenceMedium)
	}
	for _, phone := range page.phones {
		out.AddRecord(domain.NewRawRecord(domain.EntityPhone, phone, collectorName, domain.ConfidenceMedium))
		out.Relate(collectorName, domain.EntityURL, pageValue, domain.RelMentions, domain.EntityPhone, phone, domain.ConfidenceMedium)
	}

	c.logger.Info("page analysed",
		"url", pageValue,
		"links", len(page.links),
		"emails", len(page.emails),
		"records", len(out.Records),
	)
	return out, nil
}

// emitLinks separa enlaces internos (url), hosts externos (domain) y
// perfiles sociales. Los internos se normalizan y ordenan por interés con
// el presupuesto que dejan los demás.
func (c *Collector) emitLinks(out *domain.CollectorOutput, pageValue string, base *url.URL, links []*url.URL) {
	pageHost := strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.")
	seenHosts := make(map[string]bool)
	var internal []string
	emitted := 0

	for _, link := range links {
		host := strings.TrimPrefix(strings.ToLower(link.Hostname()), "www.")
		if host == pageHost {
			internal = append(internal, link.String())
			continue
		}
		if emitted >= c.maxLinks {
			continue
		}

		if platform, ok := socialHosts[host]; ok {
			if handle := socialHandle(link); handle != "" {
				value := platform + ":" + handle
				rec := domain.NewRawRecord(domain.EntitySocialProfile, value, collectorName, domain.ConfidenceLow)
				rec.Metadata["platform"] = platform
				rec.Metadata["url"] = link.String()
				out.AddRecord(rec)
				out.Relate(collectorName, domain.EntityURL, pageValue, domain.RelMentions, domain.EntitySocialProfile, value, domain.ConfidenceLow)
				emitted++
				continue
			}
		}

		if seenHosts[host] || !validator.IsDomain(host) {
			continue
		}
		seenHosts[host] = true
		out.AddRecord(domain.NewRawRecord(domain.EntityDomain, host, collectorName, domain.ConfidenceLow))
		out.Relate(collectorName, domain.EntityURL, pageValue, domain.RelLinksTo, domain.EntityDomain, host, domain.ConfidenceLow)
		emitted++
	}

	budget := c.maxLinks - emitted
	if budget <= 0 || len(internal) == 0 {
		return
	}
	for _, s := range urlfilter.Filter(internal, urlfilter.Options{Limit: budget}) {
		if s.URL == pageValue {
			continue
		}
		rec := domain.NewRawRecord(domain.EntityURL, s.URL, collectorName, domain.ConfidenceMedium)
		if s.Score != 0 {
			rec.Metadata["interest_score"] = s.Score
			rec.Metadata["interest"] = s.Reasons
		}
		out.AddRecord(rec)
		out.Relate(collectorName, domain.EntityURL, pageValue, domain.RelLinksTo, domain.EntityURL, s.URL, domain.ConfidenceMedium)
	}
}

func startURL(target domain.Target) (string, error) {
	if target.Type == domain.TargetURL {
		u, err := url.Parse(target.Value)
		if err != nil || u.Host == "" {
			return "", errors.Wrapf(errors.ErrInvalidInput, "invalid url %q", target.Value)
		}
		return u.String(), nil
	}
	host := target.Host()
	if host == "" {
		return "", errors.Wrapf(errors.ErrInvalidInput, "no host in target %q", target.Value)
	}
	return "https://" + host + "/", nil
}

type page struct {
	title       string
	description string
	generator   string
	links       []*url.URL
	emails      []string
	phones      []string
}

// parsePage recorre el árbol HTML una sola vez.
func parsePage(body string, base *url.URL) page {
	var p page
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return p
	}

	seenLinks := make(map[string]bool)
	emails := make(map[string]bool)
	phones := make(map[string]bool)
	var text strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "title":
				if n.FirstChild != nil && p.title == "" {
					p.title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				switch name {
				case "description":
					p.description = strings.TrimSpace(attr(n, "content"))
				case "generator":
					p.generator = strings.TrimSpace(attr(n, "content"))
				}
			case "a", "link":
				href := strings.TrimSpace(attr(n, "href"))
				switch {
				case strings.HasPrefix(strings.ToLower(href), "mailto:"):
					addr := strings.SplitN(href[len("mailto:"):], "?", 2)[0]
					if validator.IsEmail(addr) {
						emails[strings.ToLower(addr)] = true
					}
				case strings.HasPrefix(strings.ToLower(href), "tel:"):
					if num := strings.TrimSpace(href[len("tel:"):]); validator.IsPhone(num) {
						phones[num] = true
					}
				case n.Data == "a" && href != "":
					if u := resolveLink(base, href); u != nil && !seenLinks[u.String()] {
						seenLinks[u.String()] = true
						p.links = append(p.links, u)
					}
				}
			case "script", "style":
				return
			}
		case html.TextNode:
			text.WriteString(n.Data)
			text.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	for _, m := range emailPattern.FindAllString(text.String(), -1) {
		if validator.IsEmail(m) {
			emails[strings.ToLower(m)] = true
		}
	}

	p.emails = sortedKeys(emails)
	p.phones = sortedKeys(phones)
	return p
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// resolveLink resuelve href contra base y descarta fragmentos y esquemas no http.
func resolveLink(base *url.URL, href string) *url.URL {
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	u.Fragment = ""
	return u
}

func socialHandle(u *url.URL) string {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	handle := parts[0]
	if strings.EqualFold(handle, "in") || strings.EqualFold(handle, "company") || strings.EqualFold(handle, "user") {
		if len(parts) < 2 {
			return ""
		}
		handle = parts[1]
	}
	handle = strings.TrimPrefix(handle, "@")
	if !validator.IsUsername(handle) {
		return ""
	}
	return strings.ToLower(handle)
}

// technologies junta pistas de Server, X-Powered-By y meta generator.
func technologies(h http.Header, generator string) []string {
	set := make(map[string]bool)
	for _, v := range []string{h.Get("Server"), h.Get("X-Powered-By"), generator} {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		// "nginx/1.25.3" -> "nginx"
		name := strings.ToLower(strings.Fields(v)[0])
		if i := strings.Index(name, "/"); i > 0 {
			name = name[:i]
		}
		set[name] = true
	}
	return sortedKeys(set)
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
