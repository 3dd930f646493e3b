// Package ipinfo implements the "ip" collector: reverse DNS and the RDAP
// network registration for an address.
package ipinfo

import (
	"context"
	"net/netip"
	"sort"
	"strings"
	"time"

	"argus/internal/collectors/common"
	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/cache"
	"argus/internal/platform/errors"
	"argus/internal/platform/httpclient"
	"argus/internal/platform/logx"
	"argus/internal/platform/registry"
	"argus/internal/platform/validator"
)

const (
	collectorName = "ip"
	cacheTTL      = 12 * time.Hour
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
			Description: "Reverse DNS and RDAP network ownership for IP addresses",
			Version:     "1.0.0",
			TargetTypes: []domain.TargetType{domain.TargetIP},
			EntityTypes: []domain.EntityType{domain.EntityIP, domain.EntityDomain, domain.EntityOrganization, domain.EntityEmail},
			Network:     true,
			RateLimit:   5,
			Priority:    7,
		},
	)
}

// Collector resuelve PTR y consulta RDAP para una IP.
type Collector struct {
	client      *httpclient.Client
	resolver    common.Resolver
	rdapBase    string
	cache       *cache.Cache[*common.RDAPResponse]
	stopCleanup func()
	logger      logx.Logger
}

// New crea el collector. Custom["rdap_url"] reemplaza el bootstrap.
func New(cfg ports.CollectorConfig, logger logx.Logger) *Collector {
	if logger == nil {
		logger = logx.NewSilent()
	}
	rdapCache := cache.New[*common.RDAPResponse](cache.Options{Shards: 4, Capacity: 512})
	c := &Collector{
		client:   common.NewHTTPClient(cfg, logger),
		resolver: common.DefaultResolver(),
		rdapBase: common.CustomString(cfg, "rdap_url", common.DefaultRDAPBase),
		cache:    rdapCache,
		logger:   logger.With("collector", collectorName),
	}
	c.stopCleanup = rdapCache.StartCleanupWorker(time.Hour)
	return c
}

// WithResolver reemplaza el resolver DNS.
func (c *Collector) WithResolver(r common.Resolver) *Collector {
	c.resolver = r
	return c
}

// Name implements ports.Collector
func (c *Collector) Name() string {
	return collectorName
}

// Close implements ports.Collector
func (c *Collector) Close() error {
	if c.stopCleanup != nil {
		c.stopCleanup()
	}
	return nil
}

// Execute implements ports.Collector
func (c *Collector) Execute(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(target.Value))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "not an ip address: %q", target.Value)
	}
	addr = addr.Unmap()
	ip := addr.String()

	out := &domain.CollectorOutput{}
	rec := domain.NewRawRecord(domain.EntityIP, ip, collectorName, domain.ConfidenceVerified)
	private := validator.IsPrivateIP(ip) || addr.IsLoopback()
	rec.Metadata["private"] = private

	names, err := c.resolver.LookupAddr(ctx, ip)
	switch {
	case err == nil:
		sort.Strings(names)
		var ptr []string
		for _, n := range names {
			n = strings.ToLower(strings.TrimSuffix(n, "."))
			if !validator.IsDomain(n) {
				continue
			}
			ptr = append(ptr, n)
			out.AddRecord(domain.NewRawRecord(domain.EntityDomain, n, collectorName, domain.ConfidenceMedium))
			out.Relate(collectorName, domain.EntityDomain, n, domain.RelResolvesTo, domain.EntityIP, ip, domain.ConfidenceMedium)
		}
		if len(ptr) > 0 {
			rec.Metadata["ptr"] = ptr
		}
	case !common.IsNoData(err):
		out.AddError("reverse dns: %v", err)
	}

	if !private {
		resp, err := c.lookupRDAP(ctx, ip)
		if err != nil {
			c.logger.Warn("RDAP query failed", "ip", ip, "error", err.Error())
			out.AddError("rdap: %v", err)
		} else {
			c.fromRDAP(out, &rec, resp)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.Records = append([]domain.RawRecord{rec}, out.Records...)
	c.logger.Info("ip collection completed", "ip", ip, "records", len(out.Records), "errors", len(out.Errors))
	return out, nil
}

func (c *Collector) lookupRDAP(ctx context.Context, ip string) (*common.RDAPResponse, error) {
	if cached, ok := c.cache.Get(ip); ok {
		return cached, nil
	}
	resp, err := common.FetchRDAP(ctx, c.client, c.rdapBase, "ip", ip)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ip, resp, cacheTTL)
	return resp, nil
}

// fromRDAP agrega red, país y la organización titular.
func (c *Collector) fromRDAP(out *domain.CollectorOutput, rec *domain.RawRecord, resp *common.RDAPResponse) {
	if resp.Name != "" {
		rec.Metadata["network_name"] = resp.Name
	}
	if resp.Handle != "" {
		rec.Metadata["network_handle"] = resp.Handle
	}
	if resp.Country != "" {
		rec.Metadata["country"] = strings.ToUpper(resp.Country)
	}
	if cidrs := resp.CIDRs(); len(cidrs) > 0 {
		rec.Metadata["cidr"] = cidrs
	} else if resp.StartAddress != "" && resp.EndAddress != "" {
		rec.Metadata["range"] = resp.StartAddress + " - " + resp.EndAddress
	}

	orgs := make(map[string]bool)
	common.Walk(resp.Entities, func(e common.RDAPEntity) {
		switch {
		case e.HasRole("registrant"):
			name := e.VCardField("org")
			if name == "" {
				name = e.VCardField("fn")
			}
			if name == "" || orgs[name] {
				return
			}
			orgs[name] = true
			org := domain.NewRawRecord(domain.EntityOrganization, name, collectorName, domain.ConfidenceHigh)
			if resp.Country != "" {
				org.Metadata["country"] = strings.ToUpper(resp.Country)
			}
			out.AddRecord(org)
			out.Relate(collectorName, domain.EntityIP, rec.Value, domain.RelBelongsTo, domain.EntityOrganization, name, domain.ConfidenceHigh)
		case e.HasRole("abuse"):
			if email := e.VCardField("email"); validator.IsEmail(email) {
				abuse := domain.NewRawRecord(domain.EntityEmail, email, collectorName, domain.ConfidenceHigh)
				abuse.Metadata["contact_role"] = "abuse"
				out.AddRecord(abuse)
				out.Relate(collectorName, domain.EntityIP, rec.Value, domain.RelHasContact, domain.EntityEmail, email, domain.ConfidenceHigh)
			}
		}
	})
}
