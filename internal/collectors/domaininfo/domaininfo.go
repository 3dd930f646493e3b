// Package domaininfo implements the "domain" collector: RDAP registration
// data plus live DNS records for a domain target.
package domaininfo

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

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
	collectorName = "domain"

	// RDAP cambia poco; un día de cache evita golpear el bootstrap en
	// recolecciones repetidas del mismo dominio
	cacheTTL = 24 * time.Hour
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
			Description: "RDAP registration data and DNS records (A/AAAA, NS, MX, TXT)",
			Version:     "1.0.0",
			TargetTypes: []domain.TargetType{domain.TargetDomain},
			EntityTypes: []domain.EntityType{
				domain.EntityDomain, domain.EntitySubdomain, domain.EntityNameserver,
				domain.EntityIP, domain.EntityEmail, domain.EntityOrganization,
			},
			Network:   true,
			RateLimit: 5,
			Priority:  8,
		},
	)
}

// Collector consulta RDAP y DNS para un dominio.
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
	rdapCache := cache.New[*common.RDAPResponse](cache.Options{Shards: 4, Capacity: 256})

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
	host := target.Host()
	if !validator.IsDomain(host) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "not a domain: %q", target.Value)
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}

	c.logger.Info("starting domain collection", "host", host, "registrable", registrable)

	out := &domain.CollectorOutput{}
	root := domain.NewRawRecord(domain.EntityDomain, registrable, collectorName, domain.ConfidenceHigh)
	learned := false

	resp, err := c.lookupRDAP(ctx, registrable)
	if err != nil {
		c.logger.Warn("RDAP query failed", "domain", registrable, "error", err.Error())
		out.AddError("rdap: %v", err)
	} else {
		c.fromRDAP(out, &root, resp)
		learned = true
	}

	if c.resolveDNS(ctx, out, &root, host, registrable) {
		learned = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if learned {
		out.Records = append([]domain.RawRecord{root}, out.Records...)
	}
	if host != registrable && learned {
		out.AddRecord(domain.NewRawRecord(domain.EntitySubdomain, host, collectorName, domain.ConfidenceVerified))
		out.Relate(collectorName, domain.EntitySubdomain, host, domain.RelBelongsTo, domain.EntityDomain, registrable, domain.ConfidenceVerified)
	}

	c.logger.Info("domain collection completed", "domain", registrable, "records", len(out.Records), "errors", len(out.Errors))
	return out, nil
}

func (c *Collector) lookupRDAP(ctx context.Context, name string) (*common.RDAPResponse, error) {
	if cached, ok := c.cache.Get(name); ok {
		c.logger.Debug("RDAP response found in cache", "domain", name)
		return cached, nil
	}
	resp, err := common.FetchRDAP(ctx, c.client, c.rdapBase, "domain", name)
	if err != nil {
		return nil, err
	}
	c.cache.Set(name, resp, cacheTTL)
	return resp, nil
}

// fromRDAP vuelca registrar, fechas, nameservers y contactos.
func (c *Collector) fromRDAP(out *domain.CollectorOutput, root *domain.RawRecord, resp *common.RDAPResponse) {
	meta := root.Metadata
	if len(resp.Status) > 0 {
		meta["status"] = resp.Status
	}
	meta["dnssec"] = resp.SecureDNS.DelegationSigned
	if v := resp.Event("registration"); v != "" {
		meta["created"] = v
	}
	if v := resp.Event("last changed", "last update of rdap database"); v != "" {
		meta["updated"] = v
	}
	if v := resp.Event("expiration"); v != "" {
		meta["expires"] = v
	}

	var nameservers []string
	for _, ns := range resp.Nameservers {
		name := strings.ToLower(strings.TrimSuffix(ns.LDHName, "."))
		if name == "" {
			continue
		}
		nameservers = append(nameservers, name)
		out.AddRecord(domain.NewRawRecord(domain.EntityNameserver, name, collectorName, domain.ConfidenceHigh))
		out.Relate(collectorName, domain.EntityDomain, root.Value, domain.RelHasNameserver, domain.EntityNameserver, name, domain.ConfidenceHigh)
	}
	if len(nameservers) > 0 {
		meta["nameservers"] = nameservers
	}

	common.Walk(resp.Entities, func(e common.RDAPEntity) {
		if e.HasRole("registrar") {
			if name := e.VCardField("fn"); name != "" {
				meta["registrar"] = name
			}
			for _, id := range e.PublicIDs {
				if id.Type == "IANA Registrar ID" {
					meta["registrar_iana"] = id.Identifier
				}
			}
			return
		}

		if e.Redacted() {
			return
		}
		if e.HasRole("registrant") {
			if org := e.VCardField("org"); org != "" {
				meta["registrant_org"] = org
				rec := domain.NewRawRecord(domain.EntityOrganization, org, collectorName, domain.ConfidenceHigh)
				rec.Metadata["role"] = "registrant"
				out.AddRecord(rec)
				out.Relate(collectorName, domain.EntityDomain, root.Value, domain.RelBelongsTo, domain.EntityOrganization, org, domain.ConfidenceHigh)
			}
		}
		if email := e.VCardField("email"); validator.IsEmail(email) {
			rec := domain.NewRawRecord(domain.EntityEmail, email, collectorName, domain.ConfidenceHigh)
			rec.Metadata["contact_role"] = contactRole(e.Roles)
			if name := e.VCardField("fn"); name != "" {
				rec.Metadata["contact_name"] = name
			}
			out.AddRecord(rec)
			out.Relate(collectorName, domain.EntityDomain, root.Value, domain.RelHasContact, domain.EntityEmail, email, domain.ConfidenceHigh)
		}
	})
}

// resolveDNS agrega IPs, nameservers, MX y TXT. Retorna true si obtuvo
// alguna respuesta.
func (c *Collector) resolveDNS(ctx context.Context, out *domain.CollectorOutput, root *domain.RawRecord, host, registrable string) bool {
	learned := false

	addrs, err := c.resolver.LookupHost(ctx, host)
	switch {
	case err == nil:
		hostType := domain.EntityDomain
		if host != registrable {
			hostType = domain.EntitySubdomain
		}
		sort.Strings(addrs)
		for _, a := range addrs {
			rec := domain.NewRawRecord(domain.EntityIP, a, collectorName, domain.ConfidenceHigh)
			rec.Metadata["resolved_from"] = host
			out.AddRecord(rec)
			out.Relate(collectorName, hostType, host, domain.RelResolvesTo, domain.EntityIP, a, domain.ConfidenceHigh)
		}
		learned = len(addrs) > 0
	case !common.IsNoData(err):
		out.AddError("dns A/AAAA: %v", err)
	}

	nss, err := c.resolver.LookupNS(ctx, registrable)
	switch {
	case err == nil:
		for _, ns := range nss {
			name := strings.ToLower(strings.TrimSuffix(ns.Host, "."))
			if name == "" {
				continue
			}
			out.AddRecord(domain.NewRawRecord(domain.EntityNameserver, name, collectorName, domain.ConfidenceHigh))
			out.Relate(collectorName, domain.EntityDomain, registrable, domain.RelHasNameserver, domain.EntityNameserver, name, domain.ConfidenceHigh)
			learned = true
		}
	case !common.IsNoData(err):
		out.AddError("dns NS: %v", err)
	}

	mxs, err := c.resolver.LookupMX(ctx, registrable)
	switch {
	case err == nil:
		for _, mx := range mxs {
			name := strings.ToLower(strings.TrimSuffix(mx.Host, "."))
			if name == "" {
				continue
			}
			rec := domain.NewRawRecord(domain.EntityDomain, name, collectorName, domain.ConfidenceHigh)
			rec.Metadata["role"] = "mx"
			rec.Metadata["preference"] = int(mx.Pref)
			out.AddRecord(rec)
			out.Relate(collectorName, domain.EntityDomain, registrable, domain.RelHasMX, domain.EntityDomain, name, domain.ConfidenceHigh)
			learned = true
		}
	case !common.IsNoData(err):
		out.AddError("dns MX: %v", err)
	}

	txts, err := c.resolver.LookupTXT(ctx, registrable)
	switch {
	case err == nil && len(txts) > 0:
		root.Metadata["txt"] = txts
		for _, t := range txts {
			switch {
			case strings.HasPrefix(t, "v=spf1"):
				root.Metadata["spf"] = t
			case strings.HasPrefix(t, "v=DMARC1"):
				root.Metadata["dmarc"] = t
			}
		}
		learned = true
	case err != nil && !common.IsNoData(err):
		out.AddError("dns TXT: %v", err)
	}

	return learned
}

func contactRole(roles []string) string {
	for _, r := range roles {
		switch strings.ToLower(r) {
		case "registrant":
			return "registrant"
		case "administrative":
			return "admin"
		case "technical":
			return "tech"
		case "abuse":
			return "abuse"
		case "billing":
			return "billing"
		}
	}
	return "unknown"
}
