// Package emailcheck implements the "email" collector: syntax, MX and
// mail-policy checks for an address, plus a Gravatar presence probe.
package emailcheck

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/mail"
	"sort"
	"strings"

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
	collectorName      = "email"
	defaultGravatarURL = "https://gravatar.com/avatar"
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
			Description: "Email syntax, MX, SPF/DMARC and Gravatar checks",
			Version:     "1.0.0",
			TargetTypes: []domain.TargetType{domain.TargetEmail},
			EntityTypes: []domain.EntityType{domain.EntityEmail, domain.EntityDomain, domain.EntityURL},
			Network:     true,
			Priority:    7,
		},
	)
}

// disposableDomains proveedores de correo temporal conocidos.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"yopmail.com":       true,
	"trashmail.com":     true,
	"sharklasers.com":   true,
}

// Collector verifica una dirección de correo.
type Collector struct {
	client      *httpclient.Client
	resolver    common.Resolver
	gravatarURL string
	logger      logx.Logger
}

// New crea el collector. Custom["gravatar_url"] reemplaza el endpoint;
// "off" desactiva la consulta.
func New(cfg ports.CollectorConfig, logger logx.Logger) *Collector {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &Collector{
		client:      common.NewHTTPClient(cfg, logger),
		resolver:    common.DefaultResolver(),
		gravatarURL: common.CustomString(cfg, "gravatar_url", defaultGravatarURL),
		logger:      logger.With("collector", collectorName),
	}
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
	return nil
}

// Execute implements ports.Collector
func (c *Collector) Execute(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
	address, err := parseAddress(target.Value)
	if err != nil {
		return nil, err
	}
	local, host, _ := strings.Cut(address, "@")

	out := &domain.CollectorOutput{}
	rec := domain.NewRawRecord(domain.EntityEmail, address, collectorName, domain.ConfidenceVerified)
	rec.Metadata["syntax_valid"] = true
	rec.Metadata["local_part"] = local
	rec.Metadata["disposable"] = disposableDomains[host]

	mxHosts, mxErr := c.lookupMX(ctx, host)
	switch {
	case mxErr != nil:
		out.AddError("dns MX: %v", mxErr)
	case len(mxHosts) > 0:
		rec.Metadata["mx_valid"] = true
		rec.Metadata["mx_hosts"] = mxHosts
	default:
		// sin MX el RFC 5321 cae al registro A del dominio
		addrs, err := c.resolver.LookupHost(ctx, host)
		implicit := err == nil && len(addrs) > 0
		rec.Metadata["mx_valid"] = implicit
		if implicit {
			rec.Metadata["implicit_mx"] = true
		}
	}

	if txts, err := c.resolver.LookupTXT(ctx, host); err == nil {
		for _, t := range txts {
			if strings.HasPrefix(t, "v=spf1") {
				rec.Metadata["spf"] = t
			}
		}
	}
	if txts, err := c.resolver.LookupTXT(ctx, "_dmarc."+host); err == nil {
		for _, t := range txts {
			if strings.HasPrefix(t, "v=DMARC1") {
				rec.Metadata["dmarc"] = t
			}
		}
	}

	avatar, err := c.gravatar(ctx, address)
	if err != nil {
		out.AddError("gravatar: %v", err)
	}
	rec.Metadata["gravatar"] = avatar != ""

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.AddRecord(rec)
	out.AddRecord(domain.NewRawRecord(domain.EntityDomain, host, collectorName, domain.ConfidenceVerified))
	out.Relate(collectorName, domain.EntityEmail, address, domain.RelEmailDomain, domain.EntityDomain, host, domain.ConfidenceVerified)

	for _, mx := range mxHosts {
		mxRec := domain.NewRawRecord(domain.EntityDomain, mx, collectorName, domain.ConfidenceHigh)
		mxRec.Metadata["role"] = "mx"
		out.AddRecord(mxRec)
		out.Relate(collectorName, domain.EntityDomain, host, domain.RelHasMX, domain.EntityDomain, mx, domain.ConfidenceHigh)
	}

	if avatar != "" {
		out.AddRecord(domain.NewRawRecord(domain.EntityURL, avatar, collectorName, domain.ConfidenceHigh))
		out.Relate(collectorName, domain.EntityEmail, address, domain.RelMentions, domain.EntityURL, avatar, domain.ConfidenceHigh)
	}

	c.logger.Info("email checked", "email", address, "mx_hosts", len(mxHosts), "gravatar", avatar != "")
	return out, nil
}

// parseAddress acepta "Name <user@host>" y retorna user@host en minúsculas.
func parseAddress(v string) (string, error) {
	v = strings.TrimSpace(v)
	if addr, err := mail.ParseAddress(v); err == nil {
		v = addr.Address
	}
	v = strings.ToLower(v)
	if !validator.IsEmail(v) {
		return "", errors.Wrapf(errors.ErrInvalidInput, "not an email address: %q", v)
	}
	return v, nil
}

// lookupMX retorna los hosts MX ordenados por preferencia. La ausencia de
// registros no es un error.
func (c *Collector) lookupMX(ctx context.Context, host string) ([]string, error) {
	mxs, err := c.resolver.LookupMX(ctx, host)
	if err != nil {
		if common.IsNoData(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.SliceStable(mxs, func(i, j int) bool { return mxs[i].Pref < mxs[j].Pref })

	var hosts []string
	for _, mx := range mxs {
		h := strings.ToLower(strings.TrimSuffix(mx.Host, "."))
		// "." es el null MX de RFC 7505
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts, nil
}

// gravatar consulta el avatar con d=404: 200 indica perfil existente.
func (c *Collector) gravatar(ctx context.Context, address string) (string, error) {
	if strings.EqualFold(c.gravatarURL, "off") {
		return "", nil
	}
	sum := md5.Sum([]byte(address))
	avatar := strings.TrimSuffix(c.gravatarURL, "/") + "/" + hex.EncodeToString(sum[:])

	resp, err := c.client.Get(ctx, avatar+"?d=404", nil)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return avatar, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", httpclient.CheckStatus(resp)
	}
}
