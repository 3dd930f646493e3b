// Package certs implements the "certs" collector: it searches Certificate
// Transparency logs (crt.sh) for certificates issued to a domain and
// reports the hostnames, certificates and issuing authorities found.
package certs

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"

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
	collectorName      = "certs"
	defaultCRTShURL    = "https://crt.sh"
	defaultMaxCerts    = 200
	roleCertAuthority  = "certificate_authority"
	metaCTCertificates = "ct_certificates"
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
			Description: "Certificate Transparency search via crt.sh: hostnames, certificates and issuers",
			Version:     "1.0.0",
			TargetTypes: []domain.TargetType{domain.TargetDomain},
			EntityTypes: []domain.EntityType{
				domain.EntityDomain, domain.EntitySubdomain,
				domain.EntityCertificate, domain.EntityOrganization,
			},
			Network:   true,
			RateLimit: 1,
			Priority:  6,
		},
	)
}

// certRecord es una fila del JSON de crt.sh.
type certRecord struct {
	IssuerName   string `json:"issuer_name"`
	NameValue    string `json:"name_value"`
	NotBefore    string `json:"not_before"`
	NotAfter     string `json:"not_after"`
	SerialNumber string `json:"serial_number"`
}

type hostInfo struct {
	wildcard  bool
	issuers   map[string]bool
	firstSeen string
	lastValid string
	certs     int
}

// Collector consulta crt.sh.
type Collector struct {
	client   *httpclient.Client
	baseURL  string
	maxCerts int
	logger   logx.Logger
}

// New crea el collector. Custom["crtsh_url"] cambia el endpoint y
// Custom["max_certificates"] limita los certificados emitidos.
func New(cfg ports.CollectorConfig, logger logx.Logger) *Collector {
	if logger == nil {
		logger = logx.NewSilent()
	}
	maxCerts := defaultMaxCerts
	if v, err := strconv.Atoi(common.CustomString(cfg, "max_certificates", "")); err == nil && v >= 0 {
		maxCerts = v
	}
	return &Collector{
		client:   common.NewHTTPClient(cfg, logger),
		baseURL:  strings.TrimRight(common.CustomString(cfg, "crtsh_url", defaultCRTShURL), "/"),
		maxCerts: maxCerts,
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
	host := target.Host()
	if !validator.IsDomain(host) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "not a domain: %q", target.Value)
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}

	out := &domain.CollectorOutput{}
	records, err := c.search(ctx, registrable)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("crt.sh query failed", "domain", registrable, "error", err.Error())
		out.AddError("crt.sh: %v", err)
		return out, nil
	}

	c.fromRecords(out, registrable, records)
	c.logger.Info("certificate search completed",
		"domain", registrable,
		"certificates", len(records),
		"records", len(out.Records),
	)
	return out, nil
}

func (c *Collector) search(ctx context.Context, registrable string) ([]certRecord, error) {
	q := url.Values{}
	q.Set("q", "%."+registrable)
	q.Set("output", "json")

	resp, err := c.client.Get(ctx, c.baseURL+"/?"+q.Encode(), map[string]string{"Accept": "application/json"})
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

	var records []certRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, errors.Wrap(err, "decode crt.sh response")
	}
	return records, nil
}

// fromRecords agrega por hostname y por serial. Solo se aceptan nombres
// dentro de registrable.
func (c *Collector) fromRecords(out *domain.CollectorOutput, registrable string, records []certRecord) {
	hosts := make(map[string]*hostInfo)
	seenSerials := make(map[string]bool)
	issuers := make(map[string]bool)
	emittedCerts := 0

	for _, rec := range records {
		issuer := issuerOrg(rec.IssuerName)
		names := scopedNames(rec.NameValue, registrable)
		if len(names) == 0 {
			continue
		}

		for name, wildcard := range names {
			h, ok := hosts[name]
			if !ok {
				h = &hostInfo{issuers: make(map[string]bool)}
				hosts[name] = h
			}
			h.wildcard = h.wildcard || wildcard
			h.certs++
			if issuer != "" {
				h.issuers[issuer] = true
			}
			if rec.NotBefore != "" && (h.firstSeen == "" || rec.NotBefore < h.firstSeen) {
				h.firstSeen = rec.NotBefore
			}
			if rec.NotAfter > h.lastValid {
				h.lastValid = rec.NotAfter
			}
		}

		serial := strings.ToLower(strings.TrimSpace(rec.SerialNumber))
		if serial == "" || seenSerials[serial] || emittedCerts >= c.maxCerts {
			continue
		}
		seenSerials[serial] = true
		emittedCerts++

		cert := domain.NewRawRecord(domain.EntityCertificate, serial, collectorName, domain.ConfidenceHigh)
		cert.Metadata["issuer"] = rec.IssuerName
		cert.Metadata["not_before"] = rec.NotBefore
		cert.Metadata["not_after"] = rec.NotAfter
		sans := sortedKeys(names)
		cert.Metadata["names"] = sans
		out.AddRecord(cert)

		for _, name := range sans {
			t := domain.EntitySubdomain
			if name == registrable {
				t = domain.EntityDomain
			}
			out.Relate(collectorName, t, name, domain.RelUses, domain.EntityCertificate, serial, domain.ConfidenceHigh)
		}
		if issuer != "" {
			issuers[issuer] = true
			out.Relate(collectorName, domain.EntityCertificate, serial, domain.RelIssuedBy, domain.EntityOrganization, issuer, domain.ConfidenceHigh)
		}
	}

	for _, name := range sortedKeys(hosts) {
		if name == registrable {
			continue
		}
		h := hosts[name]
		sub := domain.NewRawRecord(domain.EntitySubdomain, name, collectorName, domain.ConfidenceMedium)
		sub.Metadata["wildcard"] = h.wildcard
		sub.Metadata[metaCTCertificates] = h.certs
		sub.Metadata["issuers"] = sortedKeys(h.issuers)
		if h.firstSeen != "" {
			sub.Metadata["first_seen"] = h.firstSeen
		}
		if h.lastValid != "" {
			sub.Metadata["last_valid"] = h.lastValid
		}
		out.AddRecord(sub)
		out.Relate(collectorName, domain.EntitySubdomain, name, domain.RelBelongsTo, domain.EntityDomain, registrable, domain.ConfidenceMedium)
	}

	for _, name := range sortedKeys(issuers) {
		org := domain.NewRawRecord(domain.EntityOrganization, name, collectorName, domain.ConfidenceHigh)
		org.Metadata["role"] = roleCertAuthority
		out.AddRecord(org)
	}

	if len(out.Records) == 0 {
		return
	}
	root := domain.NewRawRecord(domain.EntityDomain, registrable, collectorName, domain.ConfidenceHigh)
	root.Metadata[metaCTCertificates] = len(records)
	if h, ok := hosts[registrable]; ok && h.firstSeen != "" {
		root.Metadata["first_seen"] = h.firstSeen
	}
	out.Records = append([]domain.RawRecord{root}, out.Records...)
}

// scopedNames separa name_value (una línea por SAN) y retorna los nombres
// dentro del dominio, indicando si venían como wildcard.
func scopedNames(nameValue, registrable string) map[string]bool {
	names := make(map[string]bool)
	for _, line := range strings.Split(nameValue, "\n") {
		name := strings.ToLower(strings.TrimSpace(line))
		wildcard := strings.HasPrefix(name, "*.")
		name = strings.TrimPrefix(name, "*.")
		if name == "" || !validator.IsDomain(name) {
			continue
		}
		if name != registrable && !strings.HasSuffix(name, "."+registrable) {
			continue
		}
		names[name] = names[name] || wildcard
	}
	return names
}

// issuerOrg extrae O= del DN del emisor, o CN= si no hay organización.
func issuerOrg(dn string) string {
	var cn string
	for _, part := range strings.Split(dn, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		v = strings.Trim(strings.TrimSpace(v), `"`)
		switch strings.ToUpper(strings.TrimSpace(k)) {
		case "O":
			return v
		case "CN":
			cn = v
		}
	}
	return cn
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
