// internal/core/usecases/enrichment_service.go
package usecases

import (
	"net/netip"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/publicsuffix"

	"argus/internal/core/domain"
)

var roleAccounts = map[string]bool{
	"admin": true, "administrator": true, "info": true, "support": true,
	"contact": true, "sales": true, "help": true, "hello": true,
	"noreply": true, "no-reply": true, "webmaster": true, "postmaster": true,
	"hostmaster": true, "abuse": true, "security": true, "billing": true,
	"office": true, "marketing": true, "jobs": true, "press": true,
}

var freeMailDomains = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "yahoo.com": true,
	"hotmail.com": true, "outlook.com": true, "live.com": true,
	"aol.com": true, "icloud.com": true, "me.com": true,
	"proton.me": true, "protonmail.com": true, "gmx.com": true,
	"gmx.de": true, "mail.ru": true, "yandex.ru": true,
	"zoho.com": true, "tutanota.com": true,
}

// Enricher calcula campos derivados de solo lectura. Nunca toca Metadata,
// así el enriquecimiento no afecta la identidad.
type Enricher struct {
	now func() time.Time
}

// NewEnricher crea un enricher con el reloj dado (nil = time.Now).
func NewEnricher(now func() time.Time) *Enricher {
	if now == nil {
		now = time.Now
	}
	return &Enricher{now: now}
}

// Enrich retorna los campos derivados de la entidad.
func (e *Enricher) Enrich(ent domain.NormalizedEntity) map[string]any {
	out := make(map[string]any)

	switch ent.Type {
	case domain.EntityDomain, domain.EntitySubdomain:
		enrichDomain(out, ent.Value)
	case domain.EntityEmail:
		enrichEmail(out, ent.Value)
	case domain.EntitySocialProfile:
		e.enrichSocial(out, ent.Metadata)
	case domain.EntityIP:
		enrichIP(out, ent.Value)
	}

	if s, ok := ent.Metadata[domain.MetaLastCollected].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			out["freshness"] = Freshness(e.now().Sub(ts))
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func enrichDomain(out map[string]any, host string) {
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return
	}
	suffix, _ := publicsuffix.PublicSuffix(host)

	subtype := "subdomain"
	switch host {
	case registrable:
		subtype = "root"
	case "www." + registrable:
		subtype = "www"
	}

	out["subtype"] = subtype
	out["registrable_domain"] = registrable
	out["public_suffix"] = suffix
}

func enrichEmail(out map[string]any, addr string) {
	local, host, ok := strings.Cut(addr, "@")
	if !ok {
		return
	}
	out["local_part_pattern"] = LocalPartPattern(local)
	out["is_role_account"] = roleAccounts[strings.ToLower(local)]
	out["email_domain"] = host
	out["is_free_mail"] = freeMailDomains[host]
}

// LocalPartPattern clasifica la parte local de un email.
func LocalPartPattern(local string) string {
	isAlpha := func(s string) bool {
		if s == "" {
			return false
		}
		for _, r := range s {
			if !unicode.IsLetter(r) {
				return false
			}
		}
		return true
	}

	if first, last, ok := strings.Cut(local, "."); ok && isAlpha(first) && isAlpha(last) {
		return "first.last"
	}
	if first, last, ok := strings.Cut(local, "_"); ok && isAlpha(first) && isAlpha(last) {
		return "first_last"
	}
	if isAlpha(local) {
		return "alpha"
	}

	digits, letters := 0, 0
	for _, r := range local {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		default:
			return "other"
		}
	}
	switch {
	case digits > 0 && letters == 0:
		return "numeric"
	case digits > 0 && letters > 0:
		return "alphanumeric"
	default:
		return "other"
	}
}

func (e *Enricher) enrichSocial(out map[string]any, meta map[string]any) {
	if v, ok := meta["followers"]; ok {
		out["influence_tier"] = InfluenceTier(domain.IntValue(v))
	}
	if s, ok := meta["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			out["account_age"] = AccountAge(e.now().Sub(ts))
		}
	}
}

// InfluenceTier agrupa la cantidad de seguidores.
func InfluenceTier(followers int) string {
	switch {
	case followers < 1_000:
		return "nano"
	case followers < 10_000:
		return "micro"
	case followers < 100_000:
		return "mid"
	case followers < 1_000_000:
		return "macro"
	default:
		return "mega"
	}
}

// AccountAge categoriza la antigüedad de una cuenta.
func AccountAge(age time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case age < 30*day:
		return "new"
	case age < 365*day:
		return "recent"
	case age < 5*365*day:
		return "established"
	default:
		return "veteran"
	}
}

func enrichIP(out map[string]any, value string) {
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return
	}
	if addr.Is4() {
		out["ip_version"] = 4
	} else {
		out["ip_version"] = 6
	}

	switch {
	case addr.IsLoopback():
		out["scope"] = "loopback"
	case addr.IsPrivate() || addr.IsLinkLocalUnicast():
		out["scope"] = "private"
	default:
		out["scope"] = "public"
	}
}

// Freshness categoriza la edad de la última observación.
func Freshness(age time.Duration) string {
	switch {
	case age < time.Hour:
		return "fresh"
	case age < 24*time.Hour:
		return "recent"
	case age < 7*24*time.Hour:
		return "aging"
	case age < 30*24*time.Hour:
		return "stale"
	default:
		return "very_stale"
	}
}
