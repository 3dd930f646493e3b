// internal/core/usecases/canonicalizer.go
package usecases

import (
	"net/mail"
	"net/netip"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"argus/internal/core/domain"
)

// Canonicalize lleva un valor a su forma canónica según el tipo de entidad.
// Es pura y total: formas inesperadas retornan el original sin espacios.
// Aplicarla sobre un valor canónico lo retorna sin cambios.
func Canonicalize(t domain.EntityType, value string, meta map[string]any) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return v
	}

	switch domain.ParseEntityType(string(t)) {
	case domain.EntityEmail:
		return canonicalEmail(v)
	case domain.EntityDomain, domain.EntitySubdomain, domain.EntityNameserver:
		return canonicalHost(v)
	case domain.EntityIP:
		return canonicalIP(v)
	case domain.EntityURL:
		return canonicalURL(v)
	case domain.EntitySocialProfile:
		return canonicalSocial(v, meta)
	default:
		return canonicalText(v)
	}
}

// CanonicalRecord retorna una copia del record con tipo y valor canónicos.
func CanonicalRecord(r domain.RawRecord) domain.RawRecord {
	out := r
	out.Type = domain.ParseEntityType(string(r.Type))
	out.Value = Canonicalize(out.Type, r.Value, r.Metadata)
	out.Source = strings.TrimSpace(r.Source)
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func canonicalEmail(v string) string {
	addr, err := mail.ParseAddress(v)
	if err != nil {
		return v
	}
	return strings.ToLower(addr.Address)
}

func canonicalHost(v string) string {
	h := strings.ToLower(v)
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndex(h, "@"); i >= 0 {
		h = h[i+1:]
	}
	if strings.Count(h, ":") == 1 {
		h, _, _ = strings.Cut(h, ":")
	}
	h = strings.TrimRight(h, ".")
	for strings.HasPrefix(h, "www.") {
		h = h[len("www."):]
	}
	if h == "" {
		return v
	}
	return h
}

func canonicalIP(v string) string {
	s := strings.TrimSuffix(strings.TrimPrefix(v, "["), "]")
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap().String()
	}
	if ap, err := netip.ParseAddrPort(v); err == nil {
		return ap.Addr().Unmap().String()
	}
	return v
}

func canonicalURL(v string) string {
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return v
	}
	path := u.EscapedPath()
	return strings.ToLower(u.Scheme + "://" + u.Host + path)
}

// canonicalSocial produce "platform:handle".
func canonicalSocial(v string, meta map[string]any) string {
	if platform, handle, ok := strings.Cut(v, ":"); ok && isPlatformName(platform) && !strings.HasPrefix(handle, "//") {
		return strings.ToLower(platform) + ":" + canonicalHandle(handle)
	}

	if p, ok := meta["platform"].(string); ok && isPlatformName(strings.TrimSpace(p)) {
		return strings.ToLower(strings.TrimSpace(p)) + ":" + canonicalHandle(v)
	}

	return canonicalText(v)
}

func isPlatformName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

func canonicalHandle(h string) string {
	return canonicalText(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

// canonicalText trim, NFKC y case folding Unicode.
func canonicalText(v string) string {
	// cases.Caser no es seguro entre goroutines
	folded := cases.Fold().String(norm.NFKC.String(v))
	return strings.TrimSpace(norm.NFKC.String(folded))
}
