// internal/platform/validator/validator.go
package validator

import (
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	domainRegex   = regexp.MustCompile(`^([a-zA-Z0-9_]([a-zA-Z0-9\-_]{0,61}[a-zA-Z0-9])?\.)+([a-zA-Z]{2,63}|xn--[a-zA-Z0-9\-]{1,59})$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	coordRegex    = regexp.MustCompile(`^(-?\d{1,3}(?:\.\d+)?)\s*[,\s]\s*(-?\d{1,3}(?:\.\d+)?)$`)
	usernameRegex = regexp.MustCompile(`^@?[a-zA-Z0-9_.\-]{1,64}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]{5,24}$`)
	onionRegex    = regexp.MustCompile(`^([a-z2-7]{16}|[a-z2-7]{56})\.onion$`)
	hexRegex      = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	serialRegex   = regexp.MustCompile(`^[0-9a-fA-F: ]+$`)
)

// Domain validators

// IsDomain verifica si un string es un dominio válido con al menos un punto
// y un TLD alfabético (o punycode).
func IsDomain(domain string) bool {
	domain = strings.TrimSuffix(domain, ".")
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	if IsIP(domain) {
		return false
	}
	return domainRegex.MatchString(domain)
}

// IsSubdomain verifica si subdomain es un subdominio válido de baseDomain.
func IsSubdomain(subdomain, baseDomain string) bool {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	baseDomain = strings.ToLower(strings.TrimSpace(baseDomain))

	if subdomain == baseDomain {
		return false
	}

	return strings.HasSuffix(subdomain, "."+baseDomain)
}

// IsOnion verifica direcciones de servicios ocultos v2 y v3.
func IsOnion(host string) bool {
	return onionRegex.MatchString(strings.ToLower(strings.TrimSpace(host)))
}

// Email validators

// IsEmail valida formato de email. La dirección debe parsear con net/mail
// como dirección simple y cumplir la forma usuario@dominio.tld.
func IsEmail(email string) bool {
	if len(email) == 0 || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	return emailRegex.MatchString(email)
}

// Network validators

// IsIP verifica si un string es una dirección IP válida (v4 o v6).
func IsIP(ip string) bool {
	_, err := netip.ParseAddr(ip)
	return err == nil
}

// IsIPv4 verifica si un string es una dirección IPv4 válida.
func IsIPv4(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	return err == nil && addr.Is4()
}

// IsIPv6 verifica si un string es una dirección IPv6 válida.
func IsIPv6(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	return err == nil && addr.Is6() && !addr.Is4In6()
}

// IsPrivateIP reporta si la IP es privada, loopback, link-local o no especificada.
func IsPrivateIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}

// URL validators

// IsURL verifica si un string es una URL absoluta http(s) u otra con host.
func IsURL(urlStr string) bool {
	if len(urlStr) == 0 || !strings.Contains(urlStr, "://") {
		return false
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	return parsed.Scheme != "" && parsed.Host != ""
}

// Location validators

// ParseCoordinates extrae latitud y longitud de "lat,lon" o "lat lon".
func ParseCoordinates(s string) (lat, lon float64, ok bool) {
	m := coordRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// IsCoordinates reporta si s es un par lat/lon válido.
func IsCoordinates(s string) bool {
	_, _, ok := ParseCoordinates(s)
	return ok
}

// Identity validators

// IsUsername acepta handles de 1-64 caracteres sin espacios, con "@" opcional.
func IsUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// IsPhone acepta números con 7-15 dígitos y separadores comunes.
func IsPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phoneRegex.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

// Certificate validators

// IsCertSerial valida que un serial de certificado sea un string hexadecimal válido.
// Permite colons y espacios como separadores (formato común en certificados).
func IsCertSerial(serial string) bool {
	if len(serial) == 0 {
		return false
	}
	return serialRegex.MatchString(serial)
}

// Hash validators

// IsHash verifica si un string es un hash válido (MD5, SHA1, SHA256, SHA512).
func IsHash(hash string) bool {
	hash = strings.TrimSpace(hash)
	switch len(hash) {
	case 32, 40, 64, 128:
		return hexRegex.MatchString(hash)
	default:
		return false
	}
}

// Generic validators

// IsEmpty verifica si un string está vacío o solo contiene espacios.
func IsEmpty(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}
