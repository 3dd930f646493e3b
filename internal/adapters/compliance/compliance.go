// internal/adapters/compliance/compliance.go
package compliance

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
)

// DefaultMaxTargetLength límite de longitud de un target.
const DefaultMaxTargetLength = 2048

// DefaultBlockedSuffixes dominios gubernamentales y militares.
var DefaultBlockedSuffixes = []string{".gov", ".mil"}

// ErrRejected es la causa de todo rechazo.
var ErrRejected = errors.New("target rejected")

// Options configura el checker.
type Options struct {
	BlockedTargets  []string
	BlockedSuffixes []string
	AllowPrivate    bool
	MaxTargetLength int
}

// Checker aplica reglas estáticas de ética y alcance.
type Checker struct {
	blocked   map[string]bool
	suffixes  []string
	allowPriv bool
	maxLen    int
}

var _ ports.ComplianceChecker = (*Checker)(nil)

// New crea el checker. Sin sufijos configurados usa DefaultBlockedSuffixes.
func New(opts Options) *Checker {
	c := &Checker{
		blocked:   make(map[string]bool, len(opts.BlockedTargets)),
		allowPriv: opts.AllowPrivate,
		maxLen:    opts.MaxTargetLength,
	}
	if c.maxLen <= 0 {
		c.maxLen = DefaultMaxTargetLength
	}
	for _, t := range opts.BlockedTargets {
		if t = normalize(t); t != "" {
			c.blocked[t] = true
		}
	}
	suffixes := opts.BlockedSuffixes
	if suffixes == nil {
		suffixes = DefaultBlockedSuffixes
	}
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		c.suffixes = append(c.suffixes, s)
	}
	return c
}

// Check retorna un error con el motivo si el target no puede recolectarse.
func (c *Checker) Check(ctx context.Context, target domain.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := len(target.Value); n > c.maxLen {
		return reject("target length %d exceeds %d", n, c.maxLen)
	}

	value := normalize(target.Value)
	host := target.Host()
	if c.blocked[value] || (host != "" && c.blocked[host]) {
		return reject("target %q is on the block list", target.Value)
	}

	switch target.Type {
	case domain.TargetIP:
		if addr, err := netip.ParseAddr(strings.TrimSpace(target.Value)); err == nil && !c.allowPriv {
			addr = addr.Unmap()
			if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
				return reject("private or loopback address %s", addr)
			}
		}
	case domain.TargetDomain, domain.TargetURL, domain.TargetEmail:
		for _, s := range c.suffixes {
			if strings.HasSuffix(host, s) || host == strings.TrimPrefix(s, ".") {
				return reject("domain %s is under blocked suffix %s", host, s)
			}
		}
		if !c.allowPriv && (host == "localhost" || strings.HasSuffix(host, ".localhost")) {
			return reject("loopback host %s", host)
		}
	}
	return nil
}

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

func normalize(v string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(v)), ".")
}
