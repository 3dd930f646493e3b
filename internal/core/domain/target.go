// internal/core/domain/target.go
package domain

import (
	"strings"

	"argus/internal/platform/validator"
)

// Target representa el objetivo de una recolección.
type Target struct {
	// Value es el objetivo tal como lo escribió el usuario (trimmed)
	Value string `json:"value"`

	// Type es la clasificación inferida del valor
	Type TargetType `json:"type"`

	// Metadata adicional (ej: origen de la petición, schedule)
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewTarget crea un target clasificando su valor.
func NewTarget(value string) Target {
	value = strings.TrimSpace(value)
	return Target{
		Value:    value,
		Type:     ClassifyTarget(value),
		Metadata: make(map[string]string),
	}
}

// Validate verifica que el target no esté vacío.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Value) == "" {
		return ErrEmptyTarget
	}
	return nil
}

// Host retorna el host del target cuando aplica (dominio o URL), en minúsculas
// y sin "www.", puerto ni path.
func (t Target) Host() string {
	v := strings.ToLower(strings.TrimSpace(t.Value))
	if i := strings.Index(v, "://"); i >= 0 {
		v = v[i+3:]
	}
	if i := strings.IndexAny(v, "/?#"); i >= 0 {
		v = v[:i]
	}
	if i := strings.LastIndex(v, "@"); i >= 0 {
		v = v[i+1:]
	}
	if h, _, ok := strings.Cut(v, ":"); ok && !validator.IsIPv6(v) {
		v = h
	}
	v = strings.TrimSuffix(v, ".")
	return strings.TrimPrefix(v, "www.")
}

// ClassifyTarget infiere el tipo de target en orden fijo:
// coordinates, email, ip, url, domain, username. Un valor vacío
// retorna TargetUnknown.
func ClassifyTarget(value string) TargetType {
	v := strings.TrimSpace(value)
	if v == "" {
		return TargetUnknown
	}

	switch {
	case validator.IsCoordinates(v):
		return TargetCoordinates
	case validator.IsEmail(v):
		return TargetEmail
	case validator.IsIP(v):
		return TargetIP
	case validator.IsURL(v):
		return TargetURL
	case looksLikeDomain(v):
		return TargetDomain
	default:
		return TargetUsername
	}
}

func looksLikeDomain(v string) bool {
	if !strings.Contains(v, ".") || strings.Contains(v, "@") {
		return false
	}
	candidate := strings.ToLower(v)
	if i := strings.IndexAny(candidate, "/?#"); i >= 0 {
		candidate = candidate[:i]
	}
	return validator.IsDomain(strings.TrimSuffix(candidate, "."))
}
