// internal/core/usecases/router.go
package usecases

import (
	"strings"

	"argus/internal/core/domain"
)

// Identificadores de routing sin collector incluido.
const (
	CollectorDarkWeb = "darkweb"
	CollectorMedia   = "media"
)

// defaultRoutes tabla estática tipo de target -> collectors.
var defaultRoutes = map[domain.TargetType][]string{
	domain.TargetDomain:      {"domain", "web", "certs"},
	domain.TargetIP:          {"ip"},
	domain.TargetEmail:       {"email"},
	domain.TargetURL:         {"web"},
	domain.TargetUsername:    {"social"},
	domain.TargetCoordinates: {"geo"},
}

// RouteResult es la salida del router.
type RouteResult struct {
	Target     domain.Target
	Collectors []string
	// Explicit indica que el set vino de collector_types y no de la inferencia
	Explicit bool
}

// CollectorRouter selecciona el set de collectors para un target.
type CollectorRouter struct {
	routes map[domain.TargetType][]string
}

// NewCollectorRouter crea un router con la tabla por defecto.
func NewCollectorRouter() *CollectorRouter {
	routes := make(map[domain.TargetType][]string, len(defaultRoutes))
	for t, c := range defaultRoutes {
		routes[t] = append([]string(nil), c...)
	}
	return &CollectorRouter{routes: routes}
}

// SetRoute reemplaza los collectors de un tipo de target.
func (r *CollectorRouter) SetRoute(t domain.TargetType, collectors []string) {
	r.routes[t] = normalizeCollectorNames(collectors)
}

// Route clasifica el target y resuelve los collectors. Un explicitTypes no
// vacío reemplaza el set inferido; darkweb y media se agregan siempre que
// se pidan. Un target en blanco falla siempre. Nunca retorna un set vacío
// sin error.
func (r *CollectorRouter) Route(target string, explicitTypes []string, includeDarkWeb, includeMedia bool) (RouteResult, error) {
	t := domain.NewTarget(target)
	res := RouteResult{Target: t}

	explicit := normalizeCollectorNames(explicitTypes)
	if t.Validate() != nil {
		return res, &domain.NoCollectorFoundError{
			Target:     t.Value,
			TargetType: t.Type,
			Requested:  explicit,
		}
	}
	if len(explicit) > 0 {
		res.Collectors = explicit
		res.Explicit = true
	} else if t.Type != domain.TargetUnknown {
		res.Collectors = append([]string(nil), r.routes[t.Type]...)
	}

	if includeDarkWeb {
		res.Collectors = appendUnique(res.Collectors, CollectorDarkWeb)
	}
	if includeMedia {
		res.Collectors = appendUnique(res.Collectors, CollectorMedia)
	}

	if len(res.Collectors) == 0 {
		return res, &domain.NoCollectorFoundError{
			Target:     t.Value,
			TargetType: t.Type,
			Requested:  explicit,
		}
	}

	return res, nil
}

// normalizeCollectorNames trim, minúsculas y sin duplicados, preservando orden.
func normalizeCollectorNames(names []string) []string {
	var out []string
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		out = appendUnique(out, n)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
