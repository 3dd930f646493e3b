// Package geo implements the "geo" collector. It makes no network calls:
// coordinates are parsed and bucketed into geohash cells.
package geo

import (
	"context"
	"strconv"

	"argus/internal/collectors/common"
	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
	"argus/internal/platform/registry"
	"argus/internal/platform/validator"
)

const (
	collectorName    = "geo"
	defaultPrecision = 7
	regionPrecision  = 4
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
			Description: "Coordinate parsing and geohash bucketing",
			Version:     "1.0.0",
			TargetTypes: []domain.TargetType{domain.TargetCoordinates},
			EntityTypes: []domain.EntityType{domain.EntityLocation},
			Network:     false,
			Priority:    3,
		},
	)
}

// Collector convierte coordenadas en entidades location.
type Collector struct {
	precision int
	logger    logx.Logger
}

// New crea el collector. Custom["precision"] fija los caracteres del geohash (1-12).
func New(cfg ports.CollectorConfig, logger logx.Logger) *Collector {
	if logger == nil {
		logger = logx.NewSilent()
	}
	precision := defaultPrecision
	if p, err := strconv.Atoi(common.CustomString(cfg, "precision", "")); err == nil && p >= 1 && p <= 12 {
		precision = p
	} else if p, ok := cfg.Custom["precision"].(int); ok && p >= 1 && p <= 12 {
		precision = p
	}
	return &Collector{precision: precision, logger: logger.With("collector", collectorName)}
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
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lat, lon, ok := validator.ParseCoordinates(target.Value)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "not a coordinate pair: %q", target.Value)
	}

	point := FormatPoint(lat, lon)
	cell := Encode(lat, lon, c.precision)

	rec := domain.NewRawRecord(domain.EntityLocation, point, collectorName, domain.ConfidenceVerified)
	rec.Metadata["lat"] = lat
	rec.Metadata["lon"] = lon
	rec.Metadata["geohash"] = cell
	rec.Metadata["hemisphere"] = hemisphere(lat, lon)
	if box, err := Decode(cell); err == nil {
		rec.Metadata["cell_bounds"] = map[string]any{
			"min_lat": box.MinLat, "max_lat": box.MaxLat,
			"min_lon": box.MinLon, "max_lon": box.MaxLon,
		}
	}

	out := &domain.CollectorOutput{}
	out.AddRecord(rec)

	// celda gruesa para agrupar puntos cercanos
	region := "geohash:" + cell[:min(regionPrecision, len(cell))]
	regionRec := domain.NewRawRecord(domain.EntityLocation, region, collectorName, domain.ConfidenceHigh)
	regionRec.Metadata["kind"] = "grid_cell"
	out.AddRecord(regionRec)
	out.Relate(collectorName, domain.EntityLocation, point, domain.RelLocatedAt, domain.EntityLocation, region, domain.ConfidenceHigh)

	c.logger.Debug("coordinates parsed", "point", point, "geohash", cell)
	return out, nil
}

// FormatPoint renders a point as "lat,lon" with six decimals (~0.1 m).
func FormatPoint(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lon, 'f', 6, 64)
}

func hemisphere(lat, lon float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
	}
	if lon < 0 {
		ew = "W"
	}
	return ns + ew
}
