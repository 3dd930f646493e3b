// internal/core/usecases/normalization_engine.go
package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"argus/internal/core/domain"
	"argus/internal/platform/logx"
	"argus/internal/platform/minhash"
)

// NormalizationConfig configura una pasada de normalización.
type NormalizationConfig struct {
	Fuzzy        bool
	Threshold    float64
	Permutations int
	Seed         uint64
	// Now es el reloj del enricher (nil = time.Now)
	Now func() time.Time
}

// DefaultNormalizationConfig retorna fuzzy activo con umbral 0.5 y k=128.
func DefaultNormalizationConfig() NormalizationConfig {
	return NormalizationConfig{
		Fuzzy:        true,
		Threshold:    0.5,
		Permutations: minhash.DefaultPermutations,
	}
}

// NormalizationResult es la salida de Normalize.
type NormalizationResult struct {
	Entities      []domain.NormalizedEntity
	Relationships []domain.NormalizedRelationship
	Invalid       []domain.InvalidRecord
	Warnings      []string
}

// resolveFunc resuelve grupos de fingerprint y relaciones en entidades.
type resolveFunc func(groups []*RecordGroup, rels []domain.RawRelationship) ([]domain.NormalizedEntity, []domain.NormalizedRelationship, error)

// NormalizationEngine compone canonicalizer, validador, índice de
// fingerprints, matcher LSH, merge y enricher. Los índices viven solo
// durante una llamada a Normalize.
type NormalizationEngine struct {
	cfg       NormalizationConfig
	logger    logx.Logger
	validator *RecordValidator
	merger    *MergeEngine
	enricher  *Enricher
	matcher   *NearDuplicateMatcher
	resolve   resolveFunc
}

// NewNormalizationEngine crea el motor. Con Fuzzy desactivado solo se
// aplica el match exacto.
func NewNormalizationEngine(cfg NormalizationConfig, logger logx.Logger) (*NormalizationEngine, error) {
	e := &NormalizationEngine{
		cfg:       cfg,
		logger:    logger.With("component", "normalizer"),
		validator: NewRecordValidator(),
		merger:    NewMergeEngine(),
		enricher:  NewEnricher(cfg.Now),
	}

	if cfg.Fuzzy {
		m, err := NewNearDuplicateMatcher(cfg.Permutations, cfg.Threshold, cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("near-duplicate matcher: %w", err)
		}
		e.matcher = m
	}
	e.resolve = e.resolveGraph

	return e, nil
}

// Normalize resuelve records y relaciones crudas en el espacio canónico.
// Un fallo o panic de la resolución degrada a pass-through con un warning;
// solo la cancelación del contexto se retorna como error.
func (e *NormalizationEngine) Normalize(ctx context.Context, records []domain.RawRecord, rels []domain.RawRelationship) (NormalizationResult, error) {
	var res NormalizationResult
	if err := ctx.Err(); err != nil {
		return res, err
	}

	index := NewFingerprintIndex()
	var valid []domain.RawRecord

	for _, raw := range records {
		rec := CanonicalRecord(raw)
		vr := e.validator.Validate(rec)
		if !vr.Valid() {
			res.Invalid = append(res.Invalid, domain.InvalidRecord{Record: raw, Reasons: vr.Errors})
			continue
		}
		index.Add(rec)
		valid = append(valid, rec)
	}
	sortInvalid(res.Invalid)

	groups := index.Groups()

	entities, relationships, err := e.safeResolve(groups, rels)
	if err != nil {
		e.logger.Warn("aggregation degraded", "error", err.Error(), "records", len(valid))
		res.Warnings = append(res.Warnings, "aggregation degraded: "+err.Error())
		entities, relationships = e.passThrough(valid, rels)
	}

	if err := ctx.Err(); err != nil {
		return NormalizationResult{}, err
	}

	sortEntities(entities)
	res.Entities = entities
	res.Relationships = relationships

	e.logger.Debug("normalization done",
		"records", len(records),
		"fingerprints", index.Len(),
		"entities", len(res.Entities),
		"relationships", len(res.Relationships),
		"invalid", len(res.Invalid),
	)

	return res, nil
}

// safeResolve convierte panics de la resolución en *domain.AggregationError.
func (e *NormalizationEngine) safeResolve(groups []*RecordGroup, rels []domain.RawRelationship) (ents []domain.NormalizedEntity, out []domain.NormalizedRelationship, err error) {
	defer func() {
		if r := recover(); r != nil {
			ents, out = nil, nil
			err = &domain.AggregationError{Stage: "resolve", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ents, out, err = e.resolve(groups, rels)
	if err != nil {
		var agg *domain.AggregationError
		if !errors.As(err, &agg) {
			err = &domain.AggregationError{Stage: "resolve", Err: err}
		}
		return nil, nil, err
	}
	return ents, out, nil
}

func (e *NormalizationEngine) resolveGraph(groups []*RecordGroup, rels []domain.RawRelationship) ([]domain.NormalizedEntity, []domain.NormalizedRelationship, error) {
	clusters := make([][]*RecordGroup, 0, len(groups))
	if e.matcher != nil {
		c, err := e.matcher.Cluster(groups)
		if err != nil {
			return nil, nil, &domain.AggregationError{Stage: "lsh", Err: err}
		}
		clusters = c
	} else {
		for _, g := range groups {
			clusters = append(clusters, []*RecordGroup{g})
		}
	}

	alias := make(map[string]domain.Fingerprint, len(groups))
	entities := make([]domain.NormalizedEntity, 0, len(clusters))

	for _, cluster := range clusters {
		root := cluster[0].Fingerprint

		var recs []domain.RawRecord
		for _, g := range cluster {
			alias[g.Key()] = root
			recs = append(recs, g.Records...)
		}

		// score y warnings de la entidad fusionada, no de sus records
		ent := e.merger.Merge(root, recs)
		vr := e.validator.Validate(ent.ToRawRecord())
		ent.QualityScore = vr.Score
		ent.ValidationWarnings = domain.SortedSet(vr.Warnings)
		ent.Enrichment = e.enricher.Enrich(ent)
		entities = append(entities, ent)

		if len(cluster) > 1 {
			e.logger.Debug("near-duplicates merged", "root", root.Key(), "groups", len(cluster))
		}
	}

	return entities, e.resolveRelationships(rels, alias), nil
}

// resolveRelationships canonicaliza extremos, los redirige a la entidad que
// absorbió su fingerprint y descarta auto-referencias.
func (e *NormalizationEngine) resolveRelationships(rels []domain.RawRelationship, alias map[string]domain.Fingerprint) []domain.NormalizedRelationship {
	resolved := make([]domain.RawRelationship, 0, len(rels))

	for _, r := range rels {
		relType := strings.ToLower(strings.TrimSpace(r.RelationshipType))
		if relType == "" {
			continue
		}

		src := endpointFingerprint(r.SourceType, r.SourceValue, r.Metadata, alias)
		dst := endpointFingerprint(r.TargetType, r.TargetValue, r.Metadata, alias)
		if src.Value == "" || dst.Value == "" {
			continue
		}
		if src == dst {
			e.logger.Debug("self-loop dropped", "entity", src.Key(), "relationship", relType)
			continue
		}

		out := r
		out.SourceType, out.SourceValue = src.Type, src.Value
		out.TargetType, out.TargetValue = dst.Type, dst.Value
		out.RelationshipType = relType
		out.Source = strings.TrimSpace(r.Source)
		resolved = append(resolved, out)
	}

	return e.merger.MergeRelationships(resolved)
}

func endpointFingerprint(t domain.EntityType, value string, meta map[string]any, alias map[string]domain.Fingerprint) domain.Fingerprint {
	pt := domain.ParseEntityType(string(t))
	fp := domain.Fingerprint{Type: pt, Value: Canonicalize(pt, value, meta)}
	if a, ok := alias[fp.Key()]; ok {
		return a
	}
	return fp
}

// passThrough convierte cada record válido en su propia entidad.
func (e *NormalizationEngine) passThrough(valid []domain.RawRecord, rels []domain.RawRelationship) ([]domain.NormalizedEntity, []domain.NormalizedRelationship) {
	sorted := SortRecords(valid)
	entities := make([]domain.NormalizedEntity, 0, len(sorted))
	for _, r := range sorted {
		fp := domain.Fingerprint{Type: r.Type, Value: r.Value}
		ent := e.merger.Merge(fp, []domain.RawRecord{r})
		vr := e.validator.Validate(r)
		ent.QualityScore = vr.Score
		ent.ValidationWarnings = domain.SortedSet(vr.Warnings)
		entities = append(entities, ent)
	}
	return entities, e.resolveRelationships(rels, nil)
}

func sortEntities(ents []domain.NormalizedEntity) {
	sort.SliceStable(ents, func(i, j int) bool {
		if ents[i].Type != ents[j].Type {
			return ents[i].Type < ents[j].Type
		}
		return ents[i].Value < ents[j].Value
	})
}

func sortInvalid(inv []domain.InvalidRecord) {
	sort.SliceStable(inv, func(i, j int) bool {
		a, b := inv[i].Record, inv[j].Record
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Value != b.Value {
			return a.Value < b.Value
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return metadataHash(a.Metadata) < metadataHash(b.Metadata)
	})
}
