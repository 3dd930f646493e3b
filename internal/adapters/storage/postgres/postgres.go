// internal/adapters/storage/postgres/postgres.go
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"argus/internal/adapters/storage"
	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS argus_entities (
    id BIGSERIAL PRIMARY KEY,
    public_id TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    value TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    quality_score INTEGER NOT NULL,
    metadata JSONB NOT NULL,
    enrichment JSONB NOT NULL,
    warnings JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (type, value)
);

CREATE TABLE IF NOT EXISTS argus_relationships (
    id BIGSERIAL PRIMARY KEY,
    public_id TEXT NOT NULL UNIQUE,
    source_id TEXT NOT NULL REFERENCES argus_entities(public_id),
    target_id TEXT NOT NULL REFERENCES argus_entities(public_id),
    type TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    metadata JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (source_id, target_id, type)
);

CREATE INDEX IF NOT EXISTS argus_relationships_source_idx ON argus_relationships(source_id);
CREATE INDEX IF NOT EXISTS argus_relationships_target_idx ON argus_relationships(target_id);
`

// Store implementa ports.EntityStore sobre PostgreSQL con un pool pgx.
type Store struct {
	pool   *pgxpool.Pool
	logger logx.Logger
}

var _ ports.EntityStore = (*Store)(nil)

// Open conecta al DSN, verifica la conexión y aplica el schema.
func Open(ctx context.Context, dsn string, logger logx.Logger) (*Store, error) {
	if logger == nil {
		logger = logx.NewSilent()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "postgres dsn: %v", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConnectionFailed, err.Error())
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(errors.ErrConnectionFailed, err.Error())
	}

	s := &Store{pool: pool, logger: logger.With("component", "postgres_store")}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate crea las tablas si no existen.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "migrate postgres")
	}
	return nil
}

// Close libera el pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// CreateEntity inserta o actualiza una entidad por (type, value).
func (s *Store) CreateEntity(ctx context.Context, entity domain.NormalizedEntity) (string, error) {
	row, err := storage.EncodeEntity(entity)
	if err != nil {
		return "", err
	}
	id, err := storage.NewID(storage.EntityPrefix)
	if err != nil {
		return "", err
	}

	var publicID string
	err = s.pool.QueryRow(ctx, `
INSERT INTO argus_entities (public_id, type, value, confidence, quality_score, metadata, enrichment, warnings)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (type, value) DO UPDATE SET
    confidence = EXCLUDED.confidence,
    quality_score = EXCLUDED.quality_score,
    metadata = EXCLUDED.metadata,
    enrichment = EXCLUDED.enrichment,
    warnings = EXCLUDED.warnings,
    updated_at = now()
RETURNING public_id`,
		id, row.Type, row.Value, row.Confidence, row.QualityScore,
		row.Metadata, row.Enrichment, row.Warnings,
	).Scan(&publicID)
	if err != nil {
		return "", errors.Wrapf(err, "upsert entity %s", entity.Fingerprint().Key())
	}
	return publicID, nil
}

// CreateRelationship inserta o actualiza la arista (source, target, type).
func (s *Store) CreateRelationship(ctx context.Context, rel domain.NormalizedRelationship, sourceID, targetID string) (string, error) {
	meta, err := storage.EncodeMetadata(rel.Metadata)
	if err != nil {
		return "", errors.Wrap(err, "encode relationship metadata")
	}
	id, err := storage.NewID(storage.RelationshipPrefix)
	if err != nil {
		return "", err
	}

	var publicID string
	err = s.pool.QueryRow(ctx, `
INSERT INTO argus_relationships (public_id, source_id, target_id, type, confidence, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (source_id, target_id, type) DO UPDATE SET
    confidence = GREATEST(argus_relationships.confidence, EXCLUDED.confidence),
    metadata = EXCLUDED.metadata,
    updated_at = now()
RETURNING public_id`,
		id, sourceID, targetID, rel.RelationshipType, rel.Confidence, meta,
	).Scan(&publicID)
	if err != nil {
		return "", errors.Wrapf(err, "upsert relationship %s", rel.Key())
	}
	return publicID, nil
}

// GetEntity busca una entidad por ID público.
func (s *Store) GetEntity(ctx context.Context, id string) (domain.NormalizedEntity, error) {
	var row storage.EntityRow
	err := s.pool.QueryRow(ctx, `
SELECT type, value, confidence, quality_score, metadata, enrichment, warnings
FROM argus_entities WHERE public_id = $1`, id,
	).Scan(&row.Type, &row.Value, &row.Confidence, &row.QualityScore, &row.Metadata, &row.Enrichment, &row.Warnings)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NormalizedEntity{}, errors.Wrapf(errors.ErrNotFound, "entity %s", id)
	}
	if err != nil {
		return domain.NormalizedEntity{}, errors.Wrapf(err, "get entity %s", id)
	}
	return storage.DecodeEntity(row)
}
