// internal/adapters/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"argus/internal/adapters/storage"
	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
    public_id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    value TEXT NOT NULL,
    confidence REAL NOT NULL,
    quality_score INTEGER NOT NULL,
    metadata TEXT NOT NULL,
    enrichment TEXT NOT NULL,
    warnings TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (type, value)
);

CREATE TABLE IF NOT EXISTS relationships (
    public_id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    type TEXT NOT NULL,
    confidence REAL NOT NULL,
    metadata TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (source_id, target_id, type),
    FOREIGN KEY (source_id) REFERENCES entities(public_id),
    FOREIGN KEY (target_id) REFERENCES entities(public_id)
);

CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id);
`

// Store implementa ports.EntityStore sobre SQLite (modernc, sin cgo).
// Las entidades se identifican por (type, value): volver a crear una
// existente actualiza sus columnas y conserva el ID.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger logx.Logger
}

var _ ports.EntityStore = (*Store)(nil)

// Open abre (o crea) la base en dsn y aplica el schema.
// ":memory:" sirve para tests.
func Open(ctx context.Context, dsn string, logger logx.Logger) (*Store, error) {
	if logger == nil {
		logger = logx.NewSilent()
	}
	if dsn == "" {
		dsn = "argus.db"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// una sola conexión: SQLite serializa escrituras y ":memory:" es por conexión
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "apply %q", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate sqlite")
	}

	logger.Debug("sqlite store ready", "dsn", dsn)
	return &Store{db: db, now: time.Now, logger: logger.With("component", "sqlite_store")}, nil
}

// Close cierra la base.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateEntity inserta o actualiza una entidad y retorna su ID público.
func (s *Store) CreateEntity(ctx context.Context, entity domain.NormalizedEntity) (string, error) {
	row, err := storage.EncodeEntity(entity)
	if err != nil {
		return "", err
	}
	id, err := storage.NewID(storage.EntityPrefix)
	if err != nil {
		return "", err
	}
	now := s.now().UnixMilli()

	var publicID string
	err = s.db.QueryRowContext(ctx, `
INSERT INTO entities (public_id, type, value, confidence, quality_score, metadata, enrichment, warnings, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (type, value) DO UPDATE SET
    confidence = excluded.confidence,
    quality_score = excluded.quality_score,
    metadata = excluded.metadata,
    enrichment = excluded.enrichment,
    warnings = excluded.warnings,
    updated_at = excluded.updated_at
RETURNING public_id`,
		id, row.Type, row.Value, row.Confidence, row.QualityScore,
		string(row.Metadata), string(row.Enrichment), string(row.Warnings), now, now,
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
	now := s.now().UnixMilli()

	var publicID string
	err = s.db.QueryRowContext(ctx, `
INSERT INTO relationships (public_id, source_id, target_id, type, confidence, metadata, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source_id, target_id, type) DO UPDATE SET
    confidence = MAX(relationships.confidence, excluded.confidence),
    metadata = excluded.metadata,
    updated_at = excluded.updated_at
RETURNING public_id`,
		id, sourceID, targetID, rel.RelationshipType, rel.Confidence, string(meta), now, now,
	).Scan(&publicID)
	if err != nil {
		return "", errors.Wrapf(err, "upsert relationship %s", rel.Key())
	}
	return publicID, nil
}

// GetEntity busca una entidad por ID público.
func (s *Store) GetEntity(ctx context.Context, id string) (domain.NormalizedEntity, error) {
	var row storage.EntityRow
	var meta, enr, warn string
	err := s.db.QueryRowContext(ctx, `
SELECT type, value, confidence, quality_score, metadata, enrichment, warnings
FROM entities WHERE public_id = ?`, id,
	).Scan(&row.Type, &row.Value, &row.Confidence, &row.QualityScore, &meta, &enr, &warn)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NormalizedEntity{}, errors.Wrapf(errors.ErrNotFound, "entity %s", id)
	}
	if err != nil {
		return domain.NormalizedEntity{}, errors.Wrapf(err, "get entity %s", id)
	}
	row.Metadata, row.Enrichment, row.Warnings = []byte(meta), []byte(enr), []byte(warn)
	return storage.DecodeEntity(row)
}

// FindEntity busca el ID público de (type, value).
func (s *Store) FindEntity(ctx context.Context, t domain.EntityType, value string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT public_id FROM entities WHERE type = ? AND value = ?`, string(t), value).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(errors.ErrNotFound, "entity %s:%s", t, value)
	}
	if err != nil {
		return "", errors.Wrap(err, "find entity")
	}
	return id, nil
}

// Counts retorna el total de entidades y relaciones.
func (s *Store) Counts(ctx context.Context) (entities, relationships int, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT (SELECT COUNT(*) FROM entities), (SELECT COUNT(*) FROM relationships)`).
		Scan(&entities, &relationships)
	if err != nil {
		return 0, 0, errors.Wrap(err, "count rows")
	}
	return entities, relationships, nil
}
