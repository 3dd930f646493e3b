// internal/core/domain/entity.go
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EntityType clasifica las entidades resueltas. Los tipos son
// case-insensitive en la entrada; valores desconocidos se preservan en minúsculas.
type EntityType string

const (
	EntityDomain        EntityType = "domain"
	EntitySubdomain     EntityType = "subdomain"
	EntityIP            EntityType = "ip"
	EntityEmail         EntityType = "email"
	EntityURL           EntityType = "url"
	EntityUsername      EntityType = "username"
	EntitySocialProfile EntityType = "social_profile"
	EntityPhone         EntityType = "phone"
	EntityPerson        EntityType = "person"
	EntityOrganization  EntityType = "organization"
	EntityLocation      EntityType = "location"
	EntityMedia         EntityType = "media"
	EntityHash          EntityType = "hash"
	EntityCertificate   EntityType = "certificate"
	EntityNameserver    EntityType = "nameserver"
	EntityTechnology    EntityType = "technology"
	EntityOnionService  EntityType = "onion_service"
)

var knownEntityTypes = map[EntityType]struct{}{
	EntityDomain: {}, EntitySubdomain: {}, EntityIP: {}, EntityEmail: {}, EntityURL: {},
	EntityUsername: {}, EntitySocialProfile: {}, EntityPhone: {}, EntityPerson: {},
	EntityOrganization: {}, EntityLocation: {}, EntityMedia: {}, EntityHash: {},
	EntityCertificate: {}, EntityNameserver: {}, EntityTechnology: {}, EntityOnionService: {},
}

// ParseEntityType normaliza un tipo de entidad de entrada.
func ParseEntityType(s string) EntityType {
	return EntityType(strings.ToLower(strings.TrimSpace(s)))
}

// IsKnown indica si el tipo pertenece al vocabulario conocido.
func (t EntityType) IsKnown() bool {
	_, ok := knownEntityTypes[t]
	return ok
}

// String retorna la representación string del tipo.
func (t EntityType) String() string {
	return string(t)
}

// Tipos de relación emitidos por los collectors incluidos.
const (
	RelResolvesTo    = "resolves_to"
	RelHasNameserver = "has_nameserver"
	RelHasMX         = "has_mx"
	RelHasContact    = "has_contact"
	RelLinksTo       = "links_to"
	RelMentions      = "mentions"
	RelEmailDomain   = "email_domain"
	RelSameAs        = "same_as"
	RelBelongsTo     = "belongs_to"
	RelLocatedAt     = "located_at"
	RelUses          = "uses"
	RelIssuedBy      = "issued_by"
)

// Claves de metadata que mantiene el motor de normalización.
const (
	MetaSources         = "sources"
	MetaCollectionCount = "collection_count"
	MetaFirstCollected  = "first_collected"
	MetaLastCollected   = "last_collected"
)

// IsBookkeepingKey indica si la clave es mantenida por el motor y no
// participa en la similitud de contenido.
func IsBookkeepingKey(k string) bool {
	switch k {
	case MetaSources, MetaCollectionCount, MetaFirstCollected, MetaLastCollected:
		return true
	default:
		return false
	}
}

// RawRecord es un hecho sin procesar emitido por un collector.
type RawRecord struct {
	Value       string         `json:"value"`
	Type        EntityType     `json:"type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Source      string         `json:"source"`
	Confidence  float64        `json:"confidence,omitempty"` // 0 = no especificada
	CollectedAt time.Time      `json:"collected_at"`
}

// NewRawRecord crea un record con metadata vacía.
func NewRawRecord(t EntityType, value, source string, confidence float64) RawRecord {
	return RawRecord{
		Value:       value,
		Type:        t,
		Metadata:    make(map[string]any),
		Source:      source,
		Confidence:  confidence,
		CollectedAt: time.Now().UTC(),
	}
}

// RawRelationship es una relación sin procesar emitida por un collector.
type RawRelationship struct {
	SourceValue      string         `json:"source_value"`
	SourceType       EntityType     `json:"source_type"`
	TargetValue      string         `json:"target_value"`
	TargetType       EntityType     `json:"target_type"`
	RelationshipType string         `json:"relationship_type"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Confidence       float64        `json:"confidence,omitempty"`
	Source           string         `json:"source"`
}

// CollectorOutput es el resultado de una ejecución de collector. Errors
// contiene fallos blandos; un error duro se retorna aparte.
type CollectorOutput struct {
	Records       []RawRecord       `json:"records"`
	Relationships []RawRelationship `json:"relationships,omitempty"`
	Errors        []string          `json:"errors,omitempty"`
}

// AddRecord agrega un record.
func (o *CollectorOutput) AddRecord(r RawRecord) {
	o.Records = append(o.Records, r)
}

// Relate agrega una relación entre dos valores.
func (o *CollectorOutput) Relate(source string, srcType EntityType, srcValue string, relType string, dstType EntityType, dstValue string, confidence float64) {
	o.Relationships = append(o.Relationships, RawRelationship{
		SourceValue:      srcValue,
		SourceType:       srcType,
		TargetValue:      dstValue,
		TargetType:       dstType,
		RelationshipType: relType,
		Metadata:         make(map[string]any),
		Confidence:       confidence,
		Source:           source,
	})
}

// AddError registra un fallo blando.
func (o *CollectorOutput) AddError(format string, args ...any) {
	o.Errors = append(o.Errors, fmt.Sprintf(format, args...))
}

// Fingerprint es la identidad exacta de una entidad: (type, canonical_value).
type Fingerprint struct {
	Type  EntityType
	Value string
}

// Key retorna la forma "type:value", usada como clave de orden y de índice.
func (f Fingerprint) Key() string {
	return string(f.Type) + ":" + f.Value
}

// NormalizedEntity es una entidad resuelta y deduplicada.
type NormalizedEntity struct {
	Value              string         `json:"value"`
	Type               EntityType     `json:"type"`
	Metadata           map[string]any `json:"metadata"`
	Confidence         float64        `json:"confidence"`
	QualityScore       int            `json:"quality_score"`
	ValidationWarnings []string       `json:"validation_warnings,omitempty"`
	Enrichment         map[string]any `json:"enrichment,omitempty"`
}

// Fingerprint retorna la identidad de la entidad.
func (e NormalizedEntity) Fingerprint() Fingerprint {
	return Fingerprint{Type: e.Type, Value: e.Value}
}

// Sources retorna las fuentes registradas en metadata.
func (e NormalizedEntity) Sources() []string {
	return StringList(e.Metadata[MetaSources])
}

// CollectionCount retorna cuántas observaciones se fusionaron (mínimo 1).
func (e NormalizedEntity) CollectionCount() int {
	if n := IntValue(e.Metadata[MetaCollectionCount]); n > 0 {
		return n
	}
	return 1
}

// ToRawRecord convierte la entidad de vuelta a un record, preservando
// metadata de contabilidad. Permite re-normalizar resultados.
func (e NormalizedEntity) ToRawRecord() RawRecord {
	meta := make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		meta[k] = v
	}
	source := ""
	if srcs := e.Sources(); len(srcs) > 0 {
		source = srcs[0]
	}
	var at time.Time
	if s, ok := e.Metadata[MetaLastCollected].(string); ok {
		at, _ = time.Parse(time.RFC3339Nano, s)
	}
	return RawRecord{
		Value:       e.Value,
		Type:        e.Type,
		Metadata:    meta,
		Source:      source,
		Confidence:  e.Confidence,
		CollectedAt: at,
	}
}

// NormalizedRelationship es una relación resuelta contra el espacio canónico.
type NormalizedRelationship struct {
	SourceValue      string         `json:"source_value"`
	SourceType       EntityType     `json:"source_type"`
	TargetValue      string         `json:"target_value"`
	TargetType       EntityType     `json:"target_type"`
	RelationshipType string         `json:"relationship_type"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Confidence       float64        `json:"confidence"`
}

// Key identifica la relación por sus cinco componentes.
func (r NormalizedRelationship) Key() string {
	return strings.Join([]string{
		string(r.SourceType), r.SourceValue,
		r.RelationshipType,
		string(r.TargetType), r.TargetValue,
	}, "|")
}

// SourceFingerprint retorna la identidad del extremo origen.
func (r NormalizedRelationship) SourceFingerprint() Fingerprint {
	return Fingerprint{Type: r.SourceType, Value: r.SourceValue}
}

// TargetFingerprint retorna la identidad del extremo destino.
func (r NormalizedRelationship) TargetFingerprint() Fingerprint {
	return Fingerprint{Type: r.TargetType, Value: r.TargetValue}
}

// InvalidRecord es un record descartado por errores duros de validación.
type InvalidRecord struct {
	Record  RawRecord `json:"record"`
	Reasons []string  `json:"reasons"`
}

// CollectionResults son los resultados consolidados de una tarea.
type CollectionResults struct {
	TaskID        string                   `json:"task_id"`
	Target        string                   `json:"target"`
	Status        TaskStatus               `json:"status"`
	Entities      []NormalizedEntity       `json:"entities"`
	Relationships []NormalizedRelationship `json:"relationships"`
	Sources       []string                 `json:"sources"`
	Errors        []string                 `json:"errors,omitempty"`
	Invalid       []InvalidRecord          `json:"invalid,omitempty"`
	Warnings      []string                 `json:"warnings,omitempty"`
}

// EntitiesByType cuenta entidades por tipo.
func (r CollectionResults) EntitiesByType() map[EntityType]int {
	out := make(map[EntityType]int)
	for _, e := range r.Entities {
		out[e.Type]++
	}
	return out
}

// StringList interpreta v como lista de strings. Acepta []string, []any y
// string simple; el resultado está ordenado y sin duplicados.
func StringList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t != "" {
			raw = []string{t}
		}
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				raw = append(raw, s)
			}
		}
	}
	return SortedSet(raw)
}

// SortedSet retorna los valores no vacíos, ordenados y sin duplicados.
func SortedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// IntValue interpreta v como entero. Acepta los tipos numéricos que
// produce encoding/json y los enteros nativos.
func IntValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	case uint:
		return int(n)
	case uint64:
		return int(n)
	default:
		return 0
	}
}
