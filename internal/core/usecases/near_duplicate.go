// internal/core/usecases/near_duplicate.go
package usecases

import (
	"fmt"
	"sort"
	"strings"

	"argus/internal/core/domain"
	"argus/internal/platform/minhash"
)

// exactOnlyTypes son tipos cuyo valor canónico ya es un identificador; el
// solapamiento de tokens entre ellos (1.2.3.4 / 1.2.3.5) no implica identidad.
var exactOnlyTypes = map[domain.EntityType]bool{
	domain.EntityDomain:        true,
	domain.EntitySubdomain:     true,
	domain.EntityNameserver:    true,
	domain.EntityIP:            true,
	domain.EntityEmail:         true,
	domain.EntityURL:           true,
	domain.EntityUsername:      true,
	domain.EntitySocialProfile: true,
	domain.EntityPhone:         true,
	domain.EntityHash:          true,
	domain.EntityCertificate:   true,
	domain.EntityOnionService:  true,
}

// FuzzyEligible indica si el tipo participa del matching aproximado.
func FuzzyEligible(t domain.EntityType) bool {
	return !exactOnlyTypes[t]
}

// Shingles construye el set de tokens de un grupo: tipo, valor completo,
// palabras del valor y pares key=value de la metadata sin claves de
// contabilidad. El resultado está ordenado y sin duplicados.
func Shingles(fp domain.Fingerprint, meta map[string]any) []string {
	tokens := []string{"t:" + string(fp.Type), "v=" + fp.Value}
	for _, w := range minhash.Words(fp.Value) {
		tokens = append(tokens, "w:"+w)
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		if !domain.IsBookkeepingKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		tokens = flattenMeta(tokens, "m:"+strings.ToLower(k), meta[k])
	}

	return domain.SortedSet(tokens)
}

func flattenMeta(tokens []string, prefix string, v any) []string {
	switch t := v.(type) {
	case nil:
		return tokens
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tokens = flattenMeta(tokens, prefix+"."+strings.ToLower(k), t[k])
		}
		return tokens
	case map[string]string:
		for k, s := range t {
			tokens = append(tokens, prefix+"."+strings.ToLower(k)+"="+canonicalText(s))
		}
		return tokens
	case []any:
		for _, item := range t {
			tokens = flattenMeta(tokens, prefix, item)
		}
		return tokens
	case []string:
		for _, item := range t {
			tokens = append(tokens, prefix+"="+canonicalText(item))
		}
		return tokens
	case string:
		return append(tokens, prefix+"="+canonicalText(t))
	default:
		return append(tokens, prefix+"="+fmt.Sprint(t))
	}
}

// NearDuplicateMatcher agrupa grupos de fingerprint casi idénticos con
// MinHash + LSH. Cada llamada a Cluster usa índices nuevos.
type NearDuplicateMatcher struct {
	hasher    *minhash.Hasher
	threshold float64
}

// NewNearDuplicateMatcher crea un matcher con k permutaciones.
func NewNearDuplicateMatcher(k int, threshold float64, seed uint64) (*NearDuplicateMatcher, error) {
	if k <= 0 {
		k = minhash.DefaultPermutations
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("lsh threshold must be in (0,1), got %v", threshold)
	}
	return &NearDuplicateMatcher{
		hasher:    minhash.NewHasher(k, seed),
		threshold: threshold,
	}, nil
}

// Threshold retorna el umbral de Jaccard.
func (m *NearDuplicateMatcher) Threshold() float64 {
	return m.threshold
}

// Cluster recibe grupos ordenados por clave y retorna clusters; el primer
// grupo de cada cluster es su raíz. Solo los singletons frescos (peso 1)
// consultan el índice; todos los grupos se insertan. Un candidato debe
// tener el mismo tipo y Jaccard estimado >= umbral; gana el más similar y
// a igualdad la clave menor.
func (m *NearDuplicateMatcher) Cluster(groups []*RecordGroup) ([][]*RecordGroup, error) {
	lsh, err := minhash.NewLSH(m.hasher.Size(), m.threshold)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*RecordGroup, len(groups))
	root := make(map[string]string, len(groups))

	for _, g := range groups {
		key := g.Key()
		byKey[key] = g
		root[key] = key

		if !FuzzyEligible(g.Fingerprint.Type) {
			continue
		}

		sig := m.hasher.Signature(Shingles(g.Fingerprint, mergedMetaForShingles(g)))

		if g.Weight() == 1 {
			if best, ok := m.bestCandidate(lsh, g, sig, byKey); ok {
				root[key] = root[best]
			}
		}

		if err := lsh.Insert(key, sig); err != nil {
			return nil, err
		}
	}

	members := make(map[string][]*RecordGroup)
	var roots []string
	for _, g := range groups {
		r := root[g.Key()]
		if _, ok := members[r]; !ok {
			roots = append(roots, r)
		}
		members[r] = append(members[r], g)
	}
	sort.Strings(roots)

	clusters := make([][]*RecordGroup, 0, len(roots))
	for _, r := range roots {
		clusters = append(clusters, members[r])
	}
	return clusters, nil
}

func (m *NearDuplicateMatcher) bestCandidate(lsh *minhash.LSH, g *RecordGroup, sig minhash.Signature, byKey map[string]*RecordGroup) (string, bool) {
	best := ""
	bestScore := -1.0

	// Query retorna ids ordenados: a igual score gana la clave menor
	for _, id := range lsh.Query(sig) {
		cand, ok := byKey[id]
		if !ok || cand.Fingerprint.Type != g.Fingerprint.Type {
			continue
		}
		other, ok := lsh.Signature(id)
		if !ok {
			continue
		}
		score := sig.Jaccard(other)
		if score < m.threshold {
			continue
		}
		if score > bestScore {
			best, bestScore = id, score
		}
	}
	return best, best != ""
}

// mergedMetaForShingles une la metadata de los records de un grupo para
// que el orden de los records no afecte la firma.
func mergedMetaForShingles(g *RecordGroup) map[string]any {
	if len(g.Records) == 1 {
		return g.Records[0].Metadata
	}
	meta := make(map[string]any)
	for _, r := range g.Records {
		for k, v := range r.Metadata {
			if existing, ok := meta[k]; ok {
				meta[k] = []any{existing, v}
				continue
			}
			meta[k] = v
		}
	}
	return meta
}
