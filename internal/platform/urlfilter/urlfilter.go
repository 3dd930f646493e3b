// internal/platform/urlfilter/urlfilter.go
package urlfilter

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
)

// Pesos por categoría. Positivos para páginas con valor de inteligencia,
// negativos para ruido.
const (
	WeightSensitiveFile = 1000
	WeightRepository    = 800
	WeightBackupFile    = 600
	WeightAdminPath     = 400
	WeightAuthPath      = 350
	WeightContactPage   = 300
	WeightAPIEndpoint   = 300
	WeightDocument      = 200
	WeightPeoplePage    = 250
	WeightHasParameters = 50

	WeightStaticAsset    = -200
	WeightAssetDir       = -100
	WeightPaginationOnly = -50
	WeightLongPath       = -150
)

var (
	numericSegment = regexp.MustCompile(`^\d+$`)
	uuidSegment    = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
	hashSegment    = regexp.MustCompile(`^[a-f0-9]{32,64}$`)
	dateSegment    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true, "utm_term": true, "utm_content": true,
	"gclid": true, "gclsrc": true, "fbclid": true, "_ga": true, "_gid": true,
	"mc_cid": true, "mc_eid": true, "ref": true, "referrer": true,
	"sessionid": true, "session_id": true, "sid": true, "phpsessid": true, "jsessionid": true,
}

var paginationParams = map[string]bool{
	"page": true, "p": true, "offset": true, "limit": true, "per_page": true, "start": true,
}

var staticExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
	".css": true, ".js": true, ".map": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp4": true, ".webm": true, ".mp3": true,
}

var documentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".csv": true, ".odt": true,
}

type rule struct {
	reason string
	weight int
	match  func(p string) bool
}

func contains(patterns ...string) func(string) bool {
	return func(p string) bool {
		for _, pat := range patterns {
			if strings.Contains(p, pat) {
				return true
			}
		}
		return false
	}
}

func suffix(patterns ...string) func(string) bool {
	return func(p string) bool {
		for _, pat := range patterns {
			if strings.HasSuffix(p, pat) {
				return true
			}
		}
		return false
	}
}

var rules = []rule{
	{"sensitive_file", WeightSensitiveFile, contains(".env", "config.php", "config.json", "config.yml", "credentials", ".htpasswd", "id_rsa", "secrets.", "web.config")},
	{"repository", WeightRepository, contains("/.git/", "/.svn/", "/.hg/", ".git/config")},
	{"backup_file", WeightBackupFile, suffix(".bak", ".old", ".backup", ".orig", ".sql", ".sql.gz", ".dump", "~")},
	{"admin_path", WeightAdminPath, contains("/admin", "/dashboard", "/panel", "/console", "/wp-admin", "/manager")},
	{"auth_path", WeightAuthPath, contains("/login", "/signin", "/auth/", "/oauth", "/sso", "/register")},
	{"contact_page", WeightContactPage, contains("/contact", "/impressum", "/imprint", "/legal", "/privacy")},
	{"people_page", WeightPeoplePage, contains("/about", "/team", "/staff", "/people", "/leadership", "/careers", "/jobs")},
	{"api_endpoint", WeightAPIEndpoint, contains("/api/", "/graphql", "/rest/", "/swagger", "/openapi")},
	{"asset_dir", WeightAssetDir, contains("/assets/", "/static/", "/images/", "/img/", "/fonts/", "/dist/")},
}

// Scored es una URL normalizada con su puntuación.
type Scored struct {
	URL       string   `json:"url"`
	Signature string   `json:"signature"`
	Score     int      `json:"score"`
	Reasons   []string `json:"reasons,omitempty"`
}

// Normalize retorna la forma canónica de rawURL: esquema y host en
// minúsculas, sin puerto por defecto ni fragmento, sin parámetros de
// tracking y con la query ordenada.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	normalize(u)
	return u.String(), nil
}

func normalize(u *url.URL) {
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	q := u.Query()
	for k := range q {
		if trackingParams[strings.ToLower(k)] {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode() // Encode ordena por clave
}

// Signature reemplaza segmentos dinámicos ({id}, {uuid}, {hash}, {date})
// y descarta los valores de la query. URLs con igual firma son
// variantes de la misma plantilla.
func Signature(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, s := range segments {
		ls := strings.ToLower(s)
		switch {
		case numericSegment.MatchString(s):
			segments[i] = "{id}"
		case uuidSegment.MatchString(ls):
			segments[i] = "{uuid}"
		case hashSegment.MatchString(ls):
			segments[i] = "{hash}"
		case dateSegment.MatchString(s):
			segments[i] = "{date}"
		}
	}
	sig := u.Host + "/" + strings.Join(segments, "/")

	if keys := queryKeys(u); len(keys) > 0 {
		sig += "?" + strings.Join(keys, "&")
	}
	return sig
}

func queryKeys(u *url.URL) []string {
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Score puntúa una URL ya normalizada.
func Score(u *url.URL) Scored {
	p := strings.ToLower(u.Path)
	s := Scored{URL: u.String(), Signature: Signature(u)}

	for _, r := range rules {
		if r.match(p) {
			s.Score += r.weight
			s.Reasons = append(s.Reasons, r.reason)
		}
	}

	ext := strings.ToLower(path.Ext(p))
	switch {
	case staticExts[ext]:
		s.Score += WeightStaticAsset
		s.Reasons = append(s.Reasons, "static_asset")
	case documentExts[ext]:
		s.Score += WeightDocument
		s.Reasons = append(s.Reasons, "document")
	}

	if keys := queryKeys(u); len(keys) > 0 {
		onlyPaging := true
		for _, k := range keys {
			if !paginationParams[strings.ToLower(k)] {
				onlyPaging = false
				break
			}
		}
		if onlyPaging {
			s.Score += WeightPaginationOnly
			s.Reasons = append(s.Reasons, "pagination")
		} else {
			s.Score += WeightHasParameters
			s.Reasons = append(s.Reasons, "parameters")
		}
	}

	if len(p) > 200 {
		s.Score += WeightLongPath
		s.Reasons = append(s.Reasons, "long_path")
	}
	return s
}

// Options configura Filter.
type Options struct {
	// MaxPerSignature variantes retenidas por plantilla. Default: 3
	MaxPerSignature int
	// MinScore descarta URLs por debajo del umbral. Default: sin umbral
	MinScore *int
	// Limit máximo de URLs retornadas (0 = sin límite)
	Limit int
}

// Filter normaliza, deduplica, limita variantes por plantilla y ordena por
// score descendente. Las URLs no parseables se ignoran. El orden de
// entrada desempata.
func Filter(urls []string, opts Options) []Scored {
	if opts.MaxPerSignature <= 0 {
		opts.MaxPerSignature = 3
	}

	seen := make(map[string]bool, len(urls))
	perSig := make(map[string]int)
	out := make([]Scored, 0, len(urls))

	for _, raw := range urls {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			continue
		}
		normalize(u)
		key := u.String()
		if seen[key] {
			continue
		}
		seen[key] = true

		s := Score(u)
		if opts.MinScore != nil && s.Score < *opts.MinScore {
			continue
		}
		if perSig[s.Signature] >= opts.MaxPerSignature {
			continue
		}
		perSig[s.Signature]++
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
