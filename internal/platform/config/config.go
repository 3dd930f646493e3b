// internal/platform/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
)

// EnvPrefix prefijo de todas las variables de entorno.
const EnvPrefix = "ARGUS_"

type Config struct {
	LogLevel string `yaml:"log_level" json:"log_level"`

	Collection    Collection    `yaml:"collection" json:"collection"`
	Normalization Normalization `yaml:"normalization" json:"normalization"`
	Resilience    Resilience    `yaml:"resilience" json:"resilience"`

	// Collectors: mapa dinámico de configuraciones por collector
	// Key = collector name (ej: "domain", "web", "social")
	Collectors map[string]ports.CollectorConfig `yaml:"collectors" json:"collectors"`

	Compliance Compliance `yaml:"compliance" json:"compliance"`
	Storage    Storage    `yaml:"storage" json:"storage"`
	Broadcast  Broadcast  `yaml:"broadcast" json:"broadcast"`
	Archive    Archive    `yaml:"archive" json:"archive"`
	Output     Output     `yaml:"output" json:"output"`
	Server     Server     `yaml:"server" json:"server"`
	Schedules  []Schedule `yaml:"schedules" json:"schedules"`
}

type Collection struct {
	MaxParallel      int           `yaml:"max_parallel" json:"max_parallel"`
	CollectorTimeout time.Duration `yaml:"collector_timeout" json:"collector_timeout"`
	TaskTimeout      time.Duration `yaml:"task_timeout" json:"task_timeout"`
	ResultTTL        time.Duration `yaml:"result_ttl" json:"result_ttl"` // Retención de tareas terminadas
	Sweep            time.Duration `yaml:"sweep" json:"sweep"`           // Frecuencia de limpieza del registry
	Shards           int           `yaml:"shards" json:"shards"`
}

type Normalization struct {
	Fuzzy        bool    `yaml:"fuzzy" json:"fuzzy"`
	Threshold    float64 `yaml:"threshold" json:"threshold"`
	Permutations int     `yaml:"permutations" json:"permutations"`
	Seed         uint64  `yaml:"seed" json:"seed"`
}

type Resilience struct {
	// Retry configuration
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	BackoffBase       time.Duration `yaml:"backoff_base" json:"backoff_base"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	BackoffMax        time.Duration `yaml:"backoff_max" json:"backoff_max"`

	// Circuit Breaker configuration
	CircuitBreakerEnabled     bool          `yaml:"circuit_breaker" json:"circuit_breaker"`
	CircuitBreakerThreshold   int           `yaml:"circuit_breaker_threshold" json:"circuit_breaker_threshold"`
	CircuitBreakerTimeout     time.Duration `yaml:"circuit_breaker_timeout" json:"circuit_breaker_timeout"`
	CircuitBreakerHalfOpenMax int           `yaml:"circuit_breaker_half_open_max" json:"circuit_breaker_half_open_max"`
}

type Compliance struct {
	Enabled         bool     `yaml:"enabled" json:"enabled"`
	BlockedTargets  []string `yaml:"blocked_targets" json:"blocked_targets"`
	BlockedSuffixes []string `yaml:"blocked_suffixes" json:"blocked_suffixes"`
	AllowPrivate    bool     `yaml:"allow_private" json:"allow_private"`
	MaxTargetLength int      `yaml:"max_target_length" json:"max_target_length"`
}

type Storage struct {
	Driver string `yaml:"driver" json:"driver"` // sqlite | postgres | none
	DSN    string `yaml:"dsn" json:"-"`
}

type Broadcast struct {
	Driver   string `yaml:"driver" json:"driver"` // log | amqp | none
	URL      string `yaml:"url" json:"-"`
	Exchange string `yaml:"exchange" json:"exchange"`
}

type Archive struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"-"`
	SecretKey string `yaml:"secret_key" json:"-"`
}

type Output struct {
	Dir           string `yaml:"dir" json:"dir"`
	TableDisabled bool   `yaml:"table_disabled" json:"table_disabled"`
	// JSON output is ALWAYS generated
}

type Server struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Schedule colección recurrente disparada por cron.
type Schedule struct {
	Name    string                   `yaml:"name" json:"name"`
	Spec    string                   `yaml:"spec" json:"spec"`
	Request domain.CollectionRequest `yaml:"request" json:"request"`
}

// DefaultConfig retorna una configuración por defecto.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",

		Collection: Collection{
			MaxParallel:      8,
			CollectorTimeout: 30 * time.Second,
			TaskTimeout:      5 * time.Minute,
			ResultTTL:        time.Hour,
			Sweep:            time.Minute,
			Shards:           16,
		},

		Normalization: Normalization{
			Fuzzy:        true,
			Threshold:    0.5,
			Permutations: 128,
		},

		Resilience: Resilience{
			MaxRetries:                3,
			BackoffBase:               1 * time.Second,
			BackoffMultiplier:         2.0,
			BackoffMax:                60 * time.Second,
			CircuitBreakerEnabled:     true,
			CircuitBreakerThreshold:   5,
			CircuitBreakerTimeout:     60 * time.Second,
			CircuitBreakerHalfOpenMax: 3,
		},

		Collectors: map[string]ports.CollectorConfig{
			"domain":  collectorDefaults(8),
			"web":     collectorDefaults(6),
			"email":   collectorDefaults(7),
			"ip":      collectorDefaults(7),
			"social":  collectorDefaults(5),
			"geo":     collectorDefaults(9),
			"certs":   collectorDefaults(6),
			"archive": collectorDefaults(4),
		},

		Compliance: Compliance{
			Enabled:         true,
			BlockedSuffixes: []string{".gov", ".mil"},
			MaxTargetLength: 2048,
		},

		Storage:   Storage{Driver: "sqlite", DSN: "argus.db"},
		Broadcast: Broadcast{Driver: "log", Exchange: "argus.progress"},
		Archive:   Archive{Prefix: "argus/", Region: "us-east-1"},
		Output:    Output{Dir: "argus_out"},
		Server:    Server{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
	}
}

func collectorDefaults(priority int) ports.CollectorConfig {
	c := ports.DefaultCollectorConfig()
	c.Priority = priority
	c.Custom = make(map[string]any)
	return c
}

// RegisterFlags registra los flags de configuración en fs.
// Solo los flags cambiados explícitamente sobrescriben file/env.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.StringP("config", "c", "", "YAML config file")
	fs.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")

	fs.IntP("max-parallel", "w", d.Collection.MaxParallel, "Max collectors running at once")
	fs.Duration("collector-timeout", d.Collection.CollectorTimeout, "Per-collector timeout")
	fs.DurationP("timeout", "T", d.Collection.TaskTimeout, "Overall task timeout")
	fs.Duration("result-ttl", d.Collection.ResultTTL, "How long finished tasks stay queryable")

	fs.Bool("fuzzy", d.Normalization.Fuzzy, "Enable MinHash/LSH near-duplicate merging")
	fs.Float64("lsh-threshold", d.Normalization.Threshold, "Jaccard threshold for near-duplicates")

	fs.IntP("retries", "r", d.Resilience.MaxRetries, "Max attempts per collector")
	fs.Bool("circuit-breaker", d.Resilience.CircuitBreakerEnabled, "Enable circuit breaker for failing collectors")

	fs.StringP("out", "o", d.Output.Dir, "Output directory")
	fs.BoolP("quiet", "q", d.Output.TableDisabled, "Disable table output (JSON only)")

	fs.String("storage", d.Storage.Driver, "Entity store driver (sqlite, postgres, none)")
	fs.String("storage-dsn", d.Storage.DSN, "Entity store DSN")
	fs.String("broadcast", d.Broadcast.Driver, "Progress broadcaster (log, amqp, none)")
	fs.String("amqp-url", "", "AMQP URL for progress broadcasting")

	fs.String("addr", d.Server.Addr, "HTTP API listen address")

	fs.StringSlice("disable", nil, "Collectors to disable (comma-separated)")
}

// Load construye la configuración por capas: defaults -> YAML -> .env -> ENV -> flags.
// fs puede ser nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig()

	path := getenv(EnvPrefix+"CONFIG", "")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			path = f.Value.String()
		}
	}
	if path != "" {
		if err := loadFromFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	// .env no pisa variables ya exportadas
	_ = godotenv.Load()

	loadFromEnv(&cfg)

	if fs != nil {
		if err := applyFlags(&cfg, fs); err != nil {
			return cfg, err
		}
	}

	cfg.Validate()
	return cfg, nil
}

// loadFromFile superpone un YAML sobre cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	// Collectors declarados parcialmente en YAML heredan los defaults
	defaults := DefaultConfig().Collectors
	for name, c := range cfg.Collectors {
		if c.Timeout == 0 {
			c.Timeout = ports.DefaultCollectorConfig().Timeout
		}
		if c.Priority == 0 {
			if d, ok := defaults[name]; ok {
				c.Priority = d.Priority
			}
		}
		if c.Custom == nil {
			c.Custom = make(map[string]any)
		}
		cfg.Collectors[name] = c
	}

	return nil
}

// loadFromEnv carga configuración desde variables de entorno.
func loadFromEnv(cfg *Config) {
	if v := getenv(EnvPrefix+"LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}

	// Collection
	if v := getenv(EnvPrefix+"MAX_PARALLEL", ""); v != "" {
		cfg.Collection.MaxParallel = parseInt(v, cfg.Collection.MaxParallel)
	}
	if v := getenv(EnvPrefix+"COLLECTOR_TIMEOUT", ""); v != "" {
		cfg.Collection.CollectorTimeout = parseDuration(v, cfg.Collection.CollectorTimeout)
	}
	if v := getenv(EnvPrefix+"TASK_TIMEOUT", ""); v != "" {
		cfg.Collection.TaskTimeout = parseDuration(v, cfg.Collection.TaskTimeout)
	}
	if v := getenv(EnvPrefix+"RESULT_TTL", ""); v != "" {
		cfg.Collection.ResultTTL = parseDuration(v, cfg.Collection.ResultTTL)
	}

	// Normalization
	if v := getenv(EnvPrefix+"FUZZY", ""); v != "" {
		cfg.Normalization.Fuzzy = parseBool(v)
	}
	if v := getenv(EnvPrefix+"LSH_THRESHOLD", ""); v != "" {
		cfg.Normalization.Threshold = parseFloat(v, cfg.Normalization.Threshold)
	}

	// Collectors config desde ENV
	// Formato: ARGUS_COLLECTORS_DOMAIN_ENABLED=true
	//          ARGUS_COLLECTORS_WEB_PRIORITY=10
	//          ARGUS_COLLECTORS_SOCIAL_TIMEOUT=60
	for name := range cfg.Collectors {
		prefix := fmt.Sprintf("%sCOLLECTORS_%s_", EnvPrefix, strings.ToUpper(name))

		cc := cfg.Collectors[name]

		if v := getenv(prefix+"ENABLED", ""); v != "" {
			cc.Enabled = parseBool(v)
		}
		if v := getenv(prefix+"PRIORITY", ""); v != "" {
			cc.Priority = parseInt(v, cc.Priority)
		}
		if v := getenv(prefix+"TIMEOUT", ""); v != "" {
			cc.Timeout = parseDuration(v, cc.Timeout)
		}
		if v := getenv(prefix+"RETRIES", ""); v != "" {
			cc.Retries = parseInt(v, cc.Retries)
		}
		if v := getenv(prefix+"RATELIMIT", ""); v != "" {
			cc.RateLimit = parseInt(v, cc.RateLimit)
		}

		cfg.Collectors[name] = cc
	}

	// Resilience
	if v := getenv(EnvPrefix+"RESILIENCE_MAX_RETRIES", ""); v != "" {
		cfg.Resilience.MaxRetries = parseInt(v, cfg.Resilience.MaxRetries)
	}
	if v := getenv(EnvPrefix+"RESILIENCE_BACKOFF_BASE", ""); v != "" {
		cfg.Resilience.BackoffBase = parseDuration(v, cfg.Resilience.BackoffBase)
	}
	if v := getenv(EnvPrefix+"RESILIENCE_CB_ENABLED", ""); v != "" {
		cfg.Resilience.CircuitBreakerEnabled = parseBool(v)
	}
	if v := getenv(EnvPrefix+"RESILIENCE_CB_THRESHOLD", ""); v != "" {
		cfg.Resilience.CircuitBreakerThreshold = parseInt(v, cfg.Resilience.CircuitBreakerThreshold)
	}

	// Compliance
	if v := getenv(EnvPrefix+"COMPLIANCE_ENABLED", ""); v != "" {
		cfg.Compliance.Enabled = parseBool(v)
	}
	if v := getenv(EnvPrefix+"COMPLIANCE_BLOCKED", ""); v != "" {
		cfg.Compliance.BlockedTargets = splitList(v)
	}
	if v := getenv(EnvPrefix+"COMPLIANCE_ALLOW_PRIVATE", ""); v != "" {
		cfg.Compliance.AllowPrivate = parseBool(v)
	}

	// Storage / broadcast
	if v := getenv(EnvPrefix+"STORAGE_DRIVER", ""); v != "" {
		cfg.Storage.Driver = v
	}
	if v := getenv(EnvPrefix+"STORAGE_DSN", ""); v != "" {
		cfg.Storage.DSN = v
	}
	if v := getenv(EnvPrefix+"BROADCAST_DRIVER", ""); v != "" {
		cfg.Broadcast.Driver = v
	}
	if v := getenv(EnvPrefix+"AMQP_URL", ""); v != "" {
		cfg.Broadcast.URL = v
	}
	if v := getenv(EnvPrefix+"AMQP_EXCHANGE", ""); v != "" {
		cfg.Broadcast.Exchange = v
	}

	// Archive (S3)
	if v := getenv(EnvPrefix+"ARCHIVE_BUCKET", ""); v != "" {
		cfg.Archive.Bucket = v
		cfg.Archive.Enabled = true
	}
	if v := getenv(EnvPrefix+"ARCHIVE_ENABLED", ""); v != "" {
		cfg.Archive.Enabled = parseBool(v)
	}
	if v := getenv(EnvPrefix+"ARCHIVE_PREFIX", ""); v != "" {
		cfg.Archive.Prefix = v
	}
	if v := getenv(EnvPrefix+"ARCHIVE_REGION", ""); v != "" {
		cfg.Archive.Region = v
	}
	if v := getenv(EnvPrefix+"ARCHIVE_ENDPOINT", ""); v != "" {
		cfg.Archive.Endpoint = v
	}
	if v := getenv(EnvPrefix+"ARCHIVE_ACCESS_KEY", ""); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := getenv(EnvPrefix+"ARCHIVE_SECRET_KEY", ""); v != "" {
		cfg.Archive.SecretKey = v
	}

	// Output / server
	if v := getenv(EnvPrefix+"OUTPUT_DIR", ""); v != "" {
		cfg.Output.Dir = v
	}
	if v := getenv(EnvPrefix+"OUTPUT_TABLE_DISABLED", ""); v != "" {
		cfg.Output.TableDisabled = parseBool(v)
	}
	if v := getenv(EnvPrefix+"SERVER_ADDR", ""); v != "" {
		cfg.Server.Addr = v
	}
}

// applyFlags aplica solo los flags que el usuario cambió.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = f.Value.String()
		case "max-parallel":
			v, err := fs.GetInt(f.Name)
			keep(err)
			cfg.Collection.MaxParallel = v
		case "collector-timeout":
			v, err := fs.GetDuration(f.Name)
			keep(err)
			cfg.Collection.CollectorTimeout = v
		case "timeout":
			v, err := fs.GetDuration(f.Name)
			keep(err)
			cfg.Collection.TaskTimeout = v
		case "result-ttl":
			v, err := fs.GetDuration(f.Name)
			keep(err)
			cfg.Collection.ResultTTL = v
		case "fuzzy":
			v, err := fs.GetBool(f.Name)
			keep(err)
			cfg.Normalization.Fuzzy = v
		case "lsh-threshold":
			v, err := fs.GetFloat64(f.Name)
			keep(err)
			cfg.Normalization.Threshold = v
		case "retries":
			v, err := fs.GetInt(f.Name)
			keep(err)
			cfg.Resilience.MaxRetries = v
		case "circuit-breaker":
			v, err := fs.GetBool(f.Name)
			keep(err)
			cfg.Resilience.CircuitBreakerEnabled = v
		case "out":
			cfg.Output.Dir = f.Value.String()
		case "quiet":
			v, err := fs.GetBool(f.Name)
			keep(err)
			cfg.Output.TableDisabled = v
		case "storage":
			cfg.Storage.Driver = f.Value.String()
		case "storage-dsn":
			cfg.Storage.DSN = f.Value.String()
		case "broadcast":
			cfg.Broadcast.Driver = f.Value.String()
		case "amqp-url":
			cfg.Broadcast.URL = f.Value.String()
		case "addr":
			cfg.Server.Addr = f.Value.String()
		case "disable":
			names, err := fs.GetStringSlice(f.Name)
			keep(err)
			for _, name := range names {
				name = strings.ToLower(strings.TrimSpace(name))
				if cc, ok := cfg.Collectors[name]; ok {
					cc.Enabled = false
					cfg.Collectors[name] = cc
				}
			}
		}
	})

	return firstErr
}

// Validate normaliza valores fuera de rango.
func (c *Config) Validate() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Collection.MaxParallel < 1 {
		c.Collection.MaxParallel = 1
	}
	if c.Collection.CollectorTimeout <= 0 {
		c.Collection.CollectorTimeout = 30 * time.Second
	}
	if c.Collection.TaskTimeout < 0 {
		c.Collection.TaskTimeout = 0
	}
	if c.Collection.ResultTTL <= 0 {
		c.Collection.ResultTTL = time.Hour
	}
	if c.Collection.Sweep <= 0 {
		c.Collection.Sweep = time.Minute
	}
	if c.Collection.Shards < 1 {
		c.Collection.Shards = 16
	}

	if c.Normalization.Threshold <= 0 || c.Normalization.Threshold >= 1 {
		c.Normalization.Threshold = 0.5
	}
	if c.Normalization.Permutations < 16 {
		c.Normalization.Permutations = 128
	}

	if c.Resilience.MaxRetries < 1 {
		c.Resilience.MaxRetries = 1
	}
	if c.Resilience.BackoffBase < 0 {
		c.Resilience.BackoffBase = 1 * time.Second
	}
	if c.Resilience.BackoffMultiplier < 1.0 {
		c.Resilience.BackoffMultiplier = 2.0
	}
	if c.Resilience.BackoffMax < c.Resilience.BackoffBase {
		c.Resilience.BackoffMax = 60 * time.Second
	}

	if c.Compliance.MaxTargetLength <= 0 {
		c.Compliance.MaxTargetLength = 2048
	}

	if c.Collectors == nil {
		c.Collectors = make(map[string]ports.CollectorConfig)
	}
	for name, cc := range c.Collectors {
		if cc.Timeout <= 0 {
			cc.Timeout = c.Collection.CollectorTimeout
		}
		if cc.Retries < 0 {
			cc.Retries = 0
		}
		if cc.RateLimit < 0 {
			cc.RateLimit = 0
		}
		c.Collectors[name] = cc
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Broadcast.Driver = strings.ToLower(strings.TrimSpace(c.Broadcast.Driver))

	if c.Output.Dir == "" {
		c.Output.Dir = "argus_out"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
}

// CollectorConfig retorna la config de un collector (o defaults si no existe).
func (c Config) CollectorConfig(name string) ports.CollectorConfig {
	if cc, ok := c.Collectors[name]; ok {
		return cc
	}
	cc := ports.DefaultCollectorConfig()
	cc.Timeout = c.Collection.CollectorTimeout
	return cc
}

// ToJSON serializa la configuración a JSON (útil para debugging).
func (c Config) ToJSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Helpers

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(v string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

func parseFloat(v string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// parseDuration acepta "30s"/"2m" o segundos enteros.
func parseDuration(v string, def time.Duration) time.Duration {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
