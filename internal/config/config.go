package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// Source kinds understood by the source factory.
const (
	KindOpenAlex       = "openalex"
	KindEuropePMC      = "europepmc"
	KindClinicalTrials = "clinicaltrials"
	KindLocal          = "local"
)

// Config represents the complete evidencemcp configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Sources     []SourceConfig    `yaml:"sources" json:"sources"`
	Aggregation AggregationConfig `yaml:"aggregation" json:"aggregation"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Expansion   ExpansionConfig   `yaml:"expansion" json:"expansion"`
	Fusion      FusionConfig      `yaml:"fusion" json:"fusion"`
	Rerank      RerankConfig      `yaml:"rerank" json:"rerank"`
	Sufficiency SufficiencyConfig `yaml:"sufficiency" json:"sufficiency"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" json:"telemetry"`
	Server      ServerConfig      `yaml:"server" json:"server"`
}

// SourceConfig declares one evidence source.
type SourceConfig struct {
	Name     string `yaml:"name" json:"name"`
	Kind     string `yaml:"kind" json:"kind"`
	Category string `yaml:"category" json:"category"`
	// Expand sends every query variant to the source instead of only the original query.
	Expand  bool   `yaml:"expand" json:"expand"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	// Filter is a source-specific restriction, e.g. a Europe PMC publication type.
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`
	// Path is the corpus file for local sources.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// Timeout overrides aggregation.source_timeout for this source.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// AggregationConfig controls the fan-out.
type AggregationConfig struct {
	SourceTimeout  string `yaml:"source_timeout" json:"source_timeout"`
	MaxConcurrency int    `yaml:"max_concurrency" json:"max_concurrency"`
	PerSourceLimit int    `yaml:"per_source_limit" json:"per_source_limit"`
	MaxPerCategory int    `yaml:"max_per_category" json:"max_per_category"`
	// Retries is the number of extra attempts for transient source failures.
	Retries int `yaml:"retries" json:"retries"`
}

// CacheConfig selects and tunes the result cache backend.
type CacheConfig struct {
	// Backend is one of memory, redis, sqlite or none.
	Backend       string `yaml:"backend" json:"backend"`
	TTL           string `yaml:"ttl" json:"ttl"`
	OpTimeout     string `yaml:"op_timeout" json:"op_timeout"`
	MemoryEntries int    `yaml:"memory_entries" json:"memory_entries"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	SQLitePath    string `yaml:"sqlite_path" json:"sqlite_path"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	// Provider is static or ollama.
	Provider      string `yaml:"provider" json:"provider"`
	Model         string `yaml:"model" json:"model"`
	OllamaHost    string `yaml:"ollama_host" json:"ollama_host"`
	Dimensions    int    `yaml:"dimensions" json:"dimensions"`
	MaxInputChars int    `yaml:"max_input_chars" json:"max_input_chars"`
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
}

// ExpansionConfig controls query variants.
type ExpansionConfig struct {
	MaxVariants int `yaml:"max_variants" json:"max_variants"`
}

// FusionConfig controls reciprocal rank fusion.
type FusionConfig struct {
	RRFConstant int `yaml:"rrf_k" json:"rrf_k"`
}

// RerankConfig controls semantic reranking. A category is reranked only
// when its consolidated list holds at least its threshold of records.
type RerankConfig struct {
	Enabled       bool             `yaml:"enabled" json:"enabled"`
	SentenceLevel bool             `yaml:"sentence_level" json:"sentence_level"`
	TopK          int              `yaml:"top_k" json:"top_k"`
	MinSimilarity float64          `yaml:"min_similarity" json:"min_similarity"`
	Thresholds    RerankThresholds `yaml:"thresholds" json:"thresholds"`
}

// RerankThresholds holds the minimum list size per category.
type RerankThresholds struct {
	Literature          int `yaml:"literature" json:"literature"`
	SystematicReviews   int `yaml:"systematic_reviews" json:"systematic_reviews"`
	GoldStandardReviews int `yaml:"gold_standard_reviews" json:"gold_standard_reviews"`
	Guidelines          int `yaml:"guidelines" json:"guidelines"`
	ClinicalTrials      int `yaml:"clinical_trials" json:"clinical_trials"`
}

// For returns the threshold for a category.
func (t RerankThresholds) For(c evidence.Category) int {
	switch c {
	case evidence.CategoryLiterature:
		return t.Literature
	case evidence.CategorySystematicReviews:
		return t.SystematicReviews
	case evidence.CategoryGoldStandardReviews:
		return t.GoldStandardReviews
	case evidence.CategoryGuidelines:
		return t.Guidelines
	case evidence.CategoryClinicalTrials:
		return t.ClinicalTrials
	}
	return math.MaxInt
}

// SufficiencyConfig holds the scoring weights and authority lists.
type SufficiencyConfig struct {
	Weights SufficiencyWeights `yaml:"weights" json:"weights"`
	// RecentYears and MinRecentArticles define the recency rule.
	RecentYears       int `yaml:"recent_years" json:"recent_years"`
	MinRecentArticles int `yaml:"min_recent_articles" json:"min_recent_articles"`
	// Authorities are organizations whose guidelines count as authoritative.
	Authorities []string `yaml:"authorities" json:"authorities"`
	// GoldStandardProducers are review producers whose reviews count as gold standard.
	GoldStandardProducers []string `yaml:"gold_standard_producers" json:"gold_standard_producers"`
}

// SufficiencyWeights are the points awarded per satisfied rule.
type SufficiencyWeights struct {
	GoldStandardReview int `yaml:"gold_standard_review" json:"gold_standard_review"`
	AuthorityGuideline int `yaml:"authority_guideline" json:"authority_guideline"`
	RandomizedTrial    int `yaml:"randomized_trial" json:"randomized_trial"`
	RecentArticles     int `yaml:"recent_articles" json:"recent_articles"`
	SystematicReview   int `yaml:"systematic_review" json:"systematic_review"`
}

// TelemetryConfig controls per-source call counting.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	DBPath  string `yaml:"db_path" json:"db_path"`
}

// ServerConfig configures the MCP server and process-level concerns.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
	// MetricsAddr serves Prometheus metrics when non-empty, e.g. ":9464".
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Sources: DefaultSources(),
		Aggregation: AggregationConfig{
			SourceTimeout:  "8s",
			MaxConcurrency: 8,
			PerSourceLimit: 25,
			MaxPerCategory: 20,
			Retries:        1,
		},
		Cache: CacheConfig{
			Backend:       "memory",
			TTL:           "24h",
			OpTimeout:     "250ms",
			MemoryEntries: 1024,
			RedisAddr:     "localhost:6379",
			SQLitePath:    filepath.Join(DataDir(), "cache.db"),
		},
		Embeddings: EmbeddingsConfig{
			Provider:      "static",
			Model:         "nomic-embed-text",
			OllamaHost:    "http://localhost:11434",
			Dimensions:    256,
			MaxInputChars: 8000,
			CacheSize:     4096,
		},
		Expansion: ExpansionConfig{MaxVariants: 5},
		Fusion:    FusionConfig{RRFConstant: 60},
		Rerank: RerankConfig{
			Enabled:       true,
			SentenceLevel: false,
			TopK:          0,
			MinSimilarity: 0.0,
			Thresholds: RerankThresholds{
				Literature:          10,
				SystematicReviews:   5,
				GoldStandardReviews: 3,
				Guidelines:          5,
				ClinicalTrials:      5,
			},
		},
		Sufficiency: SufficiencyConfig{
			Weights: SufficiencyWeights{
				GoldStandardReview: 30,
				AuthorityGuideline: 25,
				RandomizedTrial:    20,
				RecentArticles:     15,
				SystematicReview:   10,
			},
			RecentYears:       5,
			MinRecentArticles: 5,
			Authorities: []string{
				"WHO", "World Health Organization", "NICE", "CDC", "AHA", "ACC",
				"USPSTF", "ADA", "ESC", "IDSA", "ACP", "AAP", "SIGN", "NIH",
			},
			GoldStandardProducers: []string{"Cochrane"},
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			DBPath:  filepath.Join(DataDir(), "telemetry.db"),
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// DefaultSources returns the built-in source set: one OpenAlex literature
// feed and Europe PMC / ClinicalTrials.gov feeds for the other categories.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "openalex", Kind: KindOpenAlex, Category: string(evidence.CategoryLiterature), Expand: true, Enabled: true},
		{Name: "europepmc", Kind: KindEuropePMC, Category: string(evidence.CategoryLiterature), Expand: true, Enabled: true},
		{Name: "europepmc-reviews", Kind: KindEuropePMC, Category: string(evidence.CategorySystematicReviews), Expand: true, Enabled: true, Filter: `PUB_TYPE:"systematic-review"`},
		{Name: "cochrane", Kind: KindEuropePMC, Category: string(evidence.CategoryGoldStandardReviews), Enabled: true, Filter: `JOURNAL:"Cochrane Database Syst Rev"`},
		{Name: "guidelines", Kind: KindEuropePMC, Category: string(evidence.CategoryGuidelines), Enabled: true, Filter: `PUB_TYPE:"practice-guideline"`},
		{Name: "clinicaltrials", Kind: KindClinicalTrials, Category: string(evidence.CategoryClinicalTrials), Enabled: true},
	}
}

// DataDir is the per-user directory for caches, telemetry and logs.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".evidencemcp")
	}
	return filepath.Join(home, ".evidencemcp")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/evidencemcp/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/evidencemcp/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "evidencemcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "evidencemcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "evidencemcp", "config.yaml")
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/evidencemcp/config.yaml)
//  3. Project config (.evidencemcp.yaml in dir)
//  4. Environment variables (EVIDENCEMCP_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	for _, name := range []string{".evidencemcp.yaml", ".evidencemcp.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with a single YAML file, then env overrides.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML decodes path on top of the current values. Keys absent from the
// file keep their current values; lists present in the file replace the
// current list.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies EVIDENCEMCP_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EVIDENCEMCP_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("EVIDENCEMCP_CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
	if v := os.Getenv("EVIDENCEMCP_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("EVIDENCEMCP_REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("EVIDENCEMCP_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("EVIDENCEMCP_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("EVIDENCEMCP_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("EVIDENCEMCP_RRF_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Fusion.RRFConstant = k
		}
	}
	if v := os.Getenv("EVIDENCEMCP_RERANK_MIN_SIMILARITY"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= -1 && f <= 1 {
			c.Rerank.MinSimilarity = f
		}
	}
	if v := os.Getenv("EVIDENCEMCP_RERANK_SENTENCE_LEVEL"); v != "" {
		c.Rerank.SentenceLevel = parseBool(v)
	}
	if v := os.Getenv("EVIDENCEMCP_SOURCE_TIMEOUT"); v != "" {
		c.Aggregation.SourceTimeout = v
	}
	if v := os.Getenv("EVIDENCEMCP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("EVIDENCEMCP_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("EVIDENCEMCP_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	// EVIDENCEMCP_LOCAL_CORPUS adds (or repoints) a local corpus source.
	if v := os.Getenv("EVIDENCEMCP_LOCAL_CORPUS"); v != "" {
		c.SetLocalCorpus(v)
	}
}

// SetLocalCorpus enables the first local source with path, adding one
// when none is configured.
func (c *Config) SetLocalCorpus(path string) {
	for i := range c.Sources {
		if c.Sources[i].Kind == KindLocal {
			c.Sources[i].Path = path
			c.Sources[i].Enabled = true
			return
		}
	}
	c.Sources = append(c.Sources, SourceConfig{
		Name:     "local",
		Kind:     KindLocal,
		Category: string(evidence.CategoryLiterature),
		Expand:   true,
		Enabled:  true,
		Path:     path,
	})
}

// OnlyLocal disables every network source, keeping local corpora.
func (c *Config) OnlyLocal() {
	for i := range c.Sources {
		if c.Sources[i].Kind != KindLocal {
			c.Sources[i].Enabled = false
		}
	}
}

func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	names := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources: every source needs a name")
		}
		if names[s.Name] {
			return fmt.Errorf("sources: duplicate source name %q", s.Name)
		}
		names[s.Name] = true

		switch s.Kind {
		case KindOpenAlex, KindEuropePMC, KindClinicalTrials:
		case KindLocal:
			if s.Enabled && s.Path == "" {
				return fmt.Errorf("sources.%s: local sources need a path", s.Name)
			}
		default:
			return fmt.Errorf("sources.%s: unknown kind %q", s.Name, s.Kind)
		}
		if _, err := evidence.ParseCategory(s.Category); err != nil {
			return fmt.Errorf("sources.%s: %w", s.Name, err)
		}
		if s.Timeout != "" {
			if _, err := time.ParseDuration(s.Timeout); err != nil {
				return fmt.Errorf("sources.%s.timeout: %w", s.Name, err)
			}
		}
	}

	for field, v := range map[string]string{
		"aggregation.source_timeout": c.Aggregation.SourceTimeout,
		"cache.ttl":                  c.Cache.TTL,
		"cache.op_timeout":           c.Cache.OpTimeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %q", field, v)
		}
	}

	if c.Aggregation.MaxConcurrency <= 0 {
		return fmt.Errorf("aggregation.max_concurrency must be positive, got %d", c.Aggregation.MaxConcurrency)
	}
	if c.Aggregation.PerSourceLimit <= 0 {
		return fmt.Errorf("aggregation.per_source_limit must be positive, got %d", c.Aggregation.PerSourceLimit)
	}
	if c.Aggregation.MaxPerCategory < 0 || c.Aggregation.Retries < 0 {
		return fmt.Errorf("aggregation.max_per_category and aggregation.retries must be non-negative")
	}

	switch c.Cache.Backend {
	case "memory", "redis", "sqlite", "none":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis', 'sqlite' or 'none', got %s", c.Cache.Backend)
	}

	switch c.Embeddings.Provider {
	case "static", "ollama":
	default:
		return fmt.Errorf("embeddings.provider must be 'static' or 'ollama', got %s", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}

	if c.Expansion.MaxVariants < 1 {
		return fmt.Errorf("expansion.max_variants must be at least 1, got %d", c.Expansion.MaxVariants)
	}
	if c.Fusion.RRFConstant <= 0 {
		return fmt.Errorf("fusion.rrf_k must be positive, got %d", c.Fusion.RRFConstant)
	}
	if c.Rerank.MinSimilarity < -1 || c.Rerank.MinSimilarity > 1 {
		return fmt.Errorf("rerank.min_similarity must be between -1 and 1, got %f", c.Rerank.MinSimilarity)
	}
	if c.Rerank.TopK < 0 {
		return fmt.Errorf("rerank.top_k must be non-negative, got %d", c.Rerank.TopK)
	}

	w := c.Sufficiency.Weights
	for _, v := range []int{w.GoldStandardReview, w.AuthorityGuideline, w.RandomizedTrial, w.RecentArticles, w.SystematicReview} {
		if v < 0 {
			return fmt.Errorf("sufficiency.weights must be non-negative, got %d", v)
		}
	}
	if c.Sufficiency.RecentYears <= 0 || c.Sufficiency.MinRecentArticles <= 0 {
		return fmt.Errorf("sufficiency.recent_years and sufficiency.min_recent_articles must be positive")
	}

	if c.Server.Transport != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// Duration parses a duration field already checked by Validate.
// Invalid input yields fallback.
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// EnabledSources returns the enabled sources in declaration order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
