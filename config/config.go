package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the feedback service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RAG       RAGConfig       `mapstructure:"rag"`
	WebSearch WebSearchConfig `mapstructure:"web_search"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Normalize applies defaults for unset server values.
func (s ServerConfig) Normalize() ServerConfig {
	if strings.TrimSpace(s.Address) == "" {
		s.Address = ":8000"
	}
	if len(s.AllowedOrigins) == 0 {
		s.AllowedOrigins = []string{"*"}
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = 5 * time.Minute
	}
	return s
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
	Embedding EmbeddingConfig        `mapstructure:"embedding"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type              string              `mapstructure:"type"` // openai, anthropic
	APIKey            string              `mapstructure:"api_key"`
	BaseURL           string              `mapstructure:"base_url"`
	Models            map[string]LLMModel `mapstructure:"models"`
	MaxRetries        int                 `mapstructure:"max_retries"`
	Timeout           time.Duration       `mapstructure:"timeout"`
	RequestsPerSecond float64             `mapstructure:"requests_per_second"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name        string  `mapstructure:"name"`
	APIName     string  `mapstructure:"api_name"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// LLMRoutingConfig defines which provider:model pair serves each agent role.
type LLMRoutingConfig struct {
	Chat          string `mapstructure:"chat"`
	Supervisor    string `mapstructure:"supervisor"`
	Ranking       string `mapstructure:"ranking"`
	Rewrite       string `mapstructure:"rewrite"`
	Evaluator     string `mapstructure:"evaluator"`
	Visualization string `mapstructure:"visualization"`
}

// EmbeddingConfig selects the provider and model used to embed chunks and queries.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// Validate ensures every routed role points at a configured provider.
func (l LLMConfig) Validate() error {
	if len(l.Providers) == 0 {
		return fmt.Errorf("llm.providers must declare at least one provider")
	}
	for name, p := range l.Providers {
		switch strings.ToLower(p.Type) {
		case "openai", "anthropic":
		default:
			return fmt.Errorf("llm.providers.%s.type %q unsupported", name, p.Type)
		}
	}
	routes := map[string]string{
		"chat":          l.Routing.Chat,
		"supervisor":    l.Routing.Supervisor,
		"ranking":       l.Routing.Ranking,
		"rewrite":       l.Routing.Rewrite,
		"evaluator":     l.Routing.Evaluator,
		"visualization": l.Routing.Visualization,
	}
	for role, route := range routes {
		providerName, _, err := SplitRoute(route)
		if err != nil {
			return fmt.Errorf("llm.routing.%s: %w", role, err)
		}
		if _, ok := l.Providers[providerName]; !ok {
			return fmt.Errorf("llm.routing.%s references unknown provider %q", role, providerName)
		}
	}
	if _, ok := l.Providers[l.Embedding.Provider]; !ok {
		return fmt.Errorf("llm.embedding.provider references unknown provider %q", l.Embedding.Provider)
	}
	if strings.TrimSpace(l.Embedding.Model) == "" {
		return fmt.Errorf("llm.embedding.model required")
	}
	return nil
}

// SplitRoute splits a "provider:model" routing entry.
func SplitRoute(route string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(route), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("route %q must be provider:model", route)
	}
	return parts[0], parts[1], nil
}

// RAGConfig controls the knowledge base indexing and agentic retrieval loop.
type RAGConfig struct {
	DocsDir         string `mapstructure:"docs_dir"`
	PersistDir      string `mapstructure:"persist_dir"`
	Store           string `mapstructure:"store"` // memory, sqlite, postgres
	Collection      string `mapstructure:"collection"`
	TopK            int    `mapstructure:"top_k"`
	MaxRetries      int    `mapstructure:"max_retries"`
	ChunkSize       int    `mapstructure:"chunk_size"`
	ChunkOverlap    int    `mapstructure:"chunk_overlap"`
	Hybrid          bool   `mapstructure:"hybrid"`
	ReindexSchedule string `mapstructure:"reindex_schedule"`
}

// Normalize applies defaults for unset retrieval values.
func (r RAGConfig) Normalize() RAGConfig {
	if strings.TrimSpace(r.DocsDir) == "" {
		r.DocsDir = "docs"
	}
	if strings.TrimSpace(r.PersistDir) == "" {
		r.PersistDir = ".kb_index"
	}
	r.Store = strings.ToLower(strings.TrimSpace(r.Store))
	if r.Store == "" {
		r.Store = "sqlite"
	}
	if strings.TrimSpace(r.Collection) == "" {
		r.Collection = "knowledge_base"
	}
	if r.TopK <= 0 {
		r.TopK = 10
	}
	if r.MaxRetries <= 0 {
		r.MaxRetries = 3
	}
	if r.ChunkSize <= 0 {
		r.ChunkSize = 2000
	}
	if r.ChunkOverlap < 0 {
		r.ChunkOverlap = 0
	}
	return r
}

// Validate checks the retrieval configuration.
func (r RAGConfig) Validate() error {
	switch r.Store {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("rag.store %q unsupported (memory, sqlite, postgres)", r.Store)
	}
	if r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_size (%d)", r.ChunkOverlap, r.ChunkSize)
	}
	return nil
}

// WebSearchConfig contains web search settings
type WebSearchConfig struct {
	Provider     string        `mapstructure:"provider"` // tavily, serper, brave
	TavilyAPIKey string        `mapstructure:"tavily_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FetchContent bool          `mapstructure:"fetch_content"`
}

// Normalize applies defaults for unset web search values.
func (w WebSearchConfig) Normalize() WebSearchConfig {
	w.Provider = strings.ToLower(strings.TrimSpace(w.Provider))
	if w.MaxResults <= 0 {
		w.MaxResults = 5
	}
	if w.Timeout <= 0 {
		w.Timeout = 30 * time.Second
	}
	return w
}

// APIKey returns the key for the selected provider.
func (w WebSearchConfig) APIKey() string {
	switch w.Provider {
	case "tavily":
		return w.TavilyAPIKey
	case "brave":
		return w.BraveAPIKey
	case "serper":
		return w.SerperAPIKey
	}
	return ""
}

// Enabled reports whether a web search provider is usable.
func (w WebSearchConfig) Enabled() bool {
	return w.Provider != "" && strings.TrimSpace(w.APIKey()) != ""
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Sessions string         `mapstructure:"sessions"` // memory, redis
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host      string        `mapstructure:"host"`
	Port      string        `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// AutoMigrate applies the embedded vector store migrations on open.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a connection string from the explicit URL or the individual fields.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Validate runs every section validator and returns the first failure.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.RAG.Validate(); err != nil {
		return err
	}
	if c.RAG.Store == "postgres" {
		if err := c.Storage.Postgres.Validate(); err != nil {
			return err
		}
	}
	switch c.Storage.Sessions {
	case "memory":
	case "redis":
		if err := c.Storage.Redis.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.sessions %q unsupported (memory, redis)", c.Storage.Sessions)
	}
	return nil
}

// Normalize applies defaults across all sections.
func (c *Config) Normalize() {
	c.Server = c.Server.Normalize()
	c.RAG = c.RAG.Normalize()
	c.WebSearch = c.WebSearch.Normalize()
	c.Storage.Sessions = strings.ToLower(strings.TrimSpace(c.Storage.Sessions))
	if c.Storage.Sessions == "" {
		c.Storage.Sessions = "memory"
	}
	if c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = "concordance:"
	}
	if c.General.DefaultTimeout <= 0 {
		c.General.DefaultTimeout = 60 * time.Second
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "concordance"
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8000")
	v.SetDefault("rag.docs_dir", "docs")
	v.SetDefault("rag.persist_dir", ".kb_index")
	v.SetDefault("rag.store", "sqlite")
	v.SetDefault("rag.collection", "knowledge_base")
	v.SetDefault("rag.top_k", 10)
	v.SetDefault("rag.max_retries", 3)
	v.SetDefault("rag.chunk_size", 2000)
	v.SetDefault("rag.chunk_overlap", 200)
	v.SetDefault("web_search.max_results", 5)
	v.SetDefault("web_search.timeout", "30s")
	v.SetDefault("storage.sessions", "memory")
	v.SetDefault("storage.redis.key_prefix", "concordance:")
}

// LoadConfig loads config from file and environment (CONCORDANCE_*).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("CONCORDANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
