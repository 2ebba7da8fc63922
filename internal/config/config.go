package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Search     SearchConfig     `mapstructure:"search"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
}

// StorageConfig selects the backing stores. Mode "postgres" uses postgres
// plus redis, "sqlite" uses a single embedded file, "memory" keeps
// everything in process.
type StorageConfig struct {
	Mode       string `mapstructure:"mode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LLMConfig struct {
	DefaultProvider string         `mapstructure:"default_provider"`
	FastModel       string         `mapstructure:"fast_model"`
	QualityModel    string         `mapstructure:"quality_model"`
	SystemPrompt    string         `mapstructure:"system_prompt"`
	OpenAI          ProviderConfig `mapstructure:"openai"`
	Anthropic       ProviderConfig `mapstructure:"anthropic"`
	Gemini          ProviderConfig `mapstructure:"gemini"`
}

type ProviderConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type QuotaConfig struct {
	DailyAllowance int `mapstructure:"daily_allowance"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type MemoryConfig struct {
	MaxMessages   int           `mapstructure:"max_messages"`
	SummarizeAt   int           `mapstructure:"summarize_at"`
	KeepRecent    int           `mapstructure:"keep_recent"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type SearchConfig struct {
	OverallDeadline time.Duration        `mapstructure:"overall_deadline"`
	MaxResults      int                  `mapstructure:"max_results"`
	MaxTotalChars   int                  `mapstructure:"max_total_chars"`
	Web             SearchProviderConfig `mapstructure:"web"`
	Tracker         SearchProviderConfig `mapstructure:"tracker"`
	Bounty          SearchProviderConfig `mapstructure:"bounty"`
}

type SearchProviderConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type EscalationConfig struct {
	// LengthThreshold is the stored-message count at which long
	// conversations escalate on their own. Long healthy conversations
	// trip it too; tune per deployment.
	LengthThreshold int           `mapstructure:"length_threshold"`
	WebhookURL      string        `mapstructure:"webhook_url"`
	WebhookTimeout  time.Duration `mapstructure:"webhook_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.middleware_timeout", "90s")

	// Storage
	v.SetDefault("storage.mode", "postgres")
	v.SetDefault("storage.sqlite_path", "./supportbot.db")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "supportbot")
	v.SetDefault("database.database", "supportbot")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Mongo
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "supportbot")
	v.SetDefault("mongo.collection", "kb_articles")
	v.SetDefault("mongo.timeout", "3s")

	// LLM
	v.SetDefault("llm.default_provider", "anthropic")

	// Quota
	v.SetDefault("quota.daily_allowance", 5)

	// Cache
	v.SetDefault("cache.ttl", "1h")

	// Memory
	v.SetDefault("memory.max_messages", 20)
	v.SetDefault("memory.summarize_at", 15)
	v.SetDefault("memory.keep_recent", 6)
	v.SetDefault("memory.idle_timeout", "1h")
	v.SetDefault("memory.flush_interval", "5s")

	// Search
	v.SetDefault("search.overall_deadline", "8s")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.max_total_chars", 6000)
	v.SetDefault("search.web.timeout", "4s")
	v.SetDefault("search.tracker.timeout", "4s")
	v.SetDefault("search.bounty.timeout", "3s")

	// Escalation
	v.SetDefault("escalation.length_threshold", 8)
	v.SetDefault("escalation.webhook_timeout", "5s")

	// Auth
	v.SetDefault("auth.token_ttl", "12h")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Mongo
	v.BindEnv("mongo.uri", "MONGO_URI")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// LLM API keys
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")

	// Search providers
	v.BindEnv("search.web.api_key", "WEB_SEARCH_API_KEY")
	v.BindEnv("search.tracker.api_key", "TRACKER_TOKEN")

	// Escalation
	v.BindEnv("escalation.webhook_url", "ESCALATION_WEBHOOK_URL")
}
