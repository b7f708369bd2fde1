package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultHuggingFaceEndpoint = "https://api-inference.huggingface.co/models/nlptown/bert-base-multilingual-uncased-sentiment"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Twitter TwitterConfig `mapstructure:"twitter"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	News    NewsConfig    `mapstructure:"news"`
	Service ServiceConfig `mapstructure:"service"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPPort       string   `mapstructure:"http_port"`
	GRPCPort       string   `mapstructure:"grpc_port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
}

type TwitterConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	BearerToken string        `mapstructure:"bearer_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ScoringConfig struct {
	HuggingFaceEndpoint string        `mapstructure:"huggingface_endpoint"`
	HuggingFaceToken    string        `mapstructure:"huggingface_token"`
	VirusTotalEndpoint  string        `mapstructure:"virustotal_endpoint"`
	VirusTotalKey       string        `mapstructure:"virustotal_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	Concurrency         int           `mapstructure:"concurrency"`
}

// NewsConfig enables news verification and the news endpoint when APIKey
// is set.
type NewsConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServiceConfig struct {
	DefaultCount    int           `mapstructure:"default_count"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", ":8080")
	v.SetDefault("server.grpc_port", ":9090")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 300*time.Second)
	v.SetDefault("cache.sweep_interval", 60*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	v.SetDefault("twitter.base_url", "https://api.twitter.com")
	v.SetDefault("twitter.bearer_token", "")
	v.SetDefault("twitter.timeout", 10*time.Second)

	v.SetDefault("scoring.huggingface_endpoint", DefaultHuggingFaceEndpoint)
	v.SetDefault("scoring.huggingface_token", "")
	v.SetDefault("scoring.virustotal_endpoint", "https://www.virustotal.com/api/v3/urls")
	v.SetDefault("scoring.virustotal_key", "")
	v.SetDefault("scoring.timeout", 10*time.Second)
	v.SetDefault("scoring.concurrency", 4)

	v.SetDefault("news.base_url", "https://newsapi.org")
	v.SetDefault("news.api_key", "")
	v.SetDefault("news.timeout", 10*time.Second)

	v.SetDefault("service.default_count", 10)
	v.SetDefault("service.max_retries", 3)
	v.SetDefault("service.rate_limit", 10)
	v.SetDefault("service.rate_limit_window", time.Minute)

	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from the given directories (./configs and . by
// default). A missing file is not an error. Environment variables prefixed
// with ANALYZER_ override file values, e.g. ANALYZER_CACHE_TTL=10m.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("ANALYZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials also honour their conventional names
	_ = v.BindEnv("twitter.bearer_token", "ANALYZER_TWITTER_BEARER_TOKEN", "TWITTER_BEARER_TOKEN")
	_ = v.BindEnv("scoring.huggingface_token", "ANALYZER_SCORING_HUGGINGFACE_TOKEN", "HF_TOKEN")
	_ = v.BindEnv("scoring.virustotal_key", "ANALYZER_SCORING_VIRUSTOTAL_KEY", "VT_API_KEY")
	_ = v.BindEnv("news.api_key", "ANALYZER_NEWS_API_KEY", "NEWS_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Service.DefaultCount < 1 || c.Service.DefaultCount > 100 {
		return fmt.Errorf("service.default_count must be between 1 and 100, got %d", c.Service.DefaultCount)
	}
	if c.Service.MaxRetries < 0 {
		return fmt.Errorf("service.max_retries must not be negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka is enabled but no brokers are configured")
	}
	return nil
}
