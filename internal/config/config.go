package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Platform PlatformConfig `mapstructure:"platform"`
	Voice    VoiceConfig    `mapstructure:"voice"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// RAGConfig points at the external retrieval/generation backend.
// Prefix matches the backend router mount (default "/rag").
type RAGConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Prefix  string        `mapstructure:"prefix"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PlatformConfig points at the projects/matches/prediction REST API.
type PlatformConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// VoiceConfig points at the voice/vision companion WebSocket service.
// An empty URL disables the companion; the voice gate then runs socket-less.
type VoiceConfig struct {
	WSURL       string        `mapstructure:"ws_url"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	DataDir   string `mapstructure:"data_dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RASHID")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Config file wins; bare env vars fill whatever it left empty.
	if cfg.Platform.BaseURL == "" {
		cfg.Platform.BaseURL = os.Getenv("API_BASE_URL")
	}
	if cfg.RAG.BaseURL == "" {
		cfg.RAG.BaseURL = os.Getenv("RAG_BASE")
	}
	if cfg.RAG.Prefix == "" {
		if p := os.Getenv("RAG_PREFIX"); p != "" {
			cfg.RAG.Prefix = p
		} else {
			cfg.RAG.Prefix = "/rag"
		}
	}
	if cfg.Voice.WSURL == "" {
		cfg.Voice.WSURL = os.Getenv("VOICE_WS_URL")
	}

	return cfg, nil
}

func Get() *Config {
	return cfg
}
