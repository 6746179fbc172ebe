package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Log            LogConfig            `mapstructure:"log"`
	Translate      TranslateConfig      `mapstructure:"translate"`
	MyMemory       MyMemoryConfig       `mapstructure:"mymemory"`
	LibreTranslate LibreTranslateConfig `mapstructure:"libretranslate"`
	OpenAI         OpenAIConfig         `mapstructure:"openai"`
	Speech         SpeechConfig         `mapstructure:"speech"`
	Session        SessionConfig        `mapstructure:"session"`
	Redis          RedisConfig          `mapstructure:"redis"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type TranslateConfig struct {
	Primary        string        `mapstructure:"primary"`
	Fallback       string        `mapstructure:"fallback"`
	PrimaryMaxLen  int           `mapstructure:"primary_max_len"`
	FallbackMaxLen int           `mapstructure:"fallback_max_len"`
	Retries        int           `mapstructure:"retries"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	CacheDir       string        `mapstructure:"cache_dir"`
	CacheRefresh   bool          `mapstructure:"cache_refresh"`
	Breaker        bool          `mapstructure:"breaker"`
}

type MyMemoryConfig struct {
	APIKey string `mapstructure:"api_key"`
	Email  string `mapstructure:"email"`
}

type LibreTranslateConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

type OpenAIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	TTSModel string `mapstructure:"tts_model"`
	Voice    string `mapstructure:"voice"`
}

type SpeechConfig struct {
	Provider string `mapstructure:"provider"`
}

type SessionConfig struct {
	Store string        `mapstructure:"store"`
	TTL   time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

var (
	knownEngines  = map[string]bool{"google": true, "mymemory": true, "libretranslate": true, "openai": true}
	knownSpeech   = map[string]bool{"google": true, "openai": true, "none": true}
	knownSessions = map[string]bool{"memory": true, "redis": true}
)

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", 90*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("translate.primary", "google")
	v.SetDefault("translate.fallback", "mymemory")
	v.SetDefault("translate.primary_max_len", 3000)
	v.SetDefault("translate.fallback_max_len", 800)
	v.SetDefault("translate.retries", 2)
	v.SetDefault("translate.retry_interval", 500*time.Millisecond)
	v.SetDefault("translate.http_timeout", 30*time.Second)
	v.SetDefault("translate.cache_dir", "")
	v.SetDefault("translate.cache_refresh", false)
	v.SetDefault("translate.breaker", true)

	v.SetDefault("mymemory.api_key", "")
	v.SetDefault("mymemory.email", "")

	v.SetDefault("libretranslate.url", "https://libretranslate.com/translate")
	v.SetDefault("libretranslate.api_key", "")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.tts_model", "tts-1")
	v.SetDefault("openai.voice", "alloy")

	v.SetDefault("speech.provider", "google")

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Load reads .env, the optional config file and BABELBEAM_* environment
// variables on top of the defaults. An empty cfgFile searches
// .babelbeam.yaml in $HOME and the working directory.
func Load(cfgFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".babelbeam")
	}

	v.SetEnvPrefix("BABELBEAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !knownEngines[c.Translate.Primary] {
		return fmt.Errorf("unknown translate.primary engine: %q", c.Translate.Primary)
	}
	if c.Translate.Fallback != "" && c.Translate.Fallback != "none" && !knownEngines[c.Translate.Fallback] {
		return fmt.Errorf("unknown translate.fallback engine: %q", c.Translate.Fallback)
	}
	if c.Translate.PrimaryMaxLen <= 0 || c.Translate.FallbackMaxLen <= 0 {
		return fmt.Errorf("translate max lengths must be positive")
	}
	if c.Translate.Retries < 0 {
		return fmt.Errorf("translate.retries must not be negative")
	}
	if (c.Translate.Primary == "openai" || c.Translate.Fallback == "openai" || c.Speech.Provider == "openai") && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when an OpenAI engine is selected")
	}
	if !knownSpeech[c.Speech.Provider] {
		return fmt.Errorf("unknown speech.provider: %q", c.Speech.Provider)
	}
	if !knownSessions[c.Session.Store] {
		return fmt.Errorf("unknown session.store: %q", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.Store == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis session store")
	}
	return nil
}

// HasFallback reports whether a fallback engine is configured.
func (c *Config) HasFallback() bool {
	return c.Translate.Fallback != "" && c.Translate.Fallback != "none"
}
