// Package config provides functionality for loading and accessing application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Environment is the current running environment (development, staging, production)
	Environment string `mapstructure:"environment"`

	// Server configuration
	Server struct {
		// Port is the HTTP server port
		Port int `mapstructure:"port"`
		// Host is the HTTP server host
		Host string `mapstructure:"host"`
		// ReadTimeout is the maximum duration for reading the entire request
		ReadTimeout time.Duration `mapstructure:"read_timeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request
		IdleTimeout time.Duration `mapstructure:"idle_timeout"`
		// AllowedOrigins is the list of allowed CORS origins
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"server"`

	// Converter is the third-party conversion service driven by the resolver.
	// Header values are tied to one upstream deployment and are rotated here.
	Converter struct {
		// BaseURL is the converter endpoint prefix; analyze/ajax and convert are appended
		BaseURL string `mapstructure:"base_url"`
		// UserAgent is sent as the user-agent header
		UserAgent string `mapstructure:"user_agent"`
		// SecCHUA is sent as the sec-ch-ua header
		SecCHUA string `mapstructure:"sec_ch_ua"`
		// AcceptLanguage is sent as the accept-language header
		AcceptLanguage string `mapstructure:"accept_language"`
		// Cookie is the static session cookie
		Cookie string `mapstructure:"cookie"`
		// StageTimeout bounds each of the three negotiation round trips
		StageTimeout time.Duration `mapstructure:"stage_timeout"`
		// VideoQuality is the default mp4 quality (fquality)
		VideoQuality int `mapstructure:"video_quality"`
		// AudioQuality is the default mp3 bitrate (fquality)
		AudioQuality int `mapstructure:"audio_quality"`
	} `mapstructure:"converter"`

	// Catalog configures the music search facade
	Catalog struct {
		// Provider is "music" (innertube search) or "data_api" (YouTube Data API v3)
		Provider string `mapstructure:"provider"`
		// MusicBaseURL is the innertube API prefix
		MusicBaseURL string `mapstructure:"music_base_url"`
		// ClientVersion is the WEB_REMIX client version sent to innertube
		ClientVersion string `mapstructure:"client_version"`
		// YouTubeAPIKey is required for the data_api provider
		YouTubeAPIKey string `mapstructure:"youtube_api_key"`
		// ImageSizeFrom is the low resolution token replaced in thumbnail URLs
		ImageSizeFrom string `mapstructure:"image_size_from"`
		// ImageSizeTo is the high resolution replacement token
		ImageSizeTo string `mapstructure:"image_size_to"`
		// DefaultLimit caps search results when the caller gives no limit
		DefaultLimit int `mapstructure:"default_limit"`
		// Timeout bounds one catalog call
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"catalog"`

	// Redis configuration, used for rate limiting
	Redis struct {
		// Enabled switches the rate limiter to Redis
		Enabled bool `mapstructure:"enabled"`
		// Address is the Redis server address
		Address string `mapstructure:"address"`
		// Username is the Redis username
		Username string `mapstructure:"username"`
		// Password is the Redis password
		Password string `mapstructure:"password"`
		// Database is the Redis database index
		Database int `mapstructure:"database"`
		// MaxRetries is the maximum number of retries for Redis operations
		MaxRetries int `mapstructure:"max_retries"`
		// PoolSize is the Redis connection pool size
		PoolSize int `mapstructure:"pool_size"`
		// DialTimeout is the timeout for establishing new connections
		DialTimeout time.Duration `mapstructure:"dial_timeout"`
		// ReadTimeout is the timeout for Redis reads
		ReadTimeout time.Duration `mapstructure:"read_timeout"`
		// WriteTimeout is the timeout for Redis writes
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"redis"`

	// RateLimit configures per-client request limits
	RateLimit struct {
		// Enabled turns the limiter on
		Enabled bool `mapstructure:"enabled"`
		// ResolveRequests is the number of resolve calls allowed per window
		ResolveRequests int `mapstructure:"resolve_requests"`
		// SearchRequests is the number of search calls allowed per window
		SearchRequests int `mapstructure:"search_requests"`
		// Window is the sliding window length
		Window time.Duration `mapstructure:"window"`
	} `mapstructure:"rate_limit"`

	// Metrics configuration
	Metrics struct {
		// Enabled exposes /metrics
		Enabled bool `mapstructure:"enabled"`
		// Path is the metrics endpoint path
		Path string `mapstructure:"path"`
	} `mapstructure:"metrics"`

	// Logging configuration
	Logging struct {
		// Level is the logging level
		Level string `mapstructure:"level"`
		// Format is the logging format (json or console)
		Format string `mapstructure:"format"`
		// OutputPaths is the list of output paths for logs
		OutputPaths []string `mapstructure:"output_paths"`
		// ErrorOutputPaths is the list of output paths for error logs
		ErrorOutputPaths []string `mapstructure:"error_output_paths"`
	} `mapstructure:"logging"`
}

// LoadConfig loads the configuration from file and environment variables.
// It looks for app.yaml in the following locations:
// 1. Path specified in the CONFIG_FILE environment variable
// 2. ./configs directory
// 3. ../configs directory
// 4. /etc/mediagrab directory
// A .env file in the working directory is loaded first if present.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("app")
	v.SetConfigType("yaml")

	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("/etc/mediagrab")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	if configFile == "" {
		v.SetConfigName(fmt.Sprintf("app.%s", env))
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to merge environment config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Environment = env

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets the default values for the configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Converter defaults
	v.SetDefault("converter.base_url", "https://www.y2mate.com/mates/en68")
	v.SetDefault("converter.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("converter.sec_ch_ua", `" Not;A Brand";v="99", "Google Chrome";v="91", "Chromium";v="91"`)
	v.SetDefault("converter.accept_language", "en-US,en;q=0.9")
	v.SetDefault("converter.cookie", `PHPSESSID=6jo2ggb63g5mjvgj45f612ogt7; _ga=GA1.2.405896420.1625200423; _gid=GA1.2.2135261581.1625200423; _PN_SBSCRBR_FALLBACK_DENIED=1625200785624; MarketGidStorage={"0":{},"C702514":{"page":5,"time":1625200846733}}`)
	v.SetDefault("converter.stage_timeout", "15s")
	v.SetDefault("converter.video_quality", 480)
	v.SetDefault("converter.audio_quality", 128)

	// Catalog defaults
	v.SetDefault("catalog.provider", "music")
	v.SetDefault("catalog.music_base_url", "https://music.youtube.com/youtubei/v1")
	v.SetDefault("catalog.client_version", "1.20250219.01.00")
	v.SetDefault("catalog.youtube_api_key", "")
	v.SetDefault("catalog.image_size_from", "w120-h120")
	v.SetDefault("catalog.image_size_to", "w600-h600")
	v.SetDefault("catalog.default_limit", 20)
	v.SetDefault("catalog.timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.resolve_requests", 10)
	v.SetDefault("rate_limit.search_requests", 30)
	v.SetDefault("rate_limit.window", "1m")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return errors.New("server port must be between 1 and 65535")
	}

	if u, err := url.Parse(config.Converter.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("converter base URL is invalid: %q", config.Converter.BaseURL)
	}

	if config.Converter.VideoQuality <= 0 || config.Converter.AudioQuality <= 0 {
		return errors.New("converter video and audio quality must be positive")
	}

	switch config.Catalog.Provider {
	case "music":
	case "data_api":
		if config.Catalog.YouTubeAPIKey == "" {
			return errors.New("YouTube API key must be set when the data_api catalog is selected")
		}
	default:
		return fmt.Errorf("unknown catalog provider: %q", config.Catalog.Provider)
	}

	if config.Redis.Enabled && config.Redis.Address == "" {
		return errors.New("redis address must be set when redis is enabled")
	}

	return nil
}

// GetConfigString returns a formatted string with the current configuration
func GetConfigString(config *Config) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Environment: %s\n", config.Environment)
	fmt.Fprintf(&sb, "Server: %s:%d\n", config.Server.Host, config.Server.Port)
	fmt.Fprintf(&sb, "Converter: %s (stage timeout %s, %dp/%dkbps)\n",
		config.Converter.BaseURL, config.Converter.StageTimeout,
		config.Converter.VideoQuality, config.Converter.AudioQuality)
	fmt.Fprintf(&sb, "Catalog: %s\n", config.Catalog.Provider)
	fmt.Fprintf(&sb, "Redis: %t\n", config.Redis.Enabled)
	fmt.Fprintf(&sb, "Rate limit: %t\n", config.RateLimit.Enabled)

	return sb.String()
}
