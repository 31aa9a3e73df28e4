// Package config provides functionality for loading and accessing application configuration.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// ValidateAndFixConfig validates the configuration and fixes any issues.
// It returns one warning per adjusted or suspicious value.
func ValidateAndFixConfig(config *Config) []string {
	var warnings []string

	// Check converter configuration
	if config.Converter.StageTimeout <= 0 {
		warnings = append(warnings, "Converter stage timeout is not set, setting to 15s")
		config.Converter.StageTimeout = 15 * time.Second
	}

	// Check server timeouts
	minTimeout := 1 * time.Second
	maxTimeout := 5 * time.Minute

	if config.Server.ReadTimeout < minTimeout {
		warnings = append(warnings, fmt.Sprintf("Server read timeout is too short (%v), setting to %v", config.Server.ReadTimeout, minTimeout))
		config.Server.ReadTimeout = minTimeout
	} else if config.Server.ReadTimeout > maxTimeout {
		warnings = append(warnings, fmt.Sprintf("Server read timeout is too long (%v), setting to %v", config.Server.ReadTimeout, maxTimeout))
		config.Server.ReadTimeout = maxTimeout
	}

	// A resolve call is three sequential stages, so writes must outlast all of them
	minWrite := 3*config.Converter.StageTimeout + time.Second
	if config.Server.WriteTimeout < minWrite {
		warnings = append(warnings, fmt.Sprintf("Server write timeout (%v) is shorter than three converter stages, setting to %v", config.Server.WriteTimeout, minWrite))
		config.Server.WriteTimeout = minWrite
	}

	if config.Server.IdleTimeout < minTimeout {
		warnings = append(warnings, fmt.Sprintf("Server idle timeout is too short (%v), setting to %v", config.Server.IdleTimeout, minTimeout))
		config.Server.IdleTimeout = minTimeout
	}

	// Check converter headers
	if config.Converter.UserAgent == "" {
		warnings = append(warnings, "Converter user agent is empty, the upstream may reject requests")
	}

	if config.Converter.Cookie == "" {
		warnings = append(warnings, "Converter session cookie is empty, the upstream may reject requests")
	}

	// Check catalog configuration
	if config.Catalog.DefaultLimit <= 0 {
		warnings = append(warnings, "Catalog default limit is not positive, setting to 20")
		config.Catalog.DefaultLimit = 20
	}

	if config.Catalog.Timeout <= 0 {
		warnings = append(warnings, "Catalog timeout is not set, setting to 10s")
		config.Catalog.Timeout = 10 * time.Second
	}

	if config.Catalog.ImageSizeFrom == "" || config.Catalog.ImageSizeTo == "" {
		warnings = append(warnings, "Catalog image size tokens are empty, thumbnails will be returned unchanged")
	}

	// Check Redis address
	if config.Redis.Enabled {
		host, port, err := net.SplitHostPort(config.Redis.Address)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Invalid Redis address: %s", config.Redis.Address))
		} else if host == "" || port == "" {
			warnings = append(warnings, fmt.Sprintf("Redis address is incomplete: %s", config.Redis.Address))
		}
	}

	// Check rate limits
	if config.RateLimit.Enabled {
		if config.RateLimit.Window <= 0 {
			warnings = append(warnings, "Rate limit window is not set, setting to 1m")
			config.RateLimit.Window = time.Minute
		}
		if config.RateLimit.ResolveRequests <= 0 {
			warnings = append(warnings, "Resolve rate limit is not positive, setting to 10")
			config.RateLimit.ResolveRequests = 10
		}
		if config.RateLimit.SearchRequests <= 0 {
			warnings = append(warnings, "Search rate limit is not positive, setting to 30")
			config.RateLimit.SearchRequests = 30
		}
	}

	// Check logging configuration
	validLevels := map[string]bool{
		"debug":  true,
		"info":   true,
		"warn":   true,
		"error":  true,
		"dpanic": true,
		"panic":  true,
		"fatal":  true,
	}

	if !validLevels[strings.ToLower(config.Logging.Level)] {
		warnings = append(warnings, fmt.Sprintf("Invalid logging level: %s, setting to 'info'", config.Logging.Level))
		config.Logging.Level = "info"
	}

	if f := strings.ToLower(config.Logging.Format); f != "json" && f != "console" {
		warnings = append(warnings, fmt.Sprintf("Invalid logging format: %s, setting to 'json'", config.Logging.Format))
		config.Logging.Format = "json"
	}

	return warnings
}

// CreateDefaultConfig creates the default configuration without reading files or the environment
func CreateDefaultConfig() *Config {
	config := &Config{}

	config.Environment = "development"

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 15 * time.Second
	config.Server.WriteTimeout = 60 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.AllowedOrigins = []string{"*"}

	config.Converter.BaseURL = "https://www.y2mate.com/mates/en68"
	config.Converter.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	config.Converter.SecCHUA = `" Not;A Brand";v="99", "Google Chrome";v="91", "Chromium";v="91"`
	config.Converter.AcceptLanguage = "en-US,en;q=0.9"
	config.Converter.Cookie = "PHPSESSID=6jo2ggb63g5mjvgj45f612ogt7"
	config.Converter.StageTimeout = 15 * time.Second
	config.Converter.VideoQuality = 480
	config.Converter.AudioQuality = 128

	config.Catalog.Provider = "music"
	config.Catalog.MusicBaseURL = "https://music.youtube.com/youtubei/v1"
	config.Catalog.ClientVersion = "1.20250219.01.00"
	config.Catalog.ImageSizeFrom = "w120-h120"
	config.Catalog.ImageSizeTo = "w600-h600"
	config.Catalog.DefaultLimit = 20
	config.Catalog.Timeout = 10 * time.Second

	config.Redis.Address = "localhost:6379"
	config.Redis.MaxRetries = 3
	config.Redis.PoolSize = 20
	config.Redis.DialTimeout = 5 * time.Second
	config.Redis.ReadTimeout = 3 * time.Second
	config.Redis.WriteTimeout = 3 * time.Second

	config.RateLimit.Enabled = true
	config.RateLimit.ResolveRequests = 10
	config.RateLimit.SearchRequests = 30
	config.RateLimit.Window = time.Minute

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.OutputPaths = []string{"stdout"}
	config.Logging.ErrorOutputPaths = []string{"stderr"}

	return config
}
