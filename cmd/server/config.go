package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/pdfstudy-api/internal/config"
)

// loadAppConfig loads the application configuration from environment variables or config file.
// Returns the loaded config and any loading error.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Log basic configuration details after successful loading
	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	slog.Debug("LLM configuration",
		"model", cfg.LLM.ModelName,
		"request_timeout", cfg.LLM.RequestTimeout,
		"custom_base_url", cfg.LLM.BaseURL != "")
	slog.Debug("Rate limit configuration",
		"requests", cfg.RateLimit.Requests,
		"window", cfg.RateLimit.Window,
		"redis_url_present", cfg.RateLimit.RedisURL != "")

	return cfg, nil
}
