package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Services ServicesConfig
	Server   ServerConfig
}

// ServicesConfig holds external service credentials and endpoints
type ServicesConfig struct {
	OpenAIAPIKey     string
	NotifyWebhookURL string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
	// PublicHost is the externally reachable host used to build the
	// media-stream websocket URL in the call-control document. Falls back
	// to the request host when unset.
	PublicHost string
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	var err error
	if cfg.Services.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.Services.NotifyWebhookURL, err = requireEnv("NOTIFY_WEBHOOK_URL"); err != nil {
		return nil, err
	}

	serverPort, err := requireEnv("SERVER_PORT")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}

	cfg.Server.PublicHost = os.Getenv("PUBLIC_HOST")

	return cfg, nil
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}
