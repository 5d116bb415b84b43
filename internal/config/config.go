// Package config provides application configuration loading from
// environment variables and .env files via viper.
// Configuration is read once at startup and immutable afterwards.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
// Priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv       string // Application environment (dev, staging, prod)
	HTTPAddr     string // HTTP server bind address (health, metrics, rules)
	LogLevel     string // zerolog level (debug, info, warn, error)
	NATSURL      string // Message bus URL
	EventSubject string // Subject carrying module build state-change events
	QueueGroup   string // Queue group name for load-balanced consumption
	MBSAPIURL    string // Module Build Service REST API base URL
	KojiHubURL   string // Koji hub XML-RPC endpoint
	KojiUser     string // Koji login user
	KojiPassword string // Koji login password
	RulesPath    string // Path to the tagging rules YAML file
	DryRun       bool   // Log intended tags instead of calling koji
	StoreType    string // Audit store backend (memory or postgres)
	DatabaseDSN  string // PostgreSQL connection string for the audit store
}

// Load reads configuration from environment variables and an optional
// .env file. Environment variables take precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env") // Optional; silently ignored if absent
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	setDefaults(v)

	return &Config{
		AppEnv:       v.GetString("APP_ENV"),
		HTTPAddr:     v.GetString("HTTP_ADDR"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		NATSURL:      v.GetString("NATS_URL"),
		EventSubject: v.GetString("EVENT_SUBJECT"),
		QueueGroup:   v.GetString("QUEUE_GROUP"),
		MBSAPIURL:    v.GetString("MBS_API_URL"),
		KojiHubURL:   v.GetString("KOJI_HUB_URL"),
		KojiUser:     v.GetString("KOJI_USER"),
		KojiPassword: v.GetString("KOJI_PASSWORD"),
		RulesPath:    v.GetString("RULES_PATH"),
		DryRun:       v.GetBool("DRY_RUN"),
		StoreType:    v.GetString("STORE_TYPE"),
		DatabaseDSN:  v.GetString("DB_DSN"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("EVENT_SUBJECT", "mbs.module.state.change")
	v.SetDefault("QUEUE_GROUP", "modtag")
	v.SetDefault("MBS_API_URL", "https://mbs.fedoraproject.org/module-build-service/1")
	v.SetDefault("KOJI_HUB_URL", "https://koji.fedoraproject.org/kojihub")
	v.SetDefault("RULES_PATH", "rules.yaml")
	v.SetDefault("DRY_RUN", false)
	v.SetDefault("STORE_TYPE", "memory")
}

// ValidationError describes a configuration constraint violation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks that the configuration can actually run the service.
// Intended to be called at startup to fail fast on misconfiguration.
func (c *Config) Validate() error {
	if c.StoreType != "memory" && c.StoreType != "postgres" {
		return ValidationError{
			Field:   "STORE_TYPE",
			Message: fmt.Sprintf("must be 'memory' or 'postgres', got '%s'", c.StoreType),
		}
	}
	if c.StoreType == "postgres" && c.DatabaseDSN == "" {
		return ValidationError{
			Field:   "DB_DSN",
			Message: "database DSN is required when STORE_TYPE=postgres",
		}
	}
	if c.NATSURL == "" {
		return ValidationError{Field: "NATS_URL", Message: "message bus URL cannot be empty"}
	}
	if c.EventSubject == "" {
		return ValidationError{Field: "EVENT_SUBJECT", Message: "event subject cannot be empty"}
	}
	if c.MBSAPIURL == "" {
		return ValidationError{Field: "MBS_API_URL", Message: "MBS API URL cannot be empty"}
	}
	if c.RulesPath == "" {
		return ValidationError{Field: "RULES_PATH", Message: "rules file path cannot be empty"}
	}
	if c.HTTPAddr == "" {
		return ValidationError{Field: "HTTP_ADDR", Message: "HTTP server address cannot be empty"}
	}
	if !c.DryRun {
		if c.KojiHubURL == "" {
			return ValidationError{Field: "KOJI_HUB_URL", Message: "koji hub URL is required unless DRY_RUN=true"}
		}
		if c.KojiUser == "" {
			return ValidationError{Field: "KOJI_USER", Message: "koji user is required unless DRY_RUN=true"}
		}
	}
	return nil
}
