// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetEmailTimeout() time.Duration
}

// AIConfig provides settings for the language-generation capability.
type AIConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotBaseURL() string
	GetAIModel() string
	GetAIRequestTimeout() time.Duration
	IsAIEnabled() bool
}

// SchedulerConfig provides settings for the asynq reminder scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketFeedbackArchive() string
	IsMinIOEnabled() bool
}

// FeedbackConfig provides settings for the feedback content lifecycle.
type FeedbackConfig interface {
	GetDefaultRoundName() string
	GetEnhanceDebounce() time.Duration
	GetBatchConcurrency() int
	GetAllowDuplicateSend() bool
}

// MatchingConfig provides settings for invitation matching.
type MatchingConfig interface {
	GetMatchCandidateLimit() int
	GetReminderLeadTime() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                        string
	HTTPAddr                   string
	DatabaseURL                string
	JWTAccessSecret            string
	CORSAllowAll               bool
	CORSOrigins                []string
	CORSAllowCreds             bool
	AppBaseURL                 string
	EmailEnabled               bool
	EmailProvider              string
	BrevoAPIKey                string
	SMTPHost                   string
	SMTPPort                   int
	SMTPUsername               string
	SMTPPassword               string
	EmailFromName              string
	EmailFromAddress           string
	EmailTimeout               time.Duration
	EmailAllowDuplicateSend    bool
	MoonshotAPIKey             string
	MoonshotBaseURL            string
	AIModel                    string
	AIRequestTimeout           time.Duration
	RedisURL                   string
	RedisTLSInsecure           bool
	AsynqQueueName             string
	AsynqConcurrency           int
	MinIOEndpoint              string
	MinIOAccessKey             string
	MinIOSecretKey             string
	MinIOUseSSL                bool
	MinioBucketFeedbackArchive string
	DefaultRoundName           string
	EnhanceDebounce            time.Duration
	BatchConcurrency           int
	MatchCandidateLimit        int
	ReminderLeadTime           time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool          { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string       { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string         { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string            { return c.SMTPHost }
func (c *Config) GetSMTPPort() int               { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string        { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string        { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string       { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string    { return c.EmailFromAddress }
func (c *Config) GetEmailTimeout() time.Duration { return c.EmailTimeout }

// AIConfig implementation
func (c *Config) GetMoonshotAPIKey() string          { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotBaseURL() string         { return c.MoonshotBaseURL }
func (c *Config) GetAIModel() string                 { return c.AIModel }
func (c *Config) GetAIRequestTimeout() time.Duration { return c.AIRequestTimeout }
func (c *Config) IsAIEnabled() bool                  { return c.MoonshotAPIKey != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketFeedbackArchive() string {
	return c.MinioBucketFeedbackArchive
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// FeedbackConfig implementation
func (c *Config) GetDefaultRoundName() string        { return c.DefaultRoundName }
func (c *Config) GetEnhanceDebounce() time.Duration  { return c.EnhanceDebounce }
func (c *Config) GetBatchConcurrency() int           { return c.BatchConcurrency }
func (c *Config) GetAllowDuplicateSend() bool        { return c.EmailAllowDuplicateSend }

// MatchingConfig implementation
func (c *Config) GetMatchCandidateLimit() int         { return c.MatchCandidateLimit }
func (c *Config) GetReminderLeadTime() time.Duration { return c.ReminderLeadTime }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	provider := strings.ToLower(getEnv("EMAIL_PROVIDER", "brevo"))
	brevoAPIKey := getEnv("BREVO_API_KEY", "")
	smtpHost := getEnv("SMTP_HOST", "")
	providerReady := (provider == "brevo" && brevoAPIKey != "") || (provider == "smtp" && smtpHost != "")

	cfg := &Config{
		Env:                        getEnv("APP_ENV", "development"),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		JWTAccessSecret:            getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:               corsAllowAll,
		CORSOrigins:                corsOrigins,
		CORSAllowCreds:             strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:                 getEnv("APP_BASE_URL", "http://localhost:5173"),
		EmailEnabled:               emailEnabled && providerReady,
		EmailProvider:              provider,
		BrevoAPIKey:                brevoAPIKey,
		SMTPHost:                   smtpHost,
		SMTPPort:                   mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:               getEnv("SMTP_USERNAME", ""),
		SMTPPassword:               getEnv("SMTP_PASSWORD", ""),
		EmailFromName:              getEnv("EMAIL_FROM_NAME", "Jury Portal"),
		EmailFromAddress:           getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailTimeout:               mustDuration(getEnv("EMAIL_TIMEOUT", "15s")),
		EmailAllowDuplicateSend:    strings.EqualFold(getEnv("EMAIL_ALLOW_DUPLICATE_SEND", "false"), "true"),
		MoonshotAPIKey:             getEnv("MOONSHOT_API_KEY", ""),
		MoonshotBaseURL:            getEnv("MOONSHOT_BASE_URL", ""),
		AIModel:                    getEnv("AI_MODEL", "kimi-k2.5"),
		AIRequestTimeout:           mustDuration(getEnv("AI_REQUEST_TIMEOUT", "60s")),
		RedisURL:                   getEnv("REDIS_URL", ""),
		RedisTLSInsecure:           strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:             getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:           mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		MinIOEndpoint:              getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:             getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:             getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketFeedbackArchive: getEnv("MINIO_BUCKET_FEEDBACK_ARCHIVE", "feedback-archive"),
		DefaultRoundName:           getEnv("DEFAULT_ROUND_NAME", "screening"),
		EnhanceDebounce:            mustDuration(getEnv("FEEDBACK_ENHANCE_DEBOUNCE", "2s")),
		BatchConcurrency:           mustInt(getEnv("FEEDBACK_BATCH_CONCURRENCY", "1")),
		MatchCandidateLimit:        mustInt(getEnv("MATCH_CANDIDATE_LIMIT", "50")),
		ReminderLeadTime:           mustDuration(getEnv("MEETING_REMINDER_LEAD_TIME", "24h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if provider != "brevo" && provider != "smtp" {
		return nil, fmt.Errorf("EMAIL_PROVIDER must be brevo or smtp, got %q", provider)
	}
	if emailEnabled && !providerReady {
		return nil, fmt.Errorf("BREVO_API_KEY or SMTP_HOST is required when EMAIL_ENABLED is true")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.DefaultRoundName != "screening" && cfg.DefaultRoundName != "pitching" {
		return nil, fmt.Errorf("DEFAULT_ROUND_NAME must be screening or pitching")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
