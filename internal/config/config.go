package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the orchestrator
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Rule source
		RuleFile string

		// Redis (audit stream + idempotency gate)
		Redis RedisConfig

		// Consensus
		Consensus ConsensusConfig

		// Retry strategy
		Retry RetryConfig

		// Archive
		ArchiveBucketURL string
		ArchivePrefix    string

		// Engine
		AsyncQueueSize  int
		ShutdownTimeout time.Duration
	}

	// RedisConfig holds connection settings for the Redis-backed adapters
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	// ConsensusConfig controls the consensus coordinator
	ConsensusConfig struct {
		RequiredVotes     int
		WaitTimeout       time.Duration
		DistinctApprovers bool
	}

	// RetryConfig controls the RETRY strategy
	RetryConfig struct {
		MaxAttempts int
		Backoff     time.Duration
	}
)

const (
	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisDB     = 0
	DefaultRedisPrefix = "ruleflow"

	DefaultRequiredVotes        = 2
	DefaultConsensusWaitTimeout = 60 * time.Second
	MaxRequiredVotes            = 100

	DefaultRetryMaxAttempts = 3
	DefaultRetryBackoff     = time.Second
	MaxRetryMaxAttempts     = 100

	DefaultAsyncQueueSize  = 256
	DefaultShutdownTimeout = 10 * time.Second
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidRequiredVotes = errors.New(
		"consensus required votes must be positive",
	)
	ErrInvalidWaitTimeout = errors.New(
		"consensus wait timeout must be positive",
	)
	ErrInvalidMaxAttempts = errors.New(
		"retry max attempts must be positive",
	)
	ErrInvalidRetryBackoff = errors.New("retry backoff must be positive")
	ErrInvalidEnvInt       = errors.New("invalid integer environment value")
)

// NewDefaultConfig creates a configuration with sensible defaults for all
// engine settings and adapter endpoints
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:  DefaultAPIHost,
		APIPort:  DefaultAPIPort,
		LogLevel: "info",
		Redis: RedisConfig{
			Addr:   DefaultRedisAddr,
			DB:     DefaultRedisDB,
			Prefix: DefaultRedisPrefix,
		},
		Consensus: ConsensusConfig{
			RequiredVotes: DefaultRequiredVotes,
			WaitTimeout:   DefaultConsensusWaitTimeout,
		},
		Retry: RetryConfig{
			MaxAttempts: DefaultRetryMaxAttempts,
			Backoff:     DefaultRetryBackoff,
		},
		AsyncQueueSize:  DefaultAsyncQueueSize,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if ruleFile := os.Getenv("RULE_FILE"); ruleFile != "" {
		c.RuleFile = ruleFile
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.Redis.Prefix = prefix
	}
	if bucketURL := os.Getenv("ARCHIVE_BUCKET_URL"); bucketURL != "" {
		c.ArchiveBucketURL = bucketURL
	}
	if prefix := os.Getenv("ARCHIVE_PREFIX"); prefix != "" {
		c.ArchivePrefix = prefix
	}
	if distinct := os.Getenv("CONSENSUS_DISTINCT_APPROVERS"); distinct != "" {
		c.Consensus.DistinctApprovers = distinct == "true" || distinct == "1"
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt("REDIS_DB", &c.Redis.DB, 0, 15); err != nil {
		return err
	}
	if err := loadEnvInt(
		"CONSENSUS_REQUIRED_VOTES", &c.Consensus.RequiredVotes,
		0, MaxRequiredVotes,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_MAX_ATTEMPTS", &c.Retry.MaxAttempts, 0, MaxRetryMaxAttempts,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"CONSENSUS_WAIT_TIMEOUT", &c.Consensus.WaitTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvDuration("RETRY_BACKOFF", &c.Retry.Backoff); err != nil {
		return err
	}
	return loadEnvDuration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.Consensus.RequiredVotes <= 0 {
		return ErrInvalidRequiredVotes
	}
	if c.Consensus.WaitTimeout <= 0 {
		return ErrInvalidWaitTimeout
	}
	if c.Retry.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.Retry.Backoff <= 0 {
		return ErrInvalidRetryBackoff
	}
	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// stores it when it falls within (min, max]
func loadEnvInt(key string, target *int, minVal, maxVal int) error {
	str := os.Getenv(key)
	if str == "" {
		return nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidEnvInt, key, str)
	}
	if val <= minVal || val > maxVal {
		return fmt.Errorf("%w: %s=%d out of range", ErrInvalidEnvInt, key, val)
	}
	*target = val
	return nil
}

func loadEnvDuration(key string, target *time.Duration) error {
	str := os.Getenv(key)
	if str == "" {
		return nil
	}
	val, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidEnvInt, key, str)
	}
	if val <= 0 {
		return fmt.Errorf("%w: %s=%q must be positive",
			ErrInvalidEnvInt, key, str)
	}
	*target = val
	return nil
}
