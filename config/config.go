// Package config loads the monitor's runtime configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/lgadye/warn-monitor/types"
)

// Config captures runtime configuration for one monitor process.
type Config struct {
	WarnPageURL         string
	TargetCompany       string
	FuzzyMatchThreshold float64

	StateBackend    string
	StateFile       string
	S3Bucket        string
	S3Key           string
	S3Region        string
	S3Profile       string
	S3UsePathStyle  bool
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	RedisAddr string
	RedisPass string
	RedisDB   int
	LockKey   string
	LockTTL   time.Duration

	EmailAlerts        bool
	SMTPServer         string
	SMTPPort           int
	SMTPSenderEmail    string
	SMTPSenderPassword string
	SMTPRecipientEmail string

	KafkaBrokers []string
	KafkaTopic   string

	HTTPTimeout     time.Duration
	DownloadTimeout time.Duration
	Port            string
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		WarnPageURL:         DefaultWarnPageURL,
		TargetCompany:       DefaultTargetCompany,
		FuzzyMatchThreshold: DefaultFuzzyMatchThreshold,
		StateBackend:        BackendFile,
		StateFile:           DefaultStateFile,
		S3Key:               DefaultS3Key,
		MongoDatabase:       DefaultMongoDatabase,
		MongoCollection:     DefaultMongoCollection,
		LockKey:             DefaultLockKey,
		LockTTL:             DefaultLockTTL,
		EmailAlerts:         true,
		SMTPServer:          DefaultSMTPServer,
		SMTPPort:            DefaultSMTPPort,
		KafkaTopic:          DefaultKafkaTopic,
		HTTPTimeout:         DefaultHTTPTimeout,
		DownloadTimeout:     DefaultDownloadTimeout,
		Port:                DefaultPort,
	}
}

// FromEnv creates a configuration sourced from environment variables,
// loading .env first when present. Malformed values are reported as
// ConfigurationError.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	cfg.WarnPageURL = getEnv("WARN_PAGE_URL", cfg.WarnPageURL)
	cfg.TargetCompany = getEnv("TARGET_COMPANY", cfg.TargetCompany)
	cfg.StateBackend = strings.ToLower(getEnv("STATE_BACKEND", cfg.StateBackend))
	cfg.StateFile = getEnv("STATE_FILE", cfg.StateFile)
	cfg.S3Bucket = getEnv("S3_BUCKET", "")
	cfg.S3Key = getEnv("S3_KEY", cfg.S3Key)
	cfg.S3Region = getEnv("S3_REGION", "")
	cfg.S3Profile = getEnv("S3_PROFILE", "")
	cfg.S3UsePathStyle = strings.EqualFold(getEnv("S3_USE_PATH_STYLE", ""), "true")
	cfg.MongoURI = getEnv("MONGO_URI", "")
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.MongoCollection = getEnv("MONGO_COLLECTION", cfg.MongoCollection)
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPass = getEnv("REDIS_PASS", "")
	cfg.LockKey = getEnv("LOCK_KEY", cfg.LockKey)
	cfg.SMTPServer = getEnv("SMTP_SERVER", cfg.SMTPServer)
	cfg.SMTPSenderEmail = getEnv("SMTP_SENDER_EMAIL", "")
	cfg.SMTPSenderPassword = getEnv("SMTP_SENDER_PASSWORD", "")
	cfg.SMTPRecipientEmail = getEnv("SMTP_RECIPIENT_EMAIL", "")
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.Port = getEnv("PORT", cfg.Port)

	if brokers := getEnv("KAFKA_BOOTSTRAP_SERVERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.FuzzyMatchThreshold, err = getFloat("FUZZY_MATCH_THRESHOLD", cfg.FuzzyMatchThreshold); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", cfg.SMTPPort); err != nil {
		return Config{}, err
	}
	if cfg.EmailAlerts, err = getBool("EMAIL_ALERTS", cfg.EmailAlerts); err != nil {
		return Config{}, err
	}
	if cfg.LockTTL, err = getSeconds("LOCK_TTL_SECONDS", cfg.LockTTL); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = getSeconds("HTTP_TIMEOUT_SECONDS", cfg.HTTPTimeout); err != nil {
		return Config{}, err
	}
	if cfg.DownloadTimeout, err = getSeconds("DOWNLOAD_TIMEOUT_SECONDS", cfg.DownloadTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the values the monitoring cycle depends on. It runs
// before any state is read.
func (c Config) Validate() error {
	if strings.TrimSpace(c.TargetCompany) == "" {
		return &types.ConfigurationError{Field: "TARGET_COMPANY", Reason: "must not be empty"}
	}
	if c.FuzzyMatchThreshold < 0 || c.FuzzyMatchThreshold > 100 {
		return &types.ConfigurationError{
			Field:  "FUZZY_MATCH_THRESHOLD",
			Reason: fmt.Sprintf("%g is outside [0, 100]", c.FuzzyMatchThreshold),
		}
	}

	switch c.StateBackend {
	case BackendFile:
		if strings.TrimSpace(c.StateFile) == "" {
			return &types.ConfigurationError{Field: "STATE_FILE", Reason: "must not be empty"}
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return &types.ConfigurationError{Field: "S3_BUCKET", Reason: "required when STATE_BACKEND=s3"}
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return &types.ConfigurationError{Field: "MONGO_URI", Reason: "required when STATE_BACKEND=mongo"}
		}
	default:
		return &types.ConfigurationError{Field: "STATE_BACKEND", Reason: fmt.Sprintf("unknown backend %q", c.StateBackend)}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &types.ConfigurationError{Field: key, Reason: fmt.Sprintf("not a number: %q", raw)}
	}
	return v, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &types.ConfigurationError{Field: key, Reason: fmt.Sprintf("not an integer: %q", raw)}
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &types.ConfigurationError{Field: key, Reason: fmt.Sprintf("not a boolean: %q", raw)}
	}
	return v, nil
}

func getSeconds(key string, fallback time.Duration) (time.Duration, error) {
	if getEnv(key, "") == "" {
		return fallback, nil
	}
	n, err := getInt(key, 0)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, &types.ConfigurationError{Field: key, Reason: "must be positive"}
	}
	return time.Duration(n) * time.Second, nil
}
