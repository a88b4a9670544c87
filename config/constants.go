package config

import "time"

// Source and matching defaults
const (
	// DefaultWarnPageURL is the California EDD WARN listing
	DefaultWarnPageURL = "https://edd.ca.gov/en/jobs_and_training/Layoff_Services_WARN/"

	DefaultTargetCompany = "Anthropic"

	// DefaultFuzzyMatchThreshold is on the 0-100 similarity scale
	DefaultFuzzyMatchThreshold = 85.0
)

// State backend constants
const (
	BackendFile  = "file"
	BackendS3    = "s3"
	BackendMongo = "mongo"

	DefaultStateFile       = "warn_state.json"
	DefaultS3Key           = "warn_state.json"
	DefaultMongoDatabase   = "warnmonitor"
	DefaultMongoCollection = "state"
)

// Run lock constants
const (
	DefaultLockKey = "warnmonitor:lock"
	DefaultLockTTL = 10 * time.Minute
)

// Notification constants
const (
	DefaultSMTPServer = "smtp.gmail.com"
	DefaultSMTPPort   = 587
	DefaultKafkaTopic = "warn-notices"
)

// Timeouts and server
const (
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultDownloadTimeout = 60 * time.Second
	DefaultPort            = "8080"
)
