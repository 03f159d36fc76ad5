package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr string

	// Registry holds remote metadata registry access settings.
	Registry Registry

	// Database holds the local metadata database settings.
	Database Database

	// LocalSyncEnabled decides whether batch runs write the local database
	// in addition to the registry. Passed explicitly into the orchestrator
	// constructor instead of being read from ambient settings.
	LocalSyncEnabled bool

	// AuditBrokers lists Kafka seed brokers for the audit trail. Empty
	// disables audit publishing.
	AuditBrokers []string
	AuditTopic   string
}

// Registry configures the remote metadata registry client.
type Registry struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Database configures the local relational store.
type Database struct {
	DSN string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("GROBI_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	baseURL := os.Getenv("GROBI_REGISTRY_URL")
	if baseURL == "" {
		baseURL = "https://api.datacite.org"
	}

	timeout := 30 * time.Second
	if raw := os.Getenv("GROBI_REGISTRY_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	var brokers []string
	if raw := os.Getenv("GROBI_AUDIT_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("GROBI_AUDIT_TOPIC")
	if topic == "" {
		topic = "grobi.sync.audit"
	}

	return Server{
		Addr: addr,
		Registry: Registry{
			BaseURL:  baseURL,
			Username: os.Getenv("GROBI_REGISTRY_USER"),
			Password: os.Getenv("GROBI_REGISTRY_PASSWORD"),
			Timeout:  timeout,
		},
		Database: Database{
			DSN: os.Getenv("GROBI_DATABASE_DSN"),
		},
		LocalSyncEnabled: os.Getenv("GROBI_LOCAL_SYNC") == "true",
		AuditBrokers:     brokers,
		AuditTopic:       topic,
	}
}
