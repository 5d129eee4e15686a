package config

import (
	"os"
	"strings"
	"time"
)

// DraftValidity is the window after which a persisted onboarding draft is
// discarded instead of restored.
var DraftValidity = 30 * time.Minute

// Server captures process-level configuration.
type Server struct {
	Addr        string
	RedisURL    string
	PostgresDSN string
	KratosURL   string

	KafkaBrokers []string
	AuditTopic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CAREBRIDGE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	auditTopic := os.Getenv("CAREBRIDGE_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "carebridge.onboarding.audit"
	}

	var brokers []string
	if raw := os.Getenv("CAREBRIDGE_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:         addr,
		RedisURL:     os.Getenv("CAREBRIDGE_REDIS_URL"),
		PostgresDSN:  os.Getenv("CAREBRIDGE_POSTGRES_DSN"),
		KratosURL:    os.Getenv("CAREBRIDGE_KRATOS_URL"),
		KafkaBrokers: brokers,
		AuditTopic:   auditTopic,
	}
}
