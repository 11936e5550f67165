package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr      string `envconfig:"LISTEN_ADDR" default:"0.0.0.0:8080"`
	APIKey          string `envconfig:"API_KEY" default:""`
	CertificateRoot string `envconfig:"CERT_ROOT" default:"/app/certs"`

	// Session broker settings
	ReapInterval   string `envconfig:"REAP_INTERVAL" default:"1s"`
	BannerDelay    string `envconfig:"BANNER_DELAY" default:"500ms"`
	ConnectTimeout string `envconfig:"CONNECT_TIMEOUT" default:"30s"`

	// Audit settings
	AuditEnabled       bool   `envconfig:"AUDIT_ENABLED" default:"true"`
	DatabasePath       string `envconfig:"DATABASE_PATH" default:"/app/data/sshttp.db"`
	AuditRetentionDays int    `envconfig:"AUDIT_RETENTION_DAYS" default:"90"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("SSHTTP", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}

// ParseDuration parses a duration setting, falling back to def when the
// value is empty or malformed.
func ParseDuration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
