package module

import (
	"time"

	"slipway/internal/platform/config"
)

// Options holds the raw runner configuration before wiring
type Options struct {
	MaxRetries int
	RetryBase  time.Duration

	RecordTimeout   time.Duration
	TransferTimeout time.Duration
	QueryTimeout    time.Duration

	StaleAfter        time.Duration
	AuditPollInterval time.Duration
	AuditMaxWait      time.Duration

	EnableLeases  bool
	DelayPerCycle time.Duration

	// Search source
	SearchHost      string
	SearchPort      int
	SearchIndex     string
	SearchUser      string
	SearchPassword  string
	SearchTimestamp string

	// Stage bucket
	StageRegion    string
	StageEndpoint  string
	StageAccessKey string
	StageSecretKey string
	StagePathStyle bool

	// Warehouse s3 reader
	WarehouseEndpoint string
	WarehouseFormat   string
}

// FromConfig reads runner options with the RUNNER_ prefix
func FromConfig(cfg config.Conf) Options {
	p := cfg.Prefix("RUNNER_")
	return Options{
		MaxRetries: p.MayInt("MAX_RETRIES", 3),
		RetryBase:  p.MayDuration("RETRY_BASE", 500*time.Millisecond),

		RecordTimeout:   p.MayDuration("RECORD_TIMEOUT", 45*time.Minute),
		TransferTimeout: p.MayDuration("TRANSFER_TIMEOUT", 30*time.Minute),
		QueryTimeout:    p.MayDuration("QUERY_TIMEOUT", 2*time.Minute),

		StaleAfter:        p.MayDuration("STALE_AFTER", 2*time.Hour),
		AuditPollInterval: p.MayDuration("AUDIT_POLL_INTERVAL", 2*time.Minute),
		AuditMaxWait:      p.MayDuration("AUDIT_MAX_WAIT", 10*time.Minute),

		EnableLeases:  p.MayBool("ENABLE_LEASES", true),
		DelayPerCycle: p.MayDuration("DELAY_PER_CYCLE", 0),

		SearchHost:      p.MustString("SEARCH_HOST"),
		SearchPort:      p.MayInt("SEARCH_PORT", 9200),
		SearchIndex:     p.MustString("SEARCH_INDEX"),
		SearchUser:      p.MayString("SEARCH_USER", ""),
		SearchPassword:  p.MayString("SEARCH_PASSWORD", ""),
		SearchTimestamp: p.MayString("SEARCH_TIMESTAMP_FIELD", "@timestamp"),

		StageRegion:    p.MayString("STAGE_REGION", "us-east-1"),
		StageEndpoint:  p.MayString("STAGE_ENDPOINT", ""),
		StageAccessKey: p.MayString("STAGE_ACCESS_KEY", ""),
		StageSecretKey: p.MayString("STAGE_SECRET_KEY", ""),
		StagePathStyle: p.MayBool("STAGE_PATH_STYLE", false),

		WarehouseEndpoint: p.MustString("WAREHOUSE_S3_ENDPOINT"),
		WarehouseFormat:   p.MayString("WAREHOUSE_S3_FORMAT", "JSONEachRow"),
	}
}
