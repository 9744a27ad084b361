package config

import (
	"time"

	"github.com/mailbridge/syncstack/internal/logger"
	"github.com/mailbridge/syncstack/internal/tracing"
)

type AppConfig struct {
	APIPort string `env:"PORT,required" envDefault:"12222"`
	APIKey  string `env:"API_KEY,required"`
	Logger  *logger.Config
	Tracing *tracing.JaegerConfig
}

type MailstackDatabaseConfig struct {
	Host            string `env:"MAILSTACK_POSTGRES_HOST,required"`
	Port            string `env:"MAILSTACK_POSTGRES_PORT,required"`
	User            string `env:"MAILSTACK_POSTGRES_USER,required"`
	DBName          string `env:"MAILSTACK_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILSTACK_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILSTACK_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"MAILSTACK_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"MAILSTACK_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"MAILSTACK_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILSTACK_POSTGRES_SSL_MODE"`
}

// SyncEngineConfig bounds the Supervisor/Folder Sync Unit tree a single
// worker process runs, plus the Cluster Coordinator's leader election and
// account-assignment rebalancing.
type SyncEngineConfig struct {
	WorkerID                   string        `env:"WORKER_ID"`
	ClusterMode                string        `env:"CLUSTER_MODE" envDefault:"single"` // single|cluster
	MaxAccountsPerWorker       int           `env:"SYNC_MAX_ACCOUNTS_PER_WORKER" envDefault:"200"`
	MaxSessionsPerAccount      int           `env:"SYNC_MAX_SESSIONS_PER_ACCOUNT" envDefault:"4"`
	MaxConnectionsPerServer    int           `env:"SYNC_MAX_CONNECTIONS_PER_SERVER" envDefault:"20"`
	MaxNewConnectionsPerWindow int           `env:"SYNC_MAX_NEW_CONNECTIONS_PER_WINDOW" envDefault:"10"`
	NewConnectionWindow        time.Duration `env:"SYNC_NEW_CONNECTION_WINDOW" envDefault:"1s"`
	ConnPoolCapacityPerAccount int           `env:"SYNC_CONN_POOL_CAPACITY_PER_ACCOUNT" envDefault:"4"`
	ConnPoolIdleTTL            time.Duration `env:"SYNC_CONN_POOL_IDLE_TTL" envDefault:"5m"`
	BackfillBatchSize          int           `env:"SYNC_BACKFILL_BATCH_SIZE" envDefault:"200"`
	HeartbeatInterval          time.Duration `env:"SYNC_HEARTBEAT_INTERVAL" envDefault:"5s"`
	LeaseTTL                   time.Duration `env:"SYNC_LEASE_TTL" envDefault:"30s"`
	RebalanceInterval          time.Duration `env:"SYNC_REBALANCE_INTERVAL" envDefault:"15s"`
	CommandTimeout             time.Duration `env:"SYNC_IMAP_COMMAND_TIMEOUT" envDefault:"30s"`
	IdleRenewalInterval        time.Duration `env:"SYNC_IDLE_RENEWAL_INTERVAL" envDefault:"28m"`
	ReconnectBaseBackoff       time.Duration `env:"SYNC_RECONNECT_BASE_BACKOFF" envDefault:"2s"`
	ReconnectMaxBackoff        time.Duration `env:"SYNC_RECONNECT_MAX_BACKOFF" envDefault:"5m"`
}

// WebhookConfig governs outbound delivery of tenant webhook notifications.
type WebhookConfig struct {
	MaxAttempts       int           `env:"WEBHOOK_MAX_ATTEMPTS" envDefault:"12"`
	RequestTimeout    time.Duration `env:"WEBHOOK_REQUEST_TIMEOUT" envDefault:"30s"`
	BaseBackoff       time.Duration `env:"WEBHOOK_BASE_BACKOFF" envDefault:"30s"`
	MaxBackoff        time.Duration `env:"WEBHOOK_MAX_BACKOFF" envDefault:"1h"`
	DispatchBatchSize int           `env:"WEBHOOK_DISPATCH_BATCH_SIZE" envDefault:"50"`
	PollInterval      time.Duration `env:"WEBHOOK_POLL_INTERVAL" envDefault:"2s"`
}
