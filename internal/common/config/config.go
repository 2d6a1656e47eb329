// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Admissions    AdmissionsAPIConfig     `mapstructure:"admissions_api"`
	Wizard        WizardConfig            `mapstructure:"wizard"`
	Drafts        DraftStoreConfig        `mapstructure:"drafts"`
	Catalog       CatalogConfig           `mapstructure:"catalog"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address           string `mapstructure:"address"`
	ReadHeaderTimeout int    `mapstructure:"read_header_timeout"` // milliseconds
	MaxUploadBytes    int64  `mapstructure:"max_upload_bytes"`
	SessionIdleTTL    int    `mapstructure:"session_idle_ttl"` // seconds, 0 keeps sessions until deleted
}

// AdmissionsAPIConfig points at the external admissions backend.
type AdmissionsAPIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
	ProgramsPath   string `mapstructure:"programs_path"`
	UploadPath     string `mapstructure:"upload_path"`
	PaymentInit    string `mapstructure:"payment_initiate_path"`
	PaymentVerify  string `mapstructure:"payment_verify_path"`
	SubmissionPath string `mapstructure:"submission_path"`
}

// WizardConfig holds the rules that differ between deployments.
type WizardConfig struct {
	Institutions            []string `mapstructure:"institutions"`
	ApplicationFee          int      `mapstructure:"application_fee"`
	RequirePaymentReference bool     `mapstructure:"require_payment_reference"`
}

// DraftStoreConfig selects where in-progress drafts are kept.
type DraftStoreConfig struct {
	Backend   string `mapstructure:"backend"` // memory | file | redis | postgres
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // seconds, redis only
	Directory string `mapstructure:"directory"`
	Table     string `mapstructure:"table"`
}

type CatalogConfig struct {
	CacheEnabled bool   `mapstructure:"cache_enabled"`
	CacheTTL     int    `mapstructure:"cache_ttl"` // seconds
	SearchIndex  string `mapstructure:"search_index"`
	SearchSize   int    `mapstructure:"search_size"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	ProcessID      string `mapstructure:"process_id"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// Enabled reports whether any Elasticsearch node is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// NotificationConfig holds settings for applicant confirmations.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region   string `mapstructure:"region"`
		Endpoint string `mapstructure:"endpoint"` // localstack and other local stacks
	} `mapstructure:"aws"`
}

// Enabled reports whether at least one channel is on.
func (n NotificationConfig) Enabled() bool {
	return n.Email.Enabled || n.SMS.Enabled
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
