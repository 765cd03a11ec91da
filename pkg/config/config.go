package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "CYOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "CYOP_DB_DSN"
	EnvDBHost = "CYOP_DB_HOST"
	EnvDBUser = "CYOP_DB_USER"
	EnvDBName = "CYOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Storage StorageConfig
	Vision  VisionConfig
	Worker  WorkerConfig
	Webhook WebhookConfig
	Upload  UploadConfig
	Auth    AuthRateLimitConfig
	Flags   FeatureFlagsConfig
}

type AuthRateLimitConfig struct {
	TokenWindow  time.Duration `envconfig:"CYOP_AUTH_RATE_LIMIT_TOKEN_WINDOW" default:"5m"`
	TokenIPLimit int           `envconfig:"CYOP_AUTH_RATE_LIMIT_TOKEN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CYOP_AUTO_MIGRATE" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CYOP_APP_ENV" required:"true"`
	Port         string `envconfig:"CYOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CYOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CYOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CYOP_DB_DSN"`
	Driver string `envconfig:"CYOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CYOP_DB_HOST"`
	LegacyPort     int    `envconfig:"CYOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CYOP_DB_USER"`
	LegacyPassword string `envconfig:"CYOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"CYOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"CYOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CYOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CYOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CYOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CYOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CYOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CYOP_REDIS_ADDR"`
	Password     string        `envconfig:"CYOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"CYOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CYOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CYOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CYOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CYOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CYOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CYOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CYOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CYOP_JWT_EXPIRATION_MINUTES" default:"720"`
	RefreshTokenTTLMinutes int    `envconfig:"CYOP_JWT_REFRESH_TTL_MINUTES" default:"10080"`
	// ServiceKey guards the token issue endpoint; identity lives upstream.
	ServiceKey string `envconfig:"CYOP_AUTH_SERVICE_KEY"`
}

// RefreshTokenTTL returns the refresh session lifetime as a duration.
func (c JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLMinutes) * time.Minute
}

// StorageConfig describes the S3-compatible object store the signer talks to.
type StorageConfig struct {
	AccessKeyID     string        `envconfig:"CYOP_STORAGE_ACCESS_KEY_ID"`
	SecretAccessKey string        `envconfig:"CYOP_STORAGE_SECRET_ACCESS_KEY"`
	Bucket          string        `envconfig:"CYOP_STORAGE_BUCKET"`
	Region          string        `envconfig:"CYOP_STORAGE_REGION"`
	Endpoint        string        `envconfig:"CYOP_STORAGE_ENDPOINT"`
	PathStyle       bool          `envconfig:"CYOP_STORAGE_PATH_STYLE" default:"false"`
	PublicBaseURL   string        `envconfig:"CYOP_STORAGE_PUBLIC_BASE_URL"`
	UploadURLExpiry time.Duration `envconfig:"CYOP_STORAGE_UPLOAD_URL_EXPIRY" default:"15m"`
}

// Validate reports every missing required storage field at once so operators
// fix the environment in one pass.
func (s StorageConfig) Validate() error {
	missing := []string{}
	if strings.TrimSpace(s.AccessKeyID) == "" {
		missing = append(missing, "CYOP_STORAGE_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(s.SecretAccessKey) == "" {
		missing = append(missing, "CYOP_STORAGE_SECRET_ACCESS_KEY")
	}
	if strings.TrimSpace(s.Bucket) == "" {
		missing = append(missing, "CYOP_STORAGE_BUCKET")
	}
	if strings.TrimSpace(s.Region) == "" {
		missing = append(missing, "CYOP_STORAGE_REGION")
	}
	if len(missing) > 0 {
		return fmt.Errorf("storage configuration incomplete: %s required", strings.Join(missing, ", "))
	}
	return nil
}

// ResolveEndpoint falls back to the AWS regional endpoint when no explicit
// endpoint is configured.
func (s StorageConfig) ResolveEndpoint() string {
	endpoint := strings.TrimRight(strings.TrimSpace(s.Endpoint), "/")
	if endpoint != "" {
		return endpoint
	}
	return fmt.Sprintf("https://s3.%s.amazonaws.com", s.Region)
}

type VisionConfig struct {
	APIKey  string        `envconfig:"CYOP_VISION_API_KEY"`
	BaseURL string        `envconfig:"CYOP_VISION_BASE_URL" default:"https://api.openai.com/v1"`
	Timeout time.Duration `envconfig:"CYOP_VISION_TIMEOUT" default:"60s"`
}

type WorkerConfig struct {
	BatchLimit   int           `envconfig:"CYOP_WORKER_BATCH_LIMIT" default:"20"`
	Concurrency  int           `envconfig:"CYOP_WORKER_CONCURRENCY" default:"3"`
	PollInterval time.Duration `envconfig:"CYOP_WORKER_POLL_INTERVAL" default:"30s"`
	MetricsPort  string        `envconfig:"CYOP_WORKER_METRICS_PORT" default:"9091"`
}

type WebhookConfig struct {
	URL     string        `envconfig:"CYOP_WEBHOOK_URL"`
	Timeout time.Duration `envconfig:"CYOP_WEBHOOK_TIMEOUT" default:"10s"`
}

type UploadConfig struct {
	MaxUploadMB int `envconfig:"CYOP_MAX_UPLOAD_MB" default:"200"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
