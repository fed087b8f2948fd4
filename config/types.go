package config

import "time"

type AppConfig struct {
	DBDriver     string         `yaml:"db_driver" env:"PROPS_DB_DRIVER"`
	DBURL        string         `yaml:"db_url" env:"PROPS_DB_URL"`
	DBPath       string         `yaml:"db_path" env:"PROPS_DB_PATH"`
	ListenAddr   string         `yaml:"listen_addr" env:"PROPS_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	SessionTTL   time.Duration  `yaml:"session_ttl" env:"PROPS_SESSION_TTL" env-default:"12h"`
	AppEnv       string         `yaml:"app_env" env:"PROPS_APP_ENV" env-default:"prod"`
	CSRFKey      string         `yaml:"csrf_key" env:"PROPS_CSRF_KEY"`
	Pepper       string         `yaml:"pepper" env:"PROPS_PEPPER"`
	TLSEnabled   bool           `yaml:"tls_enabled" env:"PROPS_TLS_ENABLED"`
	TLSCert      string         `yaml:"tls_cert" env:"PROPS_TLS_CERT"`
	TLSKey       string         `yaml:"tls_key" env:"PROPS_TLS_KEY"`
	MetricsToken string         `yaml:"metrics_token" env:"PROPS_METRICS_TOKEN"`
	DefaultAdmin AdminConfig    `yaml:"default_admin"`
	Storage      StorageConfig  `yaml:"storage"`
	Limits       LimitsConfig   `yaml:"limits"`
	Invitations  InviteConfig   `yaml:"invitations"`
	SMTP         SMTPConfig     `yaml:"smtp"`
	Security     SecurityConfig `yaml:"security"`
	Labels       LabelsConfig   `yaml:"labels"`
}

type AdminConfig struct {
	Username string `yaml:"username" env:"PROPS_ADMIN_USERNAME" env-default:"admin"`
	Password string `yaml:"password" env:"PROPS_ADMIN_PASSWORD"`
	Email    string `yaml:"email" env:"PROPS_ADMIN_EMAIL"`
}

// StorageConfig selects where prop images, show logos and feedback screenshots go.
type StorageConfig struct {
	Backend        string   `yaml:"backend" env:"PROPS_STORAGE_BACKEND" env-default:"fs"`
	Dir            string   `yaml:"dir" env:"PROPS_STORAGE_DIR" env-default:"data/objects"`
	UploadMaxBytes int64    `yaml:"upload_max_bytes" env:"PROPS_UPLOAD_MAX_BYTES"`
	S3             S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket" env:"PROPS_S3_BUCKET"`
	Region          string `yaml:"region" env:"PROPS_S3_REGION" env-default:"us-east-1"`
	Endpoint        string `yaml:"endpoint" env:"PROPS_S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"PROPS_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"PROPS_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"PROPS_S3_USE_PATH_STYLE"`
}

type LimitsConfig struct {
	DefaultPlan      string `yaml:"default_plan" env:"PROPS_DEFAULT_PLAN" env-default:"free"`
	ReconcileCron    string `yaml:"reconcile_cron" env:"PROPS_RECONCILE_CRON" env-default:"@every 1h"`
	ReconcileOnStart bool   `yaml:"reconcile_on_start" env:"PROPS_RECONCILE_ON_START"`
}

type InviteConfig struct {
	SigningKey  string        `yaml:"signing_key" env:"PROPS_INVITE_SIGNING_KEY"`
	TTL         time.Duration `yaml:"ttl" env:"PROPS_INVITE_TTL" env-default:"168h"`
	PublicURL   string        `yaml:"public_url" env:"PROPS_PUBLIC_URL"`
	RatePerHour int           `yaml:"rate_per_hour" env:"PROPS_INVITE_RATE_PER_HOUR" env-default:"30"`
	Burst       int           `yaml:"burst" env:"PROPS_INVITE_BURST" env-default:"5"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" env:"PROPS_SMTP_HOST"`
	Port     int    `yaml:"port" env:"PROPS_SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"PROPS_SMTP_USERNAME"`
	Password string `yaml:"password" env:"PROPS_SMTP_PASSWORD"`
	From     string `yaml:"from" env:"PROPS_SMTP_FROM"`
	FromName string `yaml:"from_name" env:"PROPS_SMTP_FROM_NAME" env-default:"Props Bible"`
	TLS      string `yaml:"tls" env:"PROPS_SMTP_TLS" env-default:"starttls"`
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type SecurityConfig struct {
	TrustedProxies  []string `yaml:"trusted_proxies" env:"PROPS_TRUSTED_PROXIES" env-separator:","`
	OnlineWindowSec int      `yaml:"online_window_sec"`
	LoginRatePerMin int      `yaml:"login_rate_per_min" env:"PROPS_LOGIN_RATE_PER_MIN" env-default:"10"`
}

type LabelsConfig struct {
	CacheSize int           `yaml:"cache_size" env:"PROPS_LABEL_CACHE_SIZE" env-default:"512"`
	CacheTTL  time.Duration `yaml:"cache_ttl" env:"PROPS_LABEL_CACHE_TTL" env-default:"1h"`
	QRSize    int           `yaml:"qr_size" env:"PROPS_LABEL_QR_SIZE" env-default:"256"`
}

func (c *AppConfig) IsDev() bool {
	if c == nil {
		return false
	}
	return c.AppEnv == "dev"
}
