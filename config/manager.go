package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	defaultConfigPath = "config/app.yaml"
	envPrefix         = "PROPS_"
)

func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	cfgPath := resolveConfigPath()
	if st, err := os.Stat(cfgPath); err == nil && !st.IsDir() {
		if err := cleanenv.ReadConfig(cfgPath, cfg); err != nil {
			return nil, err
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	applyEnvAliases(cfg)
	normalizeConfig(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvAliases(cfg *AppConfig) {
	if cfg == nil {
		return
	}
	if v := getEnv("CSRF_KEY"); v != "" {
		cfg.CSRFKey = strings.TrimSpace(v)
	}
	if v := getEnv("PEPPER"); v != "" {
		cfg.Pepper = strings.TrimSpace(v)
	}
	if v := getEnv("DATABASE_URL"); v != "" && cfg.DBURL == "" {
		cfg.DBURL = strings.TrimSpace(v)
	}
	if v := getEnv("ENV", "APP_ENV"); v != "" {
		cfg.AppEnv = strings.TrimSpace(v)
	}
	if v := getEnv("PORT", envPrefix+"PORT"); v != "" {
		cfg.ListenAddr = listenAddrWithPort(cfg.ListenAddr, v)
	}
	if v := getEnv("DATA_PATH", envPrefix+"DATA_PATH"); v != "" {
		cfg.Storage.Dir = filepathJoin(strings.TrimSpace(v), "objects")
	}
	if v := getEnv("UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.Storage.UploadMaxBytes = n
		}
	}
	if v := getEnv("AWS_REGION"); v != "" && cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = strings.TrimSpace(v)
	}
}

func normalizeConfig(cfg *AppConfig) {
	if cfg == nil {
		return
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.DBURL = strings.TrimSpace(cfg.DBURL)
	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.CSRFKey = strings.TrimSpace(cfg.CSRFKey)
	cfg.Pepper = strings.TrimSpace(cfg.Pepper)
	cfg.MetricsToken = strings.TrimSpace(cfg.MetricsToken)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Storage.Dir = strings.TrimSpace(cfg.Storage.Dir)
	cfg.Storage.S3.Bucket = strings.TrimSpace(cfg.Storage.S3.Bucket)
	cfg.Storage.S3.Endpoint = strings.TrimSpace(cfg.Storage.S3.Endpoint)
	cfg.Limits.DefaultPlan = strings.ToLower(strings.TrimSpace(cfg.Limits.DefaultPlan))
	cfg.Limits.ReconcileCron = strings.TrimSpace(cfg.Limits.ReconcileCron)
	cfg.Invitations.SigningKey = strings.TrimSpace(cfg.Invitations.SigningKey)
	cfg.Invitations.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.Invitations.PublicURL), "/")
	cfg.SMTP.Host = strings.TrimSpace(cfg.SMTP.Host)
	cfg.SMTP.From = strings.TrimSpace(cfg.SMTP.From)
	cfg.SMTP.TLS = strings.ToLower(strings.TrimSpace(cfg.SMTP.TLS))
	if cfg.AppEnv == "" {
		cfg.AppEnv = "prod"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "0.0.0.0:8080"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "fs"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = filepathJoin("data", "objects")
	}
	if cfg.Storage.UploadMaxBytes <= 0 {
		cfg.Storage.UploadMaxBytes = 10 * 1024 * 1024
	}
	if cfg.Limits.DefaultPlan == "" {
		cfg.Limits.DefaultPlan = "free"
	}
	if cfg.Limits.ReconcileCron == "" {
		cfg.Limits.ReconcileCron = "@every 1h"
	}
	if cfg.Invitations.TTL <= 0 {
		cfg.Invitations.TTL = 7 * 24 * time.Hour
	}
	if cfg.Invitations.RatePerHour <= 0 {
		cfg.Invitations.RatePerHour = 30
	}
	if cfg.Invitations.Burst <= 0 {
		cfg.Invitations.Burst = 5
	}
	if cfg.SMTP.Port <= 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.TLS == "" {
		cfg.SMTP.TLS = "starttls"
	}
	if cfg.Security.OnlineWindowSec <= 0 {
		cfg.Security.OnlineWindowSec = 300
	}
	if cfg.Security.LoginRatePerMin <= 0 {
		cfg.Security.LoginRatePerMin = 10
	}
	if cfg.Labels.CacheSize <= 0 {
		cfg.Labels.CacheSize = 512
	}
	if cfg.Labels.CacheTTL <= 0 {
		cfg.Labels.CacheTTL = time.Hour
	}
	if cfg.Labels.QRSize <= 0 {
		cfg.Labels.QRSize = 256
	}
	// dev keeps working without a dedicated invitation key
	if cfg.Invitations.SigningKey == "" && cfg.IsDev() {
		cfg.Invitations.SigningKey = cfg.CSRFKey
	}
}

func getEnv(keys ...string) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func resolveConfigPath() string {
	if v := getEnv("APP_CONFIG", envPrefix+"APP_CONFIG"); v != "" {
		return strings.TrimSpace(v)
	}
	return defaultConfigPath
}

func listenAddrWithPort(currentAddr, portRaw string) string {
	port := strings.TrimSpace(portRaw)
	if port == "" {
		return currentAddr
	}
	if _, err := strconv.Atoi(port); err != nil {
		return currentAddr
	}
	host := "0.0.0.0"
	parts := strings.Split(strings.TrimSpace(currentAddr), ":")
	if len(parts) > 1 {
		host = strings.Join(parts[:len(parts)-1], ":")
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return host + ":" + port
}

func filepathJoin(base, leaf string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return leaf
	}
	base = strings.TrimRight(base, "/\\")
	return base + string(os.PathSeparator) + leaf
}
