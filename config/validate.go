package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

const (
	defaultCSRFKey = "FWgaRnHOh8Nep_kGLCTiBXIB2k72_G2Ch1Q7HOM0zIo"
	defaultPepper  = "BPY89KfAWweJM5p2Vh0Zwg_-nm7wSlS8La8DxPWFAlg"
)

var knownPlans = map[string]struct{}{
	"free": {}, "starter": {}, "standard": {}, "pro": {}, "unlimited": {},
}

func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch driver {
	case "", "postgres", "pg":
		if strings.TrimSpace(cfg.DBURL) == "" {
			return fmt.Errorf("db_url must be set for postgres driver")
		}
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return fmt.Errorf("db_path must be set for sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported db_driver: %s", cfg.DBDriver)
	}
	appEnv := strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	csrk := strings.TrimSpace(cfg.CSRFKey)
	pep := strings.TrimSpace(cfg.Pepper)
	if csrk == "" || pep == "" {
		return fmt.Errorf("csrf_key and pepper must be set via env")
	}
	if _, ok := knownPlans[cfg.Limits.DefaultPlan]; !ok {
		return fmt.Errorf("unknown limits.default_plan: %s", cfg.Limits.DefaultPlan)
	}
	if _, err := cron.ParseStandard(cfg.Limits.ReconcileCron); err != nil {
		return fmt.Errorf("invalid limits.reconcile_cron: %w", err)
	}
	switch cfg.Storage.Backend {
	case "fs":
		if strings.TrimSpace(cfg.Storage.Dir) == "" {
			return fmt.Errorf("storage.dir must be set for fs backend")
		}
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket must be set for s3 backend")
		}
		if (cfg.Storage.S3.AccessKeyID == "") != (cfg.Storage.S3.SecretAccessKey == "") {
			return fmt.Errorf("storage.s3 access_key_id and secret_access_key must be set together")
		}
	default:
		return fmt.Errorf("unsupported storage.backend: %s", cfg.Storage.Backend)
	}
	if cfg.SMTP.Host != "" {
		if cfg.SMTP.From == "" {
			return fmt.Errorf("smtp.from must be set when smtp.host is configured")
		}
		switch cfg.SMTP.TLS {
		case "none", "starttls", "tls":
		default:
			return fmt.Errorf("unsupported smtp.tls: %s", cfg.SMTP.TLS)
		}
	}
	if strings.TrimSpace(cfg.Invitations.SigningKey) == "" {
		return fmt.Errorf("invitations.signing_key must be set")
	}
	if appEnv != "dev" {
		if isDefaultSecret(csrk) || isDefaultSecret(pep) {
			return fmt.Errorf("default secrets are not allowed outside APP_ENV=dev")
		}
		if len(cfg.Invitations.SigningKey) < 32 {
			return fmt.Errorf("invitations.signing_key must be at least 32 characters")
		}
		if !cfg.TLSEnabled {
			return fmt.Errorf("tls_enabled=false is only allowed in APP_ENV=dev")
		}
	}
	return nil
}

func isDefaultSecret(val string) bool {
	switch val {
	case defaultCSRFKey, defaultPepper:
		return true
	default:
		return false
	}
}
