package config

import "testing"

func validProdConfig() *AppConfig {
	return &AppConfig{
		DBDriver:   "postgres",
		DBURL:      "postgres://localhost/test",
		AppEnv:     "prod",
		CSRFKey:    "csrf-prod-value",
		Pepper:     "pepper-prod-value",
		TLSEnabled: true,
		Storage:    StorageConfig{Backend: "fs", Dir: "data/objects"},
		Limits:     LimitsConfig{DefaultPlan: "free", ReconcileCron: "@every 1h"},
		Invitations: InviteConfig{
			SigningKey: "invite-signing-key-test-value-0123456789",
		},
	}
}

func TestValidateAcceptsProdConfig(t *testing.T) {
	if err := Validate(validProdConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsDefaultSecretsInProd(t *testing.T) {
	cfg := validProdConfig()
	cfg.CSRFKey = defaultCSRFKey
	cfg.Pepper = defaultPepper
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for default secrets in prod")
	}
}

func TestValidateRejectsTLSDisabledInProd(t *testing.T) {
	cfg := validProdConfig()
	cfg.TLSEnabled = false
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for tls_disabled in prod")
	}
}

func TestValidateAllowsDevDefaults(t *testing.T) {
	cfg := validProdConfig()
	cfg.AppEnv = "dev"
	cfg.CSRFKey = defaultCSRFKey
	cfg.Pepper = defaultPepper
	cfg.TLSEnabled = false
	cfg.Invitations.SigningKey = "short"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error for dev defaults: %v", err)
	}
}

func TestValidateRejectsUnknownPlan(t *testing.T) {
	cfg := validProdConfig()
	cfg.Limits.DefaultPlan = "platinum"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown plan")
	}
}

func TestValidateRejectsBadCron(t *testing.T) {
	cfg := validProdConfig()
	cfg.Limits.ReconcileCron = "every now and then"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for bad cron spec")
	}
}

func TestValidateStorageBackends(t *testing.T) {
	cfg := validProdConfig()
	cfg.Storage.Backend = "s3"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for s3 without bucket")
	}
	cfg.Storage.S3.Bucket = "props"
	cfg.Storage.S3.AccessKeyID = "key"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for half-configured s3 credentials")
	}
	cfg.Storage.S3.SecretAccessKey = "secret"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Storage.Backend = "ftp"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestValidateSMTP(t *testing.T) {
	cfg := validProdConfig()
	cfg.SMTP = SMTPConfig{Host: "smtp.example.org", TLS: "starttls"}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for smtp without from")
	}
	cfg.SMTP.From = "props@example.org"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
