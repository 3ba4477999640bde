package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"JWT_SECRET", "DB_PATH", "HTTP_ADDRESS", "GRPC_ADDRESS", "STORE_DRIVER", "MONGODB_URI", "OTP_LENGTH", "OTP_TTL", "OTP_SWEEP_BATCH", "DELIVERY_RADIUS_KM"} {
		os.Unsetenv(k)
	}
	// Point at a file that does not exist so a developer's .env does not leak in.
	t.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
}

func TestLoadWithDefaults_Succeeds(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.HTTP.Address == "" || cfg.Database.Path == "" || cfg.Auth.JWTSecret == "" {
		t.Fatalf("unexpected empty defaults: %+v", cfg)
	}
	if cfg.Delivery.OTPLength != 4 || cfg.Delivery.OTPTTL != time.Hour || cfg.Delivery.SweepInterval != 2*time.Hour {
		t.Fatalf("unexpected delivery defaults: %+v", cfg.Delivery)
	}
	if cfg.Delivery.RadiusKm != 5 {
		t.Fatalf("radius default = %v, want 5", cfg.Delivery.RadiusKm)
	}
	if cfg.Delivery.SweepBatch != 500 {
		t.Fatalf("sweep batch default = %d, want 500", cfg.Delivery.SweepBatch)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "test.db")
	t.Setenv("GRPC_ADDRESS", ":1234")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is not set")
	}
	t.Setenv("JWT_SECRET", "x")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with secret set: %v", err)
	}
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "x")

	t.Setenv("OTP_LENGTH", "9")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for OTP_LENGTH=9")
	}
	t.Setenv("OTP_LENGTH", "6")

	t.Setenv("OTP_SWEEP_BATCH", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for OTP_SWEEP_BATCH=0")
	}
	t.Setenv("OTP_SWEEP_BATCH", "2")

	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for mongo without MONGODB_URI")
	}
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	if _, err := Load(); err != nil {
		t.Fatalf("mongo with uri: %v", err)
	}
}

func TestLoad_ReadsDotEnvFile(t *testing.T) {
	clearEnv(t)
	path := t.TempDir() + "/test.env"
	if err := os.WriteFile(path, []byte("JWT_SECRET=from-file\nDELIVERY_RADIUS_KM=7.5\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("DELIVERY_RADIUS_KM")
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-file" || cfg.Delivery.RadiusKm != 7.5 {
		t.Fatalf("values from env file not applied: %+v", cfg)
	}
}

func TestString_MasksSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "super-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s := cfg.String(); s == "" || strings.Contains(s, "super-secret") {
		t.Fatalf("secret leaked or empty string: %q", s)
	}
}
