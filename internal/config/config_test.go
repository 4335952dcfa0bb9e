package config

import (
	"os"
	"testing"
)

func TestPort_Default(t *testing.T) {
	os.Unsetenv(EnvPort)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("default Port = %d, want %d", cfg.Port(), DefaultPort)
	}
}

func TestPort_FromEnv(t *testing.T) {
	os.Setenv(EnvPort, "9100")
	defer os.Unsetenv(EnvPort)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port())
	}
}

func TestPort_Invalid(t *testing.T) {
	os.Setenv(EnvPort, "not-a-port")
	defer os.Unsetenv(EnvPort)

	if _, err := New(); err == nil {
		t.Error("New() should fail for a non-numeric port")
	}

	os.Setenv(EnvPort, "70000")
	if _, err := New(); err == nil {
		t.Error("New() should fail for an out-of-range port")
	}
}

func TestCloudEnabled_FromEnv(t *testing.T) {
	os.Setenv(EnvCloudEnabled, "true")
	defer os.Unsetenv(EnvCloudEnabled)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.CloudEnabled() {
		t.Error("CloudEnabled() = false, want true")
	}
}

func TestMaxUploadBytes(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxUploadBytes() != 25*1024*1024 {
		t.Errorf("MaxUploadBytes = %d, want 25MB", cfg.MaxUploadBytes())
	}
}
