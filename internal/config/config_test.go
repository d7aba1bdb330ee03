package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// The host environment may carry any of these; t.Setenv records the
	// original for restore, then the variable is removed so the declared
	// defaults are what Load actually sees.
	for _, key := range []string{
		"HTTP_ADDR", "DB_URL", "LOG_LEVEL", "LOG_FORMAT",
		"WS_SEND_BUFFER", "WS_WRITE_TIMEOUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.DBURL != "" {
		t.Errorf("DBURL = %q, want empty (in-memory store)", cfg.DBURL)
	}
	if cfg.WSSendBuffer != 32 {
		t.Errorf("WSSendBuffer = %d, want 32", cfg.WSSendBuffer)
	}
	if cfg.WSWriteTimeout != 10*time.Second {
		t.Errorf("WSWriteTimeout = %v, want 10s", cfg.WSWriteTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("WS_WRITE_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want :9999", cfg.HTTPAddr)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.WSWriteTimeout != 2*time.Second {
		t.Errorf("WSWriteTimeout = %v, want 2s", cfg.WSWriteTimeout)
	}
}
