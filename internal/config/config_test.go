package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	ApplyDefaults(&cfg)

	if cfg.Backend.URL != DefaultBackendURL || cfg.Backend.TimeoutSec != DefaultTimeoutSec {
		t.Fatalf("backend=%+v", cfg.Backend)
	}
	if cfg.Refresh.IntervalSec != 5 || cfg.Refresh.RecentClients != 12 {
		t.Fatalf("refresh=%+v", cfg.Refresh)
	}
	if cfg.Connect.WaitSec != 20 {
		t.Fatalf("wait_sec=%d", cfg.Connect.WaitSec)
	}
	if len(cfg.STUN.Servers) != 1 {
		t.Fatalf("stun=%v", cfg.STUN.Servers)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_NormalizesBackendURL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apctl.yaml")
	raw := "backend:\n  url: 192.168.50.1:8000/\nrefresh:\n  interval_sec: 10\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "http://192.168.50.1:8000" {
		t.Fatalf("url=%q", cfg.Backend.URL)
	}
	if cfg.Refresh.IntervalSec != 10 {
		t.Fatalf("interval=%d", cfg.Refresh.IntervalSec)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Backend.URL != DefaultBackendURL {
		t.Fatalf("url=%q", cfg.Backend.URL)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.MQTT.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected mqtt broker error")
	}

	cfg = Default()
	cfg.Log.Format = "xml"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected log format error")
	}

	cfg = Default()
	cfg.Connect.WaitSec = -1
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected wait error")
	}
}

func TestSave_Writes0600(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "apctl.yaml")
	if err := Save(path, Config{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%o", info.Mode().Perm())
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Connect.WaitSec != DefaultWaitSec {
		t.Fatalf("wait_sec=%d", cfg.Connect.WaitSec)
	}
}
