package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: web_search
    endpoint: http://localhost:8003
    enabled: true
    timeout: 2s
    max_retries: 1
  - name: github
    endpoint: http://localhost:8005
    enabled: false
agent:
  max_concurrent_tasks: 3
  memory_size: 10
retry:
  base_delay: 10ms
  multiplier: 3.0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(cfg.Providers))
	}
	if cfg.Providers[0].Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", cfg.Providers[0].Timeout)
	}
	if cfg.Providers[1].Enabled {
		t.Error("expected github disabled")
	}
	if cfg.Agent.MaxConcurrentTasks != 3 {
		t.Errorf("expected 3 concurrent tasks, got %d", cfg.Agent.MaxConcurrentTasks)
	}
	if cfg.Agent.MaxConcurrentCalls != 8 {
		t.Errorf("expected default call budget 8, got %d", cfg.Agent.MaxConcurrentCalls)
	}
	if cfg.Retry.BaseDelay != 10*time.Millisecond || cfg.Retry.Multiplier != 3.0 {
		t.Errorf("unexpected retry policy: %+v", cfg.Retry)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "definitely-missing.yaml"))
	if err == nil {
		t.Fatal("expected error for explicit missing path")
	}
	_ = cfg

	// No explicit path: defaults apply.
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(t.TempDir())

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if len(cfg.Providers) != 5 {
		t.Errorf("expected 5 default providers, got %d", len(cfg.Providers))
	}
	if cfg.Agent.MemorySize != 1000 {
		t.Errorf("expected default memory size 1000, got %d", cfg.Agent.MemorySize)
	}
}

func TestDuplicateProviderFatal(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: web_search
    endpoint: http://localhost:8003
    enabled: true
  - name: web_search
    endpoint: http://localhost:8013
    enabled: true
`)

	_, err := Load(path)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestMalformedEndpointFatal(t *testing.T) {
	for _, endpoint := range []string{"not a url", "localhost:8003", "://nope"} {
		path := writeConfig(t, `
providers:
  - name: broken
    endpoint: "`+endpoint+`"
    enabled: true
`)
		if _, err := Load(path); !errors.Is(err, ErrConfig) {
			t.Errorf("endpoint %q: expected ErrConfig, got %v", endpoint, err)
		}
	}
}

func TestDefaultClampsLimits(t *testing.T) {
	cfg := Default()
	cfg.Agent.MaxConcurrentTasks = 0
	cfg.Agent.TaskTimeout = -time.Second
	cfg.applyFallbacks()

	if cfg.Agent.MaxConcurrentTasks < 1 {
		t.Error("expected max_concurrent_tasks clamped to a positive value")
	}
	if cfg.Agent.TaskTimeout <= 0 {
		t.Error("expected task_timeout clamped to a positive value")
	}
}
