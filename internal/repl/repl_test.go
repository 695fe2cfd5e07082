package repl

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"mcp-agent/internal/config"
	"mcp-agent/internal/orchestrator"
	"mcp-agent/internal/stub"
)

func testEngine(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()

	provider := httptest.NewServer(stub.New("web_search").Handler())
	t.Cleanup(provider.Close)

	cfg := config.Default()
	cfg.Providers = []config.Provider{{
		Name:       "web_search",
		Endpoint:   provider.URL,
		Enabled:    true,
		Timeout:    2 * time.Second,
		MaxRetries: 1,
	}}
	cfg.Retry.BaseDelay = time.Millisecond

	engine, err := orchestrator.FromConfig(cfg)
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	return engine
}

func run(t *testing.T, script string) string {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	loop := New(testEngine(t), strings.NewReader(script), &out)
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("loop: %v", err)
	}
	return out.String()
}

func TestQuitEndsLoop(t *testing.T) {
	out := run(t, "quit\n")
	if !strings.Contains(out, "bye") {
		t.Errorf("expected farewell, got %q", out)
	}
}

func TestAddGoalThenStatus(t *testing.T) {
	out := run(t, "add_goal stay current on caching\nstatus\nquit\n")
	if !strings.Contains(out, "goal #1 added: stay current on caching") {
		t.Errorf("missing goal confirmation in %q", out)
	}
	if !strings.Contains(out, "1. stay current on caching") {
		t.Errorf("missing goal in status output %q", out)
	}
	if !strings.Contains(out, "providers: web_search") {
		t.Errorf("missing providers line in %q", out)
	}
	if !strings.Contains(out, "memory entries: 0/1000") {
		t.Errorf("missing memory line in %q", out)
	}
}

func TestExecuteReportsResults(t *testing.T) {
	out := run(t, "execute search for caching strategies\nquit\n")
	if !strings.Contains(out, "task 1 completed") {
		t.Errorf("missing completion line in %q", out)
	}
	if !strings.Contains(out, "web_search.search ok") {
		t.Errorf("missing per-operation line in %q", out)
	}
}

func TestMemoryAfterExecute(t *testing.T) {
	out := run(t, "execute search for caching\nmemory\nquit\n")
	if !strings.Contains(out, "task 1 @") {
		t.Errorf("missing memory entry in %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	out := run(t, "dance\nquit\n")
	if !strings.Contains(out, `unknown command "dance"`) {
		t.Errorf("missing unknown-command message in %q", out)
	}
}

func TestUsageErrors(t *testing.T) {
	out := run(t, "add_goal\nexecute\nmemory zero\nquit\n")
	if !strings.Contains(out, "usage: add_goal") || !strings.Contains(out, "usage: execute") || !strings.Contains(out, "usage: memory") {
		t.Errorf("missing usage lines in %q", out)
	}
}

func TestEOFEndsLoop(t *testing.T) {
	out := run(t, "status\n")
	if !strings.Contains(out, "running: true") {
		t.Errorf("expected status output before EOF, got %q", out)
	}
}
