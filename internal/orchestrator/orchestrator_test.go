package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mcp-agent/internal/config"
	"mcp-agent/internal/stub"
	"mcp-agent/pkg/models"
)

func stubProvider(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(stub.New(name).Handler())
	t.Cleanup(srv.Close)
	return srv
}

// deadProvider returns an endpoint that refuses connections.
func deadProvider(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NewServeMux())
	url := srv.URL
	srv.Close()
	return url
}

func testConfig(endpoints map[string]string) *config.Config {
	cfg := config.Default()
	cfg.Providers = nil
	for name, url := range endpoints {
		cfg.Providers = append(cfg.Providers, config.Provider{
			Name:       name,
			Endpoint:   url,
			Enabled:    true,
			Timeout:    2 * time.Second,
			MaxRetries: 1,
		})
	}
	cfg.Agent.TaskTimeout = 5 * time.Second
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.Multiplier = 2.0
	return cfg
}

func newEngine(t *testing.T, cfg *config.Config) *Orchestrator {
	t.Helper()
	o, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		o.Shutdown(ctx)
	})
	return o
}

func TestExecuteBothProvidersHealthy(t *testing.T) {
	o := newEngine(t, testConfig(map[string]string{
		"web_search": stubProvider(t, "web_search").URL,
		"github":     stubProvider(t, "github").URL,
	}))

	task := o.Execute(context.Background(), "search for caching strategies")

	if task.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %v", task.Status)
	}
	if task.Results["web_search"].Err != nil || task.Results["web_search"].Value == nil {
		t.Errorf("expected web_search result, got %+v", task.Results["web_search"])
	}
	if task.Results["github"].Err != nil || task.Results["github"].Value == nil {
		t.Errorf("expected github result, got %+v", task.Results["github"])
	}
}

func TestExecuteOneProviderUnreachableFailSoft(t *testing.T) {
	o := newEngine(t, testConfig(map[string]string{
		"web_search": stubProvider(t, "web_search").URL,
		"github":     deadProvider(t),
	}))

	task := o.Execute(context.Background(), "search for caching strategies")

	if task.Status != models.StatusCompleted {
		t.Fatalf("fail-soft violated: expected completed, got %v", task.Status)
	}
	githubErr := task.Results["github"].Err
	if githubErr == nil || githubErr.Kind != models.ErrKindExhausted {
		t.Errorf("expected exhausted github error, got %+v", githubErr)
	}
	if task.Results["web_search"].Err != nil {
		t.Errorf("expected web_search success, got %+v", task.Results["web_search"])
	}
}

func TestExecuteAllProvidersUnreachableFails(t *testing.T) {
	o := newEngine(t, testConfig(map[string]string{
		"web_search": deadProvider(t),
		"github":     deadProvider(t),
	}))

	task := o.Execute(context.Background(), "search for caching strategies")

	if task.Status != models.StatusFailed {
		t.Fatalf("expected failed, got %v", task.Status)
	}
	for name, r := range task.Results {
		if r.Err == nil {
			t.Errorf("expected error for %s", name)
		}
	}
}

func TestExecuteNeverReturnsNilAndIDsAreUnique(t *testing.T) {
	o := newEngine(t, testConfig(map[string]string{
		"web_search": stubProvider(t, "web_search").URL,
	}))

	seen := make(map[int64]bool)
	for i := 0; i < 5; i++ {
		task := o.Execute(context.Background(), "search for things")
		if task == nil {
			t.Fatal("execute returned nil")
		}
		if seen[task.ID] {
			t.Errorf("task id %d reused", task.ID)
		}
		seen[task.ID] = true
		if !task.Status.Terminal() {
			t.Errorf("returned task not terminal: %v", task.Status)
		}
	}
}

func TestMemoryEvictionAcrossTasks(t *testing.T) {
	cfg := testConfig(map[string]string{
		"web_search": stubProvider(t, "web_search").URL,
	})
	cfg.Agent.MemorySize = 2
	o := newEngine(t, cfg)

	first := o.Execute(context.Background(), "search one")
	second := o.Execute(context.Background(), "search two")
	third := o.Execute(context.Background(), "search three")

	recent := o.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].TaskID != third.ID || recent[1].TaskID != second.ID {
		t.Errorf("expected entries [%d %d], got [%d %d]", third.ID, second.ID, recent[0].TaskID, recent[1].TaskID)
	}
	for _, e := range recent {
		if e.TaskID == first.ID {
			t.Error("first task entry should have been evicted")
		}
	}
	st := o.Status()
	if st.MemorySize != 2 || st.MemoryCapacity != 2 {
		t.Errorf("expected memory 2/2, got %d/%d", st.MemorySize, st.MemoryCapacity)
	}
}

func TestMaxConcurrentTasksEnforced(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call" {
			stub.New("web_search").Handler().ServeHTTP(w, r)
			return
		}
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inFlight.Add(-1)
		w.Write([]byte(`{"result": "slow"}`))
	}))
	defer slow.Close()

	cfg := testConfig(map[string]string{"web_search": slow.URL})
	cfg.Agent.MaxConcurrentTasks = 2
	o := newEngine(t, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Execute(context.Background(), "search for things")
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > 2 {
		t.Errorf("max_concurrent_tasks exceeded: peak %d", p)
	}
}

func TestLearnedPatternsCounter(t *testing.T) {
	o := newEngine(t, testConfig(map[string]string{
		"web_search": stubProvider(t, "web_search").URL,
	}))

	o.Execute(context.Background(), "search for caching")
	o.Execute(context.Background(), "make me a sandwich") // degenerate
	o.Execute(context.Background(), "find more results")

	if got := o.Status().LearnedPatterns; got != 2 {
		t.Errorf("expected 2 learned patterns, got %d", got)
	}
}

func TestLearningDisabledFreezesCounter(t *testing.T) {
	cfg := testConfig(map[string]string{
		"web_search": stubProvider(t, "web_search").URL,
	})
	cfg.Agent.LearningEnabled = false
	o := newEngine(t, cfg)

	o.Execute(context.Background(), "search for caching")
	if got := o.Status().LearnedPatterns; got != 0 {
		t.Errorf("expected 0 learned patterns with learning disabled, got %d", got)
	}
}

func TestDegenerateInstructionStillCompletes(t *testing.T) {
	o := newEngine(t, testConfig(map[string]string{
		"web_search": stubProvider(t, "web_search").URL,
	}))

	task := o.Execute(context.Background(), "ponder the void")
	if task.Status != models.StatusCompleted {
		t.Fatalf("expected completed degenerate task, got %v", task.Status)
	}
	if len(task.ProviderOperations()) != 0 {
		t.Errorf("expected no provider operations, got %v", task.Operations)
	}
	if task.Result == nil {
		t.Error("expected synthesized summary")
	}
}

func TestStatusSnapshot(t *testing.T) {
	o := newEngine(t, testConfig(map[string]string{
		"web_search": stubProvider(t, "web_search").URL,
		"github":     stubProvider(t, "github").URL,
	}))

	o.AddGoal("improve github presence")
	o.AddGoal("stay current on caching")

	st := o.Status()
	if !st.Running {
		t.Error("expected running")
	}
	if len(st.Goals) != 2 || st.Goals[0].Description != "improve github presence" {
		t.Errorf("unexpected goals %v", st.Goals)
	}
	if len(st.Providers) != 2 || st.Providers[0] != "github" || st.Providers[1] != "web_search" {
		t.Errorf("unexpected providers %v", st.Providers)
	}
	if st.QueueLength != 0 {
		t.Errorf("expected empty queue, got %d", st.QueueLength)
	}
}

func TestTaskLookupAfterSettle(t *testing.T) {
	o := newEngine(t, testConfig(map[string]string{
		"web_search": stubProvider(t, "web_search").URL,
	}))

	task := o.Execute(context.Background(), "search for caching")
	got, ok := o.Task(task.ID)
	if !ok || got.ID != task.ID {
		t.Fatalf("expected settled task lookup to succeed")
	}
	if _, ok := o.Task(9999); ok {
		t.Error("expected unknown id lookup to fail")
	}
}

func TestShutdownCancelsInFlight(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call" {
			stub.New("web_search").Handler().ServeHTTP(w, r)
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		w.Write([]byte(`{"result": "late"}`))
	}))
	defer slow.Close()

	cfg := testConfig(map[string]string{"web_search": slow.URL})
	cfg.Providers[0].MaxRetries = 0
	cfg.Providers[0].Timeout = 10 * time.Second
	o, err := FromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan *models.Task, 1)
	go func() {
		done <- o.Execute(context.Background(), "search for caching")
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case task := <-done:
		if !task.Status.Terminal() {
			t.Errorf("expected terminal task after shutdown, got %v", task.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("execute did not return after shutdown")
	}

	if o.Status().Running {
		t.Error("expected running=false after shutdown")
	}
}

func TestFromConfigRejectsBadProviders(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = []config.Provider{
		{Name: "a", Endpoint: "http://localhost:1", Enabled: true, Timeout: time.Second},
		{Name: "a", Endpoint: "http://localhost:2", Enabled: true, Timeout: time.Second},
	}
	if _, err := FromConfig(cfg); err == nil {
		t.Fatal("expected duplicate provider error")
	}
}
