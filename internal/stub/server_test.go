package stub

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthRoute(t *testing.T) {
	srv := httptest.NewServer(New("test").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %q", body["status"])
	}
}

func TestMethodsRouteOrdered(t *testing.T) {
	srv := httptest.NewServer(New("test").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/methods")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var methods []string
	json.NewDecoder(resp.Body).Decode(&methods)
	if len(methods) != 4 || methods[0] != "search" {
		t.Errorf("unexpected methods %v", methods)
	}
}

func call(t *testing.T, url string, body map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url+"/call", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestCallSearch(t *testing.T) {
	srv := httptest.NewServer(New("test").Handler())
	defer srv.Close()

	resp, out := call(t, srv.URL, map[string]any{
		"method": "search",
		"params": map[string]any{"query": "caching"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	results, ok := out["result"].([]any)
	if !ok || len(results) != 2 {
		t.Errorf("unexpected result %v", out)
	}
}

func TestCallUnknownMethod(t *testing.T) {
	srv := httptest.NewServer(New("test").Handler())
	defer srv.Close()

	resp, out := call(t, srv.URL, map[string]any{"method": "nope"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	errBody, ok := out["error"].(map[string]any)
	if !ok || errBody["kind"] != "unknown_method" {
		t.Errorf("unexpected error body %v", out)
	}
}

func TestCallEcho(t *testing.T) {
	srv := httptest.NewServer(New("test").Handler())
	defer srv.Close()

	_, out := call(t, srv.URL, map[string]any{
		"method": "echo",
		"params": map[string]any{"k": "v"},
	})
	result, ok := out["result"].(map[string]any)
	if !ok || result["k"] != "v" {
		t.Errorf("unexpected echo result %v", out)
	}
}
