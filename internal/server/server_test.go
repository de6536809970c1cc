package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatgate/chatgate/internal/bus"
	"github.com/chatgate/chatgate/internal/gateway"
	"github.com/chatgate/chatgate/internal/store"
)

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "open when unrestricted", allowed: nil, origin: "https://evil.example", want: true},
		{name: "allowed origin", allowed: []string{"https://app.example"}, origin: "https://app.example", want: true},
		{name: "denied origin", allowed: []string{"https://app.example"}, origin: "https://evil.example", want: false},
		{name: "no origin header", allowed: []string{"https://app.example"}, origin: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := originChecker(tt.allowed)
			r := httptest.NewRequest(http.MethodGet, "/gateway", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := check(r); got != tt.want {
				t.Errorf("originChecker() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	st := store.NewMemory()
	s := New("127.0.0.1", 0, nil, nil, nil, st, nil)

	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestHandleHealth_StoreDown(t *testing.T) {
	st := store.NewMemory()
	st.FailWith(errors.New("connection refused"))
	s := New("127.0.0.1", 0, nil, nil, nil, st, nil)

	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleStats(t *testing.T) {
	registry := gateway.NewRegistry()
	registry.Register("conn-1", 42)

	mb := bus.NewMemoryBus()
	mx := bus.NewMultiplexer(mb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mx.Start(ctx)

	queue := make(chan bus.Delivery, 1)
	if err := mx.Subscribe("conn-1", "*_42", queue); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for mx.Stats().Subscribers == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s := New("127.0.0.1", 0, nil, registry, mx, nil, nil)

	w := httptest.NewRecorder()
	s.handleStats(w, httptest.NewRequest(http.MethodGet, "/debug/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var stats struct {
		Connections int `json:"connections"`
		Mux         struct {
			Patterns    int `json:"patterns"`
			Subscribers int `json:"subscribers"`
		} `json:"mux"`
	}
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if stats.Connections != 1 {
		t.Errorf("connections = %d, want 1", stats.Connections)
	}
	if stats.Mux.Subscribers != 1 {
		t.Errorf("mux subscribers = %d, want 1", stats.Mux.Subscribers)
	}
}

func TestHandleStats_UserDetail(t *testing.T) {
	registry := gateway.NewRegistry()
	registry.Register("conn-1", 42)
	registry.Register("conn-2", 42)
	registry.Register("conn-3", 7)

	s := New("127.0.0.1", 0, nil, registry, nil, nil, nil)

	w := httptest.NewRecorder()
	s.handleStats(w, httptest.NewRequest(http.MethodGet, "/debug/stats?user_id=42", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var stats struct {
		Connections int      `json:"connections"`
		UserConns   []string `json:"user_conns"`
	}
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if stats.Connections != 3 {
		t.Errorf("connections = %d, want 3", stats.Connections)
	}
	if len(stats.UserConns) != 2 {
		t.Fatalf("user conns = %v, want 2 entries", stats.UserConns)
	}
	seen := map[string]bool{}
	for _, id := range stats.UserConns {
		seen[id] = true
	}
	if !seen["conn-1"] || !seen["conn-2"] {
		t.Errorf("user conns = %v, want conn-1 and conn-2", stats.UserConns)
	}

	w = httptest.NewRecorder()
	s.handleStats(w, httptest.NewRequest(http.MethodGet, "/debug/stats?user_id=bogus", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad user_id status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
