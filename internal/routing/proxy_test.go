package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"homeservices/internal/workflow"
)

const okBody = `{
  "code": "Ok",
  "routes": [{
    "geometry": "abc123",
    "distance": 1500.5,
    "duration": 240.2,
    "legs": [{
      "steps": [
        {"name": "Rua Augusta", "distance": 800, "duration": 120, "maneuver": {"type": "depart", "modifier": ""}},
        {"name": "Praça do Comércio", "distance": 700.5, "duration": 120.2, "maneuver": {"type": "turn", "modifier": "left"}}
      ]
    }]
  }]
}`

var (
	lisbon = Coordinate{Lat: 38.7223, Lng: -9.1393}
	porto  = Coordinate{Lat: 41.1579, Lng: -8.6291}
)

func testClient(mirrors ...string) *Client {
	return NewClient(mirrors, 0, zap.NewNop())
}

func TestDirections_FirstMirrorWins(t *testing.T) {
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	}))
	defer first.Close()

	secondCalled := false
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondCalled = true
		_, _ = w.Write([]byte(okBody))
	}))
	defer second.Close()

	route, err := testClient(first.URL, second.URL).Directions(context.Background(), lisbon, porto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secondCalled {
		t.Fatalf("second mirror must not be tried after a success")
	}
	if route.Mirror != first.URL {
		t.Fatalf("expected mirror %q, got %q", first.URL, route.Mirror)
	}
	if route.Distance != 1500.5 || route.Duration != 240.2 {
		t.Fatalf("unexpected route summary: %+v", route)
	}
	if len(route.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(route.Steps))
	}
	if route.Steps[1].Instruction != "turn left onto Praça do Comércio" {
		t.Fatalf("unexpected instruction: %q", route.Steps[1].Instruction)
	}
}

func TestDirections_FailsOverInOrder(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	noRoute := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": "NoRoute", "routes": []}`))
	}))
	defer noRoute.Close()

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	}))
	defer up.Close()

	route, err := testClient(down.URL, noRoute.URL, up.URL).Directions(context.Background(), lisbon, porto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.Mirror != up.URL {
		t.Fatalf("expected third mirror to answer, got %q", route.Mirror)
	}
}

func TestDirections_AllMirrorsDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	_, err := testClient(down.URL, down.URL).Directions(context.Background(), lisbon, porto)
	if err == nil {
		t.Fatalf("expected error when all mirrors fail")
	}
	if workflow.KindOf(err) != workflow.KindUpstreamUnavailable {
		t.Fatalf("expected UPSTREAM_UNAVAILABLE, got %v", workflow.KindOf(err))
	}
}

func TestDirections_NoMirrorsConfigured(t *testing.T) {
	_, err := testClient().Directions(context.Background(), lisbon, porto)
	if err == nil {
		t.Fatalf("expected error")
	}
	if workflow.KindOf(err) != workflow.KindConfiguration {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", workflow.KindOf(err))
	}
}

func TestDirections_ContextCancellationStopsFailover(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	neverCalled := true
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		neverCalled = false
		_, _ = w.Write([]byte(okBody))
	}))
	defer second.Close()

	if _, err := testClient(down.URL, second.URL).Directions(ctx, lisbon, porto); err == nil {
		t.Fatalf("expected error after cancellation")
	}
	if !neverCalled {
		t.Fatalf("failover must stop once the caller's context is cancelled")
	}
}
