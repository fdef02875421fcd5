package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
	"github.com/alexjamesmalcolm/optimize-thruster-route/cache"
)

func newTestServer(t *testing.T, solver route.Solver, c cache.Cache) *Server {
	t.Helper()
	return NewServer(route.NewTrajectoryOptimizer(solver, nil), c, 1000, 1000, nil)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/plans", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health: got %d", rr.Code)
	}
}

func TestPlanAndCache(t *testing.T) {
	s := newTestServer(t, nil, cache.NewMemory(8))
	h := s.Handler()
	body := `{"starting_point":[0,0.5],"goal":[1,1],"max_time_segments":1,"thrust_magnitude":0.05}`
	rr := post(t, h, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("plan: got %d: %s", rr.Code, rr.Body)
	}
	var resp PlanResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %s", err)
	}
	if resp.ID == "" || resp.Cached {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Result.Len() != 1 || resp.Result.Status != route.StatusOptimal {
		t.Fatalf("unexpected result %+v", resp.Result)
	}
	rr = post(t, h, body)
	resp = PlanResponse{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %s", err)
	}
	if !resp.Cached {
		t.Fatal("second identical request should be served from the cache")
	}
}

func TestPlanErrors(t *testing.T) {
	infeasible := route.SolverFunc(func(m *route.Model) (route.Solution, error) {
		return route.Solution{Status: route.StatusInfeasible}, nil
	})
	timeout := route.SolverFunc(func(m *route.Model) (route.Solution, error) {
		return route.Solution{Status: route.StatusTimeLimit}, nil
	})
	for _, tc := range []struct {
		name   string
		solver route.Solver
		body   string
		code   int
	}{
		{"zero segments", nil, `{"starting_point":[0,0],"goal":[1,1],"max_time_segments":0}`, http.StatusBadRequest},
		{"negative thrust", nil, `{"starting_point":[0,0],"goal":[1,1],"thrust_magnitude":-1}`, http.StatusBadRequest},
		{"malformed", nil, `{"starting_point":`, http.StatusBadRequest},
		{"unknown field", nil, `{"start":[0,0]}`, http.StatusBadRequest},
		{"above the segment limit", nil, `{"starting_point":[0,0],"goal":[1,1],"max_time_segments":1001}`, http.StatusBadRequest},
		{"infeasible", infeasible, `{"starting_point":[0,0],"goal":[1,1],"max_time_segments":2}`, http.StatusUnprocessableEntity},
		{"timeout", timeout, `{"starting_point":[0,0],"goal":[1,1],"max_time_segments":2}`, http.StatusServiceUnavailable},
	} {
		rr := post(t, newTestServer(t, tc.solver, nil).Handler(), tc.body)
		if rr.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.code, rr.Code, rr.Body)
		}
	}
}

func TestSegmentLimit(t *testing.T) {
	solves := 0
	counting := route.SolverFunc(func(m *route.Model) (route.Solution, error) {
		solves++
		return route.Solution{Status: route.StatusInfeasible}, nil
	})
	s := newTestServer(t, counting, nil)
	s.MaxTimeSegments = 50
	h := s.Handler()
	rr := post(t, h, `{"starting_point":[0,0],"goal":[1,1],"max_time_segments":51}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body)
	}
	if solves != 0 {
		t.Fatal("solver invoked above the segment limit")
	}
	if rr := post(t, h, `{"starting_point":[0,0],"goal":[1,1],"max_time_segments":50}`); rr.Code != http.StatusUnprocessableEntity || solves != 1 {
		t.Fatalf("expected the limit itself to be solved, got %d after %d solves", rr.Code, solves)
	}
	// The default horizon is over this server's limit.
	if rr := post(t, h, `{"starting_point":[0,0],"goal":[1,1]}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for the default horizon, got %d", rr.Code)
	}
}

func TestBusyWorkers(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.SetWorkers(1)
	s.slots <- struct{}{} // the only worker is busy
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/plans", bytes.NewReader([]byte(`{"starting_point":[0,0],"goal":[1,1],"max_time_segments":2}`))).WithContext(ctx)
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while every worker is busy, got %d", rr.Code)
	}
	<-s.slots
	if rr := post(t, s.Handler(), `{"starting_point":[0,0],"goal":[1,1],"max_time_segments":2}`); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 once a worker is free, got %d", rr.Code)
	}
}

func TestObstacleAvoidanceRejected(t *testing.T) {
	opt := route.NewTrajectoryOptimizer(nil, nil)
	opt.ObstacleAvoidance = true
	s := NewServer(opt, nil, 10, 10, nil)
	rr := post(t, s.Handler(), `{"starting_point":[0,0],"goal":[1,1],"max_time_segments":2,"obstacles":[{"position":[0.5,0.5],"radius":0.1}]}`)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rr.Code)
	}
}

func TestRateLimitAndMethod(t *testing.T) {
	s := NewServer(route.NewTrajectoryOptimizer(nil, nil), nil, 1e-3, 1, nil)
	h := s.Handler()
	body := `{"starting_point":[0,0],"goal":[0,0],"max_time_segments":1}`
	if rr := post(t, h, body); rr.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rr.Code)
	}
	if rr := post(t, h, body); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/plans", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: expected 405, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", rr.Code)
	}
}
