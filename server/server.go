// Package server exposes the trajectory optimizer over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
	"github.com/alexjamesmalcolm/optimize-thruster-route/cache"
	"github.com/alexjamesmalcolm/optimize-thruster-route/metrics"
	kitlog "github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// maxBodyBytes bounds the size of a planning request.
const maxBodyBytes = 1 << 20

// Server serves planning requests.
type Server struct {
	// MaxTimeSegments is the largest horizon accepted; longer requests are rejected as invalid.
	MaxTimeSegments int

	optimizer *route.TrajectoryOptimizer
	cache     cache.Cache // may be nil
	limiter   *rate.Limiter
	slots     chan struct{}
	logger    kitlog.Logger
}

// NewServer returns a server allowing rps plans per second with the given burst. A nil cache disables caching.
// At most GOMAXPROCS plans are solved at once, see SetWorkers.
func NewServer(optimizer *route.TrajectoryOptimizer, c cache.Cache, rps float64, burst int, logger kitlog.Logger) *Server {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	metrics.RegisterDefault()
	return &Server{
		MaxTimeSegments: route.DefaultMaxTimeSegments,
		optimizer:       optimizer,
		cache:           c,
		limiter:         rate.NewLimiter(rate.Limit(rps), burst),
		slots:           make(chan struct{}, runtime.GOMAXPROCS(0)),
		logger:          kitlog.With(logger, "subsys", "server"),
	}
}

// SetWorkers sets the number of plans solved at once. Requests beyond it wait for a
// free worker until their context is done. It must be called before serving.
func (s *Server) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	s.slots = make(chan struct{}, n)
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/plans", s.PlanHandler)
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return s.logMiddleware(mux)
}

// planRequest is the JSON body of a planning request; omitted numbers take their defaults.
type planRequest struct {
	Start           route.Coord2D    `json:"starting_point"`
	Goal            route.Coord2D    `json:"goal"`
	Obstacles       []route.Obstacle `json:"obstacles"`
	MaxTimeSegments *int             `json:"max_time_segments"`
	ThrustMagnitude *float64         `json:"thrust_magnitude"`
}

func (p planRequest) toRequest() route.PlanningRequest {
	req := route.NewPlanningRequest(p.Start, p.Goal, p.Obstacles)
	if p.MaxTimeSegments != nil {
		req.MaxTimeSegments = *p.MaxTimeSegments
	}
	if p.ThrustMagnitude != nil {
		req.ThrustMagnitude = *p.ThrustMagnitude
	}
	return req
}

// PlanResponse is the JSON answer to a successful planning request.
type PlanResponse struct {
	ID     string        `json:"id"`
	Cached bool          `json:"cached"`
	Result *route.Result `json:"result"`
}

// PlanHandler handles POST /v1/plans.
func (s *Server) PlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		return
	}
	var body planRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decoding request"))
		return
	}
	req := body.toRequest()
	if s.MaxTimeSegments > 0 && req.MaxTimeSegments > s.MaxTimeSegments {
		metrics.PlanSolves.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, errors.Wrapf(route.ErrInvalidRequest, "max_time_segments %d above the limit of %d", req.MaxTimeSegments, s.MaxTimeSegments))
		return
	}
	metrics.TimeSegments.Observe(float64(req.MaxTimeSegments))
	ctx := r.Context()
	key := cache.Key(req)
	resp := PlanResponse{ID: uuid.New().String()}

	if s.cache != nil {
		if res, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Log("level", "warning", "message", "cache get failed", "err", err)
		} else if ok {
			metrics.PlanSolves.WithLabelValues("cached").Inc()
			resp.Cached, resp.Result = true, res
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		metrics.PlanSolves.WithLabelValues("abandoned").Inc()
		writeError(w, http.StatusServiceUnavailable, errors.Wrap(ctx.Err(), "waiting for a solver"))
		return
	}
	start := time.Now()
	res, err := s.optimizer.Optimize(req)
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		code, label := classify(err)
		metrics.PlanSolves.WithLabelValues(label).Inc()
		s.logger.Log("level", "error", "plan", resp.ID, "err", err)
		writeError(w, code, err)
		return
	}
	metrics.PlanSolves.WithLabelValues(res.Status.String()).Inc()
	if s.cache != nil {
		if err := s.cache.Put(ctx, key, res); err != nil {
			s.logger.Log("level", "warning", "message", "cache put failed", "err", err)
		}
	}
	resp.Result = res
	writeJSON(w, http.StatusOK, resp)
}

// HealthHandler handles GET /healthz.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// classify maps an optimizer error to an HTTP status and a metrics label.
func classify(err error) (int, string) {
	var se *route.SolveError
	switch {
	case errors.Is(err, route.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, route.ErrObstacleAvoidance):
		return http.StatusNotImplemented, "unsupported"
	case errors.As(err, &se) && (se.Status == route.StatusInfeasible || se.Status == route.StatusUnbounded):
		return http.StatusUnprocessableEntity, se.Status.String()
	case errors.As(err, &se):
		return http.StatusServiceUnavailable, se.Status.String()
	default:
		return http.StatusInternalServerError, "error"
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusRecorder keeps the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{w, http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.code)).Inc()
		s.logger.Log("level", "info", "remote", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "status", rec.code, "duration", time.Since(start))
	})
}
