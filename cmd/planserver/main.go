// Command planserver serves trajectory plans over HTTP.
package main

import (
	"flag"
	"net/http"
	"os"
	"runtime"
	"time"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
	"github.com/alexjamesmalcolm/optimize-thruster-route/cache"
	"github.com/alexjamesmalcolm/optimize-thruster-route/server"
	kitlog "github.com/go-kit/kit/log"
)

var (
	addr      string
	redisURL  string
	cacheTTL  time.Duration
	cacheSize int
	rps       float64
	burst     int
	segments  int
	workers   int
	timeout   time.Duration
)

func init() {
	flag.StringVar(&addr, "addr", ":8080", "listen address (overridden by $PORT)")
	flag.StringVar(&redisURL, "redis", "", "Redis URL for the plan cache (in-memory cache if empty, $REDIS_URL if set)")
	flag.DurationVar(&cacheTTL, "cache-ttl", time.Hour, "plan cache expiration (Redis only)")
	flag.IntVar(&cacheSize, "cache-size", 1024, "in-memory plan cache capacity")
	flag.Float64Var(&rps, "rps", 2, "allowed plans per second")
	flag.IntVar(&burst, "burst", 4, "allowed burst of plans")
	flag.IntVar(&segments, "max-segments", route.DefaultMaxTimeSegments, "largest max_time_segments accepted")
	flag.IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "plans solved at once")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "time limit of a plan unless $ROCKET_CONFIG sets solver.timeout")
}

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		redisURL = url
	}

	optimizer, err := route.NewConfiguredOptimizer(logger)
	if err != nil {
		logger.Log("level", "critical", "err", err)
		os.Exit(1)
	}
	if s, ok := optimizer.Solver.(*route.Simplex); ok && s.Timeout <= 0 {
		s.Timeout = timeout
	}

	var c cache.Cache
	if redisURL != "" {
		rc, err := cache.NewRedis(redisURL, cacheTTL)
		if err != nil {
			logger.Log("level", "critical", "err", err)
			os.Exit(1)
		}
		defer rc.Close()
		c = rc
		logger.Log("level", "info", "cache", "redis")
	} else {
		c = cache.NewMemory(cacheSize)
		logger.Log("level", "info", "cache", "memory", "size", cacheSize)
	}

	planner := server.NewServer(optimizer, c, rps, burst, logger)
	planner.MaxTimeSegments = segments
	planner.SetWorkers(workers)
	srv := &http.Server{
		Addr:              addr,
		Handler:           planner.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Log("level", "info", "listening", addr, "max_segments", segments, "workers", workers)
	if err := srv.ListenAndServe(); err != nil {
		logger.Log("level", "critical", "err", err)
		os.Exit(1)
	}
}
