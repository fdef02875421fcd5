package route

import (
	"os"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var (
	cfgLoaded = false
	cfgMu     sync.Mutex
	config    = _routeconfig{}
)

// _routeconfig is a "hidden" struct, just use `routeConfig`
type _routeconfig struct {
	outputDir       string
	tolerance       float64
	timeout         time.Duration
	maxDenseEntries float64
}

// Simplex returns a solver using the configured solver settings.
func (c _routeconfig) Simplex() *Simplex {
	return &Simplex{Tol: c.tolerance, Timeout: c.timeout, MaxDenseEntries: c.maxDenseEntries}
}

// defaultConfig is used when ROCKET_CONFIG is not set.
func defaultConfig() _routeconfig {
	return _routeconfig{outputDir: ".", tolerance: DefaultSimplexTolerance, maxDenseEntries: DefaultMaxDenseEntries}
}

// routeConfig returns the library configuration, read once from $ROCKET_CONFIG/conf.toml.
func routeConfig() (_routeconfig, error) {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	if cfgLoaded {
		return config, nil
	}
	confPath := os.Getenv("ROCKET_CONFIG")
	if confPath == "" {
		config = defaultConfig()
		cfgLoaded = true
		return config, nil
	}
	v := viper.New()
	v.SetConfigName("conf")
	v.AddConfigPath(confPath)
	v.SetDefault("general.output_path", ".")
	v.SetDefault("solver.tolerance", DefaultSimplexTolerance)
	v.SetDefault("solver.timeout", time.Duration(0))
	v.SetDefault("solver.max_dense_entries", DefaultMaxDenseEntries)
	if err := v.ReadInConfig(); err != nil {
		return config, errors.Wrapf(err, "%s/conf.toml", confPath)
	}

	tol := v.GetFloat64("solver.tolerance")
	if tol <= 0 {
		return config, errors.Errorf("solver.tolerance must be positive, got %g", tol)
	}
	config = _routeconfig{
		outputDir:       v.GetString("general.output_path"),
		tolerance:       tol,
		timeout:         v.GetDuration("solver.timeout"),
		maxDenseEntries: v.GetFloat64("solver.max_dense_entries"),
	}
	cfgLoaded = true
	return config, nil
}

// NewConfiguredOptimizer returns an optimizer whose Simplex follows the library configuration.
func NewConfiguredOptimizer(logger kitlog.Logger) (*TrajectoryOptimizer, error) {
	conf, err := routeConfig()
	if err != nil {
		return nil, err
	}
	return NewTrajectoryOptimizer(conf.Simplex(), logger), nil
}
