package main

import (
	"fmt"
	"time"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// scenarioConfig is everything read from a planner scenario.
type scenarioConfig struct {
	request          route.PlanningRequest
	avoidObstacles   bool
	tieBreak         bool
	export           route.ExportConfig
	animate          bool
	animationPath    string
	frameDuration    time.Duration
	width, height    int
	continuousReport bool
}

func (c scenarioConfig) String() string {
	return fmt.Sprintf("%s -> %s in %d steps (thrust %g, %d obstacles)", c.request.Start, c.request.Goal, c.request.MaxTimeSegments, c.request.ThrustMagnitude, len(c.request.Obstacles))
}

// readCoord reads a two element array.
func readCoord(key string) (route.Coord2D, error) {
	raw, err := cast.ToSliceE(viper.Get(key))
	if err != nil {
		return route.Coord2D{}, errors.Wrap(err, key)
	}
	if len(raw) != 2 {
		return route.Coord2D{}, errors.Errorf("%s: expected two values, got %d", key, len(raw))
	}
	var c route.Coord2D
	for i, v := range raw {
		if c[i], err = cast.ToFloat64E(v); err != nil {
			return route.Coord2D{}, errors.Wrap(err, key)
		}
	}
	return c, nil
}

// readObstacles reads the [obstacles.N] tables, stopping at the first missing index.
func readObstacles() ([]route.Obstacle, error) {
	var obstacles []route.Obstacle
	for i := 0; ; i++ {
		key := fmt.Sprintf("obstacles.%d", i)
		if !viper.IsSet(key) {
			return obstacles, nil
		}
		pos, err := readCoord(key + ".position")
		if err != nil {
			return nil, err
		}
		obstacles = append(obstacles, route.Obstacle{Position: pos, Radius: viper.GetFloat64(key + ".radius")})
	}
}

// configureSolver overrides the $ROCKET_CONFIG solver settings with those the scenario sets.
func configureSolver(s *route.Simplex) {
	if viper.IsSet("solver.tolerance") {
		s.Tol = viper.GetFloat64("solver.tolerance")
	}
	if viper.IsSet("solver.timeout") {
		s.Timeout = viper.GetDuration("solver.timeout")
	}
	if viper.IsSet("solver.max_dense_entries") {
		s.MaxDenseEntries = viper.GetFloat64("solver.max_dense_entries")
	}
}

func readScenario() (scenarioConfig, error) {
	viper.SetDefault("plan.segments", route.DefaultMaxTimeSegments)
	viper.SetDefault("plan.thrust", route.DefaultThrustMagnitude)
	viper.SetDefault("plan.tiebreak", true)
	viper.SetDefault("export.filename", scenario)
	viper.SetDefault("export.step", time.Minute)
	viper.SetDefault("animation.path", scenario+".gif")
	viper.SetDefault("animation.frame", 100*time.Millisecond)

	var conf scenarioConfig
	start, err := readCoord("plan.start")
	if err != nil {
		return conf, err
	}
	goal, err := readCoord("plan.goal")
	if err != nil {
		return conf, err
	}
	obstacles, err := readObstacles()
	if err != nil {
		return conf, err
	}
	conf.request = route.NewPlanningRequest(start, goal, obstacles)
	conf.request.MaxTimeSegments = viper.GetInt("plan.segments")
	conf.request.ThrustMagnitude = viper.GetFloat64("plan.thrust")
	conf.avoidObstacles = viper.GetBool("plan.avoid_obstacles")
	conf.tieBreak = viper.GetBool("plan.tiebreak")
	conf.continuousReport = viper.GetBool("plan.continuous")

	conf.export = route.ExportConfig{
		Filename:  viper.GetString("export.filename"),
		Dir:       viper.GetString("export.dir"),
		AsCSV:     viper.GetBool("export.csv"),
		AsStates:  viper.GetBool("export.states"),
		AsYAML:    viper.GetBool("export.yaml"),
		Timestamp: viper.GetBool("export.timestamp"),
		Step:      viper.GetDuration("export.step"),
	}
	if viper.IsSet("export.epoch") {
		if conf.export.Epoch, err = cast.ToTimeE(viper.Get("export.epoch")); err != nil {
			return conf, errors.Wrap(err, "export.epoch")
		}
	} else {
		conf.export.Epoch = time.Now().UTC()
	}

	conf.animate = viper.GetBool("animation.enabled")
	conf.animationPath = viper.GetString("animation.path")
	conf.frameDuration = viper.GetDuration("animation.frame")
	conf.width = viper.GetInt("animation.width")
	conf.height = viper.GetInt("animation.height")
	return conf, nil
}
