// Command planner optimizes the thrust plan described by a scenario TOML file.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
	"github.com/alexjamesmalcolm/optimize-thruster-route/animate"
	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/viper"
)

const defaultScenario = "~~unset~~"

var (
	scenario string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "planner scenario TOML file")
	flag.BoolVar(&verbose, "verbose", false, "print every planned step")
}

func fatal(logger kitlog.Logger, err error) {
	logger.Log("level", "critical", "err", err)
	os.Exit(1)
}

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	if scenario == defaultScenario {
		fatal(logger, fmt.Errorf("no scenario provided"))
	}
	scenario = strings.Replace(scenario, ".toml", "", 1)
	viper.AddConfigPath(".")
	viper.SetConfigName(scenario)
	if err := viper.ReadInConfig(); err != nil {
		fatal(logger, fmt.Errorf("./%s.toml: %s", scenario, err))
	}
	conf, err := readScenario()
	if err != nil {
		fatal(logger, err)
	}
	logger.Log("level", "info", "scenario", scenario, "plan", conf)

	optimizer, err := route.NewConfiguredOptimizer(logger)
	if err != nil {
		fatal(logger, err)
	}
	if s, ok := optimizer.Solver.(*route.Simplex); ok {
		configureSolver(s)
	}
	optimizer.ObstacleAvoidance = conf.avoidObstacles
	optimizer.TieBreak = conf.tieBreak

	res, err := optimizer.Optimize(conf.request)
	if err != nil {
		fatal(logger, err)
	}
	fmt.Printf("%s\n", res)
	if verbose {
		for t, p := range res.VehiclePositions {
			fmt.Printf("%4d\tthrust=%s\tpos=%s\tvel=%s\n", t, res.ThrustDecisions[t], p, res.VehicleVelocities[t])
		}
	}
	if steps := res.Collisions(conf.request.Obstacles); len(steps) > 0 {
		logger.Log("level", "warning", "collisions", len(steps), "first", steps[0])
	}
	if conf.continuousReport {
		logger.Log("level", "info", "drift", route.DiscretizationDrift(res, conf.request.ThrustMagnitude))
	}

	paths, err := route.Export(res, conf.export)
	if err != nil {
		fatal(logger, err)
	}
	for _, path := range paths {
		logger.Log("level", "info", "exported", path)
	}

	if conf.animate {
		positions, obstacles := frame(res, conf.request)
		anim := animate.NewAnimation(obstacles, positions, animate.Options{Width: conf.width, Height: conf.height})
		anim.Construct()
		if err := anim.Save(conf.animationPath, conf.frameDuration); err != nil {
			fatal(logger, err)
		}
		logger.Log("level", "info", "animation", conf.animationPath, "frames", anim.Frames())
	}
}
