package route

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
	"gopkg.in/yaml.v3"
)

// ExportConfig configures the exporting of a plan.
type ExportConfig struct {
	Filename  string
	Dir       string        // output directory, the configured general.output_path if empty
	AsCSV     bool          // one row per time step
	AsStates  bool          // "<jd> x y vx vy" records
	AsYAML    bool          // the full result
	Timestamp bool          // append the creation time to the file names
	Epoch     time.Time     // date of the first time step (states only)
	Step      time.Duration // duration of a time step (states only)
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV && !c.AsStates && !c.AsYAML
}

// Export writes the plan in every format enabled by conf and returns the paths written.
func Export(res *Result, conf ExportConfig) ([]string, error) {
	if conf.IsUseless() {
		return nil, nil
	}
	dir := conf.Dir
	if dir == "" {
		rc, err := routeConfig()
		if err != nil {
			return nil, err
		}
		dir = rc.outputDir
	}
	var written []string
	write := func(ext string, fn func(f *os.File) error) error {
		path := exportPath(dir, conf, ext)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := fn(f); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		written = append(written, path)
		return f.Close()
	}
	if conf.AsCSV {
		if err := write("csv", func(f *os.File) error { return writeCSV(f, res) }); err != nil {
			return written, err
		}
	}
	if conf.AsStates {
		if conf.Step <= 0 {
			return written, errors.New("states export requires a positive step duration")
		}
		if err := write("xyv", func(f *os.File) error { return writeStates(f, res, conf.Epoch, conf.Step) }); err != nil {
			return written, err
		}
	}
	if conf.AsYAML {
		if err := write("yaml", func(f *os.File) error {
			enc := yaml.NewEncoder(f)
			if err := enc.Encode(res); err != nil {
				return err
			}
			return enc.Close()
		}); err != nil {
			return written, err
		}
	}
	return written, nil
}

func exportPath(dir string, conf ExportConfig, ext string) string {
	name := "plan-" + conf.Filename
	if conf.Timestamp {
		t := time.Now()
		name += fmt.Sprintf("-%d-%02d-%02dT%02d.%02d.%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return filepath.Join(dir, name+"."+ext)
}

func writeCSV(f *os.File, res *Result) error {
	// Header
	if _, err := f.WriteString(fmt.Sprintf("# Creation date (UTC): %s\n# Objective (sum of L1 distances): %f\n", time.Now().UTC(), res.Objective)); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"t", "thrust_x", "thrust_y", "x", "y", "vx", "vy", "distance"}); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', 9, 64) }
	for t := range res.VehiclePositions {
		th, p, v := res.ThrustDecisions[t], res.VehiclePositions[t], res.VehicleVelocities[t]
		var d float64
		if t < len(res.Distances) {
			d = res.Distances[t]
		}
		if err := w.Write([]string{strconv.Itoa(t), ff(th[0]), ff(th[1]), ff(p[0]), ff(p[1]), ff(v[0]), ff(v[1]), ff(d)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeStates(f *os.File, res *Result, epoch time.Time, step time.Duration) error {
	// Header
	if _, err := f.WriteString(fmt.Sprintf(`# Creation date (UTC): %s
# Records are <jd> <x> <y> <vel x> <vel y>
#   Time is a UTC Julian date
#   Position in normalized units
#   Velocity in normalized units per time step
#   Plan start (UTC): %s`, time.Now().UTC(), epoch.UTC())); err != nil {
		return err
	}
	for t, p := range res.VehiclePositions {
		v := res.VehicleVelocities[t]
		jd := julian.TimeToJD(epoch.Add(time.Duration(t) * step).UTC())
		if _, err := f.WriteString(fmt.Sprintf("\n%f %f %f %f %f", jd, p[0], p[1], v[0], v[1])); err != nil {
			return err
		}
	}
	end := epoch.Add(time.Duration(res.Len()-1) * step)
	_, err := f.WriteString(fmt.Sprintf("\n# Plan end (UTC): %s\n", end.UTC()))
	return err
}
