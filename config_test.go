package route

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func resetConfig(t *testing.T) {
	t.Helper()
	cfgMu.Lock()
	cfgLoaded = false
	config = _routeconfig{}
	cfgMu.Unlock()
	t.Cleanup(func() {
		cfgMu.Lock()
		cfgLoaded = false
		cfgMu.Unlock()
	})
}

func TestConfigDefault(t *testing.T) {
	resetConfig(t)
	t.Setenv("ROCKET_CONFIG", "")
	conf, err := routeConfig()
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if conf != defaultConfig() {
		t.Fatalf("unexpected default config %+v", conf)
	}
}

func TestConfigFromFile(t *testing.T) {
	resetConfig(t)
	dir := t.TempDir()
	toml := `[general]
output_path = "/tmp/plans"

[solver]
tolerance = 1e-9
timeout = "2s"
max_dense_entries = 1000
`
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROCKET_CONFIG", dir)
	opt, err := NewConfiguredOptimizer(nil)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	s, ok := opt.Solver.(*Simplex)
	if !ok {
		t.Fatalf("unexpected solver %T", opt.Solver)
	}
	if s.Tol != 1e-9 || s.Timeout != 2*time.Second || s.MaxDenseEntries != 1000 {
		t.Fatalf("unexpected solver settings %+v", s)
	}
	if config.outputDir != "/tmp/plans" {
		t.Fatalf("unexpected output dir %s", config.outputDir)
	}
}

func TestConfigErrors(t *testing.T) {
	resetConfig(t)
	t.Setenv("ROCKET_CONFIG", t.TempDir())
	if _, err := routeConfig(); err == nil {
		t.Fatal("expected an error for a missing conf.toml")
	}

	resetConfig(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte("[solver]\ntolerance = -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROCKET_CONFIG", dir)
	if _, err := routeConfig(); err == nil {
		t.Fatal("expected an error for a negative tolerance")
	}
}
