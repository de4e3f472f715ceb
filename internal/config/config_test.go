package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.yaml")
	cfg := Preset("pump-circuit")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Label != cfg.Label {
		t.Errorf("label %q", loaded.Label)
	}
	if len(loaded.Components) != len(cfg.Components) {
		t.Errorf("component count %d", len(loaded.Components))
	}
	if len(loaded.Connections) != len(cfg.Connections) {
		t.Errorf("connection count %d", len(loaded.Connections))
	}
	if loaded.Connections[0].M == nil || *loaded.Connections[0].M != 1 {
		t.Errorf("mass flow spec lost: %v", loaded.Connections[0].M)
	}
	if loaded.Connections[1].P == nil || *loaded.Connections[1].P != 10e5 {
		t.Errorf("pressure spec lost: %v", loaded.Connections[1].P)
	}
	if loaded.Connections[2].H != nil {
		t.Error("absent spec must stay unset")
	}
	if loaded.Components[1].Params["eta_s"] != 0.9 {
		t.Errorf("component params lost: %v", loaded.Components[1].Params)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.yaml")
	yml := `
label: bare
fluids: [water]
components:
  - {label: feed, type: source}
  - {label: drain, type: sink}
connections:
  - {source: feed, target: drain}
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Solver.Tolerance != DefaultTolerance || cfg.Solver.MaxIter != DefaultMaxIter {
		t.Errorf("solver defaults not applied: %+v", cfg.Solver)
	}
}

func TestBuildPresets(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			cfg := Preset(name)
			sys, err := cfg.Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if err := sys.Check(); err != nil {
				t.Fatalf("check: %v", err)
			}
			if len(sys.Conns()) != len(cfg.Connections) {
				t.Errorf("connection count %d", len(sys.Conns()))
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  *Config
		want string
	}{
		{
			name: "unknown component type",
			cfg: &Config{
				Fluids:     []string{"water"},
				Components: []ComponentConfig{{Label: "x", Type: "reactor"}},
			},
			want: "unknown component type",
		},
		{
			name: "duplicate label",
			cfg: &Config{
				Fluids: []string{"water"},
				Components: []ComponentConfig{
					{Label: "x", Type: "source"},
					{Label: "x", Type: "sink"},
				},
			},
			want: "duplicate component label",
		},
		{
			name: "unknown connection endpoint",
			cfg: &Config{
				Fluids:      []string{"water"},
				Components:  []ComponentConfig{{Label: "feed", Type: "source"}},
				Connections: []ConnConfig{{Source: "feed", Target: "ghost"}},
			},
			want: "unknown component",
		},
		{
			name: "unknown bus member",
			cfg: &Config{
				Fluids:     []string{"water"},
				Components: []ComponentConfig{{Label: "feed", Type: "source"}},
				Busses: []BusConfig{
					{Label: "power", Entries: []BusEntryConfig{{Component: "ghost", Param: "P"}}},
				},
			},
			want: "unknown component",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.cfg.Build()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestBuildAppliesSpecs(t *testing.T) {
	cfg := Preset("pump-circuit")
	sys, err := cfg.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	conns := sys.Conns()
	if !conns[0].M.Set || conns[0].M.Val != 1 {
		t.Errorf("mass flow spec: %+v", conns[0].M)
	}
	if !conns[0].T.Set || conns[0].T.Val != 293.15 {
		t.Errorf("temperature spec: %+v", conns[0].T)
	}
	if !conns[0].Fluid.Set["water"] {
		t.Error("fluid spec not applied")
	}
	if len(conns[1].Design) != 1 || conns[1].Design[0] != "p" {
		t.Errorf("design list: %v", conns[1].Design)
	}
	if len(sys.Busses()) != 1 || sys.Busses()[0].Label != "pump power" {
		t.Errorf("busses: %v", sys.Busses())
	}
}
