// Package config loads plant definitions from YAML and builds solvable
// networks from them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/thermnet/internal/components"
	"github.com/san-kum/thermnet/internal/plant"
)

const (
	DefaultTolerance = 1e-3
	DefaultMaxIter   = 50
)

type Config struct {
	Label       string            `yaml:"label"`
	Fluids      []string          `yaml:"fluids"`
	Solver      SolverConfig      `yaml:"solver"`
	Components  []ComponentConfig `yaml:"components"`
	Connections []ConnConfig      `yaml:"connections"`
	Busses      []BusConfig       `yaml:"busses"`
}

type SolverConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	MaxIter   int     `yaml:"max_iter"`
}

type ComponentConfig struct {
	Label  string             `yaml:"label"`
	Type   string             `yaml:"type"`
	NumIn  int                `yaml:"num_in"`
	NumOut int                `yaml:"num_out"`
	Params map[string]float64 `yaml:"params"`
	Manual bool               `yaml:"manual"`
}

// ConnConfig specifies one connection. Value fields are pointers so an
// absent key stays unspecified rather than zero.
type ConnConfig struct {
	Source   string `yaml:"source"`
	SourceID string `yaml:"source_id"`
	Target   string `yaml:"target"`
	TargetID string `yaml:"target_id"`

	M *float64 `yaml:"m"`
	P *float64 `yaml:"p"`
	H *float64 `yaml:"h"`
	T *float64 `yaml:"T"`
	X *float64 `yaml:"x"`
	V *float64 `yaml:"v"`

	Fluids  map[string]float64 `yaml:"fluids"`
	Balance bool               `yaml:"balance"`

	Design    []string `yaml:"design"`
	Offdesign []string `yaml:"offdesign"`
}

type BusConfig struct {
	Label   string           `yaml:"label"`
	Total   *float64         `yaml:"total"`
	Entries []BusEntryConfig `yaml:"entries"`
}

type BusEntryConfig struct {
	Component string  `yaml:"component"`
	Param     string  `yaml:"param"`
	Ref       float64 `yaml:"ref"`
}

func DefaultConfig() *Config {
	return Preset("pump-circuit")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Solver: SolverConfig{Tolerance: DefaultTolerance, MaxIter: DefaultMaxIter},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Solver.Tolerance == 0 {
		cfg.Solver.Tolerance = DefaultTolerance
	}
	if cfg.Solver.MaxIter == 0 {
		cfg.Solver.MaxIter = DefaultMaxIter
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Build constructs the network the config describes.
func (c *Config) Build() (*plant.System, error) {
	sys, err := plant.NewSystem(c.Fluids)
	if err != nil {
		return nil, err
	}

	comps := make(map[string]plant.Component, len(c.Components))
	for _, cc := range c.Components {
		cp, err := newComponent(cc)
		if err != nil {
			return nil, err
		}
		if _, ok := comps[cc.Label]; ok {
			return nil, fmt.Errorf("config: duplicate component label %q", cc.Label)
		}
		comps[cc.Label] = cp
	}

	for _, nc := range c.Connections {
		src, ok := comps[nc.Source]
		if !ok {
			return nil, fmt.Errorf("config: connection references unknown component %q", nc.Source)
		}
		tgt, ok := comps[nc.Target]
		if !ok {
			return nil, fmt.Errorf("config: connection references unknown component %q", nc.Target)
		}
		srcID := nc.SourceID
		if srcID == "" {
			srcID = "out1"
		}
		tgtID := nc.TargetID
		if tgtID == "" {
			tgtID = "in1"
		}
		conn := plant.NewConnection(src, srcID, tgt, tgtID)
		applySpecs(conn, nc)
		if err := sys.AddConns(conn); err != nil {
			return nil, err
		}
	}

	for _, bc := range c.Busses {
		bus := plant.NewBus(bc.Label)
		if bc.Total != nil {
			bus.Total.Specify(*bc.Total)
		}
		for _, ec := range bc.Entries {
			cp, ok := comps[ec.Component]
			if !ok {
				return nil, fmt.Errorf("config: bus %q references unknown component %q", bc.Label, ec.Component)
			}
			if err := bus.Add(&plant.BusEntry{Comp: cp, Param: ec.Param, Ref: ec.Ref}); err != nil {
				return nil, err
			}
		}
		if err := sys.AddBusses(bus); err != nil {
			return nil, err
		}
	}
	return sys, nil
}

func applySpecs(conn *plant.Connection, nc ConnConfig) {
	if nc.M != nil {
		conn.M.Specify(*nc.M)
	}
	if nc.P != nil {
		conn.P.Specify(*nc.P)
	}
	if nc.H != nil {
		conn.H.Specify(*nc.H)
	}
	if nc.T != nil {
		conn.T.Specify(*nc.T)
	}
	if nc.X != nil {
		conn.X.Specify(*nc.X)
	}
	if nc.V != nil {
		conn.V.Specify(*nc.V)
	}
	for fl, x := range nc.Fluids {
		conn.Fluid.Specify(fl, x)
	}
	conn.Fluid.Balance = nc.Balance
	conn.Design = nc.Design
	conn.Offdesign = nc.Offdesign
}

func newComponent(cc ComponentConfig) (plant.Component, error) {
	switch cc.Type {
	case "source":
		return applyParams(components.NewSource(cc.Label), cc), nil
	case "sink":
		return applyParams(components.NewSink(cc.Label), cc), nil
	case "valve":
		return applyParams(components.NewValve(cc.Label), cc), nil
	case "pump":
		return applyParams(components.NewPump(cc.Label), cc), nil
	case "turbine":
		return applyParams(components.NewTurbine(cc.Label), cc), nil
	case "compressor":
		return applyParams(components.NewCompressor(cc.Label), cc), nil
	case "pipe":
		return applyParams(components.NewPipe(cc.Label), cc), nil
	case "heat_exchanger_simple":
		return applyParams(components.NewSimpleHeatExchanger(cc.Label), cc), nil
	case "heat_exchanger":
		return applyParams(components.NewHeatExchanger(cc.Label), cc), nil
	case "condenser":
		return applyParams(components.NewCondenser(cc.Label), cc), nil
	case "splitter":
		return applyParams(components.NewSplitter(cc.Label, defaultArity(cc.NumOut)), cc), nil
	case "merge":
		return applyParams(components.NewMerge(cc.Label, defaultArity(cc.NumIn)), cc), nil
	case "node":
		return applyParams(components.NewNode(cc.Label, defaultArity(cc.NumIn), defaultArity(cc.NumOut)), cc), nil
	case "drum":
		return applyParams(components.NewDrum(cc.Label), cc), nil
	case "combustion_chamber":
		return applyParams(components.NewCombustionChamber(cc.Label), cc), nil
	default:
		return nil, fmt.Errorf("config: unknown component type %q", cc.Type)
	}
}

// paramSettable is the slice of the component contract config needs to
// apply parameter values.
type paramSettable interface {
	plant.Component
	Set(name string, val float64)
	SetManual(manual bool)
}

func applyParams(cp paramSettable, cc ComponentConfig) plant.Component {
	for name, val := range cc.Params {
		cp.Set(name, val)
	}
	cp.SetManual(cc.Manual)
	return cp
}

func defaultArity(n int) int {
	if n == 0 {
		return 2
	}
	return n
}
