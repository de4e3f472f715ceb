// Package storage persists solved network states: one directory per saved
// case, holding the run metadata, the connection and component results and
// the residual history. A saved design case feeds warm starts and
// offdesign parameter derivation.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/thermnet/internal/plant"
	"github.com/san-kum/thermnet/internal/solver"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// CaseMeta describes one saved calculation.
type CaseMeta struct {
	Name       string    `json:"name"`
	Timestamp  time.Time `json:"timestamp"`
	Mode       string    `json:"mode"`
	Fluids     []string  `json:"fluids"`
	Iterations int       `json:"iterations"`
	Residual   float64   `json:"residual"`
	Converged  bool      `json:"converged"`
}

// Save writes the current network state under the given case name,
// overwriting a prior save of the same name.
func (s *Store) Save(name string, sys *plant.System, res *solver.Result) error {
	caseDir := filepath.Join(s.baseDir, name)
	if err := os.MkdirAll(caseDir, 0755); err != nil {
		return err
	}

	meta := CaseMeta{
		Name:      name,
		Timestamp: time.Now(),
		Mode:      string(sys.Mode),
		Fluids:    sys.Fluids,
	}
	if res != nil {
		meta.Iterations = res.Iterations
		meta.Residual = res.Residual
		meta.Converged = res.Converged
	}
	if err := writeJSON(filepath.Join(caseDir, "network.json"), meta); err != nil {
		return err
	}

	if err := s.saveConnections(caseDir, sys); err != nil {
		return err
	}
	if err := s.saveComponents(caseDir, sys); err != nil {
		return err
	}
	if err := s.saveBusses(caseDir, sys); err != nil {
		return err
	}
	if err := s.saveCharacteristics(caseDir, sys); err != nil {
		return err
	}
	if res != nil {
		if err := s.saveResiduals(caseDir, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) saveConnections(caseDir string, sys *plant.System) error {
	f, err := os.Create(filepath.Join(caseDir, "connections.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"key", "source", "source_id", "target", "target_id", "m", "p", "h", "T", "x", "v"}
	header = append(header, sys.Fluids...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, c := range sys.Conns() {
		row := []string{
			c.Key(), c.Src.Label(), c.SrcID, c.Tgt.Label(), c.TgtID,
			num(c.M.Val), num(c.P.Val), num(c.H.Val),
			num(c.T.Val), num(c.X.Val), num(c.V.Val),
		}
		for _, fl := range sys.Fluids {
			row = append(row, num(c.Fluid.Val[fl]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// saveComponents groups components by type, one csv per type with the
// current and design values of every parameter.
func (s *Store) saveComponents(caseDir string, sys *plant.System) error {
	compDir := filepath.Join(caseDir, "components")
	if err := os.MkdirAll(compDir, 0755); err != nil {
		return err
	}

	byType := make(map[string][]plant.Component)
	for _, cp := range sys.Comps() {
		t := typeName(cp)
		byType[t] = append(byType[t], cp)
	}

	for t, comps := range byType {
		names := paramNames(comps)
		f, err := os.Create(filepath.Join(compDir, t+".csv"))
		if err != nil {
			return err
		}
		w := csv.NewWriter(f)

		header := []string{"label"}
		for _, n := range names {
			header = append(header, n, n+"_set", n+"_design")
		}
		if err := w.Write(header); err != nil {
			f.Close()
			return err
		}
		for _, cp := range comps {
			row := []string{cp.Label()}
			for _, n := range names {
				p, ok := cp.Params()[n]
				if !ok {
					row = append(row, "", "false", "")
					continue
				}
				row = append(row, num(p.Val), strconv.FormatBool(p.Set), num(p.DesignVal))
			}
			if err := w.Write(row); err != nil {
				f.Close()
				return err
			}
		}
		w.Flush()
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) saveBusses(caseDir string, sys *plant.System) error {
	if len(sys.Busses()) == 0 {
		return nil
	}
	f, err := os.Create(filepath.Join(caseDir, "busses.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"label", "total", "total_set", "value"}); err != nil {
		return err
	}
	for _, b := range sys.Busses() {
		row := []string{b.Label, num(b.Total.Val), strconv.FormatBool(b.Total.Set), num(b.Value())}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) saveCharacteristics(caseDir string, sys *plant.System) error {
	var rows [][]string
	for _, cp := range sys.Comps() {
		for name, p := range cp.Params() {
			if p.Char == nil {
				continue
			}
			rows = append(rows, []string{
				cp.Label(), name, p.Char.Label,
				joinFloats(p.Char.X), joinFloats(p.Char.Y),
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i][0]+rows[i][1] < rows[j][0]+rows[j][1]
	})

	f, err := os.Create(filepath.Join(caseDir, "characteristics.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"component", "param", "label", "x", "y"}); err != nil {
		return err
	}
	return w.WriteAll(rows)
}

func (s *Store) saveResiduals(caseDir string, res *solver.Result) error {
	f, err := os.Create(filepath.Join(caseDir, "residuals.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"iteration", "residual"}); err != nil {
		return err
	}
	for i, r := range res.History {
		if err := w.Write([]string{strconv.Itoa(i), num(r)}); err != nil {
			return err
		}
	}
	return nil
}

// LoadMeta reads the metadata of a saved case.
func (s *Store) LoadMeta(name string) (*CaseMeta, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, name, "network.json"))
	if err != nil {
		return nil, err
	}
	var meta CaseMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadState reads a saved case back as warm-start material: the solved
// connection states keyed by connection key, and the fluid set they were
// solved with.
func (s *Store) LoadState(name string) (map[string]plant.SavedConn, []string, error) {
	meta, err := s.LoadMeta(name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, name, "connections.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return map[string]plant.SavedConn{}, meta.Fluids, nil
	}

	header := records[0]
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}

	state := make(map[string]plant.SavedConn, len(records)-1)
	for _, rec := range records[1:] {
		sc := plant.SavedConn{
			M: parse(rec, col, "m"),
			P: parse(rec, col, "p"),
			H: parse(rec, col, "h"),
			X: make(map[string]float64, len(meta.Fluids)),
		}
		for _, fl := range meta.Fluids {
			sc.X[fl] = parse(rec, col, fl)
		}
		state[rec[col["key"]]] = sc
	}
	return state, meta.Fluids, nil
}

// List returns the metadata of all saved cases, newest first.
func (s *Store) List() ([]CaseMeta, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []CaseMeta{}, nil
		}
		return nil, err
	}

	cases := make([]CaseMeta, 0)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.LoadMeta(e.Name())
		if err != nil {
			continue
		}
		cases = append(cases, *meta)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].Timestamp.After(cases[j].Timestamp) })
	return cases, nil
}

// LoadResiduals reads the residual history of a saved case.
func (s *Store) LoadResiduals(name string) ([]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, name, "residuals.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	var hist []float64
	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			continue
		}
		hist = append(hist, v)
	}
	return hist, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func typeName(cp plant.Component) string {
	t := reflect.TypeOf(cp)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return strings.ToLower(t.Name())
}

func paramNames(comps []plant.Component) []string {
	seen := make(map[string]bool)
	var names []string
	for _, cp := range comps {
		for n := range cp.Params() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parse(rec []string, col map[string]int, name string) float64 {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return 0
	}
	v, err := strconv.ParseFloat(rec[i], 64)
	if err != nil {
		return 0
	}
	return v
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = num(v)
	}
	return strings.Join(parts, ";")
}
