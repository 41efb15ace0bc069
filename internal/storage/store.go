package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/quantfall/xasim/internal/evolve"
	"github.com/quantfall/xasim/internal/process"
	"github.com/quantfall/xasim/internal/scenario"
	"github.com/quantfall/xasim/internal/stats"
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

type RunMetadata struct {
	ID        string             `json:"id"`
	Scenario  string             `json:"scenario"`
	Timestamp time.Time          `json:"timestamp"`
	Scheme    string             `json:"scheme"`
	Salvage   string             `json:"salvage"`
	Seed      uint64             `json:"seed"`
	Paths     int                `json:"paths"`
	Steps     int                `json:"steps"`
	Horizon   float64            `json:"horizon"`
	Factors   []string           `json:"factors"`
	Summary   map[string]float64 `json:"summary"`
}

// Save persists one run: metadata.json plus fan.csv with quantile bands
// of every factor. Returns the run id.
func (s *Store) Save(cfg *scenario.Config, fans []*stats.Fan, summaries []*stats.Summary) (string, error) {
	name := cfg.Name
	if name == "" {
		name = "run"
	}
	base := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	runID := base
	runDir := filepath.Join(s.baseDir, runID)
	// Suites can save the same scenario twice within a second.
	for n := 2; ; n++ {
		if _, err := os.Stat(runDir); os.IsNotExist(err) {
			break
		}
		runID = fmt.Sprintf("%s_%d", base, n)
		runDir = filepath.Join(s.baseDir, runID)
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	factors := make([]string, len(cfg.Factors))
	for i, fc := range cfg.Factors {
		factors[i] = fc.Name
	}

	summary := make(map[string]float64)
	for _, sm := range summaries {
		name := cfg.Factors[sm.Factor].Name
		summary[name+".mean"] = sm.Mean
		summary[name+".std"] = sm.Std
		summary[name+".min"] = sm.Min
		summary[name+".max"] = sm.Max
	}

	meta := RunMetadata{
		ID:        runID,
		Scenario:  cfg.Name,
		Timestamp: time.Now(),
		Scheme:    cfg.Scheme,
		Salvage:   cfg.Salvage,
		Seed:      cfg.Seed,
		Paths:     cfg.Paths,
		Steps:     cfg.Steps,
		Horizon:   cfg.Horizon,
		Factors:   factors,
		Summary:   summary,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if len(fans) == 0 {
		return runID, nil
	}

	csvFile, err := os.Create(filepath.Join(runDir, "fan.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"time"}
	for _, fan := range fans {
		fname := cfg.Factors[fan.Factor].Name
		for _, p := range fan.Probs {
			header = append(header, fmt.Sprintf("%s_p%g", fname, p*100))
		}
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	times := fans[0].Times
	for i := range times {
		row := []string{strconv.FormatFloat(times[i], 'g', -1, 64)}
		for _, fan := range fans {
			for j := range fan.Probs {
				row = append(row, strconv.FormatFloat(fan.Bands[j][i], 'g', -1, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// SavePaths persists the full batch of a run as paths.csv. Large for
// big ensembles, so it is separate from Save.
func (s *Store) SavePaths(runID string, b *evolve.Batch, names []string) error {
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(filepath.Join(runDir, "paths.csv"))
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := append([]string{"path", "time"}, names...)
	if err := w.Write(header); err != nil {
		return err
	}

	for k, p := range b.Paths {
		for i, t := range p.Times {
			row := make([]string, 0, len(header))
			row = append(row, strconv.Itoa(k), strconv.FormatFloat(t, 'g', -1, 64))
			for _, v := range p.States[i] {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// FanData holds the reloaded quantile bands of a run. Bands[j] is the
// series for Columns[j].
type FanData struct {
	Columns []string
	Times   []float64
	Bands   [][]float64
}

func (s *Store) LoadFan(runID string) (*FanData, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "fan.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("storage: run %s has no fan data", runID)
	}

	cols := records[0][1:]
	fd := &FanData{
		Columns: cols,
		Times:   make([]float64, 0, len(records)-1),
		Bands:   make([][]float64, len(cols)),
	}

	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) != len(cols)+1 {
			continue
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			continue
		}
		vals := make([]float64, len(cols))
		ok := true
		for j := range cols {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		fd.Times = append(fd.Times, t)
		for j := range cols {
			fd.Bands[j] = append(fd.Bands[j], vals[j])
		}
	}
	return fd, nil
}

// LoadPaths rebuilds the batch stored by SavePaths.
func (s *Store) LoadPaths(runID string) (*evolve.Batch, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "paths.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("storage: run %s has no path data", runID)
	}

	byPath := make(map[int]*evolve.Path)
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 3 {
			continue
		}
		k, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		t, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			continue
		}
		x := make(process.State, 0, len(rec)-2)
		ok := true
		for j := 2; j < len(rec); j++ {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				ok = false
				break
			}
			x = append(x, v)
		}
		if !ok {
			continue
		}

		p, found := byPath[k]
		if !found {
			p = &evolve.Path{}
			byPath[k] = p
		}
		p.Times = append(p.Times, t)
		p.States = append(p.States, x)
	}
	if len(byPath) == 0 {
		return nil, fmt.Errorf("storage: run %s has no readable paths", runID)
	}

	paths := make([]*evolve.Path, len(byPath))
	for k := range paths {
		p, found := byPath[k]
		if !found {
			return nil, fmt.Errorf("storage: run %s is missing path %d", runID, k)
		}
		if len(p.Times) != len(byPath[0].Times) {
			return nil, fmt.Errorf("storage: run %s path %d has %d points", runID, k, len(p.Times))
		}
		paths[k] = p
	}

	g, err := evolve.FromTimes(paths[0].Times)
	if err != nil {
		return nil, err
	}
	return &evolve.Batch{Grid: g, Paths: paths}, nil
}
