package storage

import (
	"encoding/json"
	"io"
	"os"
)

// ExportData is the flat JSON document produced for a stored run.
type ExportData struct {
	ID       string             `json:"id"`
	Scenario string             `json:"scenario"`
	Scheme   string             `json:"scheme"`
	Salvage  string             `json:"salvage"`
	Seed     uint64             `json:"seed"`
	Paths    int                `json:"paths"`
	Steps    int                `json:"steps"`
	Horizon  float64            `json:"horizon"`
	Times    []float64          `json:"times"`
	Columns  []string           `json:"columns"`
	Bands    [][]float64        `json:"bands"`
	Summary  map[string]float64 `json:"summary"`
}

func encodeExport(w io.Writer, meta *RunMetadata, fan *FanData) error {
	data := ExportData{
		ID:       meta.ID,
		Scenario: meta.Scenario,
		Scheme:   meta.Scheme,
		Salvage:  meta.Salvage,
		Seed:     meta.Seed,
		Paths:    meta.Paths,
		Steps:    meta.Steps,
		Horizon:  meta.Horizon,
		Times:    fan.Times,
		Columns:  fan.Columns,
		Bands:    fan.Bands,
		Summary:  meta.Summary,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, meta *RunMetadata, fan *FanData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return encodeExport(file, meta, fan)
}

func ExportJSONStdout(meta *RunMetadata, fan *FanData) error {
	return encodeExport(os.Stdout, meta, fan)
}
