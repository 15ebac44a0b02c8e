// Package stats supplies the per-segment measurements that accompany a
// report: the JSON array handed to the report encoder and a tabular
// rendition for display or file export.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Provider yields measurements for the segmentation being reported.
// Computing statistics from pixel data is out of scope; providers hand
// through precomputed results.
type Provider interface {
	// Measurements returns the encoder-ready measurements array for the
	// segmentation at segPath.
	Measurements(ctx context.Context, segPath string) (json.RawMessage, error)
	// Table returns the same measurements as rows for display or export.
	Table(ctx context.Context) (*Table, error)
}

// Table is a column-aligned view of the measurements.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row carries one segment's measurement values, aligned with Table.Columns.
// Missing measurements stay empty.
type Row struct {
	Segment int
	Label   string
	Values  []string
}

type codedConcept struct {
	CodeValue              string `json:"CodeValue"`
	CodingSchemeDesignator string `json:"CodingSchemeDesignator"`
	CodeMeaning            string `json:"CodeMeaning"`
}

type measurementItem struct {
	Value    string       `json:"value"`
	Quantity codedConcept `json:"quantity"`
	Units    codedConcept `json:"units"`
}

type measurementEntry struct {
	TrackingIdentifier string            `json:"TrackingIdentifier"`
	ReferencedSegment  int               `json:"ReferencedSegment"`
	MeasurementItems   []measurementItem `json:"measurementItems"`
}

// FileProvider reads a precomputed measurements document. The file holds
// either the bare measurements array or an object wrapping it under a
// "Measurements" key.
type FileProvider struct {
	path   string
	logger *zap.Logger

	loaded  bool
	raw     json.RawMessage
	entries []measurementEntry
}

func NewFileProvider(path string, logger *zap.Logger) *FileProvider {
	return &FileProvider{path: path, logger: logger}
}

func (p *FileProvider) load() error {
	if p.loaded {
		return nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read measurements %s: %w", p.path, err)
	}

	raw := json.RawMessage(bytes.TrimSpace(data))
	if len(raw) > 0 && raw[0] != '[' {
		var wrapper struct {
			Measurements json.RawMessage `json:"Measurements"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return fmt.Errorf("parse measurements %s: %w", p.path, err)
		}
		if wrapper.Measurements == nil {
			return fmt.Errorf("parse measurements %s: no Measurements key", p.path)
		}
		raw = wrapper.Measurements
	}

	var entries []measurementEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse measurements %s: %w", p.path, err)
	}

	p.raw = raw
	p.entries = entries
	p.loaded = true
	p.logger.Info("Loaded measurements",
		zap.String("path", p.path),
		zap.Int("segments", len(entries)),
	)
	return nil
}

func (p *FileProvider) Measurements(ctx context.Context, segPath string) (json.RawMessage, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	return p.raw, nil
}

func (p *FileProvider) Table(ctx context.Context) (*Table, error) {
	if err := p.load(); err != nil {
		return nil, err
	}

	table := &Table{}
	columnIndex := map[string]int{}
	for _, entry := range p.entries {
		for _, item := range entry.MeasurementItems {
			name := columnName(item)
			if _, ok := columnIndex[name]; !ok {
				columnIndex[name] = len(table.Columns)
				table.Columns = append(table.Columns, name)
			}
		}
	}

	for _, entry := range p.entries {
		row := Row{
			Segment: entry.ReferencedSegment,
			Label:   entry.TrackingIdentifier,
			Values:  make([]string, len(table.Columns)),
		}
		for _, item := range entry.MeasurementItems {
			row.Values[columnIndex[columnName(item)]] = item.Value
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func columnName(item measurementItem) string {
	if item.Units.CodeMeaning != "" {
		return fmt.Sprintf("%s [%s]", item.Quantity.CodeMeaning, item.Units.CodeMeaning)
	}
	return item.Quantity.CodeMeaning
}

// Empty is the provider used when no measurements document is supplied. The
// encoder receives an empty array and the table has no rows.
type Empty struct{}

func (Empty) Measurements(ctx context.Context, segPath string) (json.RawMessage, error) {
	return json.RawMessage("[]"), nil
}

func (Empty) Table(ctx context.Context) (*Table, error) {
	return &Table{}, nil
}
