// internal/report/assembler.go
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mrsinham/quantreport/internal/catalog"
	"github.com/mrsinham/quantreport/internal/dicom"
	"github.com/mrsinham/quantreport/internal/encoder"
	"github.com/mrsinham/quantreport/internal/exporter"
	"github.com/mrsinham/quantreport/internal/index"
	"github.com/mrsinham/quantreport/internal/stats"
)

// ConsistencyError reports a mismatch between the number of segments in
// the exported segmentation and the number of segments the characteristics
// store tracks. It aborts the save before the report is modified.
type ConsistencyError struct {
	SegmentCount int
	StoreCount   int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("segmentation holds %d segments but characteristics are tracked for %d, refresh the segment list before saving",
		e.SegmentCount, e.StoreCount)
}

// AssemblerConfig wires the collaborators of the save workflow.
type AssemblerConfig struct {
	Catalog  *catalog.Catalog
	Store    *Store
	Exporter exporter.Exporter
	Encoder  encoder.Runner
	Repo     index.Repository
	// Stats computes the measurements document. Optional, defaults to no
	// measurements.
	Stats stats.Provider
	// SourceDir holds the image series the segmentation was drawn on.
	SourceDir string
	Logger    *zap.Logger
}

func (c AssemblerConfig) validate() error {
	switch {
	case c.Catalog == nil:
		return errors.New("assembler requires a characteristics catalog")
	case c.Store == nil:
		return errors.New("assembler requires a characteristics store")
	case c.Exporter == nil:
		return errors.New("assembler requires a segmentation exporter")
	case c.Encoder == nil:
		return errors.New("assembler requires a report encoder")
	case c.Repo == nil:
		return errors.New("assembler requires a file index")
	case c.SourceDir == "":
		return errors.New("assembler requires a source image directory")
	}
	return nil
}

// Assembler runs the report save workflow: export the segmentation, encode
// the measurement report, merge the stored characteristics into it and
// commit both files. All intermediate artifacts live in a scratch
// workspace that is removed whether the save succeeds or not.
type Assembler struct {
	catalog   *catalog.Catalog
	store     *Store
	exporter  exporter.Exporter
	encoder   encoder.Runner
	repo      index.Repository
	stats     stats.Provider
	sourceDir string
	logger    *zap.Logger
}

// NewAssembler validates the configuration and returns an assembler.
func NewAssembler(cfg AssemblerConfig) (*Assembler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.Empty{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Assembler{
		catalog:   cfg.Catalog,
		store:     cfg.Store,
		exporter:  cfg.Exporter,
		encoder:   cfg.Encoder,
		repo:      cfg.Repo,
		stats:     cfg.Stats,
		sourceDir: cfg.SourceDir,
		logger:    cfg.Logger,
	}, nil
}

// SaveRequest parameterizes one report save.
type SaveRequest struct {
	Metadata  Metadata
	Completed bool
	// OutputDir receives the committed segmentation and report files.
	OutputDir string
	// VisibleSegments restricts the export to the named segments. Empty
	// exports all of them.
	VisibleSegments []string
}

// SaveResult names the committed artifacts.
type SaveResult struct {
	SEGPath string
	SRPath  string
}

// Save runs the whole workflow. Nothing is committed unless every step
// succeeds: a validation failure, export fault, encoder fault, count
// mismatch or lookup fault aborts the save, and the scratch workspace is
// cleaned up either way.
func (a *Assembler) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if err := req.Metadata.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report metadata: %w", err)
	}
	if req.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}

	ws, err := exporter.NewWorkspace(a.logger)
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	segPath, err := a.createSEG(ctx, ws, req)
	if err != nil {
		return nil, err
	}
	srPath, err := a.createSR(ctx, ws, segPath, req)
	if err != nil {
		return nil, err
	}

	return a.commit(ctx, req.OutputDir, segPath, srPath)
}

// createSEG exports the segmentation into the workspace.
func (a *Assembler) createSEG(ctx context.Context, ws *exporter.Workspace, req SaveRequest) (string, error) {
	fileName := ws.SEGFileName()
	err := a.exporter.Export(ctx, exporter.Request{
		OutputDirectory: ws.Dir(),
		FileName:        fileName,
		SegmentIDs:      req.VisibleSegments,
		Metadata:        req.Metadata.ExportMetadata(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to export segmentation: %w", err)
	}

	path := ws.Path(fileName)
	a.logger.Debug("Saved DICOM segmentation", zap.String("path", path))
	return path, nil
}

// createSR encodes the measurement report next to the segmentation and
// merges the stored characteristics into it.
func (a *Assembler) createSR(ctx context.Context, ws *exporter.Workspace, segPath string, req SaveRequest) (string, error) {
	imageLibrary, err := exporter.SourceFiles(a.sourceDir)
	if err != nil {
		return "", fmt.Errorf("failed to list source images: %w", err)
	}

	measurements, err := a.stats.Measurements(ctx, segPath)
	if err != nil {
		return "", fmt.Errorf("failed to compute measurements: %w", err)
	}

	metaPath := ws.Path("sr_meta.json")
	if err := WriteSRMeta(metaPath, req.Metadata, req.Completed, segPath, imageLibrary, measurements); err != nil {
		return "", err
	}

	srPath := ws.Path("sr.dcm")
	status, err := a.encoder.Run(ctx, encoder.Params{
		MetaDataFileName:        metaPath,
		CompositeContextDataDir: filepath.Dir(segPath),
		ImageLibraryDataDir:     a.sourceDir,
		OutputFileName:          srPath,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run report encoder: %w", err)
	}
	if status != encoder.StatusCompleted {
		return "", fmt.Errorf("report encoder finished with status %q, aborting save", status)
	}

	if err := a.mergeCharacteristics(segPath, srPath); err != nil {
		return "", err
	}
	return srPath, nil
}

// mergeCharacteristics injects the stored selections into the generated
// report. The report's per-segment content items, in document order, pair
// with the store keys in ascending order. The pairing is positional, so a
// segment count mismatch is a hard stop before the report is touched.
func (a *Assembler) mergeCharacteristics(segPath, srPath string) error {
	segments, err := dicom.ReadSegments(segPath)
	if err != nil {
		return fmt.Errorf("failed to read exported segmentation: %w", err)
	}

	sortedKeys := a.store.OrderedKeys()
	if len(segments) != len(sortedKeys) {
		return &ConsistencyError{SegmentCount: len(segments), StoreCount: len(sortedKeys)}
	}

	// The pairing assumes the segmentation lists its segments in the same
	// ascending order as the store keys. Surface any drift.
	segNumbers := make([]int, len(segments))
	for i, seg := range segments {
		segNumbers[i] = seg.Number
	}
	if !equalInts(segNumbers, sortedKeys) {
		a.logger.Warn("Segment numbers do not line up with tracked keys, characteristics attach by position",
			zap.Ints("segmentNumbers", segNumbers),
			zap.Ints("trackedKeys", sortedKeys))
	}

	groups := make([][]dicom.CodedItem, len(sortedKeys))
	for i, key := range sortedKeys {
		entry, _ := a.store.Get(key)
		items, err := a.resolveEntry(key, entry)
		if err != nil {
			return err
		}
		groups[i] = items
	}

	if err := dicom.InjectCharacteristics(srPath, groups); err != nil {
		return fmt.Errorf("failed to merge characteristics into report: %w", err)
	}
	return nil
}

// resolveEntry turns one segment's selections into coded items, in concept
// name order. Selections left at the no-selection label are skipped; an
// unknown concept or choice aborts with the lookup error.
func (a *Assembler) resolveEntry(segmentID int, entry Entry) ([]dicom.CodedItem, error) {
	concepts := make([]string, 0, len(entry))
	for concept := range entry {
		concepts = append(concepts, concept)
	}
	sort.Strings(concepts)

	var items []dicom.CodedItem
	for _, concept := range concepts {
		sel, ok, err := a.catalog.Resolve(concept, entry[concept])
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", segmentID, err)
		}
		if !ok {
			continue
		}
		items = append(items, dicom.CodedItem{
			Name: codeFromCatalog(sel.Concept),
			Code: codeFromCatalog(sel.Choice),
		})
	}
	return items, nil
}

// commit moves the finished artifacts out of the workspace and registers
// them with the index. Registration starts only once both files are in
// place; a failed copy removes whatever was already copied.
func (a *Assembler) commit(ctx context.Context, outputDir, segPath, srPath string) (*SaveResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	segBase := filepath.Base(segPath)
	finalSEG := filepath.Join(outputDir, segBase)
	// The report takes the segmentation's name with SR in place of SEG so
	// the pair sorts together.
	finalSR := filepath.Join(outputDir, strings.Replace(segBase, ".SEG", ".SR", 1))

	if err := copyFile(segPath, finalSEG); err != nil {
		return nil, fmt.Errorf("failed to copy segmentation to output: %w", err)
	}
	if err := copyFile(srPath, finalSR); err != nil {
		os.Remove(finalSEG)
		return nil, fmt.Errorf("failed to copy report to output: %w", err)
	}

	if err := a.repo.Insert(ctx, finalSEG); err != nil {
		return nil, fmt.Errorf("failed to index segmentation: %w", err)
	}
	if err := a.repo.Insert(ctx, finalSR); err != nil {
		return nil, fmt.Errorf("failed to index report: %w", err)
	}

	a.logger.Info("Report saved",
		zap.String("segmentation", finalSEG),
		zap.String("report", finalSR))
	return &SaveResult{SEGPath: finalSEG, SRPath: finalSR}, nil
}

func codeFromCatalog(c catalog.Code) dicom.Code {
	return dicom.Code{
		Value:            c.Value,
		SchemeDesignator: c.SchemeDesignator,
		Meaning:          c.Meaning,
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
