package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrsinham/quantreport/cmd/quantreport/wizard"
	"github.com/mrsinham/quantreport/internal/catalog"
	"github.com/mrsinham/quantreport/internal/dicom"
	"github.com/mrsinham/quantreport/internal/encoder"
	"github.com/mrsinham/quantreport/internal/exporter"
	"github.com/mrsinham/quantreport/internal/index"
	"github.com/mrsinham/quantreport/internal/report"
	"github.com/mrsinham/quantreport/internal/settings"
	"github.com/mrsinham/quantreport/internal/stats"
	"github.com/mrsinham/quantreport/internal/testdata"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	// Check for wizard subcommand (before flag.Parse)
	if len(os.Args) > 1 && os.Args[1] == "wizard" {
		// Extract --settings and --from flags if present
		var settingsFile, fromDefaults string
		for i, arg := range os.Args[2:] {
			if arg == "--settings" && i+3 < len(os.Args) {
				settingsFile = os.Args[i+3]
			}
			if arg == "--from" && i+3 < len(os.Args) {
				fromDefaults = os.Args[i+3]
			}
		}
		if err := wizard.Run(settingsFile, fromDefaults); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Define command-line flags
	segPath := flag.String("seg", "", "Segmentation file to report on (required)")
	catalogPath := flag.String("catalog", "", "Characteristics catalog JSON (required)")
	characteristicsPath := flag.String("characteristics", "", "Per-segment characteristics JSON (required)")
	sourceDir := flag.String("source-dir", "", "Directory holding the image series the segmentation was drawn on (required)")
	measurementsPath := flag.String("measurements", "", "Precomputed measurements JSON (optional)")
	outputDir := flag.String("output", "report_output", "Output directory for the committed files")
	encoderBin := flag.String("encoder", "tid1500writer", "Report encoder binary")
	completed := flag.Bool("completed", false, "Mark the report COMPLETE and VERIFIED")
	visibleOnly := flag.String("visible-only", "", "Comma-separated segment labels to include (default: all)")

	// Report metadata (overrides stored defaults)
	creator := flag.String("creator", "", "Content creator person name")
	seriesNumber := flag.String("series-number", "", "Series number for the saved objects (default: 300)")
	instanceNumber := flag.String("instance-number", "", "Instance number for the saved objects (default: 1)")
	trialSeriesID := flag.String("trial-series-id", "", "Clinical trial series ID")
	timePoint := flag.String("time-point", "", "Clinical trial time point ID")
	coordinatingCenter := flag.String("coordinating-center", "", "Clinical trial coordinating center name")
	settingsPath := flag.String("settings", "", "Settings file holding metadata defaults")

	// File index selection
	dbDSN := flag.String("db", "", "PostgreSQL DSN for the file index (default: in-memory)")
	dicomwebURL := flag.String("dicomweb", "", "DICOMweb base URL for the file index (default: in-memory)")

	// Extra renditions
	htmlPath := flag.String("html", "", "Also write an HTML rendition to this file")
	xlsxPath := flag.String("xlsx", "", "Also write a spreadsheet rendition to this file")

	// Sample data
	loadTestData := flag.Bool("load-test-data", false, "Download and index the sample series, then exit")
	collection := flag.String("collection", "MRHead", "Sample data collection for --load-test-data")
	cacheDir := flag.String("cache-dir", "quantreport-cache", "Download cache for --load-test-data")

	// Interactive wizard and logging options
	interactive := flag.Bool("interactive", false, "Launch interactive defaults wizard")
	flag.BoolVar(interactive, "i", false, "Launch interactive defaults wizard (shortcut)")
	quiet := flag.Bool("quiet", false, "Only log errors")
	verbose := flag.Bool("verbose", false, "Verbose development logging")

	help := flag.Bool("help", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version")

	flag.Parse()

	// Handle interactive mode
	if *interactive {
		if err := wizard.Run(*settingsPath, ""); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Show version
	if *showVersion {
		fmt.Printf("quantreport %s\n", version)
		os.Exit(0)
	}

	// Show help
	if *help {
		printHelp()
		os.Exit(0)
	}

	logger, err := buildLogger(*quiet, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	if *dbDSN != "" && *dicomwebURL != "" {
		fmt.Fprintf(os.Stderr, "Error: --db and --dicomweb are mutually exclusive\n")
		os.Exit(1)
	}

	// Sample data mode downloads and indexes the test series, nothing else.
	if *loadTestData {
		if err := runLoadTestData(ctx, *collection, *cacheDir, *dbDSN, *dicomwebURL, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Validate required arguments
	if *segPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --seg is required\n")
		printUsage()
		os.Exit(1)
	}

	if *catalogPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --catalog is required\n")
		printUsage()
		os.Exit(1)
	}

	if *characteristicsPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --characteristics is required\n")
		printUsage()
		os.Exit(1)
	}

	if *sourceDir == "" {
		fmt.Fprintf(os.Stderr, "Error: --source-dir is required\n")
		printUsage()
		os.Exit(1)
	}

	// Load the characteristics catalog
	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Load the per-segment characteristics
	store, err := report.LoadAssignments(*characteristicsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Resolve metadata: stored defaults first, flags override
	var settingsStore *settings.Store
	md := report.Metadata{}
	if *settingsPath != "" {
		settingsStore, err = settings.Open(*settingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		md = report.DefaultsFromSettings(settingsStore)
	}
	if *creator != "" {
		md.ContentCreatorName = *creator
	}
	if *seriesNumber != "" {
		md.SeriesNumber = *seriesNumber
	}
	if *instanceNumber != "" {
		md.InstanceNumber = *instanceNumber
	}
	if *trialSeriesID != "" {
		md.ClinicalTrialSeriesID = *trialSeriesID
	}
	if *timePoint != "" {
		md.ClinicalTrialTimePointID = *timePoint
	}
	if *coordinatingCenter != "" {
		md.ClinicalTrialCoordinatingCenterName = *coordinatingCenter
	}
	if md.SeriesNumber == "" {
		md.SeriesNumber = "300"
	}
	if md.InstanceNumber == "" {
		md.InstanceNumber = "1"
	}

	if md.ContentCreatorName == "" {
		fmt.Fprintf(os.Stderr, "Error: --creator is required (no default found in settings)\n")
		printUsage()
		os.Exit(1)
	}

	// Parse visible segment labels
	var visibleSegments []string
	if *visibleOnly != "" {
		for _, label := range strings.Split(*visibleOnly, ",") {
			label = strings.TrimSpace(label)
			if label != "" {
				visibleSegments = append(visibleSegments, label)
			}
		}
	}
	if len(visibleSegments) > 0 {
		fmt.Printf("Visible segments: %v\n", visibleSegments)
	}

	// Select the file index backend
	repo, cleanup, err := buildRepository(ctx, *dbDSN, *dicomwebURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	// Select the measurements provider
	var provider stats.Provider = stats.Empty{}
	if *measurementsPath != "" {
		provider = stats.NewFileProvider(*measurementsPath, logger)
	}

	asm, err := report.NewAssembler(report.AssemblerConfig{
		Catalog:   cat,
		Store:     store,
		Exporter:  exporter.NewFileExporter(*segPath, logger),
		Encoder:   encoder.NewExecRunner(*encoderBin, logger),
		Repo:      repo,
		Stats:     provider,
		SourceDir: *sourceDir,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("quantreport")
	fmt.Println("===========")
	fmt.Println()

	result, err := asm.Save(ctx, report.SaveRequest{
		Metadata:        md,
		Completed:       *completed,
		OutputDir:       *outputDir,
		VisibleSegments: visibleSegments,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving report: %v\n", err)
		os.Exit(1)
	}

	// Remember the metadata for the next run
	if settingsStore != nil {
		if err := report.PersistDefaults(settingsStore, md); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save metadata defaults: %v\n", err)
		}
	}

	// Write extra renditions from the committed segmentation
	if *htmlPath != "" || *xlsxPath != "" {
		doc, err := buildDocument(ctx, result.SEGPath, md, *completed, store, provider)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if *htmlPath != "" {
			if err := report.WriteHTMLReport(*htmlPath, doc); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing HTML report: %v\n", err)
				os.Exit(1)
			}
		}
		if *xlsxPath != "" {
			if err := report.WriteXLSX(*xlsxPath, doc); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing spreadsheet: %v\n", err)
				os.Exit(1)
			}
		}
	}

	fmt.Println("\n✓ Report saved!")
	fmt.Printf("  Segmentation: %s\n", result.SEGPath)
	fmt.Printf("  Report:       %s\n", result.SRPath)
	if *htmlPath != "" {
		fmt.Printf("  HTML:         %s\n", *htmlPath)
	}
	if *xlsxPath != "" {
		fmt.Printf("  Spreadsheet:  %s\n", *xlsxPath)
	}
}

// buildLogger constructs the CLI logger. Verbose switches to the
// development config, quiet raises the level to errors only.
func buildLogger(quiet, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if quiet {
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	return config.Build()
}

// buildRepository selects the file index backend. The returned cleanup
// closes any underlying connection.
func buildRepository(ctx context.Context, dsn, dicomwebURL string, logger *zap.Logger) (index.Repository, func(), error) {
	switch {
	case dsn != "":
		db, err := index.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		repo := index.NewPostgresRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil
	case dicomwebURL != "":
		return index.NewDICOMWebRepository(dicomwebURL, logger), func() {}, nil
	default:
		return index.NewMemoryRepository(), func() {}, nil
	}
}

// buildDocument gathers everything the HTML and spreadsheet renditions
// show from the committed segmentation.
func buildDocument(ctx context.Context, segPath string, md report.Metadata, completed bool, store *report.Store, provider stats.Provider) (report.Document, error) {
	segments, err := dicom.ReadSegments(segPath)
	if err != nil {
		return report.Document{}, fmt.Errorf("reading committed segmentation: %w", err)
	}
	table, err := provider.Table(ctx)
	if err != nil {
		return report.Document{}, err
	}
	return report.Document{
		Metadata:  md,
		Completed: completed,
		Segments:  segments,
		Store:     store,
		Table:     table,
	}, nil
}

func runLoadTestData(ctx context.Context, name, cacheDir, dsn, dicomwebURL string, logger *zap.Logger) error {
	c, ok := testdata.CollectionByName(name)
	if !ok {
		return fmt.Errorf("unknown sample collection %q", name)
	}

	repo, cleanup, err := buildRepository(ctx, dsn, dicomwebURL, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	loader := testdata.NewLoader(repo, cacheDir, logger)
	files, err := loader.Load(ctx, c, testdata.VolumeKind)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Sample data ready: %d files indexed\n", len(files))
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  quantreport --seg <FILE> --catalog <FILE> --characteristics <FILE> --source-dir <DIR> [options]")
	fmt.Fprintln(os.Stderr, "\nRequired:")
	flag.PrintDefaults()
}

func printHelp() {
	fmt.Println("quantreport")
	fmt.Println("===========")
	fmt.Println()
	fmt.Println("Save DICOM measurement reports for segmentations: export the segmentation,")
	fmt.Println("encode the structured report, merge the per-segment characteristics into it")
	fmt.Println("and commit both files to the file index.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  quantreport --seg <FILE> --catalog <FILE> --characteristics <FILE> --source-dir <DIR> [options]")
	fmt.Println("  quantreport wizard [--settings <FILE>] [--from <FILE>]")
	fmt.Println()
	fmt.Println("Required arguments:")
	fmt.Println("  --seg <FILE>             Segmentation file to report on")
	fmt.Println("  --catalog <FILE>         Characteristics catalog JSON (concepts and coded choices)")
	fmt.Println("  --characteristics <FILE> Per-segment characteristics JSON (segment id -> concept -> choice)")
	fmt.Println("  --source-dir <DIR>       Directory holding the image series the segmentation was drawn on")
	fmt.Println()
	fmt.Println("Optional arguments:")
	fmt.Println("  --output <DIR>           Output directory (default: 'report_output')")
	fmt.Println("  --measurements <FILE>    Precomputed measurements JSON handed to the encoder")
	fmt.Println("  --encoder <BIN>          Report encoder binary (default: 'tid1500writer')")
	fmt.Println("  --completed              Mark the report COMPLETE and VERIFIED (default: partial draft)")
	fmt.Println("  --visible-only <LIST>    Comma-separated segment labels to include")
	fmt.Println("                           Example: \"Tumor,Liver\" exports just those two segments")
	fmt.Println()
	fmt.Println("Report metadata (flags override defaults stored with --settings):")
	fmt.Println("  --creator <NAME>         Content creator person name, e.g. \"Jane Doe\"")
	fmt.Println("  --series-number <N>      Series number for the saved objects (default: 300)")
	fmt.Println("  --instance-number <N>    Instance number for the saved objects (default: 1)")
	fmt.Println("  --trial-series-id <ID>   Clinical trial series ID")
	fmt.Println("  --time-point <ID>        Clinical trial time point ID")
	fmt.Println("  --coordinating-center <NAME>")
	fmt.Println("                           Clinical trial coordinating center name")
	fmt.Println("  --settings <FILE>        Settings file with metadata defaults (edited by the wizard)")
	fmt.Println()
	fmt.Println("File index options:")
	fmt.Println("  --db <DSN>               Index committed files in PostgreSQL")
	fmt.Println("  --dicomweb <URL>         Index committed files via a DICOMweb (STOW-RS/QIDO-RS) server")
	fmt.Println("                           Without either flag the index lives in memory for the run")
	fmt.Println()
	fmt.Println("Rendition options:")
	fmt.Println("  --html <FILE>            Also write a self-contained HTML rendition")
	fmt.Println("  --xlsx <FILE>            Also write a spreadsheet rendition")
	fmt.Println()
	fmt.Println("Sample data options:")
	fmt.Println("  --load-test-data         Download and index the sample series, then exit")
	fmt.Println("  --collection <NAME>      Sample collection to fetch (default: MRHead)")
	fmt.Println("  --cache-dir <DIR>        Download cache (default: 'quantreport-cache')")
	fmt.Println()
	fmt.Println("  --quiet                  Only log errors")
	fmt.Println("  --verbose                Verbose development logging")
	fmt.Println("  --help                   Show this help message")
	fmt.Println("  --version                Show version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Save a draft report for every segment, in-memory index")
	fmt.Println("  quantreport --seg study/liver.SEG.dcm --catalog catalog.json \\")
	fmt.Println("      --characteristics characteristics.json --source-dir study/images --creator \"Jane Doe\"")
	fmt.Println()
	fmt.Println("  # Mark the report complete and keep the index in PostgreSQL")
	fmt.Println("  quantreport --seg study/liver.SEG.dcm --catalog catalog.json \\")
	fmt.Println("      --characteristics characteristics.json --source-dir study/images \\")
	fmt.Println("      --creator \"Jane Doe\" --completed --db \"postgres://qr:qr@localhost/qr?sslmode=disable\"")
	fmt.Println()
	fmt.Println("  # Restrict the export to two segments and write both renditions")
	fmt.Println("  quantreport --seg study/liver.SEG.dcm --catalog catalog.json \\")
	fmt.Println("      --characteristics characteristics.json --source-dir study/images \\")
	fmt.Println("      --creator \"Jane Doe\" --visible-only \"Tumor,Liver\" --html report.html --xlsx report.xlsx")
	fmt.Println()
	fmt.Println("  # Attach precomputed measurements and a custom encoder build")
	fmt.Println("  quantreport --seg study/liver.SEG.dcm --catalog catalog.json \\")
	fmt.Println("      --characteristics characteristics.json --source-dir study/images \\")
	fmt.Println("      --creator \"Jane Doe\" --measurements measurements.json --encoder /opt/dcmqi/bin/tid1500writer")
	fmt.Println()
	fmt.Println("  # Edit metadata defaults interactively, then reuse them")
	fmt.Println("  quantreport wizard --settings quantreport-settings.yaml")
	fmt.Println("  quantreport --settings quantreport-settings.yaml --seg study/liver.SEG.dcm \\")
	fmt.Println("      --catalog catalog.json --characteristics characteristics.json --source-dir study/images")
	fmt.Println()
	fmt.Println("  # Fetch the sample series into the local cache and index it")
	fmt.Println("  quantreport --load-test-data --db \"postgres://qr:qr@localhost/qr?sslmode=disable\"")
	fmt.Println()
	fmt.Println("Output:")
	fmt.Println("  A successful save commits two files to the output directory, named")
	fmt.Println("  quantitative_reporting_export.SEG<timestamp>.dcm for the exported")
	fmt.Println("  segmentation and .SR<timestamp>.dcm for the measurement report with the")
	fmt.Println("  merged characteristics. Both are registered with the file index. Nothing")
	fmt.Println("  is committed when any step fails, and scratch files are removed either way.")
}
