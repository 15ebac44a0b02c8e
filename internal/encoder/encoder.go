// Package encoder drives the external TID1500 writer that turns an exported
// segmentation plus a metadata document into a DICOM Structured Report.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Params is the writer's CLI contract.
type Params struct {
	// MetaDataFileName is the JSON metadata document describing the report.
	MetaDataFileName string
	// CompositeContextDataDir holds the exported segmentation object.
	CompositeContextDataDir string
	// ImageLibraryDataDir holds the source image series.
	ImageLibraryDataDir string
	// OutputFileName is where the writer places the encoded report.
	OutputFileName string
}

func (p Params) validate() error {
	switch {
	case p.MetaDataFileName == "":
		return errors.New("encoder: metadata file name is required")
	case p.CompositeContextDataDir == "":
		return errors.New("encoder: composite context directory is required")
	case p.ImageLibraryDataDir == "":
		return errors.New("encoder: image library directory is required")
	case p.OutputFileName == "":
		return errors.New("encoder: output file name is required")
	}
	return nil
}

// Status is the writer's terminal state. Anything other than
// StatusCompleted means the report was not produced and the save must stop.
type Status string

const (
	StatusCompleted           Status = "Completed"
	StatusCompletedWithErrors Status = "CompletedWithErrors"
)

// Runner runs the encoder once.
type Runner interface {
	Run(ctx context.Context, params Params) (Status, error)
}

// ExecRunner shells out to a tid1500writer-compatible binary.
type ExecRunner struct {
	binary string
	logger *zap.Logger
}

func NewExecRunner(binary string, logger *zap.Logger) *ExecRunner {
	return &ExecRunner{binary: binary, logger: logger}
}

// Run invokes the binary and maps its exit state to a Status. A non-zero
// exit is reported through the status, not the error; the error is reserved
// for failures to launch or a canceled context.
func (r *ExecRunner) Run(ctx context.Context, params Params) (Status, error) {
	if err := params.validate(); err != nil {
		return "", err
	}

	args := []string{
		"--inputMetadata", params.MetaDataFileName,
		"--inputCompositeContextDirectory", params.CompositeContextDataDir,
		"--inputImageLibraryDirectory", params.ImageLibraryDataDir,
		"--outputDICOM", params.OutputFileName,
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.binary, args...)
	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return "", fmt.Errorf("run encoder %s: %w", r.binary, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.logger.Error("Encoder exited with error",
				zap.String("binary", r.binary),
				zap.Int("exit_code", exitErr.ExitCode()),
				zap.ByteString("output", output),
			)
			return StatusCompletedWithErrors, nil
		}
		return "", fmt.Errorf("run encoder %s: %w", r.binary, err)
	}

	r.logger.Info("Encoder completed",
		zap.String("binary", r.binary),
		zap.String("output_file", params.OutputFileName),
		zap.Duration("took", time.Since(start)),
	)
	return StatusCompleted, nil
}
