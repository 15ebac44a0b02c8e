package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Workspace is the temporary directory a save pipeline writes its
// intermediate files to. It must be cleaned up whether the save succeeds or
// fails.
type Workspace struct {
	dir     string
	created time.Time
	logger  *zap.Logger
}

func NewWorkspace(logger *zap.Logger) (*Workspace, error) {
	dir, err := os.MkdirTemp("", "quantreport-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	w := &Workspace{dir: dir, created: time.Now(), logger: logger}
	logger.Debug("Created workspace", zap.String("dir", dir))
	return w, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins elem onto the workspace directory.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// SEGFileName is the dated name of the exported segmentation. The
// timestamp is fixed at workspace creation so repeated calls agree.
func (w *Workspace) SEGFileName() string {
	return "quantitative_reporting_export.SEG" + w.created.Format("2006-01-02_150405") + ".dcm"
}

// Cleanup removes the workspace directory and everything in it. Safe to
// call more than once.
func (w *Workspace) Cleanup() {
	if w.dir == "" {
		return
	}
	if err := os.RemoveAll(w.dir); err != nil {
		w.logger.Warn("Failed to clean up workspace",
			zap.String("dir", w.dir),
			zap.Error(err),
		)
		return
	}
	w.logger.Debug("Cleaned up workspace", zap.String("dir", w.dir))
	w.dir = ""
}
