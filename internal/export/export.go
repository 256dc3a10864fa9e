package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"shallow-water-workbench/internal/workflow"
)

// Exporter persists processing results. The controller never writes files
// itself; everything on disk goes through here.
type Exporter struct {
	logger *logrus.Logger
}

func NewExporter(logger *logrus.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// ValidateOutputDir ensures the directory exists (creating it if needed) and
// is writable.
func (e *Exporter) ValidateOutputDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write_probe")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("no write permission for directory %s: %w", dir, err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}

type provenance struct {
	RunID  string                  `json:"run_id"`
	Config workflow.WorkflowConfig `json:"config"`
	Width  int                     `json:"width"`
	Height int                     `json:"height"`
	Files  []string                `json:"files"`
}

// WriteResult saves each output parameter map as <name>.npy in dir, plus a
// run.json provenance record, and returns the written file paths.
func (e *Exporter) WriteResult(result *workflow.ProcessingResult, dir string) ([]string, error) {
	if result == nil {
		return nil, fmt.Errorf("no result to export")
	}
	if err := e.ValidateOutputDir(dir); err != nil {
		return nil, err
	}

	var written []string
	for _, name := range workflow.OutputParameters {
		grid, ok := result.Maps[name]
		if !ok {
			continue
		}
		path := filepath.Join(dir, name+".npy")
		if err := WriteNPYFile(path, grid); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}

	if result.Errors != nil {
		path := filepath.Join(dir, "error.npy")
		if err := WriteNPYFile(path, result.Errors); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}

	record := provenance{
		RunID:  result.RunID,
		Config: result.Config,
		Width:  result.Width,
		Height: result.Height,
		Files:  written,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding provenance: %w", err)
	}
	provenancePath := filepath.Join(dir, "run.json")
	if err := os.WriteFile(provenancePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", provenancePath, err)
	}
	written = append(written, provenancePath)

	e.logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"dir":    dir,
		"files":  len(written),
	}).Info("Result exported")

	return written, nil
}
