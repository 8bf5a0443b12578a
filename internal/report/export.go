package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	dberrors "loopwatch/internal/infrastructure/errors"
	"loopwatch/internal/types"
)

// JSONExporter writes machine-readable analysis results for downstream
// tooling.
type JSONExporter struct {
	dir string
}

// NewJSONExporter writes exports under dir.
func NewJSONExporter(dir string) *JSONExporter {
	return &JSONExporter{dir: dir}
}

// Write marshals the result with indentation and returns the file path.
func (e *JSONExporter) Write(result *types.AnalysisResult) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", dberrors.New("WriteJSON", fmt.Errorf("create report dir: %w", err), dberrors.ErrCodeWrite)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", dberrors.New("WriteJSON", err, dberrors.ErrCodeInternal)
	}
	data = append(data, '\n')

	path := filepath.Join(e.dir, fmt.Sprintf("death-loops-%s.json", result.GeneratedAt.Format("2006-01-02")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", dberrors.NewWithContext("WriteJSON", err, dberrors.ErrCodeWrite,
			map[string]string{"path": path})
	}
	return path, nil
}
