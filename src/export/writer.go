package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/username/folioimport/src/models"
)

// exportVersion is the schema version stamped into the document header.
const exportVersion = "1.0.0"

// Writer serializes the finalized activity list to the Ghostfolio import
// document.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Write persists the activities atomically: the document is written to a
// uniquely named temp file in the target directory and renamed into place,
// so a crash mid-write never leaves a truncated artifact behind. Callers
// only invoke this after reconstruction completed without a hard stop.
func (w *Writer) Write(path string, activities []models.Activity) error {
	doc := models.Export{
		Meta: models.ExportMeta{
			Date:    time.Now().UTC().Format(time.RFC3339),
			Version: exportVersion,
		},
		Activities: activities,
	}
	if doc.Activities == nil {
		doc.Activities = []models.Activity{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export document: %w", err)
	}

	tmpPath := filepath.Join(filepath.Dir(path),
		fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp export file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move export file into place: %w", err)
	}
	return nil
}
