package services

import "context"

// ImportSummary reports the outcome of a completed run.
type ImportSummary struct {
	ActivityCount  int
	UnmatchedCount int
	OutputPath     string
}

// ImportService drives the full pipeline: read statement, reconstruct
// activities, write the import document.
type ImportService interface {
	Run(ctx context.Context) (*ImportSummary, error)
}
