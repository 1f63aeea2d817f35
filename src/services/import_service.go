package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/username/folioimport/src/export"
	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/parsers"
	"github.com/username/folioimport/src/processors"
)

// Authenticator obtains the credential used by the symbol resolver. It runs
// once per run, before any row is processed.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

type importServiceImpl struct {
	parser        parsers.CSVParser
	authenticator Authenticator
	processor     processors.ActivityProcessor
	writer        *export.Writer
	inputFile     string
	outputFile    string
}

func NewImportService(
	parser parsers.CSVParser,
	authenticator Authenticator,
	processor processors.ActivityProcessor,
	writer *export.Writer,
	inputFile string,
	outputFile string,
) ImportService {
	return &importServiceImpl{
		parser:        parser,
		authenticator: authenticator,
		processor:     processor,
		writer:        writer,
		inputFile:     inputFile,
		outputFile:    outputFile,
	}
}

// Run executes the pipeline strictly in order: parse, authenticate,
// reconstruct, write. Any error before the write leaves no output file
// behind — partial results are never persisted.
func (s *importServiceImpl) Run(ctx context.Context) (*ImportSummary, error) {
	startTime := time.Now()
	logger.L.Info("Import run START", "inputFile", s.inputFile)

	file, err := os.Open(s.inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	rawTransactions, err := s.parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement: %w", err)
	}
	logger.L.Info("Statement parsed", "rows", len(rawTransactions))

	if err := s.authenticator.Authenticate(ctx); err != nil {
		return nil, err
	}

	result, err := s.processor.Process(ctx, rawTransactions)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Reconstruction finished",
		"activities", len(result.Activities),
		"unmatched", len(result.Unmatched))

	for _, raw := range result.Unmatched {
		logger.L.Warn("Row needs manual review",
			"date", raw.OrderDate, "isin", raw.ISIN, "description", raw.Description, "amount", raw.Amount)
	}

	if err := s.writer.Write(s.outputFile, result.Activities); err != nil {
		return nil, err
	}

	logger.L.Info("Import run DONE",
		"outputFile", s.outputFile,
		"durationMs", time.Since(startTime).Milliseconds())

	return &ImportSummary{
		ActivityCount:  len(result.Activities),
		UnmatchedCount: len(result.Unmatched),
		OutputPath:     s.outputFile,
	}, nil
}
