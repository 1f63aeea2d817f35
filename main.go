package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/username/folioimport/src/config"
	"github.com/username/folioimport/src/export"
	"github.com/username/folioimport/src/ghostfolio"
	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/parsers"
	"github.com/username/folioimport/src/processors"
	"github.com/username/folioimport/src/services"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("folioimport starting...",
		"inputFile", config.Cfg.InputFile,
		"ghostfolioURL", config.Cfg.GhostfolioURL,
		"dividendQuantity", config.Cfg.DividendQuantity,
		"unitPriceMode", config.Cfg.UnitPriceMode)

	client := ghostfolio.NewClient(config.Cfg.GhostfolioURL, config.Cfg.GhostfolioSecret)
	csvParser := parsers.NewCSVParser()
	activityProcessor := processors.NewActivityProcessor(
		client,
		config.Cfg.AccountID,
		config.Cfg.DividendQuantity,
		config.Cfg.UnitPriceMode,
	)
	writer := export.NewWriter()

	importService := services.NewImportService(
		csvParser, client, activityProcessor, writer,
		config.Cfg.InputFile, config.Cfg.OutputFile,
	)

	summary, err := importService.Run(context.Background())
	if err != nil {
		logger.L.Error("Import run failed", "error", err)
		switch {
		case errors.Is(err, ghostfolio.ErrUnauthorized):
			color.Red("Authentication against Ghostfolio failed; no output was written. Check GHOSTFOLIO_SECRET.")
		case errors.Is(err, parsers.ErrMalformedRow):
			color.Red("The statement file is malformed; no output was written.")
		case errors.Is(err, processors.ErrTailMismatch), errors.Is(err, processors.ErrDanglingFee):
			color.Red("The statement rows are out of sync (%v); no output was written.", err)
		default:
			color.Red("Import failed: %v", err)
		}
		os.Exit(1)
	}

	color.Green("Wrote %d activities to %s", summary.ActivityCount, summary.OutputPath)
	if summary.UnmatchedCount > 0 {
		color.Yellow("%d rows could not be classified and need manual review (see log).", summary.UnmatchedCount)
	}
	fmt.Println("Import the file into Ghostfolio via Portfolio > Activities > Import.")
}
