package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DividendQuantityPolicy selects the default quantity written on dividend
// activities. Both values shipped in historical versions of the converter;
// the target system decides which one it expects.
type DividendQuantityPolicy string

const (
	DividendQuantityZero DividendQuantityPolicy = "zero"
	DividendQuantityOne  DividendQuantityPolicy = "one"
)

// UnitPriceMode selects how the unit price of a trade is derived from the
// booking amount. "total" writes the raw absolute amount, "per-unit" divides
// by the traded quantity and rounds to 3 decimals.
type UnitPriceMode string

const (
	UnitPriceTotal   UnitPriceMode = "total"
	UnitPricePerUnit UnitPriceMode = "per-unit"
)

type AppConfig struct {
	InputFile        string
	OutputFile       string
	AccountID        string
	GhostfolioURL    string
	GhostfolioSecret string
	LogLevel         string

	DividendQuantity DividendQuantityPolicy
	UnitPriceMode    UnitPriceMode
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	inputFile := getEnv("INPUT_FILE", "")
	if inputFile == "" {
		log.Fatalf("FATAL: INPUT_FILE is required but not set in environment or .env file.")
	}

	ghostfolioURL := strings.TrimRight(getEnv("GHOSTFOLIO_URL", ""), "/")
	if ghostfolioURL == "" {
		log.Fatalf("FATAL: GHOSTFOLIO_URL is required but not set in environment or .env file.")
	}

	ghostfolioSecret := getEnv("GHOSTFOLIO_SECRET", "")
	if ghostfolioSecret == "" {
		log.Fatalf("FATAL: GHOSTFOLIO_SECRET is required but not set in environment or .env file.")
	}

	accountID := getEnv("ACCOUNT_ID", "")
	if accountID == "" {
		log.Fatalf("FATAL: ACCOUNT_ID is required but not set in environment or .env file.")
	}

	dividendQuantity := DividendQuantityPolicy(strings.ToLower(getEnv("DIVIDEND_QUANTITY", string(DividendQuantityOne))))
	if dividendQuantity != DividendQuantityZero && dividendQuantity != DividendQuantityOne {
		log.Printf("WARNING: Invalid DIVIDEND_QUANTITY '%s'. Using default '%s'.", dividendQuantity, DividendQuantityOne)
		dividendQuantity = DividendQuantityOne
	}

	unitPriceMode := UnitPriceMode(strings.ToLower(getEnv("UNIT_PRICE_MODE", string(UnitPricePerUnit))))
	if unitPriceMode != UnitPriceTotal && unitPriceMode != UnitPricePerUnit {
		log.Printf("WARNING: Invalid UNIT_PRICE_MODE '%s'. Using default '%s'.", unitPriceMode, UnitPricePerUnit)
		unitPriceMode = UnitPricePerUnit
	}

	Cfg = &AppConfig{
		InputFile:        inputFile,
		OutputFile:       getEnv("OUTPUT_FILE", "ghostfolio-activities.json"),
		AccountID:        accountID,
		GhostfolioURL:    ghostfolioURL,
		GhostfolioSecret: ghostfolioSecret,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DividendQuantity: dividendQuantity,
		UnitPriceMode:    unitPriceMode,
	}

	log.Printf("Configuration loaded: InputFile=%s, OutputFile=%s, GhostfolioURL=%s, LogLevel=%s",
		Cfg.InputFile, Cfg.OutputFile, Cfg.GhostfolioURL, Cfg.LogLevel)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
