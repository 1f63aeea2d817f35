package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/folioimport/src/config"
	"github.com/username/folioimport/src/export"
	"github.com/username/folioimport/src/ghostfolio"
	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
	"github.com/username/folioimport/src/parsers"
	"github.com/username/folioimport/src/processors"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

const statementCSV = `Datum,Tijd,Valutadatum,Product,ISIN,Omschrijving,FX,Mutatie,,Saldo,,Order Id
02-01-2023,09:00,02-01-2023,,,iDEAL Deposit,,EUR,500.00,EUR,500.00,
02-01-2023,15:30,02-01-2023,ISHARES MSCI WOR A,IE00B4L5Y983,DEGIRO Transactiekosten en/of kosten van derden,,EUR,-2.00,EUR,498.00,abc123
02-01-2023,15:30,02-01-2023,ISHARES MSCI WOR A,IE00B4L5Y983,Koop 10 @ 50 EUR,,EUR,-500.00,EUR,-2.00,abc123
03-04-2023,08:00,03-04-2023,VANG FTSE AW,IE00B3RBWM25,Dividend,,USD,12.34,USD,12.34,
03-04-2023,08:00,03-04-2023,VANG FTSE AW,IE00B3RBWM25,Dividendbelasting,,USD,-1.85,USD,10.49,
`

func newGhostfolioStub(authStatus int) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/anonymous/", func(w http.ResponseWriter, r *http.Request) {
		if authStatus != http.StatusOK {
			w.WriteHeader(authStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"authToken": "test-token"})
	})
	mux.HandleFunc("/api/v1/symbol/lookup", func(w http.ResponseWriter, r *http.Request) {
		symbol := map[string]string{
			"IE00B4L5Y983": "IWDA.AS",
			"IE00B3RBWM25": "VWRL.AS",
		}[r.URL.Query().Get("query")]
		items := []map[string]string{}
		if symbol != "" {
			items = append(items, map[string]string{"symbol": symbol})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	return httptest.NewServer(mux)
}

func newTestService(t *testing.T, serverURL string) (ImportService, string) {
	t.Helper()
	dir := t.TempDir()

	inputPath := filepath.Join(dir, "statement.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte(statementCSV), 0o644))
	outputPath := filepath.Join(dir, "activities.json")

	client := ghostfolio.NewClient(serverURL, "secret")
	processor := processors.NewActivityProcessor(
		client, "account-1", config.DividendQuantityOne, config.UnitPricePerUnit)

	service := NewImportService(
		parsers.NewCSVParser(), client, processor, export.NewWriter(),
		inputPath, outputPath,
	)
	return service, outputPath
}

func TestRunEndToEnd(t *testing.T) {
	server := newGhostfolioStub(http.StatusOK)
	defer server.Close()

	service, outputPath := newTestService(t, server.URL)
	summary, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ActivityCount)
	assert.Equal(t, 0, summary.UnmatchedCount)
	assert.Equal(t, outputPath, summary.OutputPath)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var doc models.Export
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Activities, 2)

	buy := doc.Activities[0]
	assert.Equal(t, models.ActivityBuy, buy.Type)
	assert.Equal(t, "IWDA.AS", buy.Symbol)
	assert.Equal(t, 10.0, buy.Quantity)
	assert.Equal(t, 50.0, buy.UnitPrice)
	assert.Equal(t, 2.0, buy.Fee)

	dividend := doc.Activities[1]
	assert.Equal(t, models.ActivityDividend, dividend.Type)
	assert.Equal(t, "VWRL.AS", dividend.Symbol)
	assert.Equal(t, 1.85, dividend.Fee)
}

func TestRunAuthFailureWritesNoOutput(t *testing.T) {
	server := newGhostfolioStub(http.StatusUnauthorized)
	defer server.Close()

	service, outputPath := newTestService(t, server.URL)
	_, err := service.Run(context.Background())
	require.ErrorIs(t, err, ghostfolio.ErrUnauthorized)

	_, statErr := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(statErr), "no output artifact may exist after a hard stop")
}

func TestRunMissingInputFileFails(t *testing.T) {
	server := newGhostfolioStub(http.StatusOK)
	defer server.Close()

	service, _ := newTestService(t, server.URL)
	impl := service.(*importServiceImpl)
	impl.inputFile = filepath.Join(t.TempDir(), "does-not-exist.csv")

	_, err := service.Run(context.Background())
	require.Error(t, err)
}
