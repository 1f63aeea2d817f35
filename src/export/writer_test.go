package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/folioimport/src/models"
)

func TestWriteProducesImportDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activities.json")

	activities := []models.Activity{
		{
			AccountID:  "account-1",
			Fee:        2,
			Quantity:   10,
			Type:       models.ActivityBuy,
			UnitPrice:  50,
			Currency:   "EUR",
			DataSource: "YAHOO",
			Date:       "2023-01-02T15:30:00Z",
			Symbol:     "IWDA.AS",
		},
	}

	require.NoError(t, NewWriter().Write(path, activities))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc models.Export
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotEmpty(t, doc.Meta.Date)
	assert.Equal(t, "1.0.0", doc.Meta.Version)
	require.Len(t, doc.Activities, 1)
	assert.Equal(t, "IWDA.AS", doc.Activities[0].Symbol)
	assert.Equal(t, models.ActivityBuy, doc.Activities[0].Type)
}

func TestWriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activities.json")

	require.NoError(t, NewWriter().Write(path, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "activities.json", entries[0].Name())
}

func TestWriteEmptyListIsAnEmptyArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activities.json")

	require.NoError(t, NewWriter().Write(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"activities": []`)
}

func TestWriteReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activities.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, NewWriter().Write(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(data))
}
