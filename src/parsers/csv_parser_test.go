package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statementHeader = "Datum,Tijd,Valutadatum,Product,ISIN,Omschrijving,FX,Mutatie,,Saldo,,Order Id\n"

func TestParsePreservesRowOrderAndFields(t *testing.T) {
	input := statementHeader +
		"02-01-2023,15:30,02-01-2023,ISHARES MSCI WOR A,IE00B4L5Y983,DEGIRO Transactiekosten en/of kosten van derden,,EUR,-2.00,EUR,498.00,abc123\n" +
		"02-01-2023,15:30,02-01-2023,ISHARES MSCI WOR A,IE00B4L5Y983,Koop 10 @ 50 EUR,,EUR,-500.00,EUR,-2.00,abc123\n"

	parser := NewCSVParser()
	transactions, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	first := transactions[0]
	assert.Equal(t, "02-01-2023", first.OrderDate)
	assert.Equal(t, "15:30", first.OrderTime)
	assert.Equal(t, "02-01-2023", first.ValueDate)
	assert.Equal(t, "ISHARES MSCI WOR A", first.Name)
	assert.Equal(t, "IE00B4L5Y983", first.ISIN)
	assert.Equal(t, "DEGIRO Transactiekosten en/of kosten van derden", first.Description)
	assert.Equal(t, "EUR", first.Currency)
	assert.Equal(t, "-2.00", first.Amount)
	assert.Equal(t, "abc123", first.OrderID)

	assert.Equal(t, "Koop 10 @ 50 EUR", transactions[1].Description, "row order preserved")
}

func TestParseSkipsHeaderOnly(t *testing.T) {
	parser := NewCSVParser()
	transactions, err := parser.Parse(strings.NewReader(statementHeader))
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestParseDoesNotFilterRows(t *testing.T) {
	input := statementHeader +
		"02-01-2023,09:00,02-01-2023,,,iDEAL Deposit,,EUR,500.00,EUR,500.00,\n"

	parser := NewCSVParser()
	transactions, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, transactions, 1, "filtering is the processor's job, not the parser's")
	assert.Equal(t, "iDEAL Deposit", transactions[0].Description)
	assert.Empty(t, transactions[0].ISIN)
}

func TestParseFailsOnMalformedRow(t *testing.T) {
	input := statementHeader +
		"02-01-2023,15:30,02-01-2023,ISHARES MSCI WOR A,IE00B4L5Y983,Koop 10,,EUR,-500.00,EUR,-2.00,abc123\n" +
		"02-01-2023,too,few,fields\n"

	parser := NewCSVParser()
	_, err := parser.Parse(strings.NewReader(input))
	require.ErrorIs(t, err, ErrMalformedRow, "a single bad row fails the whole parse")
}

func TestParseFailsOnEmptyInput(t *testing.T) {
	parser := NewCSVParser()
	_, err := parser.Parse(strings.NewReader(""))
	require.Error(t, err)
}
