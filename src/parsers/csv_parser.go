package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/username/folioimport/src/models"
)

// ErrMalformedRow is returned when a statement row does not have the
// expected 12-column shape. A single bad row fails the whole parse; there is
// no partial-success mode because the processor depends on complete row
// ordering.
var ErrMalformedRow = errors.New("malformed statement row")

const statementColumns = 12

type csvParserImpl struct{}

func NewCSVParser() CSVParser {
	return &csvParserImpl{}
}

// Parse reads a DEGIRO account statement. The first line is the column
// header and is skipped; every following row must have exactly 12 fields.
// Row order is preserved and nothing is filtered here — grouping and
// filtering are the processor's responsibility.
func (p *csvParserImpl) Parse(file io.Reader) ([]models.RawTransaction, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = statementColumns

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var transactions []models.RawTransaction
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
			}
			return nil, fmt.Errorf("failed to read CSV record at line %d: %w", line, err)
		}

		transactions = append(transactions, models.RawTransaction{
			OrderDate:      record[0],
			OrderTime:      record[1],
			ValueDate:      record[2],
			Name:           record[3],
			ISIN:           record[4],
			Description:    record[5],
			ExchangeAmount: record[6],
			Currency:       record[7],
			Amount:         record[8],
			OrderID:        record[11],
		})
	}

	return transactions, nil
}
