package parsers

import (
	"io"

	"github.com/username/folioimport/src/models"
)

// CSVParser defines the interface for parsing account statement CSV files.
type CSVParser interface {
	Parse(file io.Reader) ([]models.RawTransaction, error)
}
