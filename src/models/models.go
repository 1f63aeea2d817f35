package models

// RawTransaction represents a single row of the DEGIRO account statement CSV.
// Fields are kept as strings exactly as they appear in the export; all
// interpretation happens in the processor.
type RawTransaction struct {
	OrderDate      string `json:"order_date"`      // Date of the booking (dd-mm-yyyy)
	OrderTime      string `json:"order_time"`      // Time of the booking (hh:mm)
	ValueDate      string `json:"value_date"`      // Date the booking is effective
	Name           string `json:"name"`            // Product name
	ISIN           string `json:"isin"`            // ISIN code of the product (may be empty)
	Description    string `json:"description"`     // Free-text booking description
	ExchangeAmount string `json:"exchange_amount"` // Amount in the secondary currency (if applicable)
	Currency       string `json:"currency"`        // Currency of the booking
	Amount         string `json:"amount"`          // Booking amount in the primary currency
	OrderID        string `json:"order_id"`        // Broker order id linking split bookings
}

// ActivityType is the Ghostfolio activity kind.
type ActivityType string

const (
	ActivityBuy      ActivityType = "BUY"
	ActivitySell     ActivityType = "SELL"
	ActivityDividend ActivityType = "DIVIDEND"
)

// PendingFee marks an activity that holds only a fee posting and is still
// waiting for its trade row. It replaces the original tool's positional
// lookback into the activity slice with an explicit state token.
type PendingFee int

const (
	PendingNone PendingFee = iota
	PendingBuy
	PendingSell
)

func (p PendingFee) String() string {
	switch p {
	case PendingBuy:
		return "buy"
	case PendingSell:
		return "sell"
	default:
		return "none"
	}
}

// Activity is one normalized entry of the Ghostfolio activity import.
type Activity struct {
	AccountID  string       `json:"accountId"`
	Comment    string       `json:"comment"`
	Fee        float64      `json:"fee"`
	Quantity   float64      `json:"quantity"`
	Type       ActivityType `json:"type"`
	UnitPrice  float64      `json:"unitPrice"`
	Currency   string       `json:"currency"`
	DataSource string       `json:"dataSource"`
	Date       string       `json:"date"` // ISO-8601
	Symbol     string       `json:"symbol"`

	// Pending tracks an incomplete fee posting on the tail of the activity
	// list. Finalized activities always carry PendingNone.
	Pending PendingFee `json:"-"`

	// PendingTwin marks the pair of entries appended together by a
	// two-sided transaction-fee posting. Only such provable twins may be
	// collapsed into one when the trade row arrives; any other stacked
	// pending entry is a defect, not a duplicate.
	PendingTwin bool `json:"-"`
}

// ExportMeta is the header of the Ghostfolio import document.
type ExportMeta struct {
	Date    string `json:"date"`
	Version string `json:"version"`
}

// Export is the serialized output artifact.
type Export struct {
	Meta       ExportMeta `json:"meta"`
	Activities []Activity `json:"activities"`
}
