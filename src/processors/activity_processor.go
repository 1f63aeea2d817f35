package processors

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/folioimport/src/config"
	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
	"github.com/username/folioimport/src/utils"
)

// The statement format links split bookings (fee row + trade row, dividend
// row + tax row) only through row order. Every branch that amends the tail
// of the activity list therefore validates the tail state explicitly and
// fails loudly when it is out of sync, instead of indexing blindly.
var (
	// ErrTailMismatch is returned when a row expects a specific prior
	// activity on the tail (a pending fee entry, a dividend awaiting its
	// tax row) that is absent or of the wrong shape.
	ErrTailMismatch = errors.New("statement rows out of sync with activity tail")
	// ErrDanglingFee is returned when a fee posting was never completed by
	// a following trade row.
	ErrDanglingFee = errors.New("fee posting without a matching trade row")
)

const dataSourceYahoo = "YAHOO"

// Statements run to thousands of rows; a running counter keeps the default
// log level informative without flooding it with one line per row.
const progressEvery = 100

// Booking descriptions that never map to an activity.
var noiseMarkers = []string{
	"ideal",
	"flatex",
	"cash sweep",
	"withdrawal",
}

const (
	dividendTaxMarker     = "dividendbelasting"
	dividendMarker        = "dividend"
	transactionFeeMarker  = "transactiekosten"
	conversionDebitMarker = "valuta debitering"
	conversionCreditMark  = "valuta creditering"
)

var (
	sellPattern = regexp.MustCompile(`verkoop (\d+)`)
	buyPattern  = regexp.MustCompile(`(?:^|\s)koop (\d+)`)
)

type activityProcessorImpl struct {
	resolver         SymbolResolver
	accountID        string
	dividendQuantity config.DividendQuantityPolicy
	unitPriceMode    config.UnitPriceMode
}

func NewActivityProcessor(
	resolver SymbolResolver,
	accountID string,
	dividendQuantity config.DividendQuantityPolicy,
	unitPriceMode config.UnitPriceMode,
) ActivityProcessor {
	return &activityProcessorImpl{
		resolver:         resolver,
		accountID:        accountID,
		dividendQuantity: dividendQuantity,
		unitPriceMode:    unitPriceMode,
	}
}

// Process runs the single sequential pass over the statement rows. Only the
// tail of the growing activity list is ever amended; once an entry is no
// longer at the tail it is final.
func (p *activityProcessorImpl) Process(ctx context.Context, rawTransactions []models.RawTransaction) (*Result, error) {
	result := &Result{}

	for i, raw := range rawTransactions {
		line := i + 2 // raw rows start after the CSV header
		rule, err := p.processRow(ctx, result, raw, line)
		if err != nil {
			return nil, err
		}
		logger.L.Debug("Processed statement row",
			"line", line,
			"description", raw.Description,
			"rule", rule,
			"activities", len(result.Activities))
		if (i+1)%progressEvery == 0 {
			logger.L.Info("Reconstruction progress",
				"rows", i+1,
				"totalRows", len(rawTransactions),
				"activities", len(result.Activities))
		}
	}

	// A pending fee entry surviving the pass means its trade row never
	// arrived. The original tool let such entries leak into the output.
	for i := range result.Activities {
		activity := &result.Activities[i]
		if activity.Pending != models.PendingNone {
			return nil, fmt.Errorf("%w: %s-side fee of %s %.2f dated %s",
				ErrDanglingFee, activity.Pending, activity.Currency, activity.Fee, activity.Date)
		}
		// The comment only carries the open-dividend marker during the
		// pass; finalized activities leave without it.
		activity.Comment = ""
	}

	return result, nil
}

func (p *activityProcessorImpl) processRow(ctx context.Context, result *Result, raw models.RawTransaction, line int) (string, error) {
	description := strings.ToLower(raw.Description)

	switch {
	case isNoise(description):
		return "noise", nil

	case strings.Contains(description, dividendTaxMarker):
		return "dividend-tax", p.amendDividendTax(result, raw, line)

	case strings.Contains(description, dividendMarker):
		return "dividend", p.appendDividend(ctx, result, raw, line)

	case sellPattern.MatchString(description):
		return "sell", p.appendTrade(ctx, result, raw, line, models.ActivitySell, sellPattern.FindStringSubmatch(description)[1])

	case buyPattern.MatchString(description):
		return "buy", p.appendTrade(ctx, result, raw, line, models.ActivityBuy, buyPattern.FindStringSubmatch(description)[1])

	case raw.ISIN != "" && isFeePosting(description):
		return "fee-posting", p.appendPendingFee(result, raw, line, description)

	case raw.ISIN == "":
		// No tradable instrument on this row.
		return "no-isin", nil

	default:
		// A row with an ISIN that matches nothing deserves review, not a
		// silent drop.
		logger.L.Warn("Unmatched statement row kept for review",
			"line", line, "isin", raw.ISIN, "description", raw.Description)
		result.Unmatched = append(result.Unmatched, raw)
		return "unmatched", nil
	}
}

func isNoise(description string) bool {
	if description == "" {
		return true
	}
	for _, marker := range noiseMarkers {
		if strings.Contains(description, marker) {
			return true
		}
	}
	return false
}

func isFeePosting(description string) bool {
	return strings.Contains(description, transactionFeeMarker) ||
		strings.Contains(description, conversionDebitMarker) ||
		strings.Contains(description, conversionCreditMark)
}

// amendDividendTax folds a withholding tax row into the dividend activity
// directly before it: the tax amount becomes the fee, and the tax row's
// currency wins.
func (p *activityProcessorImpl) amendDividendTax(result *Result, raw models.RawTransaction, line int) error {
	tail := lastActivity(result.Activities)
	if tail == nil {
		return fmt.Errorf("%w: dividend tax row at line %d has no preceding activity", ErrTailMismatch, line)
	}
	if tail.Type != models.ActivityDividend || tail.Comment == "" {
		return fmt.Errorf("%w: dividend tax row at line %d does not follow an open dividend activity", ErrTailMismatch, line)
	}

	amount, err := utils.ParseAmount(raw.Amount)
	if err != nil {
		return fmt.Errorf("dividend tax row at line %d: %w", line, err)
	}

	tail.Fee = utils.AbsFloat(amount)
	tail.Currency = raw.Currency
	tail.Comment = ""
	return nil
}

// appendDividend emits a dividend activity. The entry stays open (comment
// set) so an immediately following withholding tax row can amend it.
func (p *activityProcessorImpl) appendDividend(ctx context.Context, result *Result, raw models.RawTransaction, line int) error {
	symbol, err := p.resolver.LookupSymbol(ctx, raw.ISIN)
	if err != nil {
		return err
	}

	amount, err := utils.ParseAmount(raw.Amount)
	if err != nil {
		return fmt.Errorf("dividend row at line %d: %w", line, err)
	}

	date, err := rowTimestamp(raw)
	if err != nil {
		return fmt.Errorf("dividend row at line %d: %w", line, err)
	}

	quantity := 1.0
	if p.dividendQuantity == config.DividendQuantityZero {
		quantity = 0.0
	}

	result.Activities = append(result.Activities, models.Activity{
		AccountID:  p.accountID,
		Comment:    raw.Description,
		Quantity:   quantity,
		Type:       models.ActivityDividend,
		UnitPrice:  utils.AbsFloat(amount),
		Currency:   raw.Currency,
		DataSource: dataSourceYahoo,
		Date:       date,
		Symbol:     symbol,
	})
	return nil
}

// appendTrade emits a buy or sell activity. When the tail of the activity
// list holds a pending fee entry left by a preceding fee posting, that entry
// is promoted in place to the finalized trade instead of appending a second
// activity; a redundant twin left by the two-sided fee posting is dropped.
func (p *activityProcessorImpl) appendTrade(ctx context.Context, result *Result, raw models.RawTransaction, line int, activityType models.ActivityType, quantityStr string) error {
	quantity, err := strconv.ParseFloat(quantityStr, 64)
	if err != nil {
		return fmt.Errorf("trade row at line %d: invalid quantity %q: %w", line, quantityStr, err)
	}

	amount, err := utils.ParseAmount(raw.Amount)
	if err != nil {
		return fmt.Errorf("trade row at line %d: %w", line, err)
	}

	date, err := rowTimestamp(raw)
	if err != nil {
		return fmt.Errorf("trade row at line %d: %w", line, err)
	}

	symbol, err := p.resolver.LookupSymbol(ctx, raw.ISIN)
	if err != nil {
		return err
	}

	unitPrice := p.unitPrice(utils.AbsFloat(amount), quantity)

	side := models.PendingBuy
	if activityType == models.ActivitySell {
		side = models.PendingSell
	}

	pending, err := takePendingFee(result, side, line)
	if err != nil {
		return err
	}
	if pending != nil {
		pending.Type = activityType
		pending.Symbol = symbol
		pending.Quantity = quantity
		pending.UnitPrice = unitPrice
		pending.Currency = raw.Currency
		pending.Date = date
		pending.Comment = ""
		pending.Pending = models.PendingNone
		pending.PendingTwin = false
		return nil
	}

	// No fee posting preceded this trade: valid for no-fee product tiers.
	result.Activities = append(result.Activities, models.Activity{
		AccountID:  p.accountID,
		Fee:        0,
		Quantity:   quantity,
		Type:       activityType,
		UnitPrice:  unitPrice,
		Currency:   raw.Currency,
		DataSource: dataSourceYahoo,
		Date:       date,
		Symbol:     symbol,
	})
	return nil
}

// takePendingFee inspects the tail for a pending fee entry satisfying a
// trade of the given side. When the two-sided posting variant stacked its
// pending twins on the tail, the redundant twin is removed and the tail
// entry is handed out for promotion. Adjacent pendings that do not form a
// provable twin pair are never collapsed: the extra entry stays pending and
// surfaces as a dangling fee at the end of the pass. A lone pending entry
// of the opposite side means the statement ordering is out of sync.
func takePendingFee(result *Result, side models.PendingFee, line int) (*models.Activity, error) {
	activities := result.Activities
	tail := lastActivity(activities)
	if tail == nil || tail.Pending == models.PendingNone {
		return nil, nil
	}

	if twin := secondToLast(activities); twin != nil && isTwinPair(twin, tail) {
		// Two-sided fee posting: both twins carry the same fee, keep the
		// tail one and drop the other.
		logger.L.Debug("Dropping redundant pending fee twin", "line", line, "fee", twin.Fee)
		result.Activities = append(activities[:len(activities)-2], activities[len(activities)-1])
		return lastActivity(result.Activities), nil
	}

	if tail.Pending != side {
		return nil, fmt.Errorf("%w: trade row at line %d expects a %s-side fee, found %s-side",
			ErrTailMismatch, line, side, tail.Pending)
	}
	return tail, nil
}

// isTwinPair reports whether two adjacent pending entries originate from a
// single two-sided fee posting: both tagged as twins, covering opposite
// sides, carrying the identical fee. Distinct fee postings stacked next to
// each other (two conversions) must not be mistaken for a pair — collapsing
// them would silently discard a fee.
func isTwinPair(a, b *models.Activity) bool {
	return a.PendingTwin && b.PendingTwin &&
		a.Pending != models.PendingNone && b.Pending != models.PendingNone &&
		a.Pending != b.Pending &&
		a.Fee == b.Fee
}

// appendPendingFee records a fee or currency-conversion posting as a
// provisional activity holding only the fee, to be completed by the trade
// row that follows it. Transaction fee postings read the primary amount and
// satisfy either trade side, so both twins are appended; conversion
// postings read the secondary-currency amount and their direction fixes the
// side (cash debited funds a buy, cash credited stems from a sell).
func (p *activityProcessorImpl) appendPendingFee(result *Result, raw models.RawTransaction, line int, description string) error {
	date, err := rowTimestamp(raw)
	if err != nil {
		return fmt.Errorf("fee row at line %d: %w", line, err)
	}

	entry := models.Activity{
		AccountID:  p.accountID,
		Comment:    raw.Description,
		Currency:   raw.Currency,
		DataSource: dataSourceYahoo,
		Date:       date,
	}

	switch {
	case strings.Contains(description, transactionFeeMarker):
		amount, err := utils.ParseAmount(raw.Amount)
		if err != nil {
			return fmt.Errorf("fee row at line %d: %w", line, err)
		}
		entry.Fee = utils.AbsFloat(amount)
		entry.Pending = models.PendingBuy
		entry.PendingTwin = true
		twin := entry
		twin.Pending = models.PendingSell
		result.Activities = append(result.Activities, entry, twin)
		return nil

	case strings.Contains(description, conversionDebitMarker):
		amount, err := utils.ParseAmount(raw.ExchangeAmount)
		if err != nil {
			return fmt.Errorf("conversion row at line %d: %w", line, err)
		}
		entry.Fee = utils.AbsFloat(amount)
		entry.Pending = models.PendingBuy

	default: // conversion credit
		amount, err := utils.ParseAmount(raw.ExchangeAmount)
		if err != nil {
			return fmt.Errorf("conversion row at line %d: %w", line, err)
		}
		entry.Fee = utils.AbsFloat(amount)
		entry.Pending = models.PendingSell
	}

	result.Activities = append(result.Activities, entry)
	return nil
}

// unitPrice derives the price written on a trade activity. Historical
// versions of the converter disagreed on this; the mode is configuration,
// not a silent choice.
func (p *activityProcessorImpl) unitPrice(absAmount, quantity float64) float64 {
	if p.unitPriceMode == config.UnitPriceTotal || quantity == 0 {
		return absAmount
	}
	return decimal.NewFromFloat(absAmount).
		Div(decimal.NewFromFloat(quantity)).
		Round(3).
		InexactFloat64()
}

// rowTimestamp builds the ISO-8601 activity timestamp from the statement's
// date and time columns.
func rowTimestamp(raw models.RawTransaction) (string, error) {
	if strings.TrimSpace(raw.OrderTime) == "" {
		t, err := time.Parse("02-01-2006", raw.OrderDate)
		if err != nil {
			return "", fmt.Errorf("invalid date %q: %w", raw.OrderDate, err)
		}
		return t.UTC().Format(time.RFC3339), nil
	}
	t, err := time.Parse("02-01-2006 15:04", raw.OrderDate+" "+raw.OrderTime)
	if err != nil {
		return "", fmt.Errorf("invalid date/time %q %q: %w", raw.OrderDate, raw.OrderTime, err)
	}
	return t.UTC().Format(time.RFC3339), nil
}

func lastActivity(activities []models.Activity) *models.Activity {
	if len(activities) == 0 {
		return nil
	}
	return &activities[len(activities)-1]
}

func secondToLast(activities []models.Activity) *models.Activity {
	if len(activities) < 2 {
		return nil
	}
	return &activities[len(activities)-2]
}
