// Package normalizer converts raw, PDF-literal transaction fields into
// the canonical representation the rest of the pipeline operates on.
//
// Normalization is total and side-effect-free: it never mutates its
// input, never aborts on bad row data, and reports every data-quality
// finding as a validation flag. Unparsable dates are blocking errors;
// unparsable amounts and dual debit/credit rows are surfaced as
// non-blocking warnings while the amount computation treats the bad
// value as absent.
package normalizer

import (
	"fmt"

	"statement-review-service/internal/models"

	"github.com/shopspring/decimal"
)

// Config holds configuration options for the normalizer
type Config struct {
	// DateFormats are the layouts tried, in order, against raw posted dates
	DateFormats []string
}

// DefaultConfig returns a default normalizer configuration
func DefaultConfig() *Config {
	return &Config{
		DateFormats: models.DefaultDateFormats,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.DateFormats) == 0 {
		return fmt.Errorf("at least one date format is required")
	}
	return nil
}

// Normalizer converts raw transaction fields to canonical form
type Normalizer struct {
	config *Config
}

// New creates a new Normalizer with the given configuration
func New(config *Config) (*Normalizer, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid normalizer configuration: %w", err)
	}

	return &Normalizer{config: config}, nil
}

// Normalize converts the raw fields of every transaction into canonical
// form and reports per-row findings. The input slice and its
// transactions are never mutated; the returned slice holds fresh copies
// with only the normalized fields rewritten.
func (n *Normalizer) Normalize(transactions []*models.Transaction) ([]*models.Transaction, []models.ValidationFlag) {
	normalized := make([]*models.Transaction, 0, len(transactions))
	flags := []models.ValidationFlag{}

	for _, tx := range transactions {
		out := tx.Clone()
		flags = append(flags, n.normalizeRow(out)...)
		normalized = append(normalized, out)
	}

	return normalized, flags
}

// normalizeRow rewrites the three normalized fields of a single cloned
// transaction and returns its flags in a fixed order: date, dual
// presence, debit, credit.
func (n *Normalizer) normalizeRow(tx *models.Transaction) []models.ValidationFlag {
	var flags []models.ValidationFlag

	// Re-runs must not inherit stale derived values from a prior pass.
	tx.NormalizedDate = nil
	tx.NormalizedAmount = decimal.Zero
	tx.NormalizedBalance = nil

	flags = append(flags, n.normalizeDate(tx)...)

	if tx.Debit != nil && tx.Credit != nil {
		flags = append(flags, models.ValidationFlag{
			RowID:        tx.RowID,
			Severity:     models.SeverityWarning,
			Message:      "both debit and credit are present; the credit value was used",
			SuggestedFix: "clear whichever of the two columns is wrong",
		})
	}

	flags = append(flags, n.normalizeAmount(tx)...)
	n.normalizeBalance(tx)

	return flags
}

func (n *Normalizer) normalizeDate(tx *models.Transaction) []models.ValidationFlag {
	if tx.PostedDate == nil {
		return []models.ValidationFlag{{
			RowID:        tx.RowID,
			Severity:     models.SeverityError,
			Field:        models.EditFieldPostedDate.String(),
			Message:      "posted date is missing",
			SuggestedFix: "enter the transaction date shown on the statement",
		}}
	}

	parsed, err := models.ParseCalendarDate(*tx.PostedDate, n.config.DateFormats)
	if err != nil {
		return []models.ValidationFlag{{
			RowID:        tx.RowID,
			Severity:     models.SeverityError,
			Field:        models.EditFieldPostedDate.String(),
			Message:      fmt.Sprintf("invalid date %q", *tx.PostedDate),
			SuggestedFix: "correct the date to a recognizable format such as YYYY-MM-DD",
		}}
	}

	iso := parsed.Format("2006-01-02")
	tx.NormalizedDate = &iso
	return nil
}

// normalizeAmount derives the signed amount: debit negative, credit
// positive, credit winning when both parse (last writer in source
// order). An unparsable non-empty value is treated as absent for the
// computation but still reported.
func (n *Normalizer) normalizeAmount(tx *models.Transaction) []models.ValidationFlag {
	var flags []models.ValidationFlag
	amount := decimal.Zero

	if tx.Debit != nil {
		if d, err := models.ParseDecimalFromString(*tx.Debit); err == nil {
			amount = d.Abs().Neg()
		} else {
			flags = append(flags, models.ValidationFlag{
				RowID:        tx.RowID,
				Severity:     models.SeverityWarning,
				Field:        models.EditFieldDebit.String(),
				Message:      fmt.Sprintf("unparsable debit amount %q was treated as absent", *tx.Debit),
				SuggestedFix: "re-enter the debit as a plain decimal number",
			})
		}
	}

	if tx.Credit != nil {
		if c, err := models.ParseDecimalFromString(*tx.Credit); err == nil {
			amount = c.Abs()
		} else {
			flags = append(flags, models.ValidationFlag{
				RowID:        tx.RowID,
				Severity:     models.SeverityWarning,
				Field:        models.EditFieldCredit.String(),
				Message:      fmt.Sprintf("unparsable credit amount %q was treated as absent", *tx.Credit),
				SuggestedFix: "re-enter the credit as a plain decimal number",
			})
		}
	}

	tx.NormalizedAmount = amount.Round(2)
	return flags
}

// normalizeBalance parses the printed running balance when present.
// Parse failures are silent here: only the reconciler flags balance
// mismatches, never parse failures.
func (n *Normalizer) normalizeBalance(tx *models.Transaction) {
	if tx.RunningBalance == nil {
		return
	}

	b, err := models.ParseDecimalFromString(*tx.RunningBalance)
	if err != nil {
		return
	}

	rounded := b.Round(2)
	tx.NormalizedBalance = &rounded
}
