// Package reconciler checks the internal arithmetic consistency of a
// normalized statement and produces the PASS/BLOCK verdict that gates
// export.
//
// Three checks run in a fixed order: the aggregate balance identity
// (opening + net = closing, blocking on violation), per-row running
// balance continuity (advisory), and date containment within the
// statement period (advisory). The result merges the caller-supplied
// normalization flags so it is the single source of truth for the
// statement's state. Reconciliation is fully re-entrant: identical
// inputs produce byte-identical results.
package reconciler

import (
	"fmt"
	"time"

	"statement-review-service/internal/models"

	"github.com/shopspring/decimal"
)

// Config holds configuration options for the reconciler
type Config struct {
	// Tolerance is the absolute amount difference accepted by both the
	// balance identity and the running balance walk
	Tolerance decimal.Decimal
}

// DefaultConfig returns a default reconciler configuration
func DefaultConfig() *Config {
	return &Config{
		Tolerance: decimal.NewFromFloat(0.01),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance cannot be negative, got %s", c.Tolerance)
	}
	return nil
}

// Reconciler verifies a statement's arithmetic identities
type Reconciler struct {
	config *Config
}

// New creates a new Reconciler with the given configuration
func New(config *Config) (*Reconciler, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconciler configuration: %w", err)
	}

	return &Reconciler{config: config}, nil
}

// Reconcile runs all consistency checks over the normalized transactions
// and assembles the statement verdict. priorFlags carries the
// normalizer's findings; they are merged ahead of the reconciler's own
// flags so the returned result is the complete flag list for this run.
func (r *Reconciler) Reconcile(
	metadata *models.StatementMetadata,
	transactions []*models.Transaction,
	priorFlags []models.ValidationFlag,
) *models.ValidationResult {

	flags := make([]models.ValidationFlag, 0, len(priorFlags))
	flags = append(flags, priorFlags...)

	flags = append(flags, r.checkBalanceIdentity(metadata, transactions)...)
	flags = append(flags, r.checkRunningBalances(metadata, transactions)...)
	flags = append(flags, r.checkDateContainment(metadata, transactions)...)

	return models.BuildValidationResult(flags, len(transactions))
}

// checkBalanceIdentity verifies opening + net movement == stated closing
func (r *Reconciler) checkBalanceIdentity(
	metadata *models.StatementMetadata,
	transactions []*models.Transaction,
) []models.ValidationFlag {

	net := decimal.Zero
	for _, tx := range transactions {
		net = net.Add(tx.NormalizedAmount)
	}

	computed := metadata.OpeningBalance.Add(net)
	if models.WithinTolerance(computed, metadata.ClosingBalance, r.config.Tolerance) {
		return nil
	}

	diff := computed.Sub(metadata.ClosingBalance)
	return []models.ValidationFlag{{
		Severity: models.SeverityError,
		Message: fmt.Sprintf(
			"statement does not balance: opening %s plus transactions %s gives %s, but the stated closing balance is %s (difference %s)",
			metadata.OpeningBalance.StringFixed(2),
			net.StringFixed(2),
			computed.StringFixed(2),
			metadata.ClosingBalance.StringFixed(2),
			diff.StringFixed(2),
		),
		SuggestedFix: "check for a missed, duplicated or mis-amounted transaction",
	}}
}

// checkRunningBalances walks the rows in statement order and compares
// each printed running balance against the expected value. Rows without
// a parsed balance are skipped. Drift is advisory only.
func (r *Reconciler) checkRunningBalances(
	metadata *models.StatementMetadata,
	transactions []*models.Transaction,
) []models.ValidationFlag {

	var flags []models.ValidationFlag
	expected := metadata.OpeningBalance

	for _, tx := range transactions {
		expected = expected.Add(tx.NormalizedAmount)

		if tx.NormalizedBalance == nil {
			continue
		}

		if !models.WithinTolerance(expected, *tx.NormalizedBalance, r.config.Tolerance) {
			flags = append(flags, models.ValidationFlag{
				RowID:    tx.RowID,
				Severity: models.SeverityWarning,
				Field:    "runningBalance",
				Message: fmt.Sprintf(
					"running balance %s does not match the expected %s",
					tx.NormalizedBalance.StringFixed(2),
					expected.StringFixed(2),
				),
				SuggestedFix: "verify the amounts of this row and the rows above it",
			})
		}
	}

	return flags
}

// checkDateContainment flags rows dated outside the statement period.
// Rows without a normalized date were already flagged as errors by the
// normalizer and are skipped here.
func (r *Reconciler) checkDateContainment(
	metadata *models.StatementMetadata,
	transactions []*models.Transaction,
) []models.ValidationFlag {

	start, end, err := metadata.Period()
	if err != nil {
		return []models.ValidationFlag{{
			Severity:     models.SeverityWarning,
			Message:      fmt.Sprintf("statement period could not be parsed, date containment was not checked: %v", err),
			SuggestedFix: "re-run extraction so the statement period is captured",
		}}
	}

	var flags []models.ValidationFlag
	for _, tx := range transactions {
		if tx.NormalizedDate == nil {
			continue
		}

		date, err := time.Parse("2006-01-02", *tx.NormalizedDate)
		if err != nil {
			continue
		}

		if date.Before(start) || date.After(end) {
			flags = append(flags, models.ValidationFlag{
				RowID:    tx.RowID,
				Severity: models.SeverityWarning,
				Field:    models.EditFieldPostedDate.String(),
				Message: fmt.Sprintf(
					"transaction date %s is outside the statement period %s..%s",
					*tx.NormalizedDate, metadata.PeriodStart, metadata.PeriodEnd,
				),
				SuggestedFix: "confirm the date against the statement",
			})
		}
	}

	return flags
}
