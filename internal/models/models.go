package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Severity represents the severity of a validation flag
type Severity string

const (
	// SeverityError marks a flag that blocks export
	SeverityError Severity = "error"
	// SeverityWarning marks an advisory flag that never blocks export
	SeverityWarning Severity = "warning"
)

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	return s == SeverityError || s == SeverityWarning
}

// Status represents the overall verdict of a validation run
type Status string

const (
	// StatusPass means the statement reconciles and export is allowed
	StatusPass Status = "PASS"
	// StatusBlock means at least one error flag exists and export is refused
	StatusBlock Status = "BLOCK"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// EditField identifies one of the user-correctable transaction fields.
// It is a closed variant: the zero value is invalid and anything outside
// the declared constants is rejected by IsValid.
type EditField int

const (
	EditFieldUnknown EditField = iota
	EditFieldPostedDate
	EditFieldDescription
	EditFieldDebit
	EditFieldCredit
)

// String returns the field name as it appears in raw transaction data
func (f EditField) String() string {
	switch f {
	case EditFieldPostedDate:
		return "postedDate"
	case EditFieldDescription:
		return "description"
	case EditFieldDebit:
		return "debit"
	case EditFieldCredit:
		return "credit"
	default:
		return "unknown"
	}
}

// IsValid checks if the edit field is one of the editable fields
func (f EditField) IsValid() bool {
	switch f {
	case EditFieldPostedDate, EditFieldDescription, EditFieldDebit, EditFieldCredit:
		return true
	default:
		return false
	}
}

// ParseEditField parses an editable field name from its string form
func ParseEditField(s string) (EditField, error) {
	switch strings.TrimSpace(s) {
	case "postedDate":
		return EditFieldPostedDate, nil
	case "description":
		return EditFieldDescription, nil
	case "debit":
		return EditFieldDebit, nil
	case "credit":
		return EditFieldCredit, nil
	default:
		return EditFieldUnknown, fmt.Errorf("field %q is not editable", s)
	}
}

// EditRecord is one entry in a transaction's append-only correction log
type EditRecord struct {
	Field    EditField `json:"field"`
	OldValue *string   `json:"oldValue"`
	NewValue *string   `json:"newValue"`
	EditedAt time.Time `json:"editedAt"`
}

// Transaction represents one ledger line of a statement.
//
// Raw fields hold what the extraction step literally observed; a nil
// pointer is the no-value sentinel (an empty string is a real, observed
// empty value, never "unknown"). The normalized fields are written only
// by the normalizer. Edits holds the append-only correction log; the
// oldValue of the first record for a field is the value that existed
// before the first ever edit to that field.
type Transaction struct {
	RowID string `json:"rowId"`

	PostedDate     *string `json:"postedDate"`
	Description    *string `json:"description"`
	Debit          *string `json:"debit"`
	Credit         *string `json:"credit"`
	RunningBalance *string `json:"runningBalance"`

	NormalizedDate    *string          `json:"normalizedDate"`
	NormalizedAmount  decimal.Decimal  `json:"normalizedAmount"`
	NormalizedBalance *decimal.Decimal `json:"normalizedBalance"`

	Edits []EditRecord `json:"edits,omitempty"`
}

// Clone returns a deep copy of the transaction
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}

	out := &Transaction{
		RowID:            t.RowID,
		PostedDate:       cloneString(t.PostedDate),
		Description:      cloneString(t.Description),
		Debit:            cloneString(t.Debit),
		Credit:           cloneString(t.Credit),
		RunningBalance:   cloneString(t.RunningBalance),
		NormalizedDate:   cloneString(t.NormalizedDate),
		NormalizedAmount: t.NormalizedAmount,
	}

	if t.NormalizedBalance != nil {
		b := *t.NormalizedBalance
		out.NormalizedBalance = &b
	}

	if len(t.Edits) > 0 {
		out.Edits = make([]EditRecord, len(t.Edits))
		for i, rec := range t.Edits {
			out.Edits[i] = EditRecord{
				Field:    rec.Field,
				OldValue: cloneString(rec.OldValue),
				NewValue: cloneString(rec.NewValue),
				EditedAt: rec.EditedAt,
			}
		}
	}

	return out
}

// IsEdited reports whether the transaction has ever been corrected.
// Derived from the append-only log, so it is monotonic by construction.
func (t *Transaction) IsEdited() bool {
	return len(t.Edits) > 0
}

// EditedFields returns the distinct fields ever touched, in first-edit order
func (t *Transaction) EditedFields() []EditField {
	var fields []EditField
	seen := make(map[EditField]bool)
	for _, rec := range t.Edits {
		if !seen[rec.Field] {
			seen[rec.Field] = true
			fields = append(fields, rec.Field)
		}
	}
	return fields
}

// OriginalValue returns the value a field held before its first ever edit.
// The second return is false if the field has never been edited.
func (t *Transaction) OriginalValue(field EditField) (*string, bool) {
	for _, rec := range t.Edits {
		if rec.Field == field {
			return cloneString(rec.OldValue), true
		}
	}
	return nil, false
}

// FieldValue returns the current raw value of an editable field
func (t *Transaction) FieldValue(field EditField) *string {
	switch field {
	case EditFieldPostedDate:
		return t.PostedDate
	case EditFieldDescription:
		return t.Description
	case EditFieldDebit:
		return t.Debit
	case EditFieldCredit:
		return t.Credit
	default:
		return nil
	}
}

// SetFieldValue overwrites the current raw value of an editable field.
// Unknown fields are a programming error and panic.
func (t *Transaction) SetFieldValue(field EditField, value *string) {
	switch field {
	case EditFieldPostedDate:
		t.PostedDate = value
	case EditFieldDescription:
		t.Description = value
	case EditFieldDebit:
		t.Debit = value
	case EditFieldCredit:
		t.Credit = value
	default:
		panic(fmt.Sprintf("models: SetFieldValue called with invalid field %d", field))
	}
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	date := "-"
	if t.NormalizedDate != nil {
		date = *t.NormalizedDate
	}
	desc := "-"
	if t.Description != nil {
		desc = *t.Description
	}
	return fmt.Sprintf("Transaction{Row: %s, Date: %s, Amount: %s, Description: %q}",
		t.RowID, date, t.NormalizedAmount.StringFixed(2), desc)
}

// StatementMetadata holds the statement-level fields produced once by
// extraction. It is immutable after ingestion; edits never target it.
type StatementMetadata struct {
	Institution     string `json:"institution"`
	AccountName     string `json:"accountName"`
	AccountLastFour string `json:"accountLastFour"`
	AccountType     string `json:"accountType"`
	Currency        string `json:"currency"`

	// Period bounds arrive pre-formatted as YYYY-MM-DD
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`

	OpeningBalanceRaw string          `json:"openingBalanceRaw"`
	ClosingBalanceRaw string          `json:"closingBalanceRaw"`
	OpeningBalance    decimal.Decimal `json:"openingBalance"`
	ClosingBalance    decimal.Decimal `json:"closingBalance"`

	// Informational only; never reconciled against
	TotalDebits  *decimal.Decimal `json:"totalDebits,omitempty"`
	TotalCredits *decimal.Decimal `json:"totalCredits,omitempty"`
}

// Clone returns a deep copy of the metadata
func (m *StatementMetadata) Clone() *StatementMetadata {
	if m == nil {
		return nil
	}
	out := *m
	if m.TotalDebits != nil {
		d := *m.TotalDebits
		out.TotalDebits = &d
	}
	if m.TotalCredits != nil {
		c := *m.TotalCredits
		out.TotalCredits = &c
	}
	return &out
}

// Period parses the statement period bounds as calendar dates
func (m *StatementMetadata) Period() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", m.PeriodStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period start %q: %w", m.PeriodStart, err)
	}
	end, err = time.Parse("2006-01-02", m.PeriodEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period end %q: %w", m.PeriodEnd, err)
	}
	return start, end, nil
}

// ValidationFlag is one data-quality finding. An empty RowID means the
// flag is statement-level rather than tied to a single row.
type ValidationFlag struct {
	RowID        string   `json:"rowId,omitempty"`
	Severity     Severity `json:"severity"`
	Field        string   `json:"field,omitempty"`
	Message      string   `json:"message"`
	SuggestedFix string   `json:"suggestedFix,omitempty"`
}

// IsStatementLevel reports whether the flag applies to the whole statement
func (f ValidationFlag) IsStatementLevel() bool {
	return f.RowID == ""
}

// ValidationResult is the verdict of one full normalization and
// reconciliation run. Flags are recomputed from scratch every run.
type ValidationResult struct {
	Status            Status           `json:"status"`
	Flags             []ValidationFlag `json:"flags"`
	IsReconciled      bool             `json:"isReconciled"`
	TotalTransactions int              `json:"totalTransactions"`
	FlaggedRowsCount  int              `json:"flaggedRowsCount"`
}

// BuildValidationResult derives the verdict from a complete flag list.
// Status is BLOCK iff any flag has error severity; FlaggedRowsCount is
// the number of distinct rows appearing in the flags.
func BuildValidationResult(flags []ValidationFlag, totalTransactions int) *ValidationResult {
	if flags == nil {
		flags = []ValidationFlag{}
	}

	status := StatusPass
	flaggedRows := make(map[string]bool)
	for _, flag := range flags {
		if flag.Severity == SeverityError {
			status = StatusBlock
		}
		if flag.RowID != "" {
			flaggedRows[flag.RowID] = true
		}
	}

	return &ValidationResult{
		Status:            status,
		Flags:             flags,
		IsReconciled:      status == StatusPass,
		TotalTransactions: totalTransactions,
		FlaggedRowsCount:  len(flaggedRows),
	}
}

// TransactionHash is the derived identity projection of one transaction,
// used for duplicate-import detection and interchange-format row IDs.
type TransactionHash struct {
	RowID           string          `json:"rowId"`
	Hash            string          `json:"hash"`
	Date            string          `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	AccountLastFour string          `json:"accountLastFour"`
}

// Utility functions for raw value parsing

// DefaultDateFormats lists the date layouts commonly seen on statements,
// tried in order
var DefaultDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/01/02",
}

// ParseCalendarDate parses a raw date string against the given layouts
func ParseCalendarDate(s string, formats []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	if len(formats) == 0 {
		formats = DefaultDateFormats
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// ParseDecimalFromString parses a monetary value as literally printed on
// a statement: currency symbols and thousand separators are stripped,
// and a parenthesized value is negative.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	if negative {
		d = d.Neg()
	}

	return d, nil
}

// WithinTolerance compares two decimal amounts with an absolute tolerance
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(tolerance)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
