package export

import (
	"strings"

	"statement-review-service/internal/models"
)

// csvHeader is the fixed column order of the delimited export
const csvHeader = "date,description,amount,balance"

// CSV serializes the transactions as delimited text: one line per row
// in original order, the description always double-quoted with internal
// quotes doubled, amounts and balances at exactly two decimals with
// 0.00 standing in for absent values. Lines are LF-joined with no
// trailing summary row.
//
// Returns an export-blocked error and no output when isReady is false.
func CSV(transactions []*models.Transaction, isReady bool) (string, error) {
	if err := gate(FormatCSV, isReady); err != nil {
		return "", err
	}

	lines := make([]string, 0, len(transactions)+1)
	lines = append(lines, csvHeader)

	for _, tx := range transactions {
		lines = append(lines, csvLine(tx))
	}

	return strings.Join(lines, "\n"), nil
}

func csvLine(tx *models.Transaction) string {
	date := ""
	if tx.NormalizedDate != nil {
		date = *tx.NormalizedDate
	}

	description := ""
	if tx.Description != nil {
		description = *tx.Description
	}

	balance := "0.00"
	if tx.NormalizedBalance != nil {
		balance = tx.NormalizedBalance.StringFixed(2)
	}

	return strings.Join([]string{
		date,
		quoteDescription(description),
		tx.NormalizedAmount.StringFixed(2),
		balance,
	}, ",")
}

// quoteDescription applies RFC-4180 quoting: the field is always
// wrapped in double quotes and internal quotes are doubled. No other
// escaping is performed.
func quoteDescription(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
