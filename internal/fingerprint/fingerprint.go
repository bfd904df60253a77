// Package fingerprint derives a stable identity hash per transaction
// for duplicate-import detection and interchange-format row IDs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"statement-review-service/internal/models"
)

// delimiter separates the hash inputs. Fixed forever: changing it would
// re-identify every previously exported transaction.
const delimiter = "|"

// Fingerprint derives the identity hash of a transaction. The hash
// depends only on the five semantic inputs (rowId, normalized date,
// normalized amount, current description, account last four), so the
// same transaction hashes identically across calls and across process
// restarts.
func Fingerprint(tx *models.Transaction, accountLastFour string) *models.TransactionHash {
	date := ""
	if tx.NormalizedDate != nil {
		date = *tx.NormalizedDate
	}

	description := ""
	if tx.Description != nil {
		description = *tx.Description
	}

	amount := tx.NormalizedAmount.StringFixed(2)

	input := strings.Join([]string{tx.RowID, date, amount, description, accountLastFour}, delimiter)
	sum := sha256.Sum256([]byte(input))

	return &models.TransactionHash{
		RowID:           tx.RowID,
		Hash:            hex.EncodeToString(sum[:]),
		Date:            date,
		Amount:          tx.NormalizedAmount,
		Description:     description,
		AccountLastFour: accountLastFour,
	}
}

// TransactionID renders the hash as the fixed-width row identifier used
// by the interchange export: exactly 32 characters, truncating or
// right-padding the hex digest as needed.
func TransactionID(hash *models.TransactionHash) string {
	const width = 32

	id := hash.Hash
	if len(id) >= width {
		return id[:width]
	}
	return id + strings.Repeat("0", width-len(id))
}
