// Package editor applies field-level user corrections to transactions.
//
// An edit never mutates its argument: it returns a fresh transaction
// with the new raw value and one more entry in the append-only
// correction log. Re-normalization and re-reconciliation are the
// caller's job, always as a full pipeline re-run, because a single edit
// can change the aggregate balance identity.
package editor

import (
	"time"

	"statement-review-service/internal/models"
	"statement-review-service/pkg/errors"
)

// ApplyEdit sets an editable field of the transaction to newValue and
// records the correction. newValue may be nil, meaning the value was
// cleared. An invalid field is a caller contract violation and is
// rejected with an edit-category error.
func ApplyEdit(tx *models.Transaction, field models.EditField, newValue *string) (*models.Transaction, error) {
	if !field.IsValid() {
		return nil, errors.EditError(errors.CodeUneditableField, tx.RowID, field.String(), nil)
	}

	out := tx.Clone()

	out.Edits = append(out.Edits, models.EditRecord{
		Field:    field,
		OldValue: out.FieldValue(field),
		NewValue: cloneValue(newValue),
		EditedAt: time.Now().UTC(),
	})
	out.SetFieldValue(field, cloneValue(newValue))

	return out, nil
}

func cloneValue(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
