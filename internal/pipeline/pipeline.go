// Package pipeline composes the normalizer, reconciler, editor and
// export gate into the replace-on-write snapshot discipline: every run
// or edit produces a brand-new snapshot and never mutates the one the
// caller holds, so there is no partial-update visibility.
package pipeline

import (
	"fmt"

	"statement-review-service/internal/editor"
	"statement-review-service/internal/export"
	"statement-review-service/internal/models"
	"statement-review-service/internal/normalizer"
	"statement-review-service/internal/reconciler"
	"statement-review-service/pkg/errors"
	"statement-review-service/pkg/logger"
)

// Snapshot is the caller-owned state of one statement: metadata,
// transactions and the verdict of the latest full run. The Validation
// field is nil until the first Run.
type Snapshot struct {
	Metadata     *models.StatementMetadata `json:"metadata"`
	Transactions []*models.Transaction     `json:"transactions"`
	Validation   *models.ValidationResult  `json:"validation,omitempty"`
}

// Clone returns a deep copy of the snapshot's caller-owned data. The
// validation result is not copied: a clone is always re-validated.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Metadata:     s.Metadata.Clone(),
		Transactions: make([]*models.Transaction, len(s.Transactions)),
	}
	for i, tx := range s.Transactions {
		out.Transactions[i] = tx.Clone()
	}
	return out
}

// IsReady reports whether the snapshot's latest verdict allows export
func (s *Snapshot) IsReady() bool {
	return s.Validation != nil && s.Validation.Status == models.StatusPass
}

// Pipeline runs the normalize-then-reconcile chain over snapshots
type Pipeline struct {
	normalizer *normalizer.Normalizer
	reconciler *reconciler.Reconciler
	log        logger.Logger
}

// New creates a pipeline from component configurations; nil configs
// select defaults
func New(normalizerConfig *normalizer.Config, reconcilerConfig *reconciler.Config) (*Pipeline, error) {
	n, err := normalizer.New(normalizerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create normalizer: %w", err)
	}

	r, err := reconciler.New(reconcilerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler: %w", err)
	}

	return &Pipeline{
		normalizer: n,
		reconciler: r,
		log:        logger.GetGlobalLogger().WithComponent("pipeline"),
	}, nil
}

// Run executes a full normalize-then-reconcile pass and returns a new
// snapshot carrying the fresh verdict. The input snapshot is untouched.
func (p *Pipeline) Run(snapshot *Snapshot) *Snapshot {
	normalized, flags := p.normalizer.Normalize(snapshot.Transactions)
	result := p.reconciler.Reconcile(snapshot.Metadata, normalized, flags)

	p.log.WithFields(logger.Fields{
		"status":       result.Status,
		"transactions": result.TotalTransactions,
		"flags":        len(result.Flags),
		"flagged_rows": result.FlaggedRowsCount,
	}).Debug("pipeline run complete")

	return &Snapshot{
		Metadata:     snapshot.Metadata.Clone(),
		Transactions: normalized,
		Validation:   result,
	}
}

// ApplyEdit corrects one field of one transaction and re-runs the full
// pipeline over all transactions. A single edit can change the
// aggregate balance identity, so there is no incremental path.
func (p *Pipeline) ApplyEdit(snapshot *Snapshot, rowID string, field models.EditField, newValue *string) (*Snapshot, error) {
	index := -1
	for i, tx := range snapshot.Transactions {
		if tx.RowID == rowID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, errors.EditError(errors.CodeUnknownRow, rowID, field.String(), nil)
	}

	edited, err := editor.ApplyEdit(snapshot.Transactions[index], field, newValue)
	if err != nil {
		return nil, err
	}

	next := snapshot.Clone()
	next.Transactions[index] = edited

	p.log.WithFields(logger.Fields{
		"row_id": rowID,
		"field":  field.String(),
	}).Info("edit applied, re-running validation")

	return p.Run(next), nil
}

// ExportCSV serializes the snapshot as delimited text, gated on the
// snapshot's current verdict
func (p *Pipeline) ExportCSV(snapshot *Snapshot) (string, error) {
	return export.CSV(snapshot.Transactions, snapshot.IsReady())
}

// ExportOFX serializes the snapshot as an OFX document, gated on the
// snapshot's current verdict
func (p *Pipeline) ExportOFX(snapshot *Snapshot) (string, error) {
	return export.OFX(snapshot.Metadata, snapshot.Transactions, snapshot.IsReady())
}
