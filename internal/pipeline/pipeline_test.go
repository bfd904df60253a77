package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"statement-review-service/internal/models"
	"statement-review-service/pkg/errors"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string {
	return &s
}

func mustPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

// balancedSnapshot builds a statement whose rows sum to the stated
// closing balance: 1000.00 opening, -250.00 and +100.00, 850.00 closing.
func balancedSnapshot() *Snapshot {
	return &Snapshot{
		Metadata: &models.StatementMetadata{
			Institution:     "First National Bank",
			AccountLastFour: "4821",
			Currency:        "USD",
			PeriodStart:     "2024-01-01",
			PeriodEnd:       "2024-01-31",
			OpeningBalance:  decimal.NewFromFloat(1000.00),
			ClosingBalance:  decimal.NewFromFloat(850.00),
		},
		Transactions: []*models.Transaction{
			{
				RowID:       "r1",
				PostedDate:  strPtr("2024-01-10"),
				Description: strPtr("HARDWARE STORE"),
				Debit:       strPtr("250.00"),
			},
			{
				RowID:       "r2",
				PostedDate:  strPtr("2024-01-20"),
				Description: strPtr("REFUND"),
				Credit:      strPtr("100.00"),
			},
		},
	}
}

func TestRunProducesPassVerdict(t *testing.T) {
	p := mustPipeline(t)

	result := p.Run(balancedSnapshot())

	if result.Validation == nil {
		t.Fatal("Run did not attach a validation result")
	}
	if result.Validation.Status != models.StatusPass {
		t.Errorf("Status = %s, want PASS; flags: %v", result.Validation.Status, result.Validation.Flags)
	}
	if !result.IsReady() {
		t.Error("IsReady() = false for a passing snapshot")
	}

	if got := result.Transactions[0].NormalizedAmount.StringFixed(2); got != "-250.00" {
		t.Errorf("row 1 amount = %s, want -250.00", got)
	}
	if got := result.Transactions[1].NormalizedAmount.StringFixed(2); got != "100.00" {
		t.Errorf("row 2 amount = %s, want 100.00", got)
	}
}

func TestRunDoesNotMutateInputSnapshot(t *testing.T) {
	p := mustPipeline(t)

	input := balancedSnapshot()
	output := p.Run(input)

	if input.Validation != nil {
		t.Error("Run attached a verdict to the input snapshot")
	}
	if input.Transactions[0].NormalizedDate != nil {
		t.Error("Run normalized the input snapshot's transactions in place")
	}
	if output.Transactions[0] == input.Transactions[0] {
		t.Error("output snapshot shares transaction pointers with the input")
	}
	if output.Metadata == input.Metadata {
		t.Error("output snapshot shares metadata pointer with the input")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	p := mustPipeline(t)

	snap := balancedSnapshot()
	first := p.Run(snap)
	second := p.Run(snap)
	rerun := p.Run(first) // running over already-normalized data

	a, _ := json.Marshal(first.Validation)
	b, _ := json.Marshal(second.Validation)
	c, _ := json.Marshal(rerun.Validation)

	if string(a) != string(b) {
		t.Errorf("two runs over the same input differ:\n%s\n%s", a, b)
	}
	if string(a) != string(c) {
		t.Errorf("re-running over normalized output changed the verdict:\n%s\n%s", a, c)
	}
}

func TestApplyEditTriggersFullRerun(t *testing.T) {
	p := mustPipeline(t)

	start := p.Run(balancedSnapshot())
	if start.Validation.Status != models.StatusPass {
		t.Fatalf("precondition failed: %v", start.Validation.Flags)
	}

	// Raising the debit breaks the aggregate identity.
	broken, err := p.ApplyEdit(start, "r1", models.EditFieldDebit, strPtr("400.00"))
	if err != nil {
		t.Fatalf("ApplyEdit failed: %v", err)
	}

	if broken.Validation.Status != models.StatusBlock {
		t.Errorf("Status after breaking edit = %s, want BLOCK", broken.Validation.Status)
	}
	if !broken.Transactions[0].IsEdited() {
		t.Error("edited transaction lost its edit record")
	}

	// Restoring the value must fully clear the flag on re-run.
	fixed, err := p.ApplyEdit(broken, "r1", models.EditFieldDebit, strPtr("250.00"))
	if err != nil {
		t.Fatalf("restoring edit failed: %v", err)
	}
	if fixed.Validation.Status != models.StatusPass {
		t.Errorf("Status after restoring edit = %s, want PASS; flags: %v", fixed.Validation.Status, fixed.Validation.Flags)
	}

	orig, ok := fixed.Transactions[0].OriginalValue(models.EditFieldDebit)
	if !ok || orig == nil || *orig != "250.00" {
		t.Errorf("OriginalValue = %v, want the pre-first-edit 250.00", orig)
	}
}

func TestApplyEditLeavesOtherRowsUntouched(t *testing.T) {
	p := mustPipeline(t)

	start := p.Run(balancedSnapshot())
	next, err := p.ApplyEdit(start, "r1", models.EditFieldDescription, strPtr("HARDWARE STORE #44"))
	if err != nil {
		t.Fatalf("ApplyEdit failed: %v", err)
	}

	if next.Transactions[1].IsEdited() {
		t.Error("edit of r1 marked r2 as edited")
	}
	if *next.Transactions[1].Description != "REFUND" {
		t.Error("edit of r1 altered r2")
	}
}

func TestApplyEditUnknownRow(t *testing.T) {
	p := mustPipeline(t)

	_, err := p.ApplyEdit(p.Run(balancedSnapshot()), "missing", models.EditFieldDebit, strPtr("1.00"))
	if err == nil {
		t.Fatal("ApplyEdit accepted an unknown row id")
	}

	reviewErr, ok := errors.AsReviewError(err)
	if !ok || reviewErr.Code != errors.CodeUnknownRow {
		t.Errorf("error = %v, want unknown_row", err)
	}
}

func TestExportGatingFollowsVerdict(t *testing.T) {
	p := mustPipeline(t)

	passing := p.Run(balancedSnapshot())

	csvOut, err := p.ExportCSV(passing)
	if err != nil {
		t.Fatalf("ExportCSV on a passing snapshot failed: %v", err)
	}
	if !strings.Contains(csvOut, "HARDWARE STORE") {
		t.Error("CSV output missing transaction data")
	}

	ofxOut, err := p.ExportOFX(passing)
	if err != nil {
		t.Fatalf("ExportOFX on a passing snapshot failed: %v", err)
	}
	if !strings.Contains(ofxOut, "OFXHEADER:100") {
		t.Error("OFX output missing header")
	}

	// A fresh edit that breaks the identity must block both exports.
	blocked, err := p.ApplyEdit(passing, "r2", models.EditFieldCredit, strPtr("999.00"))
	if err != nil {
		t.Fatalf("ApplyEdit failed: %v", err)
	}

	if _, err := p.ExportCSV(blocked); err == nil {
		t.Error("ExportCSV ran on a blocked snapshot")
	}
	if _, err := p.ExportOFX(blocked); err == nil {
		t.Error("ExportOFX ran on a blocked snapshot")
	}
}

func TestUnvalidatedSnapshotIsNotReady(t *testing.T) {
	snap := balancedSnapshot()
	if snap.IsReady() {
		t.Error("snapshot without a validation run reports ready")
	}

	p := mustPipeline(t)
	if _, err := p.ExportCSV(snap); err == nil {
		t.Error("ExportCSV ran without a fresh verdict")
	}
}

func TestRunCollectsNormalizerAndReconcilerFlags(t *testing.T) {
	p := mustPipeline(t)

	snap := balancedSnapshot()
	snap.Transactions[0].PostedDate = strPtr("not-a-date")          // normalizer error
	snap.Metadata.ClosingBalance = decimal.NewFromFloat(9999.00)    // reconciler error
	snap.Transactions[1].PostedDate = strPtr("2024-03-01")          // containment warning

	result := p.Run(snap)

	if result.Validation.Status != models.StatusBlock {
		t.Errorf("Status = %s, want BLOCK", result.Validation.Status)
	}

	var haveDateError, haveBalanceError, haveContainmentWarning bool
	for _, flag := range result.Validation.Flags {
		switch {
		case flag.RowID == "r1" && flag.Severity == models.SeverityError:
			haveDateError = true
		case flag.IsStatementLevel() && flag.Severity == models.SeverityError:
			haveBalanceError = true
		case flag.RowID == "r2" && flag.Severity == models.SeverityWarning:
			haveContainmentWarning = true
		}
	}
	if !haveDateError || !haveBalanceError || !haveContainmentWarning {
		t.Errorf("flags = %+v, want normalizer error, balance error and containment warning together", result.Validation.Flags)
	}
	if result.Validation.FlaggedRowsCount != 2 {
		t.Errorf("FlaggedRowsCount = %d, want 2", result.Validation.FlaggedRowsCount)
	}
}
