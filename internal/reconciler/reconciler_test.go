package reconciler

import (
	"encoding/json"
	"strings"
	"testing"

	"statement-review-service/internal/models"

	"github.com/shopspring/decimal"
)

func mustReconciler(t *testing.T) *Reconciler {
	t.Helper()
	r, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) failed: %v", err)
	}
	return r
}

func testMetadata(closing float64) *models.StatementMetadata {
	return &models.StatementMetadata{
		Institution:     "First National Bank",
		AccountLastFour: "4821",
		Currency:        "USD",
		PeriodStart:     "2024-01-01",
		PeriodEnd:       "2024-01-31",
		OpeningBalance:  decimal.NewFromFloat(5000.00),
		ClosingBalance:  decimal.NewFromFloat(closing),
	}
}

// testTransactions builds the worked example used throughout: amounts
// sum to 847.50 against a 5000.00 opening balance.
func testTransactions() []*models.Transaction {
	amounts := []float64{1500.00, -250.00, -3000.00, 2500.00, -25.00, 347.50, -225.00}
	dates := []string{"2024-01-03", "2024-01-05", "2024-01-09", "2024-01-14", "2024-01-18", "2024-01-22", "2024-01-29"}

	txs := make([]*models.Transaction, len(amounts))
	for i, amt := range amounts {
		d := dates[i]
		txs[i] = &models.Transaction{
			RowID:            string(rune('a'+i)) + "-row",
			NormalizedDate:   &d,
			NormalizedAmount: decimal.NewFromFloat(amt),
		}
	}
	return txs
}

func TestReconcileBalancedStatementPasses(t *testing.T) {
	r := mustReconciler(t)

	result := r.Reconcile(testMetadata(5847.50), testTransactions(), nil)

	if result.Status != models.StatusPass {
		t.Errorf("Status = %s, want PASS", result.Status)
	}
	if !result.IsReconciled {
		t.Error("IsReconciled = false for a balanced statement")
	}
	if len(result.Flags) != 0 {
		t.Errorf("Flags = %v, want none", result.Flags)
	}
	if result.TotalTransactions != 7 {
		t.Errorf("TotalTransactions = %d, want 7", result.TotalTransactions)
	}
}

func TestReconcileBalanceIdentityViolationBlocks(t *testing.T) {
	r := mustReconciler(t)

	result := r.Reconcile(testMetadata(6000.00), testTransactions(), nil)

	if result.Status != models.StatusBlock {
		t.Errorf("Status = %s, want BLOCK", result.Status)
	}
	if len(result.Flags) != 1 {
		t.Fatalf("Flags = %v, want exactly one statement-level error", result.Flags)
	}

	flag := result.Flags[0]
	if !flag.IsStatementLevel() {
		t.Error("balance identity flag should be statement-level")
	}
	if flag.Severity != models.SeverityError {
		t.Errorf("Severity = %s, want error", flag.Severity)
	}
	for _, fragment := range []string{"5847.50", "6000.00", "-152.50"} {
		if !strings.Contains(flag.Message, fragment) {
			t.Errorf("Message %q missing %q (computed, stated and difference must all appear)", flag.Message, fragment)
		}
	}
}

func TestReconcileToleranceBoundary(t *testing.T) {
	r := mustReconciler(t)

	// 0.01 off is within tolerance, 0.02 is not.
	if result := r.Reconcile(testMetadata(5847.51), testTransactions(), nil); result.Status != models.StatusPass {
		t.Errorf("0.01 difference: Status = %s, want PASS", result.Status)
	}
	if result := r.Reconcile(testMetadata(5847.52), testTransactions(), nil); result.Status != models.StatusBlock {
		t.Errorf("0.02 difference: Status = %s, want BLOCK", result.Status)
	}
}

func TestReconcileRunningBalanceDrift(t *testing.T) {
	r := mustReconciler(t)

	txs := testTransactions()
	good := decimal.NewFromFloat(6500.00) // 5000 + 1500
	bad := decimal.NewFromFloat(6100.00)  // expected 6250 after -250
	txs[0].NormalizedBalance = &good
	txs[1].NormalizedBalance = &bad

	result := r.Reconcile(testMetadata(5847.50), txs, nil)

	// Drift alone must not block export.
	if result.Status != models.StatusPass {
		t.Errorf("Status = %s, want PASS (drift is advisory)", result.Status)
	}
	if len(result.Flags) != 1 {
		t.Fatalf("Flags = %v, want one drift warning", result.Flags)
	}
	flag := result.Flags[0]
	if flag.RowID != txs[1].RowID || flag.Severity != models.SeverityWarning {
		t.Errorf("flag = %+v, want warning on %s", flag, txs[1].RowID)
	}
	if !strings.Contains(flag.Message, "6250.00") {
		t.Errorf("Message %q should carry the expected balance", flag.Message)
	}
}

func TestReconcileRowsWithoutBalancesAreSkipped(t *testing.T) {
	r := mustReconciler(t)

	txs := testTransactions() // no NormalizedBalance on any row
	result := r.Reconcile(testMetadata(5847.50), txs, nil)

	if len(result.Flags) != 0 {
		t.Errorf("rows without balances produced flags: %v", result.Flags)
	}
}

func TestReconcileDateContainment(t *testing.T) {
	r := mustReconciler(t)

	txs := testTransactions()
	outside := "2024-02-05"
	txs[3].NormalizedDate = &outside
	txs[4].NormalizedDate = nil // already flagged by the normalizer, not here

	result := r.Reconcile(testMetadata(5847.50), txs, nil)

	if result.Status != models.StatusPass {
		t.Errorf("Status = %s, want PASS (out-of-period date is advisory)", result.Status)
	}
	if len(result.Flags) != 1 {
		t.Fatalf("Flags = %v, want exactly one containment warning", result.Flags)
	}
	flag := result.Flags[0]
	if flag.RowID != txs[3].RowID || flag.Severity != models.SeverityWarning {
		t.Errorf("flag = %+v, want warning on %s", flag, txs[3].RowID)
	}
}

func TestReconcilePeriodBoundariesInclusive(t *testing.T) {
	r := mustReconciler(t)

	txs := testTransactions()
	first := "2024-01-01"
	last := "2024-01-31"
	txs[0].NormalizedDate = &first
	txs[6].NormalizedDate = &last

	result := r.Reconcile(testMetadata(5847.50), txs, nil)
	if len(result.Flags) != 0 {
		t.Errorf("boundary dates flagged: %v", result.Flags)
	}
}

func TestReconcileMergesPriorFlags(t *testing.T) {
	r := mustReconciler(t)

	prior := []models.ValidationFlag{{
		RowID:    "x-row",
		Severity: models.SeverityError,
		Field:    "postedDate",
		Message:  "invalid date \"??\"",
	}}

	result := r.Reconcile(testMetadata(5847.50), testTransactions(), prior)

	// A normalizer error must block even when the arithmetic is fine.
	if result.Status != models.StatusBlock {
		t.Errorf("Status = %s, want BLOCK from prior normalizer error", result.Status)
	}
	if len(result.Flags) != 1 || result.Flags[0].RowID != "x-row" {
		t.Errorf("Flags = %v, want the prior flag preserved", result.Flags)
	}
	if result.FlaggedRowsCount != 1 {
		t.Errorf("FlaggedRowsCount = %d, want 1", result.FlaggedRowsCount)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	r := mustReconciler(t)

	meta := testMetadata(6000.00)
	txs := testTransactions()
	drift := decimal.NewFromFloat(9999.99)
	txs[2].NormalizedBalance = &drift
	feb := "2024-02-05"
	txs[5].NormalizedDate = &feb
	prior := []models.ValidationFlag{{RowID: "p-row", Severity: models.SeverityWarning, Message: "unparsable credit amount \"x\" was treated as absent"}}

	first := r.Reconcile(meta, txs, prior)
	second := r.Reconcile(meta, txs, prior)

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("reconcile is not byte-identical across runs:\n%s\n%s", a, b)
	}
}

func TestReconcileUnparsablePeriod(t *testing.T) {
	r := mustReconciler(t)

	meta := testMetadata(5847.50)
	meta.PeriodEnd = "January 2024"

	result := r.Reconcile(meta, testTransactions(), nil)

	if result.Status != models.StatusPass {
		t.Errorf("Status = %s, want PASS (missing period is advisory)", result.Status)
	}
	found := false
	for _, flag := range result.Flags {
		if flag.IsStatementLevel() && strings.Contains(flag.Message, "period") {
			found = true
		}
	}
	if !found {
		t.Errorf("Flags = %v, want a statement-level period warning", result.Flags)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := &Config{Tolerance: decimal.NewFromFloat(-0.01)}
	if err := bad.Validate(); err == nil {
		t.Error("negative tolerance passed validation")
	}
	if _, err := New(bad); err == nil {
		t.Error("New accepted a negative tolerance")
	}
}
