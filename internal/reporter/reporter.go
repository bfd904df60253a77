// Package reporter renders review results for human and programmatic
// consumption.
//
// Supported output formats:
//   - Console: human-readable summary and flag listing for terminal display
//   - JSON: structured data format for programmatic consumption
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"statement-review-service/internal/models"
	"statement-review-service/internal/pipeline"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeTransactions bool `json:"include_transactions"`
	IncludeEditHistory  bool `json:"include_edit_history"`

	// Console formatting options
	MaxFlagsShown int `json:"max_flags_shown"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeTransactions: false,
		IncludeEditHistory:  false,
		MaxFlagsShown:       50,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxFlagsShown < 1 {
		return fmt.Errorf("max flags shown must be at least 1, got %d", c.MaxFlagsShown)
	}
	return nil
}

// ReportGenerator generates review reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders a reviewed snapshot to the provided writer
func (rg *ReportGenerator) GenerateReport(snapshot *pipeline.Snapshot, writer io.Writer) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snapshot.Validation == nil {
		return fmt.Errorf("snapshot has no validation result; run the pipeline first")
	}

	switch rg.config.Format {
	case FormatJSON:
		return rg.generateJSON(snapshot, writer)
	default:
		return rg.generateConsole(snapshot, writer)
	}
}

// jsonReport is the stable shape of the JSON report
type jsonReport struct {
	Institution       string                   `json:"institution"`
	AccountLastFour   string                   `json:"accountLastFour"`
	Period            string                   `json:"period"`
	Status            models.Status            `json:"status"`
	IsReconciled      bool                     `json:"isReconciled"`
	TotalTransactions int                      `json:"totalTransactions"`
	FlaggedRowsCount  int                      `json:"flaggedRowsCount"`
	Flags             []models.ValidationFlag `json:"flags"`
	Transactions      []*models.Transaction   `json:"transactions,omitempty"`
}

func (rg *ReportGenerator) generateJSON(snapshot *pipeline.Snapshot, writer io.Writer) error {
	report := jsonReport{
		Institution:       snapshot.Metadata.Institution,
		AccountLastFour:   snapshot.Metadata.AccountLastFour,
		Period:            snapshot.Metadata.PeriodStart + ".." + snapshot.Metadata.PeriodEnd,
		Status:            snapshot.Validation.Status,
		IsReconciled:      snapshot.Validation.IsReconciled,
		TotalTransactions: snapshot.Validation.TotalTransactions,
		FlaggedRowsCount:  snapshot.Validation.FlaggedRowsCount,
		Flags:             snapshot.Validation.Flags,
	}

	if rg.config.IncludeTransactions {
		report.Transactions = snapshot.Transactions
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (rg *ReportGenerator) generateConsole(snapshot *pipeline.Snapshot, writer io.Writer) error {
	var b strings.Builder
	meta := snapshot.Metadata
	result := snapshot.Validation

	b.WriteString("Statement Review\n")
	b.WriteString("================\n")
	fmt.Fprintf(&b, "Institution:   %s\n", orDash(meta.Institution))
	fmt.Fprintf(&b, "Account:       %s (ending %s)\n", orDash(meta.AccountName), orDash(meta.AccountLastFour))
	fmt.Fprintf(&b, "Period:        %s to %s\n", orDash(meta.PeriodStart), orDash(meta.PeriodEnd))
	fmt.Fprintf(&b, "Opening:       %s\n", meta.OpeningBalance.StringFixed(2))
	fmt.Fprintf(&b, "Closing:       %s\n", meta.ClosingBalance.StringFixed(2))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Verdict:       %s\n", result.Status)
	fmt.Fprintf(&b, "Transactions:  %d\n", result.TotalTransactions)
	fmt.Fprintf(&b, "Flagged rows:  %d\n", result.FlaggedRowsCount)
	b.WriteString("\n")

	if len(result.Flags) == 0 {
		b.WriteString("No findings. The statement reconciles and is ready for export.\n")
	} else {
		rg.writeFlags(&b, result.Flags)
	}

	if rg.config.IncludeEditHistory {
		rg.writeEditHistory(&b, snapshot.Transactions)
	}

	_, err := io.WriteString(writer, b.String())
	return err
}

func (rg *ReportGenerator) writeFlags(b *strings.Builder, flags []models.ValidationFlag) {
	errorCount := 0
	for _, flag := range flags {
		if flag.Severity == models.SeverityError {
			errorCount++
		}
	}
	fmt.Fprintf(b, "Findings (%d, of which %d blocking):\n", len(flags), errorCount)

	shown := flags
	if len(shown) > rg.config.MaxFlagsShown {
		shown = shown[:rg.config.MaxFlagsShown]
	}

	for _, flag := range shown {
		scope := "statement"
		if !flag.IsStatementLevel() {
			scope = "row " + flag.RowID
		}
		fmt.Fprintf(b, "  [%s] %s: %s\n", strings.ToUpper(flag.Severity.String()), scope, flag.Message)
		if flag.SuggestedFix != "" {
			fmt.Fprintf(b, "          fix: %s\n", flag.SuggestedFix)
		}
	}

	if len(flags) > len(shown) {
		fmt.Fprintf(b, "  ... and %d more findings\n", len(flags)-len(shown))
	}
}

func (rg *ReportGenerator) writeEditHistory(b *strings.Builder, transactions []*models.Transaction) {
	edited := 0
	for _, tx := range transactions {
		if tx.IsEdited() {
			edited++
		}
	}
	if edited == 0 {
		return
	}

	fmt.Fprintf(b, "\nEdited rows (%d):\n", edited)
	for _, tx := range transactions {
		if !tx.IsEdited() {
			continue
		}
		for _, rec := range tx.Edits {
			fmt.Fprintf(b, "  row %s: %s %s -> %s\n",
				tx.RowID, rec.Field, renderValue(rec.OldValue), renderValue(rec.NewValue))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func renderValue(v *string) string {
	if v == nil {
		return "(none)"
	}
	return fmt.Sprintf("%q", *v)
}
