package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"statement-review-service/cmd/statement/config"
	"statement-review-service/internal/ingest"
	"statement-review-service/internal/models"
	"statement-review-service/internal/pipeline"
	"statement-review-service/internal/reporter"
	"statement-review-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the review command
var (
	inputFile        string
	edits            []string
	outputFormat     string
	outputFile       string
	amountTolerance  float64
	dateFormats      []string
	showTransactions bool
	showEdits        bool
)

// editSpec is one parsed --edit flag value
type editSpec struct {
	RowID string
	Field models.EditField
	Value *string
}

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Normalize and reconcile an extracted statement",
	Long: `Review normalizes the raw rows of an extracted statement, reconciles
them against the statement's stated opening and closing balances, and
reports a PASS or BLOCK verdict with every finding.

Manual corrections are applied with repeated --edit flags. Each edit
targets one field of one row and triggers a full re-run of normalization
and reconciliation, so the verdict always reflects the corrected data.

Examples:
  # Review a statement and print the verdict
  statement review --input statement.json

  # Fix a misread description and a misread debit, then re-review
  statement review --input statement.json \
    --edit "row-7=description=ACME CORP" \
    --edit "row-7=debit=1,500.00"

  # Clear a field by giving it an empty value
  statement review --input statement.json --edit "row-3=credit="

  # Machine-readable verdict with the full row set
  statement review --input statement.json --output-format json --show-transactions`,

	PreRunE: validateReviewFlags,
	RunE:    runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	// Required flags
	reviewCmd.Flags().StringVarP(&inputFile, "input", "i", "", "path to extracted statement JSON file (required)")

	// Edit flags
	reviewCmd.Flags().StringArrayVarP(&edits, "edit", "e", []string{}, "correction in rowID=field=value form (repeatable)")

	// Output flags
	reviewCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json")
	reviewCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reviewCmd.Flags().BoolVar(&showTransactions, "show-transactions", false, "include normalized rows in JSON output")
	reviewCmd.Flags().BoolVar(&showEdits, "show-edits", false, "include the edit history in console output")

	// Reconciliation configuration flags
	reviewCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", 0.01, "balance comparison tolerance in currency units")
	reviewCmd.Flags().StringSliceVar(&dateFormats, "date-format", []string{}, "additional posted date layouts to accept")

	// Mark required flags
	reviewCmd.MarkFlagRequired("input")

	// Bind flags to viper
	viper.BindPFlag("input", reviewCmd.Flags().Lookup("input"))
	viper.BindPFlag("output-format", reviewCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reviewCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("amount-tolerance", reviewCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("show-transactions", reviewCmd.Flags().Lookup("show-transactions"))
	viper.BindPFlag("show-edits", reviewCmd.Flags().Lookup("show-edits"))
}

func validateReviewFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	if viper.GetString("input") != "" {
		inputFile = viper.GetString("input")
	}
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	amountTolerance = viper.GetFloat64("amount-tolerance")
	showTransactions = viper.GetBool("show-transactions")
	showEdits = viper.GetBool("show-edits")

	// Validate required flags
	if inputFile == "" {
		return fmt.Errorf("input is required")
	}

	if err := validateFileExists(inputFile, "statement file"); err != nil {
		return err
	}

	// Validate output format
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", outputFormat)
	}

	// Validate tolerance
	if amountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}

	// Validate edit specs up front so a malformed flag fails before any work
	if _, err := parseEditSpecs(edits); err != nil {
		return err
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

// parseEditSpecs parses rowID=field=value flag values. The value part may
// itself contain '=' characters; only the first two separators split.
func parseEditSpecs(specs []string) ([]editSpec, error) {
	parsed := make([]editSpec, 0, len(specs))

	for _, spec := range specs {
		parts := strings.SplitN(spec, "=", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid edit '%s'. Expected rowID=field=value", spec)
		}

		rowID := strings.TrimSpace(parts[0])
		if rowID == "" {
			return nil, fmt.Errorf("invalid edit '%s': row ID cannot be empty", spec)
		}

		field, err := models.ParseEditField(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid edit '%s': %w", spec, err)
		}

		value := parts[2]
		parsed = append(parsed, editSpec{RowID: rowID, Field: field, Value: &value})
	}

	return parsed, nil
}

func runReview(cmd *cobra.Command, args []string) error {
	setupLogging()

	snapshot, err := reviewStatement(inputFile, edits)
	if err != nil {
		handler := NewCLIErrorHandler()
		os.Exit(handler.HandleError(err))
	}

	reportConfig := config.CreateReportConfig(outputFormat, showTransactions, showEdits)
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	// Determine output destination
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(snapshot, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReview completed: %s with %d findings across %d rows.\n",
			snapshot.Validation.Status, len(snapshot.Validation.Flags), snapshot.Validation.FlaggedRowsCount)
	}

	return nil
}

// reviewStatement loads a statement, runs the full review pass, and replays
// any corrections in order. Each correction re-runs the whole pass.
func reviewStatement(path string, editFlags []string) (*pipeline.Snapshot, error) {
	specs, err := parseEditSpecs(editFlags)
	if err != nil {
		return nil, err
	}

	snapshot, err := ingest.LoadStatement(path)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(
		config.CreateNormalizerConfig(dateFormats),
		config.CreateReconcilerConfig(amountTolerance),
	)
	if err != nil {
		return nil, err
	}

	snapshot = p.Run(snapshot)

	for _, spec := range specs {
		snapshot, err = p.ApplyEdit(snapshot, spec.RowID, spec.Field, spec.Value)
		if err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

func setupLogging() {
	log, err := logger.NewLogger(config.CreateLoggerConfig(viper.GetBool("verbose")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to configure logging: %v\n", err)
		return
	}
	logger.SetGlobalLogger(log)
}
