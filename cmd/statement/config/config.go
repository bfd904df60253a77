package config

import (
	"statement-review-service/internal/normalizer"
	"statement-review-service/internal/reconciler"
	"statement-review-service/internal/reporter"
	"statement-review-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// CreateNormalizerConfig creates a normalizer configuration, applying CLI
// date format overrides when provided
func CreateNormalizerConfig(dateFormats []string) *normalizer.Config {
	config := normalizer.DefaultConfig()

	if len(dateFormats) > 0 {
		config.DateFormats = dateFormats
	}

	return config
}

// CreateReconcilerConfig creates a reconciler configuration with the
// specified balance tolerance
func CreateReconcilerConfig(tolerance float64) *reconciler.Config {
	config := reconciler.DefaultConfig()

	if tolerance > 0 {
		config.Tolerance = decimal.NewFromFloat(tolerance)
	}

	return config
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, showTransactions, showEdits bool) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "json":
		config.Format = reporter.FormatJSON
	default:
		config.Format = reporter.FormatConsole
	}

	config.IncludeTransactions = showTransactions
	config.IncludeEditHistory = showEdits

	return config
}

// CreateLoggerConfig creates a logger configuration for CLI usage
func CreateLoggerConfig(verbose bool) *logger.Config {
	if verbose {
		return logger.DebugConfig()
	}

	config := logger.DefaultConfig()
	config.Level = logger.WarnLevel
	return config
}
