// Package export serializes a reviewed statement into its two
// downstream formats, refusing to run unless the statement's current
// verdict is PASS.
//
// The gate does not recompute the verdict: readiness is supplied by the
// caller, derived exactly as ValidationResult.Status == PASS from the
// freshly reconciled snapshot. A blocked export returns no partial
// output, only an export-category error.
package export

import (
	"statement-review-service/pkg/errors"
)

// Format identifies a supported export format
type Format string

const (
	FormatCSV Format = "csv"
	FormatOFX Format = "ofx"
)

// String returns the string representation of Format
func (f Format) String() string {
	return string(f)
}

// IsValid checks if the export format is supported
func (f Format) IsValid() bool {
	return f == FormatCSV || f == FormatOFX
}

// ParseFormat parses an export format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatOFX:
		return FormatOFX, nil
	default:
		return "", errors.ExportError(errors.CodeUnsupportedFormat, s, nil)
	}
}

// gate refuses serialization while the statement does not reconcile
func gate(format Format, isReady bool) error {
	if !isReady {
		return errors.ExportError(errors.CodeExportBlocked, format.String(), nil)
	}
	return nil
}
