package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestReviewErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ReviewError
		expected string
	}{
		{
			name:     "message only",
			err:      New(CategoryExport, CodeExportBlocked, "export refused"),
			expected: "export refused",
		},
		{
			name: "message with suggestion",
			err: New(CategoryEdit, CodeUnknownRow, "no such row").
				WithSuggestion("check the row id"),
			expected: "no such row (suggestion: check the row id)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryEdit, 5},
		{CategoryInternal, 5},
		{CategoryExport, 6},
		{ErrorCategory("other"), 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := New(tt.category, CodeUnexpectedError, "test")
			if got := err.GetExitCode(); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if got := Wrap(nil, CategoryFile, CodeFileNotFound, "msg"); got != nil {
		t.Errorf("Wrap(nil) = %v, want nil", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := Wrap(cause, CategoryParse, CodeInvalidFormat, "parse failed")

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestAsReviewError(t *testing.T) {
	base := ExportError(CodeExportBlocked, "csv", nil)
	wrapped := fmt.Errorf("command failed: %w", base)

	got, ok := AsReviewError(wrapped)
	if !ok {
		t.Fatal("AsReviewError() did not find ReviewError in chain")
	}
	if got.Code != CodeExportBlocked {
		t.Errorf("Code = %s, want %s", got.Code, CodeExportBlocked)
	}
}

func TestEditErrorContext(t *testing.T) {
	err := EditError(CodeUneditableField, "row-7", "runningBalance", nil)

	if err.Context["row_id"] != "row-7" {
		t.Errorf("Context[row_id] = %v, want row-7", err.Context["row_id"])
	}
	if err.Context["field"] != "runningBalance" {
		t.Errorf("Context[field] = %v, want runningBalance", err.Context["field"])
	}
	if !strings.Contains(err.Error(), "not editable") {
		t.Errorf("Error() = %q, expected mention of editability", err.Error())
	}
}

func TestExportBlockedMessageIsStable(t *testing.T) {
	a := ExportError(CodeExportBlocked, "ofx", nil)
	b := ExportError(CodeExportBlocked, "ofx", nil)

	if a.Error() != b.Error() {
		t.Errorf("blocked export message differs between calls: %q vs %q", a.Error(), b.Error())
	}
}

func TestWrapIfNeeded(t *testing.T) {
	original := FileError(CodeFileNotFound, "statement.json", nil)

	rewrapped := WrapIfNeeded(original, CategoryInternal, CodeUnexpectedError, "should not replace")
	if rewrapped != original {
		t.Error("WrapIfNeeded replaced an existing ReviewError")
	}

	plain := fmt.Errorf("plain error")
	wrapped := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "wrapped")
	if wrapped.Category != CategoryInternal {
		t.Errorf("Category = %s, want %s", wrapped.Category, CategoryInternal)
	}
}

func TestJoinMessages(t *testing.T) {
	msgs := []string{"one", "two", "three"}

	if got := JoinMessages(msgs, 0); got != "one; two; three" {
		t.Errorf("JoinMessages(max=0) = %q", got)
	}
	if got := JoinMessages(msgs, 2); got != "one; two; and 1 more" {
		t.Errorf("JoinMessages(max=2) = %q", got)
	}
	if got := JoinMessages(nil, 3); got != "" {
		t.Errorf("JoinMessages(nil) = %q, want empty", got)
	}
}
