// Package ingest decodes the extraction collaborator's output document
// into pipeline snapshots.
//
// The input contract is deliberately weak: only raw string fields, any
// of which may be null, with no normalization guarantees. The one hard
// requirement added here is row identity: every transaction leaves
// ingestion with a unique, immutable rowId, minted when the extractor
// did not supply one. The statement-level opening and closing balances
// must parse, because the reconciler's aggregate identity is meaningless
// without them.
package ingest

import (
	"encoding/json"
	"io"
	"os"

	"statement-review-service/internal/models"
	"statement-review-service/internal/pipeline"
	"statement-review-service/pkg/errors"

	"github.com/google/uuid"
)

// statementDocument mirrors the extraction output JSON
type statementDocument struct {
	Metadata     *metadataDocument `json:"metadata"`
	Transactions []rowDocument     `json:"transactions"`
}

type metadataDocument struct {
	Institution     string  `json:"institution"`
	AccountName     string  `json:"accountName"`
	AccountLastFour string  `json:"accountLastFour"`
	AccountType     string  `json:"accountType"`
	Currency        string  `json:"currency"`
	PeriodStart     string  `json:"periodStart"`
	PeriodEnd       string  `json:"periodEnd"`
	OpeningBalance  string  `json:"openingBalance"`
	ClosingBalance  string  `json:"closingBalance"`
	TotalDebits     *string `json:"totalDebits"`
	TotalCredits    *string `json:"totalCredits"`
}

type rowDocument struct {
	RowID          string  `json:"rowId"`
	PostedDate     *string `json:"postedDate"`
	Description    *string `json:"description"`
	Debit          *string `json:"debit"`
	Credit         *string `json:"credit"`
	RunningBalance *string `json:"runningBalance"`
}

// LoadStatement reads and decodes an extracted statement file
func LoadStatement(path string) (*pipeline.Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer file.Close()

	return ParseStatement(file, path)
}

// ParseStatement decodes an extracted statement document from a reader.
// source names the origin for error messages.
func ParseStatement(r io.Reader, source string) (*pipeline.Snapshot, error) {
	var doc statementDocument
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, source, err.Error(), err)
	}

	if doc.Metadata == nil {
		return nil, errors.ParseError(errors.CodeMissingField, source, "metadata", nil)
	}

	metadata, err := buildMetadata(doc.Metadata, source)
	if err != nil {
		return nil, err
	}

	transactions := make([]*models.Transaction, 0, len(doc.Transactions))
	for _, row := range doc.Transactions {
		rowID := row.RowID
		if rowID == "" {
			rowID = uuid.NewString()
		}

		transactions = append(transactions, &models.Transaction{
			RowID:          rowID,
			PostedDate:     row.PostedDate,
			Description:    row.Description,
			Debit:          row.Debit,
			Credit:         row.Credit,
			RunningBalance: row.RunningBalance,
		})
	}

	return &pipeline.Snapshot{
		Metadata:     metadata,
		Transactions: transactions,
	}, nil
}

func buildMetadata(doc *metadataDocument, source string) (*models.StatementMetadata, error) {
	opening, err := models.ParseDecimalFromString(doc.OpeningBalance)
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, source,
			"opening balance "+doc.OpeningBalance+" is not a monetary amount", err)
	}

	closing, err := models.ParseDecimalFromString(doc.ClosingBalance)
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, source,
			"closing balance "+doc.ClosingBalance+" is not a monetary amount", err)
	}

	metadata := &models.StatementMetadata{
		Institution:       doc.Institution,
		AccountName:       doc.AccountName,
		AccountLastFour:   doc.AccountLastFour,
		AccountType:       doc.AccountType,
		Currency:          doc.Currency,
		PeriodStart:       doc.PeriodStart,
		PeriodEnd:         doc.PeriodEnd,
		OpeningBalanceRaw: doc.OpeningBalance,
		ClosingBalanceRaw: doc.ClosingBalance,
		OpeningBalance:    opening,
		ClosingBalance:    closing,
	}

	// Total debits and credits are informational; a bad value is dropped
	// rather than rejected.
	if doc.TotalDebits != nil {
		if d, err := models.ParseDecimalFromString(*doc.TotalDebits); err == nil {
			metadata.TotalDebits = &d
		}
	}
	if doc.TotalCredits != nil {
		if c, err := models.ParseDecimalFromString(*doc.TotalCredits); err == nil {
			metadata.TotalCredits = &c
		}
	}

	return metadata, nil
}
