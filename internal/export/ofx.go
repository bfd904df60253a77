package export

import (
	"fmt"
	"strings"

	"statement-review-service/internal/fingerprint"
	"statement-review-service/internal/models"
)

// ofxMemoLimit is the OFX-mandated cap on the memo field
const ofxMemoLimit = 255

// ofxHeader is the fixed OFX 1.x declaration block. Downstream
// accounting-software importers match these tokens literally; treat the
// block as a serialization schema, not a template.
const ofxHeader = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE
`

// OFX serializes the statement as a single-statement OFX 1.x SGML
// document: sign-on status, one bank transaction list bounded by
// DTSTART/DTEND, one STMTTRN block per row keyed by the fingerprint
// identifier, and a ledger-balance trailer carrying the *stated*
// metadata closing balance.
//
// Returns an export-blocked error and no output when isReady is false.
func OFX(metadata *models.StatementMetadata, transactions []*models.Transaction, isReady bool) (string, error) {
	if err := gate(FormatOFX, isReady); err != nil {
		return "", err
	}

	currency := metadata.Currency
	if currency == "" {
		currency = "USD"
	}

	accountType := strings.ToUpper(strings.TrimSpace(metadata.AccountType))
	if accountType == "" {
		accountType = "CHECKING"
	}

	var b strings.Builder
	b.WriteString(ofxHeader)
	b.WriteString("\n")
	b.WriteString("<OFX>\n")
	b.WriteString("<SIGNONMSGSRSV1>\n")
	b.WriteString("<SONRS>\n")
	b.WriteString("<STATUS>\n")
	b.WriteString("<CODE>0\n")
	b.WriteString("<SEVERITY>INFO\n")
	b.WriteString("</STATUS>\n")
	b.WriteString("<LANGUAGE>ENG\n")
	b.WriteString("</SONRS>\n")
	b.WriteString("</SIGNONMSGSRSV1>\n")
	b.WriteString("<BANKMSGSRSV1>\n")
	b.WriteString("<STMTTRNRS>\n")
	b.WriteString("<TRNUID>1\n")
	b.WriteString("<STATUS>\n")
	b.WriteString("<CODE>0\n")
	b.WriteString("<SEVERITY>INFO\n")
	b.WriteString("</STATUS>\n")
	b.WriteString("<STMTRS>\n")
	fmt.Fprintf(&b, "<CURDEF>%s\n", currency)
	b.WriteString("<BANKACCTFROM>\n")
	fmt.Fprintf(&b, "<ACCTID>%s\n", metadata.AccountLastFour)
	fmt.Fprintf(&b, "<ACCTTYPE>%s\n", accountType)
	b.WriteString("</BANKACCTFROM>\n")
	b.WriteString("<BANKTRANLIST>\n")
	fmt.Fprintf(&b, "<DTSTART>%s\n", ofxDate(metadata.PeriodStart))
	fmt.Fprintf(&b, "<DTEND>%s\n", ofxDate(metadata.PeriodEnd))

	for _, tx := range transactions {
		writeTransaction(&b, tx, metadata.AccountLastFour)
	}

	b.WriteString("</BANKTRANLIST>\n")
	b.WriteString("<LEDGERBAL>\n")
	fmt.Fprintf(&b, "<BALAMT>%s\n", metadata.ClosingBalance.StringFixed(2))
	fmt.Fprintf(&b, "<DTASOF>%s\n", ofxDate(metadata.PeriodEnd))
	b.WriteString("</LEDGERBAL>\n")
	b.WriteString("</STMTRS>\n")
	b.WriteString("</STMTTRNRS>\n")
	b.WriteString("</BANKMSGSRSV1>\n")
	b.WriteString("</OFX>\n")

	return b.String(), nil
}

func writeTransaction(b *strings.Builder, tx *models.Transaction, accountLastFour string) {
	trnType := "CREDIT"
	if tx.NormalizedAmount.IsNegative() {
		trnType = "DEBIT"
	}

	posted := ""
	if tx.NormalizedDate != nil {
		posted = ofxDate(*tx.NormalizedDate)
	}

	memo := ""
	if tx.Description != nil {
		memo = *tx.Description
	}
	if len(memo) > ofxMemoLimit {
		memo = memo[:ofxMemoLimit]
	}

	fitID := fingerprint.TransactionID(fingerprint.Fingerprint(tx, accountLastFour))

	b.WriteString("<STMTTRN>\n")
	fmt.Fprintf(b, "<TRNTYPE>%s\n", trnType)
	fmt.Fprintf(b, "<DTPOSTED>%s\n", posted)
	fmt.Fprintf(b, "<TRNAMT>%s\n", tx.NormalizedAmount.StringFixed(2))
	fmt.Fprintf(b, "<FITID>%s\n", fitID)
	fmt.Fprintf(b, "<MEMO>%s\n", memo)
	b.WriteString("</STMTTRN>\n")
}

// ofxDate renders a pre-formatted calendar date as the 8-digit YYYYMMDD
// form by stripping separators
func ofxDate(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	return s
}
