package sequence

import (
	"fmt"
	"time"
)

// Identifier formatting is a pure layer over Next; it carries none of the
// concurrency contract.

// FormatFileNumber renders a patient file number, e.g. P-20260118-00001.
func FormatFileNumber(issuedAt time.Time, value int64) string {
	return fmt.Sprintf("P-%s-%05d", issuedAt.Format("20060102"), value)
}

// FormatInvoiceNumber renders an invoice number, e.g. INV-202601-00001.
func FormatInvoiceNumber(issuedAt time.Time, value int64) string {
	return fmt.Sprintf("INV-%s-%05d", issuedAt.Format("200601"), value)
}
