package model

import "fmt"

// DocumentType identifies the kind of accounting document.
type DocumentType string

const (
	DocSalesInvoice    DocumentType = "sales_invoice"
	DocPurchaseInvoice DocumentType = "purchase_invoice"
	DocCreditNote      DocumentType = "credit_note"
	DocJournalEntry    DocumentType = "journal_entry"
)

// ParseDocumentType converts a string to a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	switch t := DocumentType(s); t {
	case DocSalesInvoice, DocPurchaseInvoice, DocCreditNote, DocJournalEntry:
		return t, nil
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

// DocumentStatus represents the lifecycle state of a document.
type DocumentStatus string

const (
	StatusDraft  DocumentStatus = "draft"
	StatusIssued DocumentStatus = "issued"
	StatusPosted DocumentStatus = "posted"
	StatusPaid   DocumentStatus = "paid"
	StatusVoid   DocumentStatus = "void"
)

// ParseDocumentStatus converts a string to a DocumentStatus.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	switch st := DocumentStatus(s); st {
	case StatusDraft, StatusIssued, StatusPosted, StatusPaid, StatusVoid:
		return st, nil
	}
	return "", fmt.Errorf("unknown document status %q", s)
}
