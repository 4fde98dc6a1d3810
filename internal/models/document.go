package models

import "time"

// DocumentStatus enumerates the review decision states. The decision is
// terminal once made.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusApproved DocumentStatus = "APPROVED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// IsDecided reports whether the document review is final.
func (s DocumentStatus) IsDecided() bool {
	return s == DocumentStatusApproved || s == DocumentStatusRejected
}

// DocumentType enumerates the supported upload categories.
type DocumentType string

const (
	DocumentTypePassport       DocumentType = "PASSPORT"
	DocumentTypeVisa           DocumentType = "VISA"
	DocumentTypeBirthCert      DocumentType = "BIRTH_CERTIFICATE"
	DocumentTypeMarriageCert   DocumentType = "MARRIAGE_CERTIFICATE"
	DocumentTypeEmploymentAuth DocumentType = "EMPLOYMENT_AUTHORIZATION"
	DocumentTypeFinancial      DocumentType = "FINANCIAL_RECORD"
	DocumentTypeOther          DocumentType = "OTHER"
)

// Document is a file attached to a case.
type Document struct {
	ID              string         `db:"id" json:"id"`
	CaseID          string         `db:"case_id" json:"case_id"`
	FileName        string         `db:"file_name" json:"file_name"`
	StoragePath     string         `db:"storage_path" json:"-"`
	DocumentType    DocumentType   `db:"document_type" json:"document_type"`
	Category        string         `db:"category" json:"category"`
	Status          DocumentStatus `db:"status" json:"status"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	SizeBytes       int64          `db:"size_bytes" json:"size_bytes"`
	MIMEType        string         `db:"mime_type" json:"mime_type"`
	DueDate         *time.Time     `db:"due_date" json:"due_date,omitempty"`
	UploadedBy      string         `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt      time.Time      `db:"uploaded_at" json:"uploaded_at"`
	ReviewedBy      *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// DocumentComment is one entry in a document's ordered comment thread.
type DocumentComment struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DocumentFilter captures filtering criteria for listing documents.
type DocumentFilter struct {
	CaseID   string
	Status   []DocumentStatus
	Type     DocumentType
	Page     int
	PageSize int
}
