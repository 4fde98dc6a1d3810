package dto

import (
	"time"

	"github.com/harborlaw/immigration-crm-api/internal/models"
)

// CreateDocumentRequest registers an uploaded file against a case. The file
// body travels as multipart form data alongside this metadata.
type CreateDocumentRequest struct {
	CaseID       string              `form:"caseId" json:"case_id" validate:"required"`
	DocumentType models.DocumentType `form:"documentType" json:"document_type" validate:"required"`
	Category     string              `form:"category" json:"category,omitempty"`
	DueDate      *time.Time          `form:"dueDate" json:"due_date,omitempty" time_format:"2006-01-02"`
}

// ReviewDocumentRequest records an approve/reject decision. A rejection
// must carry a reason.
type ReviewDocumentRequest struct {
	Status models.DocumentStatus `json:"status" validate:"required"`
	Reason string                `json:"reason,omitempty"`
}

// AddDocumentCommentRequest appends to the comment thread.
type AddDocumentCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// DocumentDownload is the signed portal link for fetching a file.
type DocumentDownload struct {
	DocumentID string    `json:"document_id"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}
