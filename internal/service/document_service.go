package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/notify"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	Review(ctx context.Context, id string, status models.DocumentStatus, reason *string, reviewerID string, ts time.Time) (int64, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	AddComment(ctx context.Context, comment *models.DocumentComment) error
	ListComments(ctx context.Context, documentID string) ([]models.DocumentComment, error)
}

type caseReader interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
}

type fileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type urlSigner interface {
	Generate(recordID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (recordID, relPath string, expiresAt time.Time, err error)
}

// DocumentConfig bounds uploads.
type DocumentConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// DocumentService handles uploads, the single-shot review decision and the
// signed portal links clients use to fetch their files.
type DocumentService struct {
	documents  documentStore
	cases      caseReader
	storage    fileStorage
	signer     urlSigner
	activities activityRecorder
	notifier   notifier
	cfg        DocumentConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewDocumentService constructs DocumentService.
func NewDocumentService(documents documentStore, cases caseReader, storage fileStorage, signer urlSigner, activities activityRecorder, notifier notifier, cfg DocumentConfig, validate *validator.Validate, logger *zap.Logger) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		documents:  documents,
		cases:      cases,
		storage:    storage,
		signer:     signer,
		activities: activities,
		notifier:   notifier,
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
	}
}

// Upload stores the file body and registers the document in PENDING status.
func (s *DocumentService) Upload(ctx context.Context, req dto.CreateDocumentRequest, fileName, mimeType string, size int64, body io.Reader, uploaderID string) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	if s.cfg.MaxFileSizeBytes > 0 && size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
	}
	if len(s.cfg.AllowedMIMEs) > 0 && !s.mimeAllowed(mimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type is not accepted")
	}

	c, err := s.cases.GetByID(ctx, req.CaseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	if c.Status.IsTerminal() {
		return nil, appErrors.ErrTerminalState
	}

	docID := uuid.NewString()
	storagePath := filepath.ToSlash(filepath.Join("cases", c.ID, docID+"-"+filepath.Base(fileName)))
	if _, err := s.storage.SaveStream(storagePath, body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	doc := &models.Document{
		ID:           docID,
		CaseID:       c.ID,
		FileName:     fileName,
		StoragePath:  storagePath,
		DocumentType: req.DocumentType,
		Category:     req.Category,
		Status:       models.DocumentStatusPending,
		SizeBytes:    size,
		MIMEType:     mimeType,
		DueDate:      req.DueDate,
		UploadedBy:   uploaderID,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		if cleanupErr := s.storage.Delete(storagePath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", storagePath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register document")
	}

	s.recordActivity(ctx, doc.ID, models.ActivityCreated, uploaderID,
		fmt.Sprintf("document %s uploaded to case %s", doc.FileName, c.CaseNumber))
	return doc, nil
}

// Get returns a document by identifier.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

// List returns documents matching the filter.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	docs, err := s.documents.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Review applies the approve/reject decision. The decision is final; a second
// review of the same document conflicts. Rejections must carry a reason and
// notify the client.
func (s *DocumentService) Review(ctx context.Context, id string, req dto.ReviewDocumentRequest, reviewerID string) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if !req.Status.IsDecided() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "review status must be APPROVED or REJECTED")
	}
	if req.Status == models.DocumentStatusRejected && strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection requires a reason")
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status.IsDecided() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "document has already been reviewed")
	}

	var reason *string
	if req.Status == models.DocumentStatusRejected {
		reason = &req.Reason
	}
	now := time.Now().UTC()
	affected, err := s.documents.Review(ctx, doc.ID, req.Status, reason, reviewerID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review document")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "document was reviewed concurrently")
	}

	doc.Status = req.Status
	doc.RejectionReason = reason
	doc.ReviewedBy = &reviewerID
	doc.ReviewedAt = &now

	s.recordActivity(ctx, doc.ID, models.ActivityDocumentReview, reviewerID,
		fmt.Sprintf("document %s %s", doc.FileName, strings.ToLower(string(req.Status))))
	s.notifyReviewOutcome(ctx, doc)
	return doc, nil
}

// SignedDownload issues a time-limited portal link for a document.
func (s *DocumentService) SignedDownload(ctx context.Context, id string) (*dto.DocumentDownload, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, doc.StoragePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &dto.DocumentDownload{
		DocumentID: doc.ID,
		URL:        "/api/v1/portal/documents/" + token,
		ExpiresAt:  expiresAt,
	}, nil
}

// OpenSigned validates a portal token and opens the underlying file.
func (s *DocumentService) OpenSigned(ctx context.Context, token string) (*models.Document, *os.File, error) {
	recordID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	doc, err := s.Get(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	if doc.StoragePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link does not match document")
	}
	file, err := s.storage.Open(doc.StoragePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return doc, file, nil
}

// AddComment appends to a document's comment thread.
func (s *DocumentService) AddComment(ctx context.Context, documentID string, req dto.AddDocumentCommentRequest, authorID string) (*models.DocumentComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	comment := &models.DocumentComment{
		DocumentID: doc.ID,
		AuthorID:   authorID,
		Content:    req.Content,
	}
	if err := s.documents.AddComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add comment")
	}
	return comment, nil
}

// ListComments returns the ordered comment thread.
func (s *DocumentService) ListComments(ctx context.Context, documentID string) ([]models.DocumentComment, error) {
	if _, err := s.Get(ctx, documentID); err != nil {
		return nil, err
	}
	comments, err := s.documents.ListComments(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

func (s *DocumentService) mimeAllowed(mimeType string) bool {
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(allowed, mimeType) {
			return true
		}
	}
	return false
}

func (s *DocumentService) recordActivity(ctx context.Context, documentID, activityType, actorID, description string) {
	activity := &models.Activity{
		EntityType:  models.EntityDocument,
		EntityID:    documentID,
		Type:        activityType,
		Description: description,
	}
	if actorID != "" {
		activity.ActorID = &actorID
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record document activity", zap.String("document_id", documentID), zap.Error(err))
	}
}

func (s *DocumentService) notifyReviewOutcome(ctx context.Context, doc *models.Document) {
	if s.notifier == nil {
		return
	}
	c, err := s.cases.GetByID(ctx, doc.CaseID)
	if err != nil {
		s.logger.Warn("review notification skipped, case lookup failed",
			zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	subject := fmt.Sprintf("Document update for case %s", c.CaseNumber)
	body := fmt.Sprintf("Dear %s, your document %s has been approved.", c.ClientName, doc.FileName)
	if doc.Status == models.DocumentStatusRejected {
		reason := ""
		if doc.RejectionReason != nil {
			reason = *doc.RejectionReason
		}
		body = fmt.Sprintf("Dear %s, your document %s was rejected: %s. Please upload a corrected version.", c.ClientName, doc.FileName, reason)
	}
	if c.ClientEmail != "" {
		if _, err := s.notifier.Dispatch(ctx, notify.ChannelEmail, c.ClientName, c.ClientEmail, subject, body, &c.CaseNumber); err != nil {
			s.logger.Warn("review email dispatch failed", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	if c.SMSEnabled && c.ClientPhone != "" {
		if _, err := s.notifier.Dispatch(ctx, notify.ChannelSMS, c.ClientName, c.ClientPhone, "", body, &c.CaseNumber); err != nil {
			s.logger.Warn("review sms dispatch failed", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
}
