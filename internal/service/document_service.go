package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docuseek/docqa/internal/config"
	"github.com/docuseek/docqa/internal/filestore"
	"github.com/docuseek/docqa/internal/metrics"
	"github.com/docuseek/docqa/internal/model"
	appErr "github.com/docuseek/docqa/internal/pkg/errors"
)

// DocumentStore is the persistence surface the service needs.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, docID string) (*model.Document, error)
	List(ctx context.Context, sessionID string) ([]model.Document, error)
	ListByStatus(ctx context.Context, statuses []string) ([]model.Document, error)
	Update(ctx context.Context, docID string, update map[string]interface{}) error
	Delete(ctx context.Context, docID string) error
}

// IndexProber checks whether chunks of a document are visible in the
// search index yet. Probe failures read as "not indexed yet".
type IndexProber interface {
	ProbeIndexed(ctx context.Context, docID string) bool
}

// IndexerControl drives the external indexer.
type IndexerControl interface {
	RunIndexer(ctx context.Context) error
	IndexerStatus(ctx context.Context) (map[string]interface{}, error)
}

type UploadResult struct {
	DocumentID       string `json:"document_id"`
	Filename         string `json:"filename"`
	Size             int64  `json:"size"`
	Status           string `json:"status"`
	IndexerTriggered bool   `json:"indexer_triggered"`
}

type StatusResult struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Processed  bool   `json:"processed"`
	Message    string `json:"message"`
}

type DocumentService struct {
	docs    DocumentStore
	files   filestore.Store
	prober  IndexProber
	indexer IndexerControl
	upload  config.UploadConfig

	processingGrace time.Duration
	uploadGrace     time.Duration
	now             func() time.Time
}

func NewDocumentService(docs DocumentStore, files filestore.Store, prober IndexProber, indexer IndexerControl, upload config.UploadConfig, qa config.QAConfig) *DocumentService {
	return &DocumentService{
		docs:            docs,
		files:           files,
		prober:          prober,
		indexer:         indexer,
		upload:          upload,
		processingGrace: time.Duration(qa.ProcessingGraceSeconds) * time.Second,
		uploadGrace:     time.Duration(qa.UploadGraceSeconds) * time.Second,
		now:             time.Now,
	}
}

func (s *DocumentService) Upload(ctx context.Context, sessionID, filename string, size int64, content io.Reader) (*UploadResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename), zap.Int64("size", size))
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.extAllowed(ext) {
		return nil, fmt.Errorf("%w: file type %s not allowed", appErr.ErrInvalid, ext)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty file", appErr.ErrInvalid)
	}
	if size > s.upload.MaxFileSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", appErr.ErrInvalid, s.upload.MaxFileSize)
	}

	docID := uuid.NewString()
	key := docID + "/" + filepath.Base(filename)
	if err := s.files.Save(ctx, key, content, size); err != nil {
		return nil, fmt.Errorf("save file: %w", err)
	}
	now := s.now().UnixMilli()
	doc := &model.Document{
		ID:         docID,
		SessionID:  sessionID,
		Filename:   filepath.Base(filename),
		StorageKey: key,
		StorageURL: s.files.URL(key),
		FileSize:   size,
		FileType:   ext,
		Status:     model.StatusUploaded,
		UploadTime: now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	metrics.DocumentUploaded()

	triggered := false
	if err := s.indexer.RunIndexer(ctx); err != nil {
		logger.Warn("indexer trigger failed, document stays uploaded", zap.Error(err))
	} else {
		triggered = true
		update := map[string]interface{}{
			"status":               model.StatusProcessing,
			"indexer_triggered_at": s.now().UnixMilli(),
		}
		if err := s.docs.Update(ctx, docID, update); err != nil {
			logger.Error("mark document processing failed", zap.Error(err))
		} else {
			doc.Status = model.StatusProcessing
			metrics.StatusTransition(model.StatusProcessing)
		}
	}
	logger.Info("document uploaded", zap.String("document_id", docID), zap.Bool("indexer_triggered", triggered))
	return &UploadResult{
		DocumentID:       docID,
		Filename:         doc.Filename,
		Size:             size,
		Status:           doc.Status,
		IndexerTriggered: triggered,
	}, nil
}

func (s *DocumentService) Get(ctx context.Context, docID string) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	s.Reconcile(ctx, doc)
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, sessionID string) ([]model.Document, error) {
	docs, err := s.docs.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		s.Reconcile(ctx, &docs[i])
	}
	return docs, nil
}

func (s *DocumentService) Status(ctx context.Context, docID string) (*StatusResult, error) {
	doc, err := s.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	result := &StatusResult{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Processed:  doc.Processed,
	}
	switch {
	case doc.Status == model.StatusCompleted && doc.Processed:
		result.Message = "Document is indexed and ready"
	case doc.Status == model.StatusCompleted:
		result.Message = "Document indexed successfully"
	case doc.Status == model.StatusError:
		result.Message = doc.ErrorMessage
	default:
		result.Message = "Document is being indexed..."
	}
	return result, nil
}

func (s *DocumentService) Delete(ctx context.Context, docID string) error {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, docID); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, doc.StorageKey); err != nil {
		logutil.GetLogger(ctx).Warn("delete stored file failed",
			zap.String("document_id", docID), zap.Error(err))
	}
	return nil
}

func (s *DocumentService) TriggerIndexer(ctx context.Context) error {
	return s.indexer.RunIndexer(ctx)
}

func (s *DocumentService) IndexerStatus(ctx context.Context) (map[string]interface{}, error) {
	return s.indexer.IndexerStatus(ctx)
}

// Reconcile advances a stale document status on read and persists the
// change. Completed and error are absorbing, so those never probe the
// index again. Returns true when the document moved to completed.
func (s *DocumentService) Reconcile(ctx context.Context, doc *model.Document) bool {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", doc.ID))
	switch doc.Status {
	case model.StatusCompleted, model.StatusError:
		return false
	case model.StatusProcessing:
		if s.prober.ProbeIndexed(ctx, doc.ID) {
			s.complete(ctx, doc)
			return true
		}
		if doc.IndexerTriggeredAt == 0 {
			logger.Warn("processing document has no indexer trigger time, leaving status unchanged")
			return false
		}
		if s.since(doc.IndexerTriggeredAt) >= s.processingGrace {
			logger.Info("processing grace period elapsed, assuming indexed")
			s.complete(ctx, doc)
			return true
		}
	case model.StatusUploaded:
		if doc.UploadTime == 0 {
			logger.Warn("uploaded document has no upload time, leaving status unchanged")
			return false
		}
		if s.since(doc.UploadTime) >= s.uploadGrace {
			logger.Info("upload grace period elapsed, assuming indexed")
			s.complete(ctx, doc)
			return true
		}
	}
	return false
}

// ReconcileAll sweeps every non-terminal document. Used by the optional
// scheduled job; the read path reconciliation is the primary mechanism.
func (s *DocumentService) ReconcileAll(ctx context.Context) (int, error) {
	docs, err := s.docs.ListByStatus(ctx, []string{model.StatusUploaded, model.StatusProcessing})
	if err != nil {
		return 0, err
	}
	moved := 0
	for i := range docs {
		if s.Reconcile(ctx, &docs[i]) {
			moved++
		}
	}
	return moved, nil
}

func (s *DocumentService) complete(ctx context.Context, doc *model.Document) {
	update := map[string]interface{}{
		"status":       model.StatusCompleted,
		"processed":    true,
		"completed_at": s.now().UnixMilli(),
	}
	if err := s.docs.Update(ctx, doc.ID, update); err != nil {
		logutil.GetLogger(ctx).Error("persist completed status failed",
			zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	doc.Status = model.StatusCompleted
	doc.Processed = true
	doc.CompletedAt = update["completed_at"].(int64)
	metrics.StatusTransition(model.StatusCompleted)
}

func (s *DocumentService) since(unixMilli int64) time.Duration {
	return s.now().Sub(time.UnixMilli(unixMilli))
}

func (s *DocumentService) extAllowed(ext string) bool {
	for _, allowed := range s.upload.AllowedTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}
