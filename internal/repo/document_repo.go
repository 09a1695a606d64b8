package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docuseek/docqa/internal/model"
	"github.com/docuseek/docqa/internal/pkg/dbutil"
	appErr "github.com/docuseek/docqa/internal/pkg/errors"
)

var documentFields = []string{
	"id", "session_id", "filename", "storage_key", "storage_url",
	"file_size", "file_type", "status", "upload_time", "processed",
	"indexer_triggered_at", "completed_at", "error_message",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":                   doc.ID,
		"session_id":           doc.SessionID,
		"filename":             doc.Filename,
		"storage_key":          doc.StorageKey,
		"storage_url":          doc.StorageURL,
		"file_size":            doc.FileSize,
		"file_type":            doc.FileType,
		"status":               doc.Status,
		"upload_time":          doc.UploadTime,
		"processed":            doc.Processed,
		"indexer_triggered_at": doc.IndexerTriggeredAt,
		"completed_at":         doc.CompletedAt,
		"error_message":        doc.ErrorMessage,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id": docID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	doc, err := scanDocument(rows)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns documents newest first. An empty sessionID lists everything.
func (r *DocumentRepo) List(ctx context.Context, sessionID string) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "upload_time desc",
	}
	if sessionID != "" {
		where["session_id"] = sessionID
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) ListByStatus(ctx context.Context, statuses []string) ([]model.Document, error) {
	if len(statuses) == 0 {
		return []model.Document{}, nil
	}
	in := make([]interface{}, 0, len(statuses))
	for _, s := range statuses {
		in = append(in, s)
	}
	where := map[string]interface{}{
		"status in": in,
		"_orderby":  "upload_time desc",
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) Update(ctx context.Context, docID string, update map[string]interface{}) error {
	if len(update) == 0 {
		return nil
	}
	where := map[string]interface{}{
		"id": docID,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, docID string) error {
	where := map[string]interface{}{
		"id": docID,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var doc model.Document
	if err := rows.Scan(
		&doc.ID, &doc.SessionID, &doc.Filename, &doc.StorageKey, &doc.StorageURL,
		&doc.FileSize, &doc.FileType, &doc.Status, &doc.UploadTime, &doc.Processed,
		&doc.IndexerTriggeredAt, &doc.CompletedAt, &doc.ErrorMessage,
	); err != nil {
		return nil, err
	}
	return &doc, nil
}
