package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pgvector/pgvector-go"

	"github.com/docuseek/docqa/internal/model"
	appErr "github.com/docuseek/docqa/internal/pkg/errors"
)

// AnswerCacheEntry is a previously generated answer keyed by the question
// embedding, so later questions can match on meaning instead of text.
type AnswerCacheEntry struct {
	ID        string
	Question  string
	Answer    string
	Citations []model.Citation
	Ctime     int64
}

type AnswerCacheRepo struct {
	db *sql.DB
}

func NewAnswerCacheRepo(db *sql.DB) *AnswerCacheRepo {
	return &AnswerCacheRepo{db: db}
}

func (r *AnswerCacheRepo) Save(ctx context.Context, entry *AnswerCacheEntry, embedding []float32) error {
	citations, err := json.Marshal(entry.Citations)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO qa_answer_cache (id, question, embedding, answer, citations, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			question = EXCLUDED.question,
			embedding = EXCLUDED.embedding,
			answer = EXCLUDED.answer,
			citations = EXCLUDED.citations,
			ctime = EXCLUDED.ctime
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Question,
		pgvector.NewVector(embedding),
		entry.Answer,
		string(citations),
		entry.Ctime,
	)
	return err
}

// Nearest returns the closest cached answer by cosine distance, or
// ErrNotFound when nothing is within maxDistance.
func (r *AnswerCacheRepo) Nearest(ctx context.Context, embedding []float32, maxDistance float64) (*AnswerCacheEntry, error) {
	const query = `
		SELECT id, question, answer, citations, ctime, embedding <=> $1 AS distance
		FROM qa_answer_cache
		ORDER BY embedding <=> $1
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, pgvector.NewVector(embedding))
	var entry AnswerCacheEntry
	var citations string
	var distance float64
	if err := row.Scan(&entry.ID, &entry.Question, &entry.Answer, &citations, &entry.Ctime, &distance); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if distance > maxDistance {
		return nil, appErr.ErrNotFound
	}
	if err := json.Unmarshal([]byte(citations), &entry.Citations); err != nil {
		entry.Citations = nil
	}
	return &entry, nil
}

func (r *AnswerCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM qa_answer_cache WHERE ctime < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
