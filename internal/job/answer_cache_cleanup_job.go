package job

import (
	"context"
	"time"

	"github.com/docuseek/docqa/internal/repo"
)

type AnswerCacheCleanupJob struct {
	repo       *repo.AnswerCacheRepo
	maxAgeDays int
}

func NewAnswerCacheCleanupJob(repo *repo.AnswerCacheRepo, maxAgeDays int) *AnswerCacheCleanupJob {
	return &AnswerCacheCleanupJob{repo: repo, maxAgeDays: maxAgeDays}
}

func (j *AnswerCacheCleanupJob) Name() string {
	return "answer_cache_cleanup"
}

func (j *AnswerCacheCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).UnixMilli()
	_, err := j.repo.DeleteBefore(ctx, cutoff)
	return err
}
