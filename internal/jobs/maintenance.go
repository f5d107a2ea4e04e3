package jobs

import (
	"context"
	"time"

	"github.com/mcsmartbytes/job-sense/internal/logger"
	"go.uber.org/zap"
)

const (
	TokenCleanupJobName   = "token_cleanup"
	WorkspaceFlushJobName = "workspace_flush"
)

// TokenPurger deletes stale verification and password reset tokens
type TokenPurger interface {
	PurgeStaleTokens(ctx context.Context) (int64, error)
}

// WorkspaceFlusher persists dirty workspaces and evicts idle ones
type WorkspaceFlusher interface {
	FlushAndEvict(ctx context.Context) error
}

// TokenCleanupJob removes email tokens that can no longer be redeemed
type TokenCleanupJob struct {
	purger  TokenPurger
	logger  *zap.Logger
	timeout time.Duration
}

func NewTokenCleanupJob(purger TokenPurger, logger *zap.Logger, timeout time.Duration) *TokenCleanupJob {
	return &TokenCleanupJob{purger: purger, logger: logger, timeout: timeout}
}

// Run is invoked by the scheduler
func (j *TokenCleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	deleted, err := j.purger.PurgeStaleTokens(ctx)
	if err != nil {
		j.logger.Error("Token cleanup failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	j.logger.Info("Token cleanup completed",
		zap.Int64("deleted", deleted),
		zap.Duration("duration", time.Since(start)))
}

// WorkspaceFlushJob retries failed workspace writes and frees idle memory
type WorkspaceFlushJob struct {
	flusher WorkspaceFlusher
	logger  *zap.Logger
	timeout time.Duration
}

func NewWorkspaceFlushJob(flusher WorkspaceFlusher, logger *zap.Logger, timeout time.Duration) *WorkspaceFlushJob {
	return &WorkspaceFlushJob{flusher: flusher, logger: logger, timeout: timeout}
}

// Run is invoked by the scheduler and once more on shutdown
func (j *WorkspaceFlushJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.flusher.FlushAndEvict(ctx); err != nil {
		j.logger.Error("Workspace flush failed", zap.Error(err))
	}
}

// RegisterMaintenanceJobs adds the token cleanup and workspace flush jobs
func RegisterMaintenanceJobs(
	scheduler *Scheduler,
	purger TokenPurger,
	flusher WorkspaceFlusher,
	tokenCleanupCron, workspaceFlushCron string,
	log *zap.Logger,
) (*WorkspaceFlushJob, error) {
	cleanup := NewTokenCleanupJob(purger, logger.WithJob(log, TokenCleanupJobName), time.Minute)
	if err := scheduler.AddJob(TokenCleanupJobName, tokenCleanupCron, cleanup.Run); err != nil {
		return nil, err
	}

	flush := NewWorkspaceFlushJob(flusher, logger.WithJob(log, WorkspaceFlushJobName), time.Minute)
	if err := scheduler.AddJob(WorkspaceFlushJobName, workspaceFlushCron, flush.Run); err != nil {
		return nil, err
	}
	return flush, nil
}
