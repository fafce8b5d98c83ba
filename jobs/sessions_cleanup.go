package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-platform/meridian-identity/internal/auth"
)

// SessionsCleanupJob removes session audit records whose expiry has passed.
type SessionsCleanupJob struct {
	repo    auth.Repository
	logger  *slog.Logger
	metrics *Metrics
}

// NewSessionsCleanupJob constructs the job. metrics may be nil.
func NewSessionsCleanupJob(repo auth.Repository, logger *slog.Logger, metrics *Metrics) *SessionsCleanupJob {
	return &SessionsCleanupJob{repo: repo, logger: logger, metrics: metrics}
}

// Handle processes TaskSessionsCleanup tasks.
func (j *SessionsCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskSessionsCleanup)

	var payload SessionsCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}

	cutoff := time.Now().UTC().Add(-time.Duration(payload.RetainHours) * time.Hour)
	removed, err := j.repo.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		return tracker.End(err)
	}
	if j.logger != nil {
		j.logger.Info("sessions cleanup",
			slog.Int64("removed", removed),
			slog.Time("cutoff", cutoff))
	}
	return tracker.End(nil)
}
