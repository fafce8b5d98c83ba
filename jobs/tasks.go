package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsCleanup prunes expired session audit records.
	TaskSessionsCleanup = "sessions:cleanup"
)

// SessionsCleanupPayload configures one cleanup run.
type SessionsCleanupPayload struct {
	// RetainHours keeps expired records around for this many hours before
	// deletion, for post-incident review.
	RetainHours int `json:"retain_hours"`
}

// NewSessionsCleanupTask constructs an Asynq task.
func NewSessionsCleanupTask(retainHours int) (*asynq.Task, error) {
	data, err := json.Marshal(SessionsCleanupPayload{RetainHours: retainHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsCleanup, data), nil
}
