package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status is the lifecycle state of one analysis run. Transitions out of
// StatusInProgress are terminal.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ProgressTTL bounds how long a run's progress record stays observable,
// including after completion.
const ProgressTTL = 10 * time.Minute

const progressPrefix = "task_progress:"

// ProgressRecord is the cached state of one pipeline run. Owner fields
// (OwnerHost, OwnerUserID, StartedAt) are set once at creation and never
// altered afterwards; progress is kept non-decreasing by the writer.
type ProgressRecord struct {
	Status      Status    `json:"status"`
	Progress    float64   `json:"progress"`
	Message     string    `json:"message"`
	OwnerHost   string    `json:"owner_host"`
	OwnerUserID *int64    `json:"owner_user_id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	ProjectID   *int64    `json:"project_id,omitempty"`
}

// ProgressPatch carries the fields a partial update may change. Nil fields
// are left untouched; owner fields cannot be expressed here at all.
type ProgressPatch struct {
	Status    *Status
	Progress  *float64
	Message   *string
	ProjectID *int64
}

func (p ProgressPatch) apply(rec *ProgressRecord) {
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Progress != nil {
		rec.Progress = *p.Progress
	}
	if p.Message != nil {
		rec.Message = *p.Message
	}
	if p.ProjectID != nil {
		rec.ProjectID = p.ProjectID
	}
}

// ProgressStore specializes Cache for ProgressRecord under the
// task_progress namespace.
type ProgressStore struct {
	*Cache[ProgressRecord]
}

func NewProgressStore(rdb *redis.Client) *ProgressStore {
	return &ProgressStore{Cache: New[ProgressRecord](rdb, progressPrefix)}
}

// UpdatePartial overlays only the supplied fields onto the stored record
// and writes it back, preserving the remaining TTL. Read-modify-write
// without compare-and-swap: safe under the single-writer convention (only
// the pipeline that minted a key ever updates it).
func (s *ProgressStore) UpdatePartial(ctx context.Context, key string, patch ProgressPatch) (bool, error) {
	rec, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	patch.apply(&rec)
	return s.Update(ctx, key, rec)
}
