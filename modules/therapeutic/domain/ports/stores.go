package ports

import (
	"context"
	"errors"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// ErrMissingUser is returned by ActivityStore.Insert when the acting user
// does not exist in the user table.
var ErrMissingUser = errors.New("activity user does not exist")

type OverviewStore interface {
	Create(ctx context.Context, ov types.Overview) (types.Overview, error)
	FindByID(ctx context.Context, id string) (types.Overview, error)
	FindAll(ctx context.Context) ([]types.Overview, error)
	Update(ctx context.Context, id string, ov types.Overview) (types.Overview, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// SectionStore is the uniform contract every child table exposes. Delete
// operations report the number of rows removed.
type SectionStore[T any] interface {
	Create(ctx context.Context, trialID string, row T) (T, error)
	FindByID(ctx context.Context, id string) (T, error)
	FindByTrialID(ctx context.Context, trialID string) ([]T, error)
	FindAll(ctx context.Context) ([]T, error)
	Update(ctx context.Context, id string, row T) (T, error)
	UpdateByTrialID(ctx context.Context, trialID string, row T) (T, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteByTrialID(ctx context.Context, trialID string) (int64, error)
}

type ActivityEntry struct {
	UserID        string         `json:"user_id"`
	TableName     string         `json:"table_name"`
	RecordID      string         `json:"record_id"`
	ActionType    string         `json:"action_type"`
	ChangeDetails map[string]any `json:"change_details"`
}

type ActivityStore interface {
	Insert(ctx context.Context, e ActivityEntry) error
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, u types.User) (types.User, error)
}

// ActivityRecorder is the best-effort audit contract: Record never returns
// an error so callers cannot couple CRUD correctness to audit writes.
// Implementations deal with fallback and swallowing internally.
type ActivityRecorder interface {
	Record(ctx context.Context, e ActivityEntry)
}
