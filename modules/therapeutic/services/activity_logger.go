package services

import (
	"context"
	"errors"
	"log"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/ports"
	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
)

const systemAdminUsername = "admin"

// ActivityLogger writes audit entries best-effort: a failed write must
// never fail the CRUD operation it annotates. When the acting user no
// longer exists the entry is re-attributed to a lazily created system
// admin, keeping the original user id in the change details.
type ActivityLogger struct {
	store ports.ActivityStore
	users ports.UserStore
}

func NewActivityLogger(store ports.ActivityStore, users ports.UserStore) *ActivityLogger {
	return &ActivityLogger{store: store, users: users}
}

func (l *ActivityLogger) Record(ctx context.Context, e ports.ActivityEntry) {
	err := l.store.Insert(ctx, e)
	if err == nil {
		return
	}
	if !errors.Is(err, ports.ErrMissingUser) {
		log.Printf("activity: dropping %s entry for %s/%s: %v", e.ActionType, e.TableName, e.RecordID, err)
		return
	}

	admin, adminErr := l.ensureSystemAdmin(ctx)
	if adminErr != nil {
		log.Printf("activity: system admin unavailable, dropping %s entry for %s/%s: %v",
			e.ActionType, e.TableName, e.RecordID, adminErr)
		return
	}

	details := make(map[string]any, len(e.ChangeDetails)+2)
	for k, v := range e.ChangeDetails {
		details[k] = v
	}
	details["original_user"] = e.UserID
	details["note"] = "original user no longer exists; entry attributed to system admin"

	retry := e
	retry.UserID = admin.ID
	retry.ChangeDetails = details
	if err := l.store.Insert(ctx, retry); err != nil {
		log.Printf("activity: fallback write failed, dropping %s entry for %s/%s: %v",
			e.ActionType, e.TableName, e.RecordID, err)
	}
}

func (l *ActivityLogger) ensureSystemAdmin(ctx context.Context) (types.User, error) {
	u, err := l.users.FindByUsername(ctx, systemAdminUsername)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return types.User{}, err
	}
	return l.users.Create(ctx, types.User{Username: systemAdminUsername, Role: "system_admin"})
}
