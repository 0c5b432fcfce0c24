package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/ports"
	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
	"github.com/trialdesk/trialdesk/pkg/uuidv7"
)

type ActivityPGStore struct {
	db querier
}

func NewActivityPGStore(pool *pgxpool.Pool) ports.ActivityStore {
	return &ActivityPGStore{db: pool}
}

func (s *ActivityPGStore) Insert(ctx context.Context, e ports.ActivityEntry) error {
	id, err := uuidv7.NewString()
	if err != nil {
		return err
	}
	details, err := json.Marshal(e.ChangeDetails)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
	INSERT INTO activity_logs (id, user_id, table_name, record_id, action_type, change_details)
	VALUES ($1, $2, $3, $4, $5, $6)
	`, id, e.UserID, e.TableName, e.RecordID, e.ActionType, details)
	if err != nil {
		// 23503: the acting user is gone; callers retry with the system admin.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: %s", ports.ErrMissingUser, e.UserID)
		}
		return err
	}
	return nil
}

type UserPGStore struct {
	db querier
}

func NewUserPGStore(pool *pgxpool.Pool) ports.UserStore {
	return &UserPGStore{db: pool}
}

func (s *UserPGStore) FindByUsername(ctx context.Context, username string) (types.User, error) {
	var u types.User
	err := s.db.QueryRow(ctx,
		`SELECT id, username, role FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.User{}, ports.ErrNotFound
	}
	if err != nil {
		return types.User{}, err
	}
	return u, nil
}

func (s *UserPGStore) Create(ctx context.Context, u types.User) (types.User, error) {
	if u.ID == "" {
		id, err := uuidv7.NewString()
		if err != nil {
			return types.User{}, err
		}
		u.ID = id
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, username, role) VALUES ($1, $2, $3)`,
		u.ID, u.Username, u.Role)
	if err != nil {
		return types.User{}, err
	}
	return u, nil
}
