package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/ports"
	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
	"github.com/trialdesk/trialdesk/pkg/uuidv7"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SectionPGStore is the shared Postgres implementation behind all eight
// child tables; TableMeta supplies the per-table shape.
type SectionPGStore[T any] struct {
	db   querier
	meta TableMeta[T]
}

func NewOutcomePGStore(pool *pgxpool.Pool) ports.SectionStore[types.Outcome] {
	return &SectionPGStore[types.Outcome]{db: pool, meta: outcomeMeta}
}

func NewCriteriaPGStore(pool *pgxpool.Pool) ports.SectionStore[types.Criteria] {
	return &SectionPGStore[types.Criteria]{db: pool, meta: criteriaMeta}
}

func NewTimingPGStore(pool *pgxpool.Pool) ports.SectionStore[types.Timing] {
	return &SectionPGStore[types.Timing]{db: pool, meta: timingMeta}
}

func NewResultsPGStore(pool *pgxpool.Pool) ports.SectionStore[types.Results] {
	return &SectionPGStore[types.Results]{db: pool, meta: resultsMeta}
}

func NewSitePGStore(pool *pgxpool.Pool) ports.SectionStore[types.Site] {
	return &SectionPGStore[types.Site]{db: pool, meta: siteMeta}
}

func NewLogPGStore(pool *pgxpool.Pool) ports.SectionStore[types.LogEntry] {
	return &SectionPGStore[types.LogEntry]{db: pool, meta: logMeta}
}

func NewNotePGStore(pool *pgxpool.Pool) ports.SectionStore[types.Note] {
	return &SectionPGStore[types.Note]{db: pool, meta: noteMeta}
}

func NewOtherSourcePGStore(pool *pgxpool.Pool) ports.SectionStore[types.OtherSource] {
	return &SectionPGStore[types.OtherSource]{db: pool, meta: otherSourceMeta}
}

func (s *SectionPGStore[T]) selectColumns() string {
	return "id, trial_id, " + strings.Join(s.meta.Columns, ", ") + ", created_at, updated_at"
}

func (s *SectionPGStore[T]) scan(row pgx.Row) (T, error) {
	var v T
	h := s.meta.Header(&v)
	dest := append([]any{&h.ID, &h.TrialID}, s.meta.Fields(&v)...)
	dest = append(dest, &h.CreatedAt, &h.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (s *SectionPGStore[T]) queryMany(ctx context.Context, sql string, args ...any) ([]T, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SectionPGStore[T]) Create(ctx context.Context, trialID string, row T) (T, error) {
	var zero T

	id, err := uuidv7.NewString()
	if err != nil {
		return zero, err
	}
	h := s.meta.Header(&row)
	h.ID = id
	h.TrialID = trialID

	placeholders := make([]string, 0, len(s.meta.Columns)+2)
	for i := 0; i < len(s.meta.Columns)+2; i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	sql := fmt.Sprintf(
		"INSERT INTO %s (id, trial_id, %s) VALUES (%s) RETURNING created_at, updated_at",
		s.meta.Table, strings.Join(s.meta.Columns, ", "), strings.Join(placeholders, ", "),
	)
	args := append([]any{h.ID, h.TrialID}, s.meta.Fields(&row)...)
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&h.CreatedAt, &h.UpdatedAt); err != nil {
		return zero, err
	}
	return row, nil
}

func (s *SectionPGStore[T]) FindByID(ctx context.Context, id string) (T, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.selectColumns(), s.meta.Table)
	v, err := s.scan(s.db.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, ports.ErrNotFound
	}
	return v, err
}

func (s *SectionPGStore[T]) FindByTrialID(ctx context.Context, trialID string) ([]T, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE trial_id = $1 ORDER BY created_at, id", s.selectColumns(), s.meta.Table)
	return s.queryMany(ctx, sql, trialID)
}

func (s *SectionPGStore[T]) FindAll(ctx context.Context) ([]T, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at, id", s.selectColumns(), s.meta.Table)
	return s.queryMany(ctx, sql)
}

func (s *SectionPGStore[T]) Update(ctx context.Context, id string, row T) (T, error) {
	var zero T

	sets := make([]string, 0, len(s.meta.Columns))
	for i, col := range s.meta.Columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+2))
	}
	sql := fmt.Sprintf(
		"UPDATE %s SET %s, updated_at = now() WHERE id = $1 RETURNING trial_id, created_at, updated_at",
		s.meta.Table, strings.Join(sets, ", "),
	)
	h := s.meta.Header(&row)
	args := append([]any{id}, s.meta.Fields(&row)...)
	err := s.db.QueryRow(ctx, sql, args...).Scan(&h.TrialID, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, ports.ErrNotFound
	}
	if err != nil {
		return zero, err
	}
	h.ID = id
	return row, nil
}

func (s *SectionPGStore[T]) UpdateByTrialID(ctx context.Context, trialID string, row T) (T, error) {
	var zero T

	sets := make([]string, 0, len(s.meta.Columns))
	for i, col := range s.meta.Columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+2))
	}
	sql := fmt.Sprintf(
		"UPDATE %s SET %s, updated_at = now() WHERE trial_id = $1",
		s.meta.Table, strings.Join(sets, ", "),
	)
	args := append([]any{trialID}, s.meta.Fields(&row)...)
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return zero, err
	}
	if tag.RowsAffected() == 0 {
		return zero, ports.ErrNotFound
	}

	updated, err := s.FindByTrialID(ctx, trialID)
	if err != nil {
		return zero, err
	}
	if len(updated) == 0 {
		return zero, ports.ErrNotFound
	}
	return updated[0], nil
}

func (s *SectionPGStore[T]) Delete(ctx context.Context, id string) (int64, error) {
	tag, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.meta.Table), id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *SectionPGStore[T]) DeleteByTrialID(ctx context.Context, trialID string) (int64, error) {
	tag, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE trial_id = $1", s.meta.Table), trialID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
