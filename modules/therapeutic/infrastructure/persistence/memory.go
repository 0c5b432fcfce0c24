package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/ports"
	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
	"github.com/trialdesk/trialdesk/pkg/uuidv7"
)

// Memory stores back the handler when no database is wired and the unit
// tests. Same contracts as the PG stores, row order preserved by insertion.

type SectionMemoryStore[T any] struct {
	mu     sync.Mutex
	rows   []T
	header func(*T) *types.RowHeader
}

func NewOutcomeMemoryStore() *SectionMemoryStore[types.Outcome] {
	return &SectionMemoryStore[types.Outcome]{header: outcomeMeta.Header}
}

func NewCriteriaMemoryStore() *SectionMemoryStore[types.Criteria] {
	return &SectionMemoryStore[types.Criteria]{header: criteriaMeta.Header}
}

func NewTimingMemoryStore() *SectionMemoryStore[types.Timing] {
	return &SectionMemoryStore[types.Timing]{header: timingMeta.Header}
}

func NewResultsMemoryStore() *SectionMemoryStore[types.Results] {
	return &SectionMemoryStore[types.Results]{header: resultsMeta.Header}
}

func NewSiteMemoryStore() *SectionMemoryStore[types.Site] {
	return &SectionMemoryStore[types.Site]{header: siteMeta.Header}
}

func NewLogMemoryStore() *SectionMemoryStore[types.LogEntry] {
	return &SectionMemoryStore[types.LogEntry]{header: logMeta.Header}
}

func NewNoteMemoryStore() *SectionMemoryStore[types.Note] {
	return &SectionMemoryStore[types.Note]{header: noteMeta.Header}
}

func NewOtherSourceMemoryStore() *SectionMemoryStore[types.OtherSource] {
	return &SectionMemoryStore[types.OtherSource]{header: otherSourceMeta.Header}
}

func (s *SectionMemoryStore[T]) Create(_ context.Context, trialID string, row T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uuidv7.NewString()
	if err != nil {
		var zero T
		return zero, err
	}
	h := s.header(&row)
	h.ID = id
	h.TrialID = trialID
	h.CreatedAt = time.Now().UTC()
	h.UpdatedAt = h.CreatedAt
	s.rows = append(s.rows, row)
	return row, nil
}

func (s *SectionMemoryStore[T]) FindByID(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		if s.header(&s.rows[i]).ID == id {
			return s.rows[i], nil
		}
	}
	var zero T
	return zero, ports.ErrNotFound
}

func (s *SectionMemoryStore[T]) FindByTrialID(_ context.Context, trialID string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []T
	for i := range s.rows {
		if s.header(&s.rows[i]).TrialID == trialID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

func (s *SectionMemoryStore[T]) FindAll(_ context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.rows...), nil
}

func (s *SectionMemoryStore[T]) Update(_ context.Context, id string, row T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		old := s.header(&s.rows[i])
		if old.ID != id {
			continue
		}
		h := s.header(&row)
		h.ID = old.ID
		h.TrialID = old.TrialID
		h.CreatedAt = old.CreatedAt
		h.UpdatedAt = time.Now().UTC()
		s.rows[i] = row
		return row, nil
	}
	var zero T
	return zero, ports.ErrNotFound
}

func (s *SectionMemoryStore[T]) UpdateByTrialID(_ context.Context, trialID string, row T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated *T
	for i := range s.rows {
		old := s.header(&s.rows[i])
		if old.TrialID != trialID {
			continue
		}
		next := row
		h := s.header(&next)
		h.ID = old.ID
		h.TrialID = old.TrialID
		h.CreatedAt = old.CreatedAt
		h.UpdatedAt = time.Now().UTC()
		s.rows[i] = next
		if updated == nil {
			updated = &s.rows[i]
		}
	}
	if updated == nil {
		var zero T
		return zero, ports.ErrNotFound
	}
	return *updated, nil
}

func (s *SectionMemoryStore[T]) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []T
	var deleted int64
	for i := range s.rows {
		if s.header(&s.rows[i]).ID == id {
			deleted++
			continue
		}
		kept = append(kept, s.rows[i])
	}
	s.rows = kept
	return deleted, nil
}

func (s *SectionMemoryStore[T]) DeleteByTrialID(_ context.Context, trialID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []T
	var deleted int64
	for i := range s.rows {
		if s.header(&s.rows[i]).TrialID == trialID {
			deleted++
			continue
		}
		kept = append(kept, s.rows[i])
	}
	s.rows = kept
	return deleted, nil
}

type OverviewMemoryStore struct {
	mu   sync.Mutex
	rows []types.Overview
}

func NewOverviewMemoryStore() *OverviewMemoryStore {
	return &OverviewMemoryStore{}
}

func (s *OverviewMemoryStore) Create(_ context.Context, ov types.Overview) (types.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uuidv7.NewString()
	if err != nil {
		return types.Overview{}, err
	}
	ov.ID = id
	ov.CreatedAt = time.Now().UTC()
	ov.UpdatedAt = ov.CreatedAt
	s.rows = append(s.rows, ov)
	return ov, nil
}

func (s *OverviewMemoryStore) FindByID(_ context.Context, id string) (types.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		if s.rows[i].ID == id {
			return s.rows[i], nil
		}
	}
	return types.Overview{}, ports.ErrNotFound
}

func (s *OverviewMemoryStore) FindAll(_ context.Context) ([]types.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Newest first, matching the PG store's created_at DESC ordering.
	out := make([]types.Overview, 0, len(s.rows))
	for i := len(s.rows) - 1; i >= 0; i-- {
		out = append(out, s.rows[i])
	}
	return out, nil
}

func (s *OverviewMemoryStore) Update(_ context.Context, id string, ov types.Overview) (types.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		if s.rows[i].ID != id {
			continue
		}
		ov.ID = id
		ov.CreatedAt = s.rows[i].CreatedAt
		ov.UpdatedAt = time.Now().UTC()
		s.rows[i] = ov
		return ov, nil
	}
	return types.Overview{}, ports.ErrNotFound
}

func (s *OverviewMemoryStore) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type UserMemoryStore struct {
	mu    sync.Mutex
	users []types.User
}

func NewUserMemoryStore() *UserMemoryStore {
	return &UserMemoryStore{}
}

func (s *UserMemoryStore) FindByUsername(_ context.Context, username string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, ports.ErrNotFound
}

func (s *UserMemoryStore) Create(_ context.Context, u types.User) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		id, err := uuidv7.NewString()
		if err != nil {
			return types.User{}, err
		}
		u.ID = id
	}
	s.users = append(s.users, u)
	return u, nil
}

func (s *UserMemoryStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			return true
		}
	}
	return false
}

// ActivityMemoryStore enforces the same user foreign key the PG schema
// does, so the fallback path is exercised without a database.
type ActivityMemoryStore struct {
	mu      sync.Mutex
	users   *UserMemoryStore
	Entries []ports.ActivityEntry
}

func NewActivityMemoryStore(users *UserMemoryStore) *ActivityMemoryStore {
	return &ActivityMemoryStore{users: users}
}

func (s *ActivityMemoryStore) Insert(_ context.Context, e ports.ActivityEntry) error {
	if !s.users.has(e.UserID) {
		return ports.ErrMissingUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, e)
	return nil
}
