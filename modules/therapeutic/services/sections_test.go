package services

import (
	"context"
	"errors"
	"testing"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
)

func createTestTrial(t *testing.T, env *testEnv) string {
	t.Helper()
	res, err := env.svc.CreateTrial(context.Background(), CreateTrialRequest{
		UserID:   "user-1",
		Overview: map[string]any{"title": "Base trial", "status": "Planned"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return res.TrialID
}

func TestUpdateOverview_MergesFields(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	trialID := createTestTrial(t, env)

	updated, err := env.svc.UpdateOverview(context.Background(), trialID, "user-1", map[string]any{
		"status":           "Recruiting",
		"trial_identifier": "NCT100",
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != "Recruiting" {
		t.Fatalf("status=%q", updated.Status)
	}
	if updated.Title != "Base trial" {
		t.Fatalf("title=%q (untouched fields must survive)", updated.Title)
	}
	if len(updated.TrialIdentifier) != 1 || updated.TrialIdentifier[0] != "NCT100" {
		t.Fatalf("trial_identifier=%v", updated.TrialIdentifier)
	}
}

func TestUpdateOverview_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	if _, err := env.svc.UpdateOverview(context.Background(), "", "user-1", map[string]any{"x": "y"}); !errors.Is(err, ErrMissingTrialID) {
		t.Fatalf("err=%v", err)
	}
	if _, err := env.svc.UpdateOverview(context.Background(), "t-1", "", map[string]any{"x": "y"}); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("err=%v", err)
	}
	if _, err := env.svc.UpdateOverview(context.Background(), "t-1", "user-1", nil); !errors.Is(err, ErrMissingOverview) {
		t.Fatalf("err=%v", err)
	}
	if _, err := env.svc.UpdateOverview(context.Background(), "missing", "user-1", map[string]any{"x": "y"}); !errors.Is(err, ErrTrialNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestUpsertSection_CreateThenUpdate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	trialID := createTestTrial(t, env)

	row, err := env.svc.UpsertSection(context.Background(), trialID, "user-1", SectionTiming, map[string]any{
		"start_date": "2026-03-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	timing, ok := row.(types.Timing)
	if !ok {
		t.Fatalf("row type %T", row)
	}
	if timing.StartDate != "2026-03-01" {
		t.Fatalf("start_date=%q", timing.StartDate)
	}
	firstID := timing.ID

	row, err = env.svc.UpsertSection(context.Background(), trialID, "user-1", SectionTiming, map[string]any{
		"start_date": "2026-04-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	timing = row.(types.Timing)
	if timing.StartDate != "2026-04-01" {
		t.Fatalf("start_date=%q", timing.StartDate)
	}
	if timing.ID != firstID {
		t.Fatalf("id changed on update: %q -> %q", firstID, timing.ID)
	}

	rows, err := env.svc.ListSection(context.Background(), trialID, SectionTiming)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := rows.([]types.Timing)
	if !ok {
		t.Fatalf("rows type %T", rows)
	}
	if len(got) != 1 {
		t.Fatalf("rows=%d", len(got))
	}
}

func TestListSection_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	trialID := createTestTrial(t, env)

	if _, err := env.svc.ListSection(context.Background(), "missing", SectionNotes); !errors.Is(err, ErrTrialNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := env.svc.ListSection(context.Background(), trialID, "bogus"); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("err=%v", err)
	}

	rows, err := env.svc.ListSection(context.Background(), trialID, SectionNotes)
	if err != nil {
		t.Fatal(err)
	}
	if got := rows.([]types.Note); got == nil || len(got) != 0 {
		t.Fatalf("rows=%v", rows)
	}
}

func TestUpsertSection_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	trialID := createTestTrial(t, env)

	if _, err := env.svc.UpsertSection(context.Background(), trialID, "user-1", "bogus", map[string]any{"x": "y"}); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("err=%v", err)
	}
	if _, err := env.svc.UpsertSection(context.Background(), "missing", "user-1", SectionNotes, map[string]any{"x": "y"}); !errors.Is(err, ErrTrialNotFound) {
		t.Fatalf("err=%v", err)
	}
}
