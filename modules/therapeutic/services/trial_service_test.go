package services

import (
	"context"
	"errors"
	"testing"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
	"github.com/trialdesk/trialdesk/modules/therapeutic/infrastructure/persistence"
	"github.com/trialdesk/trialdesk/modules/therapeutic/search"
)

type testEnv struct {
	svc      *TrialService
	activity *persistence.ActivityMemoryStore
	overview *persistence.OverviewMemoryStore
	other    *persistence.SectionMemoryStore[types.OtherSource]
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := persistence.NewUserMemoryStore()
	if _, err := users.Create(context.Background(), types.User{ID: "user-1", Username: "alice"}); err != nil {
		t.Fatal(err)
	}
	activity := persistence.NewActivityMemoryStore(users)
	overview := persistence.NewOverviewMemoryStore()
	other := persistence.NewOtherSourceMemoryStore()

	stores := Stores{
		Overview: overview,
		Outcomes: persistence.NewOutcomeMemoryStore(),
		Criteria: persistence.NewCriteriaMemoryStore(),
		Timing:   persistence.NewTimingMemoryStore(),
		Results:  persistence.NewResultsMemoryStore(),
		Sites:    persistence.NewSiteMemoryStore(),
		Other:    other,
		Logs:     persistence.NewLogMemoryStore(),
		Notes:    persistence.NewNoteMemoryStore(),
		Activity: NewActivityLogger(activity, users),
	}
	return &testEnv{
		svc:      NewTrialService(stores),
		activity: activity,
		overview: overview,
		other:    other,
	}
}

func TestCreateTrial_RoundTrip(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	res, err := env.svc.CreateTrial(context.Background(), CreateTrialRequest{
		UserID: "user-1",
		Overview: map[string]any{
			"title":            "Phase III oncology study",
			"trial_phase":      "Phase III",
			"status":           "Recruiting",
			"trial_identifier": "NCT001, NCT002",
		},
		Outcome: map[string]any{"outcome_measure": "Overall survival"},
		Sites:   map[string]any{"site_name": "General Hospital"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TrialID == "" {
		t.Fatal("empty trial id")
	}
	if res.TrialIdentifier != "NCT001" {
		t.Fatalf("trial_identifier=%v", res.TrialIdentifier)
	}
	if res.Data.Outcome == nil || res.Data.Outcome.OutcomeMeasure != "Overall survival" {
		t.Fatalf("outcome=%+v", res.Data.Outcome)
	}
	if res.Data.Timing != nil {
		t.Fatal("timing should be absent")
	}

	agg, err := env.svc.FetchTrial(context.Background(), res.TrialID)
	if err != nil {
		t.Fatal(err)
	}
	if agg.Data.Overview.Title != "Phase III oncology study" {
		t.Fatalf("title=%q", agg.Data.Overview.Title)
	}
	if len(agg.Data.Outcomes) != 1 || len(agg.Data.Sites) != 1 {
		t.Fatalf("children outcomes=%d sites=%d", len(agg.Data.Outcomes), len(agg.Data.Sites))
	}
	if agg.Data.Notes == nil || agg.Data.Logs == nil {
		t.Fatal("empty collections must be non-nil")
	}

	// overview + outcome + sites rows, plus the summary entry
	if len(env.activity.Entries) != 4 {
		t.Fatalf("activity entries=%d", len(env.activity.Entries))
	}
	last := env.activity.Entries[len(env.activity.Entries)-1]
	if last.TableName != "therapeutic_trial_summary" {
		t.Fatalf("last entry table=%q", last.TableName)
	}
}

func TestCreateTrial_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, err := env.svc.CreateTrial(context.Background(), CreateTrialRequest{
		Overview: map[string]any{"title": "x"},
	})
	if !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("err=%v", err)
	}

	_, err = env.svc.CreateTrial(context.Background(), CreateTrialRequest{UserID: "user-1"})
	if !errors.Is(err, ErrMissingOverview) {
		t.Fatalf("err=%v", err)
	}

	// Failed validation must not leave partial rows behind.
	all, err := env.overview.FindAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("overview rows=%d", len(all))
	}
	if len(env.activity.Entries) != 0 {
		t.Fatalf("activity entries=%d", len(env.activity.Entries))
	}
}

func TestCreateTrial_TaggedOtherSources(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	res, err := env.svc.CreateTrial(context.Background(), CreateTrialRequest{
		UserID:   "user-1",
		Overview: map[string]any{"title": "Trial"},
		OtherSources: map[string]any{
			"press_releases": []any{
				map[string]any{"title": "FDA update", "date": "2026-01-15", "url": "http://pr"},
			},
			"trial_registries": []any{
				map[string]any{"registry": "EudraCT", "identifier": "2026-000001-01"},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data.Other) != 2 {
		t.Fatalf("other rows=%d", len(res.Data.Other))
	}

	sawPress, sawRegistry := false, false
	for _, row := range res.Data.Other {
		p := types.DecodeOtherSource(row.Data)
		switch p.Type {
		case types.OtherSourcePressRelease:
			sawPress = true
			if p.Title != "FDA update" || p.Date != "2026-01-15" {
				t.Fatalf("press payload=%+v", p)
			}
		case types.OtherSourceTrialRegistry:
			sawRegistry = true
			if p.Registry != "EudraCT" || p.Identifier != "2026-000001-01" {
				t.Fatalf("registry payload=%+v", p)
			}
		}
	}
	if !sawPress || !sawRegistry {
		t.Fatalf("press=%v registry=%v", sawPress, sawRegistry)
	}
}

func TestCreateTrial_LegacyOtherSources(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	res, err := env.svc.CreateTrial(context.Background(), CreateTrialRequest{
		UserID:   "user-1",
		Overview: map[string]any{"title": "Trial"},
		Other:    map[string]any{"freeform": "legacy notes about sources"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data.Other) != 1 {
		t.Fatalf("other rows=%d", len(res.Data.Other))
	}
	p := types.DecodeOtherSource(res.Data.Other[0].Data)
	if p.Type != types.OtherSourceLegacy {
		t.Fatalf("type=%q", p.Type)
	}
	if p.Raw == "" {
		t.Fatal("legacy raw payload lost")
	}
}

func TestDeleteTrialCascade(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	res, err := env.svc.CreateTrial(context.Background(), CreateTrialRequest{
		UserID:   "user-1",
		Overview: map[string]any{"title": "Doomed trial", "trial_phase": "Phase I"},
		Sites:    map[string]any{"site_name": "Site A"},
		Notes:    map[string]any{"note_text": "check later"},
	})
	if err != nil {
		t.Fatal(err)
	}

	del, err := env.svc.DeleteTrialCascade(context.Background(), res.TrialID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !del.Success {
		t.Fatal("expected success")
	}
	if del.DeletionSummary.Sites != 1 || del.DeletionSummary.Notes != 1 || del.DeletionSummary.Overview != 1 {
		t.Fatalf("summary=%+v", del.DeletionSummary)
	}
	if del.TotalRecordsDeleted != 3 {
		t.Fatalf("total=%d", del.TotalRecordsDeleted)
	}
	if del.TrialInfo.Title != "Doomed trial" {
		t.Fatalf("trial_info=%+v", del.TrialInfo)
	}

	_, err = env.svc.FetchTrial(context.Background(), res.TrialID)
	if !errors.Is(err, ErrTrialNotFound) {
		t.Fatalf("err=%v", err)
	}

	_, err = env.svc.DeleteTrialCascade(context.Background(), res.TrialID, "user-1")
	if !errors.Is(err, ErrTrialNotFound) {
		t.Fatalf("second delete err=%v", err)
	}
}

func TestDeleteTrialCascade_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	if _, err := env.svc.DeleteTrialCascade(context.Background(), "", "user-1"); !errors.Is(err, ErrMissingTrialID) {
		t.Fatalf("err=%v", err)
	}
	if _, err := env.svc.DeleteTrialCascade(context.Background(), "t-1", ""); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("err=%v", err)
	}
}

func TestSearchTrials(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, ov := range []map[string]any{
		{"title": "Oncology study", "status": "Recruiting", "trial_phase": "Phase II"},
		{"title": "Cardiology study", "status": "Completed", "trial_phase": "Phase III"},
	} {
		if _, err := env.svc.CreateTrial(context.Background(), CreateTrialRequest{UserID: "user-1", Overview: ov}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := env.svc.SearchTrials(context.Background(), []search.Criterion{
		{Field: "status", Operator: "is", Value: "recruiting"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if list.TotalTrials != 1 {
		t.Fatalf("total=%d", list.TotalTrials)
	}
	if list.Trials[0].Data.Overview.Title != "Oncology study" {
		t.Fatalf("title=%q", list.Trials[0].Data.Overview.Title)
	}

	list, err = env.svc.SearchTrials(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if list.TotalTrials != 2 {
		t.Fatalf("empty criteria should match all, got %d", list.TotalTrials)
	}
}

func TestFetchAllTrials(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		if _, err := env.svc.CreateTrial(context.Background(), CreateTrialRequest{
			UserID:   "user-1",
			Overview: map[string]any{"title": "Trial"},
			Timing:   map[string]any{"start_date": "2026-01-01"},
		}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := env.svc.FetchAllTrials(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if list.TotalTrials != 3 {
		t.Fatalf("total=%d", list.TotalTrials)
	}
	for _, tr := range list.Trials {
		if len(tr.Data.Timing) != 1 {
			t.Fatalf("timing=%d", len(tr.Data.Timing))
		}
		if tr.Data.Outcomes == nil {
			t.Fatal("outcomes must be non-nil")
		}
	}
}
