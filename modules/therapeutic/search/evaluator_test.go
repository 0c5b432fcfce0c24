package search

import (
	"testing"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
)

func trialWith(ov types.Overview) types.TrialAggregate {
	return types.TrialAggregate{TrialID: ov.ID, Data: types.TrialData{Overview: ov}}
}

func TestEvaluate_Operators(t *testing.T) {
	t.Parallel()

	trial := trialWith(types.Overview{
		Title:      "Phase II Oncology Study",
		Status:     "Recruiting",
		TrialPhase: "Phase II",
	})

	cases := []struct {
		name string
		c    Criterion
		want bool
	}{
		{"is case-insensitive", Criterion{Field: "status", Operator: "is", Value: "recruiting"}, true},
		{"equals alias", Criterion{Field: "status", Operator: "equals", Value: "Recruiting"}, true},
		{"is mismatch", Criterion{Field: "status", Operator: "is", Value: "Completed"}, false},
		{"is_not", Criterion{Field: "status", Operator: "is_not", Value: "Completed"}, true},
		{"contains default", Criterion{Field: "title", Operator: "", Value: "oncology"}, true},
		{"contains explicit", Criterion{Field: "title", Operator: "contains", Value: "ONCOLOGY"}, true},
		{"starts_with", Criterion{Field: "title", Operator: "starts_with", Value: "phase ii"}, true},
		{"ends_with", Criterion{Field: "title", Operator: "ends_with", Value: "study"}, true},
		{"unknown field empty", Criterion{Field: "no_such_field", Operator: "is", Value: ""}, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(trial, []Criterion{tc.c}); got != tc.want {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestEvaluate_NumericComparisons(t *testing.T) {
	t.Parallel()

	trial := types.TrialAggregate{Data: types.TrialData{
		Criteria: []types.Criteria{{AgeFrom: "18", AgeTo: "65"}},
	}}

	if !Evaluate(trial, []Criterion{{Field: "age_from", Operator: "greater_than_equal", Value: float64(18)}}) {
		t.Fatal("18 >= 18 should match")
	}
	if Evaluate(trial, []Criterion{{Field: "age_from", Operator: "greater_than", Value: float64(18)}}) {
		t.Fatal("18 > 18 should not match")
	}
	if !Evaluate(trial, []Criterion{{Field: "age_to", Operator: "less_than", Value: "70"}}) {
		t.Fatal("65 < 70 should match")
	}
	// Non-numeric field values never satisfy numeric operators.
	empty := types.TrialAggregate{}
	if Evaluate(empty, []Criterion{{Field: "age_from", Operator: "less_than", Value: "70"}}) {
		t.Fatal("empty value should not compare")
	}
}

func TestEvaluate_FoldIsLeftAssociative(t *testing.T) {
	t.Parallel()

	trial := trialWith(types.Overview{Status: "Recruiting", TrialPhase: "Phase II"})

	// (false OR true) AND true = true: the first criterion's logic binds
	// its result to the second, the second's to the third.
	got := Evaluate(trial, []Criterion{
		{Field: "status", Operator: "is", Value: "Completed", Logic: "OR"},
		{Field: "status", Operator: "is", Value: "Recruiting", Logic: "AND"},
		{Field: "trial_phase", Operator: "is", Value: "Phase II"},
	})
	if !got {
		t.Fatal("expected (false OR true) AND true = true")
	}

	// (true OR false) AND false = false, whereas right-associative
	// grouping true OR (false AND false) would give true.
	got = Evaluate(trial, []Criterion{
		{Field: "status", Operator: "is", Value: "Recruiting", Logic: "OR"},
		{Field: "status", Operator: "is", Value: "Completed", Logic: "AND"},
		{Field: "trial_phase", Operator: "is", Value: "Phase IX"},
	})
	if got {
		t.Fatal("expected (true OR false) AND false = false")
	}
}

func TestEvaluate_EmptyCriteriaMatchesAll(t *testing.T) {
	t.Parallel()

	if !Evaluate(types.TrialAggregate{}, nil) {
		t.Fatal("empty criteria must match")
	}
}

func TestEvaluate_TrialTagsAllOf(t *testing.T) {
	t.Parallel()

	trial := trialWith(types.Overview{
		TrialTags:   "immunotherapy, checkpoint-inhibitor",
		DiseaseType: "melanoma",
	})

	if !Evaluate(trial, []Criterion{{Field: "trial_tags", Value: []any{"immunotherapy", "melanoma"}}}) {
		t.Fatal("all tags present should match")
	}
	if Evaluate(trial, []Criterion{{Field: "trial_tags", Value: []any{"immunotherapy", "lung"}}}) {
		t.Fatal("one missing tag should fail")
	}
	// Scalar value falls back to plain string matching on the tags field.
	if !Evaluate(trial, []Criterion{{Field: "trial_tags", Operator: "contains", Value: "checkpoint"}}) {
		t.Fatal("substring on scalar value should match")
	}
}

func TestEvaluate_SectionFields(t *testing.T) {
	t.Parallel()

	trial := types.TrialAggregate{Data: types.TrialData{
		Outcomes: []types.Outcome{{OutcomeMeasure: "Overall survival"}},
		Sites:    []types.Site{{SiteName: "General Hospital"}},
		Results:  []types.Results{{TrialResults: []string{"positive", "published"}}},
	}}

	if !Evaluate(trial, []Criterion{{Field: "outcome_measure", Operator: "contains", Value: "survival"}}) {
		t.Fatal("outcome field should resolve through first row")
	}
	if !Evaluate(trial, []Criterion{{Field: "site_name", Operator: "is", Value: "general hospital"}}) {
		t.Fatal("site field should resolve")
	}
	if !Evaluate(trial, []Criterion{{Field: "trial_results", Operator: "contains", Value: "published"}}) {
		t.Fatal("list field should join for matching")
	}
	// Absent section rows resolve to the empty string.
	if Evaluate(trial, []Criterion{{Field: "start_date", Operator: "is", Value: "2026-01-01"}}) {
		t.Fatal("missing timing should not match")
	}
}

func TestFilter_PreservesOrder(t *testing.T) {
	t.Parallel()

	trials := []types.TrialAggregate{
		trialWith(types.Overview{ID: "a", Status: "Recruiting"}),
		trialWith(types.Overview{ID: "b", Status: "Completed"}),
		trialWith(types.Overview{ID: "c", Status: "Recruiting"}),
	}

	got := Filter(trials, []Criterion{{Field: "status", Operator: "is", Value: "Recruiting"}})
	if len(got) != 2 || got[0].TrialID != "a" || got[1].TrialID != "c" {
		t.Fatalf("got=%+v", got)
	}
}
