// Package search evaluates advanced-search criteria against in-memory
// trial aggregates. The same evaluator backs the search endpoint and any
// client that filters a fetched collection locally.
package search

import (
	"strconv"
	"strings"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
)

// Criterion is one (field, operator, value, logic) filter line. Logic
// connects this criterion's result to the NEXT one ("AND"/"OR").
type Criterion struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
	Logic    string `json:"logic"`
}

// fieldResolvers maps logical field names to accessors into the aggregate.
// Child sections resolve through their first row; list fields join with
// ", ". Unknown fields resolve to the empty string.
var fieldResolvers = map[string]func(*types.TrialAggregate) string{
	"therapeutic_area":       func(t *types.TrialAggregate) string { return t.Data.Overview.TherapeuticArea },
	"trial_identifier":       func(t *types.TrialAggregate) string { return strings.Join(t.Data.Overview.TrialIdentifier, ", ") },
	"trial_phase":            func(t *types.TrialAggregate) string { return t.Data.Overview.TrialPhase },
	"status":                 func(t *types.TrialAggregate) string { return t.Data.Overview.Status },
	"primary_drugs":          func(t *types.TrialAggregate) string { return t.Data.Overview.PrimaryDrugs },
	"other_drugs":            func(t *types.TrialAggregate) string { return t.Data.Overview.OtherDrugs },
	"title":                  func(t *types.TrialAggregate) string { return t.Data.Overview.Title },
	"disease_type":           func(t *types.TrialAggregate) string { return t.Data.Overview.DiseaseType },
	"patient_segment":        func(t *types.TrialAggregate) string { return t.Data.Overview.PatientSegment },
	"line_of_therapy":        func(t *types.TrialAggregate) string { return t.Data.Overview.LineOfTherapy },
	"reference_links":        func(t *types.TrialAggregate) string { return strings.Join(t.Data.Overview.ReferenceLinks, ", ") },
	"trial_tags":             func(t *types.TrialAggregate) string { return t.Data.Overview.TrialTags },
	"sponsor_collaborators":  func(t *types.TrialAggregate) string { return t.Data.Overview.SponsorCollaborators },
	"sponsor_field_activity": func(t *types.TrialAggregate) string { return t.Data.Overview.SponsorFieldActivity },
	"associated_cro":         func(t *types.TrialAggregate) string { return t.Data.Overview.AssociatedCRO },
	"countries":              func(t *types.TrialAggregate) string { return t.Data.Overview.Countries },
	"region":                 func(t *types.TrialAggregate) string { return t.Data.Overview.Region },
	"trial_record_status":    func(t *types.TrialAggregate) string { return t.Data.Overview.TrialRecordStatus },

	"outcome_measure": firstOutcome(func(o types.Outcome) string { return o.OutcomeMeasure }),
	"time_frame":      firstOutcome(func(o types.Outcome) string { return o.TimeFrame }),
	"outcome_type":    firstOutcome(func(o types.Outcome) string { return o.OutcomeType }),

	"inclusion_criteria": firstCriteria(func(c types.Criteria) string { return c.InclusionCriteria }),
	"exclusion_criteria": firstCriteria(func(c types.Criteria) string { return c.ExclusionCriteria }),
	"age_from":           firstCriteria(func(c types.Criteria) string { return c.AgeFrom }),
	"age_to":             firstCriteria(func(c types.Criteria) string { return c.AgeTo }),
	"gender":             firstCriteria(func(c types.Criteria) string { return c.Gender }),
	"healthy_volunteers": firstCriteria(func(c types.Criteria) string { return c.HealthyVolunteers }),

	"start_date":        firstTiming(func(x types.Timing) string { return x.StartDate }),
	"end_date":          firstTiming(func(x types.Timing) string { return x.EndDate }),
	"enrollment_status": firstTiming(func(x types.Timing) string { return x.EnrollmentStatus }),

	"trial_results": func(t *types.TrialAggregate) string {
		if len(t.Data.Results) == 0 {
			return ""
		}
		return strings.Join(t.Data.Results[0].TrialResults, ", ")
	},
	"results_summary": func(t *types.TrialAggregate) string {
		if len(t.Data.Results) == 0 {
			return ""
		}
		return t.Data.Results[0].ResultsSummary
	},
	"adverse_event_reported": func(t *types.TrialAggregate) string {
		if len(t.Data.Results) == 0 {
			return ""
		}
		return t.Data.Results[0].AdverseEventReported
	},

	"site_name":         firstSite(func(s types.Site) string { return s.SiteName }),
	"site_location":     firstSite(func(s types.Site) string { return s.SiteLocation }),
	"investigator_name": firstSite(func(s types.Site) string { return s.InvestigatorName }),
}

func firstOutcome(get func(types.Outcome) string) func(*types.TrialAggregate) string {
	return func(t *types.TrialAggregate) string {
		if len(t.Data.Outcomes) == 0 {
			return ""
		}
		return get(t.Data.Outcomes[0])
	}
}

func firstCriteria(get func(types.Criteria) string) func(*types.TrialAggregate) string {
	return func(t *types.TrialAggregate) string {
		if len(t.Data.Criteria) == 0 {
			return ""
		}
		return get(t.Data.Criteria[0])
	}
}

func firstTiming(get func(types.Timing) string) func(*types.TrialAggregate) string {
	return func(t *types.TrialAggregate) string {
		if len(t.Data.Timing) == 0 {
			return ""
		}
		return get(t.Data.Timing[0])
	}
}

func firstSite(get func(types.Site) string) func(*types.TrialAggregate) string {
	return func(t *types.TrialAggregate) string {
		if len(t.Data.Sites) == 0 {
			return ""
		}
		return get(t.Data.Sites[0])
	}
}

// Evaluate folds the criteria left to right: each criterion's own Logic
// field is the connective to the NEXT criterion's result, i.e.
// ((c0 AND/OR c1) AND/OR c2)... . The fold is deliberately
// non-short-circuiting; changing the associativity would change observable
// filter results, so it stays exactly as specified.
func Evaluate(trial types.TrialAggregate, criteria []Criterion) bool {
	if len(criteria) == 0 {
		return true
	}

	result := evalCriterion(&trial, criteria[0])
	logic := criteria[0].Logic
	for _, c := range criteria[1:] {
		next := evalCriterion(&trial, c)
		if strings.EqualFold(strings.TrimSpace(logic), "OR") {
			result = result || next
		} else {
			result = result && next
		}
		logic = c.Logic
	}
	return result
}

// Filter returns the trials that Evaluate admits, preserving order.
func Filter(trials []types.TrialAggregate, criteria []Criterion) []types.TrialAggregate {
	out := make([]types.TrialAggregate, 0, len(trials))
	for _, t := range trials {
		if Evaluate(t, criteria) {
			out = append(out, t)
		}
	}
	return out
}

func evalCriterion(trial *types.TrialAggregate, c Criterion) bool {
	if c.Field == "trial_tags" {
		if tags, ok := valueAsList(c.Value); ok {
			return matchAllTags(trial, tags)
		}
	}

	var fieldVal string
	if resolve, ok := fieldResolvers[c.Field]; ok {
		fieldVal = resolve(trial)
	}

	have := strings.ToLower(strings.TrimSpace(fieldVal))
	want := strings.ToLower(strings.TrimSpace(valueAsString(c.Value)))

	switch strings.ToLower(strings.TrimSpace(c.Operator)) {
	case "is", "equals":
		return have == want
	case "is_not", "not_equals":
		return have != want
	case "starts_with":
		return strings.HasPrefix(have, want)
	case "ends_with":
		return strings.HasSuffix(have, want)
	case "greater_than":
		return compareNumeric(have, want, func(a, b float64) bool { return a > b })
	case "greater_than_equal":
		return compareNumeric(have, want, func(a, b float64) bool { return a >= b })
	case "less_than":
		return compareNumeric(have, want, func(a, b float64) bool { return a < b })
	case "less_than_equal":
		return compareNumeric(have, want, func(a, b float64) bool { return a <= b })
	default:
		return strings.Contains(have, want)
	}
}

// matchAllTags requires every supplied tag to appear in the combined
// trial_tags + disease_type text, by substring or tokenized exact match.
func matchAllTags(trial *types.TrialAggregate, tags []string) bool {
	hay := strings.ToLower(trial.Data.Overview.TrialTags + " " + trial.Data.Overview.DiseaseType)
	tokens := strings.FieldsFunc(hay, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		found := strings.Contains(hay, tag)
		for _, tok := range tokens {
			if found {
				break
			}
			found = tok == tag
		}
		if !found {
			return false
		}
	}
	return true
}

func compareNumeric(have, want string, cmp func(a, b float64) bool) bool {
	a, err := strconv.ParseFloat(have, 64)
	if err != nil {
		return false
	}
	b, err := strconv.ParseFloat(want, 64)
	if err != nil {
		return false
	}
	return cmp(a, b)
}

func valueAsList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, valueAsString(e))
		}
		return out, true
	default:
		return nil, false
	}
}

func valueAsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
