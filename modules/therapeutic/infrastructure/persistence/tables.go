package persistence

import (
	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
)

// TableMeta binds a section row type to its physical table. Columns lists
// the payload columns between (id, trial_id) and (created_at, updated_at);
// Fields returns pointers to the struct fields in the same order, used for
// both Scan destinations and Exec arguments. Header exposes the shared
// id/trial_id/timestamps block.
type TableMeta[T any] struct {
	Table   string
	Columns []string
	Fields  func(row *T) []any
	Header  func(row *T) *types.RowHeader
}

var outcomeMeta = TableMeta[types.Outcome]{
	Table:   "therapeutic_trial_outcome",
	Columns: []string{"outcome_measure", "time_frame", "outcome_type", "description"},
	Fields: func(r *types.Outcome) []any {
		return []any{&r.OutcomeMeasure, &r.TimeFrame, &r.OutcomeType, &r.Description}
	},
	Header: func(r *types.Outcome) *types.RowHeader { return &r.RowHeader },
}

var criteriaMeta = TableMeta[types.Criteria]{
	Table:   "therapeutic_trial_criteria",
	Columns: []string{"inclusion_criteria", "exclusion_criteria", "age_from", "age_to", "gender", "healthy_volunteers"},
	Fields: func(r *types.Criteria) []any {
		return []any{&r.InclusionCriteria, &r.ExclusionCriteria, &r.AgeFrom, &r.AgeTo, &r.Gender, &r.HealthyVolunteers}
	},
	Header: func(r *types.Criteria) *types.RowHeader { return &r.RowHeader },
}

var timingMeta = TableMeta[types.Timing]{
	Table:   "therapeutic_trial_timing",
	Columns: []string{"start_date", "primary_completion_date", "end_date", "enrollment_status", "duration"},
	Fields: func(r *types.Timing) []any {
		return []any{&r.StartDate, &r.PrimaryCompletionDate, &r.EndDate, &r.EnrollmentStatus, &r.Duration}
	},
	Header: func(r *types.Timing) *types.RowHeader { return &r.RowHeader },
}

var resultsMeta = TableMeta[types.Results]{
	Table:   "therapeutic_trial_results",
	Columns: []string{"trial_results", "results_summary", "adverse_event_reported", "results_date"},
	Fields: func(r *types.Results) []any {
		return []any{&r.TrialResults, &r.ResultsSummary, &r.AdverseEventReported, &r.ResultsDate}
	},
	Header: func(r *types.Results) *types.RowHeader { return &r.RowHeader },
}

var siteMeta = TableMeta[types.Site]{
	Table:   "therapeutic_trial_sites",
	Columns: []string{"site_name", "site_location", "investigator_name", "contact_details"},
	Fields: func(r *types.Site) []any {
		return []any{&r.SiteName, &r.SiteLocation, &r.InvestigatorName, &r.ContactDetails}
	},
	Header: func(r *types.Site) *types.RowHeader { return &r.RowHeader },
}

var logMeta = TableMeta[types.LogEntry]{
	Table:   "therapeutic_trial_logs",
	Columns: []string{"log_date", "log_type", "description"},
	Fields: func(r *types.LogEntry) []any {
		return []any{&r.LogDate, &r.LogType, &r.Description}
	},
	Header: func(r *types.LogEntry) *types.RowHeader { return &r.RowHeader },
}

var noteMeta = TableMeta[types.Note]{
	Table:   "therapeutic_trial_notes",
	Columns: []string{"note_text", "author"},
	Fields: func(r *types.Note) []any {
		return []any{&r.NoteText, &r.Author}
	},
	Header: func(r *types.Note) *types.RowHeader { return &r.RowHeader },
}

var otherSourceMeta = TableMeta[types.OtherSource]{
	Table:   "therapeutic_trial_other_sources",
	Columns: []string{"data"},
	Fields: func(r *types.OtherSource) []any {
		return []any{&r.Data}
	},
	Header: func(r *types.OtherSource) *types.RowHeader { return &r.RowHeader },
}
