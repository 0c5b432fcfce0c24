package types

import "time"

// Overview is the parent row of a trial aggregate. Every child row points
// back at Overview.ID via trial_id.
type Overview struct {
	ID                   string    `json:"id"`
	TherapeuticArea      string    `json:"therapeutic_area"`
	TrialIdentifier      []string  `json:"trial_identifier"`
	TrialPhase           string    `json:"trial_phase"`
	Status               string    `json:"status"`
	PrimaryDrugs         string    `json:"primary_drugs"`
	OtherDrugs           string    `json:"other_drugs"`
	Title                string    `json:"title"`
	DiseaseType          string    `json:"disease_type"`
	PatientSegment       string    `json:"patient_segment"`
	LineOfTherapy        string    `json:"line_of_therapy"`
	ReferenceLinks       []string  `json:"reference_links"`
	TrialTags            string    `json:"trial_tags"`
	SponsorCollaborators string    `json:"sponsor_collaborators"`
	SponsorFieldActivity string    `json:"sponsor_field_activity"`
	AssociatedCRO        string    `json:"associated_cro"`
	Countries            string    `json:"countries"`
	Region               string    `json:"region"`
	TrialRecordStatus    string    `json:"trial_record_status"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// RowHeader carries the columns shared by all child tables.
type RowHeader struct {
	ID        string    `json:"id"`
	TrialID   string    `json:"trial_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Header lets code holding any section row reach the shared columns.
func (h *RowHeader) Header() *RowHeader { return h }

type Outcome struct {
	RowHeader
	OutcomeMeasure string `json:"outcome_measure"`
	TimeFrame      string `json:"time_frame"`
	OutcomeType    string `json:"outcome_type"`
	Description    string `json:"description"`
}

type Criteria struct {
	RowHeader
	InclusionCriteria string `json:"inclusion_criteria"`
	ExclusionCriteria string `json:"exclusion_criteria"`
	AgeFrom           string `json:"age_from"`
	AgeTo             string `json:"age_to"`
	Gender            string `json:"gender"`
	HealthyVolunteers string `json:"healthy_volunteers"`
}

type Timing struct {
	RowHeader
	StartDate             string `json:"start_date"`
	PrimaryCompletionDate string `json:"primary_completion_date"`
	EndDate               string `json:"end_date"`
	EnrollmentStatus      string `json:"enrollment_status"`
	Duration              string `json:"duration"`
}

type Results struct {
	RowHeader
	TrialResults         []string `json:"trial_results"`
	ResultsSummary       string   `json:"results_summary"`
	AdverseEventReported string   `json:"adverse_event_reported"`
	ResultsDate          string   `json:"results_date"`
}

type Site struct {
	RowHeader
	SiteName         string `json:"site_name"`
	SiteLocation     string `json:"site_location"`
	InvestigatorName string `json:"investigator_name"`
	ContactDetails   string `json:"contact_details"`
}

type LogEntry struct {
	RowHeader
	LogDate     string `json:"log_date"`
	LogType     string `json:"log_type"`
	Description string `json:"description"`
}

type Note struct {
	RowHeader
	NoteText string `json:"note_text"`
	Author   string `json:"author"`
}

// OtherSource stores one tagged source payload; Data is the serialized
// form of OtherSourcePayload (see othersource.go).
type OtherSource struct {
	RowHeader
	Data string `json:"data"`
}

// TrialAggregate is the composite the orchestrator hands to callers: the
// overview plus every child collection. Child collections are always
// non-nil so callers never branch on absent keys.
type TrialAggregate struct {
	TrialID string    `json:"trial_id"`
	Data    TrialData `json:"data"`
}

type TrialData struct {
	Overview Overview      `json:"overview"`
	Outcomes []Outcome     `json:"outcomes"`
	Criteria []Criteria    `json:"criteria"`
	Timing   []Timing      `json:"timing"`
	Results  []Results     `json:"results"`
	Sites    []Site        `json:"sites"`
	Other    []OtherSource `json:"other"`
	Logs     []LogEntry    `json:"logs"`
	Notes    []Note        `json:"notes"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
