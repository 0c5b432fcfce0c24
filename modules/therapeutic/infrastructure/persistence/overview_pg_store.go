package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/ports"
	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
	"github.com/trialdesk/trialdesk/pkg/uuidv7"
)

const overviewTable = "therapeutic_trial_overview"

const overviewColumns = `id, therapeutic_area, trial_identifier, trial_phase, status,
	primary_drugs, other_drugs, title, disease_type, patient_segment, line_of_therapy,
	reference_links, trial_tags, sponsor_collaborators, sponsor_field_activity,
	associated_cro, countries, region, trial_record_status, created_at, updated_at`

type OverviewPGStore struct {
	db querier
}

func NewOverviewPGStore(pool *pgxpool.Pool) ports.OverviewStore {
	return &OverviewPGStore{db: pool}
}

func scanOverview(row pgx.Row) (types.Overview, error) {
	var o types.Overview
	err := row.Scan(
		&o.ID, &o.TherapeuticArea, &o.TrialIdentifier, &o.TrialPhase, &o.Status,
		&o.PrimaryDrugs, &o.OtherDrugs, &o.Title, &o.DiseaseType, &o.PatientSegment,
		&o.LineOfTherapy, &o.ReferenceLinks, &o.TrialTags, &o.SponsorCollaborators,
		&o.SponsorFieldActivity, &o.AssociatedCRO, &o.Countries, &o.Region,
		&o.TrialRecordStatus, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func (s *OverviewPGStore) Create(ctx context.Context, ov types.Overview) (types.Overview, error) {
	id, err := uuidv7.NewString()
	if err != nil {
		return types.Overview{}, err
	}
	ov.ID = id

	err = s.db.QueryRow(ctx, `
	INSERT INTO `+overviewTable+` (
	  id, therapeutic_area, trial_identifier, trial_phase, status,
	  primary_drugs, other_drugs, title, disease_type, patient_segment, line_of_therapy,
	  reference_links, trial_tags, sponsor_collaborators, sponsor_field_activity,
	  associated_cro, countries, region, trial_record_status
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	RETURNING created_at, updated_at
	`,
		ov.ID, ov.TherapeuticArea, ov.TrialIdentifier, ov.TrialPhase, ov.Status,
		ov.PrimaryDrugs, ov.OtherDrugs, ov.Title, ov.DiseaseType, ov.PatientSegment,
		ov.LineOfTherapy, ov.ReferenceLinks, ov.TrialTags, ov.SponsorCollaborators,
		ov.SponsorFieldActivity, ov.AssociatedCRO, ov.Countries, ov.Region,
		ov.TrialRecordStatus,
	).Scan(&ov.CreatedAt, &ov.UpdatedAt)
	if err != nil {
		return types.Overview{}, err
	}
	return ov, nil
}

func (s *OverviewPGStore) FindByID(ctx context.Context, id string) (types.Overview, error) {
	o, err := scanOverview(s.db.QueryRow(ctx,
		`SELECT `+overviewColumns+` FROM `+overviewTable+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Overview{}, ports.ErrNotFound
	}
	return o, err
}

func (s *OverviewPGStore) FindAll(ctx context.Context) ([]types.Overview, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+overviewColumns+` FROM `+overviewTable+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Overview
	for rows.Next() {
		o, err := scanOverview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OverviewPGStore) Update(ctx context.Context, id string, ov types.Overview) (types.Overview, error) {
	err := s.db.QueryRow(ctx, `
	UPDATE `+overviewTable+` SET
	  therapeutic_area = $2, trial_identifier = $3, trial_phase = $4, status = $5,
	  primary_drugs = $6, other_drugs = $7, title = $8, disease_type = $9,
	  patient_segment = $10, line_of_therapy = $11, reference_links = $12,
	  trial_tags = $13, sponsor_collaborators = $14, sponsor_field_activity = $15,
	  associated_cro = $16, countries = $17, region = $18, trial_record_status = $19,
	  updated_at = now()
	WHERE id = $1
	RETURNING created_at, updated_at
	`,
		id, ov.TherapeuticArea, ov.TrialIdentifier, ov.TrialPhase, ov.Status,
		ov.PrimaryDrugs, ov.OtherDrugs, ov.Title, ov.DiseaseType, ov.PatientSegment,
		ov.LineOfTherapy, ov.ReferenceLinks, ov.TrialTags, ov.SponsorCollaborators,
		ov.SponsorFieldActivity, ov.AssociatedCRO, ov.Countries, ov.Region,
		ov.TrialRecordStatus,
	).Scan(&ov.CreatedAt, &ov.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Overview{}, ports.ErrNotFound
	}
	if err != nil {
		return types.Overview{}, err
	}
	ov.ID = id
	return ov, nil
}

func (s *OverviewPGStore) Delete(ctx context.Context, id string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM `+overviewTable+` WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
