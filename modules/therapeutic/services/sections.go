package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/ports"
	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
)

// Section names accepted by the per-section endpoints.
const (
	SectionOutcome  = "outcome"
	SectionCriteria = "criteria"
	SectionTiming   = "timing"
	SectionResults  = "results"
	SectionSites    = "sites"
	SectionLogs     = "logs"
	SectionNotes    = "notes"
)

// UpdateOverview merges the coerced payload onto the stored overview row.
// Fields absent from the payload keep their stored values.
func (t *TrialService) UpdateOverview(ctx context.Context, trialID string, userID string, payload map[string]any) (types.Overview, error) {
	var zero types.Overview

	if strings.TrimSpace(trialID) == "" {
		return zero, ErrMissingTrialID
	}
	if strings.TrimSpace(userID) == "" {
		return zero, ErrMissingUserID
	}
	if len(payload) == 0 {
		return zero, ErrMissingOverview
	}

	existing, err := t.stores.Overview.FindByID(ctx, trialID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return zero, ErrTrialNotFound
		}
		return zero, err
	}

	merged, err := mergeOverview(existing, applySchema(overviewSchema, payload))
	if err != nil {
		return zero, err
	}
	updated, err := t.stores.Overview.Update(ctx, trialID, merged)
	if err != nil {
		return zero, err
	}

	fields := make([]string, 0, len(payload))
	for k := range payload {
		fields = append(fields, k)
	}
	t.stores.Activity.Record(ctx, ports.ActivityEntry{
		UserID:        userID,
		TableName:     overviewTableName,
		RecordID:      trialID,
		ActionType:    "UPDATE",
		ChangeDetails: map[string]any{"updated_fields": fields},
	})
	return updated, nil
}

func mergeOverview(existing types.Overview, coerced map[string]any) (types.Overview, error) {
	b, err := json.Marshal(existing)
	if err != nil {
		return types.Overview{}, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return types.Overview{}, err
	}
	for k, v := range coerced {
		m[k] = v
	}
	return decodeSection[types.Overview](m)
}

// ListSection returns one child collection of a trial; the result is
// always a non-nil slice.
func (t *TrialService) ListSection(ctx context.Context, trialID string, section string) (any, error) {
	if strings.TrimSpace(trialID) == "" {
		return nil, ErrMissingTrialID
	}
	if _, err := t.stores.Overview.FindByID(ctx, trialID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, ErrTrialNotFound
		}
		return nil, err
	}

	switch section {
	case SectionOutcome:
		return listSection(ctx, t.stores.Outcomes, trialID)
	case SectionCriteria:
		return listSection(ctx, t.stores.Criteria, trialID)
	case SectionTiming:
		return listSection(ctx, t.stores.Timing, trialID)
	case SectionResults:
		return listSection(ctx, t.stores.Results, trialID)
	case SectionSites:
		return listSection(ctx, t.stores.Sites, trialID)
	case SectionLogs:
		return listSection(ctx, t.stores.Logs, trialID)
	case SectionNotes:
		return listSection(ctx, t.stores.Notes, trialID)
	default:
		return nil, ErrUnknownSection
	}
}

func listSection[T any](ctx context.Context, store ports.SectionStore[T], trialID string) (any, error) {
	rows, err := store.FindByTrialID(ctx, trialID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// UpsertSection updates the trial's row in one section, creating it when
// the section was never filled in. Incremental path next to the aggregate
// create.
func (t *TrialService) UpsertSection(ctx context.Context, trialID string, userID string, section string, payload map[string]any) (any, error) {
	if strings.TrimSpace(trialID) == "" {
		return nil, ErrMissingTrialID
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	if _, err := t.stores.Overview.FindByID(ctx, trialID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, ErrTrialNotFound
		}
		return nil, err
	}

	switch section {
	case SectionOutcome:
		return upsertSection(ctx, t, t.stores.Outcomes, outcomeTableName, trialID, userID, outcomeSchema, payload)
	case SectionCriteria:
		return upsertSection(ctx, t, t.stores.Criteria, criteriaTableName, trialID, userID, criteriaSchema, payload)
	case SectionTiming:
		return upsertSection(ctx, t, t.stores.Timing, timingTableName, trialID, userID, timingSchema, payload)
	case SectionResults:
		return upsertSection(ctx, t, t.stores.Results, resultsTableName, trialID, userID, resultsSchema, payload)
	case SectionSites:
		return upsertSection(ctx, t, t.stores.Sites, sitesTableName, trialID, userID, sitesSchema, payload)
	case SectionLogs:
		return upsertSection(ctx, t, t.stores.Logs, logsTableName, trialID, userID, logsSchema, payload)
	case SectionNotes:
		return upsertSection(ctx, t, t.stores.Notes, notesTableName, trialID, userID, notesSchema, payload)
	default:
		return nil, ErrUnknownSection
	}
}

func upsertSection[T any](ctx context.Context, t *TrialService, store ports.SectionStore[T], table string, trialID string, userID string, schema coerceSchema, payload map[string]any) (any, error) {
	row, err := decodeSection[T](applySchema(schema, payload))
	if err != nil {
		return nil, err
	}

	existing, err := store.FindByTrialID(ctx, trialID)
	if err != nil {
		return nil, err
	}

	if len(existing) == 0 {
		created, err := store.Create(ctx, trialID, row)
		if err != nil {
			return nil, err
		}
		t.stores.Activity.Record(ctx, ports.ActivityEntry{
			UserID:        userID,
			TableName:     table,
			RecordID:      any(&created).(headered).Header().ID,
			ActionType:    "INSERT",
			ChangeDetails: map[string]any{"trial_id": trialID},
		})
		return created, nil
	}

	updated, err := store.UpdateByTrialID(ctx, trialID, row)
	if err != nil {
		return nil, err
	}
	t.stores.Activity.Record(ctx, ports.ActivityEntry{
		UserID:        userID,
		TableName:     table,
		RecordID:      any(&updated).(headered).Header().ID,
		ActionType:    "UPDATE",
		ChangeDetails: map[string]any{"trial_id": trialID},
	})
	return updated, nil
}
