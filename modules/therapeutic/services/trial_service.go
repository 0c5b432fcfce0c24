package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/ports"
	"github.com/trialdesk/trialdesk/modules/therapeutic/domain/types"
	"github.com/trialdesk/trialdesk/modules/therapeutic/search"
)

// Audit table names, matching the physical schema.
const (
	overviewTableName    = "therapeutic_trial_overview"
	outcomeTableName     = "therapeutic_trial_outcome"
	criteriaTableName    = "therapeutic_trial_criteria"
	timingTableName      = "therapeutic_trial_timing"
	resultsTableName     = "therapeutic_trial_results"
	sitesTableName       = "therapeutic_trial_sites"
	otherSourceTableName = "therapeutic_trial_other_sources"
	logsTableName        = "therapeutic_trial_logs"
	notesTableName       = "therapeutic_trial_notes"
	summaryTableName     = "therapeutic_trial_summary"
)

// Stores bundles the nine repositories and the audit recorder the
// orchestrator fans out over.
type Stores struct {
	Overview ports.OverviewStore
	Outcomes ports.SectionStore[types.Outcome]
	Criteria ports.SectionStore[types.Criteria]
	Timing   ports.SectionStore[types.Timing]
	Results  ports.SectionStore[types.Results]
	Sites    ports.SectionStore[types.Site]
	Other    ports.SectionStore[types.OtherSource]
	Logs     ports.SectionStore[types.LogEntry]
	Notes    ports.SectionStore[types.Note]
	Activity ports.ActivityRecorder
}

// TrialService presents a trial as one addressable unit over nine
// physically separate tables. No transaction spans the fan-out: each
// statement commits on its own, so a mid-sequence failure leaves the
// already-written rows in place and the error reports how far it got.
type TrialService struct {
	stores Stores
}

func NewTrialService(stores Stores) *TrialService {
	return &TrialService{stores: stores}
}

// CreateTrialRequest is the loosely-typed create payload: sections are
// raw maps so the coercion schemas can normalize them before decoding.
type CreateTrialRequest struct {
	UserID       string         `json:"user_id"`
	Overview     map[string]any `json:"overview"`
	Outcome      map[string]any `json:"outcome"`
	Criteria     map[string]any `json:"criteria"`
	Timing       map[string]any `json:"timing"`
	Results      map[string]any `json:"results"`
	Sites        map[string]any `json:"sites"`
	Logs         map[string]any `json:"logs"`
	Notes        map[string]any `json:"notes"`
	Other        map[string]any `json:"other"`
	OtherSources map[string]any `json:"other_sources"`
}

type CreateTrialData struct {
	Overview types.Overview      `json:"overview"`
	Outcome  *types.Outcome      `json:"outcome,omitempty"`
	Criteria *types.Criteria     `json:"criteria,omitempty"`
	Timing   *types.Timing       `json:"timing,omitempty"`
	Results  *types.Results      `json:"results,omitempty"`
	Sites    *types.Site         `json:"sites,omitempty"`
	Other    []types.OtherSource `json:"other,omitempty"`
	Logs     *types.LogEntry     `json:"logs,omitempty"`
	Notes    *types.Note         `json:"notes,omitempty"`
}

type CreateTrialResult struct {
	TrialID         string          `json:"trial_id"`
	TrialIdentifier any             `json:"trial_identifier"`
	Data            CreateTrialData `json:"data"`
}

type headered interface {
	Header() *types.RowHeader
}

func (t *TrialService) CreateTrial(ctx context.Context, req CreateTrialRequest) (CreateTrialResult, error) {
	var zero CreateTrialResult

	if strings.TrimSpace(req.UserID) == "" {
		return zero, ErrMissingUserID
	}
	if req.Overview == nil {
		return zero, ErrMissingOverview
	}

	ov, err := decodeSection[types.Overview](applySchema(overviewSchema, req.Overview))
	if err != nil {
		return zero, err
	}
	created, err := t.stores.Overview.Create(ctx, ov)
	if err != nil {
		return zero, err
	}

	t.stores.Activity.Record(ctx, ports.ActivityEntry{
		UserID:     req.UserID,
		TableName:  overviewTableName,
		RecordID:   created.ID,
		ActionType: "INSERT",
		ChangeDetails: map[string]any{
			"title":       created.Title,
			"trial_phase": created.TrialPhase,
			"status":      created.Status,
		},
	})

	res := CreateTrialResult{TrialID: created.ID}
	res.Data.Overview = created
	sections := []string{"overview"}

	if req.Outcome != nil {
		row, err := createSection(ctx, t, t.stores.Outcomes, outcomeTableName, created.ID, req.UserID, outcomeSchema, req.Outcome)
		if err != nil {
			return zero, err
		}
		res.Data.Outcome = row
		sections = append(sections, "outcome")
	}
	if req.Criteria != nil {
		row, err := createSection(ctx, t, t.stores.Criteria, criteriaTableName, created.ID, req.UserID, criteriaSchema, req.Criteria)
		if err != nil {
			return zero, err
		}
		res.Data.Criteria = row
		sections = append(sections, "criteria")
	}
	if req.Timing != nil {
		row, err := createSection(ctx, t, t.stores.Timing, timingTableName, created.ID, req.UserID, timingSchema, req.Timing)
		if err != nil {
			return zero, err
		}
		res.Data.Timing = row
		sections = append(sections, "timing")
	}
	if req.Results != nil {
		row, err := createSection(ctx, t, t.stores.Results, resultsTableName, created.ID, req.UserID, resultsSchema, req.Results)
		if err != nil {
			return zero, err
		}
		res.Data.Results = row
		sections = append(sections, "results")
	}
	if req.Sites != nil {
		row, err := createSection(ctx, t, t.stores.Sites, sitesTableName, created.ID, req.UserID, sitesSchema, req.Sites)
		if err != nil {
			return zero, err
		}
		res.Data.Sites = row
		sections = append(sections, "sites")
	}
	if req.Logs != nil {
		row, err := createSection(ctx, t, t.stores.Logs, logsTableName, created.ID, req.UserID, logsSchema, req.Logs)
		if err != nil {
			return zero, err
		}
		res.Data.Logs = row
		sections = append(sections, "logs")
	}
	if req.Notes != nil {
		row, err := createSection(ctx, t, t.stores.Notes, notesTableName, created.ID, req.UserID, notesSchema, req.Notes)
		if err != nil {
			return zero, err
		}
		res.Data.Notes = row
		sections = append(sections, "notes")
	}

	otherPayload := req.OtherSources
	if otherPayload == nil {
		otherPayload = req.Other
	}
	if otherPayload != nil {
		rows, err := t.createOtherSources(ctx, created.ID, req.UserID, otherPayload)
		if err != nil {
			return zero, err
		}
		res.Data.Other = rows
		sections = append(sections, "other_sources")
	}

	t.stores.Activity.Record(ctx, ports.ActivityEntry{
		UserID:     req.UserID,
		TableName:  summaryTableName,
		RecordID:   created.ID,
		ActionType: "INSERT",
		ChangeDetails: map[string]any{
			"title":            created.Title,
			"trial_phase":      created.TrialPhase,
			"status":           created.Status,
			"sections_created": sections,
		},
	})

	if len(created.TrialIdentifier) > 0 {
		res.TrialIdentifier = created.TrialIdentifier[0]
	}
	return res, nil
}

func createSection[T any](ctx context.Context, t *TrialService, store ports.SectionStore[T], table string, trialID string, userID string, schema coerceSchema, payload map[string]any) (*T, error) {
	row, err := decodeSection[T](applySchema(schema, payload))
	if err != nil {
		return nil, err
	}
	created, err := store.Create(ctx, trialID, row)
	if err != nil {
		return nil, err
	}

	recordID := any(&created).(headered).Header().ID
	t.stores.Activity.Record(ctx, ports.ActivityEntry{
		UserID:        userID,
		TableName:     table,
		RecordID:      recordID,
		ActionType:    "INSERT",
		ChangeDetails: map[string]any{"trial_id": trialID},
	})
	return &created, nil
}

// createOtherSources multiplexes the tagged categories into the single
// other-sources table. The multi-category shape logs one aggregate entry;
// the legacy flat shape inserts one row and logs it individually.
func (t *TrialService) createOtherSources(ctx context.Context, trialID string, userID string, payload map[string]any) ([]types.OtherSource, error) {
	var present []string
	for _, cat := range types.KnownOtherSourceTypes {
		if _, ok := payload[string(cat)]; ok {
			present = append(present, string(cat))
		}
	}

	if len(present) == 0 {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data, err := types.OtherSourcePayload{Type: types.OtherSourceLegacy, Raw: string(raw)}.Encode()
		if err != nil {
			return nil, err
		}
		row, err := t.stores.Other.Create(ctx, trialID, types.OtherSource{Data: data})
		if err != nil {
			return nil, err
		}
		t.stores.Activity.Record(ctx, ports.ActivityEntry{
			UserID:        userID,
			TableName:     otherSourceTableName,
			RecordID:      row.ID,
			ActionType:    "INSERT",
			ChangeDetails: map[string]any{"trial_id": trialID, "type": string(types.OtherSourceLegacy)},
		})
		return []types.OtherSource{row}, nil
	}

	var rows []types.OtherSource
	for _, cat := range types.KnownOtherSourceTypes {
		items, ok := payload[string(cat)].([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			fields, ok := item.(map[string]any)
			if !ok {
				continue
			}
			data, err := buildOtherSourcePayload(cat, fields).Encode()
			if err != nil {
				return nil, err
			}
			row, err := t.stores.Other.Create(ctx, trialID, types.OtherSource{Data: data})
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}

	t.stores.Activity.Record(ctx, ports.ActivityEntry{
		UserID:     userID,
		TableName:  otherSourceTableName,
		RecordID:   trialID,
		ActionType: "INSERT",
		ChangeDetails: map[string]any{
			"trial_id": trialID,
			"count":    len(rows),
			"sections": present,
		},
	})
	return rows, nil
}

func buildOtherSourcePayload(cat types.OtherSourceType, fields map[string]any) types.OtherSourcePayload {
	p := types.OtherSourcePayload{Type: cat}
	switch cat {
	case types.OtherSourcePipelineData:
		p.Date = scalarString(fields["date"])
		p.Information = scalarString(fields["information"])
		p.URL = scalarString(fields["url"])
		p.File = scalarString(fields["file"])
	case types.OtherSourcePressRelease, types.OtherSourcePublication:
		p.Date = scalarString(fields["date"])
		p.Title = scalarString(fields["title"])
		p.URL = scalarString(fields["url"])
		p.File = scalarString(fields["file"])
	case types.OtherSourceTrialRegistry:
		p.Registry = scalarString(fields["registry"])
		p.Identifier = scalarString(fields["identifier"])
		p.URL = scalarString(fields["url"])
		p.Date = scalarString(fields["date"])
	case types.OtherSourceAssociatedStudy:
		p.StudyType = scalarString(fields["study_type"])
		if p.StudyType == "" {
			p.StudyType = scalarString(fields["studyType"])
		}
		p.Title = scalarString(fields["title"])
		p.URL = scalarString(fields["url"])
	}
	return p
}

func (t *TrialService) FetchTrial(ctx context.Context, trialID string) (types.TrialAggregate, error) {
	var zero types.TrialAggregate

	if strings.TrimSpace(trialID) == "" {
		return zero, ErrMissingTrialID
	}
	ov, err := t.stores.Overview.FindByID(ctx, trialID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return zero, ErrTrialNotFound
		}
		return zero, err
	}

	agg := types.TrialAggregate{TrialID: trialID, Data: types.TrialData{Overview: ov}}
	if err := t.loadChildren(ctx, &agg); err != nil {
		return zero, err
	}
	return agg, nil
}

type TrialList struct {
	TotalTrials int                    `json:"total_trials"`
	Trials      []types.TrialAggregate `json:"trials"`
}

// FetchAllTrials materializes every trial with all child collections, a
// fan-out of fan-outs. No pagination: full materialization is the
// documented behavior at the scale this system targets.
func (t *TrialService) FetchAllTrials(ctx context.Context) (TrialList, error) {
	overviews, err := t.stores.Overview.FindAll(ctx)
	if err != nil {
		return TrialList{}, err
	}

	trials := make([]types.TrialAggregate, len(overviews))
	g, gctx := errgroup.WithContext(ctx)
	for i := range overviews {
		i := i
		g.Go(func() error {
			trials[i] = types.TrialAggregate{
				TrialID: overviews[i].ID,
				Data:    types.TrialData{Overview: overviews[i]},
			}
			return t.loadChildren(gctx, &trials[i])
		})
	}
	if err := g.Wait(); err != nil {
		return TrialList{}, err
	}
	return TrialList{TotalTrials: len(trials), Trials: trials}, nil
}

// loadChildren fetches the eight child collections concurrently. Every
// goroutine writes a distinct aggregate field. Collections default to
// empty, never nil.
func (t *TrialService) loadChildren(ctx context.Context, agg *types.TrialAggregate) error {
	g, ctx := errgroup.WithContext(ctx)
	trialID := agg.TrialID

	g.Go(func() error {
		rows, err := t.stores.Outcomes.FindByTrialID(ctx, trialID)
		if err != nil {
			return err
		}
		agg.Data.Outcomes = rows
		return nil
	})
	g.Go(func() error {
		rows, err := t.stores.Criteria.FindByTrialID(ctx, trialID)
		if err != nil {
			return err
		}
		agg.Data.Criteria = rows
		return nil
	})
	g.Go(func() error {
		rows, err := t.stores.Timing.FindByTrialID(ctx, trialID)
		if err != nil {
			return err
		}
		agg.Data.Timing = rows
		return nil
	})
	g.Go(func() error {
		rows, err := t.stores.Results.FindByTrialID(ctx, trialID)
		if err != nil {
			return err
		}
		agg.Data.Results = rows
		return nil
	})
	g.Go(func() error {
		rows, err := t.stores.Sites.FindByTrialID(ctx, trialID)
		if err != nil {
			return err
		}
		agg.Data.Sites = rows
		return nil
	})
	g.Go(func() error {
		rows, err := t.stores.Other.FindByTrialID(ctx, trialID)
		if err != nil {
			return err
		}
		agg.Data.Other = rows
		return nil
	})
	g.Go(func() error {
		rows, err := t.stores.Logs.FindByTrialID(ctx, trialID)
		if err != nil {
			return err
		}
		agg.Data.Logs = rows
		return nil
	})
	g.Go(func() error {
		rows, err := t.stores.Notes.FindByTrialID(ctx, trialID)
		if err != nil {
			return err
		}
		agg.Data.Notes = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if agg.Data.Outcomes == nil {
		agg.Data.Outcomes = []types.Outcome{}
	}
	if agg.Data.Criteria == nil {
		agg.Data.Criteria = []types.Criteria{}
	}
	if agg.Data.Timing == nil {
		agg.Data.Timing = []types.Timing{}
	}
	if agg.Data.Results == nil {
		agg.Data.Results = []types.Results{}
	}
	if agg.Data.Sites == nil {
		agg.Data.Sites = []types.Site{}
	}
	if agg.Data.Other == nil {
		agg.Data.Other = []types.OtherSource{}
	}
	if agg.Data.Logs == nil {
		agg.Data.Logs = []types.LogEntry{}
	}
	if agg.Data.Notes == nil {
		agg.Data.Notes = []types.Note{}
	}
	return nil
}

type TrialInfo struct {
	TrialID         string   `json:"trial_id"`
	Title           string   `json:"title"`
	TrialPhase      string   `json:"trial_phase"`
	Status          string   `json:"status"`
	TrialIdentifier []string `json:"trial_identifier"`
}

type DeletionSummary struct {
	Outcomes     int64 `json:"outcomes"`
	Criteria     int64 `json:"criteria"`
	Timing       int64 `json:"timing"`
	Results      int64 `json:"results"`
	Sites        int64 `json:"sites"`
	OtherSources int64 `json:"other_sources"`
	Logs         int64 `json:"logs"`
	Notes        int64 `json:"notes"`
	Overview     int64 `json:"overview"`
}

type DeleteTrialResult struct {
	Success             bool            `json:"success"`
	TrialInfo           TrialInfo       `json:"trial_info"`
	DeletionSummary     DeletionSummary `json:"deletion_summary"`
	TotalRecordsDeleted int64           `json:"total_records_deleted"`
}

// DeleteTrialCascade removes the eight child collections and then the
// overview row, reporting a per-table count. Rows removed before a
// mid-sequence failure stay removed; there is no cross-table transaction.
func (t *TrialService) DeleteTrialCascade(ctx context.Context, trialID string, userID string) (DeleteTrialResult, error) {
	var zero DeleteTrialResult

	if strings.TrimSpace(trialID) == "" {
		return zero, ErrMissingTrialID
	}
	if strings.TrimSpace(userID) == "" {
		return zero, ErrMissingUserID
	}

	ov, err := t.stores.Overview.FindByID(ctx, trialID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return zero, ErrTrialNotFound
		}
		return zero, err
	}

	var sum DeletionSummary
	if sum.Outcomes, err = t.stores.Outcomes.DeleteByTrialID(ctx, trialID); err != nil {
		return zero, err
	}
	if sum.Criteria, err = t.stores.Criteria.DeleteByTrialID(ctx, trialID); err != nil {
		return zero, err
	}
	if sum.Timing, err = t.stores.Timing.DeleteByTrialID(ctx, trialID); err != nil {
		return zero, err
	}
	if sum.Results, err = t.stores.Results.DeleteByTrialID(ctx, trialID); err != nil {
		return zero, err
	}
	if sum.Sites, err = t.stores.Sites.DeleteByTrialID(ctx, trialID); err != nil {
		return zero, err
	}
	if sum.OtherSources, err = t.stores.Other.DeleteByTrialID(ctx, trialID); err != nil {
		return zero, err
	}
	if sum.Logs, err = t.stores.Logs.DeleteByTrialID(ctx, trialID); err != nil {
		return zero, err
	}
	if sum.Notes, err = t.stores.Notes.DeleteByTrialID(ctx, trialID); err != nil {
		return zero, err
	}
	if sum.Overview, err = t.stores.Overview.Delete(ctx, trialID); err != nil {
		return zero, err
	}

	info := TrialInfo{
		TrialID:         trialID,
		Title:           ov.Title,
		TrialPhase:      ov.TrialPhase,
		Status:          ov.Status,
		TrialIdentifier: ov.TrialIdentifier,
	}
	total := sum.Outcomes + sum.Criteria + sum.Timing + sum.Results + sum.Sites +
		sum.OtherSources + sum.Logs + sum.Notes + sum.Overview

	t.stores.Activity.Record(ctx, ports.ActivityEntry{
		UserID:     userID,
		TableName:  overviewTableName,
		RecordID:   trialID,
		ActionType: "DELETE",
		ChangeDetails: map[string]any{
			"title":            ov.Title,
			"trial_phase":      ov.TrialPhase,
			"status":           ov.Status,
			"deletion_summary": sum,
			"total_deleted":    total,
		},
	})

	return DeleteTrialResult{
		Success:             true,
		TrialInfo:           info,
		DeletionSummary:     sum,
		TotalRecordsDeleted: total,
	}, nil
}

func (t *TrialService) SearchTrials(ctx context.Context, criteria []search.Criterion) (TrialList, error) {
	all, err := t.FetchAllTrials(ctx)
	if err != nil {
		return TrialList{}, err
	}
	filtered := search.Filter(all.Trials, criteria)
	return TrialList{TotalTrials: len(filtered), Trials: filtered}, nil
}
