package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trialdesk/trialdesk/modules/therapeutic/search"
	"github.com/trialdesk/trialdesk/modules/therapeutic/services"
	"github.com/trialdesk/trialdesk/pkg/httperr"
)

// ParamGetter resolves a path parameter from the request; the router owns
// how parameters travel.
type ParamGetter func(r *http.Request, name string) string

type TrialsController struct {
	Service *services.TrialService
	Param   ParamGetter
}

func (c TrialsController) HandleCreateTrial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	var req services.CreateTrialRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	res, err := c.Service.CreateTrial(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "create failed")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (c TrialsController) HandleFetchTrial(w http.ResponseWriter, r *http.Request) {
	trialID := strings.TrimSpace(c.Param(r, "trial_id"))
	if trialID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_trial_id", "trial_id is required")
		return
	}

	agg, err := c.Service.FetchTrial(r.Context(), trialID)
	if err != nil {
		writeServiceError(w, r, err, "fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (c TrialsController) HandleFetchAllTrials(w http.ResponseWriter, r *http.Request) {
	list, err := c.Service.FetchAllTrials(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (c TrialsController) HandleDeleteTrial(w http.ResponseWriter, r *http.Request) {
	trialID := strings.TrimSpace(c.Param(r, "trial_id"))
	userID := strings.TrimSpace(c.Param(r, "user_id"))
	if trialID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_trial_id", "trial_id is required")
		return
	}
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	res, err := c.Service.DeleteTrialCascade(r.Context(), trialID, userID)
	if err != nil {
		writeServiceError(w, r, err, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type updateOverviewAPIRequest struct {
	UserID   string         `json:"user_id"`
	Overview map[string]any `json:"overview"`
}

func (c TrialsController) HandleUpdateOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	trialID := strings.TrimSpace(c.Param(r, "trial_id"))

	var req updateOverviewAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	updated, err := c.Service.UpdateOverview(r.Context(), trialID, req.UserID, req.Overview)
	if err != nil {
		writeServiceError(w, r, err, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type upsertSectionAPIRequest struct {
	UserID  string         `json:"user_id"`
	Section map[string]any `json:"section"`
}

func (c TrialsController) HandleSection(w http.ResponseWriter, r *http.Request) {
	trialID := strings.TrimSpace(c.Param(r, "trial_id"))
	section := strings.TrimSpace(c.Param(r, "section"))

	switch r.Method {
	case http.MethodGet:
		rows, err := c.Service.ListSection(r.Context(), trialID, section)
		if err != nil {
			writeServiceError(w, r, err, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"trial_id": trialID,
			"section":  section,
			"rows":     rows,
		})

	case http.MethodPut:
		var req upsertSectionAPIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
			return
		}
		if req.Section == nil {
			writeError(w, r, http.StatusBadRequest, "missing_section", "section body is required")
			return
		}
		row, err := c.Service.UpsertSection(r.Context(), trialID, req.UserID, section, req.Section)
		if err != nil {
			writeServiceError(w, r, err, "upsert failed")
			return
		}
		writeJSON(w, http.StatusOK, row)

	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

type searchAPIRequest struct {
	Criteria []search.Criterion `json:"criteria"`
}

func (c TrialsController) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req searchAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	list, err := c.Service.SearchTrials(r.Context(), req.Criteria)
	if err != nil {
		writeServiceError(w, r, err, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrMissingUserID):
		writeError(w, r, http.StatusBadRequest, "missing_user_id", err.Error())
	case errors.Is(err, services.ErrMissingOverview):
		writeError(w, r, http.StatusBadRequest, "missing_overview", err.Error())
	case errors.Is(err, services.ErrMissingTrialID):
		writeError(w, r, http.StatusBadRequest, "missing_trial_id", err.Error())
	case errors.Is(err, services.ErrUnknownSection):
		writeError(w, r, http.StatusBadRequest, "unknown_section", err.Error())
	case errors.Is(err, services.ErrTrialNotFound):
		writeError(w, r, http.StatusNotFound, "trial_not_found", err.Error())
	case httperr.IsBadRequest(err):
		writeError(w, r, http.StatusBadRequest, "invalid_payload", err.Error())
	case isPgMalformedArray(err):
		writeError(w, r, http.StatusBadRequest, "malformed_array_field",
			"trial_identifier, reference_links and trial_results must be arrays")
	default:
		// Internal admin tool: surface the raw error string alongside the
		// generic message.
		writeError(w, r, http.StatusInternalServerError, "internal_error", fallback+": "+err.Error())
	}
}

func isPgMalformedArray(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "22P02"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	TraceID string            `json:"trace_id"`
	Meta    errorEnvelopeMeta `json:"meta"`
}

type errorEnvelopeMeta struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Code:    code,
		Message: message,
		TraceID: traceIDFromRequest(r),
		Meta: errorEnvelopeMeta{
			Path:   r.URL.Path,
			Method: r.Method,
		},
	})
}

func traceIDFromRequest(r *http.Request) string {
	traceparent := strings.TrimSpace(r.Header.Get("traceparent"))
	if traceparent == "" {
		return ""
	}
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return ""
	}
	traceID := strings.ToLower(parts[1])
	if len(traceID) != 32 || traceID == "00000000000000000000000000000000" {
		return ""
	}
	for _, ch := range traceID {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return ""
		}
	}
	return traceID
}
