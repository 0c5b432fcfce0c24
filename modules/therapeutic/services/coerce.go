package services

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/trialdesk/trialdesk/pkg/httperr"
)

// Request bodies arrive loosely typed: array fields may come in as
// comma-separated strings, string fields as arrays, numerics as JSON
// numbers. Each section declares the fields that must stay arrays; every
// other supplied field collapses to a string. One schema per section keeps
// the contract auditable in one place instead of inline per-field checks.

type coerceRule int

const (
	coerceString coerceRule = iota
	coerceStringList
)

type coerceSchema map[string]coerceRule

var (
	overviewSchema = coerceSchema{
		"trial_identifier": coerceStringList,
		"reference_links":  coerceStringList,
	}
	outcomeSchema  = coerceSchema{}
	criteriaSchema = coerceSchema{}
	timingSchema   = coerceSchema{}
	resultsSchema  = coerceSchema{
		"trial_results": coerceStringList,
	}
	sitesSchema = coerceSchema{}
	logsSchema  = coerceSchema{}
	notesSchema = coerceSchema{}
)

func applySchema(schema coerceSchema, in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if schema[k] == coerceStringList {
			out[k] = toStringList(v)
			continue
		}
		out[k] = toJoinedString(v)
	}
	return out
}

// toStringList wraps scalars, splits comma-separated strings, and flattens
// arrays element-wise.
func toStringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, scalarString(e))
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	default:
		return []string{scalarString(v)}
	}
}

// toJoinedString collapses arrays to a ", "-joined string and renders
// scalars without scientific notation.
func toJoinedString(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, scalarString(e))
		}
		return strings.Join(parts, ", ")
	default:
		return scalarString(v)
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// decodeSection moves a coerced map into its typed section row. A payload
// that cannot decode is the caller's fault, so the error maps to 400.
func decodeSection[T any](m map[string]any) (T, error) {
	var v T
	b, err := json.Marshal(m)
	if err != nil {
		return v, httperr.NewBadRequest("invalid section payload: " + err.Error())
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, httperr.NewBadRequest("invalid section payload: " + err.Error())
	}
	return v, nil
}
