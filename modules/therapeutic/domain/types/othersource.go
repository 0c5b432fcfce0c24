package types

import "encoding/json"

// OtherSourceType tags the variant carried by an OtherSource row.
type OtherSourceType string

const (
	OtherSourcePipelineData    OtherSourceType = "pipeline_data"
	OtherSourcePressRelease    OtherSourceType = "press_releases"
	OtherSourcePublication     OtherSourceType = "publications"
	OtherSourceTrialRegistry   OtherSourceType = "trial_registries"
	OtherSourceAssociatedStudy OtherSourceType = "associated_studies"
	OtherSourceLegacy          OtherSourceType = "legacy"
)

// KnownOtherSourceTypes lists the five tagged categories, in the order the
// create path iterates them. Legacy is the fallback, not a category.
var KnownOtherSourceTypes = []OtherSourceType{
	OtherSourcePipelineData,
	OtherSourcePressRelease,
	OtherSourcePublication,
	OtherSourceTrialRegistry,
	OtherSourceAssociatedStudy,
}

// OtherSourcePayload is the in-memory representation of the tagged union
// smuggled through the OtherSource.Data column. Each variant uses a subset
// of the fields; serialization happens only at the storage edge.
type OtherSourcePayload struct {
	Type        OtherSourceType `json:"type"`
	Date        string          `json:"date,omitempty"`
	Title       string          `json:"title,omitempty"`
	Information string          `json:"information,omitempty"`
	URL         string          `json:"url,omitempty"`
	File        string          `json:"file,omitempty"`
	Registry    string          `json:"registry,omitempty"`
	Identifier  string          `json:"identifier,omitempty"`
	StudyType   string          `json:"study_type,omitempty"`
	Raw         string          `json:"raw,omitempty"`
}

// Encode serializes the payload for the Data column.
func (p OtherSourcePayload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeOtherSource parses a Data column value back into a payload. An
// unparseable or untagged value is treated as legacy with the raw string
// preserved, never an error.
func DecodeOtherSource(data string) OtherSourcePayload {
	var p OtherSourcePayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return OtherSourcePayload{Type: OtherSourceLegacy, Raw: data}
	}
	switch p.Type {
	case OtherSourcePipelineData, OtherSourcePressRelease, OtherSourcePublication,
		OtherSourceTrialRegistry, OtherSourceAssociatedStudy, OtherSourceLegacy:
		return p
	default:
		return OtherSourcePayload{Type: OtherSourceLegacy, Raw: data}
	}
}
