package model

import (
	"encoding/json"
	"time"
)

// SurveyDefinition is the authoring schema administrators upload.
type SurveyDefinition struct {
	SurveyTitle string   `json:"survey_title"`
	Description string   `json:"description,omitempty"`
	Vectors     []Vector `json:"vectors"`
}

// SurveyCreate is the create body: metadata plus the raw definition as config.
type SurveyCreate struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Config      json.RawMessage `json:"config"`
	OpensAt     *time.Time      `json:"opens_at,omitempty"`
	ClosesAt    *time.Time      `json:"closes_at,omitempty"`
}

// SurveyDetail is a survey as returned to its admin.
type SurveyDetail struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Config      json.RawMessage `json:"config"`
	CreatedBy   string          `json:"created_by"`
	OpensAt     *time.Time      `json:"opens_at"`
	ClosesAt    *time.Time      `json:"closes_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SurveyUpdate is a partial update. Nil fields are left untouched; the Clear
// flags send an explicit null so a schedule bound can be removed.
type SurveyUpdate struct {
	Title         *string
	Description   *string
	OpensAt       *time.Time
	ClosesAt      *time.Time
	ClearOpensAt  bool
	ClearClosesAt bool
}

func (u SurveyUpdate) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if u.Title != nil {
		m["title"] = *u.Title
	}
	if u.Description != nil {
		m["description"] = *u.Description
	}
	switch {
	case u.OpensAt != nil:
		m["opens_at"] = u.OpensAt
	case u.ClearOpensAt:
		m["opens_at"] = nil
	}
	switch {
	case u.ClosesAt != nil:
		m["closes_at"] = u.ClosesAt
	case u.ClearClosesAt:
		m["closes_at"] = nil
	}
	return json.Marshal(m)
}

func (u *SurveyUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = SurveyUpdate{}
	if v, ok := raw["title"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &u.Title); err != nil {
			return err
		}
	}
	if v, ok := raw["description"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &u.Description); err != nil {
			return err
		}
	}
	if v, ok := raw["opens_at"]; ok {
		if isNull(v) {
			u.ClearOpensAt = true
		} else if err := json.Unmarshal(v, &u.OpensAt); err != nil {
			return err
		}
	}
	if v, ok := raw["closes_at"]; ok {
		if isNull(v) {
			u.ClearClosesAt = true
		} else if err := json.Unmarshal(v, &u.ClosesAt); err != nil {
			return err
		}
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return string(v) == "null"
}
