package wizard

import (
	"encoding/json"
	"fmt"
	"sort"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"
)

// Action is a draft mutation. Dispatch is the only way actions reach the
// draft.
type Action interface {
	// Fields lists the JSON field names the action touches. Their recorded
	// errors are cleared once the action applies.
	Fields() []string
	apply(draft *models.ApplicationDraft) error
}

// patchableFields are the draft fields SetFields may write. Documents,
// payment fields and identifiers have their own sub-flows.
var patchableFields = map[string]struct{}{
	"firstName":           {},
	"lastName":            {},
	"email":               {},
	"phoneCountryCode":    {},
	"phone":               {},
	"nationalId":          {},
	"dateOfBirth":         {},
	"nationality":         {},
	"physicalAddress":     {},
	"programId":           {},
	"intake":              {},
	"applicationType":     {},
	"placementReference":  {},
	"sponsorDetails":      {},
	"educationHistory":    {},
	"declarationAccepted": {},
	"privacyConsent":      {},
}

// SetFields patches draft fields by JSON name.
type SetFields map[string]interface{}

func (a SetFields) Fields() []string {
	out := make([]string, 0, len(a))
	for name := range a {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (a SetFields) apply(draft *models.ApplicationDraft) error {
	rejected := map[string]string{}
	for _, name := range a.Fields() {
		if _, ok := patchableFields[name]; !ok {
			rejected[name] = "field cannot be set directly"
			continue
		}
		raw, err := json.Marshal(map[string]interface{}{name: a[name]})
		if err != nil {
			rejected[name] = "invalid value"
			continue
		}
		if err := json.Unmarshal(raw, draft); err != nil {
			rejected[name] = "invalid value"
		}
	}
	if len(rejected) > 0 {
		return errors.NewValidationError("patch", rejected)
	}
	if len(draft.EducationHistory) == 0 {
		draft.EducationHistory = []models.EducationEntry{{}}
	}
	return nil
}

// AddEducation appends a blank education row.
type AddEducation struct{}

func (AddEducation) Fields() []string { return []string{"educationHistory"} }

func (AddEducation) apply(draft *models.ApplicationDraft) error {
	draft.EducationHistory = append(draft.EducationHistory, models.EducationEntry{})
	return nil
}

// RemoveEducation drops the row at Index. The last row is never removed.
type RemoveEducation struct {
	Index int `json:"index"`
}

func (RemoveEducation) Fields() []string { return []string{"educationHistory"} }

func (a RemoveEducation) apply(draft *models.ApplicationDraft) error {
	if a.Index < 0 || a.Index >= len(draft.EducationHistory) {
		return errors.NewInvalidTransitionError(fmt.Sprintf("no education entry at index %d", a.Index))
	}
	if len(draft.EducationHistory) == 1 {
		return errors.NewInvalidTransitionError("at least one education entry is kept")
	}
	rows := make([]models.EducationEntry, 0, len(draft.EducationHistory)-1)
	rows = append(rows, draft.EducationHistory[:a.Index]...)
	draft.EducationHistory = append(rows, draft.EducationHistory[a.Index+1:]...)
	return nil
}

// UpdateEducation replaces the row at Index.
type UpdateEducation struct {
	Index int                   `json:"index"`
	Entry models.EducationEntry `json:"entry"`
}

func (UpdateEducation) Fields() []string { return []string{"educationHistory"} }

func (a UpdateEducation) apply(draft *models.ApplicationDraft) error {
	if a.Index < 0 || a.Index >= len(draft.EducationHistory) {
		return errors.NewInvalidTransitionError(fmt.Sprintf("no education entry at index %d", a.Index))
	}
	draft.EducationHistory[a.Index] = a.Entry
	return nil
}
