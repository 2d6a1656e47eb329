// internal/models/application.go
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Institution scopes a wizard and its stored draft.
type Institution string

const (
	InstitutionUniversity Institution = "university"
	InstitutionCollege    Institution = "college"
)

// Intake is the start period the applicant is applying for.
type Intake string

const (
	IntakeJanuary   Intake = "january"
	IntakeMay       Intake = "may"
	IntakeSeptember Intake = "september"
)

var intakes = []Intake{IntakeJanuary, IntakeMay, IntakeSeptember}

// Intakes lists the selectable intake periods in calendar order.
func Intakes() []Intake {
	out := make([]Intake, len(intakes))
	copy(out, intakes)
	return out
}

func (i Intake) Valid() bool {
	for _, known := range intakes {
		if i == known {
			return true
		}
	}
	return false
}

// PaymentMethod records how the application fee was settled.
type PaymentMethod string

const (
	PaymentMethodMpesa  PaymentMethod = "mpesa"
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodWaived PaymentMethod = "waived"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodMpesa, PaymentMethodBank, PaymentMethodWaived:
		return true
	}
	return false
}

// EducationEntry is one row of the applicant's education history.
type EducationEntry struct {
	Level       string `json:"level"`
	Institution string `json:"institution"`
	Award       string `json:"award"`
	Year        string `json:"year"`
	Grade       string `json:"grade"`
}

// Complete reports whether all five fields are non-blank.
func (e EducationEntry) Complete() bool {
	for _, v := range []string{e.Level, e.Institution, e.Award, e.Year, e.Grade} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// ApplicationDraft is the in-progress application. It is stored as JSON and
// submitted as-is, so the JSON names are part of the backend contract.
type ApplicationDraft struct {
	Institution    Institution `json:"institution"`
	ApplicationRef string      `json:"applicationRef"`

	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	PhoneCountryCode string `json:"phoneCountryCode"`
	Phone            string `json:"phone"`
	NationalID       string `json:"nationalId"`
	DateOfBirth      string `json:"dateOfBirth"`
	Nationality      string `json:"nationality"`
	PhysicalAddress  string `json:"physicalAddress"`

	ProgramID          *int64          `json:"programId"`
	Intake             Intake          `json:"intake"`
	ApplicationType    ApplicationType `json:"applicationType"`
	PlacementReference string          `json:"placementReference"`
	SponsorDetails     string          `json:"sponsorDetails"`

	EducationHistory []EducationEntry `json:"educationHistory"`

	PassportPhoto  string   `json:"passportPhoto"`
	NationalIDDoc  string   `json:"nationalIdDoc"`
	AcademicCerts  []string `json:"academicCerts"`
	SupportingDocs []string `json:"supportingDocs"`

	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	PaymentReference string        `json:"paymentReference"`
	MpesaReceipt     string        `json:"mpesaReceipt"`

	DeclarationAccepted bool `json:"declarationAccepted"`
	PrivacyConsent      bool `json:"privacyConsent"`
}

// NewDraft returns an empty draft with the single blank education row the
// form starts with.
func NewDraft(institution Institution) *ApplicationDraft {
	return &ApplicationDraft{
		Institution:      institution,
		EducationHistory: []EducationEntry{{}},
		AcademicCerts:    []string{},
		SupportingDocs:   []string{},
	}
}

// Prefill copies the known applicant's identity fields onto the draft.
func (d *ApplicationDraft) Prefill(p ApplicantProfile) {
	d.FirstName = p.FirstName
	d.LastName = p.LastName
	d.Email = p.Email
	d.PhoneCountryCode = p.PhoneCountryCode
	d.Phone = p.Phone
	d.NationalID = p.NationalID
	d.DateOfBirth = p.DateOfBirth
	d.Nationality = p.Nationality
	d.PhysicalAddress = p.PhysicalAddress
}

// Clone returns a deep copy.
func (d *ApplicationDraft) Clone() *ApplicationDraft {
	if d == nil {
		return nil
	}
	out := *d
	if d.ProgramID != nil {
		id := *d.ProgramID
		out.ProgramID = &id
	}
	if d.EducationHistory != nil {
		out.EducationHistory = append([]EducationEntry{}, d.EducationHistory...)
	}
	if d.AcademicCerts != nil {
		out.AcademicCerts = append([]string{}, d.AcademicCerts...)
	}
	if d.SupportingDocs != nil {
		out.SupportingDocs = append([]string{}, d.SupportingDocs...)
	}
	return &out
}

// FullPhone joins the country code and the local number.
func (d *ApplicationDraft) FullPhone() string {
	code := strings.TrimSpace(d.PhoneCountryCode)
	phone := strings.TrimSpace(d.Phone)
	if code == "" || phone == "" {
		return phone
	}
	return code + strings.TrimLeft(phone, "0")
}

// TextField returns a string field by its JSON name. Used for the
// per-application-type requirements.
func (d *ApplicationDraft) TextField(name string) (string, bool) {
	switch name {
	case "placementReference":
		return d.PlacementReference, true
	case "sponsorDetails":
		return d.SponsorDetails, true
	}
	return "", false
}

// ApplicantProfile is the identity block of a known applicant.
type ApplicantProfile struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	PhoneCountryCode string `json:"phoneCountryCode"`
	Phone            string `json:"phone"`
	NationalID       string `json:"nationalId"`
	DateOfBirth      string `json:"dateOfBirth"`
	Nationality      string `json:"nationality"`
	PhysicalAddress  string `json:"physicalAddress"`
}

// Submission is what the backend returns for an accepted application.
type Submission struct {
	ApplicationID string          `json:"applicationId"`
	Application   json.RawMessage `json:"application"`
}

// SubmittedApplication is handed to post-submission listeners.
type SubmittedApplication struct {
	ApplicationID string           `json:"applicationId"`
	Record        json.RawMessage  `json:"application,omitempty"`
	Draft         ApplicationDraft `json:"draft"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}
