package wizard

import (
	"net/mail"
	"reflect"
	"regexp"
	"strings"

	"admissions-wizard/internal/models"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	requiredTag  = "required"
	requiredText = "this field is required"

	emailTag   = "applicant_email"
	emailText  = "enter a valid email address"
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9_%+-]+(\.[a-zA-Z0-9_%+-]+)*@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}$`)

	intakeTag  = "intake"
	intakeText = "select a valid intake"

	applicationTypeTag  = "application_type"
	applicationTypeText = "select a valid application type"

	educationTag  = "education_complete"
	educationText = "at least one complete education entry is required"

	filesTag  = "has_files"
	filesText = "at least one file is required"

	acceptedTag  = "accepted"
	acceptedText = "you must accept to continue"
)

// Step views. Each one carries only the fields its step checks, already
// trimmed, so validation stays a pure function of the draft.

type profileView struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Email           string `json:"email" validate:"required,applicant_email"`
	Phone           string `json:"phone" validate:"required"`
	NationalID      string `json:"nationalId" validate:"required"`
	DateOfBirth     string `json:"dateOfBirth" validate:"required"`
	Nationality     string `json:"nationality" validate:"required"`
	PhysicalAddress string `json:"physicalAddress" validate:"required"`
}

type programmeView struct {
	ProgramID       *int64 `json:"programId" validate:"required"`
	Intake          string `json:"intake" validate:"required,intake"`
	ApplicationType string `json:"applicationType" validate:"required,application_type"`

	// variant-specific values, keyed by JSON name
	extras map[string]string
}

type educationView struct {
	EducationHistory []models.EducationEntry `json:"educationHistory"`
}

type documentsView struct {
	PassportPhoto string   `json:"passportPhoto" validate:"required"`
	NationalIDDoc string   `json:"nationalIdDoc" validate:"required"`
	AcademicCerts []string `json:"academicCerts"`
}

type declarationView struct {
	DeclarationAccepted bool `json:"declarationAccepted" validate:"accepted"`
	PrivacyConsent      bool `json:"privacyConsent" validate:"accepted"`
}

type declarationWithPaymentView struct {
	DeclarationAccepted bool   `json:"declarationAccepted" validate:"accepted"`
	PrivacyConsent      bool   `json:"privacyConsent" validate:"accepted"`
	PaymentReference    string `json:"paymentReference" validate:"required"`
}

// StepValidator maps a draft to field errors for one step.
type StepValidator struct {
	validate                *validator.Validate
	translator              ut.Translator
	requirePaymentReference bool
}

// ValidatorOption tunes a StepValidator.
type ValidatorOption func(*StepValidator)

// WithPaymentReferenceRequired makes the Review step also require a payment
// reference.
func WithPaymentReferenceRequired(required bool) ValidatorOption {
	return func(v *StepValidator) {
		v.requirePaymentReference = required
	}
}

func NewStepValidator(opts ...ValidatorOption) *StepValidator {
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(emailTag, emailValidation)
	_ = validate.RegisterValidation(intakeTag, intakeValidation)
	_ = validate.RegisterValidation(applicationTypeTag, applicationTypeValidation)
	_ = validate.RegisterValidation(acceptedTag, acceptedValidation)

	validate.RegisterStructValidation(programmeStructValidation, programmeView{})
	validate.RegisterStructValidation(educationStructValidation, educationView{})
	validate.RegisterStructValidation(documentsStructValidation, documentsView{})

	registerCustomTranslation(validate, translator, requiredTag, requiredText, true)
	registerCustomTranslation(validate, translator, emailTag, emailText)
	registerCustomTranslation(validate, translator, intakeTag, intakeText)
	registerCustomTranslation(validate, translator, applicationTypeTag, applicationTypeText)
	registerCustomTranslation(validate, translator, educationTag, educationText)
	registerCustomTranslation(validate, translator, filesTag, filesText)
	registerCustomTranslation(validate, translator, acceptedTag, acceptedText)

	v := &StepValidator{validate: validate, translator: translator}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// registerCustomTranslation registers the message for a validation tag.
func registerCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Validate returns the field errors of step for draft. An empty map means the
// step is valid.
func (v *StepValidator) Validate(step Step, draft *models.ApplicationDraft) map[string]string {
	if draft == nil {
		return map[string]string{}
	}

	var view interface{}
	switch step {
	case StepProfile:
		view = profileView{
			FirstName:       clean(draft.FirstName),
			LastName:        clean(draft.LastName),
			Email:           clean(draft.Email),
			Phone:           clean(draft.Phone),
			NationalID:      clean(draft.NationalID),
			DateOfBirth:     clean(draft.DateOfBirth),
			Nationality:     clean(draft.Nationality),
			PhysicalAddress: clean(draft.PhysicalAddress),
		}
	case StepProgramme:
		pv := programmeView{
			ProgramID:       draft.ProgramID,
			Intake:          clean(string(draft.Intake)),
			ApplicationType: clean(string(draft.ApplicationType)),
			extras:          map[string]string{},
		}
		if variant, ok := models.ApplicationType(pv.ApplicationType).Variant(); ok {
			for _, name := range variant.RequiredFields {
				value, _ := draft.TextField(name)
				pv.extras[name] = clean(value)
			}
		}
		view = pv
	case StepEducation:
		view = educationView{EducationHistory: draft.EducationHistory}
	case StepDocuments:
		view = documentsView{
			PassportPhoto: clean(draft.PassportPhoto),
			NationalIDDoc: clean(draft.NationalIDDoc),
			AcademicCerts: draft.AcademicCerts,
		}
	case StepReview:
		if v.requirePaymentReference {
			view = declarationWithPaymentView{
				DeclarationAccepted: draft.DeclarationAccepted,
				PrivacyConsent:      draft.PrivacyConsent,
				PaymentReference:    clean(draft.PaymentReference),
			}
		} else {
			view = declarationView{
				DeclarationAccepted: draft.DeclarationAccepted,
				PrivacyConsent:      draft.PrivacyConsent,
			}
		}
	default:
		// Payment and Confirmation carry no data-level requirements.
		return map[string]string{}
	}

	return v.fieldErrors(v.validate.Struct(view))
}

// ValidateAll runs every step up to and including last and merges the results.
func (v *StepValidator) ValidateAll(last Step, draft *models.ApplicationDraft) map[string]string {
	out := map[string]string{}
	for s := FirstStep; s <= last; s++ {
		for field, msg := range v.Validate(s, draft) {
			if _, exists := out[field]; !exists {
				out[field] = msg
			}
		}
	}
	return out
}

func (v *StepValidator) fieldErrors(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range vErrs {
		if _, exists := out[fe.Field()]; exists {
			continue
		}
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

// Custom Validators

// emailValidation also runs the RFC 5322 parser the application schema's
// email format uses, so an address passing here passes the schema too.
func emailValidation(fl validator.FieldLevel) bool {
	email := fl.Field().String()
	if !emailRegex.MatchString(email) {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func intakeValidation(fl validator.FieldLevel) bool {
	return models.Intake(fl.Field().String()).Valid()
}

func applicationTypeValidation(fl validator.FieldLevel) bool {
	return models.ApplicationType(fl.Field().String()).Valid()
}

func acceptedValidation(fl validator.FieldLevel) bool {
	return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
}

// programmeStructValidation applies the required fields of the chosen
// application type.
func programmeStructValidation(sl validator.StructLevel) {
	pv, ok := sl.Current().Interface().(programmeView)
	if !ok {
		return
	}
	variant, ok := models.ApplicationType(pv.ApplicationType).Variant()
	if !ok {
		return
	}
	for _, name := range variant.RequiredFields {
		if pv.extras[name] == "" {
			sl.ReportError(pv.extras[name], name, name, requiredTag, "")
		}
	}
}

// educationStructValidation attaches a single error to the list when no row
// is complete.
func educationStructValidation(sl validator.StructLevel) {
	ev, ok := sl.Current().Interface().(educationView)
	if !ok {
		return
	}
	for _, entry := range ev.EducationHistory {
		if entry.Complete() {
			return
		}
	}
	sl.ReportError(ev.EducationHistory, "educationHistory", "EducationHistory", educationTag, "")
}

func documentsStructValidation(sl validator.StructLevel) {
	dv, ok := sl.Current().Interface().(documentsView)
	if !ok {
		return
	}
	for _, path := range dv.AcademicCerts {
		if clean(path) != "" {
			return
		}
	}
	sl.ReportError(dv.AcademicCerts, "academicCerts", "AcademicCerts", filesTag, "")
}
