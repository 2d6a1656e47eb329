package validation

import (
	"testing"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createValidApplication() *models.ApplicationDraft {
	id := int64(5)
	d := models.NewDraft(models.InstitutionCollege)
	d.ApplicationRef = "APP-9F8E7D6C"
	d.FirstName = "Otieno"
	d.LastName = "Ouma"
	d.Email = "otieno@example.com"
	d.Phone = "0711000222"
	d.NationalID = "29876543"
	d.DateOfBirth = "2001-01-30"
	d.Nationality = "Kenyan"
	d.PhysicalAddress = "Kisumu"
	d.ProgramID = &id
	d.Intake = models.IntakeMay
	d.ApplicationType = models.ApplicationTypeDirect
	d.EducationHistory = []models.EducationEntry{{Level: "Secondary", Institution: "Maseno", Award: "KCSE", Year: "2019", Grade: "B+"}}
	d.PassportPhoto = "uploads/p.jpg"
	d.NationalIDDoc = "uploads/id.pdf"
	d.AcademicCerts = []string{"uploads/kcse.pdf"}
	d.DeclarationAccepted = true
	d.PrivacyConsent = true
	return d
}

func TestApplicationSchema(t *testing.T) {
	schema := NewApplicationSchema()

	tests := []struct {
		name       string
		mutate     func(d *models.ApplicationDraft)
		wantFields []string
	}{
		{name: "valid", mutate: func(d *models.ApplicationDraft) {}},
		{
			name:       "blank name",
			mutate:     func(d *models.ApplicationDraft) { d.FirstName = "   " },
			wantFields: []string{"firstName"},
		},
		{
			name:       "bad email",
			mutate:     func(d *models.ApplicationDraft) { d.Email = "not-an-email" },
			wantFields: []string{"email"},
		},
		{
			name:       "no programme",
			mutate:     func(d *models.ApplicationDraft) { d.ProgramID = nil },
			wantFields: []string{"programId"},
		},
		{
			name:       "empty certificates",
			mutate:     func(d *models.ApplicationDraft) { d.AcademicCerts = []string{} },
			wantFields: []string{"academicCerts"},
		},
		{
			name:       "declaration not accepted",
			mutate:     func(d *models.ApplicationDraft) { d.DeclarationAccepted = false },
			wantFields: []string{"declarationAccepted"},
		},
		{
			name: "placement without reference",
			mutate: func(d *models.ApplicationDraft) {
				d.ApplicationType = models.ApplicationTypePlacement
			},
			wantFields: []string{"placementReference"},
		},
		{
			name: "placement with reference",
			mutate: func(d *models.ApplicationDraft) {
				d.ApplicationType = models.ApplicationTypePlacement
				d.PlacementReference = "KUCCPS/1"
			},
		},
		{
			name:       "malformed reference",
			mutate:     func(d *models.ApplicationDraft) { d.ApplicationRef = "REF-1" },
			wantFields: []string{"applicationRef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := createValidApplication()
			tt.mutate(draft)

			err := schema.ValidateApplication(draft)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			stdErr, ok := errors.AsStandard(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeSchemaViolation, stdErr.Code)
			for _, f := range tt.wantFields {
				assert.Contains(t, stdErr.Fields, f)
			}
		})
	}
}

func TestApplicationSchema_NilDraft(t *testing.T) {
	assert.Error(t, NewApplicationSchema().ValidateApplication(nil))
}

func TestConfirmationInputSchema(t *testing.T) {
	schema := ConfirmationInputSchema()

	result := schema.Validate(map[string]interface{}{
		"applicationId":  "ADM-1",
		"applicationRef": "APP-1",
		"institution":    "university",
		"firstName":      "Amina",
		"email":          "amina@example.com",
		"programId":      3,
	})
	assert.True(t, result.Valid, result.Summary())

	result = schema.Validate(map[string]interface{}{
		"applicationRef": "APP-1",
		"institution":    "polytechnic",
		"firstName":      "Amina",
		"email":          "amina@example.com",
	})
	require.False(t, result.Valid)
	fields := map[string]bool{}
	for _, e := range result.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["applicationId"])
	assert.True(t, fields["institution"])
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile("broken", []byte(`{"type": 12}`))
	assert.Error(t, err)

	_, err = Load("missing")
	assert.Error(t, err)
}
