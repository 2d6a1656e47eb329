package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDraft(t *testing.T) {
	d := NewDraft(InstitutionCollege)

	assert.Equal(t, InstitutionCollege, d.Institution)
	require.Len(t, d.EducationHistory, 1)
	assert.False(t, d.EducationHistory[0].Complete())
	assert.NotNil(t, d.AcademicCerts)
	assert.NotNil(t, d.SupportingDocs)
}

func TestApplicationDraft_CloneIsDeep(t *testing.T) {
	id := int64(9)
	d := NewDraft(InstitutionUniversity)
	d.ProgramID = &id
	d.AcademicCerts = []string{"a.pdf"}
	d.EducationHistory[0].Level = "Secondary"

	c := d.Clone()
	*c.ProgramID = 10
	c.AcademicCerts[0] = "b.pdf"
	c.EducationHistory[0].Level = "Diploma"

	assert.Equal(t, int64(9), *d.ProgramID)
	assert.Equal(t, "a.pdf", d.AcademicCerts[0])
	assert.Equal(t, "Secondary", d.EducationHistory[0].Level)
	assert.Nil(t, (*ApplicationDraft)(nil).Clone())
}

func TestApplicationDraft_JSONNames(t *testing.T) {
	d := NewDraft(InstitutionUniversity)
	d.NationalIDDoc = "uploads/id.pdf"
	d.DeclarationAccepted = true

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "uploads/id.pdf", m["nationalIdDoc"])
	assert.Equal(t, true, m["declarationAccepted"])
	assert.Contains(t, m, "programId")
	assert.Nil(t, m["programId"])
}

func TestApplicationDraft_FullPhone(t *testing.T) {
	tests := []struct {
		code, phone, want string
	}{
		{"+254", "0712345678", "+254712345678"},
		{"+254", "712345678", "+254712345678"},
		{"", "0712345678", "0712345678"},
		{" +256 ", " 0772000111 ", "+256772000111"},
		{"+254", "", ""},
	}
	for _, tt := range tests {
		d := &ApplicationDraft{PhoneCountryCode: tt.code, Phone: tt.phone}
		assert.Equal(t, tt.want, d.FullPhone())
	}
}

func TestApplicationDraft_Prefill(t *testing.T) {
	d := NewDraft(InstitutionUniversity)
	d.Prefill(ApplicantProfile{FirstName: "Wanjiku", Nationality: "Kenyan"})

	assert.Equal(t, "Wanjiku", d.FirstName)
	assert.Equal(t, "Kenyan", d.Nationality)
	assert.Equal(t, InstitutionUniversity, d.Institution)
}

func TestApplicationVariants(t *testing.T) {
	v, ok := ApplicationTypePlacement.Variant()
	require.True(t, ok)
	assert.Equal(t, []string{"placementReference"}, v.RequiredFields)

	v, ok = ApplicationTypeSponsored.Variant()
	require.True(t, ok)
	assert.Equal(t, []string{"sponsorDetails"}, v.RequiredFields)

	assert.True(t, ApplicationTypeDirect.Valid())
	assert.False(t, ApplicationType("transfer").Valid())
	assert.Len(t, ApplicationVariants(), 3)

	// every required field resolves on the draft
	d := NewDraft(InstitutionCollege)
	for _, variant := range ApplicationVariants() {
		for _, name := range variant.RequiredFields {
			_, ok := d.TextField(name)
			assert.True(t, ok, name)
		}
	}
}

func TestIntakeAndPaymentMethod(t *testing.T) {
	assert.True(t, IntakeMay.Valid())
	assert.False(t, Intake("").Valid())
	assert.Equal(t, []Intake{IntakeJanuary, IntakeMay, IntakeSeptember}, Intakes())

	assert.True(t, PaymentMethodWaived.Valid())
	assert.False(t, PaymentMethod("cash").Valid())
}

func TestDocumentPaths(t *testing.T) {
	d := NewDraft(InstitutionUniversity)

	d.MergeDocumentPaths(DocumentPassportPhoto, []string{"a.jpg", "b.jpg"})
	d.MergeDocumentPaths(DocumentAcademicCerts, []string{"c1.pdf"})
	d.MergeDocumentPaths(DocumentAcademicCerts, []string{"c2.pdf", "c3.pdf"})
	d.MergeDocumentPaths(DocumentSupportingDocs, nil)

	assert.Equal(t, "b.jpg", d.PassportPhoto)
	assert.Equal(t, []string{"b.jpg"}, d.DocumentPaths(DocumentPassportPhoto))
	assert.Nil(t, d.DocumentPaths(DocumentNationalID))
	assert.Equal(t, []string{"c1.pdf", "c2.pdf", "c3.pdf"}, d.AcademicCerts)
	assert.Empty(t, d.SupportingDocs)

	assert.True(t, d.RemoveDocumentPath(DocumentAcademicCerts, 1))
	assert.Equal(t, []string{"c1.pdf", "c3.pdf"}, d.AcademicCerts)
	assert.False(t, d.RemoveDocumentPath(DocumentAcademicCerts, 2))
	assert.False(t, d.RemoveDocumentPath(DocumentAcademicCerts, -1))

	assert.False(t, d.RemoveDocumentPath(DocumentPassportPhoto, 1))
	assert.True(t, d.RemoveDocumentPath(DocumentPassportPhoto, 0))
	assert.Empty(t, d.PassportPhoto)
	assert.False(t, d.RemoveDocumentPath(DocumentPassportPhoto, 0))

	assert.True(t, DocumentSupportingDocs.Multi())
	assert.False(t, DocumentNationalID.Multi())
	assert.False(t, DocumentField("cv").Valid())
}
