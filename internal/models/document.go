package models

// UploadFile is one locally selected file headed for the upload API.
type UploadFile struct {
	Field       string
	Name        string
	ContentType string
	Content     []byte
}

// DocumentField names a document slot on the draft.
type DocumentField string

const (
	DocumentPassportPhoto  DocumentField = "passportPhoto"
	DocumentNationalID     DocumentField = "nationalIdDoc"
	DocumentAcademicCerts  DocumentField = "academicCerts"
	DocumentSupportingDocs DocumentField = "supportingDocs"
)

var documentFields = []DocumentField{
	DocumentPassportPhoto,
	DocumentNationalID,
	DocumentAcademicCerts,
	DocumentSupportingDocs,
}

// DocumentFields lists all document slots.
func DocumentFields() []DocumentField {
	out := make([]DocumentField, len(documentFields))
	copy(out, documentFields)
	return out
}

func (f DocumentField) Valid() bool {
	for _, known := range documentFields {
		if f == known {
			return true
		}
	}
	return false
}

// Multi reports whether the slot holds a list of files.
func (f DocumentField) Multi() bool {
	return f == DocumentAcademicCerts || f == DocumentSupportingDocs
}

// DocumentPaths returns the stored paths for field. Single slots yield zero
// or one element.
func (d *ApplicationDraft) DocumentPaths(field DocumentField) []string {
	switch field {
	case DocumentPassportPhoto:
		return singleton(d.PassportPhoto)
	case DocumentNationalID:
		return singleton(d.NationalIDDoc)
	case DocumentAcademicCerts:
		return append([]string{}, d.AcademicCerts...)
	case DocumentSupportingDocs:
		return append([]string{}, d.SupportingDocs...)
	}
	return nil
}

// MergeDocumentPaths applies uploaded paths: single slots take the last path,
// list slots append in order.
func (d *ApplicationDraft) MergeDocumentPaths(field DocumentField, paths []string) {
	if len(paths) == 0 {
		return
	}
	switch field {
	case DocumentPassportPhoto:
		d.PassportPhoto = paths[len(paths)-1]
	case DocumentNationalID:
		d.NationalIDDoc = paths[len(paths)-1]
	case DocumentAcademicCerts:
		d.AcademicCerts = append(d.AcademicCerts, paths...)
	case DocumentSupportingDocs:
		d.SupportingDocs = append(d.SupportingDocs, paths...)
	}
}

// RemoveDocumentPath drops the path at index for list slots and clears single
// slots. It reports false when there is nothing at index.
func (d *ApplicationDraft) RemoveDocumentPath(field DocumentField, index int) bool {
	switch field {
	case DocumentPassportPhoto:
		if index != 0 || d.PassportPhoto == "" {
			return false
		}
		d.PassportPhoto = ""
		return true
	case DocumentNationalID:
		if index != 0 || d.NationalIDDoc == "" {
			return false
		}
		d.NationalIDDoc = ""
		return true
	case DocumentAcademicCerts:
		var ok bool
		d.AcademicCerts, ok = removeAt(d.AcademicCerts, index)
		return ok
	case DocumentSupportingDocs:
		var ok bool
		d.SupportingDocs, ok = removeAt(d.SupportingDocs, index)
		return ok
	}
	return false
}

func singleton(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func removeAt(list []string, index int) ([]string, bool) {
	if index < 0 || index >= len(list) {
		return list, false
	}
	out := make([]string, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...), true
}
