package models

// Program is a selectable programme summary as listed by the admissions API.
type Program struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	DegreeType   string `json:"degreeType"`
	Duration     string `json:"duration,omitempty"`
	School       string `json:"school,omitempty"`
	Requirements string `json:"requirements,omitempty"`
	Institution  string `json:"institution,omitempty"`
}
