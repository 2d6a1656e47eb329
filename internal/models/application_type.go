package models

// ApplicationType is the tag of the application variant.
type ApplicationType string

const (
	// ApplicationTypeDirect is a self-sponsored direct entry.
	ApplicationTypeDirect ApplicationType = "direct"
	// ApplicationTypePlacement is a government placement and carries a
	// placement reference number.
	ApplicationTypePlacement ApplicationType = "placement"
	// ApplicationTypeSponsored is an employer or scholarship sponsored entry.
	ApplicationTypeSponsored ApplicationType = "sponsored"
)

// ApplicationVariant describes one application type and the extra draft
// fields (by JSON name) it requires on the Programme step.
type ApplicationVariant struct {
	Type           ApplicationType `json:"type"`
	Label          string          `json:"label"`
	RequiredFields []string        `json:"requiredFields"`
}

var applicationVariants = []ApplicationVariant{
	{Type: ApplicationTypeDirect, Label: "Direct entry"},
	{Type: ApplicationTypePlacement, Label: "Government placement", RequiredFields: []string{"placementReference"}},
	{Type: ApplicationTypeSponsored, Label: "Sponsored", RequiredFields: []string{"sponsorDetails"}},
}

// ApplicationVariants lists the known variants in display order.
func ApplicationVariants() []ApplicationVariant {
	out := make([]ApplicationVariant, len(applicationVariants))
	copy(out, applicationVariants)
	return out
}

// Variant looks up the definition for t.
func (t ApplicationType) Variant() (ApplicationVariant, bool) {
	for _, v := range applicationVariants {
		if v.Type == t {
			return v, true
		}
	}
	return ApplicationVariant{}, false
}

func (t ApplicationType) Valid() bool {
	_, ok := t.Variant()
	return ok
}
