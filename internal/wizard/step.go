package wizard

import "strconv"

// Step is a wizard page, 1 through 7.
type Step int

const (
	StepProfile Step = iota + 1
	StepProgramme
	StepEducation
	StepDocuments
	StepPayment
	StepReview
	StepConfirmation
)

// FirstStep and LastStep bound the navigable range.
const (
	FirstStep = StepProfile
	LastStep  = StepConfirmation
)

var stepNames = map[Step]string{
	StepProfile:      "profile",
	StepProgramme:    "programme",
	StepEducation:    "education",
	StepDocuments:    "documents",
	StepPayment:      "payment",
	StepReview:       "review",
	StepConfirmation: "confirmation",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "step-" + strconv.Itoa(int(s))
}

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Terminal reports whether no further navigation is possible.
func (s Step) Terminal() bool {
	return s == StepConfirmation
}
