package domain

// Step identifies the active guided-setup step.
type Step string

const (
	StepSpace    Step = "space"
	StepGuests   Step = "guests"
	StepAssign   Step = "assign"
	StepComplete Step = "complete"
)

// OnboardingSteps flags are monotonic: once true they never revert.
type OnboardingSteps struct {
	SpaceConfigured bool `json:"spaceConfigured"`
	GuestsImported  bool `json:"guestsImported"`
	FirstAssignment bool `json:"firstAssignment"`
}

// OnboardingState is persisted per wedding. Dismissed is an orthogonal
// user preference: the overlay hides but step flags keep advancing.
type OnboardingState struct {
	Dismissed bool            `json:"dismissed"`
	Steps     OnboardingSteps `json:"steps"`
}
