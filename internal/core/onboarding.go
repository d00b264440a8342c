package core

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/domain"
)

// Gate is the ordered guided-setup state machine. Step flags only move
// forward; dismissal is an orthogonal preference that hides the overlay
// without freezing progress.
type Gate struct {
	mu    sync.Mutex
	state domain.OnboardingState
}

func NewGate(state domain.OnboardingState) *Gate {
	return &Gate{state: state}
}

// DecodeState coerces persisted onboarding JSON to a valid state. Any
// malformed or partial payload becomes the default-false shape.
func DecodeState(raw []byte) domain.OnboardingState {
	var state domain.OnboardingState
	if len(raw) == 0 {
		return state
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		log.Warn().Str("module", "core.onboarding").Err(err).Msg("malformed onboarding state, using defaults")
		return domain.OnboardingState{}
	}
	return state
}

// CurrentStep returns the first incomplete step in order.
func CurrentStep(steps domain.OnboardingSteps) domain.Step {
	switch {
	case !steps.SpaceConfigured:
		return domain.StepSpace
	case !steps.GuestsImported:
		return domain.StepGuests
	case !steps.FirstAssignment:
		return domain.StepAssign
	default:
		return domain.StepComplete
	}
}

func (g *Gate) State() domain.OnboardingState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gate) CurrentStep() domain.Step {
	g.mu.Lock()
	defer g.mu.Unlock()
	return CurrentStep(g.state.Steps)
}

// MarkSpaceConfigured records the first table placement. Reports whether
// the flag actually flipped.
func (g *Gate) MarkSpaceConfigured() bool {
	return g.flip(func(s *domain.OnboardingSteps) *bool { return &s.SpaceConfigured })
}

// MarkGuestsImported records the guest list becoming non-empty.
func (g *Gate) MarkGuestsImported() bool {
	return g.flip(func(s *domain.OnboardingSteps) *bool { return &s.GuestsImported })
}

// MarkFirstAssignment records the first successful seat assignment.
func (g *Gate) MarkFirstAssignment() bool {
	return g.flip(func(s *domain.OnboardingSteps) *bool { return &s.FirstAssignment })
}

func (g *Gate) flip(field func(*domain.OnboardingSteps) *bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	flag := field(&g.state.Steps)
	if *flag {
		return false
	}
	*flag = true
	log.Info().Str("module", "core.onboarding").Str("step", string(CurrentStep(g.state.Steps))).Msg("onboarding advanced")
	return true
}

func (g *Gate) SetDismissed(dismissed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.Dismissed = dismissed
}

// ShowOverlay reports whether the guided overlay should render: hidden
// once dismissed or once every step is done.
func (g *Gate) ShowOverlay() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.state.Dismissed && CurrentStep(g.state.Steps) != domain.StepComplete
}
