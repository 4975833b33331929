package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// WizardState is a position in the five-step survey form.
type WizardState int

const (
	Step1 WizardState = iota + 1 // age range
	Step2                        // gender
	Step3                        // discovery channels
	Step4                        // price range
	Step5                        // brand name
	Submitting
	Done
)

func (s WizardState) String() string {
	switch s {
	case Step1, Step2, Step3, Step4, Step5:
		return fmt.Sprintf("step%d", int(s))
	case Submitting:
		return "submitting"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("WizardState(%d)", int(s))
	}
}

// StepError reports the first step whose answers are incomplete.
type StepError struct {
	Step   WizardState
	Field  string
	Reason string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Step, e.Field, e.Reason)
}

// ErrInvalidTransition is returned when a transition is not allowed from the current state.
type ErrInvalidTransition struct {
	From   WizardState
	Action string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s from %s", e.Action, e.From)
}

// CheckStep applies the completeness predicate of step to a.
func CheckStep(step WizardState, a *Answers) error {
	switch step {
	case Step1:
		if a.AgeRange == "" {
			return &StepError{Step: step, Field: "age_range", Reason: "is required"}
		}
		if !a.AgeRange.Valid() {
			return &StepError{Step: step, Field: "age_range", Reason: "is not a known option"}
		}
	case Step2:
		if a.Gender == "" {
			return &StepError{Step: step, Field: "gender", Reason: "is required"}
		}
		if !a.Gender.Valid() {
			return &StepError{Step: step, Field: "gender", Reason: "is not a known option"}
		}
	case Step3:
		if len(a.DiscoveryChannels) == 0 {
			return &StepError{Step: step, Field: "discovery_channels", Reason: "requires at least one selection"}
		}
		seen := make(map[DiscoveryChannel]bool, len(a.DiscoveryChannels))
		for _, c := range a.DiscoveryChannels {
			if !c.Valid() {
				return &StepError{Step: step, Field: "discovery_channels", Reason: fmt.Sprintf("contains unknown option %q", c)}
			}
			if seen[c] {
				return &StepError{Step: step, Field: "discovery_channels", Reason: fmt.Sprintf("contains %q more than once", c)}
			}
			seen[c] = true
		}
		if a.DiscoveryOther != "" && !seen[ChannelOther] {
			return &StepError{Step: step, Field: "discovery_other", Reason: "is only accepted when \"other\" is selected"}
		}
		if utf8.RuneCountInString(a.DiscoveryOther) > MaxDiscoveryOtherLength {
			return &StepError{Step: step, Field: "discovery_other", Reason: fmt.Sprintf("must be at most %d characters", MaxDiscoveryOtherLength)}
		}
	case Step4:
		if a.PriceRange == "" {
			return &StepError{Step: step, Field: "price_range", Reason: "is required"}
		}
		if !a.PriceRange.Valid() {
			return &StepError{Step: step, Field: "price_range", Reason: "is not a known option"}
		}
	case Step5:
		name := strings.TrimSpace(a.BrandName)
		if name == "" {
			return &StepError{Step: step, Field: "brand_name", Reason: "is required"}
		}
		if utf8.RuneCountInString(name) > MaxBrandNameLength {
			return &StepError{Step: step, Field: "brand_name", Reason: fmt.Sprintf("must be at most %d characters", MaxBrandNameLength)}
		}
	default:
		return fmt.Errorf("%s has no answers to check", step)
	}
	return nil
}

// Wizard walks the survey form one step at a time.
// Answers only reach Submitting after every step has passed its check.
type Wizard struct {
	state WizardState
}

// NewWizard returns a wizard positioned at Step1.
func NewWizard() *Wizard {
	return &Wizard{state: Step1}
}

// State returns the current position.
func (w *Wizard) State() WizardState {
	return w.state
}

// Advance moves to the next state if the current step is complete.
// From Step5 it moves to Submitting.
func (w *Wizard) Advance(a *Answers) error {
	if w.state < Step1 || w.state > Step5 {
		return &ErrInvalidTransition{From: w.state, Action: "advance"}
	}
	if err := CheckStep(w.state, a); err != nil {
		return err
	}
	w.state++
	return nil
}

// Back moves one step back. Step1 and the terminal states cannot go back.
func (w *Wizard) Back() error {
	if w.state <= Step1 || w.state > Step5 {
		return &ErrInvalidTransition{From: w.state, Action: "go back"}
	}
	w.state--
	return nil
}

// Complete finishes a submission started from Submitting.
func (w *Wizard) Complete() error {
	if w.state != Submitting {
		return &ErrInvalidTransition{From: w.state, Action: "complete"}
	}
	w.state = Done
	return nil
}

// Fail returns a Submitting wizard to Step5 so the user can retry.
func (w *Wizard) Fail() error {
	if w.state != Submitting {
		return &ErrInvalidTransition{From: w.state, Action: "fail"}
	}
	w.state = Step5
	return nil
}

// ValidateAnswers runs a fresh wizard through every step and returns the
// first *StepError encountered, or nil once the answers reach Submitting.
func ValidateAnswers(a *Answers) error {
	if a == nil {
		return &StepError{Step: Step1, Field: "answers", Reason: "are required"}
	}
	w := NewWizard()
	for w.State() != Submitting {
		if err := w.Advance(a); err != nil {
			return err
		}
	}
	return nil
}
