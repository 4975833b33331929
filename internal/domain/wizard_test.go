package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAnswers() Answers {
	return Answers{
		AgeRange:          Age30s,
		Gender:            GenderFemale,
		DiscoveryChannels: []DiscoveryChannel{ChannelInstagram, ChannelOther},
		DiscoveryOther:    "ポップアップストア",
		PriceRange:        Price3000To4999,
		BrandName:         "Maison Kitsuné",
	}
}

func TestValidateAnswers(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(a *Answers)
		wantStep  WizardState
		wantField string
	}{
		{name: "Valid answers", mutate: func(a *Answers) {}},
		{name: "Missing age range", mutate: func(a *Answers) { a.AgeRange = "" }, wantStep: Step1, wantField: "age_range"},
		{name: "Unknown age range", mutate: func(a *Answers) { a.AgeRange = "teen" }, wantStep: Step1, wantField: "age_range"},
		{name: "Unknown gender", mutate: func(a *Answers) { a.Gender = "unknown" }, wantStep: Step2, wantField: "gender"},
		{name: "No discovery channel", mutate: func(a *Answers) { a.DiscoveryChannels = nil; a.DiscoveryOther = "" }, wantStep: Step3, wantField: "discovery_channels"},
		{name: "Unknown discovery channel", mutate: func(a *Answers) { a.DiscoveryChannels = []DiscoveryChannel{"radio"} }, wantStep: Step3, wantField: "discovery_channels"},
		{name: "Duplicate discovery channel", mutate: func(a *Answers) {
			a.DiscoveryChannels = []DiscoveryChannel{ChannelX, ChannelX}
			a.DiscoveryOther = ""
		}, wantStep: Step3, wantField: "discovery_channels"},
		{name: "Other text without other channel", mutate: func(a *Answers) { a.DiscoveryChannels = []DiscoveryChannel{ChannelX} }, wantStep: Step3, wantField: "discovery_other"},
		{name: "Other text too long", mutate: func(a *Answers) { a.DiscoveryOther = strings.Repeat("あ", MaxDiscoveryOtherLength+1) }, wantStep: Step3, wantField: "discovery_other"},
		{name: "Other text at limit", mutate: func(a *Answers) { a.DiscoveryOther = strings.Repeat("あ", MaxDiscoveryOtherLength) }},
		{name: "Other selected without text", mutate: func(a *Answers) { a.DiscoveryOther = "" }},
		{name: "Missing price range", mutate: func(a *Answers) { a.PriceRange = "" }, wantStep: Step4, wantField: "price_range"},
		{name: "Blank brand name", mutate: func(a *Answers) { a.BrandName = "   " }, wantStep: Step5, wantField: "brand_name"},
		{name: "Brand name too long", mutate: func(a *Answers) { a.BrandName = strings.Repeat("ブ", MaxBrandNameLength+1) }, wantStep: Step5, wantField: "brand_name"},
		{name: "Brand name at limit with padding", mutate: func(a *Answers) { a.BrandName = "  " + strings.Repeat("ブ", MaxBrandNameLength) + "  " }},
		{name: "First failing step wins", mutate: func(a *Answers) { a.Gender = ""; a.BrandName = "" }, wantStep: Step2, wantField: "gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAnswers()
			tt.mutate(&a)

			err := ValidateAnswers(&a)
			if tt.wantStep == 0 {
				assert.NoError(t, err)
				return
			}

			var stepErr *StepError
			require.True(t, errors.As(err, &stepErr), "expected *StepError, got %v", err)
			assert.Equal(t, tt.wantStep, stepErr.Step)
			assert.Equal(t, tt.wantField, stepErr.Field)
		})
	}
}

func TestValidateAnswers_Nil(t *testing.T) {
	var stepErr *StepError
	require.ErrorAs(t, ValidateAnswers(nil), &stepErr)
	assert.Equal(t, Step1, stepErr.Step)
}

func TestWizard_AdvanceGatedByStep(t *testing.T) {
	a := Answers{AgeRange: Age20s}
	w := NewWizard()

	require.NoError(t, w.Advance(&a))
	assert.Equal(t, Step2, w.State())

	err := w.Advance(&a)
	require.Error(t, err)
	assert.Equal(t, Step2, w.State(), "incomplete step must not advance")

	a.Gender = GenderNoAnswer
	require.NoError(t, w.Advance(&a))
	assert.Equal(t, Step3, w.State())
}

func TestWizard_FullRun(t *testing.T) {
	a := validAnswers()
	w := NewWizard()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Advance(&a))
	}
	assert.Equal(t, Submitting, w.State())

	var transitionErr *ErrInvalidTransition
	assert.ErrorAs(t, w.Advance(&a), &transitionErr)
	assert.ErrorAs(t, w.Back(), &transitionErr)

	require.NoError(t, w.Complete())
	assert.Equal(t, Done, w.State())
	assert.ErrorAs(t, w.Complete(), &transitionErr)
}

func TestWizard_FailReturnsToLastStep(t *testing.T) {
	a := validAnswers()
	w := NewWizard()
	for w.State() != Submitting {
		require.NoError(t, w.Advance(&a))
	}

	require.NoError(t, w.Fail())
	assert.Equal(t, Step5, w.State())
	require.NoError(t, w.Advance(&a))
	assert.Equal(t, Submitting, w.State())
}

func TestWizard_Back(t *testing.T) {
	a := validAnswers()
	w := NewWizard()

	var transitionErr *ErrInvalidTransition
	assert.ErrorAs(t, w.Back(), &transitionErr)

	require.NoError(t, w.Advance(&a))
	require.NoError(t, w.Advance(&a))
	require.NoError(t, w.Back())
	assert.Equal(t, Step2, w.State())
}

func TestWizardState_String(t *testing.T) {
	assert.Equal(t, "step1", Step1.String())
	assert.Equal(t, "step5", Step5.String())
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "WizardState(42)", WizardState(42).String())
}

func TestAnswers_Normalize(t *testing.T) {
	a := Answers{BrandName: "  Uniqlo ", DiscoveryOther: " tv\n"}
	a.Normalize()
	assert.Equal(t, "Uniqlo", a.BrandName)
	assert.Equal(t, "tv", a.DiscoveryOther)
	assert.True(t, (&Answers{DiscoveryChannels: []DiscoveryChannel{ChannelLine}}).HasChannel(ChannelLine))
}
