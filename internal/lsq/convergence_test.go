package lsq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvergenceTrackerFunctionTolerance(t *testing.T) {
	opts := DefaultOptions()
	opts.FunctionTolerance = 1e-3
	tracker := NewConvergenceTracker(opts)

	assert.False(t, tracker.Update(100)) // first cost only initialises
	assert.False(t, tracker.Update(50))
	assert.False(t, tracker.Update(49))
	assert.True(t, tracker.Update(48.99))

	assert.Equal(t, 48.99, tracker.BestCost())
	assert.Equal(t, []float64{100, 50, 49, 48.99}, tracker.History())
}

func TestConvergenceTrackerGradientAndStep(t *testing.T) {
	opts := DefaultOptions()
	opts.GradientTolerance = 1e-6
	opts.ParameterTolerance = 1e-4
	tracker := NewConvergenceTracker(opts)

	assert.True(t, tracker.GradientConverged(1e-7))
	assert.False(t, tracker.GradientConverged(1e-5))

	assert.True(t, tracker.StepConverged(5e-4, 10))
	assert.False(t, tracker.StepConverged(2e-3, 10))
}

func TestConvergenceTrackerHistoryIsCopy(t *testing.T) {
	tracker := NewConvergenceTracker(DefaultOptions())
	tracker.Update(3)

	h := tracker.History()
	h[0] = 99
	assert.Equal(t, []float64{3}, tracker.History())
}

func TestOptionsValidate(t *testing.T) {
	valid := DefaultOptions()
	assert.NoError(t, valid.Validate())

	cases := map[string]func(o *Options){
		"MaxIterations":       func(o *Options) { o.MaxIterations = -1 },
		"DampingFactor":       func(o *Options) { o.DampingFactor = 1 },
		"MinDamping":          func(o *Options) { o.MinDamping = 0 },
		"MaxDampingIncreases": func(o *Options) { o.MaxDampingIncreases = -1 },
		"MinRelativeDecrease": func(o *Options) { o.MinRelativeDecrease = 1 },
		"FunctionTolerance":   func(o *Options) { o.FunctionTolerance = -1 },
		"GradientTolerance":   func(o *Options) { o.GradientTolerance = -1 },
		"ParameterTolerance":  func(o *Options) { o.ParameterTolerance = -1 },
	}
	for field, mutate := range cases {
		o := DefaultOptions()
		mutate(&o)
		err := o.Validate()
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, field)
		assert.Equal(t, field, ve.Field)
	}

	o := DefaultOptions()
	o.InitialDamping = 0
	assert.Error(t, o.Validate())

	o = DefaultOptions()
	o.InitialDamping = 1e40
	assert.Error(t, o.Validate())
}
