package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/model"
)

type stubPredictor struct{ name string }

func (s *stubPredictor) Name() string { return s.name }

func (s *stubPredictor) PredictProba(ctx context.Context, rec *core.Record) ([]float64, error) {
	return []float64{0.25, 0.75}, nil
}

func TestRegistry_BuildPredictor(t *testing.T) {
	var gotParams map[string]any
	Register("stub", func(ctx context.Context, name string, params map[string]any, deps Deps) (core.Predictor, error) {
		gotParams = params
		return &stubPredictor{name: name}, nil
	})
	assert.Contains(t, SupportedTypes(), "stub")

	p, err := BuildPredictor(context.Background(), "workout",
		ModelConfig{Type: "stub", Exclusive: true, Params: map[string]any{"k": "v"}}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "workout", p.Name())
	assert.Equal(t, "v", gotParams["k"])
	assert.IsType(t, &model.Observed{}, p)

	c, ok := p.(core.Classifier)
	require.True(t, ok)
	proba, err := c.PredictProba(context.Background(), core.NewRecord(nil))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.75}, proba)
}

func TestRegistry_UnknownType(t *testing.T) {
	_, err := BuildPredictor(context.Background(), "x", ModelConfig{Type: "does-not-exist"}, Deps{})
	require.Error(t, err)
	assert.True(t, core.IsNotSupported(err))

	cfg := Default()
	cfg.Workout.Model.Type = "does-not-exist"
	assert.Error(t, cfg.ValidateModelTypes())
}

func TestRegister_IgnoresInvalid(t *testing.T) {
	before := SupportedTypes()
	Register("", nil)
	Register("nil-builder", nil)
	assert.Equal(t, before, SupportedTypes())
}
