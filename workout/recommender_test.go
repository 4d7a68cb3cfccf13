package workout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rushteam/carefolio/config"
	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/feature"
)

const artifactsJSON = `{
  "dataset_info": {
    "Sex": ["Male", "Female"],
    "Hypertension": ["No", "Yes"],
    "Diabetes": ["No", "Yes"],
    "Fitness Goal": ["Weight Gain", "Weight Loss"],
    "Level": ["Underweight", "Normal", "Overweight", "Obese"]
  },
  "label_encoders": {
    "Sex": ["Female", "Male"],
    "Hypertension": ["No", "Yes"],
    "Diabetes": ["No", "Yes"],
    "Fitness Goal": ["Weight Gain", "Weight Loss"],
    "Level": ["Normal", "Obese", "Overweight", "Underweight"]
  },
  "target_column": "Fitness Type",
  "target_classes": ["Cardio Fitness", "Muscular Fitness"]
}`

var wantColumns = []string{"Sex", "Hypertension", "Diabetes", "Fitness Goal", "Level", "Age", "Height", "Weight", "BMI"}

type fakeClassifier struct {
	proba []float64
	err   error
	got   *core.Record
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) PredictProba(ctx context.Context, rec *core.Record) ([]float64, error) {
	f.got = rec
	return f.proba, f.err
}

func newRecommender(t *testing.T, clf *fakeClassifier, opts ...Option) *Recommender {
	t.Helper()
	a, err := feature.ParseArtifacts([]byte(artifactsJSON))
	require.NoError(t, err)
	b, err := NewBundle(a, clf, nil, nil)
	require.NoError(t, err)
	return New(b, opts...)
}

func TestRecommend_ScenarioA(t *testing.T) {
	clf := &fakeClassifier{proba: []float64{0.3, 0.7}}
	r := newRecommender(t, clf)
	assert.Equal(t, wantColumns, r.Columns())

	rec := r.Recommend(context.Background(), map[string]any{
		"sex": "m", "age": 25, "height": 175, "weight": 70,
		"hypertension": "y", "diabetes": "no", "goal": "lose weight",
	})

	require.NotNil(t, clf.got)
	assert.Equal(t, wantColumns, clf.got.Columns())
	assert.Equal(t, []float64{1, 1, 0, 1, 0, 25, 175, 70, 22.86}, clf.got.Values())

	assert.Equal(t, "Muscular Fitness", rec.FitnessType)
	assert.Equal(t, 70.0, rec.Confidence)
	assert.InDelta(t, 22.86, rec.BMI, 1e-9)
	assert.Equal(t, "Normal", rec.Level)
	assert.Equal(t, "Weight Loss", rec.Goal)
	assert.Contains(t, rec.Exercises, "High-intensity cardio")
	assert.Contains(t, rec.Recommendation, "With BMI 22.86 in the normal range")
	assert.Empty(t, rec.Notes)
}

func TestRecommend_ScenarioB_Defaults(t *testing.T) {
	clf := &fakeClassifier{proba: []float64{0.875, 0.125}}
	r := newRecommender(t, clf)

	rec := r.Recommend(context.Background(), map[string]any{})

	require.NotNil(t, clf.got)
	assert.Equal(t, wantColumns, clf.got.Columns())
	// Maintain 不在训练词表中，回退到第一个取值 Weight Gain
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 25, 1.7, 70, 24.22}, clf.got.Values())
	assert.Equal(t, "Cardio Fitness", rec.FitnessType)
	assert.Equal(t, 87.5, rec.Confidence)
	assert.Equal(t, "Weight Gain", rec.Goal)
	require.Len(t, rec.Notes, 1)
	assert.Equal(t, feature.NoteNormalizeFallback, rec.Notes[0].Kind)
}

func TestRecommend_ExtraAndBadInputs(t *testing.T) {
	clf := &fakeClassifier{proba: []float64{0.5, 0.5}}
	r := newRecommender(t, clf)

	rec := r.Recommend(context.Background(), map[string]any{
		"Sex": "Woman", "age": "abc", "height": 0, "weight": 70, "unexpected": "x",
	})
	assert.Equal(t, wantColumns, clf.got.Columns())
	v, _ := clf.got.Get("Sex")
	assert.Equal(t, 0.0, v)
	v, _ = clf.got.Get("Age")
	assert.Equal(t, 25.0, v)
	assert.Equal(t, feature.DefaultBMI, rec.BMI)
	assert.Equal(t, "Cardio Fitness", rec.FitnessType, "ties go to the first class")
	assert.Contains(t, rec.Recommendation, "With BMI 22.0 ")
}

func TestRecommend_PredictionFailure(t *testing.T) {
	obs, logs := observer.New(zapcore.ErrorLevel)
	clf := &fakeClassifier{err: errors.New("boom")}
	r := newRecommender(t, clf, WithLogger(zap.New(obs)))

	rec := r.Recommend(context.Background(), map[string]any{"goal": "bulk"})
	assert.Equal(t, FallbackFitnessType, rec.FitnessType)
	assert.Equal(t, 0.0, rec.Confidence)
	assert.Contains(t, rec.Exercises, "Compound movements")
	assert.Equal(t, 1, logs.FilterMessage("workout prediction failed").Len())

	clf.err, clf.proba = nil, []float64{0.1, 0.2, 0.7}
	rec = r.Recommend(context.Background(), nil)
	assert.Equal(t, FallbackFitnessType, rec.FitnessType, "index beyond target classes")
}

func TestNewBundle_Columns(t *testing.T) {
	a, err := feature.ParseArtifacts([]byte(`{"label_encoders": {"Sex": ["Female", "Male"]}, "target_classes": ["A"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Sex", "Age", "Height", "Weight", "BMI"}, DefaultColumns(a))

	a.FeatureColumns = []string{"BMI", "Sex"}
	b, err := NewBundle(a, &fakeClassifier{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"BMI", "Sex"}, b.Assembler.Columns())

	_, err = NewBundle(a, notClassifier{}, nil, nil)
	assert.True(t, core.IsInvalidInput(err))
}

type columnsClassifier struct {
	fakeClassifier
	columns []string
}

func (c *columnsClassifier) Columns() []string { return c.columns }

func TestNewBundle_WarnsOnColumnsAbsentFromArtifacts(t *testing.T) {
	a, err := feature.ParseArtifacts([]byte(`{"feature_columns": ["Sex", "BMI"], "label_encoders": {"Sex": ["Female", "Male"]}, "target_classes": ["A"]}`))
	require.NoError(t, err)

	obs, logs := observer.New(zap.WarnLevel)
	clf := &columnsClassifier{columns: []string{"Sex", "Age", "BMI", "Steps"}}
	b, err := NewBundle(a, clf, nil, zap.New(obs))
	require.NoError(t, err)
	assert.Equal(t, clf.columns, b.Assembler.Columns())

	entries := logs.FilterMessage("model columns absent from artifacts feature_columns").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []any{"Age", "Steps"}, entries[0].ContextMap()["columns"])

	obs, logs = observer.New(zap.WarnLevel)
	clf.columns = []string{"BMI", "Sex"}
	_, err = NewBundle(a, clf, nil, zap.New(obs))
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("model columns absent from artifacts feature_columns").Len())
}

type notClassifier struct{}

func (notClassifier) Name() string { return "nope" }

type mapLoader map[string]string

func (m mapLoader) Fetch(ctx context.Context, source string) ([]byte, error) {
	v, ok := m[source]
	if !ok {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotFound, "missing "+source)
	}
	return []byte(v), nil
}

func TestLoadBundle(t *testing.T) {
	config.Register("workout-test", func(ctx context.Context, name string, params map[string]any, deps config.Deps) (core.Predictor, error) {
		return &fakeClassifier{proba: []float64{0.2, 0.8}}, nil
	})
	cfg := config.WorkoutConfig{
		Artifacts: "artifacts.json",
		Model:     config.ModelConfig{Type: "workout-test"},
		Fallback:  map[string]string{"Fitness Goal": "class:Weight Loss"},
	}
	b, err := LoadBundle(context.Background(), cfg, config.Deps{Loader: mapLoader{"artifacts.json": artifactsJSON}})
	require.NoError(t, err)
	assert.Equal(t, wantColumns, b.Assembler.Columns())

	rec := New(b).Recommend(context.Background(), map[string]any{})
	assert.Equal(t, "Muscular Fitness", rec.FitnessType)

	_, err = LoadBundle(context.Background(), config.WorkoutConfig{Artifacts: "nope.json", Model: cfg.Model},
		config.Deps{Loader: mapLoader{}})
	assert.True(t, core.IsNotFound(err))

	cfg.Fallback = map[string]string{"Sex": "bogus"}
	_, err = LoadBundle(context.Background(), cfg, config.Deps{Loader: mapLoader{"artifacts.json": artifactsJSON}})
	assert.Error(t, err)
}
