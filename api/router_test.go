package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/carefolio/coach"
	"github.com/rushteam/carefolio/config"
	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/feature"
	"github.com/rushteam/carefolio/mealplan"
	"github.com/rushteam/carefolio/workout"
)

const artifactsJSON = `{
  "dataset_info": {"Sex": ["Male", "Female"], "Fitness Goal": ["Weight Gain", "Weight Loss"]},
  "label_encoders": {"Sex": ["Female", "Male"], "Fitness Goal": ["Weight Gain", "Weight Loss"]},
  "target_classes": ["Cardio Fitness", "Muscular Fitness"]
}`

type fakeClassifier struct{ err error }

func (f fakeClassifier) Name() string { return "workout" }

func (f fakeClassifier) PredictProba(ctx context.Context, rec *core.Record) ([]float64, error) {
	return []float64{0.25, 0.75}, f.err
}

type fakeMealModel struct{ err error }

func (f fakeMealModel) Name() string { return "meal" }

func (f fakeMealModel) PredictValues(ctx context.Context, rec *core.Record) ([]float64, error) {
	return []float64{2200.4, 260.6, 110, 70}, f.err
}

func (f fakeMealModel) PredictLabels(ctx context.Context, rec *core.Record) ([]int, error) {
	return []int{1, 0, 0, 0, 0, 0, 0, 1}, f.err
}

type fakeChat struct{}

func (fakeChat) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("Drink water.", nil), nil
}

func newServices(t *testing.T, predictErr error) Services {
	t.Helper()
	a, err := feature.ParseArtifacts([]byte(artifactsJSON))
	require.NoError(t, err)
	wb, err := workout.NewBundle(a, fakeClassifier{err: predictErr}, nil, nil)
	require.NoError(t, err)
	mb, err := mealplan.NewBundle(fakeMealModel{err: predictErr}, fakeMealModel{err: predictErr}, config.MealPlanConfig{}, nil)
	require.NoError(t, err)
	return Services{
		Workout:  workout.New(wb),
		MealPlan: mealplan.New(mb),
		Coach:    coach.New(fakeChat{}),
	}
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr, out
}

func TestWorkoutRecommend(t *testing.T) {
	r := NewRouter(newServices(t, nil))

	form := url.Values{"sex": {"f"}, "age": {"30"}, "height": {"165"}, "weight": {"60"}, "goal": {"cutting"}}
	rr, out := do(t, r, http.MethodPost, "/api/v1/workout/recommend", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Muscular Fitness", out["fitness_type"])
	assert.Equal(t, 75.0, out["confidence"])
	assert.Equal(t, 22.04, out["bmi"])
	assert.Equal(t, "Normal", out["level"])
	assert.Equal(t, "Weight Loss", out["goal"])
	assert.NotEmpty(t, out["exercises"])
	assert.NotEmpty(t, out["recommendation"])

	rr, out = do(t, r, http.MethodPost, "/api/v1/workout/recommend", "application/json", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 24.22, out["bmi"])

	rr, out = do(t, r, http.MethodPost, "/api/v1/workout/recommend", "application/json", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "error", out["status"])
}

func TestWorkoutRecommend_PredictionError(t *testing.T) {
	r := NewRouter(newServices(t, errors.New("down")))
	rr, out := do(t, r, http.MethodPost, "/api/v1/workout/recommend", "application/json", `{"sex": "male"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, workout.FallbackFitnessType, out["fitness_type"])
	assert.Equal(t, 0.0, out["confidence"])
}

func TestMealPlanPredict(t *testing.T) {
	r := NewRouter(newServices(t, nil))

	rr, out := do(t, r, http.MethodPost, "/api/v1/mealplan/predict", "application/json", `{"age": 28, "gender": "male"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, map[string]any{"calories": 2200.0, "carbs_g": 261.0, "protein_g": 110.0, "fats_g": 70.0}, out["predicted_nutrition"])
	assert.Equal(t, mealplan.MealPlanCalorieDeficitHighProtein.String(), out["meal_plan_type"])
	assert.Equal(t, mealplan.HealthTagGeneralPlan.String(), out["health_tag"])
	assert.NotEmpty(t, out["meal_plan_explanation"])
	assert.NotEmpty(t, out["health_tag_explanation"])

	for _, body := range []string{"", "{}"} {
		rr, out = do(t, r, http.MethodPost, "/api/v1/mealplan/predict", "application/json", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "No input provided", out["message"])
	}
}

func TestMealPlanPredict_ModelError(t *testing.T) {
	r := NewRouter(newServices(t, errors.New("model exploded")))
	rr, out := do(t, r, http.MethodPost, "/api/v1/mealplan/predict", "application/json", `{"age": 28}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, mealplan.StatusDegraded, out["status"])
	assert.Equal(t, true, out["degraded"])
	assert.Equal(t, map[string]any{"calories": 0.0, "carbs_g": 0.0, "protein_g": 0.0, "fats_g": 0.0}, out["predicted_nutrition"])
	assert.Equal(t, mealplan.MealPlanUnmatched.String(), out["meal_plan_type"])
	assert.Equal(t, mealplan.HealthTagGeneralRecommendation.String(), out["health_tag"])
	assert.NotContains(t, rr.Body.String(), "model exploded")
}

func TestCoachChat(t *testing.T) {
	r := NewRouter(newServices(t, nil))

	body := `{"profile": {"gender": "Male", "height_cm": 180, "weight_kg": 80}, "message": "How much water?"}`
	rr, out := do(t, r, http.MethodPost, "/api/v1/coach/chat", "application/json", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "assistant", out["role"])
	assert.Equal(t, "Drink water.", out["content"])

	body = `{"profile": {"gender": "Male", "height_cm": 20, "weight_kg": 80}, "message": "x"}`
	rr, _ = do(t, r, http.MethodPost, "/api/v1/coach/chat", "application/json", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNotInitialized(t *testing.T) {
	r := NewRouter(Services{})
	for _, path := range []string{"/api/v1/workout/recommend", "/api/v1/mealplan/predict", "/api/v1/coach/chat"} {
		rr, out := do(t, r, http.MethodPost, path, "application/json", `{"age": 1}`)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
		assert.Equal(t, map[string]any{"status": "error", "message": "model not initialized"}, out)
	}

	rr, out := do(t, r, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unavailable", out["status"])

	rr, out = do(t, r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestReadyzPartial(t *testing.T) {
	svc := newServices(t, nil)
	svc.Coach = nil
	rr, out := do(t, NewRouter(svc), http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"workout": true, "mealplan": true, "coach": false}, out["services"])
}

func TestRoutingAndMetrics(t *testing.T) {
	r := NewRouter(newServices(t, nil))

	rr, out := do(t, r, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "error", out["status"])

	rr, _ = do(t, r, http.MethodGet, "/api/v1/workout/recommend", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr, _ = do(t, r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "carefolio_http_request_duration_seconds")
}

func TestRateLimit(t *testing.T) {
	r := NewRouter(newServices(t, nil), WithRateLimit(1, time.Minute))
	rr, _ := do(t, r, http.MethodPost, "/api/v1/workout/recommend", "application/json", "{}")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr, _ = do(t, r, http.MethodPost, "/api/v1/workout/recommend", "application/json", "{}")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
