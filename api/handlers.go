package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/rushteam/carefolio/coach"
	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/mealplan"
	"github.com/rushteam/carefolio/metrics"
	"github.com/rushteam/carefolio/workout"
)

type handlers struct {
	svc     Services
	logger  *zap.Logger
	started time.Time
}

func (h *handlers) readiness() map[string]bool {
	return map[string]bool{
		"workout":  h.svc.Workout != nil,
		"mealplan": h.svc.MealPlan != nil,
		"coach":    h.svc.Coach != nil,
	}
}

func (h *handlers) publishReadiness() {
	for name, ok := range h.readiness() {
		v := 0.0
		if ok {
			v = 1
		}
		metrics.ServiceReady.WithLabelValues(name).Set(v)
	}
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type readyResponse struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	services := h.readiness()
	for _, ok := range services {
		if ok {
			writeJSON(w, http.StatusOK, readyResponse{Status: "ok", Services: services})
			return
		}
	}
	writeJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "unavailable", Services: services})
}

type workoutResponse struct {
	Status string `json:"status"`
	*workout.Recommendation
}

// recommendWorkout 接受表单或 JSON 对象
func (h *handlers) recommendWorkout(w http.ResponseWriter, r *http.Request) {
	if h.svc.Workout == nil {
		writeError(w, http.StatusServiceUnavailable, msgNotInitialized)
		return
	}
	raw, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec := h.svc.Workout.Recommend(r.Context(), raw)
	if len(rec.Notes) > 0 {
		h.logger.Debug("workout input degraded", zap.Any("notes", rec.Notes))
	}
	writeJSON(w, http.StatusOK, workoutResponse{Status: "success", Recommendation: rec})
}

func (h *handlers) predictMealPlan(w http.ResponseWriter, r *http.Request) {
	if h.svc.MealPlan == nil {
		writeError(w, http.StatusServiceUnavailable, msgNotInitialized)
		return
	}
	raw, err := decodeObject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := h.svc.MealPlan.Predict(r.Context(), raw)
	switch {
	case errors.Is(err, mealplan.ErrNoInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, plan)
	}
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	if h.svc.Coach == nil {
		writeError(w, http.StatusServiceUnavailable, msgNotInitialized)
		return
	}
	var req coach.Request
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reply, err := h.svc.Coach.Chat(r.Context(), &req)
	switch {
	case core.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, reply)
	}
}

// readInput 按 Content-Type 读取 JSON 对象或表单字段（每个字段取第一个值）
func readInput(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		return decodeObject(w, r)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, errors.New("invalid form body")
	}
	raw := make(map[string]any, len(r.Form))
	for k, vs := range r.Form {
		if len(vs) > 0 {
			raw[k] = strings.TrimSpace(vs[0])
		}
	}
	return raw, nil
}

// decodeObject 读取 JSON 对象，空请求体返回 nil map
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var raw map[string]any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.New("invalid JSON body")
	}
	return raw, nil
}
