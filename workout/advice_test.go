package workout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvise(t *testing.T) {
	tests := []struct {
		goal, level string
		bmi         float64
		exercises   string
		rec         string
	}{
		{"Weight Loss", "Overweight", 27.4, "High-intensity cardio", "With BMI 27.4, prioritize gradual weight loss"},
		{"Weight Gain", "Underweight", 17.9, "Compound movements", "With BMI 17.9, focus on healthy weight gain"},
		{"Muscle Gain", "Normal", 22, "Compound movements", "With BMI 22.0 in the normal range"},
		{"Strength", "Obese", 31.25, "Hypertrophy training", "With BMI 31.25, start with low-impact exercises"},
		{"Endurance", "Normal", 21.5, "Long steady-state cardio", "in the normal range"},
		{"Maintain", "Normal", 23, "Balanced routine", "With BMI 23.0 in the normal range"},
	}
	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			a := Advise(tt.goal, tt.level, tt.bmi)
			assert.Contains(t, a.Exercises, tt.exercises)
			assert.Contains(t, a.Recommendation, tt.rec)
			assert.Contains(t, a.Recommendation, "Always warm up before exercising")
			assert.NotEmpty(t, a.Equipment)
			assert.NotEmpty(t, a.Diet)
			assert.NotEmpty(t, a.Schedule)
		})
	}
}
