package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBMI(t *testing.T) {
	tests := []struct {
		name    string
		height  float64
		weight  float64
		want    float64
		wantErr bool
	}{
		{"centimetres", 175, 70, 22.86, false},
		{"metres", 1.75, 70, 22.86, false},
		{"boundary ten is metres", 10, 70, 0.7, false},
		{"zero height", 0, 70, DefaultBMI, true},
		{"negative height", -1.7, 70, DefaultBMI, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateBMI(tt.height, tt.weight)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidHeight)
			} else {
				assert.NoError(t, err)
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestBMILevel(t *testing.T) {
	tests := []struct {
		bmi  float64
		want string
	}{
		{15, "Underweight"},
		{18.49, "Underweight"},
		{18.5, "Normal"},
		{24.99, "Normal"},
		{25, "Overweight"},
		{29.99, "Overweight"},
		{30, "Obese"},
		{45, "Obese"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BMILevel(tt.bmi), "bmi=%v", tt.bmi)
	}
}

func TestRules(t *testing.T) {
	values := map[string]float64{"Height": 180, "Weight": 90}

	bmi, err := BMIRule{Height: "Height", Weight: "Weight"}.Derive(values)
	require.NoError(t, err)
	assert.Equal(t, Number(27.78), bmi)

	values["BMI"] = bmi.Number
	level, err := BMILevelRule{BMI: "BMI"}.Derive(values)
	require.NoError(t, err)
	assert.Equal(t, Category("Overweight"), level)

	tdee, err := NewExprRule("bmr * 1.2", 1, "bmr")
	require.NoError(t, err)
	got, err := tdee.Derive(map[string]float64{"bmr": 1673.75})
	require.NoError(t, err)
	assert.InDelta(t, 2008.5, got.Number, 1e-9)

	div, err := NewExprRule("1.0 / x", -1, "x")
	require.NoError(t, err)
	_, err = div.Derive(map[string]float64{"x": 0})
	assert.Error(t, err, "infinite result is rejected")

	_, err = NewExprRule("x +", 2, "x")
	assert.Error(t, err)
}
