package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rushteam/carefolio/core"
)

func TestSafeLabelEncoder_SortsClasses(t *testing.T) {
	enc, err := NewSafeLabelEncoder("Fitness Goal", []string{"Weight Loss", "Weight Gain", "Weight Loss"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Weight Gain", "Weight Loss"}, enc.Classes())
	assert.Equal(t, EncodeResult{Code: 1, Matched: true}, enc.Encode("Weight Loss"))
}

func TestSafeLabelEncoder_RoundTrip(t *testing.T) {
	enc, err := NewSafeLabelEncoder("Level", []string{"Underweight", "Normal", "Overweight", "Obese"})
	require.NoError(t, err)
	for _, c := range enc.Classes() {
		res := enc.Encode(c)
		require.True(t, res.Matched)
		got, ok := enc.Decode(res.Code)
		assert.True(t, ok)
		assert.Equal(t, c, got)
	}
	_, ok := enc.Decode(-1)
	assert.False(t, ok)
	_, ok = enc.Decode(len(enc.Classes()))
	assert.False(t, ok)
}

func TestSafeLabelEncoder_UnknownUsesFallback(t *testing.T) {
	obs, logs := observer.New(zapcore.WarnLevel)
	classes := []string{"Muscle Gain", "Weight Gain", "Weight Loss"}

	tests := []struct {
		name   string
		policy string
		want   int
	}{
		{"default first", "", 0},
		{"named class", "class:Weight Loss", 2},
		{"explicit code", "code:1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseFallbackPolicy(tt.policy)
			require.NoError(t, err)
			enc, err := NewSafeLabelEncoder("Fitness Goal", classes, WithFallbackPolicy(p), WithEncoderLogger(zap.New(obs)))
			require.NoError(t, err)
			assert.Equal(t, EncodeResult{Code: tt.want, Matched: false}, enc.Encode("Yoga"))
			assert.Equal(t, tt.want, enc.FallbackCode())
		})
	}
	assert.Equal(t, 3, logs.FilterMessage("unseen label, using fallback code").Len())
}

func TestSafeLabelEncoder_EncodeBatch(t *testing.T) {
	enc, err := NewSafeLabelEncoder("Sex", []string{"Female", "Male"})
	require.NoError(t, err)
	got := enc.EncodeBatch([]string{"Male", "Other", "Female"})
	assert.Equal(t, []EncodeResult{{1, true}, {0, false}, {0, true}}, got)
}

func TestSafeLabelEncoder_Errors(t *testing.T) {
	_, err := NewSafeLabelEncoder("x", nil)
	assert.True(t, core.IsInvalidInput(err))

	_, err = NewSafeLabelEncoder("x", []string{"a"}, WithFallbackPolicy(FallbackPolicy{Kind: FallbackClass, Class: "b"}))
	assert.True(t, core.IsInvalidInput(err))

	_, err = NewSafeLabelEncoder("x", []string{"a"}, WithFallbackPolicy(FallbackPolicy{Kind: FallbackCode, Code: 3}))
	assert.True(t, core.IsInvalidInput(err))
}

func TestParseFallbackPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FallbackPolicy
		wantErr bool
	}{
		{"", FallbackPolicy{Kind: FallbackFirst}, false},
		{"first", FallbackPolicy{Kind: FallbackFirst}, false},
		{"class:Normal", FallbackPolicy{Kind: FallbackClass, Class: "Normal"}, false},
		{"code:2", FallbackPolicy{Kind: FallbackCode, Code: 2}, false},
		{"code:two", FallbackPolicy{}, true},
		{"class:", FallbackPolicy{}, true},
		{"last", FallbackPolicy{}, true},
		{"mode:x", FallbackPolicy{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFallbackPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.in != "" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}

func TestEncoderSet(t *testing.T) {
	set, err := NewEncoderSet(map[string][]string{
		"Sex":   {"Male", "Female"},
		"Level": {"Normal", "Obese"},
	}, map[string]FallbackPolicy{"Level": {Kind: FallbackClass, Class: "Normal"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Level", "Sex"}, set.Fields())

	level, ok := set.Get("Level")
	require.True(t, ok)
	assert.Equal(t, 0, level.Encode("Unknown").Code)

	_, ok = set.Get("Goal")
	assert.False(t, ok)
}

func TestOneHotEncoder(t *testing.T) {
	columns := []string{"age", "diet_type_non-veg", "diet_type_vegan", "diet_type_vegetarian", "gender_male"}
	enc := OneHotFromColumns("diet_type", columns)
	require.NotNil(t, enc)
	assert.Equal(t, []string{"non-veg", "vegan", "vegetarian"}, enc.Categories)
	assert.Equal(t, []string{"diet_type_non-veg", "diet_type_vegan", "diet_type_vegetarian"}, enc.Columns())

	assert.Equal(t, map[string]float64{
		"diet_type_non-veg":    0,
		"diet_type_vegan":      1,
		"diet_type_vegetarian": 0,
	}, enc.Encode("vegan"))

	for _, v := range enc.Encode("eggetarian") {
		assert.Zero(t, v, "baseline category encodes as all zeros")
	}
	assert.Nil(t, OneHotFromColumns("cuisine", columns))
}
