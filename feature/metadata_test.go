package feature

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/store"
)

const artifactsJSON = `{
  "feature_columns": ["Sex", "Hypertension", "Age", "BMI"],
  "dataset_info": {"Sex": ["Male", "Female"], "Hypertension": ["No", "Yes"], "Flag": [1, 0, true]},
  "label_encoders": {"Sex": ["Female", "Male"], "Hypertension": ["No", "Yes"]},
  "target_column": "Fitness Type",
  "target_classes": ["Cardio Fitness", "Muscular Fitness"],
  "model_version": "v1"
}`

const artifactsYAML = `
feature_columns: [Sex, Age]
dataset_info:
  Sex: [Male, Female]
label_encoders:
  Sex: [Female, Male]
target_classes: [A, B]
model_version: v2
`

func TestParseArtifacts(t *testing.T) {
	a, err := ParseArtifacts([]byte(artifactsJSON))
	require.NoError(t, err)
	assert.Equal(t, []string{"Sex", "Hypertension", "Age", "BMI"}, a.FeatureColumns)
	assert.Equal(t, StringList{"1", "0", "true"}, a.DatasetInfo["Flag"])
	assert.Equal(t, []string{"Male", "Female"}, a.Vocabulary("Sex").Values())
	assert.Equal(t, []string{"Level"}, a.MissingColumns([]string{"Sex", "Level"}))

	encoders, err := a.Encoders(nil)
	require.NoError(t, err)
	sex, ok := encoders.Get("Sex")
	require.True(t, ok)
	assert.Equal(t, 1, sex.Encode("Male").Code)

	target, err := a.TargetEncoder()
	require.NoError(t, err)
	name, ok := target.Decode(1)
	assert.True(t, ok)
	assert.Equal(t, "Muscular Fitness", name)
	assert.Equal(t, "Fitness Type", target.Field())

	y, err := ParseArtifacts([]byte(artifactsYAML))
	require.NoError(t, err)
	assert.Equal(t, "v2", y.ModelVersion)
	assert.Equal(t, []string{"Male", "Female"}, y.Vocabulary("Sex").Values())
}

func TestParseArtifacts_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "  "},
		{"bad json", "{"},
		{"empty classes", `{"label_encoders": {"Sex": []}}`},
		{"duplicate column", `{"feature_columns": ["a", "a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArtifacts([]byte(tt.data))
			assert.True(t, core.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestVocabularyFallsBackToEncoderClasses(t *testing.T) {
	a := &Artifacts{LabelEncoders: map[string]StringList{"Level": {"Normal", "Obese"}}}
	assert.Equal(t, []string{"Normal", "Obese"}, a.Vocabulary("Level").Values())
	assert.True(t, a.Vocabulary("Missing").Empty())
}

func TestSourceLoader(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "artifacts.json")
	require.NoError(t, os.WriteFile(path, []byte(artifactsJSON), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artifacts.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(artifactsYAML))
	}))
	defer srv.Close()

	mem := store.NewMemoryStore()
	defer mem.Close()
	storeLoader := NewStoreLoader(mem)
	require.NoError(t, storeLoader.Put(ctx, "store://workout/artifacts.json", []byte(artifactsJSON)))

	loader := NewSourceLoader(NewHTTPLoader(time.Second), mem)

	tests := []struct {
		name    string
		source  string
		version string
		check   func(error) bool
	}{
		{"file", path, "v1", nil},
		{"http", srv.URL + "/artifacts.yaml", "v2", nil},
		{"store", "store://workout/artifacts.json", "v1", nil},
		{"missing file", filepath.Join(dir, "nope.json"), "", core.IsNotFound},
		{"missing url", srv.URL + "/nope", "", core.IsNotFound},
		{"missing key", "store://nope", "", core.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := loader.Load(ctx, tt.source)
			if tt.check != nil {
				assert.True(t, tt.check(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.version, a.ModelVersion)
		})
	}

	noStore := NewSourceLoader(nil, nil)
	_, err := noStore.Load(ctx, "store://x")
	assert.True(t, core.IsNotSupported(err))
}
