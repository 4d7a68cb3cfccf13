package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carefolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Minute, cfg.Server.RateWindow)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "none", cfg.Store.Backend)
	assert.True(t, cfg.Workout.Enabled)
	assert.Equal(t, "forest", cfg.Workout.Model.Type)
	assert.Equal(t, "artifacts/workout/model.json", cfg.Workout.Model.Params["path"])
	assert.False(t, cfg.Coach.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9000"
  rate_window: 30s
logging:
  level: debug
workout:
  artifacts: store://workout
  fallback:
    Goal: "class:Maintain"
  model:
    type: rpc
    params:
      endpoint: http://models:8501/v1/models/workout:predict
      timeout: 2
mealplan:
  enabled: false
`)
	t.Setenv("CAREFOLIO_SERVER__ADDR", ":9100")
	t.Setenv("CAREFOLIO_COACH__API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, 30*time.Second, cfg.Server.RateWindow)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "store://workout", cfg.Workout.Artifacts)
	assert.Equal(t, "class:Maintain", cfg.Workout.Fallback["Goal"])
	assert.Equal(t, "rpc", cfg.Workout.Model.Type)
	assert.Equal(t, "http://models:8501/v1/models/workout:predict", cfg.Workout.Model.Params["endpoint"])
	assert.False(t, cfg.MealPlan.Enabled)
	assert.Equal(t, "secret", cfg.Coach.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "etcd" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Store.Backend = "redis" }, wantErr: true},
		{name: "redis with addr", mutate: func(c *Config) {
			c.Store.Backend = "redis"
			c.Store.Redis.Addr = "localhost:6379"
		}},
		{name: "coach without key", mutate: func(c *Config) { c.Coach.Enabled = true }, wantErr: true},
		{name: "coach with key", mutate: func(c *Config) {
			c.Coach.Enabled = true
			c.Coach.APIKey = "k"
		}},
		{name: "workout model type", mutate: func(c *Config) { c.Workout.Model.Type = "" }, wantErr: true},
		{name: "disabled workout ignores model", mutate: func(c *Config) {
			c.Workout.Enabled = false
			c.Workout.Model.Type = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "coach.api_key", envTransformFunc("CAREFOLIO_COACH__API_KEY"))
	assert.Equal(t, "server.rate_limit", envTransformFunc("CAREFOLIO_SERVER__RATE_LIMIT"))
	assert.Equal(t, "", envTransformFunc("CAREFOLIO_CONFIG"))
}
