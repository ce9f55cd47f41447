package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"praxis/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_DefaultsAndEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PRAXIS_TEST_API_KEY", "from-env")
	path := writeFile(t, dir, "config.yaml", `
api:
  enabled: true
  base_url: http://crm.local
  api_key: ${PRAXIS_TEST_API_KEY}
  cache_ttl_seconds: 120
database:
  path: `+filepath.Join(dir, "data", "praxis.db")+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.API.APIKey)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 60, cfg.Calendar.Granularity)
	assert.Equal(t, "configs/providers.yaml", cfg.Calendar.ProvidersPath)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 30*time.Second, cfg.ProvidersReloadInterval())
	assert.Equal(t, 8090, cfg.Monitoring.HealthCheckPort)
}

func TestLoad_StandaloneCreatesDataDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "praxis.db")
	path := writeFile(t, dir, "config.yaml", "database:\n  path: "+dbPath+"\n")

	_, err := Load(path)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Dir(dbPath))
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"missing base url": "api:\n  enabled: true\n",
		"bad granularity":  "calendar:\n  granularity: 15\n",
		"bad percent":      "calendar:\n  placeholder_busy_percent: 150\n",
		"bad yaml":         "api: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, "config.yaml", body+"database:\n  path: "+filepath.Join(dir, "x.db")+"\n")
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, ".env", "PRAXIS_DOTENV_PROBE=loaded\n")
	t.Setenv("PRAXIS_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("PRAXIS_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(p, filepath.Join(dir, "absent.env")))
	assert.Equal(t, "loaded", os.Getenv("PRAXIS_DOTENV_PROBE"))
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}

const providersYAML = `
defaults:
  working_days: [1, 2, 3, 4, 5]
  working_hours: {start_hour: 9, end_hour: 17}
providers:
  - id: alvarez
    name: Dr. Maria Alvarez
    working_days: [1, 3, 7]
  - id: okafor
    name: Sam Okafor
    working_hours: {start_hour: 8, end_hour: 14}
`

func TestLoadProvidersConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "providers.yaml", providersYAML)

	cfg, err := LoadProvidersConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)

	alvarez := cfg.GetProvider("alvarez")
	require.NotNil(t, alvarez)
	assert.Equal(t, &model.WorkingHours{StartHour: 9, EndHour: 17}, alvarez.WorkingHours)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Sunday}, Weekdays(alvarez.WorkingDays))

	okafor := cfg.GetProvider("okafor")
	assert.Equal(t, []int{1, 2, 3, 4, 5}, okafor.WorkingDays)
	assert.Equal(t, 8, okafor.WorkingHours.StartHour)
	assert.Nil(t, cfg.GetProvider("ghost"))
}

func TestProvidersConfig_Validate(t *testing.T) {
	tests := map[string]string{
		"missing id":    "providers:\n  - name: x\n",
		"duplicate id":  "providers:\n  - id: a\n  - id: a\n",
		"bad day":       "providers:\n  - id: a\n    working_days: [0]\n",
		"inverted":      "providers:\n  - id: a\n    working_hours: {start_hour: 18, end_hour: 9}\n",
		"hour range":    "defaults:\n  working_hours: {start_hour: 9, end_hour: 24}\n",
		"default day 8": "defaults:\n  working_days: [8]\n",
	}
	dir := t.TempDir()
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadProvidersConfig(writeFile(t, dir, "providers.yaml", body))
			assert.Error(t, err)
		})
	}
}

func TestProvidersConfig_Overlay(t *testing.T) {
	path := writeFile(t, t.TempDir(), "providers.yaml", providersYAML)
	cfg, err := LoadProvidersConfig(path)
	require.NoError(t, err)

	in := []model.Resource{
		{ID: "alvarez"},
		{ID: "okafor", Name: "S. Okafor", WorkingHours: &model.WorkingHours{StartHour: 10, EndHour: 12}},
		{ID: "unknown", Name: "Walk-in"},
	}
	out := cfg.Overlay(in)
	require.Len(t, out, 3)

	assert.Equal(t, "Dr. Maria Alvarez", out[0].Name)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Sunday}, out[0].WorkingDays)
	assert.Equal(t, 17, out[0].EndHour())

	assert.Equal(t, "S. Okafor", out[1].Name, "directory values win")
	assert.Equal(t, 10, out[1].StartHour())

	assert.Equal(t, model.DefaultWorkingDays, out[2].WorkingDays)
	assert.Equal(t, 9, out[2].StartHour())

	assert.Nil(t, in[0].WorkingHours, "input is not mutated")

	var nilCfg *ProvidersConfig
	assert.Equal(t, in, nilCfg.Overlay(in))
}

func TestWatchProviders(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "providers.yaml", "providers:\n  - id: a\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		updates []*ProvidersConfig
		errs    []error
	)
	err := WatchProviders(ctx, path, 10*time.Millisecond,
		func(c *ProvidersConfig) { mu.Lock(); updates = append(updates, c); mu.Unlock() },
		func(e error) { mu.Lock(); errs = append(errs, e); mu.Unlock() })
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, updates, 1)
	mu.Unlock()

	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - id: a\n  - id: b\n"), 0o600))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) == 2 && len(updates[1].Providers) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - id: a\n  - id: a\n"), 0o600))
	later := future.Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Len(t, updates, 2, "invalid reload keeps the previous config")
	mu.Unlock()
}

func TestWatchProviders_InitialLoadError(t *testing.T) {
	err := WatchProviders(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), time.Second, nil, nil)
	assert.Error(t, err)
}
