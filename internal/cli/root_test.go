package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/config"
	"github.com/seuros/studybuddy/internal/handlers"
	"github.com/seuros/studybuddy/internal/realtime"
	"github.com/seuros/studybuddy/internal/wizard"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "stats", "migrate", "admin", "healthcheck", "doctor"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, RootCmd.PersistentFlags().Lookup("self-upgrade"))
	assert.NotNil(t, RootCmd.PersistentFlags().Lookup("database-url"))
}

func TestLoadConfigAppliesFlagOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	original := flagDataDir
	flagDataDir = "/tmp/studybuddy-flag"
	t.Cleanup(func() { flagDataDir = original })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/studybuddy-flag", cfg.DataDir)
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STUDYBUDDY_DOTENV_TEST=from-file\nSTUDYBUDDY_DOTENV_SET=from-file\n"), 0o600))
	t.Setenv("STUDYBUDDY_DOTENV_SET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("STUDYBUDDY_DOTENV_TEST") })

	loadDotEnv()

	assert.Equal(t, "from-file", os.Getenv("STUDYBUDDY_DOTENV_TEST"))
	assert.Equal(t, "from-env", os.Getenv("STUDYBUDDY_DOTENV_SET"))
}

func TestWizardConfigFromConfig(t *testing.T) {
	cfg := &config.Config{GoalsMode: "single", LevelMode: "self_assessment", AutoAdvanceDelay: 400 * time.Millisecond}
	wc := wizardConfig(cfg)
	assert.Equal(t, wizard.GoalsSingle, wc.GoalsMode)
	assert.Equal(t, wizard.LevelSelfAssessment, wc.LevelMode)
	assert.Equal(t, 400*time.Millisecond, wc.AutoAdvanceDelay)
}

func TestOpenAnalyticsStoreLocal(t *testing.T) {
	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	store, listener := openAnalyticsStore(&config.Config{AnalyticsStore: config.AnalyticsLocal, DataDir: t.TempDir()}, hub)
	assert.IsType(t, &analytics.LocalStore{}, store)
	assert.IsType(t, &realtime.HubPublisher{}, listener)
}

func TestNewAppSetsVersionHeader(t *testing.T) {
	original := Version
	Version = "9.9.9"
	t.Cleanup(func() { Version = original })

	svc := analytics.NewService(analytics.NewLocalStore(""), analytics.Options{})
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() { _ = svc.Dispose() })

	registry := wizard.NewRegistry(nil)
	t.Cleanup(registry.Close)

	api := &handlers.API{Analytics: svc, Wizards: registry, Version: Version}
	app := newApp(&config.Config{TrustedOrigins: []string{"localhost"}}, api, zapNop())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "9.9.9", resp.Header.Get("X-StudyBuddy-Version"))
}

func TestRunHealthcheck(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/up", r.URL.Path)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	assert.NoError(t, runHealthcheck(srv.URL))

	status = http.StatusServiceUnavailable
	assert.ErrorContains(t, runHealthcheck(srv.URL), "status 503")

	assert.Error(t, runHealthcheck("http://127.0.0.1:1"))
}

func TestHealthcheckPort(t *testing.T) {
	t.Setenv("PORT", "")
	assert.Equal(t, "3000", healthcheckPort())

	t.Setenv("PORT", "8080")
	assert.Equal(t, "8080", healthcheckPort())

	original := flagPort
	flagPort = "9090"
	t.Cleanup(func() { flagPort = original })
	assert.Equal(t, "9090", healthcheckPort())
}

func TestMigrationURLPrefersFlag(t *testing.T) {
	original := flagDatabaseURL
	flagDatabaseURL = "postgres://localhost/studybuddy"
	t.Cleanup(func() { flagDatabaseURL = original })

	url, err := migrationURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/studybuddy", url)
}

func TestMigrateDownRejectsBadSteps(t *testing.T) {
	err := migrateDownCmd.RunE(migrateDownCmd, []string{"zero"})
	assert.ErrorContains(t, err, "positive integer")
}

func TestExecuteSetsVersion(t *testing.T) {
	original := Version
	t.Cleanup(func() {
		Version = original
		RootCmd.SetArgs(nil)
		RootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"--version"})
	require.NoError(t, Execute("1.4.0"))
	assert.Contains(t, out.String(), "1.4.0")
}
