package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztrack/biztrack-server/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("minimal config gets defaults", func(t *testing.T) {
		path := writeConfig(t, `
jwt:
  secret: test-secret
database:
  dsn: postgres://localhost/biztrack?sslmode=disable
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.API.Port)
		assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
		assert.Equal(t, 40, cfg.Subscription.TrialDays)
		assert.Equal(t, "0 2 * * *", cfg.Subscription.ExpirySweepCron)
		assert.Equal(t, 20, cfg.Subscription.TrialLimits.InvoiceLimit)
		assert.Equal(t, 1, cfg.Subscription.TrialLimits.BranchLimit)
		assert.Equal(t, 100, cfg.RateLimit.RequestsPerWindow)
		assert.Contains(t, cfg.Subscription.Plans, string(models.PlanBasic))
	})

	t.Run("missing jwt secret is an error", func(t *testing.T) {
		path := writeConfig(t, `
api:
  port: 9000
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "jwt secret")
	})

	t.Run("explicit values survive defaulting", func(t *testing.T) {
		path := writeConfig(t, `
jwt:
  secret: test-secret
subscription:
  trial_days: 14
  trial_limits:
    invoices: 10
    branches: 2
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 14, cfg.Subscription.TrialDays)
		assert.Equal(t, 10, cfg.Subscription.TrialLimits.InvoiceLimit)
		assert.Equal(t, 2, cfg.Subscription.TrialLimits.BranchLimit)
	})

	t.Run("env overrides win", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "from-env")
		t.Setenv("DATABASE_URL", "postgres://env/biztrack")

		path := writeConfig(t, `
jwt:
  secret: from-file
database:
  dsn: postgres://file/biztrack
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.JWT.Secret)
		assert.Equal(t, "postgres://env/biztrack", cfg.Database.DSN)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := Load("/nonexistent/server.yml")
		assert.Error(t, err)
	})
}

func TestPlanLimits(t *testing.T) {
	cfg := &SubscriptionConfig{
		TrialLimits: models.Limits{InvoiceLimit: 20},
		Plans: map[string]models.Limits{
			string(models.PlanBasic):   {InvoiceLimit: 200},
			string(models.PlanPremium): {},
		},
	}

	assert.Equal(t, 20, cfg.PlanLimits(models.PlanTrial).InvoiceLimit)
	assert.Equal(t, 200, cfg.PlanLimits(models.PlanBasic).InvoiceLimit)
	assert.Equal(t, 0, cfg.PlanLimits(models.PlanPremium).InvoiceLimit)

	t.Run("unknown plan falls back to trial limits", func(t *testing.T) {
		assert.Equal(t, 20, cfg.PlanLimits(models.Plan("platinum")).InvoiceLimit)
	})
}
