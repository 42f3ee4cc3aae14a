package config

import (
	"errors"
	"os"
	"testing"

	"visit-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/routes")
	t.Setenv("ORS_API_KEY", "test-key")
	t.Setenv("MAIL_TO", "ops@example.com,planning@example.com")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("MAIL_FROM", "routes@example.com")

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "visit-routes", cfg.ProcessName)
	assert.Equal(t, []string{"ops@example.com", "planning@example.com"}, cfg.MailTo)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, DistanceORS, cfg.DistanceSource)
	assert.True(t, cfg.MailEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", loc.String())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	_, err := Load("testdata/does-not-exist.env")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfig))
}

func TestLoadRejectsUnknownDistanceSource(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/routes")
	t.Setenv("ORS_API_KEY", "test-key")
	t.Setenv("DISTANCE_SOURCE", "google")

	_, err := Load("testdata/does-not-exist.env")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfig))
	assert.Contains(t, err.Error(), "DISTANCE_SOURCE")
}

func TestLocationRejectsUnknownZone(t *testing.T) {
	cfg := &Config{RouteTimezone: "Mars/Olympus"}
	_, err := cfg.Location()
	assert.True(t, errors.Is(err, domain.ErrConfig))
}
