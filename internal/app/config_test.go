package app

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("SERVICE_SECRET", "service-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "identity", cfg.ServiceName)
	assert.Equal(t, "X-Service-Name", cfg.ServiceNameHeader)
	assert.Equal(t, "X-Service-Signature", cfg.ServiceSigHeader)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsSharedSecret(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("REFRESH_TOKEN_SECRET", "access-secret")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	// t.Setenv registers the restore; the variable must be absent, not empty.
	t.Setenv("SERVICE_SECRET", "service-secret")
	require.NoError(t, os.Unsetenv("SERVICE_SECRET"))

	_, err := LoadConfig()
	require.Error(t, err)
}
