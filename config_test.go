package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wetalk/wetalk-auth"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("WETALK_SERVER", "https://api.wetalk.test/")
	t.Setenv("WETALK_API_PREFIX", "api/v2/")
	t.Setenv("WETALK_TIMEOUT", "3s")

	cfg := auth.LoadConfigFromEnv()

	assert.Equal(t, "https://api.wetalk.test", cfg.ServiceOrigin)
	assert.Equal(t, "/api/v2", cfg.APIPrefix)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, auth.SessionCookieName, cfg.CookieName)
	assert.Equal(t, "/admin/dashboard", cfg.AdminDashboardPath)
	assert.Equal(t, int64(5<<20), cfg.MaxAvatarBytes)
}

func TestLoadConfigFromEnvFallsBackOnParseError(t *testing.T) {
	t.Setenv("WETALK_TIMEOUT", "soon")

	assert.Equal(t, auth.DefaultConfig(), auth.LoadConfigFromEnv())
}
