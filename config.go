package auth

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// SessionCookieName is the cookie carrying the user session.
	SessionCookieName = "WeTalk-token"
	// AdminCookieName is the cookie carrying the admin session.
	AdminCookieName = "WeTalk-admin-token"
)

// Config holds the client settings.
type Config struct {
	ServiceOrigin      string        `env:"WETALK_SERVER"           envDefault:"http://localhost:3000"`
	APIPrefix          string        `env:"WETALK_API_PREFIX"       envDefault:"/api/v1"`
	Timeout            time.Duration `env:"WETALK_TIMEOUT"          envDefault:"10s"`
	CookieName         string        `env:"WETALK_COOKIE_NAME"      envDefault:"WeTalk-token"`
	AdminDashboardPath string        `env:"WETALK_ADMIN_DASHBOARD"  envDefault:"/admin/dashboard"`
	HomePath           string        `env:"WETALK_HOME"             envDefault:"/"`
	MaxAvatarBytes     int64         `env:"WETALK_MAX_AVATAR_BYTES" envDefault:"5242880"`
	Debug              bool          `env:"WETALK_DEBUG"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ServiceOrigin:      "http://localhost:3000",
		APIPrefix:          "/api/v1",
		Timeout:            10 * time.Second,
		CookieName:         SessionCookieName,
		AdminDashboardPath: "/admin/dashboard",
		HomePath:           "/",
		MaxAvatarBytes:     5 << 20,
	}
}

// LoadConfigFromEnv reads the client settings from the environment, falling
// back to DefaultConfig when parsing fails.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return DefaultConfig()
	}
	return cfg.normalize()
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	c.ServiceOrigin = strings.TrimRight(c.ServiceOrigin, "/")
	if c.ServiceOrigin == "" {
		c.ServiceOrigin = def.ServiceOrigin
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		c.APIPrefix = "/" + c.APIPrefix
	}
	c.APIPrefix = strings.TrimRight(c.APIPrefix, "/")
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.CookieName == "" {
		c.CookieName = def.CookieName
	}
	if c.AdminDashboardPath == "" {
		c.AdminDashboardPath = def.AdminDashboardPath
	}
	if c.HomePath == "" {
		c.HomePath = def.HomePath
	}
	if c.MaxAvatarBytes <= 0 {
		c.MaxAvatarBytes = def.MaxAvatarBytes
	}
	return c
}

func (c Config) endpoint(path string) string {
	return c.ServiceOrigin + c.APIPrefix + path
}
