package devserver

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultOrigins are the front-end origins allowed by CORS.
var DefaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:4173",
}

// Config holds the dev server settings.
type Config struct {
	Port           string        `env:"PORT"             envDefault:"3000"`
	ClientURL      string        `env:"CLIENT_URL"`
	APIPrefix      string        `env:"API_PREFIX"       envDefault:"/api/v1"`
	JWTSecret      string        `env:"JWT_SECRET"       envDefault:"wetalk-dev-secret"`
	AdminSecretKey string        `env:"ADMIN_SECRET_KEY" envDefault:"wetalk-admin"`
	DatabaseDSN    string        `env:"DATABASE_DSN"`
	SecureCookies  bool          `env:"SECURE_COOKIES"`
	CookieTTL      time.Duration `env:"COOKIE_TTL"       envDefault:"360h"`
	AdminCookieTTL time.Duration `env:"ADMIN_COOKIE_TTL" envDefault:"15m"`
	BcryptCost     int           `env:"BCRYPT_COST"      envDefault:"10"`
	AvatarBaseURL  string        `env:"AVATAR_BASE_URL"  envDefault:"http://localhost:3000/avatars"`
	MaxAvatarBytes int64         `env:"MAX_AVATAR_BYTES" envDefault:"5242880"`
	Debug          bool          `env:"DEBUG"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Port:           "3000",
		APIPrefix:      "/api/v1",
		JWTSecret:      "wetalk-dev-secret",
		AdminSecretKey: "wetalk-admin",
		CookieTTL:      15 * 24 * time.Hour,
		AdminCookieTTL: 15 * time.Minute,
		BcryptCost:     10,
		AvatarBaseURL:  "http://localhost:3000/avatars",
		MaxAvatarBytes: 5 << 20,
	}
}

// LoadConfigFromEnv reads the dev server settings from the environment.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return DefaultConfig()
	}
	return cfg
}

// AllowedOrigins returns the CORS origins: the defaults plus ClientURL.
func (c Config) AllowedOrigins() []string {
	origins := append([]string{}, DefaultOrigins...)
	if url := strings.TrimRight(strings.TrimSpace(c.ClientURL), "/"); url != "" {
		for _, o := range origins {
			if o == url {
				return origins
			}
		}
		origins = append(origins, url)
	}
	return origins
}
