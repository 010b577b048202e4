// Package devserver is a reference implementation of the WeTalk auth
// service used for local development and end-to-end tests of the client.
package devserver

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/wetalk/wetalk-auth"
	"github.com/wetalk/wetalk-auth/repository"
)

// Server wires the auth routes through the go-router fiber adapter.
type Server struct {
	config Config
	users  *repository.Users
	tokens *tokenService
	logger auth.Logger
	srv    router.Server[*fiber.App]
	app    *fiber.App
	newID  func(username string) uuid.UUID
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger auth.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects a custom clock for token issuing.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.tokens.now = clock
		}
	}
}

// New returns a server storing accounts in users.
func New(cfg Config, users *repository.Users, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		users:  users,
		tokens: newTokenService(cfg.JWTSecret),
		logger: auth.NoopLogger(),
		newID:  userID,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.srv = router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		s.app = router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               "wetalk-auth",
			DisableStartupMessage: true,
			BodyLimit:             int(cfg.MaxAvatarBytes) + 1<<20,
			ErrorHandler:          s.errorHandler,
		}))
		return s.app
	})

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins(), ","),
		AllowMethods:     "GET,POST,PUT,DELETE",
		AllowCredentials: true,
	}))

	// router.Context has no multipart file accessor, so the avatar part is
	// read here and handed to the signup handler through Locals.
	s.app.Use(strings.TrimRight(cfg.APIPrefix, "/")+"/user/new", s.stageAvatar)

	s.routes(s.srv.Router())
	return s
}

// App returns the fiber app behind the router.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes(r router.Router[*fiber.App]) {
	api := r.Group(s.config.APIPrefix)

	user := api.Group("/user")
	user.Post("/new", s.signup)
	user.Post("/login", s.login)
	user.Get("/me", s.me, s.isAuthenticated)
	user.Get("/logout", s.logout, s.isAuthenticated)

	admin := api.Group("/admin")
	admin.Post("/verify", s.adminLogin)
	admin.Get("/logout", s.adminLogout)
	admin.Get("/", s.adminData, s.adminOnly)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"success": false, "message": fiberErr.Message})
		}
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "Internal Server Error").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": richErr.Message,
	})
}

func userID(username string) uuid.UUID {
	if id, err := hashid.NewUUID(username); err == nil {
		return id
	}
	return uuid.New()
}
