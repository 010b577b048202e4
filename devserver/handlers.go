package devserver

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/wetalk/wetalk-auth"
	"github.com/wetalk/wetalk-auth/repository"
)

const (
	localsUserID = "wetalk_user_id"
	localsAvatar = "wetalk_avatar"
)

var errInvalidAdminKey = goerrors.New("Invalid Admin Key", goerrors.CategoryAuth).
	WithTextCode("INVALID_ADMIN_KEY").
	WithCode(goerrors.CodeUnauthorized)

var errMissingAvatar = goerrors.New("Please Upload Avatar", goerrors.CategoryBadInput).
	WithTextCode("AVATAR_REQUIRED").
	WithCode(goerrors.CodeBadRequest)

// SignupPayload is the multipart signup form.
type SignupPayload struct {
	Name     string `form:"name" json:"name"`
	Bio      string `form:"bio" json:"bio"`
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (p SignupPayload) Validate() error {
	return auth.SignupRequest{
		Name:     p.Name,
		Bio:      p.Bio,
		Username: p.Username,
		Password: p.Password,
	}.Validate()
}

// LoginPayload is the login body.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required.Error("Please enter username")),
		validation.Field(&p.Password, validation.Required.Error("Please enter password")),
	)
}

// AdminLoginPayload is the admin verify body.
type AdminLoginPayload struct {
	SecretKey string `json:"secretKey"`
}

// Validate will run validation rules
func (p AdminLoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.SecretKey, validation.Required.Error("Please enter Secret Key")),
	)
}

// stagedAvatar is the avatar part of a signup as read by stageAvatar.
type stagedAvatar struct {
	avatar auth.Avatar
	err    error
}

func (s *Server) stageAvatar(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		avatar, err := s.readAvatar(c)
		c.Locals(localsAvatar, stagedAvatar{avatar: avatar, err: err})
	}
	return c.Next()
}

func (s *Server) signup(ctx router.Context) error {
	payload := SignupPayload{
		Name:     strings.TrimSpace(ctx.FormValue("name")),
		Bio:      strings.TrimSpace(ctx.FormValue("bio")),
		Username: strings.TrimSpace(ctx.FormValue("username")),
		Password: ctx.FormValue("password"),
	}

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	staged, ok := ctx.Locals(localsAvatar).(stagedAvatar)
	if !ok {
		return errMissingAvatar
	}
	if staged.err != nil {
		return staged.err
	}

	hash, err := HashPassword(payload.Password, s.config.BcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user, err := s.users.Create(ctx.Context(), &repository.UserModel{
		ID:             s.newID(payload.Username),
		Name:           payload.Name,
		Bio:            payload.Bio,
		Username:       payload.Username,
		PasswordHash:   hash,
		AvatarPublicID: staged.avatar.PublicID,
		AvatarURL:      staged.avatar.URL,
	})
	if err != nil {
		return err
	}

	if s.config.Debug {
		s.logger.Debug("user created", "user", print.MaybePrettyJSON(toIdentity(user)))
	}

	return s.sendToken(ctx, http.StatusCreated, user, "User created")
}

func (s *Server) login(ctx router.Context) error {
	payload := LoginPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "Invalid request body").
			WithCode(goerrors.CodeBadRequest)
	}
	payload.Username = strings.TrimSpace(payload.Username)

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	user, err := s.users.FindByUsername(ctx.Context(), payload.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}

	if err := ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		return err
	}

	return s.sendToken(ctx, router.StatusOK, user, "Welcome Back, "+user.Name)
}

func (s *Server) me(ctx router.Context) error {
	id, _ := ctx.Locals(localsUserID).(string)
	user, err := s.users.FindByID(ctx.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "user": toIdentity(user)})
}

func (s *Server) logout(ctx router.Context) error {
	s.clearCookie(ctx, auth.SessionCookieName)
	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
}

func (s *Server) adminLogin(ctx router.Context) error {
	payload := AdminLoginPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "Invalid request body").
			WithCode(goerrors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	if payload.SecretKey != s.config.AdminSecretKey {
		return errInvalidAdminKey
	}

	token, err := s.tokens.adminToken(s.config.AdminCookieTTL)
	if err != nil {
		return err
	}

	s.setCookie(ctx, auth.AdminCookieName, token, s.config.AdminCookieTTL)
	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "message": "Authenticated Successfully, Welcome BOSS"})
}

func (s *Server) adminLogout(ctx router.Context) error {
	s.clearCookie(ctx, auth.AdminCookieName)
	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "message": "Logged Out Successfully"})
}

func (s *Server) adminData(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{"admin": true})
}

func (s *Server) isAuthenticated(next router.HandlerFunc) router.HandlerFunc {
	return func(ctx router.Context) error {
		token := ctx.Cookies(auth.SessionCookieName)
		if token == "" {
			return ErrUnauthorized
		}

		claims, err := s.tokens.validate(token)
		if err != nil || claims.UID == "" {
			return ErrUnauthorized
		}

		ctx.Locals(localsUserID, claims.UID)
		return next(ctx)
	}
}

func (s *Server) adminOnly(next router.HandlerFunc) router.HandlerFunc {
	return func(ctx router.Context) error {
		token := ctx.Cookies(auth.AdminCookieName)
		if token == "" {
			return ErrAdminOnly
		}

		claims, err := s.tokens.validate(token)
		if err != nil || claims.Subject != adminSubject {
			return ErrAdminOnly
		}

		return next(ctx)
	}
}

func (s *Server) sendToken(ctx router.Context, status int, user *repository.UserModel, message string) error {
	token, err := s.tokens.userToken(user.ID.String(), s.config.CookieTTL)
	if err != nil {
		return err
	}

	s.setCookie(ctx, auth.SessionCookieName, token, s.config.CookieTTL)
	return ctx.JSON(status, map[string]any{
		"success": true,
		"message": message,
		"user":    toIdentity(user),
	})
}

func (s *Server) setCookie(ctx router.Context, name, value string, ttl time.Duration) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: s.sameSite(),
	})
}

func (s *Server) clearCookie(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: s.sameSite(),
	})
}

func (s *Server) sameSite() string {
	if s.config.SecureCookies {
		return fiber.CookieSameSiteNoneMode
	}
	return fiber.CookieSameSiteLaxMode
}

func (s *Server) readAvatar(c *fiber.Ctx) (auth.Avatar, error) {
	header, err := c.FormFile("avatar")
	if err != nil || header == nil {
		return auth.Avatar{}, errMissingAvatar
	}

	if s.config.MaxAvatarBytes > 0 && header.Size > s.config.MaxAvatarBytes {
		return auth.Avatar{}, goerrors.New("Avatar is too large", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	f, err := header.Open()
	if err != nil {
		return auth.Avatar{}, errMissingAvatar
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return auth.Avatar{}, errMissingAvatar
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return auth.Avatar{}, goerrors.New("Please upload a valid image", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = mtype.Extension()
	}

	publicID := uuid.NewString()
	return auth.Avatar{
		PublicID: publicID,
		URL:      strings.TrimRight(s.config.AvatarBaseURL, "/") + "/" + publicID + ext,
	}, nil
}

func validationError(err error) error {
	fields := auth.FormatValidationErrorToMap(err)
	message := "Invalid request"
	for _, name := range []string{auth.FieldName, auth.FieldBio, auth.FieldUsername, auth.FieldPassword, auth.FieldSecretKey} {
		if msg, ok := fields[name]; ok {
			message = msg
			break
		}
	}
	return goerrors.New(message, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": fields})
}

func toIdentity(user *repository.UserModel) auth.Identity {
	created := user.CreatedAt
	updated := user.UpdatedAt
	return auth.Identity{
		ID:       user.ID.String(),
		Username: user.Username,
		Name:     user.Name,
		Bio:      user.Bio,
		Avatar: auth.Avatar{
			PublicID: user.AvatarPublicID,
			URL:      user.AvatarURL,
		},
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

