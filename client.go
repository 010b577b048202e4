package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-print"
)

const (
	pathLogin       = "/user/login"
	pathSignup      = "/user/new"
	pathMe          = "/user/me"
	pathLogout      = "/user/logout"
	pathAdminVerify = "/admin/verify"
	pathAdminCheck  = "/admin/"
	pathAdminLogout = "/admin/logout"
)

var _ AuthService = &Client{}

// Client talks to the remote authentication service. Every request carries
// the session cookies held by its jar.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client. A cookie jar is attached when the
// client has none.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the service at cfg.ServiceOrigin.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	c := &Client{
		config: cfg.normalize(),
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	hc := &http.Client{}
	if c.httpClient != nil {
		copied := *c.httpClient
		hc = &copied
	}

	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	if hc.Timeout == 0 {
		hc.Timeout = c.config.Timeout
	}

	c.httpClient = hc
	return c, nil
}

// Config returns the normalized client configuration.
func (c *Client) Config() Config {
	return c.config
}

// Login authenticates username and password.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidFieldError(OperationLogin, err)
	}
	req = req.cleaned()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, transportError(OperationLogin, err)
	}

	out := &AuthResult{}
	if err := c.send(ctx, OperationLogin, http.MethodPost, pathLogin, "application/json", bytes.NewReader(body), out); err != nil {
		return nil, err
	}

	return c.requireUser(OperationLogin, out)
}

// Signup registers a new account. The avatar travels with the text fields
// as multipart form data.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidFieldError(OperationSignup, err)
	}
	req = req.cleaned()

	if req.Avatar == nil || len(req.Avatar.Data) == 0 {
		return nil, newError(ErrUpload, "Please Upload Avatar", nil, map[string]any{
			"operation": OperationSignup,
		})
	}

	payload, contentType, err := encodeSignup(req)
	if err != nil {
		return nil, transportError(OperationSignup, err)
	}

	out := &AuthResult{}
	if err := c.send(ctx, OperationSignup, http.MethodPost, pathSignup, contentType, payload, out); err != nil {
		return nil, err
	}

	return c.requireUser(OperationSignup, out)
}

// AdminLogin exchanges the shared secret for an admin session.
func (c *Client) AdminLogin(ctx context.Context, req AdminLoginRequest) (*AdminResult, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidFieldError(OperationAdminLogin, err)
	}
	req = req.cleaned()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, transportError(OperationAdminLogin, err)
	}

	out := &AdminResult{}
	if err := c.send(ctx, OperationAdminLogin, http.MethodPost, pathAdminVerify, "application/json", bytes.NewReader(body), out); err != nil {
		return nil, err
	}

	out.Admin = true
	return out, nil
}

// AdminCheck asks the service whether the admin cookie is still valid.
func (c *Client) AdminCheck(ctx context.Context) (*AdminResult, error) {
	out := &AdminResult{}
	if err := c.send(ctx, OperationAdminCheck, http.MethodGet, pathAdminCheck, "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionCheck returns the identity bound to the session cookie.
func (c *Client) SessionCheck(ctx context.Context) (*AuthResult, error) {
	out := &AuthResult{}
	if err := c.send(ctx, OperationSessionCheck, http.MethodGet, pathMe, "", nil, out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, newError(ErrNoSession, "", nil, map[string]any{"operation": OperationSessionCheck})
	}
	return out, nil
}

// Logout ends the user session.
func (c *Client) Logout(ctx context.Context) (*AuthResult, error) {
	out := &AuthResult{}
	if err := c.send(ctx, OperationLogout, http.MethodGet, pathLogout, "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminLogout ends the admin session.
func (c *Client) AdminLogout(ctx context.Context) (*AdminResult, error) {
	out := &AdminResult{}
	if err := c.send(ctx, OperationAdminLogout, http.MethodGet, pathAdminLogout, "", nil, out); err != nil {
		return nil, err
	}
	out.Admin = false
	return out, nil
}

// SessionToken returns the session cookie value held by the jar.
func (c *Client) SessionToken() (string, bool) {
	return c.cookie(c.config.CookieName)
}

// SessionExpiry reads the expiry of the session cookie. The token is not
// verified; the value is informational only.
func (c *Client) SessionExpiry() (time.Time, bool) {
	token, ok := c.SessionToken()
	if !ok {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Client) cookie(name string) (string, bool) {
	if c.httpClient.Jar == nil {
		return "", false
	}
	origin, err := url.Parse(c.config.ServiceOrigin + "/")
	if err != nil {
		return "", false
	}
	for _, ck := range c.httpClient.Jar.Cookies(origin) {
		if ck.Name == name && ck.Value != "" {
			return ck.Value, true
		}
	}
	return "", false
}

func (c *Client) requireUser(operation string, out *AuthResult) (*AuthResult, error) {
	if out.User == nil {
		return nil, transportError(operation, fmt.Errorf("response has no user"))
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, operation, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.config.endpoint(path), body)
	if err != nil {
		return transportError(operation, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("auth request failed", "operation", operation, "error", err)
		return transportError(operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := apiErrorMessage(raw)
		c.logger.Info("auth request rejected", "operation", operation, "status", resp.StatusCode, "message", message)
		if resp.StatusCode >= http.StatusInternalServerError {
			return serviceFailure(operation, resp.StatusCode, message)
		}
		return rejectedError(operation, resp.StatusCode, message)
	}

	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return transportError(operation, fmt.Errorf("decode response: %w", err))
		}
	}

	if c.config.Debug {
		c.logger.Debug("auth response", "operation", operation, "body", print.MaybePrettyJSON(out))
	}

	return nil
}

type apiError struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message"`
}

func apiErrorMessage(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		return strings.TrimSpace(apiErr.Message)
	}
	return ""
}

func serviceFailure(operation string, status int, message string) error {
	err := transportError(operation, fmt.Errorf("service responded with status %d", status))
	err.WithMetadata(map[string]any{"status": status})
	if message != "" {
		err.Message = message
	}
	return err
}

func invalidFieldError(operation string, err error) error {
	fields := FormatValidationErrorToMap(err)
	message := ErrInvalidField.Message
	for _, name := range []string{FieldName, FieldBio, FieldUsername, FieldPassword, FieldSecretKey} {
		if msg, ok := fields[name]; ok {
			message = msg
			break
		}
	}
	return newError(ErrInvalidField, message, err, map[string]any{
		"operation": operation,
		"fields":    fields,
	})
}

func encodeSignup(req SignupRequest) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	filename := req.Avatar.Filename
	if filename == "" {
		filename = "avatar"
	}
	contentType := req.Avatar.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Avatar.Data); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"name", req.Name},
		{"bio", req.Bio},
		{"username", req.Username},
		{"password", req.Password},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
