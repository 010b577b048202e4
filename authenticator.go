package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Authenticator runs the auth operations on behalf of the screens and is
// the only writer of the SessionStore: identity and admin flag change only
// in its result handlers.
type Authenticator struct {
	service  AuthService
	store    *SessionStore
	notifier Notifier
	logger   Logger
	now      func() time.Time
	newID    func() string
}

// AuthenticatorOption customizes an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithNotifier sets the sink for operation lifecycle notifications.
func WithNotifier(n Notifier) AuthenticatorOption {
	return func(a *Authenticator) {
		a.notifier = normalizeNotifier(n)
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) AuthenticatorOption {
	return func(a *Authenticator) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithNotificationIDs overrides how notification IDs are generated.
func WithNotificationIDs(gen func() string) AuthenticatorOption {
	return func(a *Authenticator) {
		if gen != nil {
			a.newID = gen
		}
	}
}

// NewAuthenticator returns an Authenticator writing into store. A nil store
// gets a fresh empty one.
func NewAuthenticator(service AuthService, store *SessionStore, opts ...AuthenticatorOption) *Authenticator {
	if store == nil {
		store = NewSessionStore()
	}

	a := &Authenticator{
		service:  service,
		store:    store,
		notifier: noopNotifier{},
		logger:   defLogger{},
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Session returns the read-only view of the store.
func (a *Authenticator) Session() SessionReader {
	return a.store
}

// Login authenticates and, on success, replaces the session identity with
// the returned user.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	var out *AuthResult
	err := a.run(ctx, OperationLogin, "Logging In...", func(ctx context.Context) (string, func(), error) {
		res, err := a.service.Login(ctx, req)
		if err != nil {
			return "", nil, err
		}
		out = res
		return defaultString(res.Message, "Welcome back"), func() { a.store.setIdentity(res.User) }, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Signup registers a new account and, on success, replaces the session
// identity with the created user.
func (a *Authenticator) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	var out *AuthResult
	err := a.run(ctx, OperationSignup, "Signing Up...", func(ctx context.Context) (string, func(), error) {
		res, err := a.service.Signup(ctx, req)
		if err != nil {
			return "", nil, err
		}
		out = res
		return defaultString(res.Message, "Account created"), func() { a.store.setIdentity(res.User) }, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdminLogin exchanges the secret key for an admin session and raises the
// admin flag on success.
func (a *Authenticator) AdminLogin(ctx context.Context, req AdminLoginRequest) (*AdminResult, error) {
	var out *AdminResult
	err := a.run(ctx, OperationAdminLogin, "Verifying Secret Key...", func(ctx context.Context) (string, func(), error) {
		res, err := a.service.AdminLogin(ctx, req)
		if err != nil {
			return "", nil, err
		}
		out = res
		return defaultString(res.Message, "Authenticated Successfully"), func() { a.store.setAdmin(true) }, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckSession restores the identity bound to the session cookie. Any
// failure clears the identity. When a login or logout lands while the check
// is in flight the check result is dropped and ErrSuperseded is returned
// with the identity that is current.
func (a *Authenticator) CheckSession(ctx context.Context) (*Identity, error) {
	gen := a.store.identityGeneration()

	res, err := a.service.SessionCheck(ctx)
	if ctx.Err() != nil {
		return nil, a.abandoned(OperationSessionCheck, ctx.Err())
	}

	var id *Identity
	if err == nil {
		id = res.User
	}

	if !a.store.commitIdentityIf(gen, id) {
		a.logger.Debug("session check superseded", "error", err)
		current, _ := a.store.Identity()
		return current, a.superseded(OperationSessionCheck, err)
	}

	if err != nil {
		a.logger.Debug("session check failed", "error", FailureMessage(err))
		return nil, err
	}
	return id, nil
}

// CheckAdmin reflects a server side admin session into the admin flag. The
// flag fails closed: any error lowers it, unless an admin login or logout
// landed while the check was in flight.
func (a *Authenticator) CheckAdmin(ctx context.Context) (bool, error) {
	gen := a.store.adminGeneration()

	res, err := a.service.AdminCheck(ctx)
	if ctx.Err() != nil {
		return a.store.IsAdmin(), a.abandoned(OperationAdminCheck, ctx.Err())
	}

	admin := err == nil && res.Admin
	if !a.store.commitAdminIf(gen, admin) {
		a.logger.Debug("admin check superseded", "error", err)
		return a.store.IsAdmin(), a.superseded(OperationAdminCheck, err)
	}

	if err != nil {
		a.logger.Debug("admin check failed", "error", FailureMessage(err))
		return false, err
	}
	return admin, nil
}

// Logout ends the user session and clears the identity.
func (a *Authenticator) Logout(ctx context.Context) error {
	return a.run(ctx, OperationLogout, "", func(ctx context.Context) (string, func(), error) {
		res, err := a.service.Logout(ctx)
		if err != nil {
			return "", nil, err
		}
		return defaultString(res.Message, "Logged out successfully"), a.store.clearIdentity, nil
	})
}

// AdminLogout ends the admin session and lowers the admin flag.
func (a *Authenticator) AdminLogout(ctx context.Context) error {
	return a.run(ctx, OperationAdminLogout, "", func(ctx context.Context) (string, func(), error) {
		res, err := a.service.AdminLogout(ctx)
		if err != nil {
			return "", nil, err
		}
		return defaultString(res.Message, "Logged out successfully"), func() { a.store.setAdmin(false) }, nil
	})
}

type operationCall func(ctx context.Context) (message string, commit func(), err error)

func (a *Authenticator) run(ctx context.Context, operation, loading string, call operationCall) error {
	id := a.newID()

	if loading != "" {
		a.notify(ctx, Notification{ID: id, Kind: NotificationLoading, Operation: operation, Message: loading})
	}

	message, commit, err := call(ctx)

	if ctx.Err() != nil {
		err = a.abandoned(operation, ctx.Err())
		a.notify(context.WithoutCancel(ctx), Notification{ID: id, Kind: NotificationError, Operation: operation, Message: FailureMessage(err)})
		return err
	}

	if err != nil {
		a.logger.Info("auth operation failed", "operation", operation, "error", FailureMessage(err))
		a.notify(ctx, Notification{ID: id, Kind: NotificationError, Operation: operation, Message: FailureMessage(err)})
		return err
	}

	if commit != nil {
		commit()
	}

	a.logger.Debug("auth operation succeeded", "operation", operation)
	a.notify(ctx, Notification{ID: id, Kind: NotificationSuccess, Operation: operation, Message: message})
	return nil
}

func (a *Authenticator) abandoned(operation string, cause error) error {
	return newError(ErrAbandoned, "", cause, map[string]any{"operation": operation})
}

func (a *Authenticator) superseded(operation string, cause error) error {
	return newError(ErrSuperseded, "", cause, map[string]any{"operation": operation})
}

func (a *Authenticator) notify(ctx context.Context, n Notification) {
	n.OccurredAt = a.now()

	sink := a.notifier
	if override, ok := NotifierFromContext(ctx); ok && override != nil {
		sink = override
	}

	if err := sink.Notify(ctx, n); err != nil {
		a.logger.Error("notification sink failed", "operation", n.Operation, "error", err)
	}
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
