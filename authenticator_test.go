package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wetalk/wetalk-auth"
)

func newTestAuthenticator(service auth.AuthService, opts ...auth.AuthenticatorOption) (*auth.Authenticator, *auth.NotificationLog) {
	log := auth.NewNotificationLog()
	base := []auth.AuthenticatorOption{
		auth.WithNotifier(log),
		auth.WithLogger(auth.NoopLogger()),
		auth.WithNotificationIDs(fixedIDs("n-1", "n-2", "n-3", "n-4")),
	}
	return auth.NewAuthenticator(service, auth.NewSessionStore(), append(base, opts...)...), log
}

func rejected(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).WithTextCode(auth.TextCodeRejectedCredentials)
}

func TestAuthenticatorLoginSuccess(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	service := new(MockAuthService)
	req := auth.LoginRequest{Username: "alice", Password: "pw"}
	service.On("Login", mock.Anything, req).Return(&auth.AuthResult{Message: "Welcome Back, Alice", User: alice()}, nil).Once()

	a, log := newTestAuthenticator(service, auth.WithClock(func() time.Time { return now }))

	res, err := a.Login(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Welcome Back, Alice", res.Message)

	id, ok := a.Session().Identity()
	require.True(t, ok)
	assert.Equal(t, "alice", id.Username)

	history := log.History()
	require.Len(t, history, 2)
	assert.Equal(t, auth.Notification{ID: "n-1", Kind: auth.NotificationLoading, Operation: auth.OperationLogin, Message: "Logging In...", OccurredAt: now}, history[0])
	assert.Equal(t, auth.Notification{ID: "n-1", Kind: auth.NotificationSuccess, Operation: auth.OperationLogin, Message: "Welcome Back, Alice", OccurredAt: now}, history[1])
	assert.Len(t, log.Visible(), 1)

	service.AssertExpectations(t)
}

func TestAuthenticatorLoginRejectedKeepsIdentity(t *testing.T) {
	service := new(MockAuthService)
	service.On("Login", mock.Anything, auth.LoginRequest{Username: "alice", Password: "pw"}).
		Return(&auth.AuthResult{User: alice()}, nil).Once()
	service.On("Login", mock.Anything, auth.LoginRequest{Username: "bob", Password: "wrong"}).
		Return(nil, rejected("Invalid credentials")).Once()

	a, log := newTestAuthenticator(service)
	ctx := context.Background()

	_, err := a.Login(ctx, auth.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	_, err = a.Login(ctx, auth.LoginRequest{Username: "bob", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, auth.IsRejectedCredentials(err))

	id, ok := a.Session().Identity()
	require.True(t, ok)
	assert.Equal(t, "alice", id.Username)

	last, ok := log.Last()
	require.True(t, ok)
	assert.Equal(t, "n-2", last.ID)
	assert.Equal(t, auth.NotificationError, last.Kind)
	assert.Equal(t, "Invalid credentials", last.Message)
}

func TestAuthenticatorFailureWithoutMessage(t *testing.T) {
	service := new(MockAuthService)
	service.On("Login", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

	a, log := newTestAuthenticator(service)

	_, err := a.Login(context.Background(), auth.LoginRequest{Username: "alice", Password: "pw"})
	require.Error(t, err)

	last, _ := log.Last()
	assert.Equal(t, auth.DefaultFailureMessage, last.Message)
	assert.False(t, a.Session().HasSession())
}

func TestAuthenticatorSignupCreatesSession(t *testing.T) {
	service := new(MockAuthService)
	service.On("Signup", mock.Anything, mock.MatchedBy(func(req auth.SignupRequest) bool {
		return req.Username == "alice" && req.Avatar != nil
	})).Return(&auth.AuthResult{Message: "User created", User: alice()}, nil).Once()

	a, log := newTestAuthenticator(service)

	res, err := a.Signup(context.Background(), auth.SignupRequest{
		Name: "Alice", Bio: "hi", Username: "alice", Password: "pw",
		Avatar: &auth.AvatarFile{Filename: "me.png", ContentType: "image/png", Data: pngBytes(64)},
	})
	require.NoError(t, err)
	assert.Equal(t, "User created", res.Message)
	assert.True(t, a.Session().HasSession())

	history := log.History()
	require.Len(t, history, 2)
	assert.Equal(t, "Signing Up...", history[0].Message)
	assert.Equal(t, "User created", history[1].Message)
}

func TestAuthenticatorAdminLogin(t *testing.T) {
	service := new(MockAuthService)
	service.On("AdminLogin", mock.Anything, auth.AdminLoginRequest{SecretKey: "wrong"}).
		Return(nil, rejected("Invalid Admin Key")).Once()
	service.On("AdminLogin", mock.Anything, auth.AdminLoginRequest{SecretKey: "boss"}).
		Return(&auth.AdminResult{Message: "Authenticated Successfully, Welcome BOSS", Admin: true}, nil).Once()

	a, log := newTestAuthenticator(service)
	ctx := context.Background()

	_, err := a.AdminLogin(ctx, auth.AdminLoginRequest{SecretKey: "wrong"})
	require.Error(t, err)
	assert.False(t, a.Session().IsAdmin())

	_, err = a.AdminLogin(ctx, auth.AdminLoginRequest{SecretKey: "boss"})
	require.NoError(t, err)
	assert.True(t, a.Session().IsAdmin())
	assert.False(t, a.Session().HasSession(), "admin flag is independent of identity")

	history := log.History()
	require.Len(t, history, 4)
	assert.Equal(t, "Verifying Secret Key...", history[0].Message)
	assert.Equal(t, "Invalid Admin Key", history[1].Message)
	assert.Equal(t, "Authenticated Successfully, Welcome BOSS", history[3].Message)
}

func TestAuthenticatorCheckSession(t *testing.T) {
	service := new(MockAuthService)
	service.On("SessionCheck", mock.Anything).Return(&auth.AuthResult{User: alice()}, nil).Once()
	service.On("SessionCheck", mock.Anything).Return(nil, rejected("Please login to access this route")).Once()

	a, log := newTestAuthenticator(service)
	ctx := context.Background()

	id, err := a.CheckSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.True(t, a.Session().HasSession())

	_, err = a.CheckSession(ctx)
	require.Error(t, err)
	assert.False(t, a.Session().HasSession())

	assert.Empty(t, log.History(), "session checks are silent")
}

func TestAuthenticatorCheckAdminFailsClosed(t *testing.T) {
	service := new(MockAuthService)
	service.On("AdminLogin", mock.Anything, mock.Anything).Return(&auth.AdminResult{Admin: true}, nil).Once()
	service.On("AdminCheck", mock.Anything).Return(nil, errors.New("timeout")).Once()

	a, _ := newTestAuthenticator(service)
	ctx := context.Background()

	_, err := a.AdminLogin(ctx, auth.AdminLoginRequest{SecretKey: "boss"})
	require.NoError(t, err)
	require.True(t, a.Session().IsAdmin())

	admin, err := a.CheckAdmin(ctx)
	require.Error(t, err)
	assert.False(t, admin)
	assert.False(t, a.Session().IsAdmin())
}

func TestAuthenticatorLogout(t *testing.T) {
	service := new(MockAuthService)
	service.On("Login", mock.Anything, mock.Anything).Return(&auth.AuthResult{User: alice()}, nil).Once()
	service.On("AdminLogin", mock.Anything, mock.Anything).Return(&auth.AdminResult{Admin: true}, nil).Once()
	service.On("Logout", mock.Anything).Return(&auth.AuthResult{}, nil).Once()
	service.On("AdminLogout", mock.Anything).Return(&auth.AdminResult{Message: "Logged Out Successfully"}, nil).Once()

	a, log := newTestAuthenticator(service)
	ctx := context.Background()

	_, err := a.Login(ctx, auth.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	_, err = a.AdminLogin(ctx, auth.AdminLoginRequest{SecretKey: "boss"})
	require.NoError(t, err)

	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.Session().HasSession())
	assert.True(t, a.Session().IsAdmin())
	last, _ := log.Last()
	assert.Equal(t, "Logged out successfully", last.Message)

	require.NoError(t, a.AdminLogout(ctx))
	assert.False(t, a.Session().IsAdmin())
	last, _ = log.Last()
	assert.Equal(t, "Logged Out Successfully", last.Message)
}

func TestAuthenticatorDiscardsCancelledResponse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	service := new(MockAuthService)
	service.On("Login", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(&auth.AuthResult{User: alice()}, nil).Once()

	a, log := newTestAuthenticator(service)

	_, err := a.Login(ctx, auth.LoginRequest{Username: "alice", Password: "pw"})
	require.Error(t, err)
	assert.True(t, auth.IsAbandoned(err))
	assert.False(t, a.Session().HasSession())

	last, _ := log.Last()
	assert.Equal(t, auth.NotificationError, last.Kind)
}

func TestAuthenticatorPublishesSessionEvents(t *testing.T) {
	service := new(MockAuthService)
	service.On("Login", mock.Anything, mock.Anything).Return(&auth.AuthResult{User: alice()}, nil).Once()

	a, _ := newTestAuthenticator(service)
	events, unsubscribe := a.Session().Subscribe()
	defer unsubscribe()

	_, err := a.Login(context.Background(), auth.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, auth.SessionIdentitySet, evt.Type)
		assert.True(t, evt.HasSession)
	case <-time.After(time.Second):
		t.Fatal("expected identity event")
	}
}

func TestAuthenticatorLogsNotifierFailure(t *testing.T) {
	service := new(MockAuthService)
	service.On("Logout", mock.Anything).Return(&auth.AuthResult{}, nil).Once()

	logger := &captureLogger{}
	sink := auth.NotifierFunc(func(context.Context, auth.Notification) error {
		return errors.New("sink closed")
	})
	a := auth.NewAuthenticator(service, nil, auth.WithNotifier(sink), auth.WithLogger(logger))

	require.NoError(t, a.Logout(context.Background()))
	assert.True(t, logger.has("error", "notification sink failed"))
}

func TestAuthenticatorCheckSessionSupersededByLogin(t *testing.T) {
	service := new(MockAuthService)
	started, release := holdCall(service.On("SessionCheck", mock.Anything).
		Return(nil, rejected("Please login to access this route")).Once())
	service.On("Login", mock.Anything, mock.Anything).Return(&auth.AuthResult{User: alice()}, nil).Once()

	a, _ := newTestAuthenticator(service)
	ctx := context.Background()

	type checkResult struct {
		id  *auth.Identity
		err error
	}
	done := make(chan checkResult, 1)
	go func() {
		id, err := a.CheckSession(ctx)
		done <- checkResult{id, err}
	}()
	waitStarted(t, started)

	_, err := a.Login(ctx, auth.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	close(release)

	res := <-done
	require.Error(t, res.err)
	assert.True(t, auth.IsSuperseded(res.err))
	assert.False(t, auth.IsAbandoned(res.err))
	require.NotNil(t, res.id)
	assert.Equal(t, "alice", res.id.Username)
	assert.True(t, a.Session().HasSession())
}

func TestAuthenticatorCheckAdminSupersededByAdminLogout(t *testing.T) {
	service := new(MockAuthService)
	service.On("AdminLogin", mock.Anything, mock.Anything).Return(&auth.AdminResult{Admin: true}, nil).Once()
	started, release := holdCall(service.On("AdminCheck", mock.Anything).
		Return(&auth.AdminResult{Admin: true}, nil).Once())
	service.On("AdminLogout", mock.Anything).Return(&auth.AdminResult{}, nil).Once()

	a, _ := newTestAuthenticator(service)
	ctx := context.Background()
	_, err := a.AdminLogin(ctx, auth.AdminLoginRequest{SecretKey: "boss"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := a.CheckAdmin(ctx)
		done <- err
	}()
	waitStarted(t, started)

	require.NoError(t, a.AdminLogout(ctx))
	close(release)

	assert.True(t, auth.IsSuperseded(<-done))
	assert.False(t, a.Session().IsAdmin())
}
