package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wetalk/wetalk-auth"
)

func nextDecision(t *testing.T, updates <-chan auth.Decision) auth.Decision {
	t.Helper()
	select {
	case d, ok := <-updates:
		require.True(t, ok, "expected a decision")
		return d
	case <-time.After(time.Second):
		t.Fatal("no decision after check")
	}
	return auth.Decision{}
}

func TestRedirectGuards(t *testing.T) {
	service := new(MockAuthService)
	service.On("Login", mock.Anything, mock.Anything).Return(&auth.AuthResult{User: alice()}, nil).Once()
	a, _ := newTestAuthenticator(service)

	adminGuard := auth.RedirectWhenAdmin("/admin/dashboard")
	userGuard := auth.RedirectWhenAuthenticated("/")

	assert.True(t, adminGuard.Decide(a.Session()).Render())
	assert.True(t, userGuard.Decide(a.Session()).Render())
	assert.True(t, adminGuard.Decide(nil).Render())

	_, err := a.Login(context.Background(), auth.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, auth.Decision{Redirect: true, Destination: "/"}, userGuard.Decide(a.Session()))
	assert.True(t, adminGuard.Decide(a.Session()).Render())
}

func TestAdminScreenRedirectsImmediatelyAndStillChecks(t *testing.T) {
	service := new(MockAuthService)
	service.On("AdminLogin", mock.Anything, mock.Anything).Return(&auth.AdminResult{Admin: true}, nil).Once()
	service.On("AdminCheck", mock.Anything).Return(&auth.AdminResult{Admin: true}, nil).Once()

	a, _ := newTestAuthenticator(service)
	_, err := a.AdminLogin(context.Background(), auth.AdminLoginRequest{SecretKey: "boss"})
	require.NoError(t, err)

	screen := auth.NewAdminLoginScreen(a, "/admin/dashboard")

	initial, updates := screen.Mount(context.Background())
	assert.Equal(t, auth.Decision{Redirect: true, Destination: "/admin/dashboard"}, initial)

	assert.True(t, nextDecision(t, updates).Redirect)
	service.AssertCalled(t, "AdminCheck", mock.Anything)
}

func TestAdminScreenFailsClosed(t *testing.T) {
	service := new(MockAuthService)
	service.On("AdminLogin", mock.Anything, mock.Anything).Return(&auth.AdminResult{Admin: true}, nil).Once()
	service.On("AdminCheck", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	a, _ := newTestAuthenticator(service)
	_, err := a.AdminLogin(context.Background(), auth.AdminLoginRequest{SecretKey: "boss"})
	require.NoError(t, err)

	screen := auth.NewAdminLoginScreen(a, "/admin/dashboard")
	initial, updates := screen.Mount(context.Background())
	assert.True(t, initial.Redirect)

	assert.True(t, nextDecision(t, updates).Render())
	assert.False(t, a.Session().IsAdmin())
}

func TestAdminScreenRendersWithoutSession(t *testing.T) {
	service := new(MockAuthService)
	service.On("AdminCheck", mock.Anything).Return(nil, rejected("Only Admin can access this route")).Once()

	a, _ := newTestAuthenticator(service)
	screen := auth.NewAdminLoginScreen(a, "/admin/dashboard")

	assert.True(t, screen.Decide().Render())
	service.AssertNotCalled(t, "AdminCheck", mock.Anything)

	d := screen.Resolve(context.Background())
	assert.True(t, d.Render())
	service.AssertExpectations(t)
}

func TestLoginScreenRedirectsAfterCheck(t *testing.T) {
	service := new(MockAuthService)
	service.On("SessionCheck", mock.Anything).Return(&auth.AuthResult{User: alice()}, nil).Once()

	a, _ := newTestAuthenticator(service)
	screen := auth.NewLoginScreen(a, "/")

	d := screen.Resolve(context.Background())
	assert.Equal(t, auth.Decision{Redirect: true, Destination: "/"}, d)
	assert.True(t, a.Session().HasSession())
}

func TestScreenMountAbandoned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := new(MockAuthService)
	service.On("SessionCheck", mock.Anything).Return(nil, context.Canceled).Once()

	a, _ := newTestAuthenticator(service)
	screen := auth.NewLoginScreen(a, "/")

	initial, updates := screen.Mount(ctx)
	assert.True(t, initial.Render())

	select {
	case _, ok := <-updates:
		assert.False(t, ok, "abandoned check yields no decision")
	case <-time.After(time.Second):
		t.Fatal("updates channel not closed")
	}
}

// holdCall parks the mocked call until release is closed and reports when the
// call has started.
func holdCall(call *mock.Call) (started <-chan struct{}, release chan<- struct{}) {
	in := make(chan struct{})
	out := make(chan struct{})
	call.Run(func(mock.Arguments) {
		close(in)
		<-out
	})
	return in, out
}

func waitStarted(t *testing.T, started <-chan struct{}) {
	t.Helper()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("check never reached the service")
	}
}

func TestLoginScreenKeepsLoginThatLandsDuringCheck(t *testing.T) {
	service := new(MockAuthService)
	started, release := holdCall(service.On("SessionCheck", mock.Anything).
		Return(nil, rejected("Please login to access this route")).Once())
	service.On("Login", mock.Anything, mock.Anything).Return(&auth.AuthResult{User: alice()}, nil).Once()

	a, _ := newTestAuthenticator(service)
	screen := auth.NewLoginScreen(a, "/")

	initial, updates := screen.Mount(context.Background())
	assert.True(t, initial.Render())
	waitStarted(t, started)

	_, err := a.Login(context.Background(), auth.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	close(release)

	assert.Equal(t, auth.Decision{Redirect: true, Destination: "/"}, nextDecision(t, updates))
	id, ok := a.Session().Identity()
	require.True(t, ok, "late 401 must not clear the newer login")
	assert.Equal(t, "alice", id.Username)
	service.AssertExpectations(t)
}

func TestAdminScreenKeepsAdminLoginThatLandsDuringCheck(t *testing.T) {
	service := new(MockAuthService)
	started, release := holdCall(service.On("AdminCheck", mock.Anything).
		Return(nil, rejected("Only Admin can access this route")).Once())
	service.On("AdminLogin", mock.Anything, mock.Anything).Return(&auth.AdminResult{Admin: true}, nil).Once()

	a, _ := newTestAuthenticator(service)
	screen := auth.NewAdminLoginScreen(a, "/admin/dashboard")

	initial, updates := screen.Mount(context.Background())
	assert.True(t, initial.Render())
	waitStarted(t, started)

	_, err := a.AdminLogin(context.Background(), auth.AdminLoginRequest{SecretKey: "boss"})
	require.NoError(t, err)
	close(release)

	assert.Equal(t, auth.Decision{Redirect: true, Destination: "/admin/dashboard"}, nextDecision(t, updates))
	assert.True(t, a.Session().IsAdmin(), "late 401 must not lower the newer admin flag")
	service.AssertExpectations(t)
}

func TestLoginScreenKeepsLogoutThatLandsDuringCheck(t *testing.T) {
	service := new(MockAuthService)
	service.On("Login", mock.Anything, mock.Anything).Return(&auth.AuthResult{User: alice()}, nil).Once()
	started, release := holdCall(service.On("SessionCheck", mock.Anything).
		Return(&auth.AuthResult{User: alice()}, nil).Once())
	service.On("Logout", mock.Anything).Return(&auth.AuthResult{}, nil).Once()

	a, _ := newTestAuthenticator(service)
	ctx := context.Background()
	_, err := a.Login(ctx, auth.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	screen := auth.NewLoginScreen(a, "/")
	initial, updates := screen.Mount(ctx)
	assert.True(t, initial.Redirect)
	waitStarted(t, started)

	require.NoError(t, a.Logout(ctx))
	close(release)

	assert.True(t, nextDecision(t, updates).Render())
	assert.False(t, a.Session().HasSession(), "stale identity must not revive a logged out session")
	service.AssertExpectations(t)
}
