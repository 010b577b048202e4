package auth_test

import (
	"bytes"
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/wetalk/wetalk-auth"
)

// MockAuthService implements auth.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*auth.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthService) Signup(ctx context.Context, req auth.SignupRequest) (*auth.AuthResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*auth.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthService) AdminLogin(ctx context.Context, req auth.AdminLoginRequest) (*auth.AdminResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*auth.AdminResult)
	return res, args.Error(1)
}

func (m *MockAuthService) AdminCheck(ctx context.Context) (*auth.AdminResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*auth.AdminResult)
	return res, args.Error(1)
}

func (m *MockAuthService) SessionCheck(ctx context.Context) (*auth.AuthResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*auth.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context) (*auth.AuthResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*auth.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthService) AdminLogout(ctx context.Context) (*auth.AdminResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*auth.AdminResult)
	return res, args.Error(1)
}

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

func (l *captureLogger) has(level, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c.level == level && c.message == message {
			return true
		}
	}
	return false
}

// pngBytes returns n bytes that sniff as image/png.
func pngBytes(n int) []byte {
	sig := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	if n < len(sig) {
		n = len(sig)
	}
	out := make([]byte, n)
	copy(out, sig)
	return out
}

func pngReader(n int) *bytes.Reader {
	return bytes.NewReader(pngBytes(n))
}

func alice() *auth.Identity {
	return &auth.Identity{ID: "u-1", Username: "alice", Name: "Alice", Bio: "hi"}
}

func fixedIDs(ids ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(ids) {
			return "n-extra"
		}
		id := ids[i]
		i++
		return id
	}
}
