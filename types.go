package auth

import (
	"context"
	"fmt"
	"strings"
)

// Logger is the logging surface used across the package. Messages are
// followed by key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SessionReader is the read-only view of the session state shared with
// every screen.
type SessionReader interface {
	Identity() (*Identity, bool)
	HasSession() bool
	IsAdmin() bool
	Subscribe() (<-chan SessionEvent, func())
}

// AuthService is the remote authentication service as seen by the
// Authenticator. Client implements it over HTTP.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Signup(ctx context.Context, req SignupRequest) (*AuthResult, error)
	AdminLogin(ctx context.Context, req AdminLoginRequest) (*AdminResult, error)
	AdminCheck(ctx context.Context) (*AdminResult, error)
	SessionCheck(ctx context.Context) (*AuthResult, error)
	Logout(ctx context.Context) (*AuthResult, error)
	AdminLogout(ctx context.Context) (*AdminResult, error)
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] AUTH " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] AUTH " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] AUTH " + format(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] AUTH " + format(msg, args...))
}

func format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(msg, "\n"))
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteString("\n")
	return b.String()
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger discards every message.
func NoopLogger() Logger {
	return noopLogger{}
}
