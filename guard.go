package auth

import (
	"context"
)

// Decision tells a guarded screen whether to render its form or redirect.
type Decision struct {
	Redirect    bool
	Destination string
}

// Render reports whether the form should be shown.
func (d Decision) Render() bool {
	return !d.Redirect
}

// Guard decides whether a screen may render given the session state.
type Guard interface {
	Decide(reader SessionReader) Decision
}

// GuardFunc adapts a function to the Guard interface.
type GuardFunc func(reader SessionReader) Decision

// Decide implements Guard.
func (f GuardFunc) Decide(reader SessionReader) Decision {
	return f(reader)
}

// RedirectWhenAdmin redirects to destination once the admin flag is set.
func RedirectWhenAdmin(destination string) Guard {
	return GuardFunc(func(reader SessionReader) Decision {
		if reader != nil && reader.IsAdmin() {
			return Decision{Redirect: true, Destination: destination}
		}
		return Decision{}
	})
}

// RedirectWhenAuthenticated redirects to destination once an identity exists.
func RedirectWhenAuthenticated(destination string) Guard {
	return GuardFunc(func(reader SessionReader) Decision {
		if reader != nil && reader.HasSession() {
			return Decision{Redirect: true, Destination: destination}
		}
		return Decision{}
	})
}

// Screen is an authentication screen protected by a guard. Each Mount runs
// the session check once.
type Screen struct {
	auther *Authenticator
	guard  Guard
	check  func(ctx context.Context, a *Authenticator) error
}

// NewAdminLoginScreen guards the admin login form: an admin session
// redirects to destination.
func NewAdminLoginScreen(a *Authenticator, destination string) *Screen {
	return &Screen{
		auther: a,
		guard:  RedirectWhenAdmin(destination),
		check: func(ctx context.Context, a *Authenticator) error {
			_, err := a.CheckAdmin(ctx)
			return err
		},
	}
}

// NewLoginScreen guards the login and signup form: an existing identity
// redirects to destination.
func NewLoginScreen(a *Authenticator, destination string) *Screen {
	return &Screen{
		auther: a,
		guard:  RedirectWhenAuthenticated(destination),
		check: func(ctx context.Context, a *Authenticator) error {
			_, err := a.CheckSession(ctx)
			return err
		},
	}
}

// Decide evaluates the guard against the current store without any
// network call.
func (s *Screen) Decide() Decision {
	return s.guard.Decide(s.auther.Session())
}

// Mount returns the decision for the current state right away and starts
// the session check. The channel yields the decision re-evaluated after the
// check completes, then closes. Cancelling ctx abandons the check.
func (s *Screen) Mount(ctx context.Context) (Decision, <-chan Decision) {
	initial := s.Decide()

	out := make(chan Decision, 1)
	go func() {
		defer close(out)
		if err := s.check(ctx, s.auther); err != nil && IsAbandoned(err) {
			return
		}
		out <- s.Decide()
	}()

	return initial, out
}

// Resolve mounts the screen and returns the final decision. A redirect
// known before the check is returned at once while the check keeps running.
func (s *Screen) Resolve(ctx context.Context) Decision {
	initial, updates := s.Mount(ctx)
	if initial.Redirect {
		return initial
	}
	select {
	case d, ok := <-updates:
		if ok {
			return d
		}
		return s.Decide()
	case <-ctx.Done():
		return initial
	}
}
