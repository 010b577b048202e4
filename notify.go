package auth

import (
	"context"
	"sync"
	"time"
)

// NotificationKind enumerates the lifecycle steps surfaced to the actor.
type NotificationKind string

const (
	NotificationLoading NotificationKind = "loading"
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Operation names used in notifications.
const (
	OperationLogin        = "auth.login"
	OperationSignup       = "auth.signup"
	OperationAdminLogin   = "auth.admin.login"
	OperationAdminCheck   = "auth.admin.check"
	OperationSessionCheck = "auth.session.check"
	OperationLogout       = "auth.logout"
	OperationAdminLogout  = "auth.admin.logout"
)

// Notification describes one step of an asynchronous operation. Steps of
// the same request share an ID so a sink can replace the loading entry.
type Notification struct {
	ID         string
	Kind       NotificationKind
	Operation  string
	Message    string
	OccurredAt time.Time
}

// Notifier surfaces operation lifecycle to the actor. Implementations must
// not block the caller for long.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// NotificationLog records notifications in memory, keyed by ID so later
// steps replace earlier ones the way a toast does.
type NotificationLog struct {
	mu      sync.Mutex
	history []Notification
	current map[string]int
	order   []string
}

// NewNotificationLog returns an empty log.
func NewNotificationLog() *NotificationLog {
	return &NotificationLog{current: map[string]int{}}
}

// Notify implements Notifier.
func (l *NotificationLog) Notify(_ context.Context, n Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, n)
	if _, ok := l.current[n.ID]; !ok {
		l.order = append(l.order, n.ID)
	}
	l.current[n.ID] = len(l.history) - 1
	return nil
}

// History returns every notification in arrival order.
func (l *NotificationLog) History() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notification, len(l.history))
	copy(out, l.history)
	return out
}

// Visible returns the latest step of each notification, oldest first.
func (l *NotificationLog) Visible() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notification, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.history[l.current[id]])
	}
	return out
}

// Last returns the most recent notification.
func (l *NotificationLog) Last() (Notification, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.history) == 0 {
		return Notification{}, false
	}
	return l.history[len(l.history)-1], true
}
