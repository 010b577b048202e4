package auth

import (
	"sync"
)

// OperationStatus is the lifecycle of a single auth request.
type OperationStatus string

const (
	StatusIdle      OperationStatus = "idle"
	StatusPending   OperationStatus = "pending"
	StatusSucceeded OperationStatus = "succeeded"
	StatusFailed    OperationStatus = "failed"
)

var operationTransitions = map[OperationStatus]map[OperationStatus]struct{}{
	StatusIdle: {
		StatusPending: {},
	},
	StatusPending: {
		StatusSucceeded: {},
		StatusFailed:    {},
	},
	StatusSucceeded: {
		StatusPending: {},
	},
	StatusFailed: {
		StatusPending: {},
	},
}

// Operation is the busy guard of a form: at most one request is pending at
// any time.
type Operation struct {
	mu     sync.Mutex
	name   string
	status OperationStatus
	reason string
}

// NewOperation returns an idle operation.
func NewOperation(name string) *Operation {
	return &Operation{name: name, status: StatusIdle}
}

// Name returns the operation name.
func (o *Operation) Name() string {
	return o.name
}

// Begin moves the operation to pending. It returns false when a request is
// already pending.
func (o *Operation) Begin() bool {
	return o.transition(StatusPending, "")
}

// Succeed marks the pending request as succeeded.
func (o *Operation) Succeed() bool {
	return o.transition(StatusSucceeded, "")
}

// Fail marks the pending request as failed with reason.
func (o *Operation) Fail(reason string) bool {
	return o.transition(StatusFailed, reason)
}

// Status returns the current status and, when failed, the reason.
func (o *Operation) Status() (OperationStatus, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status, o.reason
}

// Busy reports whether a request is pending.
func (o *Operation) Busy() bool {
	status, _ := o.Status()
	return status == StatusPending
}

func (o *Operation) transition(target OperationStatus, reason string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := operationTransitions[o.status][target]; !ok {
		return false
	}

	o.status = target
	o.reason = reason
	return true
}
