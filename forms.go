package auth

import (
	"context"
	"io"
	"sync"
)

// Field is the per-field state of a form: the cleaned value and the last
// validation message.
type Field struct {
	Value string
	Error string
}

type form struct {
	auther *Authenticator
	op     *Operation

	mu        sync.Mutex
	fields    map[string]*Field
	order     []string
	cancel    context.CancelFunc
	unmounted bool
}

func newForm(a *Authenticator, operation string, fields ...string) *form {
	f := &form{
		auther: a,
		op:     NewOperation(operation),
		fields: make(map[string]*Field, len(fields)),
		order:  fields,
	}
	for _, name := range fields {
		f.fields[name] = &Field{}
	}
	return f
}

// Set updates a field and re-runs its validation.
func (f *form) Set(field, value string) FieldResult {
	res := ValidateField(field, value)

	f.mu.Lock()
	defer f.mu.Unlock()
	if fld, ok := f.fields[field]; ok {
		fld.Value = res.Value
		fld.Error = res.Error
	}
	return res
}

// Field returns the state of a single field.
func (f *form) Field(name string) Field {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fld, ok := f.fields[name]; ok {
		return *fld
	}
	return Field{}
}

// Errors returns the current validation messages keyed by field.
func (f *form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for name, fld := range f.fields {
		if fld.Error != "" {
			out[name] = fld.Error
		}
	}
	return out
}

// Status returns the state of the submit operation.
func (f *form) Status() (OperationStatus, string) {
	return f.op.Status()
}

// Busy reports whether a submission is pending. Submit actions should be
// disabled while true.
func (f *form) Busy() bool {
	return f.op.Busy()
}

// Unmount cancels the pending request, if any. Its response is discarded.
func (f *form) Unmount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unmounted = true
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *form) validateAll(operation string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values := make(map[string]string, len(f.fields))
	errs := map[string]string{}
	first := ""
	for _, name := range f.order {
		fld := f.fields[name]
		res := ValidateField(name, fld.Value)
		fld.Error = res.Error
		values[name] = res.Value
		if res.Error != "" {
			errs[name] = res.Error
			if first == "" {
				first = res.Error
			}
		}
	}

	if len(errs) > 0 {
		return nil, newError(ErrInvalidField, first, nil, map[string]any{
			"operation": operation,
			"fields":    errs,
		})
	}
	return values, nil
}

func (f *form) submit(ctx context.Context, call func(ctx context.Context) error) error {
	if !f.op.Begin() {
		return newError(ErrBusy, "", nil, map[string]any{"operation": f.op.Name()})
	}

	f.mu.Lock()
	if f.unmounted {
		f.mu.Unlock()
		err := newError(ErrAbandoned, "", nil, map[string]any{"operation": f.op.Name()})
		f.op.Fail(FailureMessage(err))
		return err
	}
	reqCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()

	defer func() {
		cancel()
		f.mu.Lock()
		f.cancel = nil
		f.mu.Unlock()
	}()

	if err := call(reqCtx); err != nil {
		f.op.Fail(FailureMessage(err))
		return err
	}

	f.op.Succeed()
	return nil
}

// LoginForm captures username and password.
type LoginForm struct {
	*form
}

// NewLoginForm returns an empty login form bound to a.
func NewLoginForm(a *Authenticator) *LoginForm {
	return &LoginForm{form: newForm(a, OperationLogin, FieldUsername, FieldPassword)}
}

// Submit validates the fields and logs in. Invalid fields never reach the
// network; a second call while pending returns ErrBusy.
func (f *LoginForm) Submit(ctx context.Context) (*AuthResult, error) {
	values, err := f.validateAll(OperationLogin)
	if err != nil {
		return nil, err
	}

	var out *AuthResult
	err = f.submit(ctx, func(ctx context.Context) error {
		res, err := f.auther.Login(ctx, LoginRequest{
			Username: values[FieldUsername],
			Password: values[FieldPassword],
		})
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SignupForm captures the profile fields and the avatar.
type SignupForm struct {
	*form
	avatar *AvatarStaging
}

// NewSignupForm returns an empty signup form bound to a. maxAvatarBytes
// limits the staged image size.
func NewSignupForm(a *Authenticator, maxAvatarBytes int64) *SignupForm {
	return &SignupForm{
		form:   newForm(a, OperationSignup, FieldName, FieldBio, FieldUsername, FieldPassword),
		avatar: NewAvatarStaging(maxAvatarBytes),
	}
}

// SelectAvatar stages an image and returns its preview.
func (f *SignupForm) SelectAvatar(filename string, r io.Reader) (string, error) {
	return f.avatar.Select(filename, r)
}

// Avatar returns the staging area of the form.
func (f *SignupForm) Avatar() *AvatarStaging {
	return f.avatar
}

// Submit validates the fields and the avatar, then registers the account.
// The staged avatar is released once the submission succeeds.
func (f *SignupForm) Submit(ctx context.Context) (*AuthResult, error) {
	values, err := f.validateAll(OperationSignup)
	if err != nil {
		return nil, err
	}

	file := f.avatar.File()
	if file == nil {
		return nil, newError(ErrUpload, "Please Upload Avatar", nil, map[string]any{"operation": OperationSignup})
	}

	var out *AuthResult
	err = f.submit(ctx, func(ctx context.Context) error {
		res, err := f.auther.Signup(ctx, SignupRequest{
			Name:     values[FieldName],
			Bio:      values[FieldBio],
			Username: values[FieldUsername],
			Password: values[FieldPassword],
			Avatar:   file,
		})
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}

	f.avatar.Clear()
	return out, nil
}

// Unmount cancels the pending request and releases the staged avatar.
func (f *SignupForm) Unmount() {
	f.form.Unmount()
	f.avatar.Clear()
}

// AdminLoginForm captures the shared secret key.
type AdminLoginForm struct {
	*form
}

// NewAdminLoginForm returns an empty admin login form bound to a.
func NewAdminLoginForm(a *Authenticator) *AdminLoginForm {
	return &AdminLoginForm{form: newForm(a, OperationAdminLogin, FieldSecretKey)}
}

// Submit validates the secret key and performs the admin login.
func (f *AdminLoginForm) Submit(ctx context.Context) (*AdminResult, error) {
	values, err := f.validateAll(OperationAdminLogin)
	if err != nil {
		return nil, err
	}

	var out *AdminResult
	err = f.submit(ctx, func(ctx context.Context) error {
		res, err := f.auther.AdminLogin(ctx, AdminLoginRequest{SecretKey: values[FieldSecretKey]})
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
