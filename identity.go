package auth

import (
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Avatar is the profile image reference returned by the service.
type Avatar struct {
	PublicID string `json:"public_id,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Identity is the authenticated user returned on login, signup and session
// check. Raw keeps the payload exactly as received.
type Identity struct {
	ID        string          `json:"_id"`
	Username  string          `json:"username"`
	Name      string          `json:"name,omitempty"`
	Bio       string          `json:"bio,omitempty"`
	Avatar    Avatar          `json:"avatar"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw payload.
func (i *Identity) UnmarshalJSON(data []byte) error {
	type plain Identity
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Identity(p)
	i.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// AvatarURL returns the profile image location, if any.
func (i *Identity) AvatarURL() string {
	if i == nil {
		return ""
	}
	return i.Avatar.URL
}

// AuthResult is the success payload of login, signup and session check.
type AuthResult struct {
	Message string    `json:"message"`
	User    *Identity `json:"user"`
}

// AdminResult is the success payload of the admin endpoints.
type AdminResult struct {
	Message string `json:"message"`
	Admin   bool   `json:"admin"`
}

// LoginRequest payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, fieldRule(FieldUsername)),
		validation.Field(&r.Password, fieldRule(FieldPassword)),
	)
}

// cleaned returns the request as it goes on the wire.
func (r LoginRequest) cleaned() LoginRequest {
	r.Username = cleanField(FieldUsername, r.Username)
	r.Password = cleanField(FieldPassword, r.Password)
	return r
}

// AvatarFile is the staged image sent with a signup.
type AvatarFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SignupRequest payload. It is sent as multipart form data.
type SignupRequest struct {
	Name     string      `json:"name"`
	Bio      string      `json:"bio"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Avatar   *AvatarFile `json:"-"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, fieldRule(FieldName)),
		validation.Field(&r.Bio, fieldRule(FieldBio)),
		validation.Field(&r.Username, fieldRule(FieldUsername)),
		validation.Field(&r.Password, fieldRule(FieldPassword)),
	)
}

func (r SignupRequest) cleaned() SignupRequest {
	r.Name = cleanField(FieldName, r.Name)
	r.Bio = cleanField(FieldBio, r.Bio)
	r.Username = cleanField(FieldUsername, r.Username)
	r.Password = cleanField(FieldPassword, r.Password)
	return r
}

// AdminLoginRequest payload
type AdminLoginRequest struct {
	SecretKey string `json:"secretKey"`
}

// Validate will run validation rules
func (r AdminLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SecretKey, fieldRule(FieldSecretKey)),
	)
}

func (r AdminLoginRequest) cleaned() AdminLoginRequest {
	r.SecretKey = cleanField(FieldSecretKey, r.SecretKey)
	return r
}
