package auth

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Field names understood by ValidateField.
const (
	FieldUsername  = "username"
	FieldPassword  = "password"
	FieldName      = "name"
	FieldBio       = "bio"
	FieldSecretKey = "secretKey"
)

// UsernameInvalidMessage is reported for usernames outside the allowed charset.
const UsernameInvalidMessage = "Username is Invalid"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// FieldResult is the outcome of validating a single field.
type FieldResult struct {
	Value string
	Error string
}

// Valid reports whether the field passed validation.
func (r FieldResult) Valid() bool {
	return r.Error == ""
}

// ValidateField cleans and validates a raw field value. It has no side
// effects and never touches the network.
func ValidateField(field, raw string) FieldResult {
	value := cleanField(field, raw)
	if err := validation.Validate(value, fieldRules(field)...); err != nil {
		return FieldResult{Value: value, Error: err.Error()}
	}
	return FieldResult{Value: value}
}

func cleanField(field, raw string) string {
	switch field {
	case FieldPassword, FieldSecretKey:
		return raw
	default:
		return strings.TrimSpace(raw)
	}
}

func fieldRules(field string) []validation.Rule {
	switch field {
	case FieldUsername:
		return []validation.Rule{
			validation.Required.Error("Username is required"),
			validation.Match(usernamePattern).Error(UsernameInvalidMessage),
			validation.Length(3, 30).Error("Username must be between 3 and 30 characters"),
		}
	case FieldPassword:
		return []validation.Rule{validation.Required.Error("Password is required")}
	case FieldName:
		return []validation.Rule{
			validation.Required.Error("Name is required"),
			validation.RuneLength(1, 100),
		}
	case FieldBio:
		return []validation.Rule{
			validation.Required.Error("Bio is required"),
			validation.RuneLength(1, 500),
		}
	case FieldSecretKey:
		return []validation.Rule{validation.Required.Error("Secret key is required")}
	default:
		return nil
	}
}

func fieldRule(field string) validation.Rule {
	return validation.By(func(value any) error {
		s, _ := value.(string)
		if res := ValidateField(field, s); !res.Valid() {
			return errors.New(res.Error)
		}
		return nil
	})
}

// FormatValidationErrorToMap flattens validation errors keyed by field.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}
