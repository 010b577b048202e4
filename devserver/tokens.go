package devserver

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

const (
	tokenIssuer  = "wetalk"
	adminSubject = "admin"
)

// ErrUnauthorized is returned when a route needs a valid session cookie.
var ErrUnauthorized = goerrors.New("Please login to access this route", goerrors.CategoryAuth).
	WithTextCode("UNAUTHORIZED").
	WithCode(goerrors.CodeUnauthorized)

// ErrAdminOnly is returned when a route needs a valid admin cookie.
var ErrAdminOnly = goerrors.New("Only Admin can access this route", goerrors.CategoryAuth).
	WithTextCode("ADMIN_ONLY").
	WithCode(goerrors.CodeUnauthorized)

// SessionClaims are carried by the session cookies.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID string `json:"_id,omitempty"`
}

type tokenService struct {
	signingKey []byte
	now        func() time.Time
}

func newTokenService(secret string) *tokenService {
	return &tokenService{signingKey: []byte(secret), now: time.Now}
}

func (ts *tokenService) userToken(userID string, ttl time.Duration) (string, error) {
	now := ts.now()
	return ts.sign(&SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID: userID,
	})
}

func (ts *tokenService) adminToken(ttl time.Duration) (string, error) {
	now := ts.now()
	return ts.sign(&SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   adminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}

func (ts *tokenService) sign(claims *SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

func (ts *tokenService) validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(ts.now))
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	return claims, nil
}
