package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Typed token failures, surfaced before any pipeline work begins.
var (
	ErrTokenEmpty   = errors.New("auth: empty credentials")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// MemberClaims is the verified identity the auth service encodes into the
// bearer token. The engine never issues tokens, it only verifies them.
type MemberClaims struct {
	MemberID int64 `json:"memberId"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens signed with a shared base64-encoded
// secret.
type Verifier struct {
	key []byte
}

func NewVerifier(base64Secret string) (*Verifier, error) {
	if base64Secret == "" {
		return nil, errors.New("auth: JWT secret is not set")
	}
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("auth: decode JWT secret: %w", err)
	}
	return &Verifier{key: key}, nil
}

// Verify parses and validates a raw bearer credential. A leading "Bearer "
// prefix is stripped.
func (v *Verifier) Verify(raw string) (*MemberClaims, error) {
	token := strings.TrimSpace(raw)
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer"))
	if token == "" {
		return nil, ErrTokenEmpty
	}

	claims := &MemberClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.MemberID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyRequest pulls the credential from the Authorization header. Used by
// both the HTTP upload endpoint and the websocket handshake.
func (v *Verifier) VerifyRequest(r *http.Request) (*MemberClaims, error) {
	return v.Verify(r.Header.Get("Authorization"))
}
