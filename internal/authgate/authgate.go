// Package authgate gates who may attach handlers to a shared dispatch
// invoker. It exists for host applications that multiplex several room
// connections behind one control plane and need to authenticate callers
// before letting them subscribe to a feed; the connection core never
// imports this package.
package authgate

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors returned by Gate.Authenticate.
var (
	ErrInvalidToken = errors.New("authgate: invalid token")
	ErrTokenExpired = errors.New("authgate: token expired")
)

// Claims identifies the caller a token was issued to.
type Claims struct {
	Subject string `json:"sub"`
	Scope   string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Gate validates bearer tokens presented by callers registering handlers.
type Gate struct {
	secretKey []byte
}

// New builds a Gate that validates HMAC-signed tokens against secretKey.
func New(secretKey string) *Gate {
	return &Gate{secretKey: []byte(secretKey)}
}

// Authenticate parses and validates tokenString, returning the caller's
// claims on success.
func (g *Gate) Authenticate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return g.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueToken mints a token for subject, valid for ttl. Intended for tests
// and for a control plane that issues its own short-lived tokens.
func (g *Gate) IssueToken(subject, scope string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Subject: subject,
		Scope:   scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secretKey)
}

// CanRegister reports whether claims's scope permits attaching a handler
// for the given event kind label (e.g. "raw_data", "popularity"). An empty
// scope is treated as unrestricted, matching a control-plane-issued
// all-access token.
func (g *Gate) CanRegister(claims *Claims, eventKind string) bool {
	if claims == nil {
		return false
	}
	if claims.Scope == "" {
		return true
	}
	return claims.Scope == eventKind
}
