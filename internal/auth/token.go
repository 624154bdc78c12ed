package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrMalformedHeader is returned when the Authorization header is not a Bearer token
	ErrMalformedHeader = errors.New("invalid authorization header format")
)

// TokenParser turns a bearer token into a principal
type TokenParser interface {
	Parse(token string) (*Principal, error)
}

// JWTParser validates HS256 tokens with a shared secret
type JWTParser struct {
	secret []byte
}

// NewJWTParser creates a parser for the given secret
func NewJWTParser(secret string) *JWTParser {
	return &JWTParser{secret: []byte(secret)}
}

// Parse validates the token and extracts the principal from its claims
func (p *JWTParser) Parse(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	id, err := userID(claims)
	if err != nil {
		return nil, err
	}

	principal := &Principal{ID: id}
	principal.Email, _ = claims["email"].(string)
	principal.Name, _ = claims["name"].(string)
	return principal, nil
}

// Sign issues an HS256 token carrying the principal in the claims Parse reads.
// Extra claims such as exp are merged over the defaults.
func (p *JWTParser) Sign(principal Principal, claims jwt.MapClaims) (string, error) {
	all := jwt.MapClaims{
		"user_id": principal.ID,
		"email":   principal.Email,
		"name":    principal.Name,
	}
	for k, v := range claims {
		all[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, all).SignedString(p.secret)
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMalformedHeader
	}
	return strings.TrimSpace(parts[1]), nil
}

// userID reads user_id as a number or numeric string, falling back to sub
func userID(claims jwt.MapClaims) (int64, error) {
	raw, ok := claims["user_id"]
	if !ok {
		raw, ok = claims["sub"]
	}
	if !ok {
		return 0, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%w: non-integer user id", ErrInvalidToken)
		}
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: non-numeric user id", ErrInvalidToken)
		}
		return id, nil
	}
	return 0, fmt.Errorf("%w: unsupported user id type", ErrInvalidToken)
}
