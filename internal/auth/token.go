package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "jwt"

const defaultTTL = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Tokens mints and verifies the HS256 session tokens stored in the auth cookie.
type Tokens struct {
	Secret []byte
	TTL    time.Duration
}

func NewTokens(secret string) *Tokens {
	return &Tokens{Secret: []byte(secret), TTL: defaultTTL}
}

// Generate signs a token whose subject is the user id.
func (t *Tokens) Generate(userID int) (string, error) {
	ttl := t.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub": strconv.Itoa(userID),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(t.Secret)
}

// Verify parses the token and returns the user id from its subject.
func (t *Tokens) Verify(token string) (int, error) {
	parsed, err := jwtlib.Parse(token, func(tok *jwtlib.Token) (interface{}, error) {
		// Only the HMAC family is accepted
		if _, ok := tok.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", tok.Header["alg"])
		}
		return t.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.Atoi(sub)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
