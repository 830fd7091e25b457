package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mentorway/mentorway-be/internal/models"
)

// ErrInvalidToken indicates a missing, malformed, expired, or mis-signed token.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified caller identity carried by a bearer token. It is
// attached to the request context by the auth middleware and to each chat
// connection at handshake time.
type Identity struct {
	UserID int64
	Name   string
	Role   models.Role
}

// TokenManager issues and verifies signed JWTs for authenticated users.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate issues a signed JWT string for the provided user.
func (t *TokenManager) Generate(user models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  t.issuer,
		"sub":  fmt.Sprintf("%d", user.ID),
		"name": user.Name,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies a token string and extracts the caller identity.
func (t *TokenManager) Parse(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	roleStr, _ := claims["role"].(string)
	role := models.Role(roleStr)
	if !role.Valid() {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: userID, Name: name, Role: role}, nil
}
