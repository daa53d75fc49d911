// Package auth implements the shared-secret login and the stateless bearer
// tokens that guard the admin API.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role a token can carry.
const RoleAdmin = "admin"

const defaultTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("token invalid or expired")
)

// Config configures a Gate.
type Config struct {
	AdminPassword string
	SigningKey    string
	// TTL defaults to 24h.
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Claims is the payload of an admin token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token is an issued bearer token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Gate validates the admin secret and issues/verifies signed tokens.
// There is no revocation: a token stays valid until it expires.
type Gate struct {
	passwordHash []byte
	signingKey   []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewGate hashes the admin secret once so logins compare against the hash.
func NewGate(cfg Config) (*Gate, error) {
	if cfg.AdminPassword == "" {
		return nil, errors.New("admin password is required")
	}
	if cfg.SigningKey == "" {
		return nil, errors.New("signing key is required")
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword(digest(cfg.AdminPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	gate := &Gate{
		passwordHash: hash,
		signingKey:   []byte(cfg.SigningKey),
		ttl:          cfg.TTL,
		now:          cfg.Now,
	}
	if gate.ttl <= 0 {
		gate.ttl = defaultTTL
	}
	if gate.now == nil {
		gate.now = time.Now
	}
	return gate, nil
}

// IssueToken checks the supplied password and mints an admin token on match.
func (g *Gate) IssueToken(password string) (Token, error) {
	if password == "" {
		return Token{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(g.passwordHash, digest(password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}

	issuedAt := g.now()
	expiresAt := issuedAt.Add(g.ttl)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.signingKey)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// VerifyToken checks signature, expiry and role.
func (g *Gate) VerifyToken(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return g.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrForbidden
	}
	if claims.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return claims, nil
}

// digest feeds bcrypt a fixed 64-byte input; bcrypt takes at most 72 bytes.
func digest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
// A missing credential is ErrUnauthenticated; a credential under another scheme is ErrForbidden.
func BearerToken(header string) (string, error) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthenticated
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", ErrForbidden
	}
	return token, nil
}
