package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/cashledger/internal/domain"
)

const issuer = "cashledger"

var errExecutorName = errors.New("executor tokens need a name")

// Claims is the token payload. The user ID travels as the subject.
type Claims struct {
	Email string      `json:"email"`
	Name  string      `json:"name,omitempty"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// User converts the claims back into the authenticated user.
func (c *Claims) User() *domain.User {
	return &domain.User{
		ID:     c.Subject,
		Email:  c.Email,
		Name:   c.Name,
		Role:   c.Role,
		Active: true,
	}
}

// check rejects payloads no issued token can carry. Executors read their
// own totals by name, so a nameless executor token is useless.
func (c *Claims) check() error {
	if !c.Role.IsValid() {
		return fmt.Errorf("%w: role %q", domain.ErrInsufficientRole, c.Role)
	}
	if c.Subject == "" {
		return errors.New("token needs a subject")
	}
	if c.Role == domain.RoleExecutor && c.Name == "" {
		return errExecutorName
	}
	return nil
}

// JWTManager signs and verifies HS256 operator tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token for user and returns it with its expiry.
func (m *JWTManager) Generate(user *domain.User) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)
	claims := &Claims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	if err := claims.check(); err != nil {
		return "", time.Time{}, err
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses tokenString and maps every failure to ErrExpiredToken or
// ErrInvalidToken.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.ErrExpiredToken
	case err != nil, claims.check() != nil:
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
