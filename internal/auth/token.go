package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/deskops/itsm-service/internal/domain"
)

// TokenManager validates bearer tokens issued by the identity provider.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager builds a new manager. issuer may be empty to skip the iss check.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Claims describes JWT payload.
type Claims struct {
	TenantID string           `json:"tenant_id"`
	Role     domain.AgentRole `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for an agent. Used by tooling and tests; production
// tokens come from the identity provider.
func (tm *TokenManager) GenerateToken(principal domain.Principal) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		TenantID: principal.TenantID,
		Role:     principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.AgentID,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil, errors.New("token missing subject or tenant")
	}
	return claims, nil
}

// Principal converts claims into the request principal.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{AgentID: c.Subject, TenantID: c.TenantID, Role: c.Role}
}
