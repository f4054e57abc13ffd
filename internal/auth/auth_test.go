package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/itsm-service/internal/domain"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

var adminPrincipal = domain.Principal{
	AgentID:  "6c1f6f6e-1b7f-4d33-9b5c-6a0f5f2d1a01",
	TenantID: "0b6f3c2e-7f1a-4f5e-9a43-2f3d1c3b9e10",
	Role:     domain.AgentRoleAdmin,
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "idp", time.Minute)

	token, exp, err := tm.GenerateToken(adminPrincipal)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, adminPrincipal, claims.Principal())
}

func TestParseTokenRejects(t *testing.T) {
	issuer := NewTokenManager("secret", "idp", time.Minute)
	valid, _, err := issuer.GenerateToken(adminPrincipal)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenManager("other", "idp", time.Minute).ParseToken(valid)
		assert.Error(t, err)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewTokenManager("secret", "someone-else", time.Minute).ParseToken(valid)
		assert.Error(t, err)
	})
	t.Run("expired", func(t *testing.T) {
		// NewTokenManager replaces a non-positive ttl, so build it directly.
		tm := &TokenManager{secret: []byte("secret"), issuer: "idp", ttl: -time.Minute}
		expired, _, err := tm.GenerateToken(adminPrincipal)
		require.NoError(t, err)
		_, err = issuer.ParseToken(expired)
		assert.Error(t, err)
	})
	t.Run("missing tenant", func(t *testing.T) {
		noTenant := adminPrincipal
		noTenant.TenantID = ""
		token, _, err := issuer.GenerateToken(noTenant)
		require.NoError(t, err)
		_, err = issuer.ParseToken(token)
		assert.Error(t, err)
	})
}

func newTestApp(tm *TokenManager, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	app.Get("/whoami", NewAuthMiddleware(tm).Handle, guard, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return errors.New("principal missing")
		}
		return c.SendString(principal.TenantID)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", "", time.Minute)
	adminToken, _, err := tm.GenerateToken(adminPrincipal)
	require.NoError(t, err)

	agent := adminPrincipal
	agent.Role = domain.AgentRoleAgent
	agentToken, _, err := tm.GenerateToken(agent)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		guard  fiber.Handler
		want   int
	}{
		{"missing header", "", RequireStaff(), http.StatusUnauthorized},
		{"not bearer", "Basic abc", RequireStaff(), http.StatusUnauthorized},
		{"garbage token", "Bearer abc", RequireStaff(), http.StatusUnauthorized},
		{"admin passes admin guard", "Bearer " + adminToken, RequireAdmin(), http.StatusOK},
		{"agent passes staff guard", "Bearer " + agentToken, RequireStaff(), http.StatusOK},
		{"agent blocked by admin guard", "Bearer " + agentToken, RequireAdmin(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tm, tt.guard)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/", RequireAdmin(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSealerRoundTrip(t *testing.T) {
	s := NewCredentialSealer("passphrase")

	sealed, err := s.Seal("smtp-password")
	require.NoError(t, err)
	assertNotContainsPlain(t, sealed, "smtp-password")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "smtp-password", plain)

	again, err := s.Seal("smtp-password")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")
}

func TestSealerRejectsTampering(t *testing.T) {
	s := NewCredentialSealer("passphrase")
	sealed, err := s.Seal("secret")
	require.NoError(t, err)

	_, err = NewCredentialSealer("other").Open(sealed)
	assert.ErrorIs(t, err, ErrUnsealFailed)

	_, err = s.Open("not base64!")
	assert.ErrorIs(t, err, ErrUnsealFailed)

	_, err = s.Open("c2hvcnQ=")
	assert.ErrorIs(t, err, ErrUnsealFailed)
}

func TestSealerEmpty(t *testing.T) {
	s := NewCredentialSealer("passphrase")

	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := s.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func assertNotContainsPlain(t *testing.T, sealed, plain string) {
	t.Helper()
	assert.False(t, strings.Contains(sealed, plain))
}
