// middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalUserID      = "user_id"
	LocalUserEmail   = "user_email"
	LocalAccessToken = "access_token"
)

// Claims is the access token issued by the auth service.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier checks access tokens signed with the auth service's shared
// HS256 secret.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's id, email and token in Locals.
func RequireAuth(v *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}
		claims, err := v.Verify(token)
		if err != nil {
			log.Printf("🚫 [AUTH] rejected token on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}
		setIdentity(c, claims, token)
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, claims *Claims, token string) {
	c.Locals(LocalUserID, claims.Subject)
	c.Locals(LocalUserEmail, claims.Email)
	c.Locals(LocalAccessToken, token)
}

// UserID returns the authenticated caller, or "" outside RequireAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

func AccessToken(c *fiber.Ctx) string {
	token, _ := c.Locals(LocalAccessToken).(string)
	return token
}

// AdminChecker looks up whether a user holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(checker AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		ok, err := checker.IsAdmin(c.UserContext(), userID)
		if err != nil {
			log.Printf("❌ [AUTH] admin check for %s failed: %v", userID, err)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin access required",
			})
		}
		if !ok {
			log.Printf("🚫 [AUTH] %s is not an admin (%s %s)", userID, c.Method(), c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin access required",
			})
		}
		return c.Next()
	}
}

// SignToken issues an HS256 access token for subject. The auth service signs
// real tokens; this is used by tooling and tests.
func (v *TokenVerifier) SignToken(subject, email string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: email, Role: "authenticated", RegisteredClaims: claims})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
