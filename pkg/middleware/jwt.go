package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalSubject is the fiber.Ctx local holding the authenticated subject
const LocalSubject = "subject"

var (
	// ErrMissingToken is returned when no bearer token was sent
	ErrMissingToken = errors.New("authorization header required")
	// ErrInvalidToken is returned for tokens that fail validation
	ErrInvalidToken = errors.New("invalid token")
)

// AuthConfig configures bearer token validation. An empty Secret disables
// authentication.
type AuthConfig struct {
	Secret string `yaml:"secret" json:"-"`
	Issuer string `yaml:"issuer" json:"issuer"`
}

// Claims are the JWT claims accepted by the API
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// Enabled reports whether tokens are required
func (c AuthConfig) Enabled() bool {
	return c.Secret != ""
}

// IssueToken signs an HS256 token for subject valid for ttl
func IssueToken(config AuthConfig, subject, name string, ttl time.Duration) (string, error) {
	if !config.Enabled() {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: name,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ValidateToken parses and verifies a bearer token
func ValidateToken(config AuthConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// BearerAuth returns a fiber middleware requiring a valid bearer token.
// The token subject is stored in the LocalSubject local.
func BearerAuth(config AuthConfig, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		if !config.Enabled() {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return authError(c, ErrMissingToken)
		}
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			return authError(c, fmt.Errorf("%w: authorization header must be in format 'Bearer <token>'", ErrInvalidToken))
		}

		claims, err := ValidateToken(config, strings.TrimSpace(tokenString))
		if err != nil {
			logger.Debug("rejected bearer token", zap.String("path", c.Path()), zap.Error(err))
			return authError(c, err)
		}

		c.Locals(LocalSubject, claims.Subject)
		return c.Next()
	}
}

// Subject returns the authenticated subject, or "" when authentication is off
func Subject(c *fiber.Ctx) string {
	subject, _ := c.Locals(LocalSubject).(string)
	return subject
}

func authError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "Unauthorized",
		"details": err.Error(),
	})
}
