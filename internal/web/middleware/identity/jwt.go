package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/comunidade-central/accessctl/internal/config"
)

// DefaultUserIDClaim is used when no claim is configured.
const DefaultUserIDClaim = "userId"

// JWT reads the user id from an HS256 signed bearer token.
type JWT struct {
	secret []byte
	claim  string
	parser *jwt.Parser
}

// NewJWT creates a JWT provider.
func NewJWT(cfg config.JWTAuth) *JWT {
	claim := cfg.UserIDClaim
	if claim == "" {
		claim = DefaultUserIDClaim
	}

	return &JWT{
		secret: []byte(cfg.Secret),
		claim:  claim,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

// Name implements Provider.
func (j *JWT) Name() string {
	return "jwt"
}

// Identify implements Provider.
func (j *JWT) Identify(c *fiber.Ctx) (string, error) {
	raw := BearerToken(c)
	if raw == "" {
		return "", nil
	}

	return j.UserID(raw)
}

// UserID validates raw and returns the user id claim.
func (j *JWT) UserID(raw string) (string, error) {
	claims := jwt.MapClaims{}

	_, err := j.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	var id string

	switch v := claims[j.claim].(type) {
	case string:
		id = strings.TrimSpace(v)
	case float64:
		id = strconv.FormatFloat(v, 'f', -1, 64)
	}

	if id == "" {
		return "", fmt.Errorf("%w: claim %q missing", ErrInvalidCredential, j.claim)
	}

	return id, nil
}
