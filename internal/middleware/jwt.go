package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/admission-go-api/internal/utils"
)

// Locals keys holding the authenticated actor.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

var errNoSubject = errors.New("token does not identify an account")

// JWTProtected validates HMAC-signed bearer tokens and exposes the acting account's id and role.
// Tokens must carry a positive numeric subject; applications are always owned by or reviewed by someone.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(30*time.Second),
	)
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, err := actorIDFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		c.Locals(LocalUserID, userID)
		if role := actorRoleFromClaims(claims); role != "" {
			c.Locals(LocalUserRole, role)
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func actorIDFromClaims(claims jwt.MapClaims) (uint, error) {
	for _, key := range []string{"sub", "user_id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}

		var id uint64
		var err error
		switch v := value.(type) {
		case float64:
			if v < 1 || v != float64(uint64(v)) {
				continue
			}
			id = uint64(v)
		case string:
			id, err = strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err != nil || id == 0 {
				continue
			}
		default:
			continue
		}
		return uint(id), nil
	}
	return 0, errNoSubject
}

// actorRoleFromClaims accepts either a single "role" or the first entry of "roles".
func actorRoleFromClaims(claims jwt.MapClaims) string {
	if role, ok := claims["role"].(string); ok {
		if normalized := normalizeRole(role); normalized != "" {
			return normalized
		}
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, item := range roles {
			if role, ok := item.(string); ok && normalizeRole(role) != "" {
				return normalizeRole(role)
			}
		}
	}
	return ""
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
