package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

const actorKey = "actor"

// JWTProtected validates HS256 bearer tokens and binds the caller as a
// lifecycle.Actor. Tokens without a subject or with an unknown role are
// rejected.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		c.Locals(actorKey, actor)

		return c.Next()
	}
}

// ActorFromContext returns the authenticated caller bound by JWTProtected.
func ActorFromContext(c *fiber.Ctx) (lifecycle.Actor, bool) {
	actor, ok := c.Locals(actorKey).(lifecycle.Actor)
	return actor, ok
}

// WithActor binds actor to the request, used by tests and internal callers.
func WithActor(actor lifecycle.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

func actorFromClaims(claims jwt.MapClaims) (lifecycle.Actor, error) {
	var id uint
	found := false
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil {
				id, found = normalized, true
				break
			}
		}
	}
	if !found || id == 0 {
		return lifecycle.Actor{}, fmt.Errorf("token subject missing")
	}

	role := lifecycle.NormalizeRole(claimRole(claims))
	if role == "" || role == lifecycle.RoleSystem {
		return lifecycle.Actor{}, fmt.Errorf("token role not recognised")
	}

	return lifecycle.Actor{ID: id, Role: role}, nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

// claimRole reads "role" or the first entry of "roles".
func claimRole(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
					return str
				}
			}
		}
	}
	return ""
}
