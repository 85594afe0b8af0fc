package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

const actorKey = "auth_actor"

// ActorDirectory resolves authenticated emails to actors.
type ActorDirectory interface {
	Actor(email string) (domain.Actor, bool)
}

// AuthMiddleware validates bearer tokens and loads the acting user.
type AuthMiddleware struct {
	tokens    *TokenManager
	directory ActorDirectory
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, directory ActorDirectory) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, directory: directory}
}

// Handle enforces authentication for protected routes. EventSource clients
// cannot set headers, so an access_token query parameter is accepted too.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token := c.Query("access_token")
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.NewUnauthorized("invalid authorization header")
		}
		token = parts[1]
	}
	if token == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	actor, ok := m.directory.Actor(claims.Email())
	if !ok {
		return apperrors.NewUnauthorized("user not found")
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorKey).(domain.Actor)
	return actor, ok
}
