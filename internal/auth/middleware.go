package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"pinturas-backend/internal/config"
	"pinturas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserNameKey = "user_name"
	CtxUserRoleKey = "user_role"
	CtxBranchIDKey = "branch_id"

	AdminKeyHeader = "x-admin-key"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Falta el header Authorization")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization debe ser 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("método de firma inválido")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Token inválido o expirado")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "No se pudo leer el token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserNameKey, claims.Name)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxBranchIDKey, claims.BranchID)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "No se pudo obtener el rol")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "No tienes permiso para esta operación")
	}
}

// AdminKeyMiddleware guards the back-office endpoints with the shared
// x-admin-key secret.
func AdminKeyMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.AdminAPIKey == "" {
			return fiber.NewError(fiber.StatusInternalServerError, "ADMIN_API_KEY no está configurada en el servidor")
		}

		got := c.Get(AdminKeyHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(cfg.AdminAPIKey)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "No autorizado")
		}

		c.Locals(CtxUserRoleKey, models.RoleAdmin)
		return c.Next()
	}
}

// Actor is the caller as seen by the handlers. UserID is nil for requests
// authenticated with the admin key.
type Actor struct {
	UserID   *uuid.UUID
	Name     string
	Role     models.UserRole
	BranchID *uuid.UUID
}

func ActorFrom(c *fiber.Ctx) Actor {
	a := Actor{}
	if id, ok := c.Locals(CtxUserIDKey).(uuid.UUID); ok {
		a.UserID = &id
	}
	if name, ok := c.Locals(CtxUserNameKey).(string); ok {
		a.Name = name
	}
	if role, ok := c.Locals(CtxUserRoleKey).(models.UserRole); ok {
		a.Role = role
	}
	if b, ok := c.Locals(CtxBranchIDKey).(*uuid.UUID); ok && b != nil {
		a.BranchID = b
	}
	if a.Name == "" && a.UserID == nil && a.Role == models.RoleAdmin {
		a.Name = "admin-key"
	}
	return a
}

// ResolveBranchID picks the branch a request acts on. Admins must name it;
// everyone else is pinned to the branch in their token.
func ResolveBranchID(c *fiber.Ctx, requested *uuid.UUID) (uuid.UUID, error) {
	actor := ActorFrom(c)

	if actor.Role == models.RoleAdmin {
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "branch_id requerido")
		}
		return *requested, nil
	}

	if actor.BranchID == nil {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "El usuario no tiene sucursal asignada")
	}
	if requested != nil && *requested != uuid.Nil && *requested != *actor.BranchID {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "Solo puedes operar en tu sucursal")
	}
	return *actor.BranchID, nil
}

// ParseUUIDParam parses an optional uuid from query/body strings.
func ParseUUIDParam(raw, field string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, field+" inválido")
	}
	return &id, nil
}
