package auth

import (
	"errors"
	"strings"

	"pinturas-backend/internal/config"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type BootstrapRequest struct {
	Name string `json:"name" validate:"required,min=2,max=80"`
	Pin  string `json:"pin" validate:"required,min=4,max=10"`
}

type LoginRequest struct {
	Name string `json:"name" validate:"required"`
	Pin  string `json:"pin" validate:"required"`
}

func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// BootstrapHandler creates the first admin. Once an admin exists it refuses.
func BootstrapHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BootstrapRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		if err := validation.Struct(body); err != nil {
			return err
		}

		var count int64
		if err := db.WithContext(c.UserContext()).Model(&models.User{}).
			Where("role = ?", models.RoleAdmin).
			Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar usuarios")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Ya existe un administrador")
		}

		hash, err := HashPin(body.Pin)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar el PIN")
		}

		user := models.User{
			Name:    body.Name,
			PinHash: hash,
			Role:    models.RoleAdmin,
			Active:  true,
		}
		if err := db.WithContext(c.UserContext()).Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el usuario")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":   user.ID,
			"name": user.Name,
			"role": user.Role,
		})
	}
}

func LoginHandler(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		if err := validation.Struct(body); err != nil {
			return err
		}

		var user models.User
		err := db.WithContext(c.UserContext()).
			Where("name = ? AND active = ?", body.Name, true).
			First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "Usuario o PIN incorrecto")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar el usuario")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(body.Pin)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario o PIN incorrecto")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":        user.ID,
				"name":      user.Name,
				"role":      user.Role,
				"branch_id": user.BranchID,
			},
		})
	}
}

func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		if actor.UserID == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token inválido")
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).Preload("Branch").
			First(&user, "id = ?", *actor.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Usuario no encontrado")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar el usuario")
		}

		response := fiber.Map{
			"user_id":   user.ID,
			"name":      user.Name,
			"role":      user.Role,
			"active":    user.Active,
			"branch_id": user.BranchID,
		}
		if user.Branch != nil {
			response["branch"] = fiber.Map{
				"id":      user.Branch.ID,
				"name":    user.Branch.Name,
				"address": user.Branch.Address,
				"phone":   user.Branch.Phone,
			}
		}

		return c.JSON(response)
	}
}
