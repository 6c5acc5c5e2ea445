package admin

import (
	"errors"
	"strings"

	"pinturas-backend/internal/audit"
	"pinturas-backend/internal/auth"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UpsertUserRequest struct {
	Name     string          `json:"name" validate:"required,min=2,max=80"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin cashier mixer"`
	BranchID *uuid.UUID      `json:"branch_id"`
	Active   *bool           `json:"active"`
	Pin      *string         `json:"pin" validate:"omitempty,min=4,max=10"` // si viene, se actualiza
}

type ResetPinRequest struct {
	UserName string `json:"user_name" validate:"required"`
	NewPin   string `json:"new_pin" validate:"required,min=4,max=10"`
}

type UserResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Role      models.UserRole `json:"role"`
	BranchID  *uuid.UUID      `json:"branch_id"`
	Active    bool            `json:"active"`
	CreatedAt string          `json:"created_at"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Role:      u.Role,
		BranchID:  u.BranchID,
		Active:    u.Active,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// USUARIOS
// POST /api/admin/users  (upsert por nombre)
// ----------------------------------------

func UpsertUserHandler(db *gorm.DB, auditor *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpsertUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Role = models.UserRole(strings.ToLower(strings.TrimSpace(string(body.Role))))
		if err := validation.Struct(body); err != nil {
			return err
		}
		if body.Role != models.RoleAdmin && body.BranchID == nil {
			return validation.Invalid("branch_id", "required")
		}

		active := true
		if body.Active != nil {
			active = *body.Active
		}

		var pinHash string
		if body.Pin != nil {
			hash, err := auth.HashPin(*body.Pin)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar el PIN")
			}
			pinHash = hash
		}

		ctx := c.UserContext()
		var (
			user    models.User
			created bool
			before  *UserResponse
		)
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if body.BranchID != nil {
				var n int64
				if err := tx.Model(&models.Branch{}).Where("id = ?", *body.BranchID).Count(&n).Error; err != nil {
					return err
				}
				if n == 0 {
					return validation.Invalid("branch_id", "exists")
				}
			}

			err := tx.Where("name = ?", body.Name).First(&user).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if pinHash == "" {
					return validation.Invalid("pin", "required")
				}
				user = models.User{
					Name:     body.Name,
					Role:     body.Role,
					BranchID: body.BranchID,
					Active:   active,
					PinHash:  pinHash,
				}
				created = true
				// Select("*") so Active=false is stored instead of the column default
				return tx.Select("*").Create(&user).Error
			case err != nil:
				return err
			}

			prev := toUserResponse(user)
			before = &prev
			updates := map[string]interface{}{
				"role":      body.Role,
				"branch_id": body.BranchID,
				"active":    active,
			}
			if pinHash != "" {
				updates["pin_hash"] = pinHash
			}
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
			return tx.First(&user, "id = ?", user.ID).Error
		})
		if err != nil {
			var verr *validation.Error
			if errors.As(err, &verr) {
				return verr
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar el usuario")
		}

		resp := toUserResponse(user)
		opts := audit.LogOptions{
			BranchID:    user.BranchID,
			EntityType:  "user",
			EntityID:    user.ID.String(),
			Action:      models.AuditActionUpdate,
			Description: "Usuario " + user.Name + " (" + string(user.Role) + ")",
			After:       resp,
		}
		if created {
			opts.Action = models.AuditActionCreate
		} else {
			opts.Before = before
		}
		auditor.Record(ctx, opts)

		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(fiber.Map{"user": resp})
	}
}

// ----------------------------------------
// POST /api/admin/users/reset-pin
// ----------------------------------------

func ResetPinHandler(db *gorm.DB, auditor *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ResetPinRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato inválido")
		}

		body.UserName = strings.TrimSpace(body.UserName)
		if err := validation.Struct(body); err != nil {
			return err
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).Where("name = ?", body.UserName).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Usuario no encontrado")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar el usuario")
		}

		hash, err := auth.HashPin(body.NewPin)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar el PIN")
		}
		if err := db.WithContext(c.UserContext()).Model(&user).Update("pin_hash", hash).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el PIN")
		}

		auditor.Record(c.UserContext(), audit.LogOptions{
			BranchID:    user.BranchID,
			EntityType:  "user",
			EntityID:    user.ID.String(),
			Action:      models.AuditActionUpdate,
			Description: "PIN restablecido para " + user.Name,
		})

		return c.JSON(fiber.Map{"user": toUserResponse(user)})
	}
}
