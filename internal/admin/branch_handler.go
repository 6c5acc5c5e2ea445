package admin

import (
	"errors"
	"strings"

	"pinturas-backend/internal/audit"
	"pinturas-backend/internal/database"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BranchResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt string    `json:"created_at"`
}

type CreateBranchRequest struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Address string  `json:"address" validate:"max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"` // opcional
}

type UpdateBranchRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

func toBranchResponse(b models.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		Phone:     b.Phone,
		CreatedAt: b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// SUCURSALES
// ----------------------------------------

func CreateBranchHandler(db *gorm.DB, auditor *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Address = strings.TrimSpace(body.Address)
		if err := validation.Struct(body); err != nil {
			return err
		}

		branch := models.Branch{
			Name:    body.Name,
			Address: body.Address,
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := db.WithContext(c.UserContext()).Create(&branch).Error; err != nil {
			if database.IsUniqueViolation(err, models.BranchNameConstraint) {
				return fiber.NewError(fiber.StatusConflict, "Ya existe una sucursal con ese nombre")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la sucursal")
		}

		resp := toBranchResponse(branch)
		auditor.Record(c.UserContext(), audit.LogOptions{
			BranchID:    &branch.ID,
			EntityType:  "branch",
			EntityID:    branch.ID.String(),
			Action:      models.AuditActionCreate,
			Description: "Sucursal " + branch.Name,
			After:       resp,
		})

		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

func findBranch(c *fiber.Ctx, db *gorm.DB) (*models.Branch, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, validation.Invalid("id", "uuid")
	}

	var branch models.Branch
	if err := db.WithContext(c.UserContext()).First(&branch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar la sucursal")
	}
	return &branch, nil
}

func GetBranchHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := findBranch(c, db)
		if err != nil {
			return err
		}
		return c.JSON(toBranchResponse(*branch))
	}
}

func UpdateBranchHandler(db *gorm.DB, auditor *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := findBranch(c, db)
		if err != nil {
			return err
		}
		before := toBranchResponse(*branch)

		var body UpdateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato inválido")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return validation.Invalid("name", "required")
			}
			branch.Name = name
		}
		if body.Address != nil {
			branch.Address = strings.TrimSpace(*body.Address)
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := db.WithContext(c.UserContext()).Save(branch).Error; err != nil {
			if database.IsUniqueViolation(err, models.BranchNameConstraint) {
				return fiber.NewError(fiber.StatusConflict, "Ya existe una sucursal con ese nombre")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar la sucursal")
		}

		resp := toBranchResponse(*branch)
		auditor.Record(c.UserContext(), audit.LogOptions{
			BranchID:    &branch.ID,
			EntityType:  "branch",
			EntityID:    branch.ID.String(),
			Action:      models.AuditActionUpdate,
			Description: "Sucursal " + branch.Name,
			Before:      before,
			After:       resp,
		})

		return c.JSON(resp)
	}
}
