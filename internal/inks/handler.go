package inks

import (
	"errors"
	"fmt"

	"pinturas-backend/internal/audit"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UpsertInkRequest.Code follows the same rule as mix item codes: checked
// after trim and uppercase.
type UpsertInkRequest struct {
	ID     *uuid.UUID `json:"id"`
	Code   string     `json:"code" validate:"required,min=2,max=40"`
	Name   string     `json:"name" validate:"required,min=1,max=120"`
	Active *bool      `json:"active"`
}

type InkResponse struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// -------------------------------------------------
// POST /api/admin/inks
// -------------------------------------------------
func UpsertInkHandler(catalog *Catalog, auditor *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpsertInkRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato inválido")
		}

		body.Code = NormalizeCode(body.Code)
		if err := validation.Struct(body); err != nil {
			return err
		}

		active := true
		if body.Active != nil {
			active = *body.Active
		}

		ink, mode, err := catalog.Upsert(c.UserContext(), UpsertInput{
			ID:     body.ID,
			Code:   body.Code,
			Name:   body.Name,
			Active: active,
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar la tinta")
		}

		action := models.AuditActionUpdate
		if mode == UpsertInsert {
			action = models.AuditActionCreate
		}
		resp := InkResponse{ID: ink.ID, Code: ink.Code, Name: ink.Name, Active: ink.Active}
		auditor.Record(c.UserContext(), audit.LogOptions{
			EntityType:  "ink",
			EntityID:    ink.ID.String(),
			Action:      action,
			Description: fmt.Sprintf("Tinta %s (%s)", ink.Code, mode),
			After:       resp,
		})

		return c.JSON(fiber.Map{
			"ink":  resp,
			"mode": mode,
		})
	}
}
