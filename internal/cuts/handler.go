package cuts

import (
	"strconv"
	"strings"

	"pinturas-backend/internal/auth"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateCutRequest struct {
	BranchID *uuid.UUID     `json:"branch_id"` // solo admin
	CutType  models.CutType `json:"cut_type"`
	CutDate  string         `json:"cut_date"`

	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Transfer decimal.Decimal `json:"transfer"`
	TotalDay decimal.Decimal `json:"total_day"`

	DiffReason     *string `json:"diff_reason"`
	Note           *string `json:"note"`
	TicketPath     string  `json:"ticket_path"`
	ExtraReference *string `json:"extra_reference"`
}

// -------------------------------------------------
// POST /api/cuts
// -------------------------------------------------
func CreateCutHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCutRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato inválido")
		}

		branchID, err := auth.ResolveBranchID(c, body.BranchID)
		if err != nil {
			return err
		}
		actor := auth.ActorFrom(c)
		if actor.UserID == nil {
			return fiber.NewError(fiber.StatusForbidden, "No se pudo obtener el usuario")
		}

		res, err := svc.CreateCut(c.UserContext(), CreateCutInput{
			BranchID:       branchID,
			UserID:         *actor.UserID,
			CutType:        body.CutType,
			CutDate:        body.CutDate,
			Cash:           body.Cash,
			Card:           body.Card,
			Transfer:       body.Transfer,
			TotalDay:       body.TotalDay,
			DiffReason:     body.DiffReason,
			Note:           body.Note,
			TicketPath:     body.TicketPath,
			ExtraReference: body.ExtraReference,
		})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// -------------------------------------------------
// GET /api/cuts?branch_id=&limit=
// -------------------------------------------------
func ListCutsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requested, err := auth.ParseUUIDParam(c.Query("branch_id"), "branch_id")
		if err != nil {
			return err
		}
		branchID, err := auth.ResolveBranchID(c, requested)
		if err != nil {
			return err
		}

		limit := 0
		if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
			if limit, err = strconv.Atoi(raw); err != nil {
				return validation.Invalid("limit", "numeric")
			}
		}

		rows, err := svc.ListCuts(c.UserContext(), branchID, limit)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"rows": rows})
	}
}
