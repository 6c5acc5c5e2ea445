package mixes

import (
	"strconv"
	"strings"

	"pinturas-backend/internal/auth"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateMixRequest struct {
	BranchID *uuid.UUID  `json:"branch_id"` // solo admin
	Note     *string     `json:"note"`
	Items    []ItemInput `json:"items"`
}

// -------------------------------------------------
// POST /api/mixes
// -------------------------------------------------
func CreateMixHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMixRequest
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

		res, err := svc.CreateMix(c.UserContext(), CreateMixInput{
			BranchID: branchID,
			UserID:   *actor.UserID,
			Note:     body.Note,
			Items:    body.Items,
		})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// -------------------------------------------------
// GET /api/mixes?branch_id=&from=&to=&limit=
// -------------------------------------------------
func ListMixesHandler(svc *Service) fiber.Handler {
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

		list, err := svc.ListMixes(c.UserContext(), ListMixesInput{
			BranchID: branchID,
			From:     c.Query("from"),
			To:       c.Query("to"),
			Limit:    limit,
		})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"mixes": list})
	}
}

// -------------------------------------------------
// GET /api/mixes/by-folio?branch_id=&folio=
// -------------------------------------------------
func GetMixByFolioHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requested, err := auth.ParseUUIDParam(c.Query("branch_id"), "branch_id")
		if err != nil {
			return err
		}
		branchID, err := auth.ResolveBranchID(c, requested)
		if err != nil {
			return err
		}

		folioNum, err := strconv.ParseInt(strings.TrimSpace(c.Query("folio")), 10, 64)
		if err != nil {
			return validation.Invalid("folio", "numeric")
		}

		mix, err := svc.GetMixByFolio(c.UserContext(), branchID, folioNum)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"mix": mix})
	}
}

// -------------------------------------------------
// GET /api/mixes/:id
// -------------------------------------------------
func GetMixHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return validation.Invalid("id", "uuid")
		}

		mix, err := svc.GetMix(c.UserContext(), id)
		if err != nil {
			return err
		}

		// otras sucursales no existen para quien no es admin
		actor := auth.ActorFrom(c)
		if actor.Role != models.RoleAdmin && (actor.BranchID == nil || *actor.BranchID != mix.BranchID) {
			return ErrNotFound
		}

		return c.JSON(fiber.Map{"mix": mix})
	}
}

// -------------------------------------------------
// GET /api/admin/mixes/stats?branch_id=&preset=&group=&from=&to=
// -------------------------------------------------
func MixStatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ParseUUIDParam(c.Query("branch_id"), "branch_id")
		if err != nil {
			return err
		}

		stats, err := svc.MixStats(c.UserContext(), StatsInput{
			BranchID: branchID,
			Preset:   c.Query("preset", PresetToday),
			Group:    c.Query("group", GroupDay),
			From:     c.Query("from"),
			To:       c.Query("to"),
		})
		if err != nil {
			return err
		}
		return c.JSON(stats)
	}
}

// -------------------------------------------------
// GET /api/admin/mixes/summary?branch_id=&from=&to=&group=
// -------------------------------------------------
func MixSummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ParseUUIDParam(c.Query("branch_id"), "branch_id")
		if err != nil {
			return err
		}

		summary, err := svc.MixSummary(c.UserContext(), SummaryInput{
			BranchID: branchID,
			From:     c.Query("from"),
			To:       c.Query("to"),
			Group:    c.Query("group", GroupDay),
		})
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}
