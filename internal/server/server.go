// Package server wires the HTTP routes of the back office.
package server

import (
	"errors"
	"strings"

	"pinturas-backend/internal/admin"
	"pinturas-backend/internal/audit"
	"pinturas-backend/internal/auth"
	"pinturas-backend/internal/config"
	"pinturas-backend/internal/cuts"
	"pinturas-backend/internal/folio"
	"pinturas-backend/internal/inks"
	"pinturas-backend/internal/logger"
	"pinturas-backend/internal/mixes"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// New builds the fiber app with every route registered.
func New(cfg *config.Config, db *gorm.DB, log *logrus.Logger) *fiber.App {
	if log == nil {
		log = logger.Get()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(log),
	})

	app.Use(recover.New())

	// CORS_ALLOWED_ORIGINS viene separado por comas
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + auth.AdminKeyHeader,
		AllowMethods: "GET,POST,PUT,OPTIONS",
	}))

	auditor := audit.NewService(db, log)
	catalog := inks.NewCatalog(db)
	mixService := mixes.NewService(mixes.NewStore(db), catalog, folio.NewAllocator("mixes", log), auditor, cfg.Location(), log)
	cutService := cuts.NewService(db, folio.NewAllocator("cuts", log), auditor, log)

	api := app.Group("/api")

	api.Get("/health", HealthHandler(db))

	// Public auth
	api.Post("/auth/bootstrap", auth.BootstrapHandler(db))
	api.Post("/auth/login", auth.LoginHandler(cfg, db))

	// x-admin-key
	adminRoutes := api.Group("/admin", auth.AdminKeyMiddleware(cfg))
	adminRoutes.Post("/inks", inks.UpsertInkHandler(catalog, auditor))
	adminRoutes.Post("/users", admin.UpsertUserHandler(db, auditor))
	adminRoutes.Post("/users/reset-pin", admin.ResetPinHandler(db, auditor))
	adminRoutes.Post("/branches", admin.CreateBranchHandler(db, auditor))
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler(db))
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler(db, auditor))
	adminRoutes.Get("/mixes/stats", mixes.MixStatsHandler(mixService))
	adminRoutes.Get("/mixes/summary", mixes.MixSummaryHandler(mixService))

	// JWT
	protected := api.Group("", auth.JWTMiddleware(cfg))
	protected.Get("/auth/me", auth.MeHandler(db))

	// Mezclas
	protected.Post("/mixes", auth.RequireRole(models.RoleMixer, models.RoleAdmin), mixes.CreateMixHandler(mixService))
	protected.Get("/mixes", mixes.ListMixesHandler(mixService))
	protected.Get("/mixes/by-folio", mixes.GetMixByFolioHandler(mixService))
	protected.Get("/mixes/:id", mixes.GetMixHandler(mixService))

	// Cortes de caja
	protected.Post("/cuts", auth.RequireRole(models.RoleCashier, models.RoleAdmin), cuts.CreateCutHandler(cutService))
	protected.Get("/cuts", auth.RequireRole(models.RoleCashier, models.RoleAdmin), cuts.ListCutsHandler(cutService))

	return app
}

// ErrorHandler maps domain errors to status codes and the {"error": ...}
// envelope.
func ErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			fe      *fiber.Error
			verr    *validation.Error
			unknown *inks.UnknownInkError
		)

		switch {
		case errors.As(err, &fe):
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  verr.Error(),
				"fields": verr.Fields,
			})
		case errors.As(err, &unknown):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":         unknown.Error(),
				"missing_codes": unknown.Codes,
			})
		case errors.Is(err, mixes.ErrNotFound), errors.Is(err, inks.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, folio.ErrExhausted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}

		logger.LogError(log, "server", "ErrorHandler", c.Method()+" "+c.Path(), nil, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error inesperado del servidor",
		})
	}
}

func HealthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
