package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pinturas-backend/internal/audit"
	"pinturas-backend/internal/dbtest"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newAdminApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	auditor := audit.NewService(db, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			var ve *validation.Error
			switch {
			case errors.As(err, &fe):
				code = fe.Code
			case errors.As(err, &ve):
				code = fiber.StatusBadRequest
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Post("/branches", CreateBranchHandler(db, auditor))
	app.Get("/branches/:id", GetBranchHandler(db))
	app.Put("/branches/:id", UpdateBranchHandler(db, auditor))
	app.Post("/users", UpsertUserHandler(db, auditor))
	app.Post("/users/reset-pin", ResetPinHandler(db, auditor))
	return app, db
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestBranchCreateGetUpdate(t *testing.T) {
	app, db := newAdminApp(t)

	status, out := call(t, app, http.MethodPost, "/branches", map[string]any{"name": "  Sucursal Centro ", "address": "Av. Juárez 10"})
	require.Equal(t, fiber.StatusCreated, status, out)
	id := out["id"].(string)
	assert.Equal(t, "Sucursal Centro", out["name"])

	status, out = call(t, app, http.MethodGet, "/branches/"+id, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Av. Juárez 10", out["address"])

	status, out = call(t, app, http.MethodPut, "/branches/"+id, map[string]any{"phone": " 555-0101 "})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "555-0101", out["phone"])
	assert.Equal(t, "Sucursal Centro", out["name"])

	status, _ = call(t, app, http.MethodPut, "/branches/"+id, map[string]any{"name": "  "})
	assert.Equal(t, fiber.StatusBadRequest, status)

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("entity_type = ?", "branch").Count(&logs).Error)
	assert.Equal(t, int64(2), logs)
}

func TestBranchCreateValidationAndDuplicates(t *testing.T) {
	app, _ := newAdminApp(t)

	status, _ := call(t, app, http.MethodPost, "/branches", map[string]any{"name": "   "})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, "/branches", map[string]any{"name": "Norte"})
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = call(t, app, http.MethodPost, "/branches", map[string]any{"name": "Norte"})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestGetBranchNotFoundAndBadID(t *testing.T) {
	app, _ := newAdminApp(t)

	status, _ := call(t, app, http.MethodGet, "/branches/3f1c8a52-7a7e-4c59-9a53-1b0f0e7d2a11", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, http.MethodGet, "/branches/abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestUpsertUserCreatesThenUpdatesByName(t *testing.T) {
	app, db := newAdminApp(t)
	branch := dbtest.SeedBranch(t, db, "Centro")

	status, out := call(t, app, http.MethodPost, "/users", map[string]any{
		"name": "Lupita", "role": "mixer", "branch_id": branch.ID, "pin": "1234",
	})
	require.Equal(t, fiber.StatusCreated, status, out)
	user := out["user"].(map[string]any)
	assert.Equal(t, "mixer", user["role"])
	assert.Equal(t, true, user["active"])

	status, out = call(t, app, http.MethodPost, "/users", map[string]any{
		"name": "Lupita", "role": "cashier", "branch_id": branch.ID, "active": false,
	})
	require.Equal(t, fiber.StatusOK, status, out)
	user = out["user"].(map[string]any)
	assert.Equal(t, "cashier", user["role"])
	assert.Equal(t, false, user["active"])

	var stored models.User
	require.NoError(t, db.First(&stored, "name = ?", "Lupita").Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PinHash), []byte("1234")), "pin kept when omitted")
}

func TestUpsertUserRules(t *testing.T) {
	app, db := newAdminApp(t)
	branch := dbtest.SeedBranch(t, db, "Centro")

	// nuevo sin PIN
	status, _ := call(t, app, http.MethodPost, "/users", map[string]any{"name": "Pedro", "role": "cashier", "branch_id": branch.ID})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// cajero sin sucursal
	status, _ = call(t, app, http.MethodPost, "/users", map[string]any{"name": "Pedro", "role": "cashier", "pin": "1234"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// sucursal inexistente
	status, _ = call(t, app, http.MethodPost, "/users", map[string]any{
		"name": "Pedro", "role": "cashier", "pin": "1234", "branch_id": "3f1c8a52-7a7e-4c59-9a53-1b0f0e7d2a11",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, "/users", map[string]any{"name": "Pedro", "role": "boss", "pin": "1234"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, "/users", map[string]any{"name": "Dueña", "role": "admin", "pin": "9876"})
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestResetPin(t *testing.T) {
	app, db := newAdminApp(t)
	dbtest.SeedUser(t, db, "Caja1", models.RoleCashier, nil)

	status, _ := call(t, app, http.MethodPost, "/users/reset-pin", map[string]any{"user_name": "Caja1", "new_pin": "4455"})
	require.Equal(t, fiber.StatusOK, status)

	var stored models.User
	require.NoError(t, db.First(&stored, "name = ?", "Caja1").Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PinHash), []byte("4455")))

	status, _ = call(t, app, http.MethodPost, "/users/reset-pin", map[string]any{"user_name": "Nadie", "new_pin": "4455"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPost, "/users/reset-pin", map[string]any{"user_name": "Caja1", "new_pin": "1"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}
