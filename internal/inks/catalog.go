package inks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pinturas-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnknownInkError lists every requested code missing from the catalog.
type UnknownInkError struct {
	Codes []string
}

func (e *UnknownInkError) Error() string {
	return "Tintas no encontradas: " + strings.Join(e.Codes, ", ")
}

var ErrNotFound = errors.New("tinta no encontrada")

// NormalizeCode trims and uppercases an ink code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// ResolveCodes looks every distinct code up in one query. Inactive inks
// still resolve; deactivation only hides them from the pickers.
func (c *Catalog) ResolveCodes(ctx context.Context, codes []string) (map[string]models.Ink, error) {
	distinct := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = NormalizeCode(code)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		distinct = append(distinct, code)
	}

	var found []models.Ink
	if len(distinct) > 0 {
		if err := c.db.WithContext(ctx).Where("code IN ?", distinct).Find(&found).Error; err != nil {
			return nil, fmt.Errorf("resolve ink codes: %w", err)
		}
	}

	byCode := make(map[string]models.Ink, len(found))
	for _, ink := range found {
		byCode[NormalizeCode(ink.Code)] = ink
	}

	var missing []string
	for _, code := range distinct {
		if _, ok := byCode[code]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return nil, &UnknownInkError{Codes: missing}
	}

	return byCode, nil
}

type UpsertMode string

const (
	UpsertByID   UpsertMode = "update_by_id"
	UpsertByCode UpsertMode = "update_by_code"
	UpsertInsert UpsertMode = "insert"
)

type UpsertInput struct {
	ID     *uuid.UUID
	Code   string
	Name   string
	Active bool
}

// Upsert updates by id when one is given, otherwise by code, otherwise
// inserts a new ink.
func (c *Catalog) Upsert(ctx context.Context, in UpsertInput) (*models.Ink, UpsertMode, error) {
	code := NormalizeCode(in.Code)
	name := strings.TrimSpace(in.Name)
	db := c.db.WithContext(ctx)

	if in.ID != nil {
		var ink models.Ink
		if err := db.First(&ink, "id = ?", *in.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", ErrNotFound
			}
			return nil, "", err
		}
		if err := db.Model(&ink).Updates(map[string]interface{}{
			"code":   code,
			"name":   name,
			"active": in.Active,
		}).Error; err != nil {
			return nil, "", err
		}
		return &ink, UpsertByID, nil
	}

	var existing models.Ink
	err := db.Where("code = ?", code).First(&existing).Error
	switch {
	case err == nil:
		if err := db.Model(&existing).Updates(map[string]interface{}{
			"name":   name,
			"active": in.Active,
		}).Error; err != nil {
			return nil, "", err
		}
		return &existing, UpsertByCode, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, "", err
	}

	ink := models.Ink{Code: code, Name: name, Active: in.Active}
	// gorm skips zero-value bools that carry a default tag
	if err := db.Select("*").Create(&ink).Error; err != nil {
		return nil, "", err
	}
	return &ink, UpsertInsert, nil
}
