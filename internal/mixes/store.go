package mixes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pinturas-backend/internal/database"
	"pinturas-backend/internal/folio"
	"pinturas-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("mezcla no encontrada")

// ListQuery selects headers of one branch. From/To form a half-open UTC
// range and are applied only together.
type ListQuery struct {
	BranchID uuid.UUID
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Store is the persistence the mix service needs. InTx hands fn a Store
// bound to a single transaction; returning an error from fn rolls it back.
type Store interface {
	InTx(ctx context.Context, fn func(tx Store) error) error

	MaxFolio(ctx context.Context, branchID uuid.UUID) (int64, error)
	// InsertMix returns an error wrapping folio.ErrCollision when the
	// (branch, folio) pair is already taken.
	InsertMix(ctx context.Context, mix *models.Mix) error
	InsertItems(ctx context.Context, items []models.MixItem) error

	GetMix(ctx context.Context, id uuid.UUID) (*models.Mix, error)
	GetMixByFolio(ctx context.Context, branchID uuid.UUID, folioNum int64) (*models.Mix, error)
	ListMixes(ctx context.Context, q ListQuery) ([]models.Mix, error)
	// CreatedTimes returns created_at of every mix in [from, to]; a nil
	// branch means all branches.
	CreatedTimes(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]time.Time, error)
	// DeleteOrphans removes headers without items created before olderThan.
	// A header holding its branch's highest folio is kept so MaxFolio never
	// moves back.
	DeleteOrphans(ctx context.Context, olderThan time.Time) (int64, error)
	// Stamps returns branch and created_at of every mix in [from, to); a nil
	// branch means all branches.
	Stamps(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]MixStamp, error)
}

// MixStamp is the slice of a mix header the summary needs.
type MixStamp struct {
	BranchID   uuid.UUID
	BranchName string
	CreatedAt  time.Time
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) MaxFolio(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var current int64
	err := s.db.WithContext(ctx).
		Model(&models.Mix{}).
		Where("branch_id = ?", branchID).
		Select("COALESCE(MAX(folio_num), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, fmt.Errorf("read max folio: %w", err)
	}
	return current, nil
}

func (s *gormStore) InsertMix(ctx context.Context, mix *models.Mix) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(mix).Error
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err, models.FolioConstraint) {
		return fmt.Errorf("folio %d: %w", mix.FolioNum, folio.ErrCollision)
	}
	return fmt.Errorf("insert mix: %w", err)
}

func (s *gormStore) InsertItems(ctx context.Context, items []models.MixItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error; err != nil {
		return fmt.Errorf("insert mix items: %w", err)
	}
	return nil
}

func (s *gormStore) withDetail(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Branch").
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Ink")
}

func (s *gormStore) GetMix(ctx context.Context, id uuid.UUID) (*models.Mix, error) {
	var mix models.Mix
	if err := s.withDetail(ctx).First(&mix, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get mix: %w", err)
	}
	return &mix, nil
}

func (s *gormStore) GetMixByFolio(ctx context.Context, branchID uuid.UUID, folioNum int64) (*models.Mix, error) {
	var mix models.Mix
	err := s.withDetail(ctx).
		Where("branch_id = ? AND folio_num = ?", branchID, folioNum).
		First(&mix).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get mix by folio: %w", err)
	}
	return &mix, nil
}

func (s *gormStore) ListMixes(ctx context.Context, q ListQuery) ([]models.Mix, error) {
	query := s.db.WithContext(ctx).
		Preload("User").
		Where("branch_id = ?", q.BranchID)
	if q.From != nil && q.To != nil {
		query = query.Where("created_at >= ? AND created_at < ?", q.From.UTC(), q.To.UTC())
	}

	var mixes []models.Mix
	if err := query.Order("created_at DESC").Order("folio_num DESC").Limit(q.Limit).Find(&mixes).Error; err != nil {
		return nil, fmt.Errorf("list mixes: %w", err)
	}
	return mixes, nil
}

func (s *gormStore) CreatedTimes(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]time.Time, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Mix{}).
		Where("created_at >= ? AND created_at <= ?", from.UTC(), to.UTC())
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var times []time.Time
	if err := query.Pluck("created_at", &times).Error; err != nil {
		return nil, fmt.Errorf("mix timestamps: %w", err)
	}
	return times, nil
}

func (s *gormStore) DeleteOrphans(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", olderThan.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM mix_items WHERE mix_items.mix_id = mixes.id)").
		Where("folio_num < (SELECT MAX(m2.folio_num) FROM mixes AS m2 WHERE m2.branch_id = mixes.branch_id)").
		Delete(&models.Mix{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete orphan mixes: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) Stamps(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]MixStamp, error) {
	query := s.db.WithContext(ctx).
		Table("mixes").
		Select("mixes.branch_id, branches.name AS branch_name, mixes.created_at").
		Joins("LEFT JOIN branches ON branches.id = mixes.branch_id").
		Where("mixes.created_at >= ? AND mixes.created_at < ?", from.UTC(), to.UTC())
	if branchID != nil {
		query = query.Where("mixes.branch_id = ?", *branchID)
	}

	var stamps []MixStamp
	if err := query.Order("mixes.created_at ASC").Scan(&stamps).Error; err != nil {
		return nil, fmt.Errorf("mix stamps: %w", err)
	}
	return stamps, nil
}
