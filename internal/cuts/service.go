package cuts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pinturas-backend/internal/audit"
	"pinturas-backend/internal/database"
	"pinturas-backend/internal/folio"
	"pinturas-backend/internal/logger"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 200
	maxListLimit     = 500

	DefaultExtraReference = "Corte extra"
)

type CreateCutInput struct {
	BranchID uuid.UUID      `json:"branch_id" validate:"required"`
	UserID   uuid.UUID      `json:"user_id" validate:"required"`
	CutType  models.CutType `json:"cut_type" validate:"required,oneof=DAY EXTRA"`
	CutDate  string         `json:"cut_date" validate:"required,datetime=2006-01-02"`

	Cash     decimal.Decimal `json:"cash" validate:"gte=0"`
	Card     decimal.Decimal `json:"card" validate:"gte=0"`
	Transfer decimal.Decimal `json:"transfer" validate:"gte=0"`
	TotalDay decimal.Decimal `json:"total_day" validate:"gte=0"`

	DiffReason     *string `json:"diff_reason" validate:"omitempty,max=1000"`
	Note           *string `json:"note" validate:"omitempty,max=1000"`
	TicketPath     string  `json:"ticket_path" validate:"required,max=255"`
	ExtraReference *string `json:"extra_reference" validate:"omitempty,max=255"`
}

type CreateCutResult struct {
	Cut          models.Cut     `json:"cut"`
	FinalCutType models.CutType `json:"final_cut_type"`
}

type Service struct {
	db        *gorm.DB
	allocator *folio.Allocator
	auditor   *audit.Service
	log       *logrus.Logger
	now       func() time.Time
	hasDayCut func(tx *gorm.DB, branchID uuid.UUID, cutDate string) (bool, error)
}

func NewService(db *gorm.DB, allocator *folio.Allocator, auditor *audit.Service, log *logrus.Logger) *Service {
	if log == nil {
		log = logger.Get()
	}
	if allocator == nil {
		allocator = folio.NewAllocator("cuts", log)
	}
	return &Service{db: db, allocator: allocator, auditor: auditor, log: log, now: time.Now, hasDayCut: dayCutExists}
}

func dayCutExists(tx *gorm.DB, branchID uuid.UUID, cutDate string) (bool, error) {
	var days int64
	if err := tx.Model(&models.Cut{}).
		Where("branch_id = ? AND cut_date = ? AND cut_type = ?", branchID, cutDate, models.CutTypeDay).
		Count(&days).Error; err != nil {
		return false, fmt.Errorf("check day cut: %w", err)
	}
	return days > 0, nil
}

func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// checkMoney reports every amount that does not fit a money column.
func checkMoney(amounts map[string]decimal.Decimal) error {
	var verr *validation.Error
	for field, d := range amounts {
		if tag := validation.DecimalFits(d, models.MoneyPrecision, models.MoneyScale); tag != "" {
			if verr == nil {
				verr = &validation.Error{Fields: map[string]string{}}
			}
			verr.Fields[field] = tag
		}
	}
	if verr != nil {
		return verr
	}
	return nil
}

// CreateCut stores a register cut under the next folio of its branch and
// day. A second DAY cut for the same day is stored as EXTRA.
func (s *Service) CreateCut(ctx context.Context, in CreateCutInput) (*CreateCutResult, error) {
	in.CutType = models.CutType(strings.ToUpper(strings.TrimSpace(string(in.CutType))))
	in.CutDate = strings.TrimSpace(in.CutDate)
	in.TicketPath = strings.TrimSpace(in.TicketPath)
	in.DiffReason = trimOrNil(in.DiffReason)
	in.Note = trimOrNil(in.Note)
	in.ExtraReference = trimOrNil(in.ExtraReference)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	sum := in.Cash.Add(in.Card).Add(in.Transfer)
	diff := sum.Sub(in.TotalDay)
	if err := checkMoney(map[string]decimal.Decimal{
		"cash":        in.Cash,
		"card":        in.Card,
		"transfer":    in.Transfer,
		"total_day":   in.TotalDay,
		"sum_methods": sum,
	}); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	var created models.Cut
	attempts, err := s.allocator.Run(ctx, func(ctx context.Context, n int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			finalType := in.CutType
			if finalType == models.CutTypeDay {
				exists, err := s.hasDayCut(tx, in.BranchID, in.CutDate)
				if err != nil {
					return err
				}
				if exists {
					finalType = models.CutTypeExtra
				}
			}

			var current int64
			if err := tx.Model(&models.Cut{}).
				Where("branch_id = ? AND cut_date = ?", in.BranchID, in.CutDate).
				Select("COALESCE(MAX(folio_num), 0)").
				Scan(&current).Error; err != nil {
				return fmt.Errorf("read max cut folio: %w", err)
			}

			cut := models.Cut{
				ID:         uuid.New(),
				BranchID:   in.BranchID,
				UserID:     in.UserID,
				CutType:    finalType,
				CutDate:    in.CutDate,
				FolioNum:   current + 1,
				Cash:       in.Cash,
				Card:       in.Card,
				Transfer:   in.Transfer,
				TotalDay:   in.TotalDay,
				SumMethods: sum,
				Diff:       diff,
				DiffReason: in.DiffReason,
				Note:       in.Note,
				TicketPath: in.TicketPath,
				CreatedAt:  now,
			}
			if finalType == models.CutTypeExtra {
				ref := DefaultExtraReference
				if in.ExtraReference != nil {
					ref = *in.ExtraReference
				}
				cut.ExtraReference = &ref
			}

			if err := tx.Create(&cut).Error; err != nil {
				// a concurrent DAY cut makes the next attempt store this one as EXTRA
				if database.IsUniqueViolation(err, models.CutFolioConstraint) ||
					database.IsUniqueViolation(err, models.CutDayConstraint) {
					return fmt.Errorf("cut folio %d: %w", cut.FolioNum, folio.ErrCollision)
				}
				return fmt.Errorf("insert cut: %w", err)
			}

			created = cut
			return nil
		})
	})
	if err != nil {
		logger.LogError(s.log, "cuts", "CreateCut", "allocate folio", logrus.Fields{
			"branch_id": in.BranchID.String(),
			"cut_date":  in.CutDate,
			"attempts":  attempts,
		}, err)
		return nil, err
	}

	s.auditor.Record(ctx, audit.LogOptions{
		BranchID:    &created.BranchID,
		UserID:      &created.UserID,
		EntityType:  "cut",
		EntityID:    created.ID.String(),
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Corte %s %s folio %d, diferencia %s", created.CutType, created.CutDate, created.FolioNum, created.Diff.StringFixed(2)),
		After:       created,
	})

	return &CreateCutResult{Cut: created, FinalCutType: created.CutType}, nil
}

// ListCuts returns the newest cuts of a branch. limit 0 means the default;
// anything outside 1..500 is rejected.
func (s *Service) ListCuts(ctx context.Context, branchID uuid.UUID, limit int) ([]models.Cut, error) {
	if branchID == uuid.Nil {
		return nil, validation.Invalid("branch_id", "required")
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit < 1 || limit > maxListLimit {
		return nil, validation.Invalid("limit", "max")
	}

	var cuts []models.Cut
	if err := s.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("created_at DESC").
		Order("folio_num DESC").
		Limit(limit).
		Find(&cuts).Error; err != nil {
		return nil, fmt.Errorf("list cuts: %w", err)
	}
	return cuts, nil
}
