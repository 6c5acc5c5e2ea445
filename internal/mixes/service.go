package mixes

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"pinturas-backend/internal/audit"
	"pinturas-backend/internal/folio"
	"pinturas-backend/internal/inks"
	"pinturas-backend/internal/logger"
	"pinturas-backend/internal/models"
	"pinturas-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 200
	maxListLimit     = 1000
)

// InkResolver maps ink codes to catalog entries, failing with
// *inks.UnknownInkError when any code is missing.
type InkResolver interface {
	ResolveCodes(ctx context.Context, codes []string) (map[string]models.Ink, error)
}

type ItemInput struct {
	InkCode string          `json:"ink_code" validate:"required,min=2,max=40"`
	Amount  decimal.Decimal `json:"amount" validate:"gt=0"`
}

type CreateMixInput struct {
	BranchID uuid.UUID   `json:"branch_id" validate:"required"`
	UserID   uuid.UUID   `json:"user_id" validate:"required"`
	Note     *string     `json:"note" validate:"omitempty,max=1000"`
	Items    []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type CreateMixResult struct {
	MixID    uuid.UUID `json:"mix_id"`
	MixCode  string    `json:"mix_code"`
	FolioNum int64     `json:"folio_num"`
	Attempts int       `json:"-"`
}

type Service struct {
	store     Store
	inks      InkResolver
	allocator *folio.Allocator
	auditor   *audit.Service
	loc       *time.Location
	log       *logrus.Logger
	now       func() time.Time
}

func NewService(store Store, resolver InkResolver, allocator *folio.Allocator, auditor *audit.Service, loc *time.Location, log *logrus.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Get()
	}
	if allocator == nil {
		allocator = folio.NewAllocator("mixes", log)
	}
	return &Service{
		store:     store,
		inks:      resolver,
		allocator: allocator,
		auditor:   auditor,
		loc:       loc,
		log:       log,
		now:       time.Now,
	}
}

// CreateMix validates the request, resolves every ink code and stores the
// mix under the next free folio of its branch. Each folio attempt writes the
// header and its items in one transaction.
func (s *Service) CreateMix(ctx context.Context, in CreateMixInput) (*CreateMixResult, error) {
	for i := range in.Items {
		in.Items[i].InkCode = inks.NormalizeCode(in.Items[i].InkCode)
	}
	if in.Note != nil {
		note := strings.TrimSpace(*in.Note)
		if note == "" {
			in.Note = nil
		} else {
			in.Note = &note
		}
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	for i, it := range in.Items {
		if tag := validation.DecimalFits(it.Amount, models.AmountPrecision, models.AmountScale); tag != "" {
			return nil, validation.Invalid(fmt.Sprintf("items[%d].amount", i), tag)
		}
	}

	codes := make([]string, len(in.Items))
	for i, it := range in.Items {
		codes[i] = it.InkCode
	}
	byCode, err := s.inks.ResolveCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	mixCode := newMixCode(now.In(s.loc))

	var created models.Mix
	attempts, err := s.allocator.Run(ctx, func(ctx context.Context, n int) error {
		return s.store.InTx(ctx, func(tx Store) error {
			current, err := tx.MaxFolio(ctx, in.BranchID)
			if err != nil {
				return err
			}

			mix := models.Mix{
				ID:        uuid.New(),
				BranchID:  in.BranchID,
				UserID:    in.UserID,
				MixCode:   mixCode,
				FolioNum:  current + 1,
				Note:      in.Note,
				CreatedAt: now,
			}
			if err := tx.InsertMix(ctx, &mix); err != nil {
				return err
			}

			items := make([]models.MixItem, len(in.Items))
			for i, it := range in.Items {
				items[i] = models.MixItem{
					MixID:  mix.ID,
					InkID:  byCode[it.InkCode].ID,
					Amount: it.Amount,
				}
			}
			if err := tx.InsertItems(ctx, items); err != nil {
				return err
			}

			created = mix
			return nil
		})
	})
	if err != nil {
		logger.LogError(s.log, "mixes", "CreateMix", "allocate folio", logrus.Fields{
			"branch_id": in.BranchID.String(),
			"attempts":  attempts,
		}, err)
		return nil, err
	}

	s.auditor.Record(ctx, audit.LogOptions{
		BranchID:    &created.BranchID,
		UserID:      &created.UserID,
		EntityType:  "mix",
		EntityID:    created.ID.String(),
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Mezcla folio %d (%s), %d tintas", created.FolioNum, created.MixCode, len(in.Items)),
		After:       in,
	})

	return &CreateMixResult{
		MixID:    created.ID,
		MixCode:  created.MixCode,
		FolioNum: created.FolioNum,
		Attempts: attempts,
	}, nil
}

// newMixCode builds the display code MIX-YYYYMMDD-NNNNNN. It is not unique;
// the folio is the identifier.
func newMixCode(t time.Time) string {
	return fmt.Sprintf("MIX-%s-%06d", t.Format("20060102"), 100000+rand.IntN(900000))
}

func (s *Service) GetMix(ctx context.Context, id uuid.UUID) (*MixDetail, error) {
	if id == uuid.Nil {
		return nil, validation.Invalid("id", "required")
	}
	mix, err := s.store.GetMix(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDetail(mix), nil
}

func (s *Service) GetMixByFolio(ctx context.Context, branchID uuid.UUID, folioNum int64) (*MixDetail, error) {
	if branchID == uuid.Nil {
		return nil, validation.Invalid("branch_id", "required")
	}
	if folioNum <= 0 {
		return nil, validation.Invalid("folio", "gt")
	}
	mix, err := s.store.GetMixByFolio(ctx, branchID, folioNum)
	if err != nil {
		return nil, err
	}
	return toDetail(mix), nil
}

type ListMixesInput struct {
	BranchID uuid.UUID
	From     string // YYYY-MM-DD, branch timezone
	To       string
	Limit    int
}

func (s *Service) ListMixes(ctx context.Context, in ListMixesInput) ([]MixSummary, error) {
	if in.BranchID == uuid.Nil {
		return nil, validation.Invalid("branch_id", "required")
	}

	q := ListQuery{BranchID: in.BranchID, Limit: clampLimit(in.Limit, defaultListLimit, maxListLimit)}

	from := strings.TrimSpace(in.From)
	to := strings.TrimSpace(in.To)
	if from != "" && to != "" {
		start, err := parseDay(from, s.loc)
		if err != nil {
			return nil, validation.Invalid("from", "datetime")
		}
		end, err := parseDay(to, s.loc)
		if err != nil {
			return nil, validation.Invalid("to", "datetime")
		}
		end = end.AddDate(0, 0, 1)
		q.From = &start
		q.To = &end
	}

	mixes, err := s.store.ListMixes(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]MixSummary, len(mixes))
	for i := range mixes {
		out[i] = toSummary(&mixes[i])
	}
	return out, nil
}

// clampLimit maps 0 to def and everything else into [1, upper].
func clampLimit(limit, def, upper int) int {
	switch {
	case limit == 0:
		return def
	case limit < 1:
		return 1
	case limit > upper:
		return upper
	}
	return limit
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, loc)
}
