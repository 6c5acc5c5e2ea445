package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CutType string

const (
	CutTypeDay   CutType = "DAY"   // corte del día, uno por fecha
	CutTypeExtra CutType = "EXTRA" // cortes adicionales
)

// CutFolioConstraint scopes cut folios to (branch, cut_date).
const CutFolioConstraint = "ux_cuts_branch_date_folio"

// CutDayConstraint allows a single DAY cut per (branch, cut_date).
const CutDayConstraint = "ux_cuts_branch_day"

// Money columns are numeric(12,2).
const (
	MoneyPrecision = 12
	MoneyScale     = 2
)

// Cut: end-of-shift register reconciliation.
type Cut struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BranchID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cuts_branch_date_folio,priority:1;uniqueIndex:ux_cuts_branch_day,priority:1,where:cut_type = 'DAY';index" json:"branch_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	CutType  CutType   `gorm:"size:10;not null" json:"cut_type"`
	CutDate  string    `gorm:"size:10;not null;uniqueIndex:ux_cuts_branch_date_folio,priority:2;uniqueIndex:ux_cuts_branch_day,priority:2,where:cut_type = 'DAY'" json:"cut_date"` // YYYY-MM-DD
	FolioNum int64     `gorm:"not null;uniqueIndex:ux_cuts_branch_date_folio,priority:3" json:"folio_num"`

	Cash       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"cash"`
	Card       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"card"`
	Transfer   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"transfer"`
	TotalDay   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_day"`
	SumMethods decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"sum_methods"`
	Diff       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"diff"`

	DiffReason     *string   `gorm:"type:text" json:"diff_reason"`
	Note           *string   `gorm:"type:text" json:"note"`
	TicketPath     string    `gorm:"size:255;not null" json:"ticket_path"`
	ExtraReference *string   `gorm:"size:255" json:"extra_reference"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

func (c *Cut) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
