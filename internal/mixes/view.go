package mixes

import (
	"time"

	"pinturas-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MixItemView struct {
	InkID   uuid.UUID       `json:"ink_id"`
	InkCode string          `json:"ink_code"`
	InkName string          `json:"ink_name"`
	Amount  decimal.Decimal `json:"amount"`
}

type MixSummary struct {
	ID        uuid.UUID `json:"id"`
	BranchID  uuid.UUID `json:"branch_id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	MixCode   string    `json:"mix_code"`
	FolioNum  int64     `json:"folio_num"`
	Note      *string   `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

type MixDetail struct {
	MixSummary
	BranchName string        `json:"branch_name"`
	Items      []MixItemView `json:"items"`
	ItemCount  int           `json:"item_count"`
	// Incomplete flags a header stored without items.
	Incomplete bool `json:"incomplete"`
}

func toSummary(m *models.Mix) MixSummary {
	s := MixSummary{
		ID:        m.ID,
		BranchID:  m.BranchID,
		UserID:    m.UserID,
		MixCode:   m.MixCode,
		FolioNum:  m.FolioNum,
		Note:      m.Note,
		CreatedAt: m.CreatedAt.UTC(),
	}
	if m.User != nil {
		s.UserName = m.User.Name
	}
	return s
}

func toDetail(m *models.Mix) *MixDetail {
	d := &MixDetail{
		MixSummary: toSummary(m),
		Items:      make([]MixItemView, 0, len(m.Items)),
	}
	if m.Branch != nil {
		d.BranchName = m.Branch.Name
	}
	for _, it := range m.Items {
		v := MixItemView{InkID: it.InkID, Amount: it.Amount}
		if it.Ink != nil {
			v.InkCode = it.Ink.Code
			v.InkName = it.Ink.Name
		}
		d.Items = append(d.Items, v)
	}
	d.ItemCount = len(d.Items)
	d.Incomplete = d.ItemCount == 0
	return d
}
