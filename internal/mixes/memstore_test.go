package mixes

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pinturas-backend/internal/folio"
	"pinturas-backend/internal/inks"
	"pinturas-backend/internal/models"

	"github.com/google/uuid"
)

// memState is an in-memory Store with a (branch, folio) unique check.
// Rows of open transactions are visible to MaxFolio and to the unique
// check, standing in for Postgres making a second inserter wait on the
// first one's commit.
type memState struct {
	mu     sync.Mutex
	mixes  []*memMix
	items  []memItem
	inks   map[uuid.UUID]models.Ink
	nextTx int

	insertCalls int
	onMaxRead   func(branchID uuid.UUID)
	onInsert    func(mix *models.Mix) error
	itemsErr    error
}

type memMix struct {
	mix models.Mix
	tx  int // 0 once committed
}

type memItem struct {
	item models.MixItem
	tx   int
}

type memStore struct {
	st *memState
	tx int
}

func newMemStore() *memStore {
	return &memStore{st: &memState{inks: map[uuid.UUID]models.Ink{}}}
}

// seed stores a committed header with no items unless given.
func (s *memStore) seed(branchID uuid.UUID, folioNum int64, createdAt time.Time, items ...models.MixItem) models.Mix {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	m := models.Mix{ID: uuid.New(), BranchID: branchID, UserID: uuid.New(), FolioNum: folioNum, MixCode: "MIX-SEED", CreatedAt: createdAt}
	s.st.mixes = append(s.st.mixes, &memMix{mix: m})
	for _, it := range items {
		it.MixID = m.ID
		s.st.items = append(s.st.items, memItem{item: it})
	}
	return m
}

func (s *memStore) committedFolios(branchID uuid.UUID) []int64 {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	var out []int64
	for _, r := range s.st.mixes {
		if r.tx == 0 && r.mix.BranchID == branchID {
			out = append(out, r.mix.FolioNum)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *memStore) rowCount() (int, int) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return len(s.st.mixes), len(s.st.items)
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != 0 {
		return fn(s)
	}

	s.st.mu.Lock()
	s.st.nextTx++
	id := s.st.nextTx
	s.st.mu.Unlock()

	err := fn(&memStore{st: s.st, tx: id})

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	keptMixes := s.st.mixes[:0]
	for _, r := range s.st.mixes {
		if r.tx == id {
			if err != nil {
				continue
			}
			r.tx = 0
		}
		keptMixes = append(keptMixes, r)
	}
	s.st.mixes = keptMixes
	keptItems := s.st.items[:0]
	for _, r := range s.st.items {
		if r.tx == id {
			if err != nil {
				continue
			}
			r.tx = 0
		}
		keptItems = append(keptItems, r)
	}
	s.st.items = keptItems
	return err
}

func (s *memStore) MaxFolio(ctx context.Context, branchID uuid.UUID) (int64, error) {
	s.st.mu.Lock()
	var current int64
	for _, r := range s.st.mixes {
		if r.mix.BranchID == branchID && r.mix.FolioNum > current {
			current = r.mix.FolioNum
		}
	}
	hook := s.st.onMaxRead
	s.st.mu.Unlock()

	if hook != nil {
		hook(branchID)
	}
	return current, nil
}

func (s *memStore) InsertMix(ctx context.Context, mix *models.Mix) error {
	s.st.mu.Lock()
	s.st.insertCalls++
	hook := s.st.onInsert
	s.st.mu.Unlock()

	if hook != nil {
		if err := hook(mix); err != nil {
			return err
		}
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for _, r := range s.st.mixes {
		if r.mix.BranchID == mix.BranchID && r.mix.FolioNum == mix.FolioNum {
			return fmt.Errorf("folio %d: %w", mix.FolioNum, folio.ErrCollision)
		}
	}
	s.st.mixes = append(s.st.mixes, &memMix{mix: *mix, tx: s.tx})
	return nil
}

func (s *memStore) InsertItems(ctx context.Context, items []models.MixItem) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if s.st.itemsErr != nil {
		return s.st.itemsErr
	}
	for _, it := range items {
		s.st.items = append(s.st.items, memItem{item: it, tx: s.tx})
	}
	return nil
}

func (s *memStore) detail(r *memMix) *models.Mix {
	m := r.mix
	m.Items = nil
	for _, it := range s.st.items {
		if it.tx == 0 && it.item.MixID == m.ID {
			item := it.item
			if ink, ok := s.st.inks[item.InkID]; ok {
				ink := ink
				item.Ink = &ink
			}
			m.Items = append(m.Items, item)
		}
	}
	return &m
}

func (s *memStore) GetMix(ctx context.Context, id uuid.UUID) (*models.Mix, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for _, r := range s.st.mixes {
		if r.tx == 0 && r.mix.ID == id {
			return s.detail(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetMixByFolio(ctx context.Context, branchID uuid.UUID, folioNum int64) (*models.Mix, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for _, r := range s.st.mixes {
		if r.tx == 0 && r.mix.BranchID == branchID && r.mix.FolioNum == folioNum {
			return s.detail(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) ListMixes(ctx context.Context, q ListQuery) ([]models.Mix, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	var out []models.Mix
	for _, r := range s.st.mixes {
		if r.tx != 0 || r.mix.BranchID != q.BranchID {
			continue
		}
		if q.From != nil && q.To != nil && (r.mix.CreatedAt.Before(*q.From) || !r.mix.CreatedAt.Before(*q.To)) {
			continue
		}
		out = append(out, r.mix)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *memStore) CreatedTimes(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]time.Time, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	var out []time.Time
	for _, r := range s.st.mixes {
		if r.tx != 0 || (branchID != nil && r.mix.BranchID != *branchID) {
			continue
		}
		if r.mix.CreatedAt.Before(from) || r.mix.CreatedAt.After(to) {
			continue
		}
		out = append(out, r.mix.CreatedAt)
	}
	return out, nil
}

func (s *memStore) Stamps(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]MixStamp, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	var out []MixStamp
	for _, r := range s.st.mixes {
		if r.tx != 0 || (branchID != nil && r.mix.BranchID != *branchID) {
			continue
		}
		if r.mix.CreatedAt.Before(from) || !r.mix.CreatedAt.Before(to) {
			continue
		}
		out = append(out, MixStamp{BranchID: r.mix.BranchID, CreatedAt: r.mix.CreatedAt})
	}
	return out, nil
}

func (s *memStore) DeleteOrphans(ctx context.Context, olderThan time.Time) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	withItems := map[uuid.UUID]bool{}
	for _, it := range s.st.items {
		withItems[it.item.MixID] = true
	}
	top := map[uuid.UUID]int64{}
	for _, r := range s.st.mixes {
		if r.mix.FolioNum > top[r.mix.BranchID] {
			top[r.mix.BranchID] = r.mix.FolioNum
		}
	}
	var deleted int64
	kept := s.st.mixes[:0]
	for _, r := range s.st.mixes {
		if r.tx == 0 && !withItems[r.mix.ID] && r.mix.CreatedAt.Before(olderThan) && r.mix.FolioNum < top[r.mix.BranchID] {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.st.mixes = kept
	return deleted, nil
}

// fakeInks resolves codes from a fixed set.
type fakeInks map[string]models.Ink

func (f fakeInks) ResolveCodes(ctx context.Context, codes []string) (map[string]models.Ink, error) {
	out := map[string]models.Ink{}
	seen := map[string]bool{}
	var missing []string
	for _, c := range codes {
		c = inks.NormalizeCode(c)
		if seen[c] {
			continue
		}
		seen[c] = true
		if ink, ok := f[c]; ok {
			out[c] = ink
		} else {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &inks.UnknownInkError{Codes: missing}
	}
	return out, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)
}
