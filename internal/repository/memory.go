package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/guaupro/landing/internal/model"
	"github.com/guaupro/landing/internal/waitlist"
)

// MemoryStore keeps waitlist leads in process memory.
// It is used for local runs without Postgres and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]*model.Lead
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]*model.Lead)}
}

// Exists reports whether email is already stored.
func (m *MemoryStore) Exists(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byEmail[email]
	return ok, nil
}

// Insert stores a copy of lead unless the email is taken.
func (m *MemoryStore) Insert(ctx context.Context, lead *model.Lead) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[lead.Email]; ok {
		return "", fmt.Errorf("failed to insert lead: %w", waitlist.ErrDuplicateEmail)
	}
	stored := *lead
	stored.Features = append([]string(nil), lead.Features...)
	if len(stored.Features) == 0 {
		stored.Features = nil
	}
	m.byEmail[lead.Email] = &stored
	return stored.ID, nil
}

// ListLeads returns leads newest first with cursor pagination.
func (m *MemoryStore) ListLeads(ctx context.Context, filter LeadFilter, cursor string, limit int) ([]*model.Lead, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	var out []*model.Lead
	for _, lead := range m.sorted() {
		if cursorData != nil && !before(lead, cursorData) {
			continue
		}
		if filter.BusinessType != "" && lead.BusinessType != filter.BusinessType {
			continue
		}
		if filter.CreatedAfter != nil && lead.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if filter.CreatedBefore != nil && lead.CreatedAt.After(*filter.CreatedBefore) {
			continue
		}
		out = append(out, lead)
		if len(out) > limit {
			break
		}
	}
	return paginate(out, limit)
}

// ForEachLead streams every lead, newest first, to fn.
func (m *MemoryStore) ForEachLead(ctx context.Context, fn func(*model.Lead) error) error {
	for _, lead := range m.sorted() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(lead); err != nil {
			return err
		}
	}
	return nil
}

// LeadStats counts leads per business type and pet volume.
func (m *MemoryStore) LeadStats(ctx context.Context) (*model.LeadStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := newLeadStats()
	for _, lead := range m.byEmail {
		stats.Total++
		stats.ByBusinessType[lead.BusinessType]++
		stats.ByPetVolume[lead.PetVolume]++
	}
	return stats, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// sorted returns copies of all leads ordered by (created_at, id) descending.
func (m *MemoryStore) sorted() []*model.Lead {
	m.mu.RLock()
	leads := make([]*model.Lead, 0, len(m.byEmail))
	for _, lead := range m.byEmail {
		c := *lead
		leads = append(leads, &c)
	}
	m.mu.RUnlock()

	sort.Slice(leads, func(i, j int) bool {
		if !leads[i].CreatedAt.Equal(leads[j].CreatedAt) {
			return leads[i].CreatedAt.After(leads[j].CreatedAt)
		}
		return leads[i].ID > leads[j].ID
	})
	return leads
}

// before reports whether lead sorts after the cursor position.
func before(lead *model.Lead, cursor *PaginationCursor) bool {
	if lead.CreatedAt.Equal(cursor.CreatedAt) {
		return lead.ID < cursor.ID
	}
	return lead.CreatedAt.Before(cursor.CreatedAt)
}
