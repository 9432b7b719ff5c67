package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"zerotouch-micropolicy/internal/domain/policies"
)

// PolicyRepo es el repo in-memory de pólizas (dev/tests). Expone el tipo
// concreto porque el event repo comparte su mutex: el flip de pólizas y el
// insert del evento tienen que ser una sola sección crítica.
type PolicyRepo struct {
	mu   sync.RWMutex
	byID map[string]policies.Policy
}

func NewPolicyRepo() *PolicyRepo {
	return &PolicyRepo{
		byID: make(map[string]policies.Policy),
	}
}

func (r *PolicyRepo) Create(ctx context.Context, p policies.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("policy id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("policy already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *PolicyRepo) GetByID(ctx context.Context, id string) (policies.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return policies.Policy{}, policies.ErrNotFound
	}
	return p, nil
}

func (r *PolicyRepo) ListByOwner(ctx context.Context, ownerUserID string, f policies.ListFilter) ([]policies.Policy, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(ownerUserID, f)
}

func (r *PolicyRepo) List(ctx context.Context, f policies.ListFilter) ([]policies.Policy, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked("", f)
}

// listLocked filtra, ordena (compra más reciente primero) y pagina.
// owner vacío = todas.
func (r *PolicyRepo) listLocked(owner string, f policies.ListFilter) ([]policies.Policy, int, error) {
	out := make([]policies.Policy, 0)
	for _, p := range r.byID {
		if owner != "" && p.OwnerUserID != owner {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.PolicyType != "" && p.PolicyType != f.PolicyType {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PurchasedAt.After(out[j].PurchasedAt)
	})

	total := len(out)
	page, limit := normalizePage(f.Page, f.Limit)
	start := (page - 1) * limit
	if start >= total {
		return []policies.Policy{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (r *PolicyRepo) Cancel(ctx context.Context, id, ownerUserID string, at time.Time) (policies.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok || p.OwnerUserID != ownerUserID {
		return policies.Policy{}, policies.ErrNotFound
	}
	// check de status dentro de la misma sección crítica que el write
	if p.Status != policies.StatusActive {
		return policies.Policy{}, policies.ErrNotActive
	}

	t := at
	p.Status = policies.StatusCancelled
	p.CancelledAt = &t
	r.byID[id] = p
	return p, nil
}

func (r *PolicyRepo) ListPaidSince(ctx context.Context, ownerUserID string, since time.Time) ([]policies.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]policies.Policy, 0)
	for _, p := range r.byID {
		if p.OwnerUserID != ownerUserID || p.Status != policies.StatusPaid {
			continue
		}
		if p.PaidAt == nil || p.PaidAt.Before(since) {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PaidAt.After(*out[j].PaidAt)
	})
	return out, nil
}

func (r *PolicyRepo) Stats(ctx context.Context, ownerUserID string, since time.Time) (policies.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := policies.Stats{
		ByStatus: map[policies.Status]policies.StatusStat{},
		ByType:   map[policies.PolicyType]policies.TypeStat{},
	}

	for _, p := range r.byID {
		if ownerUserID != "" && p.OwnerUserID != ownerUserID {
			continue
		}

		ss := st.ByStatus[p.Status]
		ss.Count++
		ss.TotalAmount += p.Price
		st.ByStatus[p.Status] = ss

		ts := st.ByType[p.PolicyType]
		ts.Count++
		ts.Revenue += p.Price
		st.ByType[p.PolicyType] = ts

		if !since.IsZero() && !p.PurchasedAt.Before(since) {
			st.PurchasedSince++
		}
		if p.Status == policies.StatusPaid && p.PaidAmount != nil {
			st.PaidOutAmount += *p.PaidAmount
		}
	}
	return st, nil
}

// payOutLocked paga todas las pólizas active de la cobertura dada.
// El caller debe tener r.mu tomado en modo write.
func (r *PolicyRepo) payOutLocked(cover policies.PolicyType, at time.Time, description string) []policies.Policy {
	affected := make([]policies.Policy, 0)
	for id, p := range r.byID {
		if p.PolicyType != cover || p.Status != policies.StatusActive {
			continue
		}
		t := at
		amount := p.Price
		p.Status = policies.StatusPaid
		p.PaidAt = &t
		p.PaidAmount = &amount
		p.EventDescription = description
		r.byID[id] = p
		affected = append(affected, p)
	}

	// orden estable para respuestas/tests
	sort.Slice(affected, func(i, j int) bool {
		return affected[i].ID < affected[j].ID
	})
	return affected
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}
