package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"zerotouch-micropolicy/internal/domain/events"
	"zerotouch-micropolicy/internal/domain/policies"
)

type eventRepo struct {
	// comparte el mutex del PolicyRepo: RecordWithPayout muta ambos stores
	// en una sola sección crítica.
	policyRepo *PolicyRepo
	byID       map[string]events.Event
}

func NewEventRepo(policyRepo *PolicyRepo) events.Repository {
	return &eventRepo{
		policyRepo: policyRepo,
		byID:       make(map[string]events.Event),
	}
}

func (r *eventRepo) Record(ctx context.Context, e events.Event) error {
	r.policyRepo.mu.Lock()
	defer r.policyRepo.mu.Unlock()
	return r.recordLocked(e)
}

func (r *eventRepo) recordLocked(e events.Event) error {
	if e.ID == "" {
		return errors.New("event id required")
	}
	if _, exists := r.byID[e.ID]; exists {
		return errors.New("event already exists")
	}
	r.byID[e.ID] = e
	return nil
}

func (r *eventRepo) RecordWithPayout(ctx context.Context, e events.Event, cover policies.PolicyType) (events.Event, []policies.Policy, error) {
	r.policyRepo.mu.Lock()
	defer r.policyRepo.mu.Unlock()

	affected := r.policyRepo.payOutLocked(cover, e.CreatedAt, e.Description)
	ev := events.Summarize(e, affected)

	if err := r.recordLocked(ev); err != nil {
		// revert: en memoria podemos deshacer el flip para no dejar payout
		// sin evento en el log
		for _, p := range affected {
			prev := p
			prev.Status = policies.StatusActive
			prev.PaidAt = nil
			prev.PaidAmount = nil
			prev.EventDescription = ""
			r.policyRepo.byID[p.ID] = prev
		}
		return events.Event{}, nil, err
	}

	return ev, affected, nil
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (events.Event, error) {
	r.policyRepo.mu.RLock()
	defer r.policyRepo.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return events.Event{}, errors.New("event not found")
	}
	return e, nil
}

func (r *eventRepo) List(ctx context.Context, f events.ListFilter) ([]events.Event, int, error) {
	r.policyRepo.mu.RLock()
	defer r.policyRepo.mu.RUnlock()

	out := make([]events.Event, 0)
	for _, e := range r.byID {
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := len(out)
	page, limit := normalizePage(f.Page, f.Limit)
	start := (page - 1) * limit
	if start >= total {
		return []events.Event{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (r *eventRepo) Stats(ctx context.Context, since time.Time) (events.Stats, error) {
	r.policyRepo.mu.RLock()
	defer r.policyRepo.mu.RUnlock()

	st := events.Stats{}
	for _, e := range r.byID {
		st.Total++
		if !since.IsZero() && !e.CreatedAt.Before(since) {
			st.CreatedSince++
		}
		if e.IsBlocked {
			st.Blocked++
		}
	}
	return st, nil
}
