package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"zerotouch-micropolicy/internal/domain/policies"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	policies map[string]policies.Policy
	events   map[string]Event

	failRecord error
}

func newTestRepo(seed ...policies.Policy) *testRepo {
	r := &testRepo{
		policies: map[string]policies.Policy{},
		events:   map[string]Event{},
	}
	for _, p := range seed {
		r.policies[p.ID] = p
	}
	return r
}

func (r *testRepo) Record(ctx context.Context, e Event) error {
	if r.failRecord != nil {
		return r.failRecord
	}
	if e.ID == "" {
		return errors.New("repo: id required")
	}
	r.events[e.ID] = e
	return nil
}

func (r *testRepo) RecordWithPayout(ctx context.Context, e Event, cover policies.PolicyType) (Event, []policies.Policy, error) {
	if r.failRecord != nil {
		// storage caído: nada se muta, nada se registra
		return Event{}, nil, r.failRecord
	}

	affected := make([]policies.Policy, 0)
	for id, p := range r.policies {
		if p.PolicyType != cover || p.Status != policies.StatusActive {
			continue
		}
		t := e.CreatedAt
		amount := p.Price
		p.Status = policies.StatusPaid
		p.PaidAt = &t
		p.PaidAmount = &amount
		p.EventDescription = e.Description
		r.policies[id] = p
		affected = append(affected, p)
	}

	ev := Summarize(e, affected)
	r.events[ev.ID] = ev
	return ev, affected, nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Event, error) {
	e, ok := r.events[id]
	if !ok {
		return Event{}, errors.New("repo: not found")
	}
	return e, nil
}

func (r *testRepo) List(ctx context.Context, f ListFilter) ([]Event, int, error) {
	out := make([]Event, 0)
	for _, e := range r.events {
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *testRepo) Stats(ctx context.Context, since time.Time) (Stats, error) {
	st := Stats{}
	for _, e := range r.events {
		st.Total++
		if e.IsBlocked {
			st.Blocked++
		}
	}
	return st, nil
}

func activePolicy(id, owner string, pt policies.PolicyType, price float64) policies.Policy {
	return policies.Policy{
		ID:          id,
		OwnerUserID: owner,
		PolicyType:  pt,
		Name:        string(pt),
		Price:       price,
		Status:      policies.StatusActive,
	}
}

// -------------------------
// Tests
// -------------------------

func TestSimulate_PaysOnlyMatchingActivePolicies(t *testing.T) {
	paid := activePolicy("p2", "owner-2", policies.TypeRainDelay, 10)
	paid.Status = policies.StatusPaid

	repo := newTestRepo(
		activePolicy("p1", "owner-1", policies.TypeRainDelay, 10),
		paid,
		activePolicy("p3", "owner-3", policies.TypeFlightDelay, 25),
	)
	svc := NewService(repo)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	res, err := svc.Simulate(context.Background(), "admin-1", SimulateInput{
		EventType:   "rain",
		Description: "heavy rain downtown",
	})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	if res.AffectedCount != 1 || res.UsersAffected != 1 || res.TotalPayout != 10 {
		t.Fatalf("unexpected result: count=%d users=%d payout=%v", res.AffectedCount, res.UsersAffected, res.TotalPayout)
	}

	// la Rain activa quedó paid, con metadata estampada
	p1 := repo.policies["p1"]
	if p1.Status != policies.StatusPaid {
		t.Fatalf("expected p1 paid, got %s", p1.Status)
	}
	if p1.PaidAt == nil || !p1.PaidAt.Equal(now) {
		t.Fatalf("expected PaidAt=now, got %v", p1.PaidAt)
	}
	if p1.PaidAmount == nil || *p1.PaidAmount != 10 {
		t.Fatalf("expected PaidAmount=10, got %v", p1.PaidAmount)
	}
	if p1.EventDescription != "heavy rain downtown" {
		t.Fatalf("expected event description stamped, got %q", p1.EventDescription)
	}

	// la Rain ya pagada y la Flight activa no se tocan
	if got := repo.policies["p2"]; got.EventDescription != "" {
		t.Fatalf("already-paid policy was touched: %#v", got)
	}
	if got := repo.policies["p3"]; got.Status != policies.StatusActive {
		t.Fatalf("flight policy was touched: %#v", got)
	}

	// evento registrado con agregados correctos
	ev := repo.events[res.Event.ID]
	if ev.IsBlocked {
		t.Fatalf("real event must not be blocked")
	}
	if len(ev.AffectedPolicyIDs) != 1 || ev.AffectedPolicyIDs[0] != "p1" {
		t.Fatalf("unexpected affected ids: %#v", ev.AffectedPolicyIDs)
	}
	if ev.TotalPayout != 10 || ev.UsersAffected != 1 {
		t.Fatalf("unexpected event aggregates: %#v", ev)
	}
	if ev.TriggeredBy != "admin-1" {
		t.Fatalf("expected TriggeredBy admin-1, got %q", ev.TriggeredBy)
	}
}

func TestSimulate_CountsDistinctOwnersNotPolicies(t *testing.T) {
	// owner-1 tiene 2 pólizas Rain activas: cuenta 1 en usersAffected
	// y 2x en totalPayout
	repo := newTestRepo(
		activePolicy("p1", "owner-1", policies.TypeRainDelay, 10),
		activePolicy("p2", "owner-1", policies.TypeRainDelay, 10),
		activePolicy("p3", "owner-2", policies.TypeRainDelay, 30),
	)
	svc := NewService(repo)

	res, err := svc.Simulate(context.Background(), "admin-1", SimulateInput{EventType: "rain"})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	if res.AffectedCount != 3 {
		t.Fatalf("expected 3 affected policies, got %d", res.AffectedCount)
	}
	if res.UsersAffected != 2 {
		t.Fatalf("expected 2 distinct owners, got %d", res.UsersAffected)
	}
	if res.TotalPayout != 50 {
		t.Fatalf("expected payout 50, got %v", res.TotalPayout)
	}
}

func TestSimulate_FakeEventNeverPays(t *testing.T) {
	repo := newTestRepo(
		activePolicy("p1", "owner-1", policies.TypeRainDelay, 10),
		activePolicy("p2", "owner-2", policies.TypeFlightDelay, 25),
	)
	svc := NewService(repo)

	res, err := svc.Simulate(context.Background(), "admin-1", SimulateInput{
		EventType:   "fake",
		Description: "manual claim attempt",
	})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	if !res.Blocked || res.AffectedCount != 0 || res.TotalPayout != 0 {
		t.Fatalf("fake event must block with zero effect: %#v", res)
	}

	// ninguna póliza mutada
	for id, p := range repo.policies {
		if p.Status != policies.StatusActive {
			t.Fatalf("policy %s was mutated by fake event: %s", id, p.Status)
		}
	}

	ev := repo.events[res.Event.ID]
	if !ev.IsBlocked {
		t.Fatalf("expected IsBlocked=true on fake event")
	}
	if len(ev.AffectedPolicyIDs) != 0 || ev.TotalPayout != 0 || ev.UsersAffected != 0 {
		t.Fatalf("fake event must have empty aggregates: %#v", ev)
	}
}

func TestSimulate_ZeroMatchesStillRecordsUnblockedEvent(t *testing.T) {
	// hay pólizas, pero ninguna Traffic activa
	repo := newTestRepo(
		activePolicy("p1", "owner-1", policies.TypeRainDelay, 10),
	)
	svc := NewService(repo)

	res, err := svc.Simulate(context.Background(), "admin-1", SimulateInput{EventType: "traffic"})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	if res.Blocked {
		t.Fatalf("zero-match event must not be blocked (distinct from fraud)")
	}
	if res.AffectedCount != 0 || res.TotalPayout != 0 {
		t.Fatalf("expected zero effect, got %#v", res)
	}

	ev := repo.events[res.Event.ID]
	if ev.IsBlocked {
		t.Fatalf("zero-match event must record IsBlocked=false")
	}
	if len(ev.AffectedPolicyIDs) != 0 {
		t.Fatalf("expected empty affected ids, got %#v", ev.AffectedPolicyIDs)
	}
}

func TestSimulate_SecondRunPaysNothing(t *testing.T) {
	repo := newTestRepo(
		activePolicy("p1", "owner-1", policies.TypeRainDelay, 10),
		activePolicy("p2", "owner-2", policies.TypeRainDelay, 15),
	)
	svc := NewService(repo)

	first, err := svc.Simulate(context.Background(), "admin-1", SimulateInput{EventType: "rain"})
	if err != nil {
		t.Fatalf("Simulate #1 error: %v", err)
	}
	if first.AffectedCount != 2 || first.TotalPayout != 25 {
		t.Fatalf("unexpected first run: %#v", first)
	}

	second, err := svc.Simulate(context.Background(), "admin-1", SimulateInput{EventType: "rain"})
	if err != nil {
		t.Fatalf("Simulate #2 error: %v", err)
	}
	if second.AffectedCount != 0 || second.TotalPayout != 0 || second.UsersAffected != 0 {
		t.Fatalf("second run must pay nothing (no double payout): %#v", second)
	}
}

func TestSimulate_InvalidEventType_NoSideEffects(t *testing.T) {
	repo := newTestRepo(activePolicy("p1", "owner-1", policies.TypeRainDelay, 10))
	svc := NewService(repo)

	_, err := svc.Simulate(context.Background(), "admin-1", SimulateInput{EventType: "earthquake"})
	if !errors.Is(err, ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}

	if len(repo.events) != 0 {
		t.Fatalf("invalid event type must not record anything")
	}
	if repo.policies["p1"].Status != policies.StatusActive {
		t.Fatalf("invalid event type must not mutate policies")
	}
}

func TestSimulate_DefaultsDescription(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	res, err := svc.Simulate(context.Background(), "admin-1", SimulateInput{EventType: "package", Description: "   "})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if res.Event.Description != defaultDescription {
		t.Fatalf("expected default description, got %q", res.Event.Description)
	}
}

func TestSimulate_StorageErrorAbortsWhole(t *testing.T) {
	repo := newTestRepo(activePolicy("p1", "owner-1", policies.TypeRainDelay, 10))
	repo.failRecord = errors.New("storage unavailable")
	svc := NewService(repo)

	if _, err := svc.Simulate(context.Background(), "admin-1", SimulateInput{EventType: "rain"}); err == nil {
		t.Fatalf("expected storage error to propagate")
	}

	if repo.policies["p1"].Status != policies.StatusActive {
		t.Fatalf("storage error must leave policies untouched")
	}
	if len(repo.events) != 0 {
		t.Fatalf("storage error must not record an event")
	}
}

func TestSummarize_Aggregates(t *testing.T) {
	e := Event{ID: "e1"}
	got := Summarize(e, []policies.Policy{
		{ID: "a", OwnerUserID: "u1", Price: 10},
		{ID: "b", OwnerUserID: "u1", Price: 10},
		{ID: "c", OwnerUserID: "u2", Price: 5},
	})

	if got.TotalPayout != 25 {
		t.Fatalf("expected total 25, got %v", got.TotalPayout)
	}
	if got.UsersAffected != 2 {
		t.Fatalf("expected 2 owners, got %d", got.UsersAffected)
	}
	if len(got.AffectedPolicyIDs) != 3 {
		t.Fatalf("expected 3 ids, got %#v", got.AffectedPolicyIDs)
	}
}
