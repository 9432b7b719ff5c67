package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"zerotouch-micropolicy/internal/domain/policies"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidEventType = errors.New("invalid event type")
)

// defaultDescription se usa cuando el admin no escribe nada.
const defaultDescription = "Event condition met"

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type SimulateInput struct {
	EventType   string
	Description string
}

// Result resume una simulación para el panel de admin.
type Result struct {
	Event         Event
	Affected      []policies.Policy
	AffectedCount int
	UsersAffected int
	TotalPayout   float64
	Blocked       bool
}

// Simulate es el reconciliador de payouts: valida el tipo de evento, y
//   - fake: registra un evento bloqueado sin tocar ninguna póliza;
//   - tipo real: paga todas las pólizas active de la cobertura mapeada y
//     registra un único evento con los agregados (ver Repository.RecordWithPayout).
//
// Cero matches también registra evento (IsBlocked=false, affected vacío):
// el evento ocurrió, solo que nadie tenía cobertura.
// Falla antes de cualquier mutación con ErrInvalidEventType si el tipo no
// está mapeado.
func (s *Service) Simulate(ctx context.Context, adminUserID string, in SimulateInput) (Result, error) {
	if strings.TrimSpace(adminUserID) == "" {
		return Result{}, ErrInvalidInput
	}

	et, ok := ParseEventType(strings.TrimSpace(in.EventType))
	if !ok {
		return Result{}, ErrInvalidEventType
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = defaultDescription
	}

	e := Event{
		ID:                uuid.NewString(),
		EventType:         et,
		Description:       desc,
		TriggeredBy:       adminUserID,
		AffectedPolicyIDs: []string{},
		CreatedAt:         s.now(),
	}

	// Sentinel de fraude: se registra, jamás se paga.
	if et == EventTypeFake {
		e.IsBlocked = true
		if err := s.repo.Record(ctx, e); err != nil {
			return Result{}, err
		}
		return Result{Event: e, Blocked: true}, nil
	}

	cover, ok := CoverFor(et)
	if !ok {
		return Result{}, ErrInvalidEventType
	}

	ev, affected, err := s.repo.RecordWithPayout(ctx, e, cover)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Event:         ev,
		Affected:      affected,
		AffectedCount: len(affected),
		UsersAffected: ev.UsersAffected,
		TotalPayout:   ev.TotalPayout,
	}, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Event, int, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Stats(ctx context.Context, since time.Time) (Stats, error) {
	return s.repo.Stats(ctx, since)
}
