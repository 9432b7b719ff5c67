package policies

import (
	"context"
	"errors"
	"strings"
	"time"

	"zerotouch-micropolicy/internal/platform/ledger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("policy not found")
	ErrNotActive    = errors.New("policy is not active")
)

// Límites de prima del storefront (mismos bounds que el validador original).
const (
	MinPrice = 1
	MaxPrice = 1000
)

// DefaultNotificationWindow es la ventana del polling de payouts recientes.
const DefaultNotificationWindow = 24 * time.Hour

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

type PurchaseInput struct {
	PolicyType string
	Name       string
	Price      float64
}

// Purchase crea una póliza active a nombre del caller. El backend es dueño
// de la relación owner<->póliza; el cliente nunca manda ownerUserID.
func (s *Service) Purchase(ctx context.Context, ownerUserID string, in PurchaseInput) (Policy, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Policy{}, ErrInvalidInput
	}

	pt := PolicyType(strings.TrimSpace(in.PolicyType))
	if !ValidPolicyType(pt) {
		return Policy{}, ErrInvalidInput
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = string(pt)
	}
	if in.Price < MinPrice || in.Price > MaxPrice {
		return Policy{}, ErrInvalidInput
	}

	now := s.now()
	p := Policy{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		PolicyType:  pt,
		Name:        name,
		Price:       in.Price,
		Status:      StatusActive,
		LedgerRef:   ledger.Reference(ownerUserID, string(pt), now),
		PurchasedAt: now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// List pagina sobre todas las pólizas; solo lo consume el panel de admin.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Policy, int, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string, f ListFilter) ([]Policy, int, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, 0, ErrInvalidInput
	}
	return s.repo.ListByOwner(ctx, ownerUserID, f)
}

// GetOwned devuelve la póliza solo si pertenece al caller. Una póliza ajena
// se reporta como not found para no filtrar existencia.
func (s *Service) GetOwned(ctx context.Context, id, ownerUserID string) (Policy, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Policy{}, ErrNotFound
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Policy{}, err
	}
	if p.OwnerUserID != ownerUserID {
		return Policy{}, ErrNotFound
	}
	return p, nil
}

// Cancel transiciona active -> cancelled. El repo hace el check de status
// dentro del update: una cancelación que corre contra un payout deja la
// póliza en exactamente un estado terminal.
func (s *Service) Cancel(ctx context.Context, id, ownerUserID string) (Policy, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.TrimSpace(ownerUserID) == "" {
		return Policy{}, ErrNotFound
	}
	return s.repo.Cancel(ctx, id, ownerUserID, s.now())
}

// Notification proyecta un payout reciente para el polling del dashboard.
type Notification struct {
	PolicyID    string    `json:"policy_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// ListRecentPayouts devuelve las pólizas del owner pagadas dentro de window
// (default 24h), más recientes primero. Es un sustituto de push por polling:
// sin garantías de entrega más allá de "aparece en el próximo poll".
func (s *Service) ListRecentPayouts(ctx context.Context, ownerUserID string, window time.Duration) ([]Notification, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, ErrInvalidInput
	}
	if window <= 0 {
		window = DefaultNotificationWindow
	}

	paid, err := s.repo.ListPaidSince(ctx, ownerUserID, s.now().Add(-window))
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(paid))
	for _, p := range paid {
		amount := p.Price
		if p.PaidAmount != nil {
			amount = *p.PaidAmount
		}
		desc := p.EventDescription
		if desc == "" {
			desc = "Event condition met"
		}
		var ts time.Time
		if p.PaidAt != nil {
			ts = *p.PaidAt
		}
		out = append(out, Notification{
			PolicyID:    p.ID,
			Type:        "payout",
			Title:       "Payout Received!",
			Message:     p.Name,
			Description: desc,
			Amount:      amount,
			Timestamp:   ts,
		})
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context, ownerUserID string, since time.Time) (Stats, error) {
	return s.repo.Stats(ctx, ownerUserID, since)
}
