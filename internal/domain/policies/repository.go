package policies

import (
	"context"
	"time"
)

// ListFilter acota listados de pólizas. Page arranca en 1.
type ListFilter struct {
	Status     Status
	PolicyType PolicyType
	Page       int
	Limit      int
}

// StatusStat agrega conteo y monto por estado.
type StatusStat struct {
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// TypeStat agrega conteo y revenue (suma de primas) por cobertura.
type TypeStat struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// Stats agrega métricas de pólizas, para el dashboard de admin y para el
// bloque de stats del listado del cliente.
type Stats struct {
	ByStatus       map[Status]StatusStat   `json:"by_status"`
	ByType         map[PolicyType]TypeStat `json:"by_type"`
	PurchasedSince int                     `json:"purchased_since"`
	PaidOutAmount  float64                 `json:"paid_out_amount"`
}

type Repository interface {
	Create(ctx context.Context, p Policy) error
	GetByID(ctx context.Context, id string) (Policy, error)

	// ListByOwner pagina las pólizas del owner; devuelve también el total
	// sin paginar para armar la respuesta de paginación.
	ListByOwner(ctx context.Context, ownerUserID string, f ListFilter) ([]Policy, int, error)

	// List pagina sobre todas las pólizas (solo admin).
	List(ctx context.Context, f ListFilter) ([]Policy, int, error)

	// Cancel transiciona active -> cancelled de forma condicional: el check
	// de status es parte del update, no una lectura previa. Devuelve
	// ErrNotFound si la póliza no existe o no es del owner, ErrNotActive si
	// ya está en un estado terminal.
	Cancel(ctx context.Context, id, ownerUserID string, at time.Time) (Policy, error)

	// ListPaidSince devuelve pólizas del owner pagadas desde since,
	// más recientes primero. Alimenta la superficie de notificaciones.
	ListPaidSince(ctx context.Context, ownerUserID string, since time.Time) ([]Policy, error)

	// Stats agrega métricas; ownerUserID vacío = global. since acota el
	// conteo PurchasedSince.
	Stats(ctx context.Context, ownerUserID string, since time.Time) (Stats, error)
}
