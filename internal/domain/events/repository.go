package events

import (
	"context"
	"time"

	"zerotouch-micropolicy/internal/domain/policies"
)

// ListFilter acota el log de eventos. Page arranca en 1.
type ListFilter struct {
	EventType EventType
	Page      int
	Limit     int
}

// Stats agrega métricas del log para el dashboard de admin.
type Stats struct {
	Total        int `json:"total"`
	CreatedSince int `json:"created_since"`
	Blocked      int `json:"blocked"`
}

type Repository interface {
	// Record inserta un evento sin tocar pólizas (fake o sin matches previos
	// conocidos). El log es append-only: no hay update ni delete.
	Record(ctx context.Context, e Event) error

	// RecordWithPayout ejecuta la reconciliación de forma atómica: flip de
	// todas las pólizas active de la cobertura dada a paid (el check de
	// status es parte del predicado del update, no una lectura previa),
	// agrega los totales vía Summarize y persiste el evento. Update e insert
	// comparten una transacción: ante error no queda payout parcial ni
	// evento suelto. Devuelve el evento completado y las pólizas pagadas.
	RecordWithPayout(ctx context.Context, e Event, cover policies.PolicyType) (Event, []policies.Policy, error)

	GetByID(ctx context.Context, id string) (Event, error)

	// List pagina el log, más recientes primero; devuelve el total sin paginar.
	List(ctx context.Context, f ListFilter) ([]Event, int, error)

	// Stats agrega métricas; since acota el conteo CreatedSince.
	Stats(ctx context.Context, since time.Time) (Stats, error)
}
