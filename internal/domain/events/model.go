package events

import (
	"time"

	"zerotouch-micropolicy/internal/domain/policies"
)

// EventType define los eventos simulables desde el panel de admin.
// "fake" es el sentinel de fraude: existe para demostrar que un claim manual
// jamás se honra, sin importar lo que haga el admin.
// @Enum rain, flight, traffic, package, fake
type EventType string

const (
	EventTypeRain    EventType = "rain"
	EventTypeFlight  EventType = "flight"
	EventTypeTraffic EventType = "traffic"
	EventTypePackage EventType = "package"
	EventTypeFake    EventType = "fake"
)

// coverFor mapea cada evento real a exactamente una cobertura.
// fake no aparece: nunca toca pólizas.
var coverFor = map[EventType]policies.PolicyType{
	EventTypeRain:    policies.TypeRainDelay,
	EventTypeFlight:  policies.TypeFlightDelay,
	EventTypeTraffic: policies.TypeTrafficJam,
	EventTypePackage: policies.TypePackageDelay,
}

// ParseEventType valida el string recibido del admin.
func ParseEventType(s string) (EventType, bool) {
	et := EventType(s)
	switch et {
	case EventTypeRain, EventTypeFlight, EventTypeTraffic, EventTypePackage, EventTypeFake:
		return et, true
	default:
		return "", false
	}
}

// CoverFor devuelve la cobertura que dispara et, o false para fake/unknown.
func CoverFor(et EventType) (policies.PolicyType, bool) {
	pt, ok := coverFor[et]
	return pt, ok
}

// Event es una fila append-only del log de simulaciones. Referencia a las
// pólizas afectadas; no es dueño de su ciclo de vida.
type Event struct {
	ID          string
	EventType   EventType
	Description string
	TriggeredBy string

	AffectedPolicyIDs []string
	TotalPayout       float64
	UsersAffected     int

	// IsBlocked solo es true para el sentinel de fraude. Un evento real sin
	// pólizas que calcen queda con IsBlocked=false y affected vacío: ambas
	// cosas deben poder distinguirse en el log.
	IsBlocked bool

	CreatedAt time.Time
}

// Summarize completa los agregados del evento a partir de las pólizas
// efectivamente pagadas: ids afectados, suma de primas y owners distintos
// (un owner con 2 pólizas cuenta 1 en UsersAffected y 2x en TotalPayout).
func Summarize(e Event, affected []policies.Policy) Event {
	ids := make([]string, 0, len(affected))
	owners := make(map[string]struct{}, len(affected))
	total := 0.0

	for _, p := range affected {
		ids = append(ids, p.ID)
		owners[p.OwnerUserID] = struct{}{}
		total += p.Price
	}

	e.AffectedPolicyIDs = ids
	e.TotalPayout = total
	e.UsersAffected = len(owners)
	return e
}
