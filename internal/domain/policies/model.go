package policies

import "time"

// PolicyType define las coberturas paramétricas soportadas.
// @Enum Rain Delay Cover, Flight Delay Cover, Traffic Jam Cover, Package Delay Cover
type PolicyType string

const (
	TypeRainDelay    PolicyType = "Rain Delay Cover"
	TypeFlightDelay  PolicyType = "Flight Delay Cover"
	TypeTrafficJam   PolicyType = "Traffic Jam Cover"
	TypePackageDelay PolicyType = "Package Delay Cover"
)

// ValidPolicyType reporta si pt es una cobertura del catálogo.
func ValidPolicyType(pt PolicyType) bool {
	switch pt {
	case TypeRainDelay, TypeFlightDelay, TypeTrafficJam, TypePackageDelay:
		return true
	default:
		return false
	}
}

// Status define el ciclo de vida de una póliza.
// active es el único estado no terminal; paid/expired/cancelled son finales.
// @Enum active, paid, expired, cancelled
type Status string

const (
	StatusActive    Status = "active"
	StatusPaid      Status = "paid"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s != StatusActive
}

// Policy representa una micro-póliza comprada. Price es a la vez prima y
// monto de payout en este modelo simplificado.
type Policy struct {
	ID          string
	OwnerUserID string

	PolicyType PolicyType
	Name       string
	Price      float64

	Status Status

	// LedgerRef es cosmético: hash truncado, sin garantía criptográfica.
	LedgerRef string

	PurchasedAt time.Time

	// Solo seteados en la transición active -> paid.
	PaidAt           *time.Time
	PaidAmount       *float64
	EventDescription string

	CancelledAt *time.Time
}

// CatalogItem es la ficha de una cobertura para el storefront.
type CatalogItem struct {
	PolicyType     PolicyType `json:"policy_type"`
	Icon           string     `json:"icon"`
	Summary        string     `json:"summary"`
	SuggestedPrice float64    `json:"suggested_price"`
}

// Catalog devuelve las coberturas disponibles para compra.
func Catalog() []CatalogItem {
	return []CatalogItem{
		{TypeRainDelay, "🌧️", "Payout automático si llueve en tu evento", 10},
		{TypeFlightDelay, "✈️", "Payout automático si tu vuelo se atrasa", 25},
		{TypeTrafficJam, "🚦", "Payout automático si el tráfico te deja pegado", 15},
		{TypePackageDelay, "📦", "Payout automático si tu paquete llega tarde", 20},
	}
}
