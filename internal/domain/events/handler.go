package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zerotouch-micropolicy/internal/domain/policies"
	"zerotouch-micropolicy/internal/middleware"
	"zerotouch-micropolicy/internal/platform/logger"
	"zerotouch-micropolicy/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, policiesSvc *policies.Service, log logger.Logger) {
	r.Route("/admin", func(ar chi.Router) {
		ar.Post("/simulate-event", simulateEventHandler(svc, log))
		ar.Get("/events", listEventsHandler(svc))
		ar.Get("/policies", listAllPoliciesHandler(policiesSvc))
		ar.Get("/stats", dashboardStatsHandler(svc, policiesSvc))
	})
}

type simulateEventRequest struct {
	EventType   string `json:"eventType"`
	Description string `json:"description"`
}

type eventResponse struct {
	ID                string    `json:"id"`
	EventType         string    `json:"event_type"`
	Description       string    `json:"description"`
	TriggeredBy       string    `json:"triggered_by"`
	AffectedPolicyIDs []string  `json:"affected_policy_ids"`
	TotalPayout       float64   `json:"total_payout"`
	UsersAffected     int       `json:"users_affected"`
	IsBlocked         bool      `json:"is_blocked"`
	CreatedAt         time.Time `json:"created_at"`
}

// adminPolicy es la proyección del listado global. Duplica la forma del
// policyResponse de policies/handler.go a propósito (misma nota de helpers).
type adminPolicy struct {
	ID          string     `json:"id"`
	OwnerUserID string     `json:"owner_user_id"`
	PolicyType  string     `json:"policy_type"`
	Name        string     `json:"name"`
	Price       float64    `json:"price"`
	Status      string     `json:"status"`
	PurchasedAt time.Time  `json:"purchased_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	PaidAmount  *float64   `json:"paid_amount,omitempty"`
}

func toAdminPolicy(p policies.Policy) adminPolicy {
	return adminPolicy{
		ID:          p.ID,
		OwnerUserID: p.OwnerUserID,
		PolicyType:  string(p.PolicyType),
		Name:        p.Name,
		Price:       p.Price,
		Status:      string(p.Status),
		PurchasedAt: p.PurchasedAt,
		PaidAt:      p.PaidAt,
		PaidAmount:  p.PaidAmount,
	}
}

type affectedDetail struct {
	PolicyID   string  `json:"policy_id"`
	OwnerID    string  `json:"owner_id"`
	PolicyName string  `json:"policy_name"`
	Payout     float64 `json:"payout"`
}

// simulateEventHandler dispara la reconciliación de payouts (§admin).
// El UI debe poder distinguir tres salidas: fraude bloqueado, evento sin
// matches y evento pagado; el message y eventType de la respuesta lo marcan.
//
// @Summary Simular un evento y pagar pólizas que calcen
// @Tags admin
// @Router /admin/simulate-event [post]
func simulateEventHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireAdmin(w, r)
		if !ok {
			return
		}

		var req simulateEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFail(w, http.StatusBadRequest, "invalid json")
			return
		}

		res, err := svc.Simulate(r.Context(), claims.UserID, SimulateInput{
			EventType:   req.EventType,
			Description: req.Description,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidEventType):
				writeFail(w, http.StatusBadRequest, "invalid event type")
			case errors.Is(err, ErrInvalidInput):
				writeFail(w, http.StatusBadRequest, "invalid input")
			default:
				writeFail(w, http.StatusInternalServerError, "server error during event simulation")
			}
			return
		}

		log.Info("event simulated", logger.Fields{
			"event_id":       res.Event.ID,
			"event_type":     string(res.Event.EventType),
			"blocked":        res.Blocked,
			"affected":       res.AffectedCount,
			"users_affected": res.UsersAffected,
			"total_payout":   res.TotalPayout,
		})

		if res.Blocked {
			writeJSON(w, http.StatusOK, map[string]any{
				"success":       true,
				"message":       "Fraud attempt blocked",
				"affectedUsers": 0,
				"totalPayout":   0,
				"eventType":     "fraud_blocked",
				"event":         toEventResponse(res.Event),
			})
			return
		}

		msg := "Event detected but no matching active policies found"
		if res.AffectedCount > 0 {
			msg = fmt.Sprintf("Event processed successfully! %.2f paid out across %d customers", res.TotalPayout, res.UsersAffected)
		}

		details := make([]affectedDetail, 0, len(res.Affected))
		for _, p := range res.Affected {
			details = append(details, affectedDetail{
				PolicyID:   p.ID,
				OwnerID:    p.OwnerUserID,
				PolicyName: p.Name,
				Payout:     p.Price,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"message":       msg,
			"affectedUsers": res.UsersAffected,
			"totalPayout":   res.TotalPayout,
			"eventType":     string(res.Event.EventType),
			"userDetails":   details,
			"event":         toEventResponse(res.Event),
		})
	}
}

// @Summary Log paginado de eventos simulados
// @Tags admin
// @Router /admin/events [get]
func listEventsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}

		f := ListFilter{
			EventType: EventType(strings.TrimSpace(r.URL.Query().Get("eventType"))),
			Page:      queryInt(r, "page", 1),
			Limit:     queryInt(r, "limit", 10),
		}

		items, total, err := svc.List(r.Context(), f)
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "server error fetching event history")
			return
		}

		out := make([]eventResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toEventResponse(e))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"events":     out,
			"pagination": paginate(f.Page, f.Limit, total),
		})
	}
}

// @Summary Listado global de pólizas
// @Tags admin
// @Router /admin/policies [get]
func listAllPoliciesHandler(policiesSvc *policies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}

		f := policies.ListFilter{
			Status:     policies.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
			PolicyType: policies.PolicyType(strings.TrimSpace(r.URL.Query().Get("policyType"))),
			Page:       queryInt(r, "page", 1),
			Limit:      queryInt(r, "limit", 20),
		}

		items, total, err := policiesSvc.List(r.Context(), f)
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "server error fetching policies")
			return
		}

		stats, err := policiesSvc.Stats(r.Context(), "", time.Time{})
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "server error fetching policies")
			return
		}

		out := make([]adminPolicy, 0, len(items))
		for _, p := range items {
			out = append(out, toAdminPolicy(p))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"policies":   out,
			"pagination": paginate(f.Page, f.Limit, total),
			"stats":      stats.ByStatus,
		})
	}
}

// dashboardStatsHandler combina agregados de pólizas y del log de eventos.
//
// @Summary Stats del dashboard de admin
// @Tags admin
// @Router /admin/stats [get]
func dashboardStatsHandler(svc *Service, policiesSvc *policies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}

		last24h := time.Now().Add(-24 * time.Hour)

		pStats, err := policiesSvc.Stats(r.Context(), "", last24h)
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "server error fetching dashboard stats")
			return
		}
		eStats, err := svc.Stats(r.Context(), last24h)
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "server error fetching dashboard stats")
			return
		}

		totalPolicies := 0
		totalRevenue := 0.0
		for _, s := range pStats.ByStatus {
			totalPolicies += s.Count
			totalRevenue += s.TotalAmount
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"stats": map[string]any{
				"policies": map[string]any{
					"total":    totalPolicies,
					"active":   pStats.ByStatus[policies.StatusActive].Count,
					"paid":     pStats.ByStatus[policies.StatusPaid].Count,
					"newToday": pStats.PurchasedSince,
				},
				"revenue": map[string]any{
					"total": totalRevenue,
					"paid":  pStats.PaidOutAmount,
				},
				"events": map[string]any{
					"total":   eStats.Total,
					"today":   eStats.CreatedSince,
					"blocked": eStats.Blocked,
				},
				"policyTypes": pStats.ByType,
			},
		})
	}
}

// requireAdmin corta con 401/403 y devuelve los claims si el caller es admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Claims, bool) {
	c, has := middleware.GetClaims(r.Context())
	if !has || strings.TrimSpace(c.UserID) == "" {
		writeFail(w, http.StatusUnauthorized, "authentication required")
		return auth.Claims{}, false
	}
	if !c.IsAdmin() {
		writeFail(w, http.StatusForbidden, "admin access required")
		return auth.Claims{}, false
	}
	return c, true
}

func toEventResponse(e Event) eventResponse {
	ids := e.AffectedPolicyIDs
	if ids == nil {
		ids = []string{}
	}
	return eventResponse{
		ID:                e.ID,
		EventType:         string(e.EventType),
		Description:       e.Description,
		TriggeredBy:       e.TriggeredBy,
		AffectedPolicyIDs: ids,
		TotalPayout:       e.TotalPayout,
		UsersAffected:     e.UsersAffected,
		IsBlocked:         e.IsBlocked,
		CreatedAt:         e.CreatedAt,
	}
}

type pagination struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

func paginate(page, limit, total int) pagination {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	pages := (total + limit - 1) / limit
	return pagination{
		Current: page,
		Total:   pages,
		HasNext: page*limit < total,
		HasPrev: page > 1,
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// writeJSON/writeFail duplicados a propósito (ver nota en policies/handler.go).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": msg,
	})
}
