package policies

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zerotouch-micropolicy/internal/middleware"
	"zerotouch-micropolicy/internal/platform/ledger"
	"zerotouch-micropolicy/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Route("/policies", func(pr chi.Router) {
		// Catálogo público del storefront
		pr.Get("/catalog", catalogHandler())

		// Todo lo demás requiere caller autenticado
		pr.Post("/purchase", purchaseHandler(svc, log))
		pr.Get("/user", listUserPoliciesHandler(svc))
		pr.Get("/user/{policyID}", getPolicyHandler(svc))
		pr.Put("/user/{policyID}/cancel", cancelPolicyHandler(svc))
		pr.Get("/notifications", notificationsHandler(svc))
	})
}

type purchaseRequest struct {
	PolicyType string  `json:"policyType"`
	PolicyName string  `json:"policyName"`
	Price      float64 `json:"price"`
}

type policyResponse struct {
	ID               string     `json:"id"`
	OwnerUserID      string     `json:"owner_user_id"`
	PolicyType       string     `json:"policy_type"`
	Name             string     `json:"name"`
	Price            float64    `json:"price"`
	Status           string     `json:"status"`
	LedgerRef        string     `json:"ledger_ref"`
	PurchasedAt      time.Time  `json:"purchased_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaidAmount       *float64   `json:"paid_amount,omitempty"`
	EventDescription string     `json:"event_description,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

type pagination struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// purchaseHandler crea una póliza a nombre del caller autenticado.
//
// @Summary Comprar una micro-póliza
// @Tags policies
// @Router /policies/purchase [post]
func purchaseHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeFail(w, http.StatusUnauthorized, "authentication required")
			return
		}

		var req purchaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFail(w, http.StatusBadRequest, "invalid json")
			return
		}

		p, err := svc.Purchase(r.Context(), claims.UserID, PurchaseInput{
			PolicyType: req.PolicyType,
			Name:       req.PolicyName,
			Price:      req.Price,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				writeFail(w, http.StatusBadRequest, "policy type, name, and price are required (price 1-1000)")
				return
			}
			writeFail(w, http.StatusInternalServerError, "server error during policy purchase")
			return
		}

		log.Info("policy purchased", logger.Fields{
			"policy_id":   p.ID,
			"policy_type": string(p.PolicyType),
			"owner":       p.OwnerUserID,
			"price":       p.Price,
		})

		writeJSON(w, http.StatusCreated, map[string]any{
			"success":       true,
			"message":       "Policy purchased successfully",
			"policy":        toPolicyResponse(p),
			"transactionId": ledger.TransactionID(),
		})
	}
}

// listUserPoliciesHandler lista las pólizas del caller, con filtro por status,
// paginación y un bloque de stats por estado.
//
// @Summary Pólizas del caller
// @Tags policies
// @Router /policies/user [get]
func listUserPoliciesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeFail(w, http.StatusUnauthorized, "authentication required")
			return
		}

		f := ListFilter{
			Status: Status(strings.TrimSpace(r.URL.Query().Get("status"))),
			Page:   queryInt(r, "page", 1),
			Limit:  queryInt(r, "limit", 10),
		}

		items, total, err := svc.ListByOwner(r.Context(), claims.UserID, f)
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "server error fetching policies")
			return
		}

		stats, err := svc.Stats(r.Context(), claims.UserID, time.Time{})
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "server error fetching policies")
			return
		}

		out := make([]policyResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPolicyResponse(p))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"policies":   out,
			"pagination": paginate(f.Page, f.Limit, total),
			"stats": map[string]int{
				"total":   total,
				"active":  stats.ByStatus[StatusActive].Count,
				"paid":    stats.ByStatus[StatusPaid].Count,
				"expired": stats.ByStatus[StatusExpired].Count,
			},
		})
	}
}

// @Summary Detalle de una póliza propia
// @Tags policies
// @Router /policies/user/{policyID} [get]
func getPolicyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeFail(w, http.StatusUnauthorized, "authentication required")
			return
		}

		p, err := svc.GetOwned(r.Context(), chi.URLParam(r, "policyID"), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeFail(w, http.StatusNotFound, "policy not found")
				return
			}
			writeFail(w, http.StatusInternalServerError, "server error fetching policy")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"policy":  toPolicyResponse(p),
		})
	}
}

// @Summary Cancelar una póliza activa
// @Tags policies
// @Router /policies/user/{policyID}/cancel [put]
func cancelPolicyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeFail(w, http.StatusUnauthorized, "authentication required")
			return
		}

		p, err := svc.Cancel(r.Context(), chi.URLParam(r, "policyID"), claims.UserID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				writeFail(w, http.StatusNotFound, "policy not found")
			case errors.Is(err, ErrNotActive):
				writeFail(w, http.StatusConflict, "policy is not active")
			default:
				writeFail(w, http.StatusInternalServerError, "server error cancelling policy")
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Policy cancelled",
			"policy":  toPolicyResponse(p),
		})
	}
}

// notificationsHandler: polling de payouts recientes (últimas 24h).
//
// @Summary Notificaciones de payout del caller
// @Tags policies
// @Router /policies/notifications [get]
func notificationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeFail(w, http.StatusUnauthorized, "authentication required")
			return
		}

		items, err := svc.ListRecentPayouts(r.Context(), claims.UserID, 0)
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "server error fetching notifications")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"notifications": items,
		})
	}
}

// @Summary Catálogo de coberturas
// @Tags policies
// @Router /policies/catalog [get]
func catalogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"catalog": Catalog(),
		})
	}
}

func toPolicyResponse(p Policy) policyResponse {
	return policyResponse{
		ID:               p.ID,
		OwnerUserID:      p.OwnerUserID,
		PolicyType:       string(p.PolicyType),
		Name:             p.Name,
		Price:            p.Price,
		Status:           string(p.Status),
		LedgerRef:        p.LedgerRef,
		PurchasedAt:      p.PurchasedAt,
		PaidAt:           p.PaidAt,
		PaidAmount:       p.PaidAmount,
		EventDescription: p.EventDescription,
		CancelledAt:      p.CancelledAt,
	}
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

// writeJSON/writeFail duplicados a propósito en handlers de distintos módulos
// (policies/events) para no crear helpers compartidos demasiado pronto.
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
