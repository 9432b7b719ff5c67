package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"zerotouch-micropolicy/internal/router"
)

func TestHTTP_EndToEnd_PayoutReconciliation(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	ownerA := "owner-a"
	ownerB := "owner-b"
	admin := "admin-1"

	// 1) Dos clientes compran Rain, uno compra Flight
	rainA := purchasePolicy(t, ts.URL, ownerA, "Rain Delay Cover", 10)
	_ = purchasePolicy(t, ts.URL, ownerB, "Rain Delay Cover", 15)
	_ = purchasePolicy(t, ts.URL, ownerB, "Flight Delay Cover", 25)

	// 2) Compra sin auth => 401
	{
		st, _ := doReq(t, ts.URL, "POST", "/policies/purchase", "", "", map[string]any{
			"policyType": "Rain Delay Cover", "price": 10,
		})
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 unauthenticated purchase, got %d", st)
		}
	}

	// 3) Cliente normal no puede simular eventos
	{
		st, _ := doReq(t, ts.URL, "POST", "/admin/simulate-event", ownerA, "", map[string]any{
			"eventType": "rain",
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 for non-admin, got %d", st)
		}
	}

	// 4) Admin simula lluvia: paga las 2 Rain, no la Flight
	{
		st, body := doReq(t, ts.URL, "POST", "/admin/simulate-event", admin, "admin", map[string]any{
			"eventType":   "rain",
			"description": "storm over the city",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 simulate, got %d body=%s", st, string(body))
		}

		var resp struct {
			Success       bool    `json:"success"`
			AffectedUsers int     `json:"affectedUsers"`
			TotalPayout   float64 `json:"totalPayout"`
			EventType     string  `json:"eventType"`
		}
		mustUnmarshal(t, body, &resp)
		if !resp.Success || resp.AffectedUsers != 2 || resp.TotalPayout != 25 || resp.EventType != "rain" {
			t.Fatalf("unexpected simulate response: %s", string(body))
		}
	}

	// 5) La póliza de ownerA quedó paid con la descripción del evento
	{
		st, body := doReq(t, ts.URL, "GET", "/policies/user/"+rainA, ownerA, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get policy, got %d body=%s", st, string(body))
		}
		var resp struct {
			Policy struct {
				Status           string  `json:"status"`
				PaidAmount       float64 `json:"paid_amount"`
				EventDescription string  `json:"event_description"`
			} `json:"policy"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.Policy.Status != "paid" || resp.Policy.PaidAmount != 10 {
			t.Fatalf("unexpected policy after payout: %s", string(body))
		}
		if resp.Policy.EventDescription != "storm over the city" {
			t.Fatalf("expected event description stamped, got %s", string(body))
		}
	}

	// 6) Notificaciones: ownerA ve su payout reciente
	{
		st, body := doReq(t, ts.URL, "GET", "/policies/notifications", ownerA, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 notifications, got %d body=%s", st, string(body))
		}
		var resp struct {
			Notifications []struct {
				PolicyID string  `json:"policy_id"`
				Amount   float64 `json:"amount"`
				Type     string  `json:"type"`
			} `json:"notifications"`
		}
		mustUnmarshal(t, body, &resp)
		if len(resp.Notifications) != 1 || resp.Notifications[0].PolicyID != rainA || resp.Notifications[0].Amount != 10 {
			t.Fatalf("unexpected notifications: %s", string(body))
		}
	}

	// 7) Segunda lluvia: nadie cobra dos veces
	{
		st, body := doReq(t, ts.URL, "POST", "/admin/simulate-event", admin, "admin", map[string]any{
			"eventType": "rain",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 simulate #2, got %d", st)
		}
		var resp struct {
			AffectedUsers int     `json:"affectedUsers"`
			TotalPayout   float64 `json:"totalPayout"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.AffectedUsers != 0 || resp.TotalPayout != 0 {
			t.Fatalf("second rain must pay nothing: %s", string(body))
		}
	}

	// 8) Evento fake: bloqueado, cero efecto
	{
		st, body := doReq(t, ts.URL, "POST", "/admin/simulate-event", admin, "admin", map[string]any{
			"eventType":   "fake",
			"description": "manual claim",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 fake event, got %d", st)
		}
		var resp struct {
			EventType string `json:"eventType"`
			Event     struct {
				IsBlocked bool `json:"is_blocked"`
			} `json:"event"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.EventType != "fraud_blocked" || !resp.Event.IsBlocked {
			t.Fatalf("expected fraud_blocked event: %s", string(body))
		}
	}

	// 9) Tipo inválido => 400
	{
		st, _ := doReq(t, ts.URL, "POST", "/admin/simulate-event", admin, "admin", map[string]any{
			"eventType": "earthquake",
		})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 invalid event type, got %d", st)
		}
	}

	// 10) Log de eventos: rain x2 + fake, distinguibles
	{
		st, body := doReq(t, ts.URL, "GET", "/admin/events", admin, "admin", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 events log, got %d", st)
		}
		var resp struct {
			Events []struct {
				EventType         string   `json:"event_type"`
				IsBlocked         bool     `json:"is_blocked"`
				AffectedPolicyIDs []string `json:"affected_policy_ids"`
			} `json:"events"`
		}
		mustUnmarshal(t, body, &resp)
		if len(resp.Events) != 3 {
			t.Fatalf("expected 3 events in log, got %d", len(resp.Events))
		}
		blocked := 0
		for _, e := range resp.Events {
			if e.IsBlocked {
				blocked++
				if e.EventType != "fake" {
					t.Fatalf("only fake events may be blocked: %#v", e)
				}
			}
		}
		if blocked != 1 {
			t.Fatalf("expected exactly 1 blocked event, got %d", blocked)
		}
	}
}

func TestHTTP_CancelBeatsLaterPayout(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	owner := "owner-1"
	admin := "admin-1"

	policyID := purchasePolicy(t, ts.URL, owner, "Traffic Jam Cover", 15)

	// cancelar primero
	{
		st, body := doReq(t, ts.URL, "PUT", "/policies/user/"+policyID+"/cancel", owner, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 cancel, got %d body=%s", st, string(body))
		}
	}

	// re-cancelar: estado terminal => 409
	{
		st, _ := doReq(t, ts.URL, "PUT", "/policies/user/"+policyID+"/cancel", owner, "", nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 re-cancel, got %d", st)
		}
	}

	// un evento traffic posterior no toca la póliza cancelada
	{
		st, body := doReq(t, ts.URL, "POST", "/admin/simulate-event", admin, "admin", map[string]any{
			"eventType": "traffic",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 simulate, got %d", st)
		}
		var resp struct {
			AffectedUsers int `json:"affectedUsers"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.AffectedUsers != 0 {
			t.Fatalf("cancelled policy must not be paid: %s", string(body))
		}
	}
}

func TestHTTP_PurchaseValidation(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	// tipo fuera del catálogo => 400
	st, _ := doReq(t, ts.URL, "POST", "/policies/purchase", "owner-1", "", map[string]any{
		"policyType": "Meteor Cover",
		"price":      10,
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown policy type, got %d", st)
	}

	// precio fuera de rango => 400
	st, _ = doReq(t, ts.URL, "POST", "/policies/purchase", "owner-1", "", map[string]any{
		"policyType": "Rain Delay Cover",
		"price":      5000,
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range price, got %d", st)
	}
}

func purchasePolicy(t *testing.T, baseURL, userID, policyType string, price float64) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/policies/purchase", userID, "", map[string]any{
		"policyType": policyType,
		"policyName": policyType,
		"price":      price,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 purchase, got %d body=%s", st, string(body))
	}

	var resp struct {
		Policy struct {
			ID string `json:"id"`
		} `json:"policy"`
	}
	mustUnmarshal(t, body, &resp)
	if resp.Policy.ID == "" {
		t.Fatalf("purchase: missing id body=%s", string(body))
	}
	return resp.Policy.ID
}

func mustUnmarshal(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("json unmarshal: %v body=%s", err, string(body))
	}
}

func doReq(t *testing.T, baseURL, method, path, debugUserID, debugRole string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}
	if debugRole != "" {
		req.Header.Set("X-Debug-Role", debugRole)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
