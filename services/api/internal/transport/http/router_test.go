package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/app"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/clock"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/ledger"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/rates"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/storage/pebblestore"
)

func newTestRouter(t *testing.T) (http.Handler, *clock.Manual) {
	t.Helper()

	store, err := pebblestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for _, u := range []domain.User{
		{ID: "buyer-1", Role: domain.RoleBuyer},
		{ID: "buyer-2", Role: domain.RoleBuyer},
		{ID: "seller-1", Role: domain.RoleSeller, PayoutDetails: map[string]string{"iban": "DE00"}},
	} {
		if err := store.PutUser(ctx, u); err != nil {
			t.Fatalf("put user: %v", err)
		}
	}

	rate, err := rates.NewStatic(rates.DefaultRate)
	if err != nil {
		t.Fatalf("static rate: %v", err)
	}
	clk := clock.NewManual(testNow)
	orders := app.NewOrderService(store, store, ledger.NewLocal("disabled in tests"), rate, clk)
	admin := app.NewAdminService(store, store, store, clk)

	return NewRouter(RouterConfig{
		Orders:      orders,
		Admin:       admin,
		CORSOrigins: []string{"*"},
		Logger:      zerolog.Nop(),
	}), clk
}

func call(t *testing.T, h http.Handler, method, path, body, actorID, role string) (*httptest.ResponseRecorder, orderResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if actorID != "" {
		req.Header.Set(HeaderActorID, actorID)
		req.Header.Set(HeaderActorRole, role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp orderResponse
	if rec.Code < 300 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestRouter_OrderLifecycle(t *testing.T) {
	h, clk := newTestRouter(t)

	rec, created := call(t, h, http.MethodPost, "/orders",
		`{"sellerId":"seller-1","details":"500 bags of rice","fiatAmount":"10000"}`, "buyer-1", "buyer")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if created.Status != "created" || created.SettlementAmount != "120" || created.ExchangeRate != "0.012" {
		t.Fatalf("unexpected created order %+v", created)
	}
	if created.LedgerTxRef != "" {
		t.Fatalf("expected no ledger ref with the ledger disabled, got %q", created.LedgerTxRef)
	}
	id := created.OrderID

	steps := []struct {
		path   string
		actor  string
		role   string
		status int
		want   string
	}{
		{"/orders/" + id + "/complete", "buyer-1", "buyer", http.StatusConflict, ""},
		{"/orders/" + id + "/fund", "buyer-2", "buyer", http.StatusForbidden, ""},
		{"/orders/" + id + "/fund", "buyer-1", "buyer", http.StatusOK, "funded"},
		{"/orders/" + id + "/fund", "buyer-1", "buyer", http.StatusConflict, ""},
		{"/orders/" + id + "/start", "seller-1", "seller", http.StatusOK, "in_progress"},
		{"/orders/" + id + "/dispute", "seller-1", "seller", http.StatusOK, "disputed"},
		{"/orders/" + id + "/refund", "seller-1", "seller", http.StatusOK, "refunded"},
		{"/orders/" + id + "/refund", "seller-1", "seller", http.StatusConflict, ""},
	}
	for _, step := range steps {
		clk.Advance(time.Minute)
		rec, order := call(t, h, http.MethodPost, step.path, "", step.actor, step.role)
		if rec.Code != step.status {
			t.Fatalf("%s as %s: expected %d, got %d (%s)", step.path, step.actor, step.status, rec.Code, rec.Body.String())
		}
		if step.want != "" && order.Status != step.want {
			t.Fatalf("%s: expected status %s, got %s", step.path, step.want, order.Status)
		}
	}

	rec, got := call(t, h, http.MethodGet, "/orders/"+id, "", "seller-1", "seller")
	if rec.Code != http.StatusOK || got.FundedAmount != "120" || got.Status != "refunded" {
		t.Fatalf("unexpected final order %d %+v", rec.Code, got)
	}
	if !got.CreatedAt.Equal(testNow) || !got.UpdatedAt.After(got.CreatedAt) || got.CompletedAt != nil {
		t.Fatalf("unexpected timestamps %v %v %v", got.CreatedAt, got.UpdatedAt, got.CompletedAt)
	}

	rec, _ = call(t, h, http.MethodGet, "/orders/"+id, "", "buyer-2", "buyer")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected unrelated buyer forbidden, got %d", rec.Code)
	}

	forcedAt := clk.Advance(time.Minute)
	rec, forced := call(t, h, http.MethodPut, "/orders/"+id+"/status", `{"status":"completed"}`, "admin-1", "admin")
	if rec.Code != http.StatusOK || forced.Status != "completed" || forced.CompletedAt == nil {
		t.Fatalf("unexpected forced order %d %+v", rec.Code, forced)
	}
	if !forced.CompletedAt.Equal(forcedAt) || !forced.UpdatedAt.Equal(forcedAt) {
		t.Fatalf("expected completion stamped at %v, got %+v", forcedAt, forced)
	}

	rec, _ = call(t, h, http.MethodPut, "/orders/"+id+"/status", `{"status":"funded"}`, "seller-1", "seller")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected seller override forbidden, got %d", rec.Code)
	}
}

func TestRouter_ListAndAuxiliaryRoutes(t *testing.T) {
	h, _ := newTestRouter(t)

	for i := 0; i < 2; i++ {
		rec, _ := call(t, h, http.MethodPost, "/orders",
			`{"sellerId":"seller-1","details":"rice","fiatAmount":"100"}`, "buyer-1", "buyer")
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: expected 201, got %d", rec.Code)
		}
	}

	list := func(actor, role string) []orderResponse {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(HeaderActorID, actor)
		req.Header.Set(HeaderActorRole, role)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("list as %s: expected 200, got %d", actor, rec.Code)
		}
		var out []orderResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		return out
	}
	if n := len(list("buyer-1", "buyer")); n != 2 {
		t.Fatalf("expected 2 orders for buyer-1, got %d", n)
	}
	if n := len(list("buyer-2", "buyer")); n != 0 {
		t.Fatalf("expected 0 orders for buyer-2, got %d", n)
	}
	if n := len(list("admin-1", "admin")); n != 2 {
		t.Fatalf("expected 2 orders for admin, got %d", n)
	}

	rec, _ := call(t, h, http.MethodGet, "/orders", "", "", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected anonymous list forbidden, got %d", rec.Code)
	}

	rec, _ = call(t, h, http.MethodGet, "/ledger", "", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"enabled":false`) {
		t.Fatalf("unexpected ledger mode %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = call(t, h, http.MethodGet, "/health", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rec.Code)
	}

	rec, _ = call(t, h, http.MethodGet, "/nope", "", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
