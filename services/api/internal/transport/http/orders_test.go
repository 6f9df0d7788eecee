package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/app"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/ledger"
)

var testNow = time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC)

func sampleOrder(status domain.Status) domain.Order {
	order := domain.NewOrder(domain.NewOrderParams{
		ID:           "order-1",
		Buyer:        "buyer-1",
		Seller:       "seller-1",
		Details:      "500 bags of rice",
		FiatAmount:   decimal.NewFromInt(10000),
		ExchangeRate: decimal.RequireFromString("0.012"),
		LedgerTxRef:  "0xabc",
		CreatedAt:    testNow,
	})
	order.Status = status
	return order
}

type stubOrderService struct {
	order      domain.Order
	orders     []domain.Order
	err        error
	mode       ledger.Mode
	gotActor   *domain.Actor
	gotInput   app.CreateOrderInput
	gotLimit   int
	gotID      string
	gotTrans   domain.Transition
	gotStatus  domain.Status
	transCalls int
}

func (s *stubOrderService) CreateOrder(_ context.Context, actor *domain.Actor, in app.CreateOrderInput) (domain.Order, error) {
	s.gotActor, s.gotInput = actor, in
	return s.order, s.err
}

func (s *stubOrderService) ListOrders(_ context.Context, actor *domain.Actor, limit int) ([]domain.Order, error) {
	s.gotActor, s.gotLimit = actor, limit
	return s.orders, s.err
}

func (s *stubOrderService) GetOrder(_ context.Context, actor *domain.Actor, id string) (domain.Order, error) {
	s.gotActor, s.gotID = actor, id
	return s.order, s.err
}

func (s *stubOrderService) Transition(_ context.Context, actor *domain.Actor, id string, t domain.Transition) (domain.Order, error) {
	s.gotActor, s.gotID, s.gotTrans = actor, id, t
	s.transCalls++
	return s.order, s.err
}

func (s *stubOrderService) ForceStatus(_ context.Context, actor *domain.Actor, id string, status domain.Status) (domain.Order, error) {
	s.gotActor, s.gotID, s.gotStatus = actor, id, status
	return s.order, s.err
}

func (s *stubOrderService) LedgerMode() ledger.Mode { return s.mode }

func serve(h http.Handler, method, path, body string, actor *domain.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if actor != nil {
		req.Header.Set(HeaderActorID, actor.ID)
		req.Header.Set(HeaderActorRole, string(actor.Role))
	}
	rec := httptest.NewRecorder()
	WithActor(h).ServeHTTP(rec, req)
	return rec
}

func TestHandleOrders_Create(t *testing.T) {
	t.Parallel()

	buyer := &domain.Actor{ID: "buyer-1", Role: domain.RoleBuyer}

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedCode   string
		expectedSubstr string
	}{
		{
			name:           "created",
			body:           `{"sellerId":"seller-1","details":"500 bags of rice","fiatAmount":"10000"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"settlementAmount":"120"`,
		},
		{
			name:           "numeric amount",
			body:           `{"sellerId":"seller-1","details":"rice","fiatAmount":10000}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unknown field",
			body:           `{"seller":"seller-1"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidRequestBody,
		},
		{
			name:           "malformed json",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidRequestBody,
		},
		{
			name:           "validation",
			body:           `{"sellerId":"","details":"rice","fiatAmount":"1"}`,
			serviceErr:     &domain.ValidationError{Field: "sellerId", Reason: "is required"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeValidation,
		},
		{
			name:           "seller not found",
			body:           `{"sellerId":"ghost","details":"rice","fiatAmount":"1"}`,
			serviceErr:     domain.ErrSellerNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   codeSellerNotFound,
		},
		{
			name:           "ledger failure",
			body:           `{"sellerId":"seller-1","details":"rice","fiatAmount":"1"}`,
			serviceErr:     domain.ErrLedgerOperationFailed,
			expectedStatus: http.StatusBadGateway,
			expectedCode:   codeLedgerFailed,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubOrderService{order: sampleOrder(domain.StatusCreated), err: tt.serviceErr}
			rec := serve(HandleOrders(svc), http.MethodPost, "/orders", tt.body, buyer)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedCode != "" {
				var resp errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode error response: %v", err)
				}
				if resp.Code != tt.expectedCode {
					t.Fatalf("expected code %s, got %s", tt.expectedCode, resp.Code)
				}
				return
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected body to contain %q, got %s", tt.expectedSubstr, rec.Body.String())
			}
			if svc.gotActor == nil || svc.gotActor.ID != "buyer-1" {
				t.Fatalf("expected actor buyer-1, got %+v", svc.gotActor)
			}
			if svc.gotInput.SellerID != "seller-1" || !svc.gotInput.FiatAmount.Equal(decimal.NewFromInt(10000)) {
				t.Fatalf("unexpected input %+v", svc.gotInput)
			}
		})
	}
}

func TestHandleOrders_List(t *testing.T) {
	t.Parallel()

	seller := &domain.Actor{ID: "seller-1", Role: domain.RoleSeller}
	svc := &stubOrderService{orders: []domain.Order{sampleOrder(domain.StatusFunded)}}

	rec := serve(HandleOrders(svc), http.MethodGet, "/orders?limit=5", "", seller)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp []orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].OrderID != "order-1" || resp[0].Status != "funded" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if svc.gotLimit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.gotLimit)
	}

	rec = serve(HandleOrders(&stubOrderService{}), http.MethodGet, "/orders", "", seller)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(HandleOrders(svc), http.MethodGet, "/orders?limit=abc", "", seller)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad limit, got %d", rec.Code)
	}

	rec = serve(HandleOrders(svc), http.MethodDelete, "/orders", "", seller)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestHandleOrder(t *testing.T) {
	t.Parallel()

	buyer := &domain.Actor{ID: "buyer-1", Role: domain.RoleBuyer}

	tests := []struct {
		name           string
		method         string
		path           string
		serviceErr     error
		expectedStatus int
		expectedTrans  domain.Transition
		retryable      bool
	}{
		{name: "get", method: http.MethodGet, path: "/orders/order-1", expectedStatus: http.StatusOK},
		{name: "get forbidden", method: http.MethodGet, path: "/orders/order-1", serviceErr: domain.ErrUnauthorized, expectedStatus: http.StatusForbidden},
		{name: "get missing", method: http.MethodGet, path: "/orders/order-9", serviceErr: domain.ErrNotFound, expectedStatus: http.StatusNotFound},
		{name: "fund", method: http.MethodPost, path: "/orders/order-1/fund", expectedStatus: http.StatusOK, expectedTrans: domain.TransitionFund},
		{name: "start with put", method: http.MethodPut, path: "/orders/order-1/start", expectedStatus: http.StatusOK, expectedTrans: domain.TransitionStart},
		{name: "complete", method: http.MethodPost, path: "/orders/order-1/complete", expectedStatus: http.StatusOK, expectedTrans: domain.TransitionComplete},
		{name: "dispute", method: http.MethodPost, path: "/orders/order-1/dispute", expectedStatus: http.StatusOK, expectedTrans: domain.TransitionDispute},
		{name: "refund", method: http.MethodPost, path: "/orders/order-1/refund", expectedStatus: http.StatusOK, expectedTrans: domain.TransitionRefund},
		{
			name: "invalid transition", method: http.MethodPost, path: "/orders/order-1/complete",
			serviceErr:     &domain.TransitionError{Current: domain.StatusCreated, Requested: domain.TransitionComplete},
			expectedStatus: http.StatusConflict, expectedTrans: domain.TransitionComplete,
		},
		{
			name: "concurrent modification", method: http.MethodPost, path: "/orders/order-1/fund",
			serviceErr:     domain.ErrConcurrentModification,
			expectedStatus: http.StatusConflict, expectedTrans: domain.TransitionFund, retryable: true,
		},
		{
			name: "ledger failure", method: http.MethodPost, path: "/orders/order-1/fund",
			serviceErr:     domain.ErrLedgerOperationFailed,
			expectedStatus: http.StatusBadGateway, expectedTrans: domain.TransitionFund, retryable: true,
		},
		{name: "unknown action", method: http.MethodPost, path: "/orders/order-1/cancel", expectedStatus: http.StatusNotFound},
		{name: "transition with get", method: http.MethodGet, path: "/orders/order-1/fund", expectedStatus: http.StatusMethodNotAllowed},
		{name: "too deep", method: http.MethodGet, path: "/orders/order-1/fund/now", expectedStatus: http.StatusNotFound},
		{name: "missing id", method: http.MethodGet, path: "/orders/", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubOrderService{order: sampleOrder(domain.StatusFunded), err: tt.serviceErr}
			rec := serve(HandleOrder(svc, svc), tt.method, tt.path, "", buyer)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if svc.gotTrans != tt.expectedTrans {
				t.Fatalf("expected transition %q, got %q", tt.expectedTrans, svc.gotTrans)
			}
			if got := rec.Header().Get("Retry-After") != ""; got != tt.retryable {
				t.Fatalf("expected Retry-After present=%v, got %v", tt.retryable, got)
			}
			if tt.serviceErr != nil {
				var resp errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode error response: %v", err)
				}
				if resp.Retryable != tt.retryable {
					t.Fatalf("expected retryable=%v, got %v", tt.retryable, resp.Retryable)
				}
			}
		})
	}
}

func TestHandleOrder_ForceStatus(t *testing.T) {
	t.Parallel()

	admin := &domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	svc := &stubOrderService{order: sampleOrder(domain.StatusRefunded)}
	rec := serve(HandleOrder(svc, svc), http.MethodPut, "/orders/order-1/status", `{"status":"inProgress"}`, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotStatus != domain.StatusInProgress || svc.gotID != "order-1" {
		t.Fatalf("unexpected call: status=%s id=%s", svc.gotStatus, svc.gotID)
	}
	if svc.transCalls != 0 {
		t.Fatalf("expected no table transition")
	}

	svc = &stubOrderService{err: &domain.ValidationError{Field: "status", Reason: "unknown"}}
	rec = serve(HandleOrder(svc, svc), http.MethodPut, "/orders/order-1/status", `{"status":"cancelled"}`, admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if svc.gotStatus != domain.Status("cancelled") {
		t.Fatalf("expected raw status passed through, got %q", svc.gotStatus)
	}

	rec = serve(HandleOrder(svc, svc), http.MethodPost, "/orders/order-1/status", `{"status":"funded"}`, admin)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestHandleLedgerMode(t *testing.T) {
	t.Parallel()

	svc := &stubOrderService{mode: ledger.Mode{Enabled: false, Reason: "no endpoint configured"}}
	rec := serve(HandleLedgerMode(svc), http.MethodGet, "/ledger", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var mode ledger.Mode
	if err := json.NewDecoder(rec.Body).Decode(&mode); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if mode.Enabled || mode.Reason != "no endpoint configured" {
		t.Fatalf("unexpected mode %+v", mode)
	}
}

func TestWithActor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		role    string
		wantNil bool
	}{
		{name: "buyer", id: "buyer-1", role: "buyer"},
		{name: "role is case insensitive", id: "admin-1", role: "Admin"},
		{name: "missing id", role: "buyer", wantNil: true},
		{name: "unknown role", id: "x", role: "auditor", wantNil: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got *domain.Actor
			h := WithActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = actorFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			req.Header.Set(HeaderActorID, tt.id)
			req.Header.Set(HeaderActorRole, tt.role)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected no actor, got %+v", got)
				}
				return
			}
			if got == nil || got.ID != tt.id {
				t.Fatalf("expected actor %s, got %+v", tt.id, got)
			}
		})
	}
}
