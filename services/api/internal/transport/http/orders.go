package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/app"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

const maxBodyBytes = 1 << 20

// OrderCollectionService is the minimal interface needed for /orders.
type OrderCollectionService interface {
	CreateOrder(ctx context.Context, actor *domain.Actor, in app.CreateOrderInput) (domain.Order, error)
	ListOrders(ctx context.Context, actor *domain.Actor, limit int) ([]domain.Order, error)
}

// OrderResourceService is the minimal interface needed for /orders/{id} and
// its transition routes.
type OrderResourceService interface {
	GetOrder(ctx context.Context, actor *domain.Actor, id string) (domain.Order, error)
	Transition(ctx context.Context, actor *domain.Actor, id string, t domain.Transition) (domain.Order, error)
}

// HandleOrders returns an HTTP handler for creating and listing orders.
func HandleOrders(svc OrderCollectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			limit := 0
			if raw := r.URL.Query().Get("limit"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 0 {
					writeError(w, http.StatusBadRequest, codeValidation, "limit must be a non-negative integer")
					return
				}
				limit = n
			}

			orders, err := svc.ListOrders(r.Context(), actorFromContext(r.Context()), limit)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			resp := make([]orderResponse, 0, len(orders))
			for _, order := range orders {
				resp = append(resp, newOrderResponse(order))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			var req createOrderRequest
			if err := decodeBody(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			order, err := svc.CreateOrder(r.Context(), actorFromContext(r.Context()), app.CreateOrderInput{
				SellerID:   req.SellerID,
				Details:    req.Details,
				FiatAmount: req.FiatAmount,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, newOrderResponse(order))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleOrder returns an HTTP handler for a single order: reads, lifecycle
// transitions and the admin status override.
func HandleOrder(svc OrderResourceService, admin StatusForcer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, action, ok := parseOrderPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		actor := actorFromContext(r.Context())

		if action == "" {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			order, err := svc.GetOrder(r.Context(), actor, id)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, newOrderResponse(order))
			return
		}

		// Older clients issue transitions with PUT.
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		if action == "status" {
			handleForceStatus(w, r, admin, actor, id)
			return
		}

		transition, ok := domain.ParseTransition(action)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		order, err := svc.Transition(r.Context(), actor, id, transition)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

// parseOrderPath splits /orders/{id}[/{action}].
func parseOrderPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "orders" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 3 {
		if parts[2] == "" {
			return "", "", false
		}
		action = parts[2]
	}
	return parts[1], action, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

type createOrderRequest struct {
	SellerID   string          `json:"sellerId"`
	Details    string          `json:"details"`
	FiatAmount decimal.Decimal `json:"fiatAmount"`
}

type orderResponse struct {
	OrderID          string     `json:"orderId"`
	Buyer            string     `json:"buyer"`
	Seller           string     `json:"seller"`
	Status           string     `json:"status"`
	Details          string     `json:"details"`
	FiatAmount       string     `json:"fiatAmount"`
	SettlementAmount string     `json:"settlementAmount"`
	ExchangeRate     string     `json:"exchangeRate"`
	FundedAmount     string     `json:"fundedAmount"`
	LedgerTxRef      string     `json:"ledgerTxRef"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	CompletedAt      *time.Time `json:"completedAt"`
}

func newOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		OrderID:          o.ID,
		Buyer:            o.Buyer,
		Seller:           o.Seller,
		Status:           string(o.Status),
		Details:          o.Details,
		FiatAmount:       o.FiatAmount.String(),
		SettlementAmount: o.SettlementAmount.String(),
		ExchangeRate:     o.ExchangeRate.String(),
		FundedAmount:     o.FundedAmount.String(),
		LedgerTxRef:      o.LedgerTxRef,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		CompletedAt:      o.CompletedAt,
	}
}
