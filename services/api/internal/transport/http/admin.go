package http

import (
	"context"
	"net/http"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/ledger"
)

// StatusForcer is the minimal interface needed for the admin status override.
type StatusForcer interface {
	ForceStatus(ctx context.Context, actor *domain.Actor, id string, status domain.Status) (domain.Order, error)
}

// LedgerModeReporter is the minimal interface needed for GET /ledger.
type LedgerModeReporter interface {
	LedgerMode() ledger.Mode
}

type forceStatusRequest struct {
	Status string `json:"status"`
}

// handleForceStatus serves PUT /orders/{id}/status.
func handleForceStatus(w http.ResponseWriter, r *http.Request, svc StatusForcer, actor *domain.Actor, id string) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	var req forceStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	// Unknown names pass through so the engine reports the validation error.
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		status = domain.Status(req.Status)
	}

	order, err := svc.ForceStatus(r.Context(), actor, id, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// HandleLedgerMode reports whether lifecycle operations reach the ledger.
func HandleLedgerMode(svc LedgerModeReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, svc.LedgerMode())
	}
}
