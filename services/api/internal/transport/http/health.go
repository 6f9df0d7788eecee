package http

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
	Ledger bool   `json:"ledger"`
}

// HandleHealth reports liveness and whether the ledger is enabled. A
// disabled ledger is a degraded mode, not a failure.
func HandleHealth(svc LedgerModeReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Ledger: svc.LedgerMode().Enabled})
	}
}
