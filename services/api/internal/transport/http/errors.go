package http

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeValidation         = "validation_failed"
	codeForbidden          = "forbidden"
	codeInvalidTransition  = "invalid_state_transition"
	codeConcurrentUpdate   = "concurrent_modification"
	codeDuplicateOrder     = "duplicate_order"
	codeSellerNotFound     = "seller_not_found"
	codeLedgerFailed       = "ledger_operation_failed"
	codeLedgerEventMissing = "ledger_event_missing"
	codeRateLimited        = "rate_limited"
	codeInternalError      = "internal_error"
)

const (
	retryAfterSeconds    = "1"
	headerRetryAfter     = "Retry-After"
	headerContentType    = "Content-Type"
	contentTypeJSON      = "application/json"
	internalErrorPayload = `{"error":"internal error","code":"internal_error","retryable":false}`
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	if resp.Retryable {
		w.Header().Set(headerRetryAfter, retryAfterSeconds)
	}
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(internalErrorPayload))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps an engine error to its status category. Unknown
// errors are reported as internal without leaking their text.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeErrorResponse(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		Retryable: domain.Retryable(err),
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, domain.ErrSellerNotFound):
		return http.StatusNotFound, codeSellerNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return http.StatusConflict, codeInvalidTransition
	case errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict, codeConcurrentUpdate
	case errors.Is(err, domain.ErrDuplicateOrder):
		return http.StatusConflict, codeDuplicateOrder
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, domain.ErrLedgerEventMissing):
		return http.StatusBadGateway, codeLedgerEventMissing
	case errors.Is(err, domain.ErrLedgerOperationFailed):
		return http.StatusBadGateway, codeLedgerFailed
	default:
		return http.StatusInternalServerError, codeInternalError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
