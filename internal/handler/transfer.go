package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vledger/internal/domain"
	"vledger/internal/middleware"
	"vledger/internal/transfer"
	"vledger/pkg/logger"
	"vledger/pkg/validator"
)

// TransferHandler is the compliance-gated transfer endpoint. The sender is
// always the authenticated caller.
type TransferHandler struct {
	service   *transfer.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewTransferHandler(service *transfer.Service, val *validator.Validator, log logger.Logger) *TransferHandler {
	return &TransferHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

type transferRequest struct {
	RecipientID uuid.UUID       `json:"recipient_id" validate:"required"`
	Currency    domain.Currency `json:"currency" validate:"required,currency_code"`
	Amount      decimal.Decimal `json:"amount" validate:"positive_amount"`
}

func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Transfer(r.Context(), caller.ID, req.RecipientID, req.Currency, req.Amount); err != nil {
		h.logger.Warn("Transfer rejected", map[string]interface{}{
			"sender_id":    caller.ID,
			"recipient_id": req.RecipientID,
			"currency":     req.Currency,
			"amount":       req.Amount.String(),
			"error":        err.Error(),
		})
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sender_id":    caller.ID,
		"recipient_id": req.RecipientID,
		"currency":     req.Currency,
		"amount":       req.Amount,
	})
}
