package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"vledger/internal/conversion"
	"vledger/internal/domain"
	"vledger/internal/middleware"
	"vledger/pkg/logger"
	"vledger/pkg/validator"
)

// ConvertHandler exchanges the caller's own balance between currencies.
type ConvertHandler struct {
	service   *conversion.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewConvertHandler(service *conversion.Service, val *validator.Validator, log logger.Logger) *ConvertHandler {
	return &ConvertHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

type convertRequest struct {
	FromCurrency domain.Currency `json:"from_currency" validate:"required,currency_code"`
	ToCurrency   domain.Currency `json:"to_currency" validate:"required,currency_code"`
	Amount       decimal.Decimal `json:"amount" validate:"positive_amount"`
}

func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req convertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Convert(r.Context(), caller.ID, req.FromCurrency, req.ToCurrency, req.Amount)
	if err != nil {
		h.logger.Warn("Conversion rejected", map[string]interface{}{
			"account_id":    caller.ID,
			"from_currency": req.FromCurrency,
			"to_currency":   req.ToCurrency,
			"amount":        req.Amount.String(),
			"error":         err.Error(),
		})
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
