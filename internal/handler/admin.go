package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"vledger/internal/authorize"
	"vledger/internal/domain"
	"vledger/internal/identity"
	"vledger/internal/ledger"
	"vledger/internal/limits"
	"vledger/internal/middleware"
	"vledger/pkg/logger"
	"vledger/pkg/validator"
)

// AdminHandler exposes the administrative surface: identity lifecycle,
// enforcement toggle, currency registration, issue and redeem. Every
// operation re-checks the caller's privilege in the service layer.
type AdminHandler struct {
	identity  *identity.Service
	enforcer  *limits.Enforcer
	ledger    *ledger.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewAdminHandler(identitySvc *identity.Service, enforcer *limits.Enforcer, ledgerSvc *ledger.Service, val *validator.Validator, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		identity:  identitySvc,
		enforcer:  enforcer,
		ledger:    ledgerSvc,
		validator: val,
		logger:    log,
	}
}

type updateIdentityRequest struct {
	Status    domain.VerificationStatus `json:"status" validate:"required,oneof=unverified pending approved suspended expired"`
	Tier      domain.Tier               `json:"tier" validate:"required,oneof=none basic enhanced premium"`
	Reference string                    `json:"reference"`
	ExpiresAt *time.Time                `json:"expires_at,omitempty"`
}

// UpdateIdentity overwrites an account's verification record.
func (h *AdminHandler) UpdateIdentity(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID, err := uuid.Parse(mux.Vars(r)["account_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	var req updateIdentityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.identity.Update(r.Context(), caller, &identity.UpdateRequest{
		AccountID: accountID,
		Status:    req.Status,
		Tier:      req.Tier,
		Reference: req.Reference,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// SuspendIdentity forces an account's status to suspended.
func (h *AdminHandler) SuspendIdentity(w http.ResponseWriter, r *http.Request) {
	h.setIdentityStatus(w, r, h.identity.Suspend)
}

// ReinstateIdentity returns a suspended account to approved.
func (h *AdminHandler) ReinstateIdentity(w http.ResponseWriter, r *http.Request) {
	h.setIdentityStatus(w, r, h.identity.Reinstate)
}

func (h *AdminHandler) setIdentityStatus(w http.ResponseWriter, r *http.Request, op func(context.Context, authorize.Caller, uuid.UUID) error) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID, err := uuid.Parse(mux.Vars(r)["account_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	if err := op(r.Context(), caller, accountID); err != nil {
		respondServiceError(w, err)
		return
	}

	record, err := h.identity.Get(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type setEnforcementRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SetEnforcement turns global compliance enforcement on or off.
func (h *AdminHandler) SetEnforcement(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req setEnforcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.enforcer.SetEnabled(r.Context(), caller, *req.Enabled); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"enabled": *req.Enabled})
}

type registerCurrencyRequest struct {
	Code domain.Currency `json:"code" validate:"required,currency_code"`
}

// RegisterCurrency adds a currency to the registry. Re-registering is a
// no-op success.
func (h *AdminHandler) RegisterCurrency(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req registerCurrencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.Register(r.Context(), caller, req.Code); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"code": req.Code})
}

type mintRequest struct {
	AccountID uuid.UUID       `json:"account_id" validate:"required"`
	Currency  domain.Currency `json:"currency" validate:"required,currency_code"`
	Amount    decimal.Decimal `json:"amount" validate:"positive_amount"`
}

// Issue mints new units into an account.
func (h *AdminHandler) Issue(w http.ResponseWriter, r *http.Request) {
	h.mintOp(w, r, h.ledger.Issue)
}

// Redeem burns units from an account.
func (h *AdminHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	h.mintOp(w, r, h.ledger.Redeem)
}

func (h *AdminHandler) mintOp(w http.ResponseWriter, r *http.Request, op func(context.Context, authorize.Caller, uuid.UUID, domain.Currency, decimal.Decimal) error) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req mintRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := op(r.Context(), caller, req.AccountID, req.Currency, req.Amount); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": req.AccountID,
		"currency":   req.Currency,
		"amount":     req.Amount,
	})
}
