package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"vledger/internal/domain"
	"vledger/internal/event"
	"vledger/internal/identity"
	"vledger/internal/ledger"
	"vledger/internal/limits"
	"vledger/internal/usage"
	"vledger/pkg/logger"
)

// QueryHandler serves the read-only surface: identity status, validity, the
// enforcement flag, balances, currencies, and the event log. None of these
// mutate state.
type QueryHandler struct {
	identity *identity.Service
	enforcer *limits.Enforcer
	ledger   *ledger.Service
	usage    *usage.Tracker
	events   *event.Recorder
	logger   logger.Logger
}

func NewQueryHandler(identitySvc *identity.Service, enforcer *limits.Enforcer, ledgerSvc *ledger.Service, tracker *usage.Tracker, events *event.Recorder, log logger.Logger) *QueryHandler {
	return &QueryHandler{
		identity: identitySvc,
		enforcer: enforcer,
		ledger:   ledgerSvc,
		usage:    tracker,
		events:   events,
		logger:   log,
	}
}

// GetIdentity returns an account's projected status and tier.
func (h *QueryHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	record, err := h.identity.Get(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": record.AccountID,
		"status":     record.Status,
		"tier":       record.Tier,
	})
}

// GetValidity reports whether the account is currently compliant.
func (h *QueryHandler) GetValidity(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	valid, err := h.identity.IsValid(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": accountID,
		"valid":      valid,
	})
}

// GetUsage returns the account's live rolling-window usage; a lapsed window
// reads as zero.
func (h *QueryHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	used, err := h.usage.CurrentUsage(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": accountID,
		"used_today": used,
	})
}

// GetEnforcement reports the global enforcement flag.
func (h *QueryHandler) GetEnforcement(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": h.enforcer.Enabled(),
	})
}

// GetBalance returns one account balance in one currency.
func (h *QueryHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}
	currency := domain.Currency(mux.Vars(r)["currency"])

	amount, err := h.ledger.Balance(r.Context(), accountID, currency)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": accountID,
		"currency":   currency,
		"amount":     amount,
	})
}

// ListBalances returns every balance the account holds.
func (h *QueryHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	balances, err := h.ledger.Balances(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": accountID,
		"balances":   balances,
		"count":      len(balances),
	})
}

// ListCurrencies returns the registered currency codes.
func (h *QueryHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.ledger.Currencies(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"currencies": currencies,
		"count":      len(currencies),
	})
}

// ListEvents returns recent transition events, newest first.
func (h *QueryHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	events, err := h.events.Recent(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  limit,
		"offset": offset,
	})
}

func pathAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	accountID, err := uuid.Parse(mux.Vars(r)["account_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return uuid.Nil, false
	}
	return accountID, true
}
