package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"upi-pay-simulator-go/internal/session"
	"upi-pay-simulator-go/internal/transfer"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc        *PaymentService
	adminToken string
}

func NewHandler(svc *PaymentService, adminToken string) *Handler {
	return &Handler{svc: svc, adminToken: adminToken}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			Success: false,
			Message: "database unavailable",
			Error:   &errorBody{Code: "UNAVAILABLE", Reason: "Database unavailable", Retryable: true},
		})
		return
	}
	respond(w, http.StatusOK, "ok", map[string]string{"status": "healthy"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	profile, err := h.svc.Register(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Registration failed", nil)
		return
	}
	respond(w, http.StatusCreated, "Account created", profile)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Login failed", nil)
		return
	}
	respond(w, http.StatusOK, "Login successful", result)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), session.BearerToken(r)); err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetProfile(r.Context(), callerId(r))
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", profile)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.GetBalance(r.Context(), callerId(r))
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", map[string]any{"balance": balance})
}

func (h *Handler) ListIdentifiers(w http.ResponseWriter, r *http.Request) {
	identifiers, err := h.svc.ListIdentifiers(r.Context(), callerId(r))
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", identifiers)
}

func (h *Handler) AddIdentifier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	identifier, err := h.svc.AddIdentifier(r.Context(), callerId(r), req.Identifier)
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusCreated, "Payment identifier added", identifier)
}

func (h *Handler) SetDefaultIdentifier(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SetDefaultIdentifier(r.Context(), callerId(r), chi.URLParam(r, "identifier")); err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "Default payment identifier updated", nil)
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	recipient, err := h.svc.ResolveRecipient(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", recipient)
}

// Pay answers a failed transfer with the no-debit notice, or with the unknown
// outcome notice when the commit result was lost. Recorded failures also carry
// the FAILED transaction.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, "", nil)
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	result, err := h.svc.Pay(r.Context(), callerId(r), idempotencyKey, req)
	if err != nil && result != nil {
		respondError(w, r, err, transfer.Notice(err), result)
		return
	}
	if err != nil {
		respondError(w, r, err, transfer.Notice(err), nil)
		return
	}
	respond(w, http.StatusOK, "Payment successful", result)
}

func (h *Handler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	history, err := h.svc.GetTransactionHistory(r.Context(), callerId(r), chi.URLParam(r, "accountId"), page, limit)
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", history)
}

func (h *Handler) TransactionByReference(w http.ResponseWriter, r *http.Request) {
	txn, err := h.svc.GetTransactionByReference(r.Context(), callerId(r), chi.URLParam(r, "referenceId"))
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", txn)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context(), callerId(r))
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", stats)
}

func (h *Handler) AdminAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context())
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", accounts)
}

func (h *Handler) AdminTransactions(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	transactions, err := h.svc.ListAllTransactions(r.Context(), page, limit)
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", transactions)
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context(), "")
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "", stats)
}

func (h *Handler) AdminUnlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.UnlockAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "Account unlocked", nil)
}

func (h *Handler) AdminReset(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ResetDemoData(r.Context())
	if err != nil {
		respondError(w, r, err, "", nil)
		return
	}
	respond(w, http.StatusOK, "Demo data reset", accounts)
}

// requireAdmin guards the admin routes with the shared X-Admin-Token secret.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" {
			respondError(w, r, ErrAdminDisabled, "", nil)
			return
		}
		token := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			respondError(w, r, ErrForbidden, "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, "", nil)
}

func callerId(r *http.Request) string {
	id, _ := session.AccountIdFromContext(r.Context())
	return id
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}
