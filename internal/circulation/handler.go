// internal/circulation/handler.go
package circulation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"libraflow/internal/inventory"
	"libraflow/internal/middleware"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleBorrow opens a loan for the authenticated patron.
// POST /books/{bookID}/borrow
func (h *Handler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	loan, err := h.service.OpenLoan(r.Context(), patronID, bookID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

// HandleReturn closes the patron's active loan for a book.
// POST /books/{bookID}/return
func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	loan, err := h.service.ReturnBook(r.Context(), patronID, bookID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loan)
}

// HandleRenew extends a loan's due date.
// POST /loans/{loanID}/renew
func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}
	loanID, err := uuid.Parse(chi.URLParam(r, "loanID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan ID")
		return
	}

	loan, err := h.service.Renew(r.Context(), patronID, loanID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loan)
}

// HandleActiveLoans lists the patron's currently borrowed books.
// GET /loans
func (h *Handler) HandleActiveLoans(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}

	loans, err := h.service.ActiveLoans(r.Context(), patronID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  loans,
		"count": len(loans),
	})
}

// HandleHistory lists the patron's borrow history.
// GET /loans/history?page=&limit=&status=
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}

	opts := HistoryOptions{
		Status: r.URL.Query().Get("status"),
	}
	opts.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	opts.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	loans, total, err := h.service.History(r.Context(), patronID, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  loans,
		"total": total,
	})
}

// HandleStats summarizes the patron's borrowing activity.
// GET /loans/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), patronID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func patronFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return claims.PatronID, true
}

// writeDomainError maps circulation error kinds to stable HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLoanNotFound), errors.Is(err, inventory.ErrBookNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, inventory.ErrUnavailable),
		errors.Is(err, ErrAlreadyBorrowed),
		errors.Is(err, ErrAlreadyReturned),
		errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidStatusFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLimitExceeded),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrRenewalLimitExceeded):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
