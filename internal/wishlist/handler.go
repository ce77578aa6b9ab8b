// internal/wishlist/handler.go
package wishlist

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"libraflow/internal/middleware"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleList returns the patron's wishlist.
// GET /wishlist
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}

	items, err := h.service.List(r.Context(), patronID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch wishlist")
		return
	}
	if items == nil {
		items = []Item{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
}

// HandleAdd puts a book on the wishlist.
// POST /wishlist/{bookID}
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	item, err := h.service.Add(r.Context(), patronID, bookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

// HandleRemove takes a book off the wishlist.
// DELETE /wishlist/{bookID}
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	if err := h.service.Remove(r.Context(), patronID, bookID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleContains reports whether a book is on the wishlist.
// GET /wishlist/{bookID}
func (h *Handler) HandleContains(w http.ResponseWriter, r *http.Request) {
	patronID, ok := patronFromRequest(w, r)
	if !ok {
		return
	}
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	contains, err := h.service.Contains(r.Context(), patronID, bookID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check wishlist")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"in_wishlist": contains})
}

func patronFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return claims.PatronID, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound), errors.Is(err, ErrNotInWishlist):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyInWishlist):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
