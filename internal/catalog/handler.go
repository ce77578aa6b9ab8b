// internal/catalog/handler.go
package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleList lists or searches active books.
// GET /books?q=&genre=&published_year=&sort_by=&sort_order=&page=&limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts := listOptionsFromQuery(r)

	books, total, err := h.service.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch books")
		return
	}
	writePage(w, books, total, opts)
}

// HandleGet returns a single active book.
// GET /books/{bookID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	book, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(book)
}

// HandleAdminList lists books for the admin console, including inactive ones
// on request.
// GET /admin/books?include_inactive=
func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	opts := listOptionsFromQuery(r)
	opts.IncludeInactive = r.URL.Query().Get("include_inactive") == "true"

	books, total, err := h.service.AdminList(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch books")
		return
	}
	writePage(w, books, total, opts)
}

// HandleCreate adds a new book.
// POST /admin/books
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var book Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), &book)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// HandleUpdate replaces a book's descriptive fields and total copies.
// PUT /admin/books/{bookID}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	var book Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	book.ID = id

	updated, err := h.service.Update(r.Context(), &book)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// HandleDeactivate soft-deletes a book.
// DELETE /admin/books/{bookID}
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listOptionsFromQuery(r *http.Request) ListOptions {
	q := r.URL.Query()
	opts := ListOptions{
		Query:     q.Get("q"),
		Genre:     q.Get("genre"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	opts.PublishedYear, _ = strconv.Atoi(q.Get("published_year"))
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	normalizeListOptions(&opts)
	return opts
}

func writePage(w http.ResponseWriter, books []Book, total int, opts ListOptions) {
	totalPages := (total + opts.Limit - 1) / opts.Limit

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"books": books,
		"pagination": map[string]interface{}{
			"current_page": opts.Page,
			"total_pages":  totalPages,
			"total_books":  total,
			"limit":        opts.Limit,
		},
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateISBN), errors.Is(err, ErrHasActiveLoans), errors.Is(err, ErrConflict):
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
