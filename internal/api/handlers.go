package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/worksledger/internal/apperr"
	"github.com/starford/worksledger/internal/ledger"
	"github.com/starford/worksledger/internal/worksservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *worksservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *worksservice.Service) *Handler {
	return &Handler{svc: svc}
}

// worksKey extracts the ledger key from the URL. chi routes on the escaped
// path only when RawPath is set (e.g. shelf%2Fw1); otherwise the parameter
// is already decoded and must be used as is.
func worksKey(r *http.Request) string {
	raw := chi.URLParam(r, "key")
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeServiceError maps a service error onto a status code.
func writeServiceError(w http.ResponseWriter, op, key string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, ledger.ErrInvalidBookmark):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid bookmark"))
	case errors.Is(err, ledger.ErrInvalidPageSize):
		writeJSON(w, http.StatusBadRequest, errorBody(ledger.ErrInvalidPageSize.Error()))
	default:
		slog.Error(op+" failed", slog.String("key", key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// GetWorks handles GET /api/works/{key}.
//
//	@Summary		Get a single record by key
//	@Tags			works
//	@Produce		json
//	@Param			key	path		string	true	"Ledger key"
//	@Success		200	{object}	WorksDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{key} [get]
func (h *Handler) GetWorks(w http.ResponseWriter, r *http.Request) {
	key := worksKey(r)
	works, err := h.svc.GetWorks(r.Context(), key)
	if err != nil {
		writeServiceError(w, "get works", key, err)
		return
	}
	writeJSON(w, http.StatusOK, works)
}

// CreateWorks handles POST /api/works.
//
//	@Summary		Create a new record
//	@Tags			works
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateWorksRequest	true	"Record to create"
//	@Success		201		{object}	WorksDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works [post]
func (h *Handler) CreateWorks(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateWorksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	record, err := req.Works()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	works, err := h.svc.CreateWorks(r.Context(), req.Key, record)
	if err != nil {
		writeServiceError(w, "create works", req.Key, err)
		return
	}
	writeJSON(w, http.StatusCreated, works)
}

// UpdateWorks handles PUT /api/works/{key}. The stored record is replaced
// as a whole.
//
//	@Summary		Replace a record
//	@Tags			works
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string			true	"Ledger key"
//	@Param			body	body		WorksRequest	true	"Replacement record"
//	@Success		200		{object}	WorksDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{key} [put]
func (h *Handler) UpdateWorks(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	key := worksKey(r)
	var req WorksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	record, err := req.Works()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	works, err := h.svc.UpdateWorks(r.Context(), key, record)
	if err != nil {
		writeServiceError(w, "update works", key, err)
		return
	}
	writeJSON(w, http.StatusOK, works)
}

// DeleteWorks handles DELETE /api/works/{key} and returns the removed record.
//
//	@Summary		Delete a record
//	@Tags			works
//	@Produce		json
//	@Param			key	path		string	true	"Ledger key"
//	@Success		200	{object}	WorksDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{key} [delete]
func (h *Handler) DeleteWorks(w http.ResponseWriter, r *http.Request) {
	key := worksKey(r)
	works, err := h.svc.DeleteWorks(r.Context(), key)
	if err != nil {
		writeServiceError(w, "delete works", key, err)
		return
	}
	writeJSON(w, http.StatusOK, works)
}

// ListWorks handles GET /api/works. With pageSize it returns one page and
// the bookmark of the next one.
//
//	@Summary		List records by author
//	@Tags			works
//	@Produce		json
//	@Param			author		query		string	true	"Author to match exactly (may be empty)"
//	@Param			pageSize	query		int		false	"Page size (1-1000)"
//	@Param			bookmark	query		string	false	"Bookmark from the previous page"
//	@Success		200			{object}	WorksPageResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works [get]
func (h *Handler) ListWorks(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if !params.Has("author") {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'author' is required"))
		return
	}
	q := ListWorksQuery{
		Author:   params.Get("author"),
		Bookmark: params.Get("bookmark"),
	}
	if raw := params.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("pageSize must be an integer"))
			return
		}
		q.PageSize = &n
	}
	if err := q.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if !q.Paged() {
		list, err := h.svc.ListWorksByAuthor(r.Context(), q.Author)
		if err != nil {
			writeServiceError(w, "list works", q.Author, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	page, err := h.svc.ListWorksPageByAuthor(r.Context(), q.Author, int32(*q.PageSize), q.Bookmark)
	if err != nil {
		writeServiceError(w, "list works page", q.Author, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
