package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/journal"
	"github.com/starford/dagaz/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *journal.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *journal.Service) *Handler {
	return &Handler{svc: svc}
}

// dateParam parses the {date} URL parameter.
func dateParam(r *http.Request) (models.Date, error) {
	return models.ParseDate(chi.URLParam(r, "date"))
}

// ListEntries handles GET /entries.
//
//	@Summary		List entry summaries in a date range
//	@Tags			entries
//	@Produce		json
//	@Param			from	query		string	false	"Range start (YYYY-MM-DD), default first of current month"
//	@Param			to		query		string	false	"Range end (YYYY-MM-DD), default last of current month"
//	@Success		200		{object}	EntryListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	rng := models.MonthOf(models.Today())
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		from, err := models.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' date, want YYYY-MM-DD")
			return
		}
		rng.From = from
	}
	if s := q.Get("to"); s != "" {
		to, err := models.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' date, want YYYY-MM-DD")
			return
		}
		rng.To = to
	}

	rows, err := h.svc.Summaries(r.Context(), rng)
	if err != nil {
		slog.Error("list entries failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": rows,
		"total":   len(rows),
	})
}

// GetEntry handles GET /entries/{date}.
//
//	@Summary		Get one day's entry
//	@Tags			entries
//	@Produce		json
//	@Param			date	path		string	true	"Entry date (YYYY-MM-DD)"
//	@Success		200		{object}	EntryDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	entry, err := h.svc.Read(r.Context(), date)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no entry for "+date.String())
		} else {
			slog.Error("get entry failed", slog.String("date", date.String()), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// PutEntry handles PUT /entries/{date}.
//
//	@Summary		Write one day's entry with optimistic concurrency
//	@Description	Content is normalized before storing; writing empty content removes the day.
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			date		path		string				true	"Entry date (YYYY-MM-DD)"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		WriteEntryRequest	true	"Raw entry text"
//	@Success		200			{object}	EntryDetail
//	@Success		204			"Write emptied the day"
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date} [put]
func (h *Handler) PutEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	var req WriteEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	entry, err := h.svc.Write(r.Context(), date, req.Content, ifMatch)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			writeError(w, http.StatusConflict, "checksum mismatch")
		} else {
			slog.Error("write entry failed", slog.String("date", date.String()), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	if entry.Content == "" {
		// The write emptied the day; there is no entry left to return.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /entries/{date}.
//
//	@Summary		Delete one day's entry
//	@Description	Deleting an absent day is a no-op and still returns 204.
//	@Tags			entries
//	@Param			date	path	string	true	"Entry date (YYYY-MM-DD)"
//	@Success		204		"Entry deleted"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	if err := h.svc.Delete(r.Context(), date); err != nil {
		slog.Error("delete entry failed", slog.String("date", date.String()), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendBullet handles POST /entries/{date}/bullets.
//
//	@Summary		Append one bullet to a day's entry
//	@Description	Creates the day when absent. New task bullets default to pending.
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string				true	"Entry date (YYYY-MM-DD)"
//	@Param			body	body		AppendBulletRequest	true	"Bullet to append"
//	@Success		201		{object}	EntryDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date}/bullets [post]
func (h *Handler) AppendBullet(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	var req AppendBulletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	bt, err := models.ParseBulletType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown bullet type "+strconv.Quote(req.Type))
		return
	}

	b := models.Bullet{Type: bt, Content: req.Content}
	if req.State != "" {
		if bt != models.Task {
			writeError(w, http.StatusBadRequest, "state applies to task bullets only")
			return
		}
		st := models.TaskState(strings.ToLower(strings.TrimSpace(req.State)))
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "unknown task state "+strconv.Quote(req.State))
			return
		}
		b.TaskState = st
	}

	entry, err := h.svc.AppendBullet(r.Context(), date, b)
	if err != nil {
		slog.Error("append bullet failed", slog.String("date", date.String()), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Template handles GET /entries/{date}/template.
//
//	@Summary		Get the section scaffold for a day
//	@Description	Returns every section header with the existing bullets filled in, or blank sections for an absent day.
//	@Tags			entries
//	@Produce		json
//	@Param			date	path		string	true	"Entry date (YYYY-MM-DD)"
//	@Success		200		{object}	TemplateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date}/template [get]
func (h *Handler) Template(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	tmpl, err := h.svc.Template(r.Context(), date)
	if err != nil {
		slog.Error("template failed", slog.String("date", date.String()), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, TemplateResponse{Date: date.String(), Template: tmpl})
}

// Migrate handles POST /entries/{date}/migrate.
//
//	@Summary		Move a task to another day
//	@Description	Marks the source bullet migrated and appends a fresh pending copy to the target. Only pending and scheduled tasks move.
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string			true	"Source date (YYYY-MM-DD)"
//	@Param			body	body		MigrateRequest	true	"Bullet and target day"
//	@Success		200		{object}	MigrateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date}/migrate [post]
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	source, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	var req MigrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BulletID == "" {
		writeError(w, http.StatusBadRequest, "bullet_id is required")
		return
	}
	target, err := models.ParseDate(req.TargetDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'target_date', want YYYY-MM-DD")
		return
	}

	res, err := h.svc.Migrate(r.Context(), source, req.BulletID, target)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, apperr.ErrInvalidTransition):
			// The reason matters to clients, so the wrapped message goes out.
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.Error("migrate failed",
				slog.String("source", source.String()),
				slog.String("target", target.String()),
				slog.String("bullet", req.BulletID),
				slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /search.
//
//	@Summary		Full-text search across entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Terms handles GET /terms.
//
//	@Summary		List terms by frequency
//	@Tags			terms
//	@Produce		json
//	@Param			limit	query		int	false	"Max terms"
//	@Success		200		{object}	TermsResponse
//	@Security		BearerAuth
//	@Router			/terms [get]
func (h *Handler) Terms(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	terms, err := h.svc.Terms(r.Context(), limit)
	if err != nil {
		slog.Error("list terms failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"terms": terms,
	})
}

// TermDetail handles GET /terms/{term}.
//
//	@Summary		Get one term's frequency record
//	@Tags			terms
//	@Produce		json
//	@Param			term	path		string	true	"Term (matched case-insensitively)"
//	@Success		200		{object}	index.TermRecord
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/terms/{term} [get]
func (h *Handler) TermDetail(w http.ResponseWriter, r *http.Request) {
	term := chi.URLParam(r, "term")
	rec, err := h.svc.Term(r.Context(), term)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("term lookup failed", slog.String("term", term), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Refs handles GET /refs/{date}.
//
//	@Summary		Get both directions of a day's cross-references
//	@Tags			refs
//	@Produce		json
//	@Param			date	path		string	true	"Entry date (YYYY-MM-DD)"
//	@Success		200		{object}	RefsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/refs/{date} [get]
func (h *Handler) Refs(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	out, in, err := h.svc.References(r.Context(), date)
	if err != nil {
		slog.Error("refs failed", slog.String("date", date.String()), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outgoing": out,
		"incoming": in,
	})
}

// Stats handles GET /stats.
//
//	@Summary		Get journal-wide totals
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
