package httpapp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/http/dto"
)

func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	var req dto.AutocompleteRequest
	if err := h.decode(r, &req); err != nil {
		h.writeValidation(w, []dto.ValidationError{{Field: "query", Message: err.Error()}})
		return
	}

	var choices []string
	if req.Optional {
		choices = h.Catalog.AutocompleteOptional(r.Context(), req.Query)
	} else {
		choices = h.Catalog.Autocomplete(r.Context(), req.Query)
	}
	h.writeJSON(w, http.StatusOK, dto.ChoicesResponse{Choices: choices})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req dto.SearchRequest
	if err := h.decode(r, &req); err != nil {
		h.writeValidation(w, []dto.ValidationError{{Field: "query", Message: err.Error()}})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	recs, err := h.Catalog.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewClipListResponse(recs))
}

// GetClip looks a clip up by id. Any failure is reported as not found.
func (h *Handler) GetClip(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clipID(w, r)
	if !ok {
		return
	}

	rec := h.Catalog.Lookup(r.Context(), domain.ByID(id))
	if rec == nil {
		h.writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "clip not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) UpdateClip(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clipID(w, r)
	if !ok {
		return
	}

	var req dto.ClipUpdateRequest
	if err := h.decode(r, &req); err != nil {
		h.writeValidation(w, []dto.ValidationError{{Field: "body", Message: err.Error()}})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	rec, err := h.Catalog.UpdateClip(r.Context(), domain.ByID(id), req.Name, req.Tags)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteClip(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteRequest
	if err := h.decode(r, &req); err != nil {
		h.writeValidation(w, []dto.ValidationError{{Field: "query", Message: err.Error()}})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	rec, err := h.Catalog.RemoveClip(r.Context(), domain.ByPath(req.Path))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// Export streams the whole catalog as newline-delimited JSON, one clip per
// line. A failure after the first line can only be logged.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req dto.ExportRequest
	if err := h.decode(r, &req); err != nil {
		h.writeValidation(w, []dto.ValidationError{{Field: "query", Message: err.Error()}})
		return
	}
	order, errs := req.Validate()
	if len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	total, err := h.Catalog.Export(r.Context(), order, func(page []domain.AudioRecord) error {
		for i := range page {
			if err := enc.Encode(&page[i]); err != nil {
				return err
			}
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		if total == 0 {
			h.writeError(w, err)
			return
		}
		h.Logger.Error("Export aborted", "exported", total, "error", err)
	}
}

func (h *Handler) CountClips(w http.ResponseWriter, r *http.Request) {
	n, err := h.Catalog.Count(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.CountResponse{Count: n})
}

func (h *Handler) CheckIndex(w http.ResponseWriter, r *http.Request) {
	report, err := h.Catalog.CheckIndex(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewIndexReportResponse(report))
}

func (h *Handler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	n, err := h.Catalog.Reindex(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"indexed": n})
}

func (h *Handler) clipID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		h.writeValidation(w, []dto.ValidationError{{Field: "id", Message: "must be a positive integer"}})
		return 0, false
	}
	return id, true
}
