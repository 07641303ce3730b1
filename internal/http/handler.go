package httpapp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/form/v4"

	"github.com/krywicki/discord-sounboard-bot/internal/app"
	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/http/dto"
	"github.com/krywicki/discord-sounboard-bot/internal/logger"
	"github.com/krywicki/discord-sounboard-bot/internal/store"
)

type Handler struct {
	Catalog *app.CatalogService
	Logger  *logger.Logger
	decoder *form.Decoder
}

func NewHandler(catalog *app.CatalogService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Catalog: catalog,
		Logger:  log.WithComponent("http"),
		decoder: form.NewDecoder(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/clips/autocomplete", h.Autocomplete)
		r.Get("/clips/search", h.Search)
		r.Get("/clips/export", h.Export)
		r.Get("/clips/count", h.CountClips)
		r.Get("/clips/{id}", h.GetClip)
		r.Patch("/clips/{id}", h.UpdateClip)
		r.Delete("/clips", h.DeleteClip)

		r.Get("/index/check", h.CheckIndex)
		r.Post("/index/rebuild", h.RebuildIndex)
	})
}

// decode fills dst from the query string and, for bodies, the parsed form.
func (h *Handler) decode(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return h.decoder.Decode(dst, r.Form)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:  dto.ToResponse(errs),
		Fields: dto.ToMap(errs),
	})
}

// writeError maps catalog errors onto status codes. Storage faults are
// logged with detail but reported generically.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	var cerr *store.ConstraintError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, msg = http.StatusNotFound, "clip not found"
	case errors.As(err, &cerr):
		status, msg = http.StatusConflict, cerr.Column+" already exists"
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, app.ErrClipExists):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidRecord), errors.Is(err, store.ErrInvalidQuery):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		h.Logger.Error("Request failed", "error", err)
	}

	h.writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
