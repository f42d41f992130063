package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"promo-engine/internal/campaign"
	"promo-engine/internal/engine"
)

// PromoHandler serves the public modal endpoints and the admin surface.
type PromoHandler struct {
	Eng      *engine.Engine
	Sessions *engine.Sessions
	Repo     *campaign.Repository
}

func NewPromoHandler(eng *engine.Engine, sessions *engine.Sessions, repo *campaign.Repository) *PromoHandler {
	return &PromoHandler{Eng: eng, Sessions: sessions, Repo: repo}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string                    `json:"error"`
	Fields campaign.ValidationErrors `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// Promo reports whether the promotion is displayed now and, if so, what to draw.
func (h *PromoHandler) Promo(w http.ResponseWriter, _ *http.Request) {
	p := h.Eng.Present(h.Eng.Now())
	if !p.Decision.Display {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PromoHandler) OpenSession(w http.ResponseWriter, _ *http.Request) {
	info, err := h.Sessions.Open()
	if errors.Is(err, engine.ErrNotDisplayed) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("open session")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *PromoHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.Sessions.Get(chi.URLParam(r, "id"))
	h.respondSession(w, info, err)
}

func (h *PromoHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.Sessions.Close(chi.URLParam(r, "id"))
	h.respondSession(w, info, err)
}

func (h *PromoHandler) ClickOutside(w http.ResponseWriter, r *http.Request) {
	info, err := h.Sessions.ClickOutside(chi.URLParam(r, "id"))
	h.respondSession(w, info, err)
}

func (h *PromoHandler) UnmountSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Unmount(chi.URLParam(r, "id")); err != nil {
		h.respondSession(w, engine.SessionInfo{}, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PromoHandler) respondSession(w http.ResponseWriter, info engine.SessionInfo, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, info)
	case errors.Is(err, engine.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, campaign.ErrCloseHidden),
		errors.Is(err, campaign.ErrOutsideClickDisabled),
		errors.Is(err, campaign.ErrDismissed),
		errors.Is(err, campaign.ErrNotShown):
		writeJSON(w, http.StatusConflict, struct {
			Error   string              `json:"error"`
			Session engine.SessionInfo `json:"session"`
		}{err.Error(), info})
	default:
		log.Error().Err(err).Msg("session action")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// GetCampaign returns the stored campaign as the admin form edits it.
func (h *PromoHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	cfg, ok, err := h.Repo.Load(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("load campaign")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no campaign configured")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// MaxCampaignBody bounds an admin PUT, inline data-URI media included.
const MaxCampaignBody = 4 << 20

// PutCampaign validates and stores the submitted campaign. Out-of-range
// numbers are clamped; shape and ordering problems are 422.
func (h *PromoHandler) PutCampaign(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxCampaignBody))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "campaign too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	cfg, errs := campaign.Validate(raw, h.Repo.Location())
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid campaign", Fields: errs})
		return
	}
	if err := h.Repo.Save(r.Context(), cfg); err != nil {
		log.Error().Err(err).Msg("save campaign")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *PromoHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Clear(r.Context()); err != nil {
		log.Error().Err(err).Msg("clear campaign")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
