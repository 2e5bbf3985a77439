package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"swelter/internal/config"
	"swelter/internal/cycle"
	"swelter/internal/ports"
	"swelter/internal/slack"
	"swelter/internal/types"
)

var validate = validator.New()

type Handler struct {
	Store ports.ConfigStore
	Orch  *cycle.Orchestrator
	Cfg   *config.App
}

func NewHandler(store ports.ConfigStore, orch *cycle.Orchestrator, cfg *config.App) *Handler {
	return &Handler{Store: store, Orch: orch, Cfg: cfg}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/slack/command", h.handleSlashCommand)
	mux.HandleFunc("/config", h.handleConfig)
	mux.HandleFunc("/cycle/run", h.handleRunCycle)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// configPayload is the configuration-write body. The token is write-only: it
// is sealed before storage and never echoed back.
type configPayload struct {
	UserID      string  `json:"user_id" validate:"required"`
	SecretToken string  `json:"secret_token" validate:"required"`
	Destination string  `json:"destination" validate:"required"`
	Location    string  `json:"location" validate:"required"`
	ThresholdF  float64 `json:"threshold_f" validate:"gte=0"`
	RequireDry  *bool   `json:"require_dry"`
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost, http.MethodPut:
		h.putConfig(w, r)
	case http.MethodDelete:
		h.deleteConfig(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()

	var payload configPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		fields := make([]string, 0, 4)
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		}
		_ = writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":          "validation failed",
			"invalid_fields": fields,
		})
		return
	}

	uc := types.UserConfig{
		UserID:      payload.UserID,
		SecretToken: payload.SecretToken,
		Destination: payload.Destination,
		Location:    payload.Location,
		ThresholdF:  payload.ThresholdF,
		RequireDry:  h.Cfg.RequireDry,
	}
	if payload.RequireDry != nil {
		uc.RequireDry = *payload.RequireDry
	}

	if err := h.Store.Put(r.Context(), uc); err != nil {
		if errors.Is(err, types.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.WithError(err).Error("config write failed")
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	if err := writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "user_id": uc.UserID}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func (h *Handler) deleteConfig(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if err := h.Store.Delete(r.Context(), userID); err != nil {
		log.WithError(err).Error("config delete failed")
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	if err := writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// handleSlashCommand is the on-demand path. The request is a Slack slash
// command: signature checked against the raw body before anything else, and the
// requester always gets an ephemeral reply, apology text included, never a
// propagated failure.
func (h *Handler) handleSlashCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()

	if err := slack.VerifySignature(
		h.Cfg.SigningSecret,
		r.Header.Get(slack.TimestampHdrName),
		r.Header.Get(slack.SignatureHdrName),
		body,
	); err != nil {
		log.WithError(err).Warn("rejected unsigned slash command")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}
	requester := form.Get("user_id")
	location := strings.TrimSpace(form.Get("text"))

	h.ephemeral(w, h.runAdHoc(r, requester, location))
}

// runAdHoc resolves the requester's stored config, applies the optional
// location override, runs one check, and renders a human-readable outcome.
func (h *Handler) runAdHoc(r *http.Request, requester, location string) string {
	if requester == "" {
		return "Sorry, I could not tell who is asking."
	}
	uc, err := h.Store.Get(r.Context(), requester)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "You are not set up yet. Register your token and location first."
		}
		log.WithError(err).WithField("userID", requester).Error("ad-hoc config load failed")
		return "Sorry, something went wrong on our side."
	}
	if location == "" {
		location = uc.Location
	}

	activated, obs, err := h.Orch.RunAdHoc(r.Context(), cycle.AdHocCheck{
		UserID:      requester,
		Token:       uc.SecretToken,
		Destination: uc.Destination,
		Location:    location,
		ThresholdF:  uc.ThresholdF,
		RequireDry:  uc.RequireDry,
	})
	if err != nil {
		log.WithError(err).WithField("userID", requester).Error("ad-hoc check failed")
		return "Sorry, I could not check the weather right now. Try again in a bit."
	}
	if activated {
		return "It's " + formatTempF(obs.TempF) + " in " + location + ". Status updated."
	}
	return "It's " + formatTempF(obs.TempF) + " in " + location + ". No status change."
}

func (h *Handler) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summary := h.Orch.RunAll(r.Context())
	if err := writeJSON(w, http.StatusOK, summary); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// ephemeral always answers 200; Slack renders the text to the requester only.
func (h *Handler) ephemeral(w http.ResponseWriter, text string) {
	if err := writeJSON(w, http.StatusOK, map[string]any{
		"response_type": "ephemeral",
		"text":          text,
	}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
