// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"intentlink/internal/errors"
	"intentlink/internal/middleware"
	"intentlink/internal/validation"
	"intentlink/internal/view"

	"go.uber.org/zap"
)

type IntentionHandler struct {
	svc    *view.Service
	logger *zap.Logger
	now    func() time.Time
}

func NewIntentionHandler(svc *view.Service, logger *zap.Logger) *IntentionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntentionHandler{svc: svc, logger: logger, now: time.Now}
}

// Routes registers every intention endpoint on mux, including the share
// link path /<route prefix>/{token} itself.
func (h *IntentionHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", Health)
	mux.HandleFunc("GET /"+h.svc.RoutePrefix()+"/{token}", h.Get)
	mux.HandleFunc("POST /api/intentions", h.Create)
	mux.HandleFunc("GET /api/intentions/{token}", h.Get)
	mux.HandleFunc("GET /api/intentions/{token}/preview", h.Preview)
	mux.HandleFunc("GET /api/intentions/{token}/stats", h.Stats)
	mux.HandleFunc("POST /api/intentions/{token}/interactions", h.Interact)
}

func (h *IntentionHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeShareRequest(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	shared, err := h.svc.Share(*req, h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, shared)
}

func (h *IntentionHandler) Get(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Render(r.PathValue("token"), middleware.ViewerID(r.Context()), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *IntentionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.svc.Preview(r.PathValue("token"), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *IntentionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.PathValue("token"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *IntentionHandler) Interact(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeInteractionRequest(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	res, err := h.svc.Interact(r.PathValue("token"), middleware.ViewerID(r.Context()), req.Kind, h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *IntentionHandler) writeError(w http.ResponseWriter, err error) {
	e := errors.As(err)
	if e.Code == 0 {
		e.Code = http.StatusInternalServerError
	}
	if e.Code >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, e.Code, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
