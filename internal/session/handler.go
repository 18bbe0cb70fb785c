package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/inamate/diagram/internal/auth"
	"github.com/inamate/diagram/internal/engine"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Routes registers the session endpoints on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("", h.Create).Methods("POST")
	r.HandleFunc("/{sessionId}", h.Get).Methods("GET")
	r.HandleFunc("/{sessionId}/ops", h.ApplyOp).Methods("POST")
	r.HandleFunc("/{sessionId}/hit", h.HitTest).Methods("GET")
	r.HandleFunc("/{sessionId}/render", h.Render).Methods("GET")
	r.HandleFunc("/{sessionId}/validation", h.Validate).Methods("POST")
	r.HandleFunc("/{sessionId}/snapshot", h.Snapshot).Methods("POST")
	r.HandleFunc("/{sessionId}/snapshots", h.ListSnapshots).Methods("GET")
}

type createRequest struct {
	Name   string `json:"name"`
	Sample bool   `json:"sample"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	s, err := h.registry.Create(r.Context(), req.Name, req.Sample)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("session created via api", "session", s.ID, "user", auth.UserIDFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, s.Info())
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	doc, seq, err := s.Document()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Session-Seq", strconv.FormatInt(seq, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *Handler) ApplyOp(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	var op engine.Operation
	if err := json.NewDecoder(r.Body).Decode(&op); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if op.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type is required"})
		return
	}

	commit, err := s.Apply(Actor{UserID: auth.UserIDFromContext(r.Context())}, op)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commit)
}

func (h *Handler) HitTest(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "x and y must be numbers"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"cellId": s.HitTest(x, y)})
}

func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.Render()))
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"errors": s.Validate()})
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.open(w, r); !ok {
		return
	}

	snap, err := h.registry.Save(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        snap.ID,
		"version":   snap.Version,
		"createdAt": snap.CreatedAt,
	})
}

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	snaps, err := h.registry.Snapshots(r.Context(), sessionID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	type item struct {
		ID        string    `json:"id"`
		Version   int32     `json:"version"`
		CreatedAt time.Time `json:"createdAt"`
	}
	out := make([]item, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, item{ID: s.ID, Version: s.Version, CreatedAt: s.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.registry.Open(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return s, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, engine.ErrUnknownOperation),
		errors.Is(err, engine.ErrInvalidOperation),
		errors.Is(err, model.ErrUnknownCell),
		errors.Is(err, model.ErrNilCell),
		errors.Is(err, model.ErrCycle),
		errors.Is(err, model.ErrNotFinite),
		errors.Is(err, model.ErrInvalidGeometry),
		errors.Is(err, model.ErrInvalidTerminal),
		errors.Is(err, style.ErrInvalidValue):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
