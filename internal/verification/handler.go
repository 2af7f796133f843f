package verification

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/examforge/backend/internal/models"
	"github.com/gorilla/mux"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/verification/runs", h.TriggerRun).Methods("POST")
	r.HandleFunc("/verification/runs/latest", h.GetLatestRun).Methods("GET")
}

// TriggerRun enqueues a verification run. Returns 409 if one is already
// pending or running.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.CreateRun()
	if err != nil {
		log.Printf("[verification] create run: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create run"})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "A verification run is already in progress"})
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (h *Handler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetLatestRun()
	if err != nil {
		log.Printf("[verification] get latest run: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to fetch run"})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No verification runs yet"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[verification] WARN: write response: %v", err)
	}
}
