package practice

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/examforge/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the practice endpoints on the protected subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/practice/select", h.SelectQuestions).Methods("POST")
	protected.HandleFunc("/sessions", h.StartSession).Methods("POST")
	protected.HandleFunc("/sessions/{sessionID}/answers", h.SaveAnswer).Methods("PUT")
	protected.HandleFunc("/sessions/{sessionID}/complete", h.CompleteSession).Methods("POST")
	protected.HandleFunc("/questions/{questionID}/history", h.GetHistory).Methods("GET")
	protected.HandleFunc("/history/summary", h.GetHistorySummary).Methods("GET")
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

func (h *Handler) SelectQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.SelectQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.service.SelectQuestions(userID, req)
	if err != nil {
		h.writeServiceError(w, "SelectQuestions", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	sessionID, err := h.service.StartSession(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, "StartSession", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.StartSessionResponse{SessionID: sessionID})
}

func (h *Handler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	sessionID := mux.Vars(r)["sessionID"]

	var ans models.SubmittedAnswer
	if err := json.NewDecoder(r.Body).Decode(&ans); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if ans.QuestionOrder <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_order must be positive"})
		return
	}

	if err := h.service.SaveAnswer(userID, sessionID, ans); err != nil {
		h.writeServiceError(w, "SaveAnswer", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	sessionID := mux.Vars(r)["sessionID"]

	var req models.CompleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.service.CompleteSession(r.Context(), userID, sessionID, req)
	if err != nil {
		h.writeServiceError(w, "CompleteSession", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	questionID, err := strconv.ParseInt(mux.Vars(r)["questionID"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question id"})
		return
	}

	history, err := h.service.GetHistory(userID, questionID)
	if err != nil {
		h.writeServiceError(w, "GetHistory", err)
		return
	}
	if history == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No history for this question"})
		return
	}

	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) GetHistorySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	summary, err := h.service.GetHistorySummary(userID)
	if err != nil {
		h.writeServiceError(w, "GetHistorySummary", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// writeServiceError maps service sentinels to HTTP statuses. Unrecognized
// errors are logged and hidden behind 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Forbidden"})
	case errors.Is(err, ErrAlreadyCompleted):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session already completed"})
	default:
		log.Printf("[handler] %s error: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
