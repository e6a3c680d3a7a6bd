package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicgrid/grievance-engine/internal/config"
	"github.com/civicgrid/grievance-engine/internal/database"
	"github.com/civicgrid/grievance-engine/internal/escalation"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
	"github.com/civicgrid/grievance-engine/internal/notification"
	"github.com/civicgrid/grievance-engine/internal/review"
)

// HTTPHandler handles HTTP requests for the grievance engine
type HTTPHandler struct {
	config          *config.Config
	logger          *slog.Logger
	engine          *lifecycle.Engine
	gate            *review.Gate
	scheduler       *escalation.Scheduler
	notificationMgr *notification.Manager
	validate        *validator.Validate
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(
	cfg *config.Config,
	logger *slog.Logger,
	engine *lifecycle.Engine,
	gate *review.Gate,
	scheduler *escalation.Scheduler,
	notificationMgr *notification.Manager,
) *HTTPHandler {
	return &HTTPHandler{
		config:          cfg,
		logger:          logger,
		engine:          engine,
		gate:            gate,
		scheduler:       scheduler,
		notificationMgr: notificationMgr,
		validate:        validator.New(),
	}
}

// RegisterRoutes registers HTTP routes
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	// Health and status endpoints
	router.HandleFunc("/health", h.handleHealth).Methods("GET")
	router.HandleFunc("/status", h.handleStatus).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Complaint endpoints
	complaintRouter := router.PathPrefix("/complaints").Subrouter()
	complaintRouter.HandleFunc("", h.handleSubmitComplaint).Methods("POST")
	complaintRouter.HandleFunc("", h.handleListComplaints).Methods("GET")
	complaintRouter.HandleFunc("/{id}", h.handleGetComplaint).Methods("GET")
	complaintRouter.HandleFunc("/{id}/timeline", h.handleGetTimeline).Methods("GET")
	complaintRouter.HandleFunc("/{id}/status", h.handleUpdateStatus).Methods("POST")
	complaintRouter.HandleFunc("/{id}/assign", h.handleAssign).Methods("POST")
	complaintRouter.HandleFunc("/{id}/escalate", h.handleEscalate).Methods("POST")
	complaintRouter.HandleFunc("/{id}/reassign", h.handleReassign).Methods("POST")
	complaintRouter.HandleFunc("/{id}/duplicate", h.handleMarkDuplicate).Methods("POST")
	complaintRouter.HandleFunc("/{id}/review", h.handleReview).Methods("POST")

	// Scheduler endpoints
	schedulerRouter := router.PathPrefix("/scheduler").Subrouter()
	schedulerRouter.HandleFunc("/tasks", h.handleSchedulerStats).Methods("GET")
	schedulerRouter.HandleFunc("/tasks/{name}/execute", h.handleExecuteScan).Methods("POST")
}

// Health and Status Handlers

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "grievance-engine",
	}

	h.writeJSON(w, http.StatusOK, health)
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"service":       "grievance-engine",
		"status":        "running",
		"timestamp":     time.Now().UTC(),
		"notifications": h.notificationMgr.GetStats(),
	}
	if h.scheduler != nil {
		status["scheduler"] = h.scheduler.Stats()
	}

	h.writeJSON(w, http.StatusOK, status)
}

// Complaint Handlers

func (h *HTTPHandler) handleSubmitComplaint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category         string                   `json:"category" validate:"required"`
		Severity         string                   `json:"severity" validate:"required,oneof=Low Medium High"`
		Description      string                   `json:"description" validate:"required"`
		Latitude         float64                  `json:"latitude"`
		Longitude        float64                  `json:"longitude"`
		Address          string                   `json:"address"`
		Ward             string                   `json:"ward"`
		AffectedAreaType string                   `json:"affected_area_type"`
		DurationBucket   string                   `json:"duration_bucket"`
		Visibility       database.VisibilityFlags `json:"visibility"`
		CitizenRef       string                   `json:"citizen_ref" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	location := database.Location{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if req.Address != "" {
		location.Address = &req.Address
	}

	complaint, err := h.engine.SubmitComplaint(r.Context(), lifecycle.SubmitRequest{
		Category:    req.Category,
		Severity:    req.Severity,
		Description: req.Description,
		Location:    location,
		Ward:             req.Ward,
		AffectedAreaType: req.AffectedAreaType,
		DurationBucket:   req.DurationBucket,
		Visibility:       req.Visibility,
		CitizenRef:       req.CitizenRef,
	})
	if err != nil {
		h.writeDomainError(w, err, "Failed to submit complaint")
		return
	}

	h.writeJSON(w, http.StatusCreated, complaint)
}

func (h *HTTPHandler) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	filter := h.parseFilter(r)

	complaints, err := h.engine.ListComplaints(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list complaints", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list complaints")
		return
	}

	response := map[string]interface{}{
		"complaints": complaints,
		"count":      len(complaints),
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *HTTPHandler) handleGetComplaint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	complaint, err := h.engine.GetComplaint(r.Context(), vars["id"])
	if err != nil {
		h.writeDomainError(w, err, "Failed to get complaint")
		return
	}

	h.writeJSON(w, http.StatusOK, complaint)
}

func (h *HTTPHandler) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	timeline, err := h.engine.Timeline(r.Context(), vars["id"])
	if err != nil {
		h.writeDomainError(w, err, "Failed to get timeline")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"complaint_id": vars["id"],
		"events":       timeline,
	})
}

func (h *HTTPHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" validate:"required"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	complaint, err := h.engine.UpdateStatus(r.Context(), vars["id"], actor, database.Status(req.Status), req.Reason)
	if err != nil {
		h.writeDomainError(w, err, "Failed to update status")
		return
	}

	h.writeJSON(w, http.StatusOK, complaint)
}

func (h *HTTPHandler) handleAssign(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		OfficerID string `json:"officer_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	complaint, err := h.engine.Assign(r.Context(), vars["id"], actor, req.OfficerID)
	if err != nil {
		h.writeDomainError(w, err, "Failed to assign complaint")
		return
	}

	h.writeJSON(w, http.StatusOK, complaint)
}

func (h *HTTPHandler) handleEscalate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	complaint, err := h.engine.Escalate(r.Context(), vars["id"], actor)
	if err != nil {
		h.writeDomainError(w, err, "Failed to escalate complaint")
		return
	}

	h.writeJSON(w, http.StatusOK, complaint)
}

func (h *HTTPHandler) handleReassign(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		WorkerID string `json:"worker_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	complaint, err := h.engine.Reassign(r.Context(), vars["id"], actor, req.WorkerID)
	if err != nil {
		h.writeDomainError(w, err, "Failed to reassign complaint")
		return
	}

	h.writeJSON(w, http.StatusOK, complaint)
}

func (h *HTTPHandler) handleMarkDuplicate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		CanonicalID string `json:"canonical_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	complaint, err := h.engine.MarkDuplicate(r.Context(), vars["id"], actor, req.CanonicalID)
	if err != nil {
		h.writeDomainError(w, err, "Failed to mark duplicate")
		return
	}

	h.writeJSON(w, http.StatusOK, complaint)
}

func (h *HTTPHandler) handleReview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
		Remarks  string `json:"remarks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	complaint, err := h.gate.Review(r.Context(), vars["id"], actor, review.Decision(req.Decision), req.Remarks)
	if err != nil {
		h.writeDomainError(w, err, "Failed to review complaint")
		return
	}

	h.writeJSON(w, http.StatusOK, complaint)
}

// Scheduler Handlers

func (h *HTTPHandler) handleSchedulerStats(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Scheduler is disabled")
		return
	}
	h.writeJSON(w, http.StatusOK, h.scheduler.Stats())
}

func (h *HTTPHandler) handleExecuteScan(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Scheduler is disabled")
		return
	}
	vars := mux.Vars(r)

	if err := h.scheduler.RunTaskNow(vars["name"]); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Helper methods

// requireActor reads the acting identity from request headers. Every mutating
// endpoint needs one; authorization against the complaint happens downstream.
func (h *HTTPHandler) requireActor(w http.ResponseWriter, r *http.Request) (lifecycle.Actor, bool) {
	actor := lifecycle.Actor{
		ID:   r.Header.Get("X-Actor-ID"),
		Role: r.Header.Get("X-Actor-Role"),
	}
	if actor.ID == "" || actor.Role == "" {
		h.writeError(w, http.StatusBadRequest, "X-Actor-ID and X-Actor-Role headers are required")
		return lifecycle.Actor{}, false
	}
	return actor, true
}

func (h *HTTPHandler) parseFilter(r *http.Request) database.Filter {
	filter := database.Filter{Limit: 50}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	for _, status := range r.URL.Query()["status"] {
		filter.Statuses = append(filter.Statuses, database.Status(status))
	}
	filter.Department = r.URL.Query().Get("department")
	filter.Ward = r.URL.Query().Get("ward")
	filter.Category = r.URL.Query().Get("category")

	if breached := r.URL.Query().Get("sla_breached"); breached != "" {
		if b, err := strconv.ParseBool(breached); err == nil {
			filter.SLABreached = &b
		}
	}
	if from := r.URL.Query().Get("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.DateFrom = &t
		}
	}
	if to := r.URL.Query().Get("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.DateTo = &t
		}
	}

	return filter
}

// writeDomainError maps engine errors onto HTTP statuses: validation 400,
// authorization 403, unknown complaint 404, transition and version conflicts
// 409, everything else 500.
func (h *HTTPHandler) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var (
		validationErr *lifecycle.ValidationError
		transitionErr *lifecycle.InvalidTransitionError
		authErr       *lifecycle.UnauthorizedError
	)

	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &authErr):
		h.writeError(w, http.StatusForbidden, authErr.Error())
	case errors.Is(err, database.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "Complaint not found")
	case errors.As(err, &transitionErr):
		h.writeError(w, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, lifecycle.ErrConcurrentModification):
		h.writeError(w, http.StatusConflict, "Complaint was modified concurrently, retry with fresh state")
	default:
		h.logger.Error(fallback, "error", err)
		h.writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
