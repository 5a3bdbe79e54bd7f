package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/quadtask/quadtask/internal/cache"
	"github.com/quadtask/quadtask/internal/matrix"
	"github.com/quadtask/quadtask/internal/middleware"
	"github.com/quadtask/quadtask/internal/models"
	"github.com/quadtask/quadtask/internal/validation"
	"go.uber.org/zap"
)

// MatrixHandler serves the quadrant matrix and the drag capability interface:
// the front end forwards its pointer lifecycle (start, over, end, cancel) as
// JSON events and renders whatever bucket arrangement comes back.
type MatrixHandler struct {
	manager   *matrix.Manager
	syncer    *matrix.Syncer
	taskCache *cache.Cache
	refresher *cache.Refresher
	logger    *zap.Logger
}

// NewMatrixHandler creates a new matrix handler.
func NewMatrixHandler(manager *matrix.Manager, syncer *matrix.Syncer, taskCache *cache.Cache, refresher *cache.Refresher, logger *zap.Logger) *MatrixHandler {
	return &MatrixHandler{
		manager:   manager,
		syncer:    syncer,
		taskCache: taskCache,
		refresher: refresher,
		logger:    logger,
	}
}

// RegisterRoutes registers matrix routes on the given router.
// The router should already carry the /matrix prefix.
func (h *MatrixHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetMatrix).Methods("GET")
	r.HandleFunc("/drag/start", h.DragStart).Methods("POST")
	r.HandleFunc("/drag/over", h.DragOver).Methods("POST")
	r.HandleFunc("/drag/end", h.DragEnd).Methods("POST")
	r.HandleFunc("/drag/cancel", h.DragCancel).Methods("POST")
	r.HandleFunc("/tasks/{id}/quadrant", h.SetQuadrant).Methods("PATCH")
	r.HandleFunc("/tasks/{id}/quadrant/reset", h.ResetQuadrant).Methods("POST")
}

// DragStartRequest begins a drag for one task.
type DragStartRequest struct {
	TaskID string `json:"task_id" validate:"required,min=1,max=128"`
}

// DragOverRequest is one drag-over event from the pointer layer.
type DragOverRequest struct {
	Target   string       `json:"target" validate:"required,quadrant"`
	OverItem string       `json:"over_item,omitempty" validate:"omitempty,max=128"`
	Pointer  matrix.Rect  `json:"pointer"`
	OverRect *matrix.Rect `json:"over_rect,omitempty"`
}

// SetQuadrantRequest sets a manual override outside the drag path.
type SetQuadrantRequest struct {
	Quadrant string `json:"quadrant" validate:"required,quadrant"`
	Reason   string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// MatrixResponse is the rendered matrix: the four ordered bucket id lists and
// the task records they reference. DragActive tells the client whether the
// arrangement is a live working copy or committed bucketizer output.
type MatrixResponse struct {
	Buckets    map[string][]string     `json:"buckets"`
	Tasks      map[string]*models.Task `json:"tasks"`
	DragActive bool                    `json:"drag_active"`
}

// GetMatrix returns the user's current bucket arrangement. While a drag is in
// progress the session's working copy wins; the recomputed bucketizer output
// is ignored until the session ends.
func (h *MatrixHandler) GetMatrix(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	if !h.taskCache.Known(user.ID) {
		if err := h.refresher.RefreshUser(ctx, user.ID); err != nil {
			h.logger.Error("initial_task_fetch_failed",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to load tasks from the task store")
			return
		}
	}

	tasks := h.taskCache.List(user.ID)
	buckets, dragActive := h.manager.Working(user.ID)
	if !dragActive {
		buckets = matrix.ComputeBuckets(tasks)
	}

	respondJSON(w, http.StatusOK, matrixResponse(buckets, tasks, dragActive))
}

// DragStart begins a drag session for the requested task.
func (h *MatrixHandler) DragStart(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req DragStartRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	buckets, err := h.manager.Start(user.ID, req.TaskID)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task is not present in the matrix")
		return
	}

	respondJSON(w, http.StatusOK, matrixResponse(buckets, h.taskCache.List(user.ID), true))
}

// DragOver applies one drag-over event and returns the working copy.
func (h *MatrixHandler) DragOver(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req DragOverRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	target, err := models.ParseQuadrant(req.Target)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	buckets, changed, err := h.manager.Over(user.ID, matrix.OverEvent{
		Target:   target,
		OverItem: req.OverItem,
		Pointer:  req.Pointer,
		OverRect: req.OverRect,
	})
	switch {
	case errors.Is(err, matrix.ErrNoSession):
		respondJSONError(w, http.StatusConflict, "Conflict", "No drag session is active")
		return
	case errors.Is(err, matrix.ErrInvariant):
		// Defect guard: the session was cancelled and canonical output resumes.
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Drag session aborted")
		return
	case err != nil:
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"buckets": bucketsJSON(buckets),
		"changed": changed,
	})
}

// DragEnd completes the drag, dispatching persistence when anything moved.
func (h *MatrixHandler) DragEnd(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	outcome, err := h.manager.End(user.ID)
	if errors.Is(err, matrix.ErrNoSession) {
		respondJSONError(w, http.StatusConflict, "Conflict", "No drag session is active")
		return
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete drag")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"outcome": outcomeName(outcome.Kind),
		"buckets": bucketsJSON(matrix.ComputeBuckets(h.taskCache.List(user.ID))),
	})
}

// DragCancel discards the session; releasing outside any container and the
// escape key both land here. Cancelling with no session is fine.
func (h *MatrixHandler) DragCancel(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	h.manager.Cancel(user.ID)
	respondJSON(w, http.StatusOK, map[string]any{
		"buckets": bucketsJSON(matrix.ComputeBuckets(h.taskCache.List(user.ID))),
	})
}

// SetQuadrant sets a manual override directly, the non-drag UI path.
func (h *MatrixHandler) SetQuadrant(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	taskID := mux.Vars(r)["id"]
	if h.taskCache.Get(user.ID, taskID) == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	var req SetQuadrantRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	quadrant, err := models.ParseQuadrant(req.Quadrant)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	// Reason is free text headed for the store and the audit log.
	reason := validation.SanitizeText(req.Reason)

	h.syncer.ApplyQuadrantChange(r.Context(), user.ID, taskID, quadrant, reason, matrix.SourceUser)
	respondJSON(w, http.StatusOK, h.taskCache.Get(user.ID, taskID))
}

// ResetQuadrant discards the manual override and restores the AI-assigned
// classification. The store response is authoritative.
func (h *MatrixHandler) ResetQuadrant(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	taskID := mux.Vars(r)["id"]
	task, err := h.syncer.ResetToAI(r.Context(), user.ID, taskID)
	if err != nil {
		h.logger.Error("override_reset_failed",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to reset classification")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

func matrixResponse(buckets matrix.Buckets, tasks []*models.Task, dragActive bool) MatrixResponse {
	byID := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return MatrixResponse{
		Buckets:    bucketsJSON(buckets),
		Tasks:      byID,
		DragActive: dragActive,
	}
}

func bucketsJSON(b matrix.Buckets) map[string][]string {
	out := make(map[string][]string, models.NumQuadrants)
	for q := range b {
		ids := b[q]
		if ids == nil {
			ids = []string{}
		}
		out[models.Quadrant(q).String()] = ids
	}
	return out
}

func outcomeName(kind matrix.OutcomeKind) string {
	switch kind {
	case matrix.OutcomeMove:
		return "moved"
	case matrix.OutcomeReorder:
		return "reordered"
	default:
		return "unchanged"
	}
}
