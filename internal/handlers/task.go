package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tasklist/apiserver/internal/services"
	"github.com/tasklist/apiserver/internal/store"
	"github.com/tasklist/apiserver/types"
	"go.uber.org/zap"
)

// TaskHandler provides HTTP handlers for the caller's tasks.
type TaskHandler struct {
	taskService *services.TaskService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewTaskHandler constructs a handler with the provided service.
func NewTaskHandler(taskService *services.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validate:    newFormValidator(),
		logger:      logger,
	}
}

// TaskRouter registers task routes on the given router. Every route
// requires authentication.
func TaskRouter(
	r chi.Router,
	taskService *services.TaskService,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewTaskHandler(taskService, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTasks)
	r.Post("/", handler.CreateTask)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Put("/", handler.UpdateTask)
		r.Delete("/", handler.DeleteTask)
	})
}

// TaskListResponse wraps the caller's tasks.
type TaskListResponse struct {
	Tasks []types.Task `json:"tasks"`
}

// TaskResponse acknowledges a create or update.
type TaskResponse struct {
	Success bool       `json:"success"`
	Task    types.Task `json:"task"`
}

// SuccessResponse acknowledges a delete.
type SuccessResponse struct {
	Success bool `json:"success"`
}

const detailInvalidContent = "content contains characters that cannot be stored"

// taskID writes the error response itself when the path id is unusable.
// An id beyond the column's range names no task, so it is a 404.
func taskID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := parseTaskID(r)
	if err != nil {
		if errors.Is(err, errTaskIDOutOfRange) {
			writeError(w, http.StatusNotFound, "Task not found")
			return 0, false
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return 0, false
	}
	return id, true
}

// CreateTaskForm is the add-task payload.
type CreateTaskForm struct {
	Content string `form:"content" validate:"required"`
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailNotAuthenticated)
		return
	}

	tasks, err := h.taskService.List(r.Context(), user)
	if err != nil {
		h.logger.Error("list tasks failed", zap.Int("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks})
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailNotAuthenticated)
		return
	}

	if err := parseForm(r); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}

	form := CreateTaskForm{Content: r.PostForm.Get("content")}
	if err := h.validate.Struct(form); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	task, err := h.taskService.Create(r.Context(), user, form.Content)
	if err != nil {
		if errors.Is(err, services.ErrEmptyContent) {
			writeError(w, http.StatusUnprocessableEntity, "missing required fields: content")
			return
		}
		if errors.Is(err, store.ErrInvalidValue) {
			writeError(w, http.StatusUnprocessableEntity, detailInvalidContent)
			return
		}
		h.logger.Error("create task failed", zap.Int("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TaskResponse{Success: true, Task: task})
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailNotAuthenticated)
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := parseForm(r); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}

	var patch types.TaskPatch
	if content, ok := formValue(r, "content"); ok {
		patch.Content = &content
	}
	if raw, ok := formValue(r, "completed"); ok {
		completed, err := parseFormBool(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "completed must be a boolean")
			return
		}
		patch.Completed = &completed
	}

	task, err := h.taskService.Update(r.Context(), user, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		if errors.Is(err, store.ErrInvalidValue) {
			writeError(w, http.StatusUnprocessableEntity, detailInvalidContent)
			return
		}
		h.logger.Error("update task failed", zap.Int("user_id", user.ID), zap.Int("task_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TaskResponse{Success: true, Task: task})
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailNotAuthenticated)
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), user, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		h.logger.Error("delete task failed", zap.Int("user_id", user.ID), zap.Int("task_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
