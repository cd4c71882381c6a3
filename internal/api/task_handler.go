package api

import (
	"net/http"

	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/service"
	"github.com/phrazzld/taskd/internal/store"
)

// TaskHandler handles task requests. Every operation is scoped to the
// authenticated user; another user's task answers 404.
type TaskHandler struct {
	tasks service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Create handles POST /tasks. The owner is always the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), user.ID, req.Description, req.Completed)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// List handles GET /tasks?completed=&sortBy=&limit=&skip=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}

	q := store.ParseTaskQuery(user.ID, r.URL.Query())
	tasks, err := h.tasks.ListTasks(r.Context(), q)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.GetTask(r.Context(), user.ID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Update handles PATCH /tasks/{id}. Only description and completed may be
// named; the allow-list is checked before the task is looked up.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}

	updates, err := decodeUpdates(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), user.ID, taskID, updates)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Delete handles DELETE /tasks/{id} and responds with the removed task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.DeleteTask(r.Context(), user.ID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}
