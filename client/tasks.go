package client

import (
	"context"
	"net/http"

	"github.com/zaefsikder/task-app/app/models"
)

// TaskManager keeps a local mirror of the caller's task list. Every mutation
// applies to the mirror only after the remote call succeeds; a failed call
// leaves local state untouched. There is no rollback logic because nothing is
// applied optimistically.
type TaskManager struct {
	api   *Client
	tasks []models.Task
}

func NewTaskManager(api *Client) *TaskManager {
	return &TaskManager{api: api}
}

// Tasks returns a copy of the local mirror, newest-created-first.
func (m *TaskManager) Tasks() []models.Task {
	out := make([]models.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// Refresh replaces the mirror with the server's list.
func (m *TaskManager) Refresh(ctx context.Context) error {
	var resp struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := m.api.do(ctx, http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return err
	}
	m.tasks = resp.Tasks
	return nil
}

type createTaskBody struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// Create inserts a task directly, without classification.
func (m *TaskManager) Create(ctx context.Context, title, description string) (models.Task, error) {
	body := createTaskBody{Title: title}
	if description != "" {
		body.Description = &description
	}

	var task models.Task
	if err := m.api.do(ctx, http.MethodPost, "/api/tasks", body, &task); err != nil {
		return models.Task{}, err
	}
	m.tasks = append([]models.Task{task}, m.tasks...)
	return task, nil
}

type classifyTaskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateWithLabel creates a task through the classification handler. The
// returned task carries one of the fixed labels, or none when the model call
// degraded.
func (m *TaskManager) CreateWithLabel(ctx context.Context, title, description string) (models.Task, error) {
	var task models.Task
	err := m.api.do(ctx, http.MethodPost, "/api/create-task-with-ai",
		classifyTaskBody{Title: title, Description: description}, &task)
	if err != nil {
		return models.Task{}, err
	}
	m.tasks = append([]models.Task{task}, m.tasks...)
	return task, nil
}

// ToggleComplete flips the completion flag on one task.
func (m *TaskManager) ToggleComplete(ctx context.Context, taskID string, completed bool) (models.Task, error) {
	body := struct {
		Completed *bool `json:"completed"`
	}{Completed: &completed}

	var task models.Task
	if err := m.api.do(ctx, http.MethodPatch, "/api/tasks/"+taskID, body, &task); err != nil {
		return models.Task{}, err
	}
	for i := range m.tasks {
		if m.tasks[i].TaskID == taskID {
			m.tasks[i] = task
			break
		}
	}
	return task, nil
}

// Delete removes one task and drops it from the mirror.
func (m *TaskManager) Delete(ctx context.Context, taskID string) error {
	if err := m.api.do(ctx, http.MethodDelete, "/api/tasks/"+taskID, nil, nil); err != nil {
		return err
	}
	for i := range m.tasks {
		if m.tasks[i].TaskID == taskID {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
	return nil
}
