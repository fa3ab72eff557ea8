package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/zaefsikder/task-app/app/models"
)

// MaxImageBytes caps task image uploads at 1 MiB. The check runs before any
// network call.
const MaxImageBytes = 1 << 20

var (
	ErrNoTask        = errors.New("no task loaded")
	ErrNoImage       = errors.New("no image attached")
	ErrImageTooLarge = errors.New("image exceeds the 1 MiB limit")
	ErrNoExtension   = errors.New("filename has no extension")
)

// TaskEditor buffers edits to one task locally and persists them on an
// explicit Save. Image mutations talk to the server immediately (object
// first, row patch second).
type TaskEditor struct {
	api     *Client
	task    *models.Task
	dueDate *time.Time
}

func NewTaskEditor(api *Client) *TaskEditor {
	return &TaskEditor{api: api}
}

// Load fetches one task and derives the editable due date from it.
func (e *TaskEditor) Load(ctx context.Context, taskID string) error {
	var task models.Task
	if err := e.api.do(ctx, http.MethodGet, "/api/tasks/"+taskID, nil, &task); err != nil {
		return err
	}
	e.task = &task
	e.dueDate = task.DueDate
	return nil
}

// Task returns the current buffer contents.
func (e *TaskEditor) Task() (models.Task, bool) {
	if e.task == nil {
		return models.Task{}, false
	}
	return *e.task, true
}

func (e *TaskEditor) DueDate() *time.Time {
	return e.dueDate
}

func (e *TaskEditor) SetDueDate(t *time.Time) {
	e.dueDate = t
}

// TaskPatch is a partial field edit applied to the local buffer only. The
// Clear flags drop the nullable fields; a nil pointer just means "unchanged".
type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Completed        *bool
	Label            *models.Label
	ClearLabel       bool
	Rank             *int
}

// Update mutates the local buffer. No remote call happens here.
func (e *TaskEditor) Update(patch TaskPatch) {
	if e.task == nil {
		return
	}
	if patch.Title != nil {
		e.task.Title = *patch.Title
	}
	if patch.Description != nil {
		e.task.Description = patch.Description
	}
	if patch.ClearDescription {
		e.task.Description = nil
	}
	if patch.Completed != nil {
		e.task.Completed = *patch.Completed
	}
	if patch.Label != nil {
		e.task.Label = patch.Label
	}
	if patch.ClearLabel {
		e.task.Label = nil
	}
	if patch.Rank != nil {
		e.task.Rank = patch.Rank
	}
}

// saveTaskBody is the full buffer as one PATCH. Every nullable field is sent
// on every save, with an empty string standing for "cleared", so a value
// dropped locally cannot survive on the server by being omitted.
type saveTaskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	DueDate     string `json:"due_date"`
	Label       string `json:"label"`
	Rank        *int   `json:"rank,omitempty"`
}

// Save sends the full local buffer, plus the derived due date, back to the
// server; the server refreshes the update timestamp. The buffer mirrors the
// saved row on success.
func (e *TaskEditor) Save(ctx context.Context) (models.Task, error) {
	if e.task == nil {
		return models.Task{}, ErrNoTask
	}

	body := saveTaskBody{
		Title:     e.task.Title,
		Completed: e.task.Completed,
		Rank:      e.task.Rank,
	}
	if e.task.Description != nil {
		body.Description = *e.task.Description
	}
	if e.dueDate != nil {
		body.DueDate = e.dueDate.UTC().Format(time.RFC3339Nano)
	}
	if e.task.Label != nil {
		body.Label = string(*e.task.Label)
	}

	var saved models.Task
	if err := e.api.do(ctx, http.MethodPatch, "/api/tasks/"+e.task.TaskID, body, &saved); err != nil {
		return models.Task{}, err
	}
	e.task = &saved
	e.dueDate = saved.DueDate
	return saved, nil
}

// UploadImage attaches (or replaces) the task's single image. Size and
// extension are validated before anything touches the network.
func (e *TaskEditor) UploadImage(ctx context.Context, filename string, data []byte) (models.Task, error) {
	if e.task == nil {
		return models.Task{}, ErrNoTask
	}
	if len(data) > MaxImageBytes {
		return models.Task{}, ErrImageTooLarge
	}
	if idx := strings.LastIndex(filename, "."); idx < 0 || idx == len(filename)-1 {
		return models.Task{}, ErrNoExtension
	}

	var updated models.Task
	err := e.api.doMultipart(ctx, "/api/tasks/"+e.task.TaskID+"/image", filename, data, &updated)
	if err != nil {
		return models.Task{}, err
	}
	e.task = &updated
	return updated, nil
}

// RemoveImage deletes the stored object and clears the row reference.
func (e *TaskEditor) RemoveImage(ctx context.Context) (models.Task, error) {
	if e.task == nil {
		return models.Task{}, ErrNoTask
	}
	if e.task.ImageURL == nil || *e.task.ImageURL == "" {
		return models.Task{}, ErrNoImage
	}

	var updated models.Task
	err := e.api.do(ctx, http.MethodDelete, "/api/tasks/"+e.task.TaskID+"/image", nil, &updated)
	if err != nil {
		return models.Task{}, err
	}
	e.task = &updated
	return updated, nil
}
