package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zaefsikder/task-app/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorLoadAndSave(t *testing.T) {
	due := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		task := serverTask("task-1", "buy milk", nil)
		task.DueDate = &due
		writeJSON(t, w, http.StatusOK, task)
	})
	mux.HandleFunc("PATCH /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		var body saveTaskBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "buy oat milk", body.Title)
		assert.Equal(t, "shopping", body.Label)
		parsed, err := time.Parse(time.RFC3339, body.DueDate)
		require.NoError(t, err)
		assert.True(t, parsed.Equal(due))

		label := models.LabelShopping
		task := serverTask("task-1", body.Title, &label)
		task.DueDate = &parsed
		writeJSON(t, w, http.StatusOK, task)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := NewTaskEditor(New(server.URL, "test-token"))
	require.NoError(t, e.Load(context.Background(), "task-1"))

	loaded, ok := e.Task()
	require.True(t, ok)
	assert.Equal(t, "buy milk", loaded.Title)
	require.NotNil(t, e.DueDate())
	assert.True(t, e.DueDate().Equal(due))

	title := "buy oat milk"
	label := models.LabelShopping
	e.Update(TaskPatch{Title: &title, Label: &label})

	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "buy oat milk", saved.Title)
	require.NotNil(t, saved.Label)
	assert.Equal(t, models.LabelShopping, *saved.Label)
}

func TestEditorSaveClearsDueDate(t *testing.T) {
	due := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		task := serverTask("task-1", "buy milk", nil)
		task.DueDate = &due
		writeJSON(t, w, http.StatusOK, task)
	})
	mux.HandleFunc("PATCH /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))

		// The cleared due date must still be present in the patch, as an
		// explicit empty string, or the server would keep the stale value.
		dueField, ok := raw["due_date"]
		require.True(t, ok, "due_date key missing from patch body")
		assert.Equal(t, `""`, string(dueField))

		writeJSON(t, w, http.StatusOK, serverTask("task-1", "buy milk", nil))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := NewTaskEditor(New(server.URL, "test-token"))
	require.NoError(t, e.Load(context.Background(), "task-1"))
	require.NotNil(t, e.DueDate())

	e.SetDueDate(nil)

	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.Nil(t, saved.DueDate)
	assert.Nil(t, e.DueDate())
}

func TestEditorSaveClearsLabelAndDescription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		label := models.LabelWork
		desc := "old notes"
		task := serverTask("task-1", "buy milk", &label)
		task.Description = &desc
		writeJSON(t, w, http.StatusOK, task)
	})
	mux.HandleFunc("PATCH /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		var body saveTaskBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "", body.Label)
		assert.Equal(t, "", body.Description)

		writeJSON(t, w, http.StatusOK, serverTask("task-1", "buy milk", nil))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := NewTaskEditor(New(server.URL, "test-token"))
	require.NoError(t, e.Load(context.Background(), "task-1"))

	e.Update(TaskPatch{ClearLabel: true, ClearDescription: true})

	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.Nil(t, saved.Label)
	assert.Nil(t, saved.Description)
}

func TestEditorSaveWithoutLoad(t *testing.T) {
	e := NewTaskEditor(New("http://localhost:0", "test-token"))

	_, err := e.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoTask)
}

func TestEditorUpdateWithoutLoadIsNoop(t *testing.T) {
	e := NewTaskEditor(New("http://localhost:0", "test-token"))

	title := "ignored"
	e.Update(TaskPatch{Title: &title})

	_, ok := e.Task()
	assert.False(t, ok)
}

func TestEditorUploadImage(t *testing.T) {
	var uploads atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, serverTask("task-1", "buy milk", nil))
	})
	mux.HandleFunc("POST /api/tasks/task-1/image", func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "photo.png", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("fake png bytes"), data)

		key := "user-1/task-1.png"
		task := serverTask("task-1", "buy milk", nil)
		task.ImageURL = &key
		writeJSON(t, w, http.StatusOK, task)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := NewTaskEditor(New(server.URL, "test-token"))
	require.NoError(t, e.Load(context.Background(), "task-1"))

	updated, err := e.UploadImage(context.Background(), "photo.png", []byte("fake png bytes"))
	require.NoError(t, err)
	require.NotNil(t, updated.ImageURL)
	assert.Equal(t, "user-1/task-1.png", *updated.ImageURL)
	assert.EqualValues(t, 1, uploads.Load())
}

func TestEditorUploadImageTooLarge(t *testing.T) {
	var requests atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, serverTask("task-1", "buy milk", nil))
	})
	mux.HandleFunc("POST /api/tasks/task-1/image", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeJSON(t, w, http.StatusOK, serverTask("task-1", "buy milk", nil))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := NewTaskEditor(New(server.URL, "test-token"))
	require.NoError(t, e.Load(context.Background(), "task-1"))

	oversized := make([]byte, MaxImageBytes+1)
	_, err := e.UploadImage(context.Background(), "big.png", oversized)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	// The size check rejects locally; the server never sees the upload.
	assert.EqualValues(t, 0, requests.Load())
}

func TestEditorUploadImageNoExtension(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, serverTask("task-1", "buy milk", nil))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := NewTaskEditor(New(server.URL, "test-token"))
	require.NoError(t, e.Load(context.Background(), "task-1"))

	_, err := e.UploadImage(context.Background(), "noext", []byte("data"))
	assert.ErrorIs(t, err, ErrNoExtension)
}

func TestEditorRemoveImage(t *testing.T) {
	key := "user-1/task-1.png"

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		task := serverTask("task-1", "buy milk", nil)
		task.ImageURL = &key
		writeJSON(t, w, http.StatusOK, task)
	})
	mux.HandleFunc("DELETE /api/tasks/task-1/image", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, serverTask("task-1", "buy milk", nil))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := NewTaskEditor(New(server.URL, "test-token"))
	require.NoError(t, e.Load(context.Background(), "task-1"))

	updated, err := e.RemoveImage(context.Background())
	require.NoError(t, err)
	assert.Nil(t, updated.ImageURL)
}

func TestEditorRemoveImageWithoutImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, serverTask("task-1", "buy milk", nil))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := NewTaskEditor(New(server.URL, "test-token"))
	require.NoError(t, e.Load(context.Background(), "task-1"))

	_, err := e.RemoveImage(context.Background())
	assert.ErrorIs(t, err, ErrNoImage)
}
