package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zaefsikder/task-app/app/models"

	"github.com/gin-gonic/gin"
)

func newClassifyTestRouter(userID string) *gin.Engine {
	router := gin.New()
	api := router.Group("/api", withTestClaims(userID))
	api.POST("/create-task-with-ai", CreateTaskWithLabel)
	return router
}

func withClassifier(t *testing.T, lc *LabelClassifier) {
	t.Helper()
	prev := classifier
	classifier = lc
	t.Cleanup(func() { classifier = prev })
}

func TestCreateTaskWithLabelClassifierDisabled(t *testing.T) {
	withClassifier(t, nil)

	mock := newMockDB(t)
	mock.ExpectBegin()
	expectQuotaReserved(mock, "free", 0)
	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnRows(taskRow("task-1", "user-1", "buy milk", nil, nil))
	mock.ExpectCommit()

	router := newClassifyTestRouter("user-1")

	req := httptest.NewRequest(http.MethodPost, "/api/create-task-with-ai",
		strings.NewReader(`{"title":"buy milk"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var task models.Task
	if err := json.Unmarshal(resp.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if task.Label != nil {
		t.Fatalf("expected unlabeled task, got %v", *task.Label)
	}
}

func TestCreateTaskWithLabelApplied(t *testing.T) {
	server := newChatServer(t, http.StatusOK, chatCompletion("shopping"))
	lc := NewLabelClassifier("test-key")
	lc.baseURL = server.URL
	withClassifier(t, lc)

	mock := newMockDB(t)
	mock.ExpectBegin()
	expectQuotaReserved(mock, "free", 0)
	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnRows(taskRow("task-1", "user-1", "buy milk", nil, nil))
	mock.ExpectCommit()
	mock.ExpectQuery("UPDATE tasks").
		WillReturnRows(taskRow("task-1", "user-1", "buy milk", "shopping", nil))

	router := newClassifyTestRouter("user-1")

	req := httptest.NewRequest(http.MethodPost, "/api/create-task-with-ai",
		strings.NewReader(`{"title":"buy milk","description":"2 liters"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var task models.Task
	if err := json.Unmarshal(resp.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if task.Label == nil || *task.Label != models.LabelShopping {
		t.Fatalf("label = %v, want shopping", task.Label)
	}
}

func TestCreateTaskWithLabelDegradesOnModelFailure(t *testing.T) {
	server := newChatServer(t, http.StatusInternalServerError, `{"error":{"message":"overloaded"}}`)
	lc := NewLabelClassifier("test-key")
	lc.baseURL = server.URL
	withClassifier(t, lc)

	mock := newMockDB(t)
	mock.ExpectBegin()
	expectQuotaReserved(mock, "free", 0)
	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnRows(taskRow("task-1", "user-1", "buy milk", nil, nil))
	mock.ExpectCommit()

	router := newClassifyTestRouter("user-1")

	req := httptest.NewRequest(http.MethodPost, "/api/create-task-with-ai",
		strings.NewReader(`{"title":"buy milk"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	// The task persists unlabeled when classification fails.
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var task models.Task
	if err := json.Unmarshal(resp.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if task.Label != nil {
		t.Fatalf("expected unlabeled task, got %v", *task.Label)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
