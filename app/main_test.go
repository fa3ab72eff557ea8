package app

import (
	"os"
	"testing"
	"time"

	"github.com/zaefsikder/task-app/app/config"
	"github.com/zaefsikder/task-app/auth"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// newMockDB swaps the package-level db for a sqlmock connection and restores
// the previous handle when the test finishes.
func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	prev := db
	db = mockDB
	t.Cleanup(func() {
		db = prev
		mockDB.Close()
	})
	return mock
}

var taskTestColumns = []string{
	"task_id", "user_id", "title", "description", "completed",
	"due_date", "label", "image_url", "rank", "created_at", "updated_at",
}

// taskRow builds a single-row result in the tasks column order.
func taskRow(taskID, userID, title string, label, imageURL any) *sqlmock.Rows {
	now := taskRowTime()
	return sqlmock.NewRows(taskTestColumns).
		AddRow(taskID, userID, title, nil, false, nil, label, imageURL, nil, now, now)
}

func taskRowTime() time.Time {
	return time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
}

func taskPlanRow(plan string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"subscription_plan"}).AddRow(plan)
}

func taskUsageRow(used int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"tasks_created"}).AddRow(used)
}

func taskImageRefRow(imageURL any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"image_url"}).AddRow(imageURL)
}

func mustLoadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func taskProfileRow(email, plan, stripeCustomerID string) *sqlmock.Rows {
	var customer any
	if stripeCustomerID != "" {
		customer = stripeCustomerID
	}
	return sqlmock.NewRows([]string{"email", "name", "stripe_customer_id", "subscription_plan", "updated_at"}).
		AddRow(email, nil, customer, plan, taskRowTime())
}

// withTestClaims injects an authenticated identity the way the middleware
// does, without standing up a JWKS.
func withTestClaims(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithClaims(c.Request.Context(), &auth.Claims{
			Subject: userID,
			Email:   userID + "@example.test",
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func expectQuotaReserved(mock sqlmock.Sqlmock, plan string, used int) {
	mock.ExpectQuery("SELECT subscription_plan").
		WillReturnRows(sqlmock.NewRows([]string{"subscription_plan"}).AddRow(plan))
	mock.ExpectQuery("SELECT tasks_created").
		WillReturnRows(sqlmock.NewRows([]string{"tasks_created"}).AddRow(used))
	mock.ExpectExec("UPDATE usage_tracking").
		WillReturnResult(sqlmock.NewResult(0, 1))
}
