package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/zaefsikder/task-app/app/config"
	"github.com/zaefsikder/task-app/app/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

var db *sql.DB

// MustInitDB initializes the global db and panics/logs fatally on error.
func MustInitDB() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.URL,
		cfg.DB.Port,
	)

	d, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}

	if err := d.Ping(); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}

	log.Println("Connected to Postgres")
	db = d
}

const taskColumns = `task_id, user_id, title, description, completed, due_date, label, image_url, rank, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t           models.Task
		description sql.NullString
		dueDate     sql.NullTime
		label       sql.NullString
		imageURL    sql.NullString
		rank        sql.NullInt64
	)
	err := row.Scan(
		&t.TaskID,
		&t.UserID,
		&t.Title,
		&description,
		&t.Completed,
		&dueDate,
		&label,
		&imageURL,
		&rank,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return models.Task{}, err
	}
	t.Description = nullableStringToPtr(description)
	if dueDate.Valid {
		due := dueDate.Time
		t.DueDate = &due
	}
	if label.Valid && label.String != "" {
		l := models.Label(label.String)
		t.Label = &l
	}
	t.ImageURL = nullableStringToPtr(imageURL)
	t.Rank = nullableIntToPtr(rank)
	return t, nil
}

// ListTasks returns all tasks owned by userID, newest-created-first.
func ListTasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask fetches one task owned by userID. A row owned by someone else is
// indistinguishable from a missing row: both return sql.ErrNoRows.
func GetTask(ctx context.Context, userID, taskID string) (models.Task, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE task_id = $1 AND user_id = $2;
	`, taskID, userID)
	return scanTask(row)
}

// CreateTask inserts a task for userID after reserving monthly quota, all in
// one serializable transaction so the counter and the row move together.
func CreateTask(ctx context.Context, userID string, title string, description *string, dueDate *time.Time, label *models.Label) (models.Task, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.Task{}, err
	}
	defer tx.Rollback()

	if err := reserveTaskQuota(ctx, tx, userID, 1); err != nil {
		return models.Task{}, err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO tasks (task_id, user_id, title, description, completed, due_date, label)
		VALUES ($1, $2, $3, $4, false, $5, $6)
		RETURNING `+taskColumns+`;
	`, uuid.NewString(), userID, title, nullString(description), nullTime(dueDate), nullLabel(label))

	task, err := scanTask(row)
	if err != nil {
		return models.Task{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// UpdateTask writes the full field buffer back, keyed by (task, owner).
func UpdateTask(ctx context.Context, task models.Task) (models.Task, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE tasks
		SET title = $1,
		    description = $2,
		    completed = $3,
		    due_date = $4,
		    label = $5,
		    image_url = $6,
		    rank = $7,
		    updated_at = now()
		WHERE task_id = $8 AND user_id = $9
		RETURNING `+taskColumns+`;
	`,
		task.Title,
		nullString(task.Description),
		task.Completed,
		nullTime(task.DueDate),
		nullLabel(task.Label),
		nullString(task.ImageURL),
		nullInt(task.Rank),
		task.TaskID,
		task.UserID,
	)
	return scanTask(row)
}

// SetTaskCompleted toggles the completion flag on exactly one owned row.
func SetTaskCompleted(ctx context.Context, userID, taskID string, completed bool) (models.Task, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE tasks
		SET completed = $1, updated_at = now()
		WHERE task_id = $2 AND user_id = $3
		RETURNING `+taskColumns+`;
	`, completed, taskID, userID)
	return scanTask(row)
}

// SetTaskLabel patches only the label column; used by the classification path.
func SetTaskLabel(ctx context.Context, userID, taskID string, label models.Label) (models.Task, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE tasks
		SET label = $1, updated_at = now()
		WHERE task_id = $2 AND user_id = $3
		RETURNING `+taskColumns+`;
	`, string(label), taskID, userID)
	return scanTask(row)
}

// SetTaskImage patches only the stored image reference. Pass nil to clear it.
func SetTaskImage(ctx context.Context, userID, taskID string, imageURL *string) (models.Task, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE tasks
		SET image_url = $1, updated_at = now()
		WHERE task_id = $2 AND user_id = $3
		RETURNING `+taskColumns+`;
	`, nullString(imageURL), taskID, userID)
	return scanTask(row)
}

// DeleteTask removes one owned row and reports the image reference it carried
// so the caller can cascade the storage delete.
func DeleteTask(ctx context.Context, userID, taskID string) (string, error) {
	var imageURL sql.NullString
	err := db.QueryRowContext(ctx, `
		DELETE FROM tasks
		WHERE task_id = $1 AND user_id = $2
		RETURNING image_url;
	`, taskID, userID).Scan(&imageURL)
	if err != nil {
		return "", err
	}
	return imageURL.String, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullLabel(l *models.Label) sql.NullString {
	if l == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*l), Valid: true}
}

func nullableStringToPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableIntToPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
