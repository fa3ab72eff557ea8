// Package app enforces monthly task-creation limits for authenticated users.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zaefsikder/task-app/app/models"
)

const (
	FreeMonthlyTaskLimit    = 100
	PremiumMonthlyTaskLimit = 10000
)

type quotaError struct {
	Limit int
	Used  int
}

func (e quotaError) Error() string {
	return fmt.Sprintf("monthly task limit reached (%d/%d)", e.Used, e.Limit)
}

// monthKeyUTC formats the calendar-month bucket a creation falls into.
func monthKeyUTC(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func planTaskLimit(plan models.Plan) int {
	if plan == models.PlanPremium {
		return PremiumMonthlyTaskLimit
	}
	return FreeMonthlyTaskLimit
}

// reserveTaskQuota checks and increments the caller's usage counter inside the
// caller's transaction. The usage row is locked FOR UPDATE so two concurrent
// creations cannot both slip under the limit.
func reserveTaskQuota(ctx context.Context, tx *sql.Tx, userID string, add int) error {
	plan, err := getPlanForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err := insertDefaultProfile(ctx, tx, userID); err != nil {
				return err
			}
			plan, err = getPlanForUpdate(ctx, tx, userID)
		}
		if err != nil {
			return err
		}
	}

	if add < 0 {
		add = 0
	}

	yearMonth := monthKeyUTC(time.Now())
	used, err := getUsageForUpdate(ctx, tx, userID, yearMonth)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err := insertUsageRow(ctx, tx, userID, yearMonth); err != nil {
			return err
		}
		used, err = getUsageForUpdate(ctx, tx, userID, yearMonth)
		if err != nil {
			return err
		}
	}

	limit := planTaskLimit(plan)
	if used+add > limit {
		return quotaError{Limit: limit, Used: used}
	}

	return updateUsageCount(ctx, tx, userID, yearMonth, used+add)
}

func getPlanForUpdate(ctx context.Context, tx *sql.Tx, userID string) (models.Plan, error) {
	var plan models.Plan
	err := tx.QueryRowContext(ctx, `
		SELECT subscription_plan
		FROM profiles
		WHERE user_id = $1
		FOR UPDATE;
	`, userID).Scan(&plan)
	if err != nil {
		return "", err
	}
	return plan, nil
}

func getUsageForUpdate(ctx context.Context, tx *sql.Tx, userID, yearMonth string) (int, error) {
	var used int
	err := tx.QueryRowContext(ctx, `
		SELECT tasks_created
		FROM usage_tracking
		WHERE user_id = $1 AND year_month = $2
		FOR UPDATE;
	`, userID, yearMonth).Scan(&used)
	if err != nil {
		return 0, err
	}
	return used, nil
}

func insertUsageRow(ctx context.Context, tx *sql.Tx, userID, yearMonth string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO usage_tracking (user_id, year_month, tasks_created)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, year_month) DO NOTHING;
	`, userID, yearMonth)
	return err
}

func updateUsageCount(ctx context.Context, tx *sql.Tx, userID, yearMonth string, count int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE usage_tracking
		SET tasks_created = $1
		WHERE user_id = $2 AND year_month = $3;
	`, count, userID, yearMonth)
	return err
}

// getTasksCreatedThisMonth reads the caller's counter outside a transaction,
// for the /me endpoint. Missing row means zero.
func getTasksCreatedThisMonth(ctx context.Context, userID string) (int, error) {
	var used int
	err := db.QueryRowContext(ctx, `
		SELECT tasks_created
		FROM usage_tracking
		WHERE user_id = $1 AND year_month = $2;
	`, userID, monthKeyUTC(time.Now())).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return used, nil
}
