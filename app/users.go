// Package app provides profile persistence helpers for authenticated requests.
package app

import (
	"context"
	"database/sql"
	"strings"

	"github.com/zaefsikder/task-app/app/models"
	"github.com/zaefsikder/task-app/auth"
)

// UpsertProfileFromClaims creates a profile row if it does not already exist.
// New accounts always start on the free tier.
func UpsertProfileFromClaims(ctx context.Context, claims *auth.Claims) error {
	if db == nil {
		return nil
	}
	if claims == nil || claims.Subject == "" {
		return nil
	}

	const q = `
		INSERT INTO profiles (user_id, email, name, subscription_plan, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO NOTHING;
	`

	_, err := db.ExecContext(
		ctx,
		q,
		claims.Subject,
		nullIfEmpty(strings.TrimSpace(claims.Email)),
		nullIfEmpty(strings.TrimSpace(claims.Name)),
		models.PlanFree,
	)
	return err
}

func insertDefaultProfile(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, subscription_plan, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO NOTHING;
	`, userID, models.PlanFree)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func getProfileByUserID(ctx context.Context, userID string) (models.Profile, error) {
	var (
		profile          models.Profile
		email            sql.NullString
		name             sql.NullString
		stripeCustomerID sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT email, name, stripe_customer_id, subscription_plan, updated_at
		FROM profiles
		WHERE user_id = $1;
	`, userID).Scan(&email, &name, &stripeCustomerID, &profile.Plan, &profile.UpdatedAt)
	if err != nil {
		return models.Profile{}, err
	}
	profile.UserID = userID
	profile.Email = email.String
	profile.Name = name.String
	profile.StripeCustomerID = stripeCustomerID.String
	return profile, nil
}
