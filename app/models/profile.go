// Package models defines user plan and usage tracking fields.
package models

import "time"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Profile is the subscription-bearing record, one per user. The plan tier is
// only ever written by the Stripe webhook or by the test/admin override
// endpoint, never directly by a signed-in client.
type Profile struct {
	UserID           string    `json:"user_id" db:"user_id"`
	Email            string    `json:"email,omitempty" db:"email"`
	Name             string    `json:"name,omitempty" db:"name"`
	StripeCustomerID string    `json:"-" db:"stripe_customer_id"`
	Plan             Plan      `json:"subscription_plan" db:"subscription_plan"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Usage is the per-user, per-calendar-month created-task counter.
// At most one row exists per (user, month).
type Usage struct {
	UserID       string `json:"user_id" db:"user_id"`
	YearMonth    string `json:"year_month" db:"year_month"` // "YYYY-MM", UTC
	TasksCreated int    `json:"tasks_created" db:"tasks_created"`
}
