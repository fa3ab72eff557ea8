package app

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEnsureStripeCustomerExisting(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery("SELECT stripe_customer_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"stripe_customer_id"}).AddRow("cus_9"))

	// An existing customer id is returned as-is; no Stripe call happens.
	got, err := ensureStripeCustomer(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ensureStripeCustomer: %v", err)
	}
	if got != "cus_9" {
		t.Fatalf("customer id = %q, want cus_9", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureStripeCustomerMissingUser(t *testing.T) {
	newMockDB(t)

	if _, err := ensureStripeCustomer(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestUpdateProfilePlanMissingCustomerID(t *testing.T) {
	newMockDB(t)

	if err := updateProfilePlanByStripeCustomer(context.Background(), "", "premium"); err == nil {
		t.Fatal("expected error for empty customer id")
	}
}
