package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/zaefsikder/task-app/app/config"
	"github.com/zaefsikder/task-app/app/models"
	"github.com/zaefsikder/task-app/auth"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// CreateSubscriptionSession returns a redirect URL for the caller: a billing
// portal session when already premium, otherwise a checkout session for the
// configured price. No plan change happens here; that arrives via webhook.
func CreateSubscriptionSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	profile, err := getProfileByUserID(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no profile found"})
			return
		}
		log.Printf("profile lookup failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if profile.StripeCustomerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no stripe customer found"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("billing config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	originURL := requestOrigin(c, cfg)

	if profile.Plan == models.PlanPremium {
		params := &stripe.BillingPortalSessionParams{
			Customer:  stripe.String(profile.StripeCustomerID),
			ReturnURL: stripe.String(originURL + "/profile"),
		}
		sess, err := portal.New(params)
		if err != nil {
			log.Printf("stripe portal session failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to create portal session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": sess.URL})
		return
	}

	if cfg.Stripe.PriceID == "" {
		log.Printf("missing Stripe config: price_id=false")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(profile.StripeCustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(cfg.Stripe.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(originURL + "/profile?success=true"),
		CancelURL:  stripe.String(originURL + "/profile?canceled=true"),
	}

	sess, err := session.New(params)
	if err != nil {
		log.Printf("stripe checkout session failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

// CreateBillingCustomer bootstraps the caller's Stripe customer. The session
// endpoint deliberately fails without one; this is where it gets made.
func CreateBillingCustomer(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	customerID, err := ensureStripeCustomer(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("ensureStripeCustomer failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare billing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"customer_id": customerID})
}

// StripeWebhook handles Stripe subscription events and updates profile plans.
// Both recognized events are unconditional field sets, so redelivery of the
// same event is safe to apply twice.
func StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("stripe webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("stripe webhook config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	endpointSecret := cfg.Stripe.WebhookSecret
	if endpointSecret == "" {
		log.Printf("stripe webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		sigHeader,
		endpointSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("stripe session unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}
		customerID := ""
		if sess.Customer != nil {
			customerID = sess.Customer.ID
		}
		if customerID == "" {
			log.Printf("stripe session missing customer id")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing customer id"})
			return
		}

		if err := updateProfilePlanByStripeCustomer(c.Request.Context(), customerID, models.PlanPremium); err != nil {
			log.Printf("stripe plan upgrade failed customer=%s err=%v", customerID, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to update profile"})
			return
		}
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Printf("stripe subscription unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription payload"})
			return
		}
		customerID := ""
		if sub.Customer != nil {
			customerID = sub.Customer.ID
		}
		if customerID == "" {
			log.Printf("stripe subscription missing customer id")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing customer id"})
			return
		}

		if err := updateProfilePlanByStripeCustomer(c.Request.Context(), customerID, models.PlanFree); err != nil {
			log.Printf("stripe plan downgrade failed customer=%s err=%v", customerID, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to update profile"})
			return
		}
	default:
		// Intentionally ignore unhandled events.
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

type updatePlanRequest struct {
	Plan models.Plan `json:"plan"`
}

// UpdateUserPlan sets the authenticated user's plan to the requested value.
// Test/administrative override; the normal path is the webhook above.
func UpdateUserPlan(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}
	var req updatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Plan != models.PlanPremium && req.Plan != models.PlanFree {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan"})
		return
	}
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db not initialized"})
		return
	}

	_, err := db.ExecContext(
		c.Request.Context(),
		`
			UPDATE profiles
			SET subscription_plan = $1, updated_at = now()
			WHERE user_id = $2;
		`,
		req.Plan,
		claims.Subject,
	)
	if err != nil {
		log.Printf("update plan failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func updateProfilePlanByStripeCustomer(ctx context.Context, stripeCustomerID string, plan models.Plan) error {
	if db == nil {
		return errors.New("db not initialized")
	}
	if stripeCustomerID == "" {
		return errors.New("missing stripe customer id")
	}
	_, err := db.ExecContext(
		ctx,
		`
			UPDATE profiles
			SET subscription_plan = $1, updated_at = now()
			WHERE stripe_customer_id = $2;
		`,
		plan,
		stripeCustomerID,
	)
	return err
}

// requestOrigin picks the base for redirect URLs: the request's Origin header
// when present, the configured frontend URL otherwise.
func requestOrigin(c *gin.Context, cfg *config.Config) string {
	if origin := strings.TrimRight(c.GetHeader("Origin"), "/"); origin != "" {
		return origin
	}
	if frontend := strings.TrimRight(cfg.Stripe.FrontendURL, "/"); frontend != "" {
		return frontend
	}
	return "http://localhost:3000"
}
