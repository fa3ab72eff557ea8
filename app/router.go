// Package app wires shared HTTP routes for both local and Lambda execution.
package app

import (
	"time"

	"github.com/zaefsikder/task-app/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter() (*gin.Engine, error) {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", Health)
	router.POST("/api/stripe/webhook", StripeWebhook)

	verifier, err := auth.NewVerifierFromEnv()
	if err != nil && !auth.AuthDisabled() {
		return nil, err
	}

	protected := router.Group("/")
	protected.Use(auth.Middleware(verifier, auth.MiddlewareConfig{
		OnAuthenticated: func(c *gin.Context, claims *auth.Claims) error {
			return UpsertProfileFromClaims(c.Request.Context(), claims)
		},
	}))
	protected.GET("/me", Me)
	protected.GET("/api/tasks", GetTasks)
	protected.POST("/api/tasks", PostTask)
	protected.POST("/api/create-task-with-ai", CreateTaskWithLabel)
	protected.GET("/api/tasks/:id", GetTaskByID)
	protected.PATCH("/api/tasks/:id", PatchTask)
	protected.DELETE("/api/tasks/:id", DeleteTaskByID)
	protected.POST("/api/tasks/:id/image", UploadTaskImage)
	protected.DELETE("/api/tasks/:id/image", RemoveTaskImage)
	protected.POST("/api/billing/session", CreateSubscriptionSession)
	protected.POST("/api/billing/customer", CreateBillingCustomer)
	protected.POST("/api/billing/update-plan", UpdateUserPlan)

	return router, nil
}
